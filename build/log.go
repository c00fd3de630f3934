// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

// Package build runs the typed, versioned, memoized job graph: processors
// enumerate dependencies, run on a worker pool and emit content-addressed
// artifacts; the orchestrator seeds jobs from assets and writes manifests.
package build

import (
	"io"
	"log/slog"
	"sync"

	"github.com/pb33f/assetforge/datamodel"
)

// LogEventLevel grades build log events. A FatalError aborts the producing
// job but never the whole build.
type LogEventLevel int

const (
	LogEventLevelWarning LogEventLevel = iota
	LogEventLevelError
	LogEventLevelFatalError
)

func (l LogEventLevel) String() string {
	switch l {
	case LogEventLevelError:
		return "error"
	case LogEventLevelFatalError:
		return "fatal"
	}
	return "warning"
}

// BuildLogEvent is one diagnostic attributed to an asset, a job, or both.
type BuildLogEvent struct {
	AssetId AssetIdRef
	JobId   JobIdRef
	Level   LogEventLevel
	Message string
}

// AssetIdRef is an optional asset attribution.
type AssetIdRef struct {
	Id    datamodel.AssetId
	Valid bool
}

// JobIdRef is an optional job attribution.
type JobIdRef struct {
	Id    JobId
	Valid bool
}

// BuildLog accumulates events for one build cycle. Workers and the
// coordinator append concurrently, so pushes are locked.
type BuildLog struct {
	Events []BuildLogEvent

	mu     sync.Mutex
	logger *slog.Logger
}

// NewBuildLog creates an empty log, mirroring events to logger when set.
func NewBuildLog(logger *slog.Logger) *BuildLog {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BuildLog{logger: logger}
}

func (b *BuildLog) push(event BuildLogEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch event.Level {
	case LogEventLevelWarning:
		b.logger.Warn("build warning", "message", event.Message)
	default:
		b.logger.Error("build error", "message", event.Message, "level", event.Level.String())
	}
	b.Events = append(b.Events, event)
}

// WarnAsset records a warning attributed to an asset.
func (b *BuildLog) WarnAsset(id datamodel.AssetId, message string) {
	b.push(BuildLogEvent{AssetId: AssetIdRef{id, true}, Level: LogEventLevelWarning, Message: message})
}

// WarnJob records a warning attributed to a job.
func (b *BuildLog) WarnJob(id JobId, message string) {
	b.push(BuildLogEvent{JobId: JobIdRef{id, true}, Level: LogEventLevelWarning, Message: message})
}

// ErrorJob records an error attributed to a job.
func (b *BuildLog) ErrorJob(id JobId, message string) {
	b.push(BuildLogEvent{JobId: JobIdRef{id, true}, Level: LogEventLevelError, Message: message})
}

// FatalAsset records a fatal error attributed to an asset.
func (b *BuildLog) FatalAsset(id datamodel.AssetId, message string) {
	b.push(BuildLogEvent{AssetId: AssetIdRef{id, true}, Level: LogEventLevelFatalError, Message: message})
}

// FatalJob records a fatal error attributed to a job.
func (b *BuildLog) FatalJob(id JobId, message string) {
	b.push(BuildLogEvent{JobId: JobIdRef{id, true}, Level: LogEventLevelFatalError, Message: message})
}

// HasFatalErrors reports whether any job died this cycle.
func (b *BuildLog) HasFatalErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, event := range b.Events {
		if event.Level == LogEventLevelFatalError {
			return true
		}
	}
	return false
}
