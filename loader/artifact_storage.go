// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

// Package loader is the runtime-facing edge of the pipeline: it selects the
// current build through the TOC, reads manifests, and hands artifact payloads
// to per-type storages.
package loader

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pb33f/assetforge/build"
	"golang.org/x/sync/syncmap"
)

// ErrStorageNotFound is returned when no storage is registered for an
// artifact type.
var ErrStorageNotFound = errors.New("no artifact storage registered for type")

// LoadHandle identifies one in-flight artifact load within a storage.
type LoadHandle uint64

// ArtifactStorage holds decoded artifacts of one type through the
// load/commit/free lifecycle. Load stages data as uncommitted; Commit makes
// it visible; Free drops it.
type ArtifactStorage interface {
	LoadArtifact(handle LoadHandle, artifactId build.ArtifactId, data []byte) error
	CommitArtifact(handle LoadHandle) error
	FreeArtifact(handle LoadHandle) error
	TypeName() string
}

// storageEntry wraps one storage with the exclusive lock held for the
// duration of any single lifecycle call.
type storageEntry struct {
	mu      sync.Mutex
	storage ArtifactStorage
}

// ArtifactStorageSet routes artifacts to per-type storages. Callers may read
// and write concurrently; each per-type storage is guarded by its own lock.
type ArtifactStorageSet struct {
	storages syncmap.Map // uuid.UUID -> *storageEntry
}

// NewArtifactStorageSet creates an empty set.
func NewArtifactStorageSet() *ArtifactStorageSet {
	return &ArtifactStorageSet{}
}

// AddStorage registers a storage for one artifact type uuid. Registering a
// type twice is a programming error.
func (s *ArtifactStorageSet) AddStorage(artifactType uuid.UUID, storage ArtifactStorage) error {
	if _, loaded := s.storages.LoadOrStore(artifactType, &storageEntry{storage: storage}); loaded {
		return fmt.Errorf("artifact storage for type %s registered twice", artifactType)
	}
	return nil
}

func (s *ArtifactStorageSet) entry(artifactType uuid.UUID) (*storageEntry, error) {
	value, ok := s.storages.Load(artifactType)
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrStorageNotFound, artifactType)
	}
	return value.(*storageEntry), nil
}

// LoadArtifact stages payload bytes into the storage for artifactType.
func (s *ArtifactStorageSet) LoadArtifact(artifactType uuid.UUID, handle LoadHandle, artifactId build.ArtifactId, data []byte) error {
	entry, err := s.entry(artifactType)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.storage.LoadArtifact(handle, artifactId, data)
}

// CommitArtifact makes a previously loaded artifact visible.
func (s *ArtifactStorageSet) CommitArtifact(artifactType uuid.UUID, handle LoadHandle) error {
	entry, err := s.entry(artifactType)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.storage.CommitArtifact(handle)
}

// FreeArtifact drops an artifact from its storage.
func (s *ArtifactStorageSet) FreeArtifact(artifactType uuid.UUID, handle LoadHandle) error {
	entry, err := s.entry(artifactType)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.storage.FreeArtifact(handle)
}
