// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package build

import (
	"fmt"

	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/schema"
)

// BuilderContext hands a builder everything needed to seed jobs for one
// asset.
type BuilderContext struct {
	AssetId   datamodel.AssetId
	DataSet   *datamodel.DataSet
	SchemaSet *schema.Set
	JobAPI    JobAPI
	Log       *BuildLog
}

// Warn records a warning attributed to the seed asset.
func (c *BuilderContext) Warn(message string) {
	c.Log.WarnAsset(c.AssetId, message)
}

// Error records a fatal error attributed to the seed asset.
func (c *BuilderContext) Error(message string) {
	c.Log.FatalAsset(c.AssetId, message)
}

// Builder turns one asset type into root jobs. Builders are registered per
// record schema; the orchestrator consults them for every seed asset.
type Builder interface {
	// AssetType names the record schema this builder handles.
	AssetType() string

	// StartJobs enqueues the root jobs that produce the asset's artifacts.
	StartJobs(ctx *BuilderContext) error
}

// BuilderRegistry maps record schema fingerprints to builders.
type BuilderRegistry struct {
	builders map[schema.Fingerprint]Builder
}

// NewBuilderRegistry creates an empty registry.
func NewBuilderRegistry() *BuilderRegistry {
	return &BuilderRegistry{builders: make(map[schema.Fingerprint]Builder)}
}

// RegisterBuilder resolves the builder's schema name against the set and
// indexes it by fingerprint.
func (r *BuilderRegistry) RegisterBuilder(set *schema.Set, builder Builder) error {
	nt, ok := set.FindNamedType(builder.AssetType())
	if !ok {
		return fmt.Errorf("builder for %q: %w", builder.AssetType(), datamodel.ErrSchemaNotFound)
	}
	rec, isRecord := schema.AsRecord(nt)
	if !isRecord {
		return fmt.Errorf("builder for %q: %w", builder.AssetType(), datamodel.ErrInvalidSchema)
	}
	if _, exists := r.builders[rec.Fingerprint()]; exists {
		return fmt.Errorf("builder for %q: %w", builder.AssetType(), datamodel.ErrDuplicateEntry)
	}
	r.builders[rec.Fingerprint()] = builder
	return nil
}

// BuilderForAsset resolves the builder registered for a record fingerprint.
func (r *BuilderRegistry) BuilderForAsset(fingerprint schema.Fingerprint) (Builder, bool) {
	builder, ok := r.builders[fingerprint]
	return builder, ok
}
