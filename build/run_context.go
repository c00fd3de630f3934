// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package build

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/pipeline"
	"github.com/pb33f/assetforge/schema"
)

// ImportDataProvider supplies the import data a build reads and the metadata
// hashes that feed the combined build hash. pipeline.ImportJobs implements
// it.
type ImportDataProvider interface {
	CloneImportDataMetadataHashes() map[datamodel.AssetId]uint64
	LoadImportData(set *schema.Set, id datamodel.AssetId) (*pipeline.ImportData, error)
}

// JobAPI is the side-channel jobs use to talk to the executor: enqueue more
// jobs, register artifact handles, emit artifacts, fetch import data.
type JobAPI interface {
	EnqueueJob(requestor JobRequestor, dataSet *datamodel.DataSet, schemaSet *schema.Set, job NewJob, debugName string, log *BuildLog) (JobId, error)
	ArtifactHandleCreated(assetId datamodel.AssetId, artifactId ArtifactId)
	ProduceArtifact(artifact BuiltArtifact) error
	FetchImportData(id datamodel.AssetId) (*pipeline.ImportData, error)
}

// RunContext is handed to a processor's Run. It mediates every read so that
// everything that influenced the job's result is visible to the executor.
type RunContext[InputT any] struct {
	JobId     JobId
	Input     InputT
	DataSet   *datamodel.DataSet
	SchemaSet *schema.Set

	api               JobAPI
	log               *BuildLog
	fetchedImportData map[datamodel.AssetId]*datamodel.SingleObject
}

// Warn records a warning on the build log.
func (c *RunContext[InputT]) Warn(message string) {
	c.log.WarnJob(c.JobId, message)
}

// Error records an error on the build log.
func (c *RunContext[InputT]) Error(message string) {
	c.log.ErrorJob(c.JobId, message)
}

// Asset yields a reader over an asset, validated against the record schema
// name the job expects.
func (c *RunContext[InputT]) Asset(id datamodel.AssetId, schemaName string) (*AssetReader, error) {
	rec, err := c.DataSet.AssetSchema(id)
	if err != nil {
		return nil, err
	}
	if rec.Name() != schemaName {
		return nil, datamodel.ErrInvalidSchema
	}
	return &AssetReader{dataSet: c.DataSet, schemaSet: c.SchemaSet, id: id}, nil
}

// ImportedData fetches (and caches per-job) an asset's import data,
// validated against the record schema name the job expects.
func (c *RunContext[InputT]) ImportedData(id datamodel.AssetId, schemaName string) (*datamodel.SingleObject, error) {
	obj, ok := c.fetchedImportData[id]
	if !ok {
		imported, err := c.api.FetchImportData(id)
		if err != nil {
			return nil, err
		}
		obj = imported.ImportData
		c.fetchedImportData[id] = obj
	}
	if obj.Schema().Name() != schemaName {
		return nil, datamodel.ErrInvalidSchema
	}
	return obj, nil
}

// ProduceDefaultArtifact emits an asset's unkeyed artifact.
func (c *RunContext[InputT]) ProduceDefaultArtifact(assetId datamodel.AssetId, value ArtifactValue) (ArtifactId, error) {
	return c.produce(assetId, nil, func(HandleFactory) (ArtifactValue, error) { return value, nil })
}

// ProduceArtifact emits a keyed artifact for an asset.
func (c *RunContext[InputT]) ProduceArtifact(assetId datamodel.AssetId, key string, value ArtifactValue) (AssetArtifactIdPair, error) {
	artifactId, err := c.produce(assetId, &key, func(HandleFactory) (ArtifactValue, error) { return value, nil })
	return AssetArtifactIdPair{AssetId: assetId, ArtifactId: artifactId}, err
}

// ProduceDefaultArtifactWithHandles emits an unkeyed artifact whose payload
// references other artifacts; handles minted through the factory become the
// artifact's dependency list.
func (c *RunContext[InputT]) ProduceDefaultArtifactWithHandles(assetId datamodel.AssetId, fn func(HandleFactory) (ArtifactValue, error)) (ArtifactId, error) {
	return c.produce(assetId, nil, fn)
}

// ProduceArtifactWithHandles is the keyed form of
// ProduceDefaultArtifactWithHandles.
func (c *RunContext[InputT]) ProduceArtifactWithHandles(assetId datamodel.AssetId, key string, fn func(HandleFactory) (ArtifactValue, error)) (ArtifactId, error) {
	return c.produce(assetId, &key, fn)
}

func (c *RunContext[InputT]) produce(assetId datamodel.AssetId, key *string, fn func(HandleFactory) (ArtifactValue, error)) (ArtifactId, error) {
	artifactId := createArtifactId(assetId, key)

	var referenced []ArtifactId
	value, err := fn(HandleFactory{api: c.api, recorded: &referenced})
	if err != nil {
		return ArtifactId{}, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ArtifactId{}, fmt.Errorf("serializing artifact %s: %w", artifactId, err)
	}

	var keyDebugName string
	if key != nil {
		keyDebugName = *key
	}
	err = c.api.ProduceArtifact(BuiltArtifact{
		AssetId:    assetId,
		ArtifactId: artifactId,
		Metadata: BuiltArtifactMetadata{
			Dependencies: referenced,
			AssetType:    value.ArtifactTypeUUID(),
		},
		Data:                 data,
		ArtifactKeyDebugName: keyDebugName,
	})
	if err != nil {
		return ArtifactId{}, err
	}
	return artifactId, nil
}

// EnqueueChildJob enqueues a downstream job from inside a running job.
func EnqueueChildJob[InputT, OutputT, ParentInputT any](
	ctx *RunContext[ParentInputT],
	processor JobProcessor[InputT, OutputT],
	input InputT,
) (JobId, error) {
	return EnqueueJob(ctx.api, JobRequestorFromJob(ctx.JobId), ctx.DataSet, ctx.SchemaSet, processor, input, ctx.log)
}

// AssetReader is a job's read-only view over one asset.
type AssetReader struct {
	dataSet   *datamodel.DataSet
	schemaSet *schema.Set
	id        datamodel.AssetId
}

// Id returns the asset being read.
func (r *AssetReader) Id() datamodel.AssetId {
	return r.id
}

// ResolveProperty resolves a property through the prototype chain.
func (r *AssetReader) ResolveProperty(path string) (datamodel.Value, error) {
	return r.dataSet.ResolveProperty(r.schemaSet, r.id, path)
}

// ResolveNullOverride resolves a nullable's state through the chain.
func (r *AssetReader) ResolveNullOverride(path string) (datamodel.NullOverride, error) {
	return r.dataSet.ResolveNullOverride(r.schemaSet, r.id, path)
}

// ResolveDynamicArrayEntries resolves merged container entries.
func (r *AssetReader) ResolveDynamicArrayEntries(path string) ([]uuid.UUID, error) {
	return r.dataSet.ResolveDynamicArrayEntries(r.schemaSet, r.id, path)
}

// ResolveMapEntries resolves merged map entries.
func (r *AssetReader) ResolveMapEntries(path string) ([]uuid.UUID, error) {
	return r.dataSet.ResolveMapEntries(r.schemaSet, r.id, path)
}
