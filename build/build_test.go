// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package build_test

import (
	"bytes"
	"fmt"
	"hash"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pb33f/assetforge/build"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/editor"
	"github.com/pb33f/assetforge/pipeline"
	"github.com/pb33f/assetforge/schema"
	"github.com/pb33f/assetforge/utils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	thingJobTypeId    = build.JobTypeId(uuid.MustParse("0d0e5f3a-74a1-4c2b-a7de-111111111111"))
	childJobTypeId    = build.JobTypeId(uuid.MustParse("0d0e5f3a-74a1-4c2b-a7de-222222222222"))
	thingArtifactType = uuid.MustParse("0d0e5f3a-74a1-4c2b-a7de-333333333333")
)

// fakeImportProvider stands in for ImportJobs in executor-level tests.
type fakeImportProvider struct {
	metadataHashes map[datamodel.AssetId]uint64
}

func (p *fakeImportProvider) CloneImportDataMetadataHashes() map[datamodel.AssetId]uint64 {
	out := make(map[datamodel.AssetId]uint64, len(p.metadataHashes))
	for k, v := range p.metadataHashes {
		out[k] = v
	}
	return out
}

func (p *fakeImportProvider) LoadImportData(set *schema.Set, id datamodel.AssetId) (*pipeline.ImportData, error) {
	return nil, fmt.Errorf("asset %s has no import data", id)
}

type thingArtifact struct {
	Value float32 `json:"value"`
}

func (thingArtifact) ArtifactTypeUUID() uuid.UUID {
	return thingArtifactType
}

type thingJobInput struct {
	AssetId string  `json:"asset_id"`
	X       float32 `json:"x"`
}

type thingJobOutput struct {
	Produced string `json:"produced"`
}

// thingProcessor reads the seed asset and emits its default artifact.
type thingProcessor struct {
	runs atomic.Int64
}

func (p *thingProcessor) JobTypeId() build.JobTypeId { return thingJobTypeId }
func (p *thingProcessor) Version() uint32            { return 1 }

func (p *thingProcessor) EnumerateDependencies(ctx *build.EnumerateDependenciesContext[thingJobInput]) (build.JobEnumeratedDependencies, error) {
	return build.JobEnumeratedDependencies{}, nil
}

func (p *thingProcessor) Run(ctx *build.RunContext[thingJobInput]) (thingJobOutput, error) {
	p.runs.Add(1)
	assetId := datamodel.AssetIdFromUUID(uuid.MustParse(ctx.Input.AssetId))
	reader, err := ctx.Asset(assetId, "Thing")
	if err != nil {
		return thingJobOutput{}, err
	}
	value, err := reader.ResolveProperty("x")
	if err != nil {
		return thingJobOutput{}, err
	}
	x, _ := value.AsF32()
	artifactId, err := ctx.ProduceDefaultArtifact(assetId, thingArtifact{Value: x})
	if err != nil {
		return thingJobOutput{}, err
	}
	return thingJobOutput{Produced: artifactId.String()}, nil
}

type thingBuilder struct {
	processor *thingProcessor
}

func (b *thingBuilder) AssetType() string { return "Thing" }

func (b *thingBuilder) StartJobs(ctx *build.BuilderContext) error {
	value, err := ctx.DataSet.ResolveProperty(ctx.SchemaSet, ctx.AssetId, "x")
	if err != nil {
		return err
	}
	x, _ := value.AsF32()
	_, err = build.EnqueueJob[thingJobInput, thingJobOutput](
		ctx.JobAPI,
		build.BuilderRequestor(ctx.AssetId),
		ctx.DataSet,
		ctx.SchemaSet,
		b.processor,
		thingJobInput{AssetId: ctx.AssetId.String(), X: x},
		ctx.Log,
	)
	return err
}

func linkThingSchemas(t *testing.T) *schema.Set {
	t.Helper()
	linker := schema.NewLinker(nil)
	require.NoError(t, linker.RegisterRecordType("Thing", func(b *schema.RecordBuilder) {
		b.AddF32("x")
	}))
	require.NoError(t, editor.RegisterPathNodeSchemas(linker))
	set, err := linker.Link()
	require.NoError(t, err)
	return set
}

func thingRecord(t *testing.T, set *schema.Set) *schema.Record {
	t.Helper()
	nt, ok := set.FindNamedType("Thing")
	require.True(t, ok)
	rec, _ := schema.AsRecord(nt)
	return rec
}

func pumpExecutor(t *testing.T, exec *build.JobExecutor, ds *datamodel.DataSet, log *build.BuildLog) {
	t.Helper()
	lookup := make(map[build.ArtifactId]datamodel.AssetId)
	deadline := time.Now().Add(10 * time.Second)
	for !exec.IsIdle() {
		exec.Update(ds, log)
		_, err := exec.TakeWrittenArtifacts(lookup)
		require.NoError(t, err)
		require.True(t, time.Now().Before(deadline), "executor did not quiesce")
		time.Sleep(time.Millisecond)
	}
}

func TestExecutor_JobMemoization(t *testing.T) {
	set := linkThingSchemas(t)
	ds := datamodel.NewDataSet()
	assetId := ds.NewAsset("thing", datamodel.RootLocation(), thingRecord(t, set))
	require.NoError(t, ds.SetPropertyOverride(set, assetId, "x", datamodel.F32Value(7)))

	processor := &thingProcessor{}
	registry := build.NewJobProcessorRegistry()
	require.NoError(t, build.RegisterJobProcessor[thingJobInput, thingJobOutput](registry, processor))

	exec := build.NewJobExecutor(afero.NewMemMapFs(), set, registry, &fakeImportProvider{}, "build_data")
	log := build.NewBuildLog(nil)
	input := thingJobInput{AssetId: assetId.String(), X: 7}

	id1, err := build.EnqueueJob[thingJobInput, thingJobOutput](exec.JobAPI(), build.BuilderRequestor(assetId), ds, set, processor, input, log)
	require.NoError(t, err)
	id2, err := build.EnqueueJob[thingJobInput, thingJobOutput](exec.JobAPI(), build.BuilderRequestor(assetId), ds, set, processor, input, log)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	pumpExecutor(t, exec, ds, log)
	assert.Equal(t, int64(1), processor.runs.Load())
	assert.Equal(t, 1, exec.CurrentJobCount())
}

func TestExecutor_JobIdDistinctPerInput(t *testing.T) {
	set := linkThingSchemas(t)
	ds := datamodel.NewDataSet()
	assetId := ds.NewAsset("thing", datamodel.RootLocation(), thingRecord(t, set))

	processor := &thingProcessor{}
	registry := build.NewJobProcessorRegistry()
	require.NoError(t, build.RegisterJobProcessor[thingJobInput, thingJobOutput](registry, processor))
	exec := build.NewJobExecutor(afero.NewMemMapFs(), set, registry, &fakeImportProvider{}, "build_data")
	log := build.NewBuildLog(nil)

	id1, err := build.EnqueueJob[thingJobInput, thingJobOutput](exec.JobAPI(), build.BuilderRequestor(assetId), ds, set, processor, thingJobInput{AssetId: assetId.String(), X: 1}, log)
	require.NoError(t, err)
	id2, err := build.EnqueueJob[thingJobInput, thingJobOutput](exec.JobAPI(), build.BuilderRequestor(assetId), ds, set, processor, thingJobInput{AssetId: assetId.String(), X: 2}, log)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
	pumpExecutor(t, exec, ds, log)
}

// upstream/downstream pair used to exercise dependency ordering.
type orderedChildInput struct {
	Upstream string `json:"upstream"`
}

type orderedChildProcessor struct {
	parentDone   *atomic.Bool
	ranAfterWait atomic.Bool
}

func (p *orderedChildProcessor) JobTypeId() build.JobTypeId { return childJobTypeId }
func (p *orderedChildProcessor) Version() uint32            { return 1 }

func (p *orderedChildProcessor) EnumerateDependencies(ctx *build.EnumerateDependenciesContext[orderedChildInput]) (build.JobEnumeratedDependencies, error) {
	return build.JobEnumeratedDependencies{
		UpstreamJobs: []build.JobId{build.JobId(uuid.MustParse(ctx.Input.Upstream))},
	}, nil
}

func (p *orderedChildProcessor) Run(ctx *build.RunContext[orderedChildInput]) (thingJobOutput, error) {
	p.ranAfterWait.Store(p.parentDone.Load())
	return thingJobOutput{}, nil
}

type slowParentProcessor struct {
	done *atomic.Bool
}

func (p *slowParentProcessor) JobTypeId() build.JobTypeId { return thingJobTypeId }
func (p *slowParentProcessor) Version() uint32            { return 1 }

func (p *slowParentProcessor) EnumerateDependencies(ctx *build.EnumerateDependenciesContext[thingJobInput]) (build.JobEnumeratedDependencies, error) {
	return build.JobEnumeratedDependencies{}, nil
}

func (p *slowParentProcessor) Run(ctx *build.RunContext[thingJobInput]) (thingJobOutput, error) {
	time.Sleep(50 * time.Millisecond)
	p.done.Store(true)
	return thingJobOutput{}, nil
}

func TestExecutor_DependencyOrdering(t *testing.T) {
	set := linkThingSchemas(t)
	ds := datamodel.NewDataSet()
	assetId := ds.NewAsset("thing", datamodel.RootLocation(), thingRecord(t, set))

	var parentDone atomic.Bool
	parent := &slowParentProcessor{done: &parentDone}
	child := &orderedChildProcessor{parentDone: &parentDone}

	registry := build.NewJobProcessorRegistry()
	require.NoError(t, build.RegisterJobProcessor[thingJobInput, thingJobOutput](registry, parent))
	require.NoError(t, build.RegisterJobProcessor[orderedChildInput, thingJobOutput](registry, child))

	exec := build.NewJobExecutor(afero.NewMemMapFs(), set, registry, &fakeImportProvider{}, "build_data")
	log := build.NewBuildLog(nil)

	parentId, err := build.EnqueueJob[thingJobInput, thingJobOutput](exec.JobAPI(), build.BuilderRequestor(assetId), ds, set, parent, thingJobInput{AssetId: assetId.String()}, log)
	require.NoError(t, err)
	_, err = build.EnqueueJob[orderedChildInput, thingJobOutput](exec.JobAPI(), build.BuilderRequestor(assetId), ds, set, child, orderedChildInput{Upstream: parentId.String()}, log)
	require.NoError(t, err)

	pumpExecutor(t, exec, ds, log)
	assert.True(t, child.ranAfterWait.Load(), "child must observe parent output before running")
}

func TestExecutor_MissingUpstreamIsFatalForJob(t *testing.T) {
	set := linkThingSchemas(t)
	ds := datamodel.NewDataSet()
	assetId := ds.NewAsset("thing", datamodel.RootLocation(), thingRecord(t, set))

	var parentDone atomic.Bool
	child := &orderedChildProcessor{parentDone: &parentDone}
	registry := build.NewJobProcessorRegistry()
	require.NoError(t, build.RegisterJobProcessor[orderedChildInput, thingJobOutput](registry, child))

	exec := build.NewJobExecutor(afero.NewMemMapFs(), set, registry, &fakeImportProvider{}, "build_data")
	log := build.NewBuildLog(nil)

	_, err := build.EnqueueJob[orderedChildInput, thingJobOutput](exec.JobAPI(), build.BuilderRequestor(assetId), ds, set, child, orderedChildInput{Upstream: uuid.NewString()}, log)
	require.NoError(t, err)

	pumpExecutor(t, exec, ds, log)
	assert.True(t, log.HasFatalErrors())
}

func TestExecutor_ArtifactContentAddressing(t *testing.T) {
	set := linkThingSchemas(t)
	fs := afero.NewMemMapFs()
	registry := build.NewJobProcessorRegistry()
	exec := build.NewJobExecutor(fs, set, registry, &fakeImportProvider{}, "build_data")

	assetId := datamodel.AssetIdFromUUID(uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000001"))
	artifact := build.BuiltArtifact{
		AssetId:    assetId,
		ArtifactId: build.DefaultArtifactId(assetId),
		Metadata:   build.BuiltArtifactMetadata{AssetType: thingArtifactType},
		Data:       []byte("payload-bytes"),
	}
	require.NoError(t, exec.JobAPI().ProduceArtifact(artifact))

	expectedHash := utils.WithHasher64(func(h hash.Hash64) {
		artifact.Metadata.HashInto(h)
		utils.HashByte(h, utils.HASH_PIPE)
		_, _ = h.Write(artifact.Data)
	})

	lookup := make(map[build.ArtifactId]datamodel.AssetId)
	written, err := exec.TakeWrittenArtifacts(lookup)
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, expectedHash, written[0].BuildHash)
	assert.Equal(t, assetId, lookup[written[0].ArtifactId])

	// the file lands at build_data/<bucket>/<artifact-uuid>/<hash>.bf
	path := utils.UUIDAndHashToPath("build_data", artifact.ArtifactId.UUID(), expectedHash, "bf")
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	// header then payload
	metadata, err := build.ReadHeader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, thingArtifactType, metadata.AssetType)
	assert.Equal(t, []byte("payload-bytes"), data[len(data)-len(artifact.Data):])
}
