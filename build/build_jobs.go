// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package build

import (
	"cmp"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/schema"
	"github.com/pb33f/assetforge/utils"
	"github.com/spf13/afero"
)

// EditorModel is the slice of the editing layer a build reads: the data,
// the schemas, display names for manifests, and which records are location
// tree nodes.
type EditorModel interface {
	DataSet() *datamodel.DataSet
	SchemaSet() *schema.Set
	AssetDisplayNameLong(id datamodel.AssetId) string
	IsPathNodeOrRoot(rec *schema.Record) bool
}

// BuildStatusKind is the coarse state of the build loop.
type BuildStatusKind int

const (
	BuildStatusIdle BuildStatusKind = iota
	BuildStatusBuilding
	BuildStatusCompleted
)

// BuildStatus is returned from every Update pump.
type BuildStatus struct {
	Kind              BuildStatusKind
	TotalJobCount     int
	CompletedJobCount int
	// Log is set when Kind is BuildStatusCompleted.
	Log *BuildLog
}

// buildRequest asks for one asset's artifacts to be produced this cycle.
type buildRequest struct {
	assetId datamodel.AssetId
}

// buildJob is the remembered state of one asset's build across cycles.
type buildJob struct {
	assetExists     bool
	buildDataExists map[artifactHashPair]struct{}
}

type artifactHashPair struct {
	artifactId ArtifactId
	buildHash  uint64
}

type builtArtifactInfo struct {
	assetId              datamodel.AssetId
	artifactKeyDebugName string
	metadata             BuiltArtifactMetadata
}

// buildTask is the state of one in-flight build cycle.
type buildTask struct {
	requestedBuildOps   []buildRequest
	startedBuildOps     map[datamodel.AssetId]struct{}
	buildHashes         map[ArtifactId]uint64
	artifactAssetLookup map[ArtifactId]datamodel.AssetId
	builtArtifactInfo   map[ArtifactId]*builtArtifactInfo
	dataSet             *datamodel.DataSet
	schemaSet           *schema.Set
	combinedBuildHash   uint64
	log                 *BuildLog
}

// BuildJobs drives build cycles: it decides when a build is needed, seeds
// jobs through builders, pumps the executor, and writes manifests and the
// TOC when the cycle quiesces.
type BuildJobs struct {
	fs                afero.Fs
	buildDataRootPath string
	executor          *JobExecutor
	logger            *slog.Logger

	buildJobs        map[datamodel.AssetId]*buildJob
	currentBuildTask *buildTask

	previousCombinedBuildHash    uint64
	hasPreviousCombinedBuildHash bool

	requestBuild    bool
	needsBuild      bool
	forceBuildQueue map[datamodel.AssetId]struct{}
}

// NewBuildJobs creates the orchestrator and its executor.
func NewBuildJobs(
	fs afero.Fs,
	schemaSet *schema.Set,
	registry *JobProcessorRegistry,
	importProvider ImportDataProvider,
	buildDataRootPath string,
	logger *slog.Logger,
) *BuildJobs {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BuildJobs{
		fs:                fs,
		buildDataRootPath: buildDataRootPath,
		executor:          NewJobExecutor(fs, schemaSet, registry, importProvider, buildDataRootPath),
		logger:            logger,
		buildJobs:         make(map[datamodel.AssetId]*buildJob),
		forceBuildQueue:   make(map[datamodel.AssetId]struct{}),
	}
}

// RequestBuild asks for a full build on the next Update.
func (b *BuildJobs) RequestBuild() {
	b.requestBuild = true
}

// QueueBuildOperation asks for one asset to be rebuilt on the next Update.
func (b *BuildJobs) QueueBuildOperation(id datamodel.AssetId) {
	b.forceBuildQueue[id] = struct{}{}
}

// IsBuilding reports whether a cycle is in flight.
func (b *BuildJobs) IsBuilding() bool {
	return b.currentBuildTask != nil
}

// NeedsBuild reports whether authored data changed since the last build.
func (b *BuildJobs) NeedsBuild() bool {
	return b.needsBuild
}

// CurrentBuildLog exposes the in-flight cycle's log.
func (b *BuildJobs) CurrentBuildLog() *BuildLog {
	if b.currentBuildTask == nil {
		return nil
	}
	return b.currentBuildTask.log
}

// Update advances the build loop one pump. Call repeatedly; the returned
// status reports idle, progress, or completion with the cycle's log.
func (b *BuildJobs) Update(builders *BuilderRegistry, model EditorModel, importProvider ImportDataProvider) (*BuildStatus, error) {
	if task := b.currentBuildTask; task != nil {
		// seed jobs for every requested asset that has a builder
		for len(task.requestedBuildOps) > 0 {
			request := task.requestedBuildOps[0]
			task.requestedBuildOps = task.requestedBuildOps[1:]
			if _, started := task.startedBuildOps[request.assetId]; started {
				continue
			}
			task.startedBuildOps[request.assetId] = struct{}{}

			rec, err := task.dataSet.AssetSchema(request.assetId)
			if err != nil {
				task.log.FatalAsset(request.assetId, "asset disappeared between seeding and build")
				continue
			}
			builder, ok := builders.BuilderForAsset(rec.Fingerprint())
			if !ok {
				continue
			}
			if err := builder.StartJobs(&BuilderContext{
				AssetId:   request.assetId,
				DataSet:   task.dataSet,
				SchemaSet: task.schemaSet,
				JobAPI:    b.executor.JobAPI(),
				Log:       task.log,
			}); err != nil {
				task.log.FatalAsset(request.assetId, fmt.Sprintf("start jobs returned error: %s", err))
			}
		}

		b.executor.Update(task.dataSet, task.log)

		// absorb written artifacts; their dependency lists discover new
		// transitive seeds
		written, err := b.executor.TakeWrittenArtifacts(task.artifactAssetLookup)
		if err != nil {
			return nil, err
		}
		for _, artifact := range written {
			for _, dependency := range artifact.Metadata.Dependencies {
				dependencyAsset, ok := task.artifactAssetLookup[dependency]
				if !ok {
					task.log.FatalAsset(artifact.AssetId, fmt.Sprintf("artifact %s depends on artifact %s: %s", artifact.ArtifactId, dependency, ErrDependencyNotBuilt))
					continue
				}
				task.requestedBuildOps = append(task.requestedBuildOps, buildRequest{assetId: dependencyAsset})
			}

			task.buildHashes[artifact.ArtifactId] = artifact.BuildHash

			job, ok := b.buildJobs[artifact.AssetId]
			if !ok {
				job = &buildJob{buildDataExists: make(map[artifactHashPair]struct{})}
				b.buildJobs[artifact.AssetId] = job
			}
			job.assetExists = true
			job.buildDataExists[artifactHashPair{artifact.ArtifactId, artifact.BuildHash}] = struct{}{}

			task.builtArtifactInfo[artifact.ArtifactId] = &builtArtifactInfo{
				assetId:              artifact.AssetId,
				artifactKeyDebugName: artifact.ArtifactKeyDebugName,
				metadata:             artifact.Metadata,
			}
		}

		if len(task.requestedBuildOps) > 0 || !b.executor.IsIdle() {
			return &BuildStatus{
				Kind:              BuildStatusBuilding,
				TotalJobCount:     b.executor.CurrentJobCount(),
				CompletedJobCount: b.executor.CompletedJobCount(),
			}, nil
		}
	}

	// finish a quiesced cycle: manifests and TOC
	if task := b.currentBuildTask; task != nil {
		b.currentBuildTask = nil
		if err := b.writeManifests(task, model); err != nil {
			return nil, err
		}
		if err := b.writeTOC(task); err != nil {
			return nil, err
		}
		b.previousCombinedBuildHash = task.combinedBuildHash
		b.hasPreviousCombinedBuildHash = true
		b.logger.Info("build completed", "combined_build_hash", fmt.Sprintf("%016x", task.combinedBuildHash), "artifacts", len(task.buildHashes))
		return &BuildStatus{Kind: BuildStatusCompleted, Log: task.log}, nil
	}

	// consider starting a new cycle: hash everything that would feed it
	combinedBuildHash, assetIds := b.computeCombinedBuildHash(model, importProvider)
	b.needsBuild = !b.hasPreviousCombinedBuildHash || b.previousCombinedBuildHash != combinedBuildHash

	var requestedBuildOps []buildRequest
	switch {
	case b.requestBuild:
		// an explicit request rebuilds everything, changed or not
		b.requestBuild = false
		for _, assetId := range assetIds {
			requestedBuildOps = append(requestedBuildOps, buildRequest{assetId: assetId})
		}
	case b.needsBuild && len(b.forceBuildQueue) == 0:
		for _, assetId := range assetIds {
			requestedBuildOps = append(requestedBuildOps, buildRequest{assetId: assetId})
		}
	case len(b.forceBuildQueue) > 0:
		for assetId := range b.forceBuildQueue {
			requestedBuildOps = append(requestedBuildOps, buildRequest{assetId: assetId})
		}
		b.forceBuildQueue = make(map[datamodel.AssetId]struct{})
	default:
		return &BuildStatus{Kind: BuildStatusIdle}, nil
	}

	b.executor.Reset()
	task := &buildTask{
		requestedBuildOps:   requestedBuildOps,
		startedBuildOps:     make(map[datamodel.AssetId]struct{}),
		buildHashes:         make(map[ArtifactId]uint64),
		artifactAssetLookup: make(map[ArtifactId]datamodel.AssetId),
		builtArtifactInfo:   make(map[ArtifactId]*builtArtifactInfo),
		dataSet:             model.DataSet().Clone(),
		schemaSet:           model.SchemaSet(),
		combinedBuildHash:   combinedBuildHash,
		log:                 NewBuildLog(b.logger),
	}
	b.currentBuildTask = task
	return &BuildStatus{
		Kind:          BuildStatusBuilding,
		TotalJobCount: len(task.requestedBuildOps),
	}, nil
}

// computeCombinedBuildHash folds every non-path-node asset's content hash and
// every import data metadata hash into the 64-bit summary that decides
// whether anything changed. Xor keeps the fold order-independent.
func (b *BuildJobs) computeCombinedBuildHash(model EditorModel, importProvider ImportDataProvider) (uint64, []datamodel.AssetId) {
	var combined uint64
	var assetIds []datamodel.AssetId

	for assetId, info := range model.DataSet().Assets() {
		if model.IsPathNodeOrRoot(info.Schema()) {
			continue
		}
		objectHash, err := model.DataSet().HashObject(assetId, datamodel.HashObjectModePropertiesOnly)
		if err != nil {
			continue
		}
		assetIds = append(assetIds, assetId)
		combined ^= utils.WithHasher64(func(h hash.Hash64) {
			assetId.HashInto(h)
			utils.HashUint64(h, objectHash)
		})
	}

	for assetId, metadataHash := range importProvider.CloneImportDataMetadataHashes() {
		combined ^= utils.WithHasher64(func(h hash.Hash64) {
			assetId.HashInto(h)
			utils.HashUint64(h, metadataHash)
		})
	}

	slices.SortFunc(assetIds, func(a, c datamodel.AssetId) int {
		return cmp.Compare(a.String(), c.String())
	})
	return combined, assetIds
}

type debugManifestFile struct {
	Artifacts []debugArtifactManifestData `json:"artifacts"`
}

type debugArtifactManifestData struct {
	ArtifactId   string `json:"artifact_id"`
	BuildHash    string `json:"build_hash"`
	SymbolHash   string `json:"symbol_hash"`
	SymbolName   string `json:"symbol_name"`
	ArtifactType string `json:"artifact_type"`
	DebugName    string `json:"debug_name"`
}

// writeManifests emits the release manifest (ASCII hex CSV) and the debug
// manifest (JSON). Non-zero symbol hashes must be unique per build; a
// collision is a hard error naming the colliding path.
func (b *BuildJobs) writeManifests(task *buildTask, model EditorModel) error {
	manifestDir := filepath.Join(b.buildDataRootPath, "manifests")
	if err := b.fs.MkdirAll(manifestDir, 0o755); err != nil {
		return fmt.Errorf("creating manifest dir: %w", err)
	}

	artifactIds := make([]ArtifactId, 0, len(task.buildHashes))
	for artifactId := range task.buildHashes {
		artifactIds = append(artifactIds, artifactId)
	}
	slices.SortFunc(artifactIds, func(a, c ArtifactId) int {
		return cmp.Compare(a.Hex(), c.Hex())
	})

	var release []byte
	var debug debugManifestFile
	seenSymbolHashes := make(map[utils.Hash128]string)

	for _, artifactId := range artifactIds {
		buildHash := task.buildHashes[artifactId]
		info := task.builtArtifactInfo[artifactId]

		var symbolName string
		if artifactId.UUID() == info.assetId.UUID() {
			symbolName = model.AssetDisplayNameLong(info.assetId)
		}
		symbolHash := utils.HashSymbolName(symbolName)
		if !symbolHash.IsZero() {
			if previous, collided := seenSymbolHashes[symbolHash]; collided {
				return fmt.Errorf("two artifacts produced the same symbol name hash, check for assets with the same name: %q and %q", previous, symbolName)
			}
			seenSymbolHashes[symbolHash] = symbolName
		}

		debugName := model.AssetDisplayNameLong(info.assetId)
		if info.artifactKeyDebugName != "" {
			debugName = fmt.Sprintf("%s#%s", debugName, info.artifactKeyDebugName)
		}

		release = append(release, fmt.Sprintf(
			"%s,%016x,%s,%s\n",
			artifactId.Hex(),
			buildHash,
			uuidHex(info.metadata.AssetType),
			hash128Hex(symbolHash),
		)...)

		debug.Artifacts = append(debug.Artifacts, debugArtifactManifestData{
			ArtifactId:   artifactId.Hex(),
			BuildHash:    fmt.Sprintf("%016x", buildHash),
			SymbolHash:   hash128Hex(symbolHash),
			SymbolName:   symbolName,
			ArtifactType: uuidHex(info.metadata.AssetType),
			DebugName:    debugName,
		})
	}

	releasePath := filepath.Join(manifestDir, fmt.Sprintf("%016x.manifest_release", task.combinedBuildHash))
	if err := afero.WriteFile(b.fs, releasePath, release, 0o644); err != nil {
		return fmt.Errorf("writing release manifest: %w", err)
	}

	debugJson, err := json.MarshalIndent(debug, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing debug manifest: %w", err)
	}
	debugPath := filepath.Join(manifestDir, fmt.Sprintf("%016x.manifest_debug", task.combinedBuildHash))
	if err := afero.WriteFile(b.fs, debugPath, debugJson, 0o644); err != nil {
		return fmt.Errorf("writing debug manifest: %w", err)
	}
	return nil
}

func uuidHex(id [16]byte) string {
	return fmt.Sprintf("%032x", id[:])
}

func hash128Hex(h utils.Hash128) string {
	return fmt.Sprintf("%032x", h[:])
}

// writeTOC stamps the cycle: a file named by wall-clock millis whose body is
// the combined build hash. Loaders pick the newest TOC.
func (b *BuildJobs) writeTOC(task *buildTask) error {
	tocDir := filepath.Join(b.buildDataRootPath, "toc")
	if err := b.fs.MkdirAll(tocDir, 0o755); err != nil {
		return fmt.Errorf("creating toc dir: %w", err)
	}
	tocPath := filepath.Join(tocDir, fmt.Sprintf("%016x.toc", time.Now().UnixMilli()))
	body := fmt.Sprintf("%016x", task.combinedBuildHash)
	if err := afero.WriteFile(b.fs, tocPath, []byte(body), 0o644); err != nil {
		return fmt.Errorf("writing toc: %w", err)
	}
	return nil
}
