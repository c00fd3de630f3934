// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package pipeline

import (
	"bytes"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/schema"
	"github.com/pb33f/assetforge/storage"
	"github.com/pb33f/assetforge/utils"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// ImportDataFileExtension is the extension of persisted import data files.
const ImportDataFileExtension = "if"

// EditModel is the slice of the editing layer the import side needs: read
// the data set and regenerate assets from imported defaults.
type EditModel interface {
	DataSet() *datamodel.DataSet
	SchemaSet() *schema.Set
	RegenerateFromSingleObject(id datamodel.AssetId, obj *datamodel.SingleObject) error
}

// ImportData is one asset's loaded intermediate data.
type ImportData struct {
	ImportData   *datamodel.SingleObject
	ContentsHash uint64
	MetadataHash uint64
}

// ImportOp is one queued import request: run this importer over this file
// and land the named importables in these assets.
type ImportOp struct {
	// AssetIds maps importable names (empty for the default importable) to
	// target assets.
	AssetIds   map[string]datamodel.AssetId
	ImporterId datamodel.ImporterId
	Path       string
	// AssetsToRegenerate lists assets whose authored state is replaced by
	// the imported default.
	AssetsToRegenerate map[datamodel.AssetId]struct{}
}

// importJob is the known state of one asset's import data.
type importJob struct {
	importDataExists bool
	assetExists      bool
	importedDataHash uint64
	hasHash          bool
}

// ImportJobs tracks every asset with import data, reconstructed at startup by
// scanning the import data directory and the asset set. Queued operations run
// on a worker pool; results commit on the caller's goroutine.
type ImportJobs struct {
	fs                 afero.Fs
	importDataRootPath string
	logger             *slog.Logger

	jobs             map[datamodel.AssetId]*importJob
	importOperations []ImportOp
}

// NewImportJobs scans existing import data and assets to rebuild job state.
func NewImportJobs(registry *ImporterRegistry, model EditModel, fs afero.Fs, importDataRootPath string, logger *slog.Logger) *ImportJobs {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	j := &ImportJobs{
		fs:                 fs,
		importDataRootPath: importDataRootPath,
		logger:             logger,
		jobs:               make(map[datamodel.AssetId]*importJob),
	}
	j.findAllJobs(registry, model)
	return j
}

// ImportDataRootPath is where .if files live.
func (j *ImportJobs) ImportDataRootPath() string {
	return j.importDataRootPath
}

func (j *ImportJobs) job(id datamodel.AssetId) *importJob {
	job, ok := j.jobs[id]
	if !ok {
		job = &importJob{}
		j.jobs[id] = job
	}
	return job
}

func (j *ImportJobs) findAllJobs(registry *ImporterRegistry, model EditModel) {
	// import data on disk: one .if file per asset, named by asset id
	matches, err := afero.Glob(j.fs, filepath.Join(j.importDataRootPath, "*", "*."+ImportDataFileExtension))
	if err == nil {
		for _, match := range matches {
			id, ok := utils.PathToUUID(match)
			if !ok {
				continue
			}
			info, err := j.fs.Stat(match)
			if err != nil {
				continue
			}
			job := j.job(datamodel.AssetIdFromUUID(id))
			job.importDataExists = true
			job.importedDataHash = hashFileMetadata(info)
			job.hasHash = true
		}
	}

	// assets referencing a live importer
	for id, info := range model.DataSet().Assets() {
		importInfo := info.ImportInfo()
		if importInfo == nil {
			continue
		}
		if _, ok := registry.Importer(importInfo.ImporterId); ok {
			j.job(id).assetExists = true
		}
	}
	j.logger.Info("scanned import jobs", "count", len(j.jobs))
}

// QueueImportOperation records an import request for the next Update.
func (j *ImportJobs) QueueImportOperation(op ImportOp) {
	j.importOperations = append(j.importOperations, op)
}

// CloneImportDataMetadataHashes snapshots the per-asset metadata hashes; the
// build combines them into its combined build hash.
func (j *ImportJobs) CloneImportDataMetadataHashes() map[datamodel.AssetId]uint64 {
	out := make(map[datamodel.AssetId]uint64)
	for id, job := range j.jobs {
		if job.hasHash {
			out[id] = job.importedDataHash
		}
	}
	return out
}

// InvalidateImportDataHash drops the cached metadata hash for an asset; the
// next scan or import rebuilds it. Directory watcher events funnel here.
func (j *ImportJobs) InvalidateImportDataHash(id datamodel.AssetId) {
	if job, ok := j.jobs[id]; ok {
		job.hasHash = false
		job.importedDataHash = 0
	}
}

// LoadImportData reads one asset's persisted intermediate data.
func (j *ImportJobs) LoadImportData(set *schema.Set, id datamodel.AssetId) (*ImportData, error) {
	path := utils.UUIDToPath(j.importDataRootPath, id.UUID(), ImportDataFileExtension)
	data, err := afero.ReadFile(j.fs, path)
	if err != nil {
		return nil, fmt.Errorf("import data for asset %s: %w", id, err)
	}
	obj, contentsHash, err := storage.LoadSingleObject(set, data)
	if err != nil {
		return nil, fmt.Errorf("import data for asset %s: %w", id, err)
	}
	info, err := j.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("import data for asset %s: %w", id, err)
	}
	return &ImportData{
		ImportData:   obj,
		ContentsHash: contentsHash,
		MetadataHash: hashFileMetadata(info),
	}, nil
}

type importOutcome struct {
	op     ImportOp
	result map[string]ImportedImportable
	err    error
}

// Update runs queued import operations on a worker pool sized to the CPU
// count, then commits every result: regenerate requested assets, persist
// import data, refresh metadata hashes.
func (j *ImportJobs) Update(registry *ImporterRegistry, model EditModel) error {
	if len(j.importOperations) == 0 {
		return nil
	}
	operations := j.importOperations
	j.importOperations = nil

	outcomes := make([]importOutcome, len(operations))
	var group errgroup.Group
	group.SetLimit(runtime.NumCPU())
	var mu sync.Mutex

	for i, op := range operations {
		group.Go(func() error {
			importer, ok := registry.Importer(op.ImporterId)
			if !ok {
				mu.Lock()
				outcomes[i] = importOutcome{op: op, err: fmt.Errorf("%w: importer %s", ErrImporterNotFound, op.ImporterId)}
				mu.Unlock()
				return nil
			}

			importableAssets := make(map[string]ImportableAsset, len(op.AssetIds))
			for name, assetId := range op.AssetIds {
				referencedPaths, _ := model.DataSet().ResolveAllFileReferences(assetId)
				importableAssets[name] = ImportableAsset{
					Id:              assetId,
					ReferencedPaths: referencedPaths,
				}
			}

			result, err := importer.ImportFile(ImportContext{
				Fs:               j.fs,
				Path:             op.Path,
				SchemaSet:        model.SchemaSet(),
				ImportableAssets: importableAssets,
				Logger:           j.logger,
			})
			if err != nil {
				err = fmt.Errorf("%w: %s: %v", ErrImportFailed, op.Path, err)
			}
			mu.Lock()
			outcomes[i] = importOutcome{op: op, result: result, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	var result *multierror.Error
	for _, outcome := range outcomes {
		if outcome.err != nil {
			result = multierror.Append(result, outcome.err)
			continue
		}
		if err := j.commitImport(model, outcome); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (j *ImportJobs) commitImport(model EditModel, outcome importOutcome) error {
	var result *multierror.Error
	for name, imported := range outcome.result {
		assetId, ok := outcome.op.AssetIds[name]
		if !ok {
			continue
		}

		if _, regenerate := outcome.op.AssetsToRegenerate[assetId]; regenerate && imported.DefaultAsset != nil {
			if err := model.RegenerateFromSingleObject(assetId, imported.DefaultAsset); err != nil {
				result = multierror.Append(result, fmt.Errorf("regenerating asset %s: %w", assetId, err))
			}
		}

		if imported.ImportData == nil {
			continue
		}
		if err := j.writeImportData(assetId, imported.ImportData); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// writeImportData persists one .if file, skipping the write when the bytes on
// disk are identical so modification times stay stable for unchanged data.
func (j *ImportJobs) writeImportData(assetId datamodel.AssetId, obj *datamodel.SingleObject) error {
	data, err := storage.SaveSingleObject(obj)
	if err != nil {
		return fmt.Errorf("serializing import data for asset %s: %w", assetId, err)
	}

	path := utils.UUIDToPath(j.importDataRootPath, assetId.UUID(), ImportDataFileExtension)
	if err := j.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating import data dir: %w", err)
	}

	needsWrite := true
	if onDisk, err := afero.ReadFile(j.fs, path); err == nil && bytes.Equal(onDisk, data) {
		needsWrite = false
	}
	if needsWrite {
		if err := afero.WriteFile(j.fs, path, data, 0o644); err != nil {
			return fmt.Errorf("writing import data for asset %s: %w", assetId, err)
		}
	}

	info, err := j.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("stat import data for asset %s: %w", assetId, err)
	}
	job := j.job(assetId)
	job.importDataExists = true
	job.importedDataHash = hashFileMetadata(info)
	job.hasHash = true
	return nil
}

// hashFileMetadata folds a file's modification time and length into the hash
// that stands in for its contents in build input hashing.
func hashFileMetadata(info os.FileInfo) uint64 {
	return utils.WithHasher64(func(h hash.Hash64) {
		utils.HashInt64(h, info.ModTime().UnixNano())
		utils.HashInt64(h, info.Size())
	})
}
