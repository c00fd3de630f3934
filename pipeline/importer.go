// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

// Package pipeline ingests source files: importers scan files for importable
// content, produce canonical intermediate data, and ImportJobs persists that
// data in one file per asset, named by asset id, for the build side to
// consume.
package pipeline

import (
	"errors"
	"log/slog"

	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/schema"
	"github.com/spf13/afero"
)

var (
	// ErrImporterNotFound is returned when no importer claims a file's
	// extension or an asset references an unregistered importer id.
	ErrImporterNotFound = errors.New("no importer registered")
	// ErrImportFailed wraps scan or import errors reported by an importer.
	ErrImportFailed = errors.New("import failed")
)

// ReferencedSourceFile is a path to another source file encountered while
// scanning, resolved to an asset at build time.
type ReferencedSourceFile struct {
	ImporterId datamodel.ImporterId
	Path       string
}

// ScannedImportable describes one importable found by the fast metadata pass:
// a GLTF file, for example, yields meshes, materials and textures.
type ScannedImportable struct {
	// Name distinguishes importables within one file; empty for the default
	// importable.
	Name           string
	AssetType      *schema.Record
	FileReferences []ReferencedSourceFile
}

// ImportableAsset is the asset an importable lands in, plus the resolved
// redirections of every source file it references.
type ImportableAsset struct {
	Id              datamodel.AssetId
	ReferencedPaths map[string]datamodel.AssetId
}

// ImportedImportable is the full-read result for one importable.
type ImportedImportable struct {
	// DefaultAsset is the authored state an asset regenerates from.
	DefaultAsset *datamodel.SingleObject
	// ImportData is the canonical intermediate data persisted to .if storage.
	ImportData *datamodel.SingleObject
}

// ScanContext hands an importer everything the metadata pass may touch.
type ScanContext struct {
	Fs        afero.Fs
	Path      string
	SchemaSet *schema.Set
	Logger    *slog.Logger
}

// ImportContext hands an importer everything the full read may touch.
type ImportContext struct {
	Fs        afero.Fs
	Path      string
	SchemaSet *schema.Set
	// ImportableAssets maps importable names to their target assets. Only
	// names present here need to be produced.
	ImportableAssets map[string]ImportableAsset
	Logger           *slog.Logger
}

// Importer turns source files of particular extensions into intermediate
// data. Implementations declare a fixed id so assets can name their importer
// across runs.
type Importer interface {
	ImporterId() datamodel.ImporterId
	SupportedFileExtensions() []string

	// ScanFile is the fast pass: enumerate importables without reading
	// everything.
	ScanFile(ctx ScanContext) ([]ScannedImportable, error)

	// ImportFile is the full read: produce intermediate data (and optionally
	// a default asset) per importable.
	ImportFile(ctx ImportContext) (map[string]ImportedImportable, error)
}

// ImporterRegistry holds every known importer, dispatchable by id or by file
// extension.
type ImporterRegistry struct {
	importers                 map[datamodel.ImporterId]Importer
	fileExtensionAssociations map[string][]datamodel.ImporterId
}

// NewImporterRegistry creates an empty registry.
func NewImporterRegistry() *ImporterRegistry {
	return &ImporterRegistry{
		importers:                 make(map[datamodel.ImporterId]Importer),
		fileExtensionAssociations: make(map[string][]datamodel.ImporterId),
	}
}

// RegisterImporter adds an importer, indexing its extensions. Registering two
// importers under one id is a programming error.
func (r *ImporterRegistry) RegisterImporter(importer Importer) error {
	id := importer.ImporterId()
	if _, exists := r.importers[id]; exists {
		return datamodel.ErrDuplicateEntry
	}
	r.importers[id] = importer
	for _, extension := range importer.SupportedFileExtensions() {
		r.fileExtensionAssociations[extension] = append(r.fileExtensionAssociations[extension], id)
	}
	return nil
}

// Importer resolves an importer id.
func (r *ImporterRegistry) Importer(id datamodel.ImporterId) (Importer, bool) {
	importer, ok := r.importers[id]
	return importer, ok
}

// ImportersForFileExtension lists importer ids claiming an extension.
func (r *ImporterRegistry) ImportersForFileExtension(extension string) []datamodel.ImporterId {
	return r.fileExtensionAssociations[extension]
}
