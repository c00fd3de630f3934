// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

// Package assetforge wires the authoring and build pipeline together: linked
// schemas, an editable asset database with undo, source file importers, and
// a deterministic, memoized build graph producing content-addressed
// artifacts with manifests.
//
// The subpackages are usable on their own; this package is the convenience
// assembly an application embeds.
package assetforge

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pb33f/assetforge/build"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/editor"
	"github.com/pb33f/assetforge/pipeline"
	"github.com/pb33f/assetforge/schema"
	"github.com/spf13/afero"
)

// ProjectConfig locates everything a project reads and writes.
type ProjectConfig struct {
	// SchemaDirs are scanned for schema definition files.
	SchemaDirs []string
	// SchemaFilePattern filters schema dirs; defaults to "*.json".
	SchemaFilePattern string
	// AssetDirs hold .af asset documents, one data source per dir.
	AssetDirs []string
	// ImportDataPath is the root of the .if import data store.
	ImportDataPath string
	// BuildDataPath is the root of the .bf artifact store, manifests and TOC.
	BuildDataPath string

	// Fs defaults to the OS filesystem; tests substitute a memory fs.
	Fs afero.Fs
	// Logger defaults to discarding.
	Logger *slog.Logger
}

func (c *ProjectConfig) applyDefaults() {
	if c.SchemaFilePattern == "" {
		c.SchemaFilePattern = "*.json"
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// RegisterFunc runs during assembly, before schemas are linked: register
// schema types in code, importers, and job processors here.
type RegisterFunc func(linker *schema.Linker, importers *pipeline.ImporterRegistry, processors *build.JobProcessorRegistry) error

// AssetPipeline is the assembled system.
type AssetPipeline struct {
	config ProjectConfig

	schemaSet        *schema.Set
	undoStack        *editor.UndoStack
	editContext      *editor.EditContext
	dataSources      []*editor.FileSystemDataSource
	importerRegistry *pipeline.ImporterRegistry
	jobRegistry      *build.JobProcessorRegistry
	builderRegistry  *build.BuilderRegistry
	importJobs       *pipeline.ImportJobs
	buildJobs        *build.BuildJobs
}

// NewAssetPipeline links schemas, loads every asset source, scans import
// data, and prepares the build side. The register callback contributes
// code-defined schemas, importers and job processors before linking.
func NewAssetPipeline(config ProjectConfig, register RegisterFunc) (*AssetPipeline, error) {
	config.applyDefaults()

	linker := schema.NewLinker(config.Logger)
	if err := editor.RegisterPathNodeSchemas(linker); err != nil {
		return nil, err
	}
	for _, dir := range config.SchemaDirs {
		if err := linker.AddSourceDir(config.Fs, dir, config.SchemaFilePattern); err != nil {
			return nil, err
		}
	}

	importerRegistry := pipeline.NewImporterRegistry()
	jobRegistry := build.NewJobProcessorRegistry()
	if register != nil {
		if err := register(linker, importerRegistry, jobRegistry); err != nil {
			return nil, err
		}
	}

	schemaSet, err := linker.Link()
	if err != nil {
		return nil, fmt.Errorf("linking schemas: %w", err)
	}

	undoStack := editor.NewUndoStack()
	editContext := editor.NewEditContext(schemaSet, undoStack, config.Logger)

	var dataSources []*editor.FileSystemDataSource
	for _, dir := range config.AssetDirs {
		source := editor.NewFileSystemDataSource(config.Fs, dir, config.Logger)
		if err := source.ReloadAll(editContext); err != nil {
			return nil, fmt.Errorf("loading asset source %s: %w", dir, err)
		}
		dataSources = append(dataSources, source)
	}

	importJobs := pipeline.NewImportJobs(importerRegistry, editContext, config.Fs, config.ImportDataPath, config.Logger)
	buildJobs := build.NewBuildJobs(config.Fs, schemaSet, jobRegistry, importJobs, config.BuildDataPath, config.Logger)

	return &AssetPipeline{
		config:           config,
		schemaSet:        schemaSet,
		undoStack:        undoStack,
		editContext:      editContext,
		dataSources:      dataSources,
		importerRegistry: importerRegistry,
		jobRegistry:      jobRegistry,
		builderRegistry:  build.NewBuilderRegistry(),
		importJobs:       importJobs,
		buildJobs:        buildJobs,
	}, nil
}

// SchemaSet returns the linked type system.
func (p *AssetPipeline) SchemaSet() *schema.Set { return p.schemaSet }

// EditContext returns the editable view over the project's assets.
func (p *AssetPipeline) EditContext() *editor.EditContext { return p.editContext }

// UndoStack returns the project-wide undo stack.
func (p *AssetPipeline) UndoStack() *editor.UndoStack { return p.undoStack }

// ImporterRegistry returns the registered importers.
func (p *AssetPipeline) ImporterRegistry() *pipeline.ImporterRegistry { return p.importerRegistry }

// ImportJobs returns the import side of the pipeline.
func (p *AssetPipeline) ImportJobs() *pipeline.ImportJobs { return p.importJobs }

// BuildJobs returns the build side of the pipeline.
func (p *AssetPipeline) BuildJobs() *build.BuildJobs { return p.buildJobs }

// RegisterBuilder attaches a builder for one record schema. Builders resolve
// against linked schemas, so registration happens after assembly.
func (p *AssetPipeline) RegisterBuilder(builder build.Builder) error {
	return p.builderRegistry.RegisterBuilder(p.schemaSet, builder)
}

// QueueImport records an import operation for the next ProcessImports.
func (p *AssetPipeline) QueueImport(op pipeline.ImportOp) {
	p.importJobs.QueueImportOperation(op)
}

// ProcessImports runs queued import operations to completion.
func (p *AssetPipeline) ProcessImports() error {
	return p.importJobs.Update(p.importerRegistry, p.editContext)
}

// RequestBuild asks for a full build on the next BuildUpdate.
func (p *AssetPipeline) RequestBuild() {
	p.buildJobs.RequestBuild()
}

// QueueBuildOperation forces one asset to rebuild on the next cycle.
func (p *AssetPipeline) QueueBuildOperation(id datamodel.AssetId) {
	p.buildJobs.QueueBuildOperation(id)
}

// BuildUpdate pumps the build loop once.
func (p *AssetPipeline) BuildUpdate() (*build.BuildStatus, error) {
	return p.buildJobs.Update(p.builderRegistry, p.editContext, p.importJobs)
}

// BuildToCompletion pumps the build loop until it goes idle or completes,
// returning the final status.
func (p *AssetPipeline) BuildToCompletion() (*build.BuildStatus, error) {
	for {
		status, err := p.BuildUpdate()
		if err != nil {
			return nil, err
		}
		if status.Kind != build.BuildStatusBuilding {
			return status, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// SaveAllModified persists the modified asset set to every data source.
func (p *AssetPipeline) SaveAllModified(modified map[datamodel.AssetId]struct{}) error {
	for _, source := range p.dataSources {
		if err := source.SaveAllModified(p.editContext, modified); err != nil {
			return err
		}
	}
	return nil
}

// NotifySourceFileChanged is the directory watcher hook: events are hints,
// never authoritative. Assets imported from the path get their cached import
// metadata hash invalidated and a re-import queued.
func (p *AssetPipeline) NotifySourceFileChanged(path string) {
	for id, info := range p.editContext.DataSet().Assets() {
		importInfo := info.ImportInfo()
		if importInfo == nil || importInfo.SourceFilePath != path {
			continue
		}
		p.importJobs.InvalidateImportDataHash(id)
		p.importJobs.QueueImportOperation(pipeline.ImportOp{
			AssetIds:           map[string]datamodel.AssetId{importInfo.ImportableName: id},
			ImporterId:         importInfo.ImporterId,
			Path:               path,
			AssetsToRegenerate: map[datamodel.AssetId]struct{}{},
		})
	}
}
