// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package pipeline_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/editor"
	"github.com/pb33f/assetforge/pipeline"
	"github.com/pb33f/assetforge/schema"
	"github.com/pb33f/assetforge/utils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var textImporterId = datamodel.ImporterId(uuid.MustParse("6f1c2a9e-8d11-4b6a-9c55-2f4f6a0d7b31"))

// textImporter ingests .txt files: the default asset carries the line count,
// the import data carries the contents.
type textImporter struct {
	importCount int
}

func (i *textImporter) ImporterId() datamodel.ImporterId {
	return textImporterId
}

func (i *textImporter) SupportedFileExtensions() []string {
	return []string{"txt"}
}

func (i *textImporter) ScanFile(ctx pipeline.ScanContext) ([]pipeline.ScannedImportable, error) {
	nt, ok := ctx.SchemaSet.FindNamedType("TextAsset")
	if !ok {
		return nil, fmt.Errorf("TextAsset schema missing")
	}
	rec, _ := schema.AsRecord(nt)
	return []pipeline.ScannedImportable{{AssetType: rec}}, nil
}

func (i *textImporter) ImportFile(ctx pipeline.ImportContext) (map[string]pipeline.ImportedImportable, error) {
	i.importCount++
	contents, err := afero.ReadFile(ctx.Fs, ctx.Path)
	if err != nil {
		return nil, err
	}

	nt, _ := ctx.SchemaSet.FindNamedType("TextAsset")
	assetRec, _ := schema.AsRecord(nt)
	nt, _ = ctx.SchemaSet.FindNamedType("TextImportData")
	importRec, _ := schema.AsRecord(nt)

	defaultAsset := datamodel.NewSingleObject(assetRec)
	lineCount := int32(len(strings.Split(strings.TrimRight(string(contents), "\n"), "\n")))
	if err := defaultAsset.SetProperty(ctx.SchemaSet, "line_count", datamodel.I32Value(lineCount)); err != nil {
		return nil, err
	}

	importData := datamodel.NewSingleObject(importRec)
	if err := importData.SetProperty(ctx.SchemaSet, "contents", datamodel.StringValue(string(contents))); err != nil {
		return nil, err
	}

	return map[string]pipeline.ImportedImportable{
		"": {DefaultAsset: defaultAsset, ImportData: importData},
	}, nil
}

func linkImportSchemas(t *testing.T) *schema.Set {
	t.Helper()
	linker := schema.NewLinker(nil)
	require.NoError(t, linker.RegisterRecordType("TextAsset", func(b *schema.RecordBuilder) {
		b.AddI32("line_count")
	}))
	require.NoError(t, linker.RegisterRecordType("TextImportData", func(b *schema.RecordBuilder) {
		b.AddString("contents")
	}))
	set, err := linker.Link()
	require.NoError(t, err)
	return set
}

func setupImportTest(t *testing.T) (*schema.Set, afero.Fs, *pipeline.ImporterRegistry, *textImporter, *editor.EditContext) {
	t.Helper()
	set := linkImportSchemas(t)
	fs := afero.NewMemMapFs()
	registry := pipeline.NewImporterRegistry()
	importer := &textImporter{}
	require.NoError(t, registry.RegisterImporter(importer))
	ctx := editor.NewEditContext(set, editor.NewUndoStack(), nil)
	return set, fs, registry, importer, ctx
}

func TestImportJobs_ImportWritesDataAndRegeneratesAsset(t *testing.T) {
	set, fs, registry, importer, ctx := setupImportTest(t)
	require.NoError(t, afero.WriteFile(fs, "source/readme.txt", []byte("one\ntwo\nthree\n"), 0o644))

	importerId, scanned, err := pipeline.ScanSourceFile(registry, fs, "source/readme.txt", set, nil)
	require.NoError(t, err)
	require.Len(t, scanned, 1)
	assert.Equal(t, textImporterId, importerId)

	var assetId datamodel.AssetId
	ctx.WithUndoContext("create from scan", func(e *editor.EditContext) editor.EndContextBehavior {
		assetId = e.NewAsset("readme", datamodel.RootLocation(), scanned[0].AssetType)
		require.NoError(t, e.SetImportInfo(assetId, &datamodel.ImportInfo{
			ImporterId:     importerId,
			SourceFilePath: "source/readme.txt",
		}))
		return editor.EndContextFinish
	})

	jobs := pipeline.NewImportJobs(registry, ctx, fs, "import_data", nil)
	jobs.QueueImportOperation(pipeline.ImportOp{
		AssetIds:           map[string]datamodel.AssetId{"": assetId},
		ImporterId:         importerId,
		Path:               "source/readme.txt",
		AssetsToRegenerate: map[datamodel.AssetId]struct{}{assetId: {}},
	})
	require.NoError(t, jobs.Update(registry, ctx))
	assert.Equal(t, 1, importer.importCount)

	// the asset regenerated from the imported default
	value, err := ctx.ResolveProperty(assetId, "line_count")
	require.NoError(t, err)
	lineCount, _ := value.AsI32()
	assert.Equal(t, int32(3), lineCount)

	// import data landed at import_data/<bucket>/<uuid>.if
	path := utils.UUIDToPath("import_data", assetId.UUID(), "if")
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.True(t, exists)

	// the executor side can load it back
	imported, err := jobs.LoadImportData(set, assetId)
	require.NoError(t, err)
	contents, err := imported.ImportData.ResolveProperty(set, "contents")
	require.NoError(t, err)
	text, _ := contents.AsString()
	assert.Equal(t, "one\ntwo\nthree\n", text)

	hashes := jobs.CloneImportDataMetadataHashes()
	assert.Contains(t, hashes, assetId)
	assert.Equal(t, imported.MetadataHash, hashes[assetId])
}

func TestImportJobs_IdenticalReimportSkipsWrite(t *testing.T) {
	set, fs, registry, importer, ctx := setupImportTest(t)
	require.NoError(t, afero.WriteFile(fs, "source/readme.txt", []byte("hello\n"), 0o644))

	nt, _ := set.FindNamedType("TextAsset")
	rec, _ := schema.AsRecord(nt)
	var assetId datamodel.AssetId
	ctx.WithUndoContext("create", func(e *editor.EditContext) editor.EndContextBehavior {
		assetId = e.NewAsset("readme", datamodel.RootLocation(), rec)
		return editor.EndContextFinish
	})

	jobs := pipeline.NewImportJobs(registry, ctx, fs, "import_data", nil)
	op := pipeline.ImportOp{
		AssetIds:   map[string]datamodel.AssetId{"": assetId},
		ImporterId: textImporterId,
		Path:       "source/readme.txt",
	}
	jobs.QueueImportOperation(op)
	require.NoError(t, jobs.Update(registry, ctx))
	firstHashes := jobs.CloneImportDataMetadataHashes()

	path := utils.UUIDToPath("import_data", assetId.UUID(), "if")
	firstBytes, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	// identical source, identical serialized bytes: the write is skipped and
	// the metadata hash stays put
	jobs.QueueImportOperation(op)
	require.NoError(t, jobs.Update(registry, ctx))
	assert.Equal(t, 2, importer.importCount)

	secondBytes, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, firstBytes, secondBytes)
	assert.Equal(t, firstHashes[assetId], jobs.CloneImportDataMetadataHashes()[assetId])
}

func TestImportJobs_MissingImporterReported(t *testing.T) {
	_, fs, registry, _, ctx := setupImportTest(t)

	jobs := pipeline.NewImportJobs(registry, ctx, fs, "import_data", nil)
	jobs.QueueImportOperation(pipeline.ImportOp{
		AssetIds:   map[string]datamodel.AssetId{"": datamodel.NewAssetId()},
		ImporterId: datamodel.ImporterId(uuid.New()),
		Path:       "source/unknown.bin",
	})
	err := jobs.Update(registry, ctx)
	assert.ErrorIs(t, err, pipeline.ErrImporterNotFound)
}

func TestImportJobs_StartupScanFindsExistingData(t *testing.T) {
	set, fs, registry, _, ctx := setupImportTest(t)
	require.NoError(t, afero.WriteFile(fs, "source/readme.txt", []byte("hi\n"), 0o644))

	nt, _ := set.FindNamedType("TextAsset")
	rec, _ := schema.AsRecord(nt)
	var assetId datamodel.AssetId
	ctx.WithUndoContext("create", func(e *editor.EditContext) editor.EndContextBehavior {
		assetId = e.NewAsset("readme", datamodel.RootLocation(), rec)
		require.NoError(t, e.SetImportInfo(assetId, &datamodel.ImportInfo{
			ImporterId:     textImporterId,
			SourceFilePath: "source/readme.txt",
		}))
		return editor.EndContextFinish
	})

	jobs := pipeline.NewImportJobs(registry, ctx, fs, "import_data", nil)
	jobs.QueueImportOperation(pipeline.ImportOp{
		AssetIds:   map[string]datamodel.AssetId{"": assetId},
		ImporterId: textImporterId,
		Path:       "source/readme.txt",
	})
	require.NoError(t, jobs.Update(registry, ctx))

	// a fresh ImportJobs reconstructs hash state purely by scanning
	rebuilt := pipeline.NewImportJobs(registry, ctx, fs, "import_data", nil)
	hashes := rebuilt.CloneImportDataMetadataHashes()
	assert.Contains(t, hashes, assetId)
	assert.Equal(t, jobs.CloneImportDataMetadataHashes()[assetId], hashes[assetId])
}

func TestScanSourceFile_UnknownExtension(t *testing.T) {
	_, fs, registry, _, _ := setupImportTest(t)
	_, _, err := pipeline.ScanSourceFile(registry, fs, "model.fbx", linkImportSchemas(t), nil)
	assert.ErrorIs(t, err, pipeline.ErrImporterNotFound)
}
