// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package editor_test

import (
	"testing"

	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/editor"
	"github.com/pb33f/assetforge/schema"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemDataSource_SaveAndReload(t *testing.T) {
	set := linkVec3(t)
	fs := afero.NewMemMapFs()
	vec3 := vec3Record(t, set)

	stack := editor.NewUndoStack()
	ctx := editor.NewEditContext(set, stack, nil)
	source := editor.NewFileSystemDataSource(fs, "assets", nil)

	var folder, obj datamodel.AssetId
	ctx.WithUndoContext("author", func(e *editor.EditContext) editor.EndContextBehavior {
		pathNode, ok := set.FindNamedType(editor.PathNodeTypeName)
		require.True(t, ok)
		pathNodeRec, isRecord := schema.AsRecord(pathNode)
		require.True(t, isRecord)
		folder = e.NewAsset("textures", datamodel.RootLocation(), pathNodeRec)
		obj = e.NewAsset("grass", datamodel.NewAssetLocation(folder), vec3)
		require.NoError(t, e.SetPropertyOverride(obj, "x", datamodel.F32Value(7)))
		return editor.EndContextFinish
	})

	modified := map[datamodel.AssetId]struct{}{folder: {}, obj: {}}
	require.NoError(t, source.SaveAllModified(ctx, modified))

	// a fresh context reloads the same state
	fresh := editor.NewEditContext(set, editor.NewUndoStack(), nil)
	freshSource := editor.NewFileSystemDataSource(fs, "assets", nil)
	require.NoError(t, freshSource.ReloadAll(fresh))

	require.True(t, fresh.HasAsset(obj))
	value, err := fresh.ResolveProperty(obj, "x")
	require.NoError(t, err)
	x, _ := value.AsF32()
	assert.Equal(t, float32(7), x)

	location, err := fresh.AssetLocation(obj)
	require.NoError(t, err)
	assert.Equal(t, folder, location.PathNodeId)
	assert.Equal(t, "textures/grass", fresh.AssetDisplayNameLong(obj))

	originalHash, err := ctx.DataSet().HashObject(obj, datamodel.HashObjectModeFull)
	require.NoError(t, err)
	reloadedHash, err := fresh.DataSet().HashObject(obj, datamodel.HashObjectModeFull)
	require.NoError(t, err)
	assert.Equal(t, originalHash, reloadedHash)
}

func TestFileSystemDataSource_DeleteMirroredOnDisk(t *testing.T) {
	set := linkVec3(t)
	fs := afero.NewMemMapFs()
	vec3 := vec3Record(t, set)

	ctx := editor.NewEditContext(set, editor.NewUndoStack(), nil)
	source := editor.NewFileSystemDataSource(fs, "assets", nil)

	var id datamodel.AssetId
	ctx.WithUndoContext("create", func(e *editor.EditContext) editor.EndContextBehavior {
		id = e.NewAsset("doomed", datamodel.RootLocation(), vec3)
		return editor.EndContextFinish
	})
	require.NoError(t, source.SaveAllModified(ctx, map[datamodel.AssetId]struct{}{id: {}}))

	matches, err := afero.Glob(fs, "assets/*.af")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	ctx.WithUndoContext("delete", func(e *editor.EditContext) editor.EndContextBehavior {
		require.NoError(t, e.DeleteAsset(id))
		return editor.EndContextFinish
	})
	require.NoError(t, source.SaveAllModified(ctx, map[datamodel.AssetId]struct{}{id: {}}))

	matches, err = afero.Glob(fs, "assets/*.af")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
