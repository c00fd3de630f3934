// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package editor_test

import (
	"testing"

	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/editor"
	"github.com/pb33f/assetforge/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkVec3(t *testing.T) *schema.Set {
	t.Helper()
	linker := schema.NewLinker(nil)
	require.NoError(t, linker.RegisterRecordType("Vec3", func(b *schema.RecordBuilder) {
		b.AddF32("x")
		b.AddF32("y")
		b.AddF32("z")
	}))
	require.NoError(t, editor.RegisterPathNodeSchemas(linker))
	set, err := linker.Link()
	require.NoError(t, err)
	return set
}

func vec3Record(t *testing.T, set *schema.Set) *schema.Record {
	t.Helper()
	nt, ok := set.FindNamedType("Vec3")
	require.True(t, ok)
	rec, _ := schema.AsRecord(nt)
	return rec
}

func resolveX(t *testing.T, ctx *editor.EditContext, id datamodel.AssetId) float32 {
	t.Helper()
	value, err := ctx.ResolveProperty(id, "x")
	require.NoError(t, err)
	f, ok := value.AsF32()
	require.True(t, ok)
	return f
}

func TestUndoContext_UndoRedo(t *testing.T) {
	set := linkVec3(t)
	stack := editor.NewUndoStack()
	ctx := editor.NewEditContext(set, stack, nil)
	vec3 := vec3Record(t, set)

	var id datamodel.AssetId
	ctx.WithUndoContext("create asset", func(e *editor.EditContext) editor.EndContextBehavior {
		id = e.NewAsset("obj", datamodel.RootLocation(), vec3)
		return editor.EndContextFinish
	})

	ctx.WithUndoContext("set x", func(e *editor.EditContext) editor.EndContextBehavior {
		require.NoError(t, e.SetPropertyOverride(id, "x", datamodel.F32Value(10)))
		return editor.EndContextFinish
	})
	assert.Equal(t, float32(10), resolveX(t, ctx, id))

	require.NoError(t, stack.Undo(ctx))
	assert.Equal(t, float32(0), resolveX(t, ctx, id))

	require.NoError(t, stack.Redo(ctx))
	assert.Equal(t, float32(10), resolveX(t, ctx, id))

	// undo twice removes the asset entirely
	require.NoError(t, stack.Undo(ctx))
	require.NoError(t, stack.Undo(ctx))
	assert.False(t, ctx.HasAsset(id))

	require.NoError(t, stack.Redo(ctx))
	assert.True(t, ctx.HasAsset(id))
	assert.Equal(t, float32(0), resolveX(t, ctx, id))
}

func TestUndoContext_ResumableContextExtends(t *testing.T) {
	set := linkVec3(t)
	stack := editor.NewUndoStack()
	ctx := editor.NewEditContext(set, stack, nil)
	vec3 := vec3Record(t, set)

	var id datamodel.AssetId
	ctx.WithUndoContext("create", func(e *editor.EditContext) editor.EndContextBehavior {
		id = e.NewAsset("obj", datamodel.RootLocation(), vec3)
		return editor.EndContextFinish
	})

	// a drag-style edit arrives as many small operations under one name
	ctx.WithUndoContext("drag x", func(e *editor.EditContext) editor.EndContextBehavior {
		require.NoError(t, e.SetPropertyOverride(id, "x", datamodel.F32Value(1)))
		return editor.EndContextAllowResume
	})
	ctx.WithUndoContext("drag x", func(e *editor.EditContext) editor.EndContextBehavior {
		require.NoError(t, e.SetPropertyOverride(id, "x", datamodel.F32Value(2)))
		return editor.EndContextAllowResume
	})
	ctx.WithUndoContext("drag x", func(e *editor.EditContext) editor.EndContextBehavior {
		require.NoError(t, e.SetPropertyOverride(id, "x", datamodel.F32Value(3)))
		return editor.EndContextFinish
	})
	assert.Equal(t, float32(3), resolveX(t, ctx, id))

	// one undo step covers the whole drag
	require.NoError(t, stack.Undo(ctx))
	assert.Equal(t, float32(0), resolveX(t, ctx, id))
}

func TestUndoContext_DifferentNameCommitsPrior(t *testing.T) {
	set := linkVec3(t)
	stack := editor.NewUndoStack()
	ctx := editor.NewEditContext(set, stack, nil)
	vec3 := vec3Record(t, set)

	var id datamodel.AssetId
	ctx.WithUndoContext("create", func(e *editor.EditContext) editor.EndContextBehavior {
		id = e.NewAsset("obj", datamodel.RootLocation(), vec3)
		return editor.EndContextFinish
	})
	ctx.WithUndoContext("set x", func(e *editor.EditContext) editor.EndContextBehavior {
		require.NoError(t, e.SetPropertyOverride(id, "x", datamodel.F32Value(1)))
		return editor.EndContextAllowResume
	})
	// a different name commits the resumable context before starting
	ctx.WithUndoContext("set y", func(e *editor.EditContext) editor.EndContextBehavior {
		require.NoError(t, e.SetPropertyOverride(id, "y", datamodel.F32Value(2)))
		return editor.EndContextFinish
	})

	// two distinct undo steps: y first, then x
	require.NoError(t, stack.Undo(ctx))
	assert.Equal(t, float32(1), resolveX(t, ctx, id))
	yValue, err := ctx.ResolveProperty(id, "y")
	require.NoError(t, err)
	y, _ := yValue.AsF32()
	assert.Equal(t, float32(0), y)

	require.NoError(t, stack.Undo(ctx))
	assert.Equal(t, float32(0), resolveX(t, ctx, id))
}

func TestUndoContext_CancelRevertsPending(t *testing.T) {
	set := linkVec3(t)
	stack := editor.NewUndoStack()
	ctx := editor.NewEditContext(set, stack, nil)
	vec3 := vec3Record(t, set)

	var id datamodel.AssetId
	ctx.WithUndoContext("create", func(e *editor.EditContext) editor.EndContextBehavior {
		id = e.NewAsset("obj", datamodel.RootLocation(), vec3)
		return editor.EndContextFinish
	})

	ctx.WithUndoContext("abandoned", func(e *editor.EditContext) editor.EndContextBehavior {
		require.NoError(t, e.SetPropertyOverride(id, "x", datamodel.F32Value(99)))
		return editor.EndContextAllowResume
	})
	require.NoError(t, ctx.CancelPendingUndoContext())
	assert.Equal(t, float32(0), resolveX(t, ctx, id))
	assert.False(t, stack.CanRedo())
}

func TestUndoContext_NewEditDiscardsRedoTail(t *testing.T) {
	set := linkVec3(t)
	stack := editor.NewUndoStack()
	ctx := editor.NewEditContext(set, stack, nil)
	vec3 := vec3Record(t, set)

	var id datamodel.AssetId
	ctx.WithUndoContext("create", func(e *editor.EditContext) editor.EndContextBehavior {
		id = e.NewAsset("obj", datamodel.RootLocation(), vec3)
		return editor.EndContextFinish
	})
	ctx.WithUndoContext("set x", func(e *editor.EditContext) editor.EndContextBehavior {
		require.NoError(t, e.SetPropertyOverride(id, "x", datamodel.F32Value(1)))
		return editor.EndContextFinish
	})
	require.NoError(t, stack.Undo(ctx))
	assert.True(t, stack.CanRedo())

	ctx.WithUndoContext("set y", func(e *editor.EditContext) editor.EndContextBehavior {
		require.NoError(t, e.SetPropertyOverride(id, "y", datamodel.F32Value(2)))
		return editor.EndContextFinish
	})
	assert.False(t, stack.CanRedo())
}
