// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package datamodel_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkTestSchemas(t *testing.T) *schema.Set {
	t.Helper()
	linker := schema.NewLinker(nil)
	require.NoError(t, linker.RegisterRecordType("Vec3", func(b *schema.RecordBuilder) {
		b.AddF32("x")
		b.AddF32("y")
		b.AddF32("z")
	}))
	require.NoError(t, linker.RegisterRecordType("Outer", func(b *schema.RecordBuilder) {
		b.AddNullable("nullable", schema.Named("Vec3"))
		b.AddDynamicArray("arr", schema.Named("Vec3"))
	}))
	set, err := linker.Link()
	require.NoError(t, err)
	return set
}

func record(t *testing.T, set *schema.Set, name string) *schema.Record {
	t.Helper()
	nt, ok := set.FindNamedType(name)
	require.True(t, ok)
	rec, isRecord := schema.AsRecord(nt)
	require.True(t, isRecord)
	return rec
}

func resolveF32(t *testing.T, set *schema.Set, ds *datamodel.DataSet, id datamodel.AssetId, path string) float32 {
	t.Helper()
	value, err := ds.ResolveProperty(set, id, path)
	require.NoError(t, err)
	f, ok := value.AsF32()
	require.True(t, ok)
	return f
}

// Scenario: defaults, overrides and prototype transparency on a Vec3 record.
func TestDataSet_Vec3DefaultsAndPrototype(t *testing.T) {
	set := linkTestSchemas(t)
	vec3 := record(t, set, "Vec3")
	ds := datamodel.NewDataSet()

	a := ds.NewAsset("a", datamodel.RootLocation(), vec3)
	assert.Equal(t, float32(0.0), resolveF32(t, set, ds, a, "x"))

	require.NoError(t, ds.SetPropertyOverride(set, a, "x", datamodel.F32Value(10.0)))
	assert.Equal(t, float32(10.0), resolveF32(t, set, ds, a, "x"))

	b, err := ds.NewAssetFromPrototype("b", datamodel.RootLocation(), a)
	require.NoError(t, err)
	assert.Equal(t, float32(10.0), resolveF32(t, set, ds, b, "x"))

	hasOverride, err := ds.HasPropertyOverride(b, "x")
	require.NoError(t, err)
	assert.False(t, hasOverride)

	require.NoError(t, ds.SetPropertyOverride(set, b, "x", datamodel.F32Value(20.0)))
	assert.Equal(t, float32(10.0), resolveF32(t, set, ds, a, "x"))
	assert.Equal(t, float32(20.0), resolveF32(t, set, ds, b, "x"))

	// removing the child's override falls back to the prototype
	_, removed, err := ds.RemovePropertyOverride(b, "x")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, float32(10.0), resolveF32(t, set, ds, b, "x"))

	// removing the prototype's override falls back to the default
	_, _, err = ds.RemovePropertyOverride(a, "x")
	require.NoError(t, err)
	assert.Equal(t, float32(0.0), resolveF32(t, set, ds, a, "x"))
	assert.Equal(t, float32(0.0), resolveF32(t, set, ds, b, "x"))
}

// Scenario: nullable fields default to null, and paths below a null parent
// do not exist.
func TestDataSet_NullableProperty(t *testing.T) {
	set := linkTestSchemas(t)
	outer := record(t, set, "Outer")
	ds := datamodel.NewDataSet()

	obj := ds.NewAsset("obj", datamodel.RootLocation(), outer)

	override, err := ds.ResolveNullOverride(set, obj, "nullable")
	require.NoError(t, err)
	assert.Equal(t, datamodel.NullOverrideSetNull, override)

	err = ds.SetPropertyOverride(set, obj, "nullable.value.x", datamodel.F32Value(10.0))
	assert.ErrorIs(t, err, datamodel.ErrPathParentIsNull)

	require.NoError(t, ds.SetNullOverride(set, obj, "nullable", datamodel.NullOverrideSetNonNull))
	require.NoError(t, ds.SetPropertyOverride(set, obj, "nullable.value.x", datamodel.F32Value(10.0)))
	assert.Equal(t, float32(10.0), resolveF32(t, set, ds, obj, "nullable.value.x"))

	// a prototype's SetNonNull is inherited until the child overrides
	child, err := ds.NewAssetFromPrototype("child", datamodel.RootLocation(), obj)
	require.NoError(t, err)
	override, err = ds.ResolveNullOverride(set, child, "nullable")
	require.NoError(t, err)
	assert.Equal(t, datamodel.NullOverrideSetNonNull, override)
	assert.Equal(t, float32(10.0), resolveF32(t, set, ds, child, "nullable.value.x"))

	require.NoError(t, ds.SetNullOverride(set, child, "nullable", datamodel.NullOverrideSetNull))
	_, err = ds.ResolveProperty(set, child, "nullable.value.x")
	assert.ErrorIs(t, err, datamodel.ErrPathParentIsNull)
}

// Scenario: dynamic array append vs replace across a prototype chain.
func TestDataSet_DynamicArrayOverrideBehavior(t *testing.T) {
	set := linkTestSchemas(t)
	outer := record(t, set, "Outer")
	ds := datamodel.NewDataSet()

	a := ds.NewAsset("a", datamodel.RootLocation(), outer)
	b, err := ds.NewAssetFromPrototype("b", datamodel.RootLocation(), a)
	require.NoError(t, err)

	u1, err := ds.AddDynamicArrayEntry(set, a, "arr")
	require.NoError(t, err)
	u2, err := ds.AddDynamicArrayEntry(set, b, "arr")
	require.NoError(t, err)

	entriesA, err := ds.ResolveDynamicArrayEntries(set, a, "arr")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{u1}, entriesA)

	entriesB, err := ds.ResolveDynamicArrayEntries(set, b, "arr")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{u1, u2}, entriesB)

	// overrides land on the asset that owns the entry
	require.NoError(t, ds.SetPropertyOverride(set, a, fmt.Sprintf("arr.%s.x", u1), datamodel.F32Value(1.0)))
	require.NoError(t, ds.SetPropertyOverride(set, b, fmt.Sprintf("arr.%s.x", u2), datamodel.F32Value(2.0)))

	// the prototype cannot see the child's entry
	err = ds.SetPropertyOverride(set, a, fmt.Sprintf("arr.%s.x", u2), datamodel.F32Value(3.0))
	assert.ErrorIs(t, err, datamodel.ErrPathDynamicArrayEntryDoesNotExist)

	require.NoError(t, ds.SetOverrideBehavior(set, b, "arr", datamodel.OverrideBehaviorReplace))
	entriesB, err = ds.ResolveDynamicArrayEntries(set, b, "arr")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{u2}, entriesB)

	// the inherited entry no longer exists under b
	err = ds.SetPropertyOverride(set, b, fmt.Sprintf("arr.%s.x", u1), datamodel.F32Value(3.0))
	assert.ErrorIs(t, err, datamodel.ErrPathDynamicArrayEntryDoesNotExist)

	require.NoError(t, ds.SetOverrideBehavior(set, b, "arr", datamodel.OverrideBehaviorAppend))
	entriesB, err = ds.ResolveDynamicArrayEntries(set, b, "arr")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{u1, u2}, entriesB)
}

func TestDataSet_PrototypeCycleRejected(t *testing.T) {
	set := linkTestSchemas(t)
	vec3 := record(t, set, "Vec3")
	ds := datamodel.NewDataSet()

	a := ds.NewAsset("a", datamodel.RootLocation(), vec3)
	b, err := ds.NewAssetFromPrototype("b", datamodel.RootLocation(), a)
	require.NoError(t, err)
	c, err := ds.NewAssetFromPrototype("c", datamodel.RootLocation(), b)
	require.NoError(t, err)

	assert.ErrorIs(t, ds.SetPrototype(a, c), datamodel.ErrPrototypeCycle)
	assert.ErrorIs(t, ds.SetPrototype(a, a), datamodel.ErrPrototypeCycle)

	// clearing a prototype is always legal
	assert.NoError(t, ds.SetPrototype(b, datamodel.AssetIdNull))
}

func TestDataSet_PrototypeSchemaMustMatch(t *testing.T) {
	set := linkTestSchemas(t)
	ds := datamodel.NewDataSet()

	a := ds.NewAsset("a", datamodel.RootLocation(), record(t, set, "Vec3"))
	b := ds.NewAsset("b", datamodel.RootLocation(), record(t, set, "Outer"))
	assert.ErrorIs(t, ds.SetPrototype(b, a), datamodel.ErrInvalidSchema)
}

func TestDataSet_LocationCycleRejected(t *testing.T) {
	set := linkTestSchemas(t)
	vec3 := record(t, set, "Vec3")
	ds := datamodel.NewDataSet()

	parent := ds.NewAsset("parent", datamodel.RootLocation(), vec3)
	child := ds.NewAsset("child", datamodel.NewAssetLocation(parent), vec3)

	err := ds.SetAssetLocation(parent, datamodel.NewAssetLocation(child))
	assert.ErrorIs(t, err, datamodel.ErrLocationCycle)

	err = ds.SetAssetLocation(parent, datamodel.NewAssetLocation(parent))
	assert.ErrorIs(t, err, datamodel.ErrLocationCycle)
}

func TestDataSet_ApplyPropertyOverrideToPrototype(t *testing.T) {
	set := linkTestSchemas(t)
	vec3 := record(t, set, "Vec3")
	ds := datamodel.NewDataSet()

	a := ds.NewAsset("a", datamodel.RootLocation(), vec3)
	b, err := ds.NewAssetFromPrototype("b", datamodel.RootLocation(), a)
	require.NoError(t, err)

	require.NoError(t, ds.SetPropertyOverride(set, b, "x", datamodel.F32Value(5.0)))
	require.NoError(t, ds.ApplyPropertyOverrideToPrototype(set, b, "x"))

	hasOverride, err := ds.HasPropertyOverride(b, "x")
	require.NoError(t, err)
	assert.False(t, hasOverride)
	assert.Equal(t, float32(5.0), resolveF32(t, set, ds, a, "x"))
	assert.Equal(t, float32(5.0), resolveF32(t, set, ds, b, "x"))
}

func TestDataSet_ValueMustMatchSchema(t *testing.T) {
	set := linkTestSchemas(t)
	vec3 := record(t, set, "Vec3")
	ds := datamodel.NewDataSet()

	a := ds.NewAsset("a", datamodel.RootLocation(), vec3)
	err := ds.SetPropertyOverride(set, a, "x", datamodel.StringValue("nope"))
	assert.ErrorIs(t, err, datamodel.ErrValueDoesNotMatchSchema)

	err = ds.SetPropertyOverride(set, a, "w", datamodel.F32Value(1.0))
	assert.ErrorIs(t, err, datamodel.ErrInvalidPath)
}

func TestDataSet_HashObjectDeterminism(t *testing.T) {
	set := linkTestSchemas(t)
	vec3 := record(t, set, "Vec3")

	build := func() (*datamodel.DataSet, datamodel.AssetId) {
		ds := datamodel.NewDataSet()
		id := datamodel.NewAssetId()
		require.NoError(t, ds.NewAssetWithId(id, "a", datamodel.RootLocation(), vec3))
		return ds, id
	}

	dsA, idA := build()
	// set properties in a different order in each set; hashes must agree
	require.NoError(t, dsA.SetPropertyOverride(set, idA, "x", datamodel.F32Value(1)))
	require.NoError(t, dsA.SetPropertyOverride(set, idA, "y", datamodel.F32Value(2)))

	dsB := datamodel.NewDataSet()
	require.NoError(t, dsB.NewAssetWithId(idA, "a", datamodel.RootLocation(), vec3))
	require.NoError(t, dsB.SetPropertyOverride(set, idA, "y", datamodel.F32Value(2)))
	require.NoError(t, dsB.SetPropertyOverride(set, idA, "x", datamodel.F32Value(1)))

	hashA, err := dsA.HashObject(idA, datamodel.HashObjectModePropertiesOnly)
	require.NoError(t, err)
	hashB, err := dsB.HashObject(idA, datamodel.HashObjectModePropertiesOnly)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)

	// flipping a value flips the hash
	require.NoError(t, dsB.SetPropertyOverride(set, idA, "x", datamodel.F32Value(9)))
	hashC, err := dsB.HashObject(idA, datamodel.HashObjectModePropertiesOnly)
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashC)

	// names only contribute in full mode
	require.NoError(t, dsA.SetAssetName(idA, "renamed"))
	hashD, err := dsA.HashObject(idA, datamodel.HashObjectModePropertiesOnly)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashD)
	hashFullA, err := dsA.HashObject(idA, datamodel.HashObjectModeFull)
	require.NoError(t, err)
	assert.NotEqual(t, hashD, hashFullA)
}

func TestDataSet_FileReferenceOverridesWalkChain(t *testing.T) {
	set := linkTestSchemas(t)
	vec3 := record(t, set, "Vec3")
	ds := datamodel.NewDataSet()

	a := ds.NewAsset("a", datamodel.RootLocation(), vec3)
	b, err := ds.NewAssetFromPrototype("b", datamodel.RootLocation(), a)
	require.NoError(t, err)

	target := datamodel.NewAssetId()
	require.NoError(t, ds.SetFileReferenceOverride(a, "textures/grass.png", target))

	resolved, err := ds.ResolveFileReference(b, "textures/grass.png")
	require.NoError(t, err)
	assert.Equal(t, target, resolved)

	closer := datamodel.NewAssetId()
	require.NoError(t, ds.SetFileReferenceOverride(b, "textures/grass.png", closer))
	resolved, err = ds.ResolveFileReference(b, "textures/grass.png")
	require.NoError(t, err)
	assert.Equal(t, closer, resolved)
}

func TestDataSet_DanglingReferencesSurfaceAtResolution(t *testing.T) {
	set := linkTestSchemas(t)
	vec3 := record(t, set, "Vec3")
	ds := datamodel.NewDataSet()

	a := ds.NewAsset("a", datamodel.RootLocation(), vec3)
	b, err := ds.NewAssetFromPrototype("b", datamodel.RootLocation(), a)
	require.NoError(t, err)
	require.NoError(t, ds.SetPropertyOverride(set, a, "x", datamodel.F32Value(7)))

	// deleting the prototype leaves b with a dangling chain; resolution
	// falls back to defaults rather than failing
	require.NoError(t, ds.DeleteAsset(a))
	assert.Equal(t, float32(0.0), resolveF32(t, set, ds, b, "x"))

	_, err = ds.ResolveProperty(set, a, "x")
	assert.ErrorIs(t, err, datamodel.ErrAssetNotFound)
}
