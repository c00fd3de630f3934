// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package schema_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/pb33f/assetforge/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkOuter(t *testing.T) *schema.Set {
	t.Helper()
	linker := schema.NewLinker(nil)
	require.NoError(t, linker.RegisterRecordType("Vec3", func(b *schema.RecordBuilder) {
		b.AddF32("x")
		b.AddF32("y")
		b.AddF32("z")
	}))
	require.NoError(t, linker.RegisterRecordType("Outer", func(b *schema.RecordBuilder) {
		b.AddNamedType("a", "Vec3")
		b.AddNullable("maybe", schema.Named("Vec3"))
		b.AddDynamicArray("array", schema.Named("Vec3"))
		b.AddStaticArray("fixed4", schema.F32Ref(), 4)
		b.AddMap("lookup", schema.StringRef(), schema.Named("Vec3"))
	}))
	set, err := linker.Link()
	require.NoError(t, err)
	return set
}

func outerRecord(t *testing.T, set *schema.Set) *schema.Record {
	t.Helper()
	nt, ok := set.FindNamedType("Outer")
	require.True(t, ok)
	rec, isRecord := schema.AsRecord(nt)
	require.True(t, isRecord)
	return rec
}

func TestPropertySchema_NestedRecord(t *testing.T) {
	set := linkOuter(t)
	outer := outerRecord(t, set)

	s, err := set.PropertySchema(outer, "a.x")
	require.NoError(t, err)
	assert.Equal(t, schema.KindF32, s.Kind())

	s, err = set.PropertySchema(outer, "a")
	require.NoError(t, err)
	assert.True(t, s.IsRecord())

	_, err = set.PropertySchema(outer, "a.w")
	assert.ErrorIs(t, err, schema.ErrInvalidPath)
}

func TestPropertySchema_NullableStepsThroughValue(t *testing.T) {
	set := linkOuter(t)
	outer := outerRecord(t, set)

	s, err := set.PropertySchema(outer, "maybe")
	require.NoError(t, err)
	assert.True(t, s.IsNullable())

	s, ancestry, err := set.PropertySchemaAndAncestors(outer, "maybe.value.x")
	require.NoError(t, err)
	assert.Equal(t, schema.KindF32, s.Kind())
	assert.Equal(t, []string{"maybe"}, ancestry.NullableAncestors)

	_, err = set.PropertySchema(outer, "maybe.x")
	assert.ErrorIs(t, err, schema.ErrInvalidPath)
}

func TestPropertySchema_DynamicArrayEntrySegments(t *testing.T) {
	set := linkOuter(t)
	outer := outerRecord(t, set)

	entry := uuid.New()
	path := fmt.Sprintf("array.%s.x", entry)
	s, ancestry, err := set.PropertySchemaAndAncestors(outer, path)
	require.NoError(t, err)
	assert.Equal(t, schema.KindF32, s.Kind())
	require.Len(t, ancestry.DynamicArrayAncestors, 1)
	assert.Equal(t, "array", ancestry.DynamicArrayAncestors[0].ContainerPath)
	assert.Equal(t, entry, ancestry.DynamicArrayAncestors[0].Entry)

	_, err = set.PropertySchema(outer, "array.notauuid.x")
	assert.ErrorIs(t, err, schema.ErrInvalidPath)
}

func TestPropertySchema_StaticArrayIndexBounds(t *testing.T) {
	set := linkOuter(t)
	outer := outerRecord(t, set)

	s, err := set.PropertySchema(outer, "fixed4.3")
	require.NoError(t, err)
	assert.Equal(t, schema.KindF32, s.Kind())

	_, err = set.PropertySchema(outer, "fixed4.4")
	assert.ErrorIs(t, err, schema.ErrInvalidPath)
}

func TestPropertySchema_MapEntryKeyValue(t *testing.T) {
	set := linkOuter(t)
	outer := outerRecord(t, set)

	entry := uuid.New()
	s, err := set.PropertySchema(outer, fmt.Sprintf("lookup.%s.key", entry))
	require.NoError(t, err)
	assert.Equal(t, schema.KindString, s.Kind())

	s, err = set.PropertySchema(outer, fmt.Sprintf("lookup.%s.value.x", entry))
	require.NoError(t, err)
	assert.Equal(t, schema.KindF32, s.Kind())

	// a bare map entry id is not a property
	_, err = set.PropertySchema(outer, fmt.Sprintf("lookup.%s", entry))
	assert.ErrorIs(t, err, schema.ErrInvalidPath)
}
