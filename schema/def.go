// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package schema

import (
	"cmp"
	"hash"
	"slices"

	"github.com/pb33f/assetforge/utils"
)

// Definition-side mirror of the linked model. Definitions reference named
// types by name; linking resolves names to fingerprints.

const kindNamedRef Kind = 255 // def-only: unresolved reference to a named type

// TypeRef describes a field type before linking. Build one with the
// constructor functions below, or Named()/RefTo() for named types.
type TypeRef struct {
	kind     Kind
	inner    *TypeRef
	key      *TypeRef
	value    *TypeRef
	length   int
	typeName string
}

func BooleanRef() TypeRef { return TypeRef{kind: KindBoolean} }
func I32Ref() TypeRef     { return TypeRef{kind: KindI32} }
func I64Ref() TypeRef     { return TypeRef{kind: KindI64} }
func U32Ref() TypeRef     { return TypeRef{kind: KindU32} }
func U64Ref() TypeRef     { return TypeRef{kind: KindU64} }
func F32Ref() TypeRef     { return TypeRef{kind: KindF32} }
func F64Ref() TypeRef     { return TypeRef{kind: KindF64} }
func BytesRef() TypeRef   { return TypeRef{kind: KindBytes} }
func StringRef() TypeRef  { return TypeRef{kind: KindString} }

// NullableRef wraps an inner type ref.
func NullableRef(inner TypeRef) TypeRef {
	return TypeRef{kind: KindNullable, inner: &inner}
}

// StaticArrayRef is a fixed-length array of the item type.
func StaticArrayRef(item TypeRef, length int) TypeRef {
	return TypeRef{kind: KindStaticArray, inner: &item, length: length}
}

// DynamicArrayRef is a growable array of the item type.
func DynamicArrayRef(item TypeRef) TypeRef {
	return TypeRef{kind: KindDynamicArray, inner: &item}
}

// MapRef is a map from key type to value type.
func MapRef(key, value TypeRef) TypeRef {
	return TypeRef{kind: KindMap, key: &key, value: &value}
}

// Named references another named type (record, enum or fixed) by name.
func Named(typeName string) TypeRef {
	return TypeRef{kind: kindNamedRef, typeName: typeName}
}

// RefTo is an asset reference whose referent record is named typeName.
func RefTo(typeName string) TypeRef {
	return TypeRef{kind: KindAssetRef, typeName: typeName}
}

func (t *TypeRef) applyAliases(aliases map[string]string) {
	switch t.kind {
	case KindNullable, KindStaticArray, KindDynamicArray:
		t.inner.applyAliases(aliases)
	case KindMap:
		t.key.applyAliases(aliases)
		t.value.applyAliases(aliases)
	case KindAssetRef, kindNamedRef:
		if canonical, ok := aliases[t.typeName]; ok {
			t.typeName = canonical
		}
	}
}

func (t *TypeRef) collectRelatedTypes(types map[string]struct{}) {
	switch t.kind {
	case KindNullable, KindStaticArray, KindDynamicArray:
		t.inner.collectRelatedTypes(types)
	case KindMap:
		t.key.collectRelatedTypes(types)
		t.value.collectRelatedTypes(types)
	case KindAssetRef, kindNamedRef:
		types[t.typeName] = struct{}{}
	}
}

// partialHash hashes only the shape of this type ref. References to other
// named types contribute their name, never their content, which is what makes
// fingerprints cycle-tolerant.
func (t *TypeRef) partialHash(h hash.Hash) {
	switch t.kind {
	case KindNullable:
		utils.HashString(h, "Nullable")
		t.inner.partialHash(h)
	case KindStaticArray:
		utils.HashString(h, "StaticArray")
		t.inner.partialHash(h)
		utils.HashInt64(h, int64(t.length))
	case KindDynamicArray:
		utils.HashString(h, "DynamicArray")
		t.inner.partialHash(h)
	case KindMap:
		utils.HashString(h, "Map")
		t.key.partialHash(h)
		t.value.partialHash(h)
	case KindAssetRef:
		utils.HashString(h, "AssetRef")
		utils.HashString(h, t.typeName)
	case kindNamedRef:
		utils.HashString(h, "NamedType")
		utils.HashString(h, t.typeName)
	default:
		utils.HashString(h, t.kind.String())
	}
}

func (t *TypeRef) toSchema(types map[string]*defNamedType, fingerprints map[string]Fingerprint) Schema {
	switch t.kind {
	case KindNullable:
		return Nullable(t.inner.toSchema(types, fingerprints))
	case KindStaticArray:
		return StaticArray(t.inner.toSchema(types, fingerprints), t.length)
	case KindDynamicArray:
		return DynamicArray(t.inner.toSchema(types, fingerprints))
	case KindMap:
		return Map(t.key.toSchema(types, fingerprints), t.value.toSchema(types, fingerprints))
	case KindAssetRef:
		return AssetRef(fingerprints[t.typeName])
	case kindNamedRef:
		fp := fingerprints[t.typeName]
		switch types[t.typeName].kind {
		case KindEnum:
			return EnumSchema(fp)
		case KindFixed:
			return FixedSchema(fp)
		default:
			return RecordSchema(fp)
		}
	}
	return Schema{kind: t.kind, length: t.length}
}

type defField struct {
	name    string
	aliases []string
	ref     TypeRef
	markup  FieldMarkup
}

type defSymbol struct {
	name    string
	aliases []string
}

// defNamedType is one accumulated definition awaiting linking.
type defNamedType struct {
	kind    Kind // KindRecord, KindEnum or KindFixed
	name    string
	aliases []string
	fields  []defField  // records
	symbols []defSymbol // enums
	length  int         // fixed
	markup  RecordMarkup
}

func (d *defNamedType) applyAliases(aliases map[string]string) {
	for i := range d.fields {
		d.fields[i].ref.applyAliases(aliases)
	}
}

func (d *defNamedType) collectRelatedTypes(types map[string]struct{}) {
	types[d.name] = struct{}{}
	for i := range d.fields {
		d.fields[i].ref.collectRelatedTypes(types)
	}
}

// partialHash covers the type's own shape: tag, name, and sorted members.
func (d *defNamedType) partialHash(h hash.Hash) {
	switch d.kind {
	case KindRecord:
		utils.HashString(h, "record")
		utils.HashString(h, d.name)
		sorted := slices.Clone(d.fields)
		slices.SortFunc(sorted, func(a, b defField) int {
			return cmp.Compare(a.name, b.name)
		})
		for i := range sorted {
			utils.HashString(h, sorted[i].name)
			sorted[i].ref.partialHash(h)
		}
	case KindEnum:
		utils.HashString(h, "enum")
		utils.HashString(h, d.name)
		sorted := slices.Clone(d.symbols)
		slices.SortFunc(sorted, func(a, b defSymbol) int {
			return cmp.Compare(a.name, b.name)
		})
		for i := range sorted {
			utils.HashString(h, sorted[i].name)
		}
	case KindFixed:
		utils.HashString(h, "fixed")
		utils.HashString(h, d.name)
		utils.HashInt64(h, int64(d.length))
	}
}

func (d *defNamedType) toNamedType(types map[string]*defNamedType, fingerprints map[string]Fingerprint) NamedType {
	fp := fingerprints[d.name]
	switch d.kind {
	case KindEnum:
		symbols := make([]EnumSymbol, len(d.symbols))
		for i, sym := range d.symbols {
			symbols[i] = EnumSymbol{Name: sym.name, Aliases: slices.Clone(sym.aliases)}
		}
		return &Enum{
			name:        d.name,
			fingerprint: fp,
			aliases:     slices.Clone(d.aliases),
			symbols:     symbols,
		}
	case KindFixed:
		return &Fixed{
			name:        d.name,
			fingerprint: fp,
			aliases:     slices.Clone(d.aliases),
			length:      d.length,
		}
	default:
		fields := make([]RecordField, len(d.fields))
		for i := range d.fields {
			fields[i] = RecordField{
				Name:    d.fields[i].name,
				Aliases: slices.Clone(d.fields[i].aliases),
				Schema:  d.fields[i].ref.toSchema(types, fingerprints),
				Markup:  d.fields[i].markup,
			}
		}
		return &Record{
			name:        d.name,
			fingerprint: fp,
			aliases:     slices.Clone(d.aliases),
			fields:      fields,
			markup:      d.markup,
		}
	}
}
