// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

// Package schema implements the linked, fingerprinted type system that every
// asset and every piece of import data is described by. Types are built
// programmatically or parsed from definition files, then linked into an
// immutable Set whose named types carry deterministic 128-bit fingerprints.
package schema

// Kind discriminates the Schema sum type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNullable
	KindBoolean
	KindI32
	KindI64
	KindU32
	KindU64
	KindF32
	KindF64
	KindBytes
	KindString
	KindStaticArray
	KindDynamicArray
	KindMap
	KindAssetRef
	KindRecord
	KindEnum
	KindFixed
)

var kindNames = map[Kind]string{
	KindNullable:     "Nullable",
	KindBoolean:      "Boolean",
	KindI32:          "I32",
	KindI64:          "I64",
	KindU32:          "U32",
	KindU64:          "U64",
	KindF32:          "F32",
	KindF64:          "F64",
	KindBytes:        "Bytes",
	KindString:       "String",
	KindStaticArray:  "StaticArray",
	KindDynamicArray: "DynamicArray",
	KindMap:          "Map",
	KindAssetRef:     "AssetRef",
	KindRecord:       "Record",
	KindEnum:         "Enum",
	KindFixed:        "Fixed",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Invalid"
}

// Schema is a tagged sum over every representable type: nullables, primitives,
// containers, asset references and named types. Named types are referenced by
// fingerprint; the Set resolves fingerprints back to live definitions.
type Schema struct {
	kind        Kind
	inner       *Schema
	key         *Schema
	value       *Schema
	length      int
	fingerprint Fingerprint
}

func Boolean() Schema { return Schema{kind: KindBoolean} }
func I32() Schema     { return Schema{kind: KindI32} }
func I64() Schema     { return Schema{kind: KindI64} }
func U32() Schema     { return Schema{kind: KindU32} }
func U64() Schema     { return Schema{kind: KindU64} }
func F32() Schema     { return Schema{kind: KindF32} }
func F64() Schema     { return Schema{kind: KindF64} }
func Bytes() Schema   { return Schema{kind: KindBytes} }
func String() Schema  { return Schema{kind: KindString} }

// Nullable wraps an inner schema so values may be explicitly null.
func Nullable(inner Schema) Schema {
	return Schema{kind: KindNullable, inner: &inner}
}

// StaticArray is a fixed-length sequence of the item schema.
func StaticArray(item Schema, length int) Schema {
	return Schema{kind: KindStaticArray, inner: &item, length: length}
}

// DynamicArray is a variable-length sequence of the item schema, addressed by
// per-entry UUIDs.
func DynamicArray(item Schema) Schema {
	return Schema{kind: KindDynamicArray, inner: &item}
}

// Map is a keyed collection; key kinds are restricted at link time.
func Map(key, value Schema) Schema {
	return Schema{kind: KindMap, key: &key, value: &value}
}

// AssetRef references an asset whose schema is the record with the given
// fingerprint.
func AssetRef(record Fingerprint) Schema {
	return Schema{kind: KindAssetRef, fingerprint: record}
}

// RecordSchema references a named record type by fingerprint.
func RecordSchema(fingerprint Fingerprint) Schema {
	return Schema{kind: KindRecord, fingerprint: fingerprint}
}

// EnumSchema references a named enum type by fingerprint.
func EnumSchema(fingerprint Fingerprint) Schema {
	return Schema{kind: KindEnum, fingerprint: fingerprint}
}

// FixedSchema references a named fixed-length byte type by fingerprint.
func FixedSchema(fingerprint Fingerprint) Schema {
	return Schema{kind: KindFixed, fingerprint: fingerprint}
}

func (s Schema) Kind() Kind { return s.kind }

// Inner returns the wrapped schema for nullables and arrays.
func (s Schema) Inner() Schema {
	if s.inner == nil {
		return Schema{}
	}
	return *s.inner
}

// KeyType returns the key schema for maps.
func (s Schema) KeyType() Schema {
	if s.key == nil {
		return Schema{}
	}
	return *s.key
}

// ValueType returns the value schema for maps.
func (s Schema) ValueType() Schema {
	if s.value == nil {
		return Schema{}
	}
	return *s.value
}

// Length returns the element count for static arrays.
func (s Schema) Length() int { return s.length }

// Fingerprint returns the referenced named type for asset refs, records,
// enums and fixed types.
func (s Schema) Fingerprint() Fingerprint { return s.fingerprint }

func (s Schema) IsNullable() bool     { return s.kind == KindNullable }
func (s Schema) IsBoolean() bool      { return s.kind == KindBoolean }
func (s Schema) IsString() bool       { return s.kind == KindString }
func (s Schema) IsBytes() bool        { return s.kind == KindBytes }
func (s Schema) IsStaticArray() bool  { return s.kind == KindStaticArray }
func (s Schema) IsDynamicArray() bool { return s.kind == KindDynamicArray }
func (s Schema) IsMap() bool          { return s.kind == KindMap }
func (s Schema) IsAssetRef() bool     { return s.kind == KindAssetRef }
func (s Schema) IsRecord() bool       { return s.kind == KindRecord }
func (s Schema) IsEnum() bool         { return s.kind == KindEnum }
func (s Schema) IsFixed() bool        { return s.kind == KindFixed }

// IsScalar reports whether the schema is one of the primitive value kinds.
func (s Schema) IsScalar() bool {
	switch s.kind {
	case KindBoolean, KindI32, KindI64, KindU32, KindU64, KindF32, KindF64,
		KindBytes, KindString:
		return true
	}
	return false
}
