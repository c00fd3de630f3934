// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package datamodel

import (
	"bytes"
	"hash"
	"math"

	"github.com/pb33f/assetforge/schema"
	"github.com/pb33f/assetforge/utils"
)

// Value is a discriminated union mirroring schema.Schema. Property maps store
// leaf values; container values appear as type defaults during resolution.
// Hashing is stable across runs: floats hash via their bit pattern, strings
// and bytes via their contents.
type Value struct {
	kind    schema.Kind
	boolean bool
	i       int64
	u       uint64
	f       float64
	str     string // string value or enum symbol
	buf     []byte // bytes or fixed
	ref     AssetId
	isNull  bool
	inner   *Value
}

func BooleanValue(v bool) Value  { return Value{kind: schema.KindBoolean, boolean: v} }
func I32Value(v int32) Value     { return Value{kind: schema.KindI32, i: int64(v)} }
func I64Value(v int64) Value     { return Value{kind: schema.KindI64, i: v} }
func U32Value(v uint32) Value    { return Value{kind: schema.KindU32, u: uint64(v)} }
func U64Value(v uint64) Value    { return Value{kind: schema.KindU64, u: v} }
func F32Value(v float32) Value   { return Value{kind: schema.KindF32, f: float64(v)} }
func F64Value(v float64) Value   { return Value{kind: schema.KindF64, f: v} }
func BytesValue(v []byte) Value  { return Value{kind: schema.KindBytes, buf: v} }
func StringValue(v string) Value { return Value{kind: schema.KindString, str: v} }

// EnumValue holds an enum symbol by canonical name.
func EnumValue(symbol string) Value {
	return Value{kind: schema.KindEnum, str: symbol}
}

// FixedValue holds an exact-length byte block.
func FixedValue(v []byte) Value {
	return Value{kind: schema.KindFixed, buf: v}
}

// AssetRefValue references another asset; the null id is a valid (dangling)
// reference.
func AssetRefValue(id AssetId) Value {
	return Value{kind: schema.KindAssetRef, ref: id}
}

// NullValue is an explicitly-null nullable.
func NullValue() Value {
	return Value{kind: schema.KindNullable, isNull: true}
}

// NullableValue wraps a non-null inner value.
func NullableValue(inner Value) Value {
	return Value{kind: schema.KindNullable, inner: &inner}
}

// NonNullValue marks a nullable as set without carrying the inner value; the
// inner value lives at the path's ".value" children.
func NonNullValue() Value {
	return Value{kind: schema.KindNullable}
}

func (v Value) Kind() schema.Kind { return v.kind }

func (v Value) IsValid() bool { return v.kind != schema.KindInvalid }

func (v Value) AsBoolean() (bool, bool) {
	return v.boolean, v.kind == schema.KindBoolean
}

func (v Value) AsI32() (int32, bool) {
	return int32(v.i), v.kind == schema.KindI32
}

func (v Value) AsI64() (int64, bool) {
	return v.i, v.kind == schema.KindI64
}

func (v Value) AsU32() (uint32, bool) {
	return uint32(v.u), v.kind == schema.KindU32
}

func (v Value) AsU64() (uint64, bool) {
	return v.u, v.kind == schema.KindU64
}

func (v Value) AsF32() (float32, bool) {
	return float32(v.f), v.kind == schema.KindF32
}

func (v Value) AsF64() (float64, bool) {
	return v.f, v.kind == schema.KindF64
}

func (v Value) AsBytes() ([]byte, bool) {
	return v.buf, v.kind == schema.KindBytes
}

func (v Value) AsString() (string, bool) {
	return v.str, v.kind == schema.KindString
}

func (v Value) AsEnum() (string, bool) {
	return v.str, v.kind == schema.KindEnum
}

func (v Value) AsFixed() ([]byte, bool) {
	return v.buf, v.kind == schema.KindFixed
}

func (v Value) AsAssetRef() (AssetId, bool) {
	return v.ref, v.kind == schema.KindAssetRef
}

// AsNullable returns (inner, isNull, ok).
func (v Value) AsNullable() (*Value, bool, bool) {
	if v.kind != schema.KindNullable {
		return nil, false, false
	}
	return v.inner, v.isNull, true
}

// DefaultValue is the type default for a schema: zero for numerics, false,
// empty string/bytes, null for nullables, the first symbol for enums, zeroed
// bytes for fixed, and the null id for asset refs.
func DefaultValue(set *schema.Set, s schema.Schema) Value {
	switch s.Kind() {
	case schema.KindNullable:
		return NullValue()
	case schema.KindBoolean:
		return BooleanValue(false)
	case schema.KindI32:
		return I32Value(0)
	case schema.KindI64:
		return I64Value(0)
	case schema.KindU32:
		return U32Value(0)
	case schema.KindU64:
		return U64Value(0)
	case schema.KindF32:
		return F32Value(0)
	case schema.KindF64:
		return F64Value(0)
	case schema.KindBytes:
		return BytesValue(nil)
	case schema.KindString:
		return StringValue("")
	case schema.KindAssetRef:
		return AssetRefValue(AssetIdNull)
	case schema.KindEnum:
		if e, ok := set.Enum(s.Fingerprint()); ok {
			if sym := e.DefaultSymbol(); sym != nil {
				return EnumValue(sym.Name)
			}
		}
		return EnumValue("")
	case schema.KindFixed:
		if f, ok := set.Fixed(s.Fingerprint()); ok {
			return FixedValue(make([]byte, f.Length()))
		}
		return FixedValue(nil)
	}
	return Value{}
}

// MatchesSchema reports whether the value may be stored at a property of the
// given schema. Enum symbols are validated against the symbol list; fixed
// values must have the exact length.
func (v Value) MatchesSchema(set *schema.Set, s schema.Schema) bool {
	switch s.Kind() {
	case schema.KindNullable:
		if v.kind != schema.KindNullable {
			return false
		}
		if v.isNull || v.inner == nil {
			return v.isNull
		}
		return v.inner.MatchesSchema(set, s.Inner())
	case schema.KindEnum:
		if v.kind != schema.KindEnum {
			return false
		}
		e, ok := set.Enum(s.Fingerprint())
		if !ok {
			return false
		}
		_, found := e.Symbol(v.str)
		return found
	case schema.KindFixed:
		if v.kind != schema.KindFixed {
			return false
		}
		f, ok := set.Fixed(s.Fingerprint())
		return ok && len(v.buf) == f.Length()
	default:
		return v.kind == s.Kind()
	}
}

// Equal is structural equality; floats compare by bit pattern so that
// serialization round-trips compare clean.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case schema.KindBoolean:
		return v.boolean == other.boolean
	case schema.KindI32, schema.KindI64:
		return v.i == other.i
	case schema.KindU32, schema.KindU64:
		return v.u == other.u
	case schema.KindF32:
		return math.Float32bits(float32(v.f)) == math.Float32bits(float32(other.f))
	case schema.KindF64:
		return math.Float64bits(v.f) == math.Float64bits(other.f)
	case schema.KindBytes, schema.KindFixed:
		return bytes.Equal(v.buf, other.buf)
	case schema.KindString, schema.KindEnum:
		return v.str == other.str
	case schema.KindAssetRef:
		return v.ref == other.ref
	case schema.KindNullable:
		if v.isNull != other.isNull {
			return false
		}
		if v.isNull {
			return true
		}
		if (v.inner == nil) != (other.inner == nil) {
			return false
		}
		return v.inner == nil || v.inner.Equal(*other.inner)
	}
	return false
}

// HashInto writes the value into a hasher, kind-tagged so that values of
// different kinds never collide.
func (v Value) HashInto(h hash.Hash) {
	utils.HashString(h, v.kind.String())
	utils.HashByte(h, utils.HASH_PIPE)
	switch v.kind {
	case schema.KindBoolean:
		utils.HashBool(h, v.boolean)
	case schema.KindI32, schema.KindI64:
		utils.HashInt64(h, v.i)
	case schema.KindU32, schema.KindU64:
		utils.HashUint64(h, v.u)
	case schema.KindF32:
		utils.HashFloat32(h, float32(v.f))
	case schema.KindF64:
		utils.HashFloat64(h, v.f)
	case schema.KindBytes, schema.KindFixed:
		_, _ = h.Write(v.buf)
	case schema.KindString, schema.KindEnum:
		utils.HashString(h, v.str)
	case schema.KindAssetRef:
		v.ref.HashInto(h)
	case schema.KindNullable:
		utils.HashBool(h, v.isNull)
		if !v.isNull && v.inner != nil {
			v.inner.HashInto(h)
		}
	}
}
