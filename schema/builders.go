// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package schema

// RecordBuilder accumulates fields for a record type registered in code.
type RecordBuilder struct {
	aliases []string
	fields  []defField
	markup  RecordMarkup
}

// AddAlias registers an old name for this type, applied at link time.
func (b *RecordBuilder) AddAlias(alias string) {
	b.aliases = append(b.aliases, alias)
}

// SetMarkup attaches editor hints to the record.
func (b *RecordBuilder) SetMarkup(markup RecordMarkup) {
	b.markup = markup
}

// AddField adds a field of any type.
func (b *RecordBuilder) AddField(name string, ref TypeRef) *FieldBuilder {
	b.fields = append(b.fields, defField{name: name, ref: ref})
	return &FieldBuilder{field: &b.fields[len(b.fields)-1]}
}

func (b *RecordBuilder) AddBoolean(name string) *FieldBuilder { return b.AddField(name, BooleanRef()) }
func (b *RecordBuilder) AddI32(name string) *FieldBuilder     { return b.AddField(name, I32Ref()) }
func (b *RecordBuilder) AddI64(name string) *FieldBuilder     { return b.AddField(name, I64Ref()) }
func (b *RecordBuilder) AddU32(name string) *FieldBuilder     { return b.AddField(name, U32Ref()) }
func (b *RecordBuilder) AddU64(name string) *FieldBuilder     { return b.AddField(name, U64Ref()) }
func (b *RecordBuilder) AddF32(name string) *FieldBuilder     { return b.AddField(name, F32Ref()) }
func (b *RecordBuilder) AddF64(name string) *FieldBuilder     { return b.AddField(name, F64Ref()) }
func (b *RecordBuilder) AddBytes(name string) *FieldBuilder   { return b.AddField(name, BytesRef()) }
func (b *RecordBuilder) AddString(name string) *FieldBuilder  { return b.AddField(name, StringRef()) }

func (b *RecordBuilder) AddNullable(name string, inner TypeRef) *FieldBuilder {
	return b.AddField(name, NullableRef(inner))
}

func (b *RecordBuilder) AddStaticArray(name string, item TypeRef, length int) *FieldBuilder {
	return b.AddField(name, StaticArrayRef(item, length))
}

func (b *RecordBuilder) AddDynamicArray(name string, item TypeRef) *FieldBuilder {
	return b.AddField(name, DynamicArrayRef(item))
}

func (b *RecordBuilder) AddMap(name string, key, value TypeRef) *FieldBuilder {
	return b.AddField(name, MapRef(key, value))
}

func (b *RecordBuilder) AddNamedType(name, typeName string) *FieldBuilder {
	return b.AddField(name, Named(typeName))
}

func (b *RecordBuilder) AddAssetRef(name, typeName string) *FieldBuilder {
	return b.AddField(name, RefTo(typeName))
}

// FieldBuilder decorates the field just added to a RecordBuilder.
type FieldBuilder struct {
	field *defField
}

// AddAlias registers an old name for the field.
func (b *FieldBuilder) AddAlias(alias string) *FieldBuilder {
	b.field.aliases = append(b.field.aliases, alias)
	return b
}

// SetMarkup attaches editor hints to the field.
func (b *FieldBuilder) SetMarkup(markup FieldMarkup) *FieldBuilder {
	b.field.markup = markup
	return b
}

// EnumBuilder accumulates symbols for an enum type registered in code.
type EnumBuilder struct {
	aliases []string
	symbols []defSymbol
}

// AddAlias registers an old name for this type.
func (b *EnumBuilder) AddAlias(alias string) {
	b.aliases = append(b.aliases, alias)
}

// AddSymbol appends a symbol; symbol order is the authored order and the
// first symbol is the type default.
func (b *EnumBuilder) AddSymbol(name string, aliases ...string) {
	b.symbols = append(b.symbols, defSymbol{name: name, aliases: aliases})
}

// FixedBuilder decorates a fixed-length byte type registered in code.
type FixedBuilder struct {
	aliases []string
}

// AddAlias registers an old name for this type.
func (b *FixedBuilder) AddAlias(alias string) {
	b.aliases = append(b.aliases, alias)
}
