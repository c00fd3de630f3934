// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package schema

// NamedType is a linked, fingerprinted type definition: a record, an enum or
// a fixed-length byte block.
type NamedType interface {
	Name() string
	Fingerprint() Fingerprint
	Aliases() []string
	Schema() Schema
}

// FieldMarkup carries editor hints attached to a record field. It never
// affects fingerprints or build output.
type FieldMarkup struct {
	DisplayName string
	Description string
	Category    string
	ClampMin    *float64
	ClampMax    *float64
	UIMin       *float64
	UIMax       *float64
}

// RecordMarkup carries editor hints attached to a record type.
type RecordMarkup struct {
	DisplayName string
	Tags        []string
}

// RecordField is one ordered field of a record.
type RecordField struct {
	Name    string
	Aliases []string
	Schema  Schema
	Markup  FieldMarkup
}

// matches reports whether name is the field's name or one of its aliases.
func (f *RecordField) matches(name string) bool {
	if f.Name == name {
		return true
	}
	for _, alias := range f.Aliases {
		if alias == name {
			return true
		}
	}
	return false
}

// Record is a named type with ordered fields. Field names are unique,
// enforced when the type is added to a Linker.
type Record struct {
	name        string
	fingerprint Fingerprint
	aliases     []string
	fields      []RecordField
	markup      RecordMarkup
}

func (r *Record) Name() string             { return r.name }
func (r *Record) Fingerprint() Fingerprint { return r.fingerprint }
func (r *Record) Aliases() []string        { return r.aliases }
func (r *Record) Fields() []RecordField    { return r.fields }
func (r *Record) Markup() RecordMarkup     { return r.markup }

// Schema returns a reference schema pointing at this record.
func (r *Record) Schema() Schema { return RecordSchema(r.fingerprint) }

// Field finds a field by name or alias.
func (r *Record) Field(name string) (*RecordField, bool) {
	for i := range r.fields {
		if r.fields[i].matches(name) {
			return &r.fields[i], true
		}
	}
	return nil, false
}

// EnumSymbol is one ordered symbol of an enum.
type EnumSymbol struct {
	Name    string
	Aliases []string
}

// Enum is a named type whose values are one of an ordered symbol list.
type Enum struct {
	name        string
	fingerprint Fingerprint
	aliases     []string
	symbols     []EnumSymbol
}

func (e *Enum) Name() string             { return e.name }
func (e *Enum) Fingerprint() Fingerprint { return e.fingerprint }
func (e *Enum) Aliases() []string        { return e.aliases }
func (e *Enum) Symbols() []EnumSymbol    { return e.symbols }
func (e *Enum) Schema() Schema           { return EnumSchema(e.fingerprint) }

// Symbol finds a symbol by name or alias, returning the canonical symbol.
func (e *Enum) Symbol(name string) (*EnumSymbol, bool) {
	for i := range e.symbols {
		if e.symbols[i].Name == name {
			return &e.symbols[i], true
		}
		for _, alias := range e.symbols[i].Aliases {
			if alias == name {
				return &e.symbols[i], true
			}
		}
	}
	return nil, false
}

// DefaultSymbol returns the first symbol, the enum's type default.
func (e *Enum) DefaultSymbol() *EnumSymbol {
	if len(e.symbols) == 0 {
		return nil
	}
	return &e.symbols[0]
}

// Fixed is a named type holding an exact number of bytes.
type Fixed struct {
	name        string
	fingerprint Fingerprint
	aliases     []string
	length      int
}

func (f *Fixed) Name() string             { return f.name }
func (f *Fixed) Fingerprint() Fingerprint { return f.fingerprint }
func (f *Fixed) Aliases() []string        { return f.aliases }
func (f *Fixed) Length() int              { return f.length }
func (f *Fixed) Schema() Schema           { return FixedSchema(f.fingerprint) }

// AsRecord downcasts a named type to a record.
func AsRecord(nt NamedType) (*Record, bool) {
	r, ok := nt.(*Record)
	return r, ok
}

// AsEnum downcasts a named type to an enum.
func AsEnum(nt NamedType) (*Enum, bool) {
	e, ok := nt.(*Enum)
	return e, ok
}

// AsFixed downcasts a named type to a fixed byte block.
func AsFixed(nt NamedType) (*Fixed, bool) {
	f, ok := nt.(*Fixed)
	return f, ok
}
