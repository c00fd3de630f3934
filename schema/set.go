// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package schema

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidPath is returned when a property path does not resolve under a
// record schema.
var ErrInvalidPath = errors.New("path does not resolve under schema")

// Set is an immutable collection of linked named types, indexed by name and by
// fingerprint. A Set is loaded once per process and shared read-only.
type Set struct {
	schemasByName map[string]Fingerprint
	schemas       map[Fingerprint]NamedType
}

// FindNamedType looks a type up by canonical name or alias.
func (s *Set) FindNamedType(name string) (NamedType, bool) {
	fp, ok := s.schemasByName[name]
	if !ok {
		return nil, false
	}
	nt, ok := s.schemas[fp]
	return nt, ok
}

// NamedType resolves a fingerprint to its live definition.
func (s *Set) NamedType(fp Fingerprint) (NamedType, bool) {
	nt, ok := s.schemas[fp]
	return nt, ok
}

// Record resolves a fingerprint to a record definition.
func (s *Set) Record(fp Fingerprint) (*Record, bool) {
	nt, ok := s.schemas[fp]
	if !ok {
		return nil, false
	}
	return AsRecord(nt)
}

// Enum resolves a fingerprint to an enum definition.
func (s *Set) Enum(fp Fingerprint) (*Enum, bool) {
	nt, ok := s.schemas[fp]
	if !ok {
		return nil, false
	}
	return AsEnum(nt)
}

// Fixed resolves a fingerprint to a fixed definition.
func (s *Set) Fixed(fp Fingerprint) (*Fixed, bool) {
	nt, ok := s.schemas[fp]
	if !ok {
		return nil, false
	}
	return AsFixed(nt)
}

// Schemas exposes every linked type, keyed by fingerprint.
func (s *Set) Schemas() map[Fingerprint]NamedType {
	return s.schemas
}

// EntryRef names one dynamic container entry that a path passes through: the
// container's own path plus the entry id that must exist for the tail of the
// path to exist.
type EntryRef struct {
	ContainerPath string
	Entry         uuid.UUID
}

// PathAncestry records everything along a property path that can make the
// path "not exist": nullable ancestors that must resolve non-null, and
// dynamic container entries that must be present.
type PathAncestry struct {
	NullableAncestors     []string
	DynamicArrayAncestors []EntryRef
	MapAncestors          []EntryRef
}

// PropertySchema resolves a dot-separated property path under a record and
// returns the schema at that path. Dynamic array and map steps are entry
// UUIDs; nullables are stepped through with a "value" segment.
func (s *Set) PropertySchema(record *Record, path string) (Schema, error) {
	schema, _, err := s.PropertySchemaAndAncestors(record, path)
	return schema, err
}

// PropertySchemaAndAncestors resolves a property path and also reports the
// nullable and dynamic-container ancestors crossed on the way, which callers
// need to decide whether the path currently exists on a given asset.
func (s *Set) PropertySchemaAndAncestors(record *Record, path string) (Schema, *PathAncestry, error) {
	ancestry := &PathAncestry{}
	current := record.Schema()
	if path == "" {
		return current, ancestry, nil
	}

	var prefix strings.Builder
	var mapEntry *Schema // set while positioned on a map entry id

	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return Schema{}, nil, ErrInvalidPath
		}

		if mapEntry != nil {
			switch segment {
			case "key":
				current = mapEntry.KeyType()
			case "value":
				current = mapEntry.ValueType()
			default:
				return Schema{}, nil, ErrInvalidPath
			}
			mapEntry = nil
			appendSegment(&prefix, segment)
			continue
		}

		switch current.Kind() {
		case KindRecord:
			rec, ok := s.Record(current.Fingerprint())
			if !ok {
				return Schema{}, nil, ErrInvalidPath
			}
			field, ok := rec.Field(segment)
			if !ok {
				return Schema{}, nil, ErrInvalidPath
			}
			current = field.Schema

		case KindNullable:
			if segment != "value" {
				return Schema{}, nil, ErrInvalidPath
			}
			ancestry.NullableAncestors = append(ancestry.NullableAncestors, prefix.String())
			current = current.Inner()

		case KindDynamicArray:
			entry, err := uuid.Parse(segment)
			if err != nil {
				return Schema{}, nil, ErrInvalidPath
			}
			ancestry.DynamicArrayAncestors = append(ancestry.DynamicArrayAncestors, EntryRef{
				ContainerPath: prefix.String(),
				Entry:         entry,
			})
			current = current.Inner()

		case KindStaticArray:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= current.Length() {
				return Schema{}, nil, ErrInvalidPath
			}
			current = current.Inner()

		case KindMap:
			entry, err := uuid.Parse(segment)
			if err != nil {
				return Schema{}, nil, ErrInvalidPath
			}
			ancestry.MapAncestors = append(ancestry.MapAncestors, EntryRef{
				ContainerPath: prefix.String(),
				Entry:         entry,
			})
			c := current
			mapEntry = &c

		default:
			return Schema{}, nil, ErrInvalidPath
		}

		appendSegment(&prefix, segment)
	}

	if mapEntry != nil {
		// a path may not end on a bare map entry id
		return Schema{}, nil, ErrInvalidPath
	}
	return current, ancestry, nil
}

func appendSegment(prefix *strings.Builder, segment string) {
	if prefix.Len() > 0 {
		prefix.WriteByte('.')
	}
	prefix.WriteString(segment)
}
