// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package datamodel

import (
	"hash"

	"github.com/google/uuid"
	"github.com/pb33f/assetforge/orderedmap"
	"github.com/pb33f/assetforge/schema"
	"github.com/pb33f/assetforge/utils"
)

// SingleObject is a self-contained instance of one record schema, outside the
// data set: no prototype, no name, no location. Importers produce them and
// build jobs consume them.
type SingleObject struct {
	schemaRecord             *schema.Record
	properties               map[string]Value
	propertyNullOverrides    map[string]NullOverride
	dynamicCollectionEntries map[string]*orderedmap.Set[uuid.UUID]
}

// NewSingleObject creates an empty instance of the record.
func NewSingleObject(rec *schema.Record) *SingleObject {
	return &SingleObject{
		schemaRecord:             rec,
		properties:               make(map[string]Value),
		propertyNullOverrides:    make(map[string]NullOverride),
		dynamicCollectionEntries: make(map[string]*orderedmap.Set[uuid.UUID]),
	}
}

// RestoreSingleObject rebuilds an instance from serialized parts.
func RestoreSingleObject(
	rec *schema.Record,
	properties map[string]Value,
	propertyNullOverrides map[string]NullOverride,
	dynamicCollectionEntries map[string]*orderedmap.Set[uuid.UUID],
) *SingleObject {
	obj := NewSingleObject(rec)
	if properties != nil {
		obj.properties = properties
	}
	if propertyNullOverrides != nil {
		obj.propertyNullOverrides = propertyNullOverrides
	}
	if dynamicCollectionEntries != nil {
		obj.dynamicCollectionEntries = dynamicCollectionEntries
	}
	return obj
}

func (o *SingleObject) Schema() *schema.Record { return o.schemaRecord }

// Properties exposes the raw property map. Treat as read-only.
func (o *SingleObject) Properties() map[string]Value { return o.properties }

// PropertyNullOverrides exposes the raw null override map. Treat as read-only.
func (o *SingleObject) PropertyNullOverrides() map[string]NullOverride {
	return o.propertyNullOverrides
}

// DynamicCollectionEntries exposes the raw entry sets. Treat as read-only.
func (o *SingleObject) DynamicCollectionEntries() map[string]*orderedmap.Set[uuid.UUID] {
	return o.dynamicCollectionEntries
}

// SetNullOverride records a null decision; Unset removes it.
func (o *SingleObject) SetNullOverride(set *schema.Set, path string, override NullOverride) error {
	s, _, err := set.PropertySchemaAndAncestors(o.schemaRecord, path)
	if err != nil {
		return ErrInvalidPath
	}
	if !s.IsNullable() {
		return ErrInvalidSchema
	}
	if override == NullOverrideUnset {
		delete(o.propertyNullOverrides, path)
	} else {
		o.propertyNullOverrides[path] = override
	}
	return nil
}

// ResolveNullOverride returns the explicit decision at path, defaulting to
// null.
func (o *SingleObject) ResolveNullOverride(set *schema.Set, path string) (NullOverride, error) {
	s, _, err := set.PropertySchemaAndAncestors(o.schemaRecord, path)
	if err != nil {
		return NullOverrideUnset, ErrInvalidPath
	}
	if !s.IsNullable() {
		return NullOverrideUnset, ErrInvalidSchema
	}
	if override, ok := o.propertyNullOverrides[path]; ok && override != NullOverrideUnset {
		return override, nil
	}
	return NullOverrideSetNull, nil
}

// SetProperty stores a value at path.
func (o *SingleObject) SetProperty(set *schema.Set, path string, value Value) error {
	s, _, err := set.PropertySchemaAndAncestors(o.schemaRecord, path)
	if err != nil {
		return ErrInvalidPath
	}
	if !value.MatchesSchema(set, s) {
		return ErrValueDoesNotMatchSchema
	}
	o.properties[path] = value
	return nil
}

// GetProperty returns the stored value at path, if any.
func (o *SingleObject) GetProperty(path string) (Value, bool) {
	v, ok := o.properties[path]
	return v, ok
}

// ResolveProperty returns the stored value or the schema's type default.
func (o *SingleObject) ResolveProperty(set *schema.Set, path string) (Value, error) {
	s, _, err := set.PropertySchemaAndAncestors(o.schemaRecord, path)
	if err != nil {
		return Value{}, ErrInvalidPath
	}
	if v, ok := o.properties[path]; ok {
		return v, nil
	}
	return DefaultValue(set, s), nil
}

// AddDynamicArrayEntry appends a fresh entry at path.
func (o *SingleObject) AddDynamicArrayEntry(set *schema.Set, path string) (uuid.UUID, error) {
	s, _, err := set.PropertySchemaAndAncestors(o.schemaRecord, path)
	if err != nil {
		return uuid.Nil, ErrInvalidPath
	}
	if !s.IsDynamicArray() && !s.IsMap() {
		return uuid.Nil, ErrInvalidSchema
	}
	entry := uuid.New()
	entries := o.dynamicCollectionEntries[path]
	if entries == nil {
		entries = orderedmap.NewSet[uuid.UUID]()
		o.dynamicCollectionEntries[path] = entries
	}
	entries.TryInsertAtEnd(entry)
	return entry, nil
}

// ResolveDynamicArrayEntries lists the entries at path in insertion order.
func (o *SingleObject) ResolveDynamicArrayEntries(set *schema.Set, path string) ([]uuid.UUID, error) {
	s, _, err := set.PropertySchemaAndAncestors(o.schemaRecord, path)
	if err != nil {
		return nil, ErrInvalidPath
	}
	if !s.IsDynamicArray() && !s.IsMap() {
		return nil, ErrInvalidSchema
	}
	return o.dynamicCollectionEntries[path].Items(), nil
}

// Hash is a deterministic content hash of the object, invariant under map
// iteration order.
func (o *SingleObject) Hash() uint64 {
	return utils.WithHasher64(func(h hash.Hash64) {
		fp := o.schemaRecord.Fingerprint()
		_, _ = h.Write(fp[:])

		var propertiesHash uint64
		for key, value := range o.properties {
			propertiesHash ^= utils.WithHasher64(func(inner hash.Hash64) {
				utils.HashString(inner, key)
				utils.HashByte(inner, utils.HASH_PIPE)
				value.HashInto(inner)
			})
		}
		utils.HashUint64(h, propertiesHash)

		var nullOverridesHash uint64
		for key, override := range o.propertyNullOverrides {
			nullOverridesHash ^= utils.WithHasher64(func(inner hash.Hash64) {
				utils.HashString(inner, key)
				utils.HashByte(inner, utils.HASH_PIPE)
				utils.HashInt64(inner, int64(override))
			})
		}
		utils.HashUint64(h, nullOverridesHash)

		var entriesHash uint64
		for key, entries := range o.dynamicCollectionEntries {
			entriesHash ^= utils.WithHasher64(func(inner hash.Hash64) {
				utils.HashString(inner, key)
				utils.HashByte(inner, utils.HASH_PIPE)
				for _, entry := range entries.Items() {
					_, _ = inner.Write(entry[:])
				}
			})
		}
		utils.HashUint64(h, entriesHash)
	})
}

// Clone deep-copies the object.
func (o *SingleObject) Clone() *SingleObject {
	clone := NewSingleObject(o.schemaRecord)
	for k, v := range o.properties {
		clone.properties[k] = v
	}
	for k, v := range o.propertyNullOverrides {
		clone.propertyNullOverrides[k] = v
	}
	for k, v := range o.dynamicCollectionEntries {
		clone.dynamicCollectionEntries[k] = v.Clone()
	}
	return clone
}
