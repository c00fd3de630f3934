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

// DataSet is the keyed collection of authored assets. Assets reference each
// other (prototypes, locations, asset refs) by id only; all relations resolve
// through the one owning map, so reference cycles in the data cannot create
// reference cycles in memory.
type DataSet struct {
	assets map[AssetId]*DataAssetInfo
}

// NewDataSet creates an empty data set.
func NewDataSet() *DataSet {
	return &DataSet{assets: make(map[AssetId]*DataAssetInfo)}
}

// Assets exposes the underlying asset map. Treat as read-only.
func (d *DataSet) Assets() map[AssetId]*DataAssetInfo {
	return d.assets
}

// Asset looks up one asset.
func (d *DataSet) Asset(id AssetId) (*DataAssetInfo, error) {
	a, ok := d.assets[id]
	if !ok {
		return nil, ErrAssetNotFound
	}
	return a, nil
}

// Clone deep-copies the data set. Builds clone the set once at cycle start
// and hand the copy read-only to workers.
func (d *DataSet) Clone() *DataSet {
	clone := &DataSet{assets: make(map[AssetId]*DataAssetInfo, len(d.assets))}
	for id, info := range d.assets {
		clone.assets[id] = info.Clone()
	}
	return clone
}

//
// Lifecycle
//

// NewAsset creates an asset with a fresh id.
func (d *DataSet) NewAsset(name AssetName, location AssetLocation, rec *schema.Record) AssetId {
	id := NewAssetId()
	d.assets[id] = newDataAssetInfo(name, location, rec)
	return id
}

// NewAssetWithId creates an asset under a caller-chosen id, failing if the id
// is taken or null.
func (d *DataSet) NewAssetWithId(id AssetId, name AssetName, location AssetLocation, rec *schema.Record) error {
	if id.IsNull() {
		return ErrAssetNotFound
	}
	if _, exists := d.assets[id]; exists {
		return ErrDuplicateEntry
	}
	d.assets[id] = newDataAssetInfo(name, location, rec)
	return nil
}

// NewAssetFromPrototype creates an asset inheriting everything from the
// prototype: same schema, no overrides of its own.
func (d *DataSet) NewAssetFromPrototype(name AssetName, location AssetLocation, prototype AssetId) (AssetId, error) {
	proto, ok := d.assets[prototype]
	if !ok {
		return AssetIdNull, ErrAssetNotFound
	}
	id := NewAssetId()
	info := newDataAssetInfo(name, location, proto.schema)
	info.prototype = prototype
	d.assets[id] = info
	return id, nil
}

// RestoreAsset reinstates an asset from storage or from a diff, byte-faithful
// to the captured state.
func (d *DataSet) RestoreAsset(
	id AssetId,
	name AssetName,
	location AssetLocation,
	importInfo *ImportInfo,
	buildInfo BuildInfo,
	set *schema.Set,
	prototype AssetId,
	fingerprint schema.Fingerprint,
	properties map[string]Value,
	propertyNullOverrides map[string]NullOverride,
	propertiesInReplaceMode map[string]struct{},
	dynamicCollectionEntries map[string]*orderedmap.Set[uuid.UUID],
) error {
	rec, ok := set.Record(fingerprint)
	if !ok {
		return ErrSchemaNotFound
	}
	info := newDataAssetInfo(name, location, rec)
	info.importInfo = importInfo
	info.buildInfo = buildInfo
	info.prototype = prototype
	if properties != nil {
		info.properties = properties
	}
	if propertyNullOverrides != nil {
		info.propertyNullOverrides = propertyNullOverrides
	}
	if propertiesInReplaceMode != nil {
		info.propertiesInReplaceMode = propertiesInReplaceMode
	}
	if dynamicCollectionEntries != nil {
		info.dynamicCollectionEntries = dynamicCollectionEntries
	}
	d.assets[id] = info
	return nil
}

// DeleteAsset removes an asset. Assets referencing it keep their dangling
// references; they surface at resolution time.
func (d *DataSet) DeleteAsset(id AssetId) error {
	if _, ok := d.assets[id]; !ok {
		return ErrAssetNotFound
	}
	delete(d.assets, id)
	return nil
}

// SetAssetName renames an asset.
func (d *DataSet) SetAssetName(id AssetId, name AssetName) error {
	a, err := d.Asset(id)
	if err != nil {
		return err
	}
	a.name = name
	return nil
}

// SetAssetLocation moves an asset, refusing moves that would place a path
// node under itself.
func (d *DataSet) SetAssetLocation(id AssetId, location AssetLocation) error {
	a, err := d.Asset(id)
	if err != nil {
		return err
	}
	// walk up from the new parent; finding ourselves means a cycle
	seen := map[AssetId]struct{}{}
	for cur := location.PathNodeId; !cur.IsNull(); {
		if cur == id {
			return ErrLocationCycle
		}
		if _, visited := seen[cur]; visited {
			break
		}
		seen[cur] = struct{}{}
		parent, ok := d.assets[cur]
		if !ok {
			break
		}
		cur = parent.location.PathNodeId
	}
	a.location = location
	return nil
}

// AssetLocationChain returns the locations from the asset's parent up to the
// root. Dangling path nodes end the chain.
func (d *DataSet) AssetLocationChain(id AssetId) ([]AssetLocation, error) {
	a, err := d.Asset(id)
	if err != nil {
		return nil, err
	}
	var chain []AssetLocation
	seen := map[AssetId]struct{}{}
	for cur := a.location; !cur.IsRoot(); {
		chain = append(chain, cur)
		if _, visited := seen[cur.PathNodeId]; visited {
			break
		}
		seen[cur.PathNodeId] = struct{}{}
		node, ok := d.assets[cur.PathNodeId]
		if !ok {
			break
		}
		cur = node.location
	}
	return chain, nil
}

// SetPrototype repoints the asset's prototype, refusing cycles and schema
// mismatches.
func (d *DataSet) SetPrototype(id AssetId, prototype AssetId) error {
	a, err := d.Asset(id)
	if err != nil {
		return err
	}
	if prototype.IsNull() {
		a.prototype = AssetIdNull
		return nil
	}
	proto, ok := d.assets[prototype]
	if !ok {
		return ErrAssetNotFound
	}
	if proto.schema.Fingerprint() != a.schema.Fingerprint() {
		return ErrInvalidSchema
	}
	for cur := prototype; !cur.IsNull(); {
		if cur == id {
			return ErrPrototypeCycle
		}
		ancestor, found := d.assets[cur]
		if !found {
			break
		}
		cur = ancestor.prototype
	}
	a.prototype = prototype
	return nil
}

// SetImportInfo attaches import provenance to an asset.
func (d *DataSet) SetImportInfo(id AssetId, info *ImportInfo) error {
	a, err := d.Asset(id)
	if err != nil {
		return err
	}
	a.importInfo = info
	return nil
}

// ImportInfoFor returns the asset's import provenance, if any.
func (d *DataSet) ImportInfoFor(id AssetId) (*ImportInfo, error) {
	a, err := d.Asset(id)
	if err != nil {
		return nil, err
	}
	return a.importInfo, nil
}

// AssetSchema returns the record schema of an asset.
func (d *DataSet) AssetSchema(id AssetId) (*schema.Record, error) {
	a, err := d.Asset(id)
	if err != nil {
		return nil, err
	}
	return a.schema, nil
}

// AssetPrototype returns the asset's prototype id (null if none).
func (d *DataSet) AssetPrototype(id AssetId) (AssetId, error) {
	a, err := d.Asset(id)
	if err != nil {
		return AssetIdNull, err
	}
	return a.prototype, nil
}

// AssetName returns the asset's name.
func (d *DataSet) AssetName(id AssetId) (AssetName, error) {
	a, err := d.Asset(id)
	if err != nil {
		return "", err
	}
	return a.name, nil
}

// AssetLocation returns the asset's location.
func (d *DataSet) AssetLocation(id AssetId) (AssetLocation, error) {
	a, err := d.Asset(id)
	if err != nil {
		return AssetLocation{}, err
	}
	return a.location, nil
}

//
// Path existence
//

// chain yields the asset and its prototypes, nearest first. Corrupt data with
// a prototype cycle terminates rather than spinning.
func (d *DataSet) chain(id AssetId) []*DataAssetInfo {
	var out []*DataAssetInfo
	seen := map[AssetId]struct{}{}
	for cur := id; !cur.IsNull(); {
		if _, visited := seen[cur]; visited {
			break
		}
		seen[cur] = struct{}{}
		a, ok := d.assets[cur]
		if !ok {
			break
		}
		out = append(out, a)
		cur = a.prototype
	}
	return out
}

// checkPathExists verifies that every nullable ancestor resolves non-null and
// every container entry crossed by the path is present for this asset.
func (d *DataSet) checkPathExists(set *schema.Set, id AssetId, ancestry *schema.PathAncestry) error {
	for _, nullablePath := range ancestry.NullableAncestors {
		override, err := d.ResolveNullOverride(set, id, nullablePath)
		if err != nil {
			return err
		}
		if override != NullOverrideSetNonNull {
			return ErrPathParentIsNull
		}
	}
	for _, ref := range ancestry.DynamicArrayAncestors {
		entries, err := d.resolveEntries(set, id, ref.ContainerPath, schema.KindDynamicArray)
		if err != nil {
			return err
		}
		if !containsEntry(entries, ref.Entry) {
			return ErrPathDynamicArrayEntryDoesNotExist
		}
	}
	for _, ref := range ancestry.MapAncestors {
		entries, err := d.resolveEntries(set, id, ref.ContainerPath, schema.KindMap)
		if err != nil {
			return err
		}
		if !containsEntry(entries, ref.Entry) {
			return ErrPathDynamicArrayEntryDoesNotExist
		}
	}
	return nil
}

func containsEntry(entries []uuid.UUID, entry uuid.UUID) bool {
	for _, e := range entries {
		if e == entry {
			return true
		}
	}
	return false
}

//
// Null overrides
//

// GetNullOverride returns the asset's own explicit override at path, or
// Unset. The schema at path must be nullable.
func (d *DataSet) GetNullOverride(set *schema.Set, id AssetId, path string) (NullOverride, error) {
	a, err := d.Asset(id)
	if err != nil {
		return NullOverrideUnset, err
	}
	s, _, err := set.PropertySchemaAndAncestors(a.schema, path)
	if err != nil {
		return NullOverrideUnset, ErrInvalidPath
	}
	if !s.IsNullable() {
		return NullOverrideUnset, ErrInvalidSchema
	}
	return a.propertyNullOverrides[path], nil
}

// SetNullOverride records an explicit null decision on this asset. Passing
// Unset removes the override.
func (d *DataSet) SetNullOverride(set *schema.Set, id AssetId, path string, override NullOverride) error {
	a, err := d.Asset(id)
	if err != nil {
		return err
	}
	s, ancestry, err := set.PropertySchemaAndAncestors(a.schema, path)
	if err != nil {
		return ErrInvalidPath
	}
	if !s.IsNullable() {
		return ErrInvalidSchema
	}
	if err := d.checkPathExists(set, id, ancestry); err != nil {
		return err
	}
	if override == NullOverrideUnset {
		delete(a.propertyNullOverrides, path)
	} else {
		a.propertyNullOverrides[path] = override
	}
	return nil
}

// RemoveNullOverride clears the asset's own override at path.
func (d *DataSet) RemoveNullOverride(set *schema.Set, id AssetId, path string) error {
	return d.SetNullOverride(set, id, path, NullOverrideUnset)
}

// ResolveNullOverride walks the prototype chain for the first explicit null
// decision; with none found the nullable defaults to null.
func (d *DataSet) ResolveNullOverride(set *schema.Set, id AssetId, path string) (NullOverride, error) {
	a, err := d.Asset(id)
	if err != nil {
		return NullOverrideUnset, err
	}
	s, ancestry, err := set.PropertySchemaAndAncestors(a.schema, path)
	if err != nil {
		return NullOverrideUnset, ErrInvalidPath
	}
	if !s.IsNullable() {
		return NullOverrideUnset, ErrInvalidSchema
	}
	if err := d.checkPathExists(set, id, ancestry); err != nil {
		return NullOverrideUnset, err
	}
	for _, link := range d.chain(id) {
		if override, ok := link.propertyNullOverrides[path]; ok && override != NullOverrideUnset {
			return override, nil
		}
	}
	return NullOverrideSetNull, nil
}

//
// Property overrides
//

// HasPropertyOverride reports whether this asset itself overrides path.
func (d *DataSet) HasPropertyOverride(id AssetId, path string) (bool, error) {
	a, err := d.Asset(id)
	if err != nil {
		return false, err
	}
	_, ok := a.properties[path]
	return ok, nil
}

// GetPropertyOverride returns the asset's own value at path without
// consulting the prototype chain or defaults.
func (d *DataSet) GetPropertyOverride(id AssetId, path string) (Value, bool, error) {
	a, err := d.Asset(id)
	if err != nil {
		return Value{}, false, err
	}
	v, ok := a.properties[path]
	return v, ok, nil
}

// SetPropertyOverride stores a value on this asset, making path overridden.
func (d *DataSet) SetPropertyOverride(set *schema.Set, id AssetId, path string, value Value) error {
	a, err := d.Asset(id)
	if err != nil {
		return err
	}
	s, ancestry, err := set.PropertySchemaAndAncestors(a.schema, path)
	if err != nil {
		return ErrInvalidPath
	}
	if !value.MatchesSchema(set, s) {
		return ErrValueDoesNotMatchSchema
	}
	if err := d.checkPathExists(set, id, ancestry); err != nil {
		return err
	}
	a.properties[path] = value
	return nil
}

// RemovePropertyOverride clears the asset's own value at path, returning the
// removed value if there was one.
func (d *DataSet) RemovePropertyOverride(id AssetId, path string) (Value, bool, error) {
	a, err := d.Asset(id)
	if err != nil {
		return Value{}, false, err
	}
	v, ok := a.properties[path]
	if ok {
		delete(a.properties, path)
	}
	return v, ok, nil
}

// ResolveProperty returns the effective value at path: the nearest override
// on the prototype chain, or the schema's type default.
func (d *DataSet) ResolveProperty(set *schema.Set, id AssetId, path string) (Value, error) {
	a, err := d.Asset(id)
	if err != nil {
		return Value{}, err
	}
	s, ancestry, err := set.PropertySchemaAndAncestors(a.schema, path)
	if err != nil {
		return Value{}, ErrInvalidPath
	}
	if err := d.checkPathExists(set, id, ancestry); err != nil {
		return Value{}, err
	}

	if s.IsNullable() {
		override, err := d.ResolveNullOverride(set, id, path)
		if err != nil {
			return Value{}, err
		}
		if override == NullOverrideSetNonNull {
			return NonNullValue(), nil
		}
		return NullValue(), nil
	}

	switch s.Kind() {
	case schema.KindRecord, schema.KindStaticArray, schema.KindDynamicArray, schema.KindMap:
		return Value{}, ErrInvalidSchema
	}

	for _, link := range d.chain(id) {
		if v, ok := link.properties[path]; ok {
			return v, nil
		}
	}
	return DefaultValue(set, s), nil
}

// ApplyPropertyOverrideToPrototype pushes the resolved value at path onto the
// immediate prototype and clears the local override.
func (d *DataSet) ApplyPropertyOverrideToPrototype(set *schema.Set, id AssetId, path string) error {
	a, err := d.Asset(id)
	if err != nil {
		return err
	}
	if a.prototype.IsNull() {
		return nil
	}
	value, err := d.ResolveProperty(set, id, path)
	if err != nil {
		return err
	}
	if err := d.SetPropertyOverride(set, a.prototype, path, value); err != nil {
		return err
	}
	_, _, err = d.RemovePropertyOverride(id, path)
	return err
}

//
// Dynamic collections
//

func (d *DataSet) containerSchema(set *schema.Set, a *DataAssetInfo, path string, kind schema.Kind) (*schema.PathAncestry, error) {
	s, ancestry, err := set.PropertySchemaAndAncestors(a.schema, path)
	if err != nil {
		return nil, ErrInvalidPath
	}
	if s.Kind() != kind {
		return nil, ErrInvalidSchema
	}
	return ancestry, nil
}

func (d *DataSet) addEntry(set *schema.Set, id AssetId, path string, kind schema.Kind) (uuid.UUID, error) {
	a, err := d.Asset(id)
	if err != nil {
		return uuid.Nil, err
	}
	ancestry, err := d.containerSchema(set, a, path, kind)
	if err != nil {
		return uuid.Nil, err
	}
	if err := d.checkPathExists(set, id, ancestry); err != nil {
		return uuid.Nil, err
	}
	entry := uuid.New()
	entries := a.dynamicCollectionEntries[path]
	if entries == nil {
		entries = orderedmap.NewSet[uuid.UUID]()
		a.dynamicCollectionEntries[path] = entries
	}
	if !entries.TryInsertAtEnd(entry) {
		return uuid.Nil, ErrDuplicateEntry
	}
	return entry, nil
}

// AddDynamicArrayEntry appends a fresh entry to the asset's own set at path.
func (d *DataSet) AddDynamicArrayEntry(set *schema.Set, id AssetId, path string) (uuid.UUID, error) {
	return d.addEntry(set, id, path, schema.KindDynamicArray)
}

// AddMapEntry appends a fresh entry to the asset's own map at path.
func (d *DataSet) AddMapEntry(set *schema.Set, id AssetId, path string) (uuid.UUID, error) {
	return d.addEntry(set, id, path, schema.KindMap)
}

// InsertDynamicArrayEntry places a caller-supplied entry id at an index in
// the asset's own set.
func (d *DataSet) InsertDynamicArrayEntry(set *schema.Set, id AssetId, path string, index int, entry uuid.UUID) error {
	a, err := d.Asset(id)
	if err != nil {
		return err
	}
	ancestry, err := d.containerSchema(set, a, path, schema.KindDynamicArray)
	if err != nil {
		return err
	}
	if err := d.checkPathExists(set, id, ancestry); err != nil {
		return err
	}
	entries := a.dynamicCollectionEntries[path]
	if entries == nil {
		entries = orderedmap.NewSet[uuid.UUID]()
		a.dynamicCollectionEntries[path] = entries
	}
	if !entries.TryInsertAt(index, entry) {
		return ErrDuplicateEntry
	}
	return nil
}

func (d *DataSet) removeEntry(set *schema.Set, id AssetId, path string, kind schema.Kind, entry uuid.UUID) (bool, error) {
	a, err := d.Asset(id)
	if err != nil {
		return false, err
	}
	if _, err := d.containerSchema(set, a, path, kind); err != nil {
		return false, err
	}
	entries := a.dynamicCollectionEntries[path]
	if entries == nil {
		return false, nil
	}
	removed := entries.Remove(entry)
	if entries.Len() == 0 {
		delete(a.dynamicCollectionEntries, path)
	}
	return removed, nil
}

// RemoveDynamicArrayEntry deletes an entry from the asset's own set,
// reporting whether it was present.
func (d *DataSet) RemoveDynamicArrayEntry(set *schema.Set, id AssetId, path string, entry uuid.UUID) (bool, error) {
	return d.removeEntry(set, id, path, schema.KindDynamicArray, entry)
}

// RemoveMapEntry deletes an entry from the asset's own map.
func (d *DataSet) RemoveMapEntry(set *schema.Set, id AssetId, path string, entry uuid.UUID) (bool, error) {
	return d.removeEntry(set, id, path, schema.KindMap, entry)
}

// GetDynamicArrayEntries returns only the asset's own entries at path.
func (d *DataSet) GetDynamicArrayEntries(set *schema.Set, id AssetId, path string) ([]uuid.UUID, error) {
	a, err := d.Asset(id)
	if err != nil {
		return nil, err
	}
	if _, err := d.containerSchema(set, a, path, schema.KindDynamicArray); err != nil {
		return nil, err
	}
	return a.dynamicCollectionEntries[path].Items(), nil
}

func (d *DataSet) resolveEntries(set *schema.Set, id AssetId, path string, kind schema.Kind) ([]uuid.UUID, error) {
	a, err := d.Asset(id)
	if err != nil {
		return nil, err
	}
	ancestry, err := d.containerSchema(set, a, path, kind)
	if err != nil {
		return nil, err
	}
	if err := d.checkPathExists(set, id, ancestry); err != nil {
		return nil, err
	}

	// gather the chain, cut off above the first asset in replace mode
	var chain []*DataAssetInfo
	for _, link := range d.chain(id) {
		chain = append(chain, link)
		if _, replace := link.propertiesInReplaceMode[path]; replace {
			break
		}
	}

	// prototype entries first, in their own order, then descendants
	var out []uuid.UUID
	for i := len(chain) - 1; i >= 0; i-- {
		for _, entry := range chain[i].dynamicCollectionEntries[path].Items() {
			if !containsEntry(out, entry) {
				out = append(out, entry)
			}
		}
	}
	return out, nil
}

// ResolveDynamicArrayEntries merges entries down the prototype chain:
// prototype entries first in their original order, the asset's own entries
// after, unless the asset (or an ancestor) switched the path to replace mode.
func (d *DataSet) ResolveDynamicArrayEntries(set *schema.Set, id AssetId, path string) ([]uuid.UUID, error) {
	return d.resolveEntries(set, id, path, schema.KindDynamicArray)
}

// ResolveMapEntries merges map entries the same way dynamic arrays merge.
func (d *DataSet) ResolveMapEntries(set *schema.Set, id AssetId, path string) ([]uuid.UUID, error) {
	return d.resolveEntries(set, id, path, schema.KindMap)
}

// GetOverrideBehavior reports whether the asset's own set at path replaces or
// appends to prototype entries.
func (d *DataSet) GetOverrideBehavior(set *schema.Set, id AssetId, path string) (OverrideBehavior, error) {
	a, err := d.Asset(id)
	if err != nil {
		return OverrideBehaviorAppend, err
	}
	s, _, err := set.PropertySchemaAndAncestors(a.schema, path)
	if err != nil {
		return OverrideBehaviorAppend, ErrInvalidPath
	}
	if !s.IsDynamicArray() && !s.IsMap() {
		return OverrideBehaviorAppend, ErrInvalidSchema
	}
	if _, replace := a.propertiesInReplaceMode[path]; replace {
		return OverrideBehaviorReplace, nil
	}
	return OverrideBehaviorAppend, nil
}

// SetOverrideBehavior switches the asset's own container at path between
// append and replace.
func (d *DataSet) SetOverrideBehavior(set *schema.Set, id AssetId, path string, behavior OverrideBehavior) error {
	a, err := d.Asset(id)
	if err != nil {
		return err
	}
	s, _, err := set.PropertySchemaAndAncestors(a.schema, path)
	if err != nil {
		return ErrInvalidPath
	}
	if !s.IsDynamicArray() && !s.IsMap() {
		return ErrInvalidSchema
	}
	if behavior == OverrideBehaviorReplace {
		a.propertiesInReplaceMode[path] = struct{}{}
	} else {
		delete(a.propertiesInReplaceMode, path)
	}
	return nil
}

//
// File references
//

// SetFileReferenceOverride redirects a canonical source file path to the
// asset owning its imported data.
func (d *DataSet) SetFileReferenceOverride(id AssetId, canonicalPath string, ref AssetId) error {
	a, err := d.Asset(id)
	if err != nil {
		return err
	}
	if a.buildInfo.FileReferenceOverrides == nil {
		a.buildInfo.FileReferenceOverrides = make(map[string]AssetId)
	}
	a.buildInfo.FileReferenceOverrides[canonicalPath] = ref
	return nil
}

// ResolveFileReference walks the prototype chain for the first redirection of
// a canonical path.
func (d *DataSet) ResolveFileReference(id AssetId, canonicalPath string) (AssetId, error) {
	if _, err := d.Asset(id); err != nil {
		return AssetIdNull, err
	}
	for _, link := range d.chain(id) {
		if ref, ok := link.buildInfo.FileReferenceOverrides[canonicalPath]; ok {
			return ref, nil
		}
	}
	return AssetIdNull, nil
}

// ResolveAllFileReferences maps every source file the asset's importer
// recorded to the asset currently owning that file's imported data.
func (d *DataSet) ResolveAllFileReferences(id AssetId) (map[string]AssetId, error) {
	a, err := d.Asset(id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]AssetId)
	if a.importInfo != nil {
		for _, path := range a.importInfo.FileReferences {
			ref, err := d.ResolveFileReference(id, path)
			if err != nil {
				return nil, err
			}
			out[path] = ref
		}
	}
	return out, nil
}

//
// Single object interchange
//

// CopyFromSingleObject replaces the asset's authored state with the contents
// of a self-contained object of the same schema. Used when an import
// regenerates an asset's default state.
func (d *DataSet) CopyFromSingleObject(id AssetId, obj *SingleObject) error {
	a, err := d.Asset(id)
	if err != nil {
		return err
	}
	if a.schema.Fingerprint() != obj.Schema().Fingerprint() {
		return ErrInvalidSchema
	}
	a.properties = make(map[string]Value, len(obj.properties))
	for k, v := range obj.properties {
		a.properties[k] = v
	}
	a.propertyNullOverrides = make(map[string]NullOverride, len(obj.propertyNullOverrides))
	for k, v := range obj.propertyNullOverrides {
		a.propertyNullOverrides[k] = v
	}
	a.dynamicCollectionEntries = make(map[string]*orderedmap.Set[uuid.UUID], len(obj.dynamicCollectionEntries))
	for k, v := range obj.dynamicCollectionEntries {
		a.dynamicCollectionEntries[k] = v.Clone()
	}
	a.propertiesInReplaceMode = make(map[string]struct{})
	return nil
}

//
// Hashing
//

// HashObjectMode selects what contributes to an object hash.
type HashObjectMode int

const (
	// HashObjectModePropertiesOnly covers authored data: schema, prototype,
	// properties, null overrides, replace-mode set, collection entries.
	HashObjectModePropertiesOnly HashObjectMode = iota
	// HashObjectModeFull additionally covers name and location.
	HashObjectModeFull
)

// HashObject produces a deterministic content hash of one asset. Map
// iteration order cannot influence the result: per-key hashes are combined
// with xor before being folded in.
func (d *DataSet) HashObject(id AssetId, mode HashObjectMode) (uint64, error) {
	a, err := d.Asset(id)
	if err != nil {
		return 0, err
	}
	result := utils.WithHasher64(func(h hash.Hash64) {
		fp := a.schema.Fingerprint()
		_, _ = h.Write(fp[:])
		a.prototype.HashInto(h)

		var propertiesHash uint64
		for key, value := range a.properties {
			propertiesHash ^= utils.WithHasher64(func(inner hash.Hash64) {
				utils.HashString(inner, key)
				utils.HashByte(inner, utils.HASH_PIPE)
				value.HashInto(inner)
			})
		}
		utils.HashUint64(h, propertiesHash)

		var nullOverridesHash uint64
		for key, override := range a.propertyNullOverrides {
			nullOverridesHash ^= utils.WithHasher64(func(inner hash.Hash64) {
				utils.HashString(inner, key)
				utils.HashByte(inner, utils.HASH_PIPE)
				utils.HashInt64(inner, int64(override))
			})
		}
		utils.HashUint64(h, nullOverridesHash)

		var replaceModeHash uint64
		for key := range a.propertiesInReplaceMode {
			replaceModeHash ^= utils.WithHasher64(func(inner hash.Hash64) {
				utils.HashString(inner, key)
			})
		}
		utils.HashUint64(h, replaceModeHash)

		var entriesHash uint64
		for key, entries := range a.dynamicCollectionEntries {
			entriesHash ^= utils.WithHasher64(func(inner hash.Hash64) {
				utils.HashString(inner, key)
				utils.HashByte(inner, utils.HASH_PIPE)
				for _, entry := range entries.Items() {
					_, _ = inner.Write(entry[:])
				}
			})
		}
		utils.HashUint64(h, entriesHash)

		if mode == HashObjectModeFull {
			utils.HashString(h, string(a.name))
			utils.HashByte(h, utils.HASH_PIPE)
			a.location.HashInto(h)
		}
	})
	return result, nil
}
