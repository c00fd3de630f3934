// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package datamodel

import (
	"maps"

	"github.com/google/uuid"
	"github.com/pb33f/assetforge/orderedmap"
	"github.com/pb33f/assetforge/schema"
)

// NullOverride records an explicit decision about a nullable property on one
// asset in a prototype chain.
type NullOverride int

const (
	// NullOverrideUnset means the asset says nothing; resolution keeps
	// walking the prototype chain.
	NullOverrideUnset NullOverride = iota
	NullOverrideSetNull
	NullOverrideSetNonNull
)

func (n NullOverride) String() string {
	switch n {
	case NullOverrideSetNull:
		return "SetNull"
	case NullOverrideSetNonNull:
		return "SetNonNull"
	}
	return "Unset"
}

// OverrideBehavior selects how a dynamic container on an asset combines with
// the prototype chain.
type OverrideBehavior int

const (
	// OverrideBehaviorAppend layers the asset's own entries after the
	// prototype's entries.
	OverrideBehaviorAppend OverrideBehavior = iota
	// OverrideBehaviorReplace hides prototype entries entirely.
	OverrideBehaviorReplace
)

// ImportInfo records how an asset was produced from a source file.
type ImportInfo struct {
	ImporterId     ImporterId
	SourceFilePath string
	ImportableName string
	FileReferences []string
}

// Clone deep-copies the info.
func (i *ImportInfo) Clone() *ImportInfo {
	if i == nil {
		return nil
	}
	clone := *i
	clone.FileReferences = append([]string(nil), i.FileReferences...)
	return &clone
}

// BuildInfo carries build-time redirection state for an asset.
type BuildInfo struct {
	// FileReferenceOverrides maps canonical source file paths the asset
	// references to the asset ids that own their imported data.
	FileReferenceOverrides map[string]AssetId
}

// Clone deep-copies the info.
func (b BuildInfo) Clone() BuildInfo {
	return BuildInfo{FileReferenceOverrides: maps.Clone(b.FileReferenceOverrides)}
}

// DataAssetInfo is everything the data set stores for one asset.
type DataAssetInfo struct {
	name                     AssetName
	location                 AssetLocation
	importInfo               *ImportInfo
	buildInfo                BuildInfo
	prototype                AssetId
	schema                   *schema.Record
	properties               map[string]Value
	propertyNullOverrides    map[string]NullOverride
	propertiesInReplaceMode  map[string]struct{}
	dynamicCollectionEntries map[string]*orderedmap.Set[uuid.UUID]
}

func newDataAssetInfo(name AssetName, location AssetLocation, rec *schema.Record) *DataAssetInfo {
	return &DataAssetInfo{
		name:                     name,
		location:                 location,
		schema:                   rec,
		properties:               make(map[string]Value),
		propertyNullOverrides:    make(map[string]NullOverride),
		propertiesInReplaceMode:  make(map[string]struct{}),
		dynamicCollectionEntries: make(map[string]*orderedmap.Set[uuid.UUID]),
	}
}

func (a *DataAssetInfo) Name() AssetName         { return a.name }
func (a *DataAssetInfo) Location() AssetLocation { return a.location }
func (a *DataAssetInfo) ImportInfo() *ImportInfo { return a.importInfo }
func (a *DataAssetInfo) BuildInfo() BuildInfo    { return a.buildInfo }
func (a *DataAssetInfo) Prototype() AssetId      { return a.prototype }
func (a *DataAssetInfo) Schema() *schema.Record  { return a.schema }

func (a *DataAssetInfo) Properties() map[string]Value {
	return a.properties
}

func (a *DataAssetInfo) PropertyNullOverrides() map[string]NullOverride {
	return a.propertyNullOverrides
}

func (a *DataAssetInfo) PropertiesInReplaceMode() map[string]struct{} {
	return a.propertiesInReplaceMode
}

func (a *DataAssetInfo) DynamicCollectionEntries() map[string]*orderedmap.Set[uuid.UUID] {
	return a.dynamicCollectionEntries
}

// Clone deep-copies the asset info.
func (a *DataAssetInfo) Clone() *DataAssetInfo {
	entries := make(map[string]*orderedmap.Set[uuid.UUID], len(a.dynamicCollectionEntries))
	for k, v := range a.dynamicCollectionEntries {
		entries[k] = v.Clone()
	}
	return &DataAssetInfo{
		name:                     a.name,
		location:                 a.location,
		importInfo:               a.importInfo.Clone(),
		buildInfo:                a.buildInfo.Clone(),
		prototype:                a.prototype,
		schema:                   a.schema,
		properties:               maps.Clone(a.properties),
		propertyNullOverrides:    maps.Clone(a.propertyNullOverrides),
		propertiesInReplaceMode:  maps.Clone(a.propertiesInReplaceMode),
		dynamicCollectionEntries: entries,
	}
}
