// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package datamodel

import (
	"github.com/google/uuid"
	"github.com/pb33f/assetforge/orderedmap"
	"github.com/pb33f/assetforge/schema"
)

// dynamicEntryDelta is the add/remove delta for one container path.
type dynamicEntryDelta struct {
	key    string
	add    []uuid.UUID
	remove []uuid.UUID
}

// AssetDiff captures property-level changes to one asset. A diff applies
// idempotently given the same before state.
type AssetDiff struct {
	setName                *AssetName
	setLocation            *AssetLocation
	setPrototype           *AssetId
	setProperties          []propertyChange
	removeProperties       []string
	setNullOverrides       []nullOverrideChange
	removeNullOverrides    []string
	addReplaceModePaths    []string
	removeReplaceModePaths []string
	dynamicEntryDeltas     []dynamicEntryDelta
	setFileReferences      []fileReferenceChange
	removeFileReferences   []string
}

type propertyChange struct {
	key   string
	value Value
}

type nullOverrideChange struct {
	key      string
	override NullOverride
}

type fileReferenceChange struct {
	key string
	ref AssetId
}

// HasChanges reports whether applying the diff would modify anything.
func (a *AssetDiff) HasChanges() bool {
	return a.setName != nil ||
		a.setLocation != nil ||
		a.setPrototype != nil ||
		len(a.setProperties) > 0 ||
		len(a.removeProperties) > 0 ||
		len(a.setNullOverrides) > 0 ||
		len(a.removeNullOverrides) > 0 ||
		len(a.addReplaceModePaths) > 0 ||
		len(a.removeReplaceModePaths) > 0 ||
		len(a.dynamicEntryDeltas) > 0 ||
		len(a.setFileReferences) > 0 ||
		len(a.removeFileReferences) > 0
}

// Apply mutates an asset in place.
func (a *AssetDiff) Apply(asset *DataAssetInfo) {
	if a.setName != nil {
		asset.name = *a.setName
	}
	if a.setLocation != nil {
		asset.location = *a.setLocation
	}
	if a.setPrototype != nil {
		asset.prototype = *a.setPrototype
	}
	for _, change := range a.setProperties {
		asset.properties[change.key] = change.value
	}
	for _, key := range a.removeProperties {
		delete(asset.properties, key)
	}
	for _, change := range a.setNullOverrides {
		asset.propertyNullOverrides[change.key] = change.override
	}
	for _, key := range a.removeNullOverrides {
		delete(asset.propertyNullOverrides, key)
	}
	for _, key := range a.addReplaceModePaths {
		asset.propertiesInReplaceMode[key] = struct{}{}
	}
	for _, key := range a.removeReplaceModePaths {
		delete(asset.propertiesInReplaceMode, key)
	}
	for _, delta := range a.dynamicEntryDeltas {
		entries := asset.dynamicCollectionEntries[delta.key]
		if entries == nil && len(delta.add) > 0 {
			entries = orderedmap.NewSet[uuid.UUID]()
			asset.dynamicCollectionEntries[delta.key] = entries
		}
		if entries == nil {
			continue
		}
		for _, entry := range delta.add {
			entries.TryInsertAtEnd(entry)
		}
		for _, entry := range delta.remove {
			entries.Remove(entry)
		}
		if entries.Len() == 0 {
			delete(asset.dynamicCollectionEntries, delta.key)
		}
	}
	for _, change := range a.setFileReferences {
		if asset.buildInfo.FileReferenceOverrides == nil {
			asset.buildInfo.FileReferenceOverrides = make(map[string]AssetId)
		}
		asset.buildInfo.FileReferenceOverrides[change.key] = change.ref
	}
	for _, key := range a.removeFileReferences {
		delete(asset.buildInfo.FileReferenceOverrides, key)
	}
}

// AssetDiffSet is a paired apply/revert diff for one asset.
type AssetDiffSet struct {
	ApplyDiff  *AssetDiff
	RevertDiff *AssetDiff
}

// HasChanges reports whether the pair changes anything; the apply and revert
// sides always agree.
func (s *AssetDiffSet) HasChanges() bool {
	return s.ApplyDiff.HasChanges()
}

// DiffAssets compares the same asset across two data sets and produces the
// apply/revert pair. Touched locations accumulate into modifiedLocations so
// data sources know which subtrees to persist.
func DiffAssets(before, after *DataSet, id AssetId, modifiedLocations map[AssetLocation]struct{}) *AssetDiffSet {
	beforeObj := before.assets[id]
	afterObj := after.assets[id]

	applyDiff := &AssetDiff{}
	revertDiff := &AssetDiff{}

	if beforeObj.name != afterObj.name {
		applyDiff.setName = ptr(afterObj.name)
		revertDiff.setName = ptr(beforeObj.name)
	}
	if beforeObj.location != afterObj.location {
		applyDiff.setLocation = ptr(afterObj.location)
		revertDiff.setLocation = ptr(beforeObj.location)
	}
	if beforeObj.prototype != afterObj.prototype {
		applyDiff.setPrototype = ptr(afterObj.prototype)
		revertDiff.setPrototype = ptr(beforeObj.prototype)
	}

	// properties
	for key, beforeValue := range beforeObj.properties {
		if afterValue, ok := afterObj.properties[key]; ok {
			if !beforeValue.Equal(afterValue) {
				applyDiff.setProperties = append(applyDiff.setProperties, propertyChange{key, afterValue})
				revertDiff.setProperties = append(revertDiff.setProperties, propertyChange{key, beforeValue})
			}
		} else {
			applyDiff.removeProperties = append(applyDiff.removeProperties, key)
			revertDiff.setProperties = append(revertDiff.setProperties, propertyChange{key, beforeValue})
		}
	}
	for key, afterValue := range afterObj.properties {
		if _, ok := beforeObj.properties[key]; !ok {
			applyDiff.setProperties = append(applyDiff.setProperties, propertyChange{key, afterValue})
			revertDiff.removeProperties = append(revertDiff.removeProperties, key)
		}
	}

	// null overrides
	for key, beforeOverride := range beforeObj.propertyNullOverrides {
		if afterOverride, ok := afterObj.propertyNullOverrides[key]; ok {
			if beforeOverride != afterOverride {
				applyDiff.setNullOverrides = append(applyDiff.setNullOverrides, nullOverrideChange{key, afterOverride})
				revertDiff.setNullOverrides = append(revertDiff.setNullOverrides, nullOverrideChange{key, beforeOverride})
			}
		} else {
			applyDiff.removeNullOverrides = append(applyDiff.removeNullOverrides, key)
			revertDiff.setNullOverrides = append(revertDiff.setNullOverrides, nullOverrideChange{key, beforeOverride})
		}
	}
	for key, afterOverride := range afterObj.propertyNullOverrides {
		if _, ok := beforeObj.propertyNullOverrides[key]; !ok {
			applyDiff.setNullOverrides = append(applyDiff.setNullOverrides, nullOverrideChange{key, afterOverride})
			revertDiff.removeNullOverrides = append(revertDiff.removeNullOverrides, key)
		}
	}

	// replace mode
	for key := range beforeObj.propertiesInReplaceMode {
		if _, ok := afterObj.propertiesInReplaceMode[key]; !ok {
			applyDiff.removeReplaceModePaths = append(applyDiff.removeReplaceModePaths, key)
			revertDiff.addReplaceModePaths = append(revertDiff.addReplaceModePaths, key)
		}
	}
	for key := range afterObj.propertiesInReplaceMode {
		if _, ok := beforeObj.propertiesInReplaceMode[key]; !ok {
			applyDiff.addReplaceModePaths = append(applyDiff.addReplaceModePaths, key)
			revertDiff.removeReplaceModePaths = append(revertDiff.removeReplaceModePaths, key)
		}
	}

	// dynamic collection entries
	for key, oldEntries := range beforeObj.dynamicCollectionEntries {
		if newEntries, ok := afterObj.dynamicCollectionEntries[key]; ok {
			var added, removed []uuid.UUID
			for _, entry := range oldEntries.Items() {
				if !newEntries.Contains(entry) {
					removed = append(removed, entry)
				}
			}
			for _, entry := range newEntries.Items() {
				if !oldEntries.Contains(entry) {
					added = append(added, entry)
				}
			}
			if len(added) > 0 || len(removed) > 0 {
				applyDiff.dynamicEntryDeltas = append(applyDiff.dynamicEntryDeltas,
					dynamicEntryDelta{key: key, add: added, remove: removed})
				revertDiff.dynamicEntryDeltas = append(revertDiff.dynamicEntryDeltas,
					dynamicEntryDelta{key: key, add: removed, remove: added})
			}
		} else if oldEntries.Len() > 0 {
			applyDiff.dynamicEntryDeltas = append(applyDiff.dynamicEntryDeltas,
				dynamicEntryDelta{key: key, remove: oldEntries.Items()})
			revertDiff.dynamicEntryDeltas = append(revertDiff.dynamicEntryDeltas,
				dynamicEntryDelta{key: key, add: oldEntries.Items()})
		}
	}
	for key, newEntries := range afterObj.dynamicCollectionEntries {
		if _, ok := beforeObj.dynamicCollectionEntries[key]; !ok && newEntries.Len() > 0 {
			applyDiff.dynamicEntryDeltas = append(applyDiff.dynamicEntryDeltas,
				dynamicEntryDelta{key: key, add: newEntries.Items()})
			revertDiff.dynamicEntryDeltas = append(revertDiff.dynamicEntryDeltas,
				dynamicEntryDelta{key: key, remove: newEntries.Items()})
		}
	}

	// file references
	for key, beforeRef := range beforeObj.buildInfo.FileReferenceOverrides {
		if afterRef, ok := afterObj.buildInfo.FileReferenceOverrides[key]; ok {
			if beforeRef != afterRef {
				applyDiff.setFileReferences = append(applyDiff.setFileReferences, fileReferenceChange{key, afterRef})
				revertDiff.setFileReferences = append(revertDiff.setFileReferences, fileReferenceChange{key, beforeRef})
			}
		} else {
			applyDiff.removeFileReferences = append(applyDiff.removeFileReferences, key)
			revertDiff.setFileReferences = append(revertDiff.setFileReferences, fileReferenceChange{key, beforeRef})
		}
	}
	for key, afterRef := range afterObj.buildInfo.FileReferenceOverrides {
		if _, ok := beforeObj.buildInfo.FileReferenceOverrides[key]; !ok {
			applyDiff.setFileReferences = append(applyDiff.setFileReferences, fileReferenceChange{key, afterRef})
			revertDiff.removeFileReferences = append(revertDiff.removeFileReferences, key)
		}
	}

	// flag touched locations, including the "from" side of moves
	if applyDiff.HasChanges() {
		modifiedLocations[afterObj.location] = struct{}{}
		if beforeObj.location != afterObj.location {
			modifiedLocations[beforeObj.location] = struct{}{}
		}
	}

	return &AssetDiffSet{ApplyDiff: applyDiff, RevertDiff: revertDiff}
}

func ptr[T any](v T) *T {
	return &v
}

// DataSetDiff is one direction of a data set change: deletes, creates and
// per-asset changes, applied in that order so a delete can never shadow a
// create that reuses the id.
type DataSetDiff struct {
	creates []assetCreate
	deletes []AssetId
	changes []assetChange
}

type assetCreate struct {
	id   AssetId
	info *DataAssetInfo
}

type assetChange struct {
	id   AssetId
	diff *AssetDiff
}

// HasChanges reports whether applying the diff would modify anything.
func (d *DataSetDiff) HasChanges() bool {
	return len(d.creates) > 0 || len(d.deletes) > 0 || len(d.changes) > 0
}

// Apply replays the diff onto a data set carrying the same schemas.
func (d *DataSetDiff) Apply(dataSet *DataSet, set *schema.Set) error {
	for _, id := range d.deletes {
		// deleting an already-absent asset is fine when replaying
		_ = dataSet.DeleteAsset(id)
	}
	for _, create := range d.creates {
		info := create.info
		err := dataSet.RestoreAsset(
			create.id,
			info.name,
			info.location,
			info.importInfo.Clone(),
			info.buildInfo.Clone(),
			set,
			info.prototype,
			info.schema.Fingerprint(),
			cloneProperties(info.properties),
			cloneNullOverrides(info.propertyNullOverrides),
			cloneReplaceMode(info.propertiesInReplaceMode),
			cloneEntries(info.dynamicCollectionEntries),
		)
		if err != nil {
			return err
		}
	}
	for _, change := range d.changes {
		if asset, ok := dataSet.assets[change.id]; ok {
			change.diff.Apply(asset)
		}
	}
	return nil
}

// ModifiedAssets accumulates every asset the diff touches.
func (d *DataSetDiff) ModifiedAssets(out map[AssetId]struct{}) {
	for _, create := range d.creates {
		out[create.id] = struct{}{}
	}
	for _, id := range d.deletes {
		out[id] = struct{}{}
	}
	for _, change := range d.changes {
		out[change.id] = struct{}{}
	}
}

func cloneProperties(in map[string]Value) map[string]Value {
	out := make(map[string]Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneNullOverrides(in map[string]NullOverride) map[string]NullOverride {
	out := make(map[string]NullOverride, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneReplaceMode(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func cloneEntries(in map[string]*orderedmap.Set[uuid.UUID]) map[string]*orderedmap.Set[uuid.UUID] {
	out := make(map[string]*orderedmap.Set[uuid.UUID], len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}

// DataSetDiffSet is the full output of one closed undo context: an apply and
// a revert diff plus the touched asset and location sets.
type DataSetDiffSet struct {
	ApplyDiff         *DataSetDiff
	RevertDiff        *DataSetDiff
	ModifiedAssets    map[AssetId]struct{}
	ModifiedLocations map[AssetLocation]struct{}
}

// HasChanges reports whether the pair changes anything.
func (s *DataSetDiffSet) HasChanges() bool {
	return s.ApplyDiff.HasChanges()
}

// DiffDataSet compares tracked assets across two data sets, producing the
// apply/revert pair for an undo step.
func DiffDataSet(before, after *DataSet, trackedAssets map[AssetId]struct{}) *DataSetDiffSet {
	applyDiff := &DataSetDiff{}
	revertDiff := &DataSetDiff{}
	modifiedAssets := make(map[AssetId]struct{})
	modifiedLocations := make(map[AssetLocation]struct{})

	for id := range trackedAssets {
		_, existedBefore := before.assets[id]
		_, existedAfter := after.assets[id]
		switch {
		case existedBefore && existedAfter:
			diff := DiffAssets(before, after, id, modifiedLocations)
			if diff.HasChanges() {
				modifiedAssets[id] = struct{}{}
				applyDiff.changes = append(applyDiff.changes, assetChange{id, diff.ApplyDiff})
				revertDiff.changes = append(revertDiff.changes, assetChange{id, diff.RevertDiff})
			}
		case existedBefore:
			beforeInfo := before.assets[id]
			modifiedAssets[id] = struct{}{}
			modifiedLocations[beforeInfo.location] = struct{}{}
			applyDiff.deletes = append(applyDiff.deletes, id)
			revertDiff.creates = append(revertDiff.creates, assetCreate{id, beforeInfo.Clone()})
		case existedAfter:
			afterInfo := after.assets[id]
			modifiedAssets[id] = struct{}{}
			modifiedLocations[afterInfo.location] = struct{}{}
			applyDiff.creates = append(applyDiff.creates, assetCreate{id, afterInfo.Clone()})
			revertDiff.deletes = append(revertDiff.deletes, id)
		}
	}

	return &DataSetDiffSet{
		ApplyDiff:         applyDiff,
		RevertDiff:        revertDiff,
		ModifiedAssets:    modifiedAssets,
		ModifiedLocations: modifiedLocations,
	}
}
