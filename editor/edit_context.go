// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package editor

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/orderedmap"
	"github.com/pb33f/assetforge/schema"
)

// EditContext wraps a DataSet with undo tracking. Every mutation snapshots
// the touched asset's before state into the open undo context; closing the
// context produces an apply/revert diff pair on the undo stack.
type EditContext struct {
	schemaSet   *schema.Set
	dataSet     *datamodel.DataSet
	undoContext *undoContext
	logger      *slog.Logger
}

// NewEditContext creates an empty context over the schema set, committing
// undo steps to the given stack.
func NewEditContext(schemaSet *schema.Set, undoStack *UndoStack, logger *slog.Logger) *EditContext {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EditContext{
		schemaSet:   schemaSet,
		dataSet:     datamodel.NewDataSet(),
		undoContext: newUndoContext(undoStack),
		logger:      logger,
	}
}

// SchemaSet returns the linked schemas this context edits against.
func (e *EditContext) SchemaSet() *schema.Set { return e.schemaSet }

// DataSet returns the live data set. Treat as read-only; mutate through the
// context so undo tracking stays correct.
func (e *EditContext) DataSet() *datamodel.DataSet { return e.dataSet }

// WithUndoContext runs fn inside a named undo scope. A resumable scope with
// the same name is continued; a different name commits the prior scope first.
func (e *EditContext) WithUndoContext(name string, fn func(*EditContext) EndContextBehavior) {
	e.undoContext.beginContext(e.dataSet, e.schemaSet, name)
	behavior := fn(e)
	e.undoContext.endContext(e.dataSet, e.schemaSet, behavior)
}

// CommitPendingUndoContext closes any resumable scope left open.
func (e *EditContext) CommitPendingUndoContext() {
	e.undoContext.commit(e.dataSet, e.schemaSet)
}

// CancelPendingUndoContext reverts and closes any resumable scope left open.
func (e *EditContext) CancelPendingUndoContext() error {
	return e.undoContext.cancel(e.dataSet, e.schemaSet)
}

// ApplyDiff replays a diff produced elsewhere onto this context's data set.
func (e *EditContext) ApplyDiff(diff *datamodel.DataSetDiff) error {
	return diff.Apply(e.dataSet, e.schemaSet)
}

func (e *EditContext) trackNew(id datamodel.AssetId) {
	e.undoContext.trackNewAsset(id)
}

func (e *EditContext) trackExisting(id datamodel.AssetId) error {
	return e.undoContext.trackExistingAsset(e.dataSet, e.schemaSet, id)
}

//
// Lifecycle
//

// NewAsset creates an asset with a fresh id.
func (e *EditContext) NewAsset(name datamodel.AssetName, location datamodel.AssetLocation, rec *schema.Record) datamodel.AssetId {
	id := e.dataSet.NewAsset(name, location, rec)
	e.trackNew(id)
	return id
}

// NewAssetWithId creates an asset under a caller-chosen id.
func (e *EditContext) NewAssetWithId(id datamodel.AssetId, name datamodel.AssetName, location datamodel.AssetLocation, rec *schema.Record) error {
	if err := e.dataSet.NewAssetWithId(id, name, location, rec); err != nil {
		return err
	}
	e.trackNew(id)
	return nil
}

// NewAssetFromPrototype creates an asset fully inheriting from prototype.
func (e *EditContext) NewAssetFromPrototype(name datamodel.AssetName, location datamodel.AssetLocation, prototype datamodel.AssetId) (datamodel.AssetId, error) {
	id, err := e.dataSet.NewAssetFromPrototype(name, location, prototype)
	if err != nil {
		return datamodel.AssetIdNull, err
	}
	e.trackNew(id)
	return id, nil
}

// InitFromSingleObject creates an asset seeded from a self-contained object,
// the path imports take when an importer produces a default asset.
func (e *EditContext) InitFromSingleObject(id datamodel.AssetId, name datamodel.AssetName, location datamodel.AssetLocation, obj *datamodel.SingleObject) error {
	e.trackNew(id)
	if err := e.dataSet.NewAssetWithId(id, name, location, obj.Schema()); err != nil {
		return err
	}
	return e.dataSet.CopyFromSingleObject(id, obj)
}

// RegenerateFromSingleObject replaces an existing asset's authored state with
// an importer's regenerated default.
func (e *EditContext) RegenerateFromSingleObject(id datamodel.AssetId, obj *datamodel.SingleObject) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.CopyFromSingleObject(id, obj)
}

// RestoreAsset reinstates an asset from storage.
func (e *EditContext) RestoreAsset(
	id datamodel.AssetId,
	name datamodel.AssetName,
	location datamodel.AssetLocation,
	importInfo *datamodel.ImportInfo,
	buildInfo datamodel.BuildInfo,
	prototype datamodel.AssetId,
	fingerprint schema.Fingerprint,
	properties map[string]datamodel.Value,
	propertyNullOverrides map[string]datamodel.NullOverride,
	propertiesInReplaceMode map[string]struct{},
	dynamicCollectionEntries map[string]*orderedmap.Set[uuid.UUID],
) error {
	e.trackNew(id)
	return e.dataSet.RestoreAsset(
		id, name, location, importInfo, buildInfo, e.schemaSet, prototype, fingerprint,
		properties, propertyNullOverrides, propertiesInReplaceMode, dynamicCollectionEntries,
	)
}

// DeleteAsset removes an asset.
func (e *EditContext) DeleteAsset(id datamodel.AssetId) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.DeleteAsset(id)
}

// SetAssetName renames an asset.
func (e *EditContext) SetAssetName(id datamodel.AssetId, name datamodel.AssetName) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.SetAssetName(id, name)
}

// SetAssetLocation moves an asset.
func (e *EditContext) SetAssetLocation(id datamodel.AssetId, location datamodel.AssetLocation) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.SetAssetLocation(id, location)
}

// SetPrototype repoints an asset's prototype.
func (e *EditContext) SetPrototype(id, prototype datamodel.AssetId) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.SetPrototype(id, prototype)
}

// SetImportInfo attaches import provenance.
func (e *EditContext) SetImportInfo(id datamodel.AssetId, info *datamodel.ImportInfo) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.SetImportInfo(id, info)
}

//
// Mutating property operations
//

// SetNullOverride records a null decision on this asset.
func (e *EditContext) SetNullOverride(id datamodel.AssetId, path string, override datamodel.NullOverride) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.SetNullOverride(e.schemaSet, id, path, override)
}

// RemoveNullOverride clears a null decision.
func (e *EditContext) RemoveNullOverride(id datamodel.AssetId, path string) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.RemoveNullOverride(e.schemaSet, id, path)
}

// SetPropertyOverride stores a value on this asset.
func (e *EditContext) SetPropertyOverride(id datamodel.AssetId, path string, value datamodel.Value) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.SetPropertyOverride(e.schemaSet, id, path, value)
}

// RemovePropertyOverride clears a value from this asset.
func (e *EditContext) RemovePropertyOverride(id datamodel.AssetId, path string) (datamodel.Value, bool, error) {
	if err := e.trackExisting(id); err != nil {
		return datamodel.Value{}, false, err
	}
	return e.dataSet.RemovePropertyOverride(id, path)
}

// ApplyPropertyOverrideToPrototype pushes the resolved value up one level.
func (e *EditContext) ApplyPropertyOverrideToPrototype(id datamodel.AssetId, path string) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	if prototype, err := e.dataSet.AssetPrototype(id); err == nil && !prototype.IsNull() {
		if err := e.trackExisting(prototype); err != nil {
			return err
		}
	}
	return e.dataSet.ApplyPropertyOverrideToPrototype(e.schemaSet, id, path)
}

// AddDynamicArrayEntry appends a fresh entry.
func (e *EditContext) AddDynamicArrayEntry(id datamodel.AssetId, path string) (uuid.UUID, error) {
	if err := e.trackExisting(id); err != nil {
		return uuid.Nil, err
	}
	return e.dataSet.AddDynamicArrayEntry(e.schemaSet, id, path)
}

// AddMapEntry appends a fresh map entry.
func (e *EditContext) AddMapEntry(id datamodel.AssetId, path string) (uuid.UUID, error) {
	if err := e.trackExisting(id); err != nil {
		return uuid.Nil, err
	}
	return e.dataSet.AddMapEntry(e.schemaSet, id, path)
}

// InsertDynamicArrayEntry inserts a caller-supplied entry id at an index.
func (e *EditContext) InsertDynamicArrayEntry(id datamodel.AssetId, path string, index int, entry uuid.UUID) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.InsertDynamicArrayEntry(e.schemaSet, id, path, index, entry)
}

// RemoveDynamicArrayEntry deletes an entry from this asset's own set.
func (e *EditContext) RemoveDynamicArrayEntry(id datamodel.AssetId, path string, entry uuid.UUID) (bool, error) {
	if err := e.trackExisting(id); err != nil {
		return false, err
	}
	return e.dataSet.RemoveDynamicArrayEntry(e.schemaSet, id, path, entry)
}

// RemoveMapEntry deletes a map entry from this asset's own set.
func (e *EditContext) RemoveMapEntry(id datamodel.AssetId, path string, entry uuid.UUID) (bool, error) {
	if err := e.trackExisting(id); err != nil {
		return false, err
	}
	return e.dataSet.RemoveMapEntry(e.schemaSet, id, path, entry)
}

// SetOverrideBehavior switches a container between append and replace.
func (e *EditContext) SetOverrideBehavior(id datamodel.AssetId, path string, behavior datamodel.OverrideBehavior) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.SetOverrideBehavior(e.schemaSet, id, path, behavior)
}

// SetFileReferenceOverride redirects a canonical source file path.
func (e *EditContext) SetFileReferenceOverride(id datamodel.AssetId, canonicalPath string, ref datamodel.AssetId) error {
	if err := e.trackExisting(id); err != nil {
		return err
	}
	return e.dataSet.SetFileReferenceOverride(id, canonicalPath, ref)
}

//
// Read-only passthroughs
//

// AssetDisplayNameLong renders the full, slash-separated path of an asset;
// builds use it as the artifact symbol name.
func (e *EditContext) AssetDisplayNameLong(id datamodel.AssetId) string {
	return AssetPathLong(e.dataSet, id)
}

// IsPathNodeOrRoot reports whether a record is part of the location tree.
func (e *EditContext) IsPathNodeOrRoot(rec *schema.Record) bool {
	return IsPathNode(rec)
}

func (e *EditContext) HasAsset(id datamodel.AssetId) bool {
	_, err := e.dataSet.Asset(id)
	return err == nil
}

func (e *EditContext) AssetSchema(id datamodel.AssetId) (*schema.Record, error) {
	return e.dataSet.AssetSchema(id)
}

func (e *EditContext) AssetPrototype(id datamodel.AssetId) (datamodel.AssetId, error) {
	return e.dataSet.AssetPrototype(id)
}

func (e *EditContext) AssetName(id datamodel.AssetId) (datamodel.AssetName, error) {
	return e.dataSet.AssetName(id)
}

func (e *EditContext) AssetLocation(id datamodel.AssetId) (datamodel.AssetLocation, error) {
	return e.dataSet.AssetLocation(id)
}

func (e *EditContext) GetNullOverride(id datamodel.AssetId, path string) (datamodel.NullOverride, error) {
	return e.dataSet.GetNullOverride(e.schemaSet, id, path)
}

func (e *EditContext) ResolveNullOverride(id datamodel.AssetId, path string) (datamodel.NullOverride, error) {
	return e.dataSet.ResolveNullOverride(e.schemaSet, id, path)
}

func (e *EditContext) HasPropertyOverride(id datamodel.AssetId, path string) (bool, error) {
	return e.dataSet.HasPropertyOverride(id, path)
}

func (e *EditContext) GetPropertyOverride(id datamodel.AssetId, path string) (datamodel.Value, bool, error) {
	return e.dataSet.GetPropertyOverride(id, path)
}

func (e *EditContext) ResolveProperty(id datamodel.AssetId, path string) (datamodel.Value, error) {
	return e.dataSet.ResolveProperty(e.schemaSet, id, path)
}

func (e *EditContext) GetDynamicArrayEntries(id datamodel.AssetId, path string) ([]uuid.UUID, error) {
	return e.dataSet.GetDynamicArrayEntries(e.schemaSet, id, path)
}

func (e *EditContext) ResolveDynamicArrayEntries(id datamodel.AssetId, path string) ([]uuid.UUID, error) {
	return e.dataSet.ResolveDynamicArrayEntries(e.schemaSet, id, path)
}

func (e *EditContext) ResolveMapEntries(id datamodel.AssetId, path string) ([]uuid.UUID, error) {
	return e.dataSet.ResolveMapEntries(e.schemaSet, id, path)
}

func (e *EditContext) GetOverrideBehavior(id datamodel.AssetId, path string) (datamodel.OverrideBehavior, error) {
	return e.dataSet.GetOverrideBehavior(e.schemaSet, id, path)
}

func (e *EditContext) ResolveFileReference(id datamodel.AssetId, canonicalPath string) (datamodel.AssetId, error) {
	return e.dataSet.ResolveFileReference(id, canonicalPath)
}

func (e *EditContext) ResolveAllFileReferences(id datamodel.AssetId) (map[string]datamodel.AssetId, error) {
	return e.dataSet.ResolveAllFileReferences(id)
}

//
// clone helpers shared with undo tracking
//

func cloneValueMap(in map[string]datamodel.Value) map[string]datamodel.Value {
	out := make(map[string]datamodel.Value, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneNullOverrideMap(in map[string]datamodel.NullOverride) map[string]datamodel.NullOverride {
	out := make(map[string]datamodel.NullOverride, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneStringSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func cloneEntryMap(in map[string]*orderedmap.Set[uuid.UUID]) map[string]*orderedmap.Set[uuid.UUID] {
	out := make(map[string]*orderedmap.Set[uuid.UUID], len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}
