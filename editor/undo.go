// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

// Package editor layers transactional editing over a DataSet: named undo
// contexts produce apply/revert diff pairs, an undo stack replays them, and a
// path-based data source persists assets as .af documents.
package editor

import (
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/schema"
)

// EndContextBehavior says what happens to an undo context when its closure
// returns.
type EndContextBehavior int

const (
	// EndContextFinish commits the context; the next edit starts a new one.
	EndContextFinish EndContextBehavior = iota
	// EndContextAllowResume leaves the context open so a later edit with the
	// same name extends it. Used for drag-style edits that arrive as many
	// small operations.
	EndContextAllowResume
)

// UndoStack holds committed diff sets in order. The stack is owned by
// whatever owns the edit contexts; it is not safe for concurrent use.
type UndoStack struct {
	steps    []*datamodel.DataSetDiffSet
	position int
}

// NewUndoStack creates an empty stack.
func NewUndoStack() *UndoStack {
	return &UndoStack{}
}

// PushDiffSet commits a step, discarding any redo tail.
func (u *UndoStack) PushDiffSet(diffSet *datamodel.DataSetDiffSet) {
	u.steps = u.steps[:u.position]
	u.steps = append(u.steps, diffSet)
	u.position = len(u.steps)
}

// CanUndo reports whether a step is available to revert.
func (u *UndoStack) CanUndo() bool {
	return u.position > 0
}

// CanRedo reports whether a reverted step is available to reapply.
func (u *UndoStack) CanRedo() bool {
	return u.position < len(u.steps)
}

// Undo reverts the most recent step against the edit context.
func (u *UndoStack) Undo(ctx *EditContext) error {
	if !u.CanUndo() {
		return nil
	}
	ctx.CommitPendingUndoContext()
	step := u.steps[u.position-1]
	if err := step.RevertDiff.Apply(ctx.dataSet, ctx.schemaSet); err != nil {
		return err
	}
	u.position--
	return nil
}

// Redo reapplies the most recently reverted step.
func (u *UndoStack) Redo(ctx *EditContext) error {
	if !u.CanRedo() {
		return nil
	}
	ctx.CommitPendingUndoContext()
	step := u.steps[u.position]
	if err := step.ApplyDiff.Apply(ctx.dataSet, ctx.schemaSet); err != nil {
		return err
	}
	u.position++
	return nil
}

// undoContext tracks one open, possibly resumable, edit scope. Before any
// asset is mutated its pre-edit state is snapshotted once; closing the scope
// diffs snapshots against the live data set.
type undoContext struct {
	undoStack     *UndoStack
	contextName   string
	before        *datamodel.DataSet
	trackedAssets map[datamodel.AssetId]struct{}
	open          bool
}

func newUndoContext(stack *UndoStack) *undoContext {
	return &undoContext{
		undoStack:     stack,
		before:        datamodel.NewDataSet(),
		trackedAssets: make(map[datamodel.AssetId]struct{}),
	}
}

func (u *undoContext) hasOpenContext() bool {
	return u.open
}

// beginContext opens a scope, committing any open scope with a different name
// first. A same-named resumable scope is continued.
func (u *undoContext) beginContext(dataSet *datamodel.DataSet, set *schema.Set, name string) {
	if u.open && u.contextName != name {
		u.commit(dataSet, set)
	}
	u.contextName = name
	u.open = true
}

func (u *undoContext) endContext(dataSet *datamodel.DataSet, set *schema.Set, behavior EndContextBehavior) {
	if behavior == EndContextFinish {
		u.commit(dataSet, set)
	}
}

// trackNewAsset records an asset that did not exist when the scope opened.
func (u *undoContext) trackNewAsset(id datamodel.AssetId) {
	if !u.open {
		return
	}
	u.trackedAssets[id] = struct{}{}
}

// trackExistingAsset snapshots an asset's before state on first touch.
func (u *undoContext) trackExistingAsset(dataSet *datamodel.DataSet, set *schema.Set, id datamodel.AssetId) error {
	if !u.open {
		return nil
	}
	if _, tracked := u.trackedAssets[id]; tracked {
		return nil
	}
	u.trackedAssets[id] = struct{}{}
	asset, err := dataSet.Asset(id)
	if err != nil {
		return err
	}
	return u.before.RestoreAsset(
		id,
		asset.Name(),
		asset.Location(),
		asset.ImportInfo().Clone(),
		asset.BuildInfo().Clone(),
		set,
		asset.Prototype(),
		asset.Schema().Fingerprint(),
		cloneValueMap(asset.Properties()),
		cloneNullOverrideMap(asset.PropertyNullOverrides()),
		cloneStringSet(asset.PropertiesInReplaceMode()),
		cloneEntryMap(asset.DynamicCollectionEntries()),
	)
}

// commit closes the scope: diff before vs live, push to the stack, reset.
func (u *undoContext) commit(dataSet *datamodel.DataSet, set *schema.Set) {
	if !u.open && len(u.trackedAssets) == 0 {
		return
	}
	diffSet := datamodel.DiffDataSet(u.before, dataSet, u.trackedAssets)
	if diffSet.HasChanges() {
		u.undoStack.PushDiffSet(diffSet)
	}
	u.reset()
}

// cancel reverts everything the scope touched and closes it.
func (u *undoContext) cancel(dataSet *datamodel.DataSet, set *schema.Set) error {
	if !u.open && len(u.trackedAssets) == 0 {
		return nil
	}
	diffSet := datamodel.DiffDataSet(u.before, dataSet, u.trackedAssets)
	if err := diffSet.RevertDiff.Apply(dataSet, set); err != nil {
		return err
	}
	u.reset()
	return nil
}

func (u *undoContext) reset() {
	u.before = datamodel.NewDataSet()
	u.trackedAssets = make(map[datamodel.AssetId]struct{})
	u.open = false
	u.contextName = ""
}
