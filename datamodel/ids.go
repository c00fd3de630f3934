// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

// Package datamodel holds the in-memory representation of authored data: the
// Value union, self-contained SingleObject instances, and the DataSet of
// assets with prototype chains and per-property override tracking.
package datamodel

import (
	"hash"

	"github.com/google/uuid"
)

// AssetId identifies one asset. The zero id is reserved as "null" and never
// names a real asset.
type AssetId uuid.UUID

// AssetIdNull is the reserved null id.
var AssetIdNull = AssetId{}

// NewAssetId allocates a fresh random id.
func NewAssetId() AssetId {
	return AssetId(uuid.New())
}

// AssetIdFromUUID wraps an existing UUID.
func AssetIdFromUUID(id uuid.UUID) AssetId {
	return AssetId(id)
}

// UUID unwraps the id.
func (id AssetId) UUID() uuid.UUID {
	return uuid.UUID(id)
}

// IsNull reports whether the id is the reserved null id.
func (id AssetId) IsNull() bool {
	return id == AssetIdNull
}

func (id AssetId) String() string {
	return uuid.UUID(id).String()
}

// HashInto writes the id into a hasher.
func (id AssetId) HashInto(h hash.Hash) {
	_, _ = h.Write(id[:])
}

// ImporterId identifies a registered importer; importers declare it as a
// fixed UUID so assets can reference their importer across runs.
type ImporterId uuid.UUID

func (id ImporterId) UUID() uuid.UUID {
	return uuid.UUID(id)
}

func (id ImporterId) String() string {
	return uuid.UUID(id).String()
}

// AssetName is the optional human-readable name of an asset; the empty string
// means the asset is unnamed.
type AssetName string

func (n AssetName) IsEmpty() bool {
	return n == ""
}

func (n AssetName) String() string {
	return string(n)
}

// AssetLocation places an asset under a path-node asset. The null location is
// the tree root.
type AssetLocation struct {
	PathNodeId AssetId
}

// NewAssetLocation creates a location pointing at the given path node.
func NewAssetLocation(pathNode AssetId) AssetLocation {
	return AssetLocation{PathNodeId: pathNode}
}

// RootLocation is the location of top-level assets.
func RootLocation() AssetLocation {
	return AssetLocation{}
}

func (l AssetLocation) IsRoot() bool {
	return l.PathNodeId.IsNull()
}

// HashInto writes the location into a hasher.
func (l AssetLocation) HashInto(h hash.Hash) {
	l.PathNodeId.HashInto(h)
}
