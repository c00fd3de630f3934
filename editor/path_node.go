// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package editor

import (
	"strings"

	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/schema"
)

// The asset location tree is realized as assets of these well-known record
// types. Path nodes are authored data like everything else, but builds never
// seed jobs from them.
const (
	PathNodeTypeName     = "PathNode"
	PathNodeRootTypeName = "PathNodeRoot"
)

// RegisterPathNodeSchemas adds the path node record types to a linker.
func RegisterPathNodeSchemas(linker *schema.Linker) error {
	if err := linker.RegisterRecordType(PathNodeTypeName, func(b *schema.RecordBuilder) {}); err != nil {
		return err
	}
	return linker.RegisterRecordType(PathNodeRootTypeName, func(b *schema.RecordBuilder) {})
}

// IsPathNode reports whether a record is one of the location tree types.
func IsPathNode(rec *schema.Record) bool {
	return rec.Name() == PathNodeTypeName || rec.Name() == PathNodeRootTypeName
}

// AssetPathLong renders an asset's full path, path node names from the root
// down joined with "/", ending in the asset's own name (or id when unnamed).
// Builds use this as the artifact symbol name.
func AssetPathLong(dataSet *datamodel.DataSet, id datamodel.AssetId) string {
	name, err := dataSet.AssetName(id)
	if err != nil {
		return ""
	}
	leaf := name.String()
	if leaf == "" {
		leaf = id.String()
	}

	chain, err := dataSet.AssetLocationChain(id)
	if err != nil {
		return leaf
	}
	var segments []string
	for i := len(chain) - 1; i >= 0; i-- {
		nodeName, err := dataSet.AssetName(chain[i].PathNodeId)
		if err != nil || nodeName.IsEmpty() {
			continue
		}
		segments = append(segments, nodeName.String())
	}
	segments = append(segments, leaf)
	return strings.Join(segments, "/")
}
