// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package build

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/google/uuid"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/utils"
)

// ArtifactId identifies one built output. The default artifact of an asset
// reuses the asset's uuid; keyed artifacts derive a new id from the asset id
// and the key so several artifacts per asset stay addressable.
type ArtifactId uuid.UUID

func (id ArtifactId) UUID() uuid.UUID {
	return uuid.UUID(id)
}

func (id ArtifactId) String() string {
	return uuid.UUID(id).String()
}

// Hex renders the id as 32 hex characters, the manifest form.
func (id ArtifactId) Hex() string {
	return hex.EncodeToString(id[:])
}

// DefaultArtifactId is the id of an asset's unkeyed artifact.
func DefaultArtifactId(assetId datamodel.AssetId) ArtifactId {
	return ArtifactId(assetId.UUID())
}

// KeyedArtifactId derives a stable id for an (asset, key) pair.
func KeyedArtifactId(assetId datamodel.AssetId, key string) ArtifactId {
	return ArtifactId(utils.WithHasher128(func(h hash.Hash) {
		assetId.HashInto(h)
		utils.HashByte(h, utils.HASH_PIPE)
		utils.HashString(h, key)
	}))
}

// createArtifactId dispatches on whether a key is present.
func createArtifactId(assetId datamodel.AssetId, key *string) ArtifactId {
	if key == nil {
		return DefaultArtifactId(assetId)
	}
	return KeyedArtifactId(assetId, *key)
}

// ArtifactValue is anything a processor can emit as an artifact. The type
// uuid lands in artifact headers and manifests so loaders know how to decode
// the payload.
type ArtifactValue interface {
	ArtifactTypeUUID() uuid.UUID
}

// BuiltArtifactMetadata is the header of a .bf file: the dependency list and
// the payload's type. WriteHeader fixes the on-disk order.
type BuiltArtifactMetadata struct {
	Dependencies []ArtifactId
	AssetType    uuid.UUID
}

// WriteHeader emits the header: dependency count, asset type uuid, then the
// dependency ids.
func (m *BuiltArtifactMetadata) WriteHeader(w io.Writer) error {
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(m.Dependencies)))
	if _, err := w.Write(count[:]); err != nil {
		return err
	}
	if _, err := w.Write(m.AssetType[:]); err != nil {
		return err
	}
	for _, dep := range m.Dependencies {
		if _, err := w.Write(dep[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadHeader parses a header written by WriteHeader, returning the metadata.
func ReadHeader(r io.Reader) (*BuiltArtifactMetadata, error) {
	var count [4]byte
	if _, err := io.ReadFull(r, count[:]); err != nil {
		return nil, fmt.Errorf("artifact header: %w", err)
	}
	dependencyCount := binary.LittleEndian.Uint32(count[:])

	metadata := &BuiltArtifactMetadata{}
	if _, err := io.ReadFull(r, metadata.AssetType[:]); err != nil {
		return nil, fmt.Errorf("artifact header: %w", err)
	}
	for i := uint32(0); i < dependencyCount; i++ {
		var dep ArtifactId
		if _, err := io.ReadFull(r, dep[:]); err != nil {
			return nil, fmt.Errorf("artifact header: %w", err)
		}
		metadata.Dependencies = append(metadata.Dependencies, dep)
	}
	return metadata, nil
}

// HashInto folds the metadata into a build hash.
func (m *BuiltArtifactMetadata) HashInto(h hash.Hash) {
	for _, dep := range m.Dependencies {
		_, _ = h.Write(dep[:])
	}
	_, _ = h.Write(m.AssetType[:])
}

// BuiltArtifact is a produced artifact on its way to disk.
type BuiltArtifact struct {
	AssetId              datamodel.AssetId
	ArtifactId           ArtifactId
	Metadata             BuiltArtifactMetadata
	Data                 []byte
	ArtifactKeyDebugName string
}

// WrittenArtifact is the record the coordinator receives once an artifact
// has landed on disk.
type WrittenArtifact struct {
	AssetId              datamodel.AssetId
	ArtifactId           ArtifactId
	Metadata             BuiltArtifactMetadata
	BuildHash            uint64
	ArtifactKeyDebugName string
}

// AssetArtifactIdPair links an artifact back to its owning asset; the
// executor asserts consistency when the same artifact id is seen twice.
type AssetArtifactIdPair struct {
	AssetId    datamodel.AssetId
	ArtifactId ArtifactId
}

// ArtifactHandle is a reference to another artifact embedded inside a
// produced artifact's payload. Handles created within a produce scope become
// the artifact's dependency list.
type ArtifactHandle struct {
	ArtifactId ArtifactId `json:"artifact_id"`
}

// HandleFactory mints handles inside one produce-artifact scope, recording
// every referenced artifact.
type HandleFactory struct {
	api      JobAPI
	recorded *[]ArtifactId
}

func (f HandleFactory) record(assetId datamodel.AssetId, artifactId ArtifactId) ArtifactHandle {
	*f.recorded = append(*f.recorded, artifactId)
	f.api.ArtifactHandleCreated(assetId, artifactId)
	return ArtifactHandle{ArtifactId: artifactId}
}

// HandleToDefaultArtifact references an asset's unkeyed artifact.
func (f HandleFactory) HandleToDefaultArtifact(assetId datamodel.AssetId) ArtifactHandle {
	return f.record(assetId, DefaultArtifactId(assetId))
}

// HandleToKeyedArtifact references an (asset, key) artifact.
func (f HandleFactory) HandleToKeyedArtifact(assetId datamodel.AssetId, key string) ArtifactHandle {
	return f.record(assetId, KeyedArtifactId(assetId, key))
}

// HandleToArtifact references a produced artifact by its id pair.
func (f HandleFactory) HandleToArtifact(pair AssetArtifactIdPair) ArtifactHandle {
	return f.record(pair.AssetId, pair.ArtifactId)
}
