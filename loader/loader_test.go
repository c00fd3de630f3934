// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package loader_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/pb33f/assetforge/build"
	"github.com/pb33f/assetforge/loader"
	"github.com/pb33f/assetforge/utils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifestFixture(t *testing.T, fs afero.Fs) (uint64, build.ArtifactId) {
	t.Helper()
	combined := uint64(0xabcdef0123456789)
	artifactId := build.ArtifactId(uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000001"))
	assetType := uuid.MustParse("0d0e5f3a-74a1-4c2b-a7de-333333333333")
	symbolHash := utils.HashSymbolName("things/alpha")

	line := fmt.Sprintf("%s,%016x,%032x,%032x\n", artifactId.Hex(), uint64(0x1122334455667788), assetType[:], symbolHash[:])
	require.NoError(t, fs.MkdirAll("build_data/manifests", 0o755))
	require.NoError(t, afero.WriteFile(fs, fmt.Sprintf("build_data/manifests/%016x.manifest_release", combined), []byte(line), 0o644))

	require.NoError(t, fs.MkdirAll("build_data/toc", 0o755))
	require.NoError(t, afero.WriteFile(fs, "build_data/toc/0000000000000001.toc", []byte("ffffffffffffffff"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "build_data/toc/0000000000000002.toc", []byte(fmt.Sprintf("%016x", combined)), 0o644))
	return combined, artifactId
}

func TestSelectCurrentBuild_PicksNewestTOC(t *testing.T) {
	fs := afero.NewMemMapFs()
	combined, _ := writeManifestFixture(t, fs)

	selected, err := loader.SelectCurrentBuild(fs, "build_data")
	require.NoError(t, err)
	assert.Equal(t, combined, selected)
}

func TestLoadManifest_ParsesEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	combined, artifactId := writeManifestFixture(t, fs)

	manifest, err := loader.LoadManifest(fs, "build_data", combined)
	require.NoError(t, err)
	require.Len(t, manifest.Entries, 1)

	entry, ok := manifest.EntryForArtifact(artifactId)
	require.True(t, ok)
	assert.Equal(t, uint64(0x1122334455667788), entry.BuildHash)

	bySymbol, ok := manifest.EntryForSymbol("things/alpha")
	require.True(t, ok)
	assert.Equal(t, entry.ArtifactId, bySymbol.ArtifactId)

	_, ok = manifest.EntryForSymbol("things/missing")
	assert.False(t, ok)
}

func TestReadArtifact_HeaderThenPayload(t *testing.T) {
	fs := afero.NewMemMapFs()
	artifactId := build.ArtifactId(uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000001"))
	metadata := build.BuiltArtifactMetadata{
		Dependencies: []build.ArtifactId{build.ArtifactId(uuid.MustParse("b1b2c3d4-0000-4000-8000-000000000002"))},
		AssetType:    uuid.MustParse("0d0e5f3a-74a1-4c2b-a7de-333333333333"),
	}
	payload := []byte("artifact-payload")

	path := utils.UUIDAndHashToPath("build_data", artifactId.UUID(), 0x55, "bf")
	require.NoError(t, fs.MkdirAll("build_data/a1/a1b2c3d4-0000-4000-8000-000000000001", 0o755))
	file, err := fs.Create(path)
	require.NoError(t, err)
	require.NoError(t, metadata.WriteHeader(file))
	_, err = file.Write(payload)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	entry := &loader.ManifestEntry{ArtifactId: artifactId, BuildHash: 0x55}
	readMetadata, readPayload, err := loader.ReadArtifact(fs, "build_data", entry)
	require.NoError(t, err)
	assert.Equal(t, metadata.AssetType, readMetadata.AssetType)
	assert.Equal(t, metadata.Dependencies, readMetadata.Dependencies)
	assert.Equal(t, payload, readPayload)
}

// mapStorage is a minimal committed/uncommitted storage for tests.
type mapStorage struct {
	uncommitted map[loader.LoadHandle][]byte
	committed   map[loader.LoadHandle][]byte
}

func newMapStorage() *mapStorage {
	return &mapStorage{
		uncommitted: make(map[loader.LoadHandle][]byte),
		committed:   make(map[loader.LoadHandle][]byte),
	}
}

func (s *mapStorage) LoadArtifact(handle loader.LoadHandle, _ build.ArtifactId, data []byte) error {
	s.uncommitted[handle] = data
	return nil
}

func (s *mapStorage) CommitArtifact(handle loader.LoadHandle) error {
	data, ok := s.uncommitted[handle]
	if !ok {
		return fmt.Errorf("handle %d was never loaded", handle)
	}
	delete(s.uncommitted, handle)
	s.committed[handle] = data
	return nil
}

func (s *mapStorage) FreeArtifact(handle loader.LoadHandle) error {
	delete(s.uncommitted, handle)
	delete(s.committed, handle)
	return nil
}

func (s *mapStorage) TypeName() string { return "mapStorage" }

func TestArtifactStorageSet_Lifecycle(t *testing.T) {
	set := loader.NewArtifactStorageSet()
	storage := newMapStorage()
	artifactType := uuid.MustParse("0d0e5f3a-74a1-4c2b-a7de-333333333333")
	require.NoError(t, set.AddStorage(artifactType, storage))
	assert.Error(t, set.AddStorage(artifactType, storage))

	artifactId := build.ArtifactId(uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000001"))
	require.NoError(t, set.LoadArtifact(artifactType, 1, artifactId, []byte("data")))
	assert.Empty(t, storage.committed)

	require.NoError(t, set.CommitArtifact(artifactType, 1))
	assert.Equal(t, []byte("data"), storage.committed[1])

	require.NoError(t, set.FreeArtifact(artifactType, 1))
	assert.Empty(t, storage.committed)

	err := set.LoadArtifact(uuid.New(), 2, artifactId, nil)
	assert.ErrorIs(t, err, loader.ErrStorageNotFound)
}
