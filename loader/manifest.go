// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package loader

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pb33f/assetforge/build"
	"github.com/pb33f/assetforge/utils"
	"github.com/spf13/afero"
)

// ManifestEntry is one parsed line of a release manifest.
type ManifestEntry struct {
	ArtifactId build.ArtifactId
	BuildHash  uint64
	AssetType  [16]byte
	SymbolHash utils.Hash128
}

// Manifest is the loaded index of one build.
type Manifest struct {
	CombinedBuildHash uint64
	Entries           []ManifestEntry

	bySymbolHash map[utils.Hash128]int
	byArtifactId map[build.ArtifactId]int
}

// EntryForArtifact looks an entry up by artifact id.
func (m *Manifest) EntryForArtifact(id build.ArtifactId) (*ManifestEntry, bool) {
	index, ok := m.byArtifactId[id]
	if !ok {
		return nil, false
	}
	return &m.Entries[index], true
}

// EntryForSymbol looks an entry up by the hash of its symbol name.
func (m *Manifest) EntryForSymbol(symbol string) (*ManifestEntry, bool) {
	index, ok := m.bySymbolHash[utils.HashSymbolName(symbol)]
	if !ok {
		return nil, false
	}
	return &m.Entries[index], true
}

// SelectCurrentBuild picks the newest TOC under buildDataRoot and returns the
// combined build hash it names. TOC files are named by wall-clock millis, so
// lexical order of the fixed-width hex names is chronological.
func SelectCurrentBuild(fs afero.Fs, buildDataRoot string) (uint64, error) {
	matches, err := afero.Glob(fs, filepath.Join(buildDataRoot, "toc", "*.toc"))
	if err != nil {
		return 0, fmt.Errorf("scanning toc dir: %w", err)
	}
	if len(matches) == 0 {
		return 0, fmt.Errorf("no toc files under %s", buildDataRoot)
	}
	sort.Strings(matches)
	newest := matches[len(matches)-1]

	body, err := afero.ReadFile(fs, newest)
	if err != nil {
		return 0, fmt.Errorf("reading toc %s: %w", newest, err)
	}
	combined, err := strconv.ParseUint(strings.TrimSpace(string(body)), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed toc %s: %w", newest, err)
	}
	return combined, nil
}

// LoadManifest reads and indexes the release manifest of one build.
func LoadManifest(fs afero.Fs, buildDataRoot string, combinedBuildHash uint64) (*Manifest, error) {
	path := filepath.Join(buildDataRoot, "manifests", fmt.Sprintf("%016x.manifest_release", combinedBuildHash))
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	manifest := &Manifest{
		CombinedBuildHash: combinedBuildHash,
		bySymbolHash:      make(map[utils.Hash128]int),
		byArtifactId:      make(map[build.ArtifactId]int),
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("manifest %s: malformed line %q", path, line)
		}

		var entry ManifestEntry
		if err := decodeHex16(fields[0], entry.ArtifactId[:]); err != nil {
			return nil, fmt.Errorf("manifest %s: artifact id %q: %w", path, fields[0], err)
		}
		entry.BuildHash, err = strconv.ParseUint(fields[1], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: build hash %q: %w", path, fields[1], err)
		}
		if err := decodeHex16(fields[2], entry.AssetType[:]); err != nil {
			return nil, fmt.Errorf("manifest %s: asset type %q: %w", path, fields[2], err)
		}
		var symbolHash utils.Hash128
		if err := decodeHex16(fields[3], symbolHash[:]); err != nil {
			return nil, fmt.Errorf("manifest %s: symbol hash %q: %w", path, fields[3], err)
		}
		entry.SymbolHash = symbolHash

		index := len(manifest.Entries)
		manifest.Entries = append(manifest.Entries, entry)
		manifest.byArtifactId[entry.ArtifactId] = index
		if !symbolHash.IsZero() {
			manifest.bySymbolHash[symbolHash] = index
		}
	}
	return manifest, scanner.Err()
}

// ReadArtifact opens one artifact file of the build and returns its header
// and payload.
func ReadArtifact(fs afero.Fs, buildDataRoot string, entry *ManifestEntry) (*build.BuiltArtifactMetadata, []byte, error) {
	path := utils.UUIDAndHashToPath(buildDataRoot, entry.ArtifactId.UUID(), entry.BuildHash, build.ArtifactFileExtension)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	reader := bytes.NewReader(data)
	metadata, err := build.ReadHeader(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	payload := make([]byte, reader.Len())
	if _, err := reader.Read(payload); err != nil {
		return nil, nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return metadata, payload, nil
}

func decodeHex16(text string, out []byte) error {
	raw, err := hex.DecodeString(text)
	if err != nil {
		return err
	}
	if len(raw) != len(out) {
		return fmt.Errorf("expected %d bytes, got %d", len(out), len(raw))
	}
	copy(out, raw)
	return nil
}
