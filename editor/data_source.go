// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package editor

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/storage"
	"github.com/spf13/afero"
)

// AssetFileExtension is the on-disk extension for persisted assets.
const AssetFileExtension = "af"

// FileSystemDataSource persists assets as .af documents named by asset id
// under a root directory. Loading and saving are whole-source operations
// driven by the modified sets that undo contexts report.
type FileSystemDataSource struct {
	fs       afero.Fs
	rootPath string
	logger   *slog.Logger

	// ids this source has seen on disk, so deletes can be mirrored
	knownAssets map[datamodel.AssetId]struct{}
}

// NewFileSystemDataSource creates a source rooted at rootPath.
func NewFileSystemDataSource(fs afero.Fs, rootPath string, logger *slog.Logger) *FileSystemDataSource {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileSystemDataSource{
		fs:          fs,
		rootPath:    rootPath,
		logger:      logger,
		knownAssets: make(map[datamodel.AssetId]struct{}),
	}
}

func (s *FileSystemDataSource) assetPath(id datamodel.AssetId) string {
	return filepath.Join(s.rootPath, fmt.Sprintf("%s.%s", id.String(), AssetFileExtension))
}

// ReloadAll reads every .af document under the root into the edit context.
// Individual file failures are collected; the rest of the source still loads.
func (s *FileSystemDataSource) ReloadAll(ctx *EditContext) error {
	matches, err := afero.Glob(s.fs, filepath.Join(s.rootPath, "*."+AssetFileExtension))
	if err != nil {
		return fmt.Errorf("scanning asset source %s: %w", s.rootPath, err)
	}

	var result *multierror.Error
	for _, match := range matches {
		data, err := afero.ReadFile(s.fs, match)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", match, err))
			continue
		}
		restored, err := storage.LoadAsset(ctx.SchemaSet(), data)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", match, err))
			continue
		}
		if err := s.restore(ctx, restored); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", match, err))
			continue
		}
		s.knownAssets[restored.Id] = struct{}{}
	}
	s.logger.Info("reloaded asset source", "root", s.rootPath, "assets", len(s.knownAssets))
	return result.ErrorOrNil()
}

func (s *FileSystemDataSource) restore(ctx *EditContext, restored *storage.RestoredAsset) error {
	return ctx.RestoreAsset(
		restored.Id,
		restored.Name,
		restored.Location,
		restored.ImportInfo,
		restored.BuildInfo,
		restored.Prototype,
		restored.Schema,
		restored.Properties,
		restored.NullOverrides,
		restored.ReplaceModePaths,
		restored.DynamicCollectionEntries,
	)
}

// SaveAllModified writes every asset in the modified set back to disk,
// deleting files for assets that no longer exist.
func (s *FileSystemDataSource) SaveAllModified(ctx *EditContext, modified map[datamodel.AssetId]struct{}) error {
	var result *multierror.Error
	for id := range modified {
		path := s.assetPath(id)
		info, err := ctx.DataSet().Asset(id)
		if err != nil {
			// asset was deleted; mirror the delete on disk
			if _, known := s.knownAssets[id]; known {
				if removeErr := s.fs.Remove(path); removeErr != nil {
					result = multierror.Append(result, fmt.Errorf("%s: %w", path, removeErr))
				}
				delete(s.knownAssets, id)
			}
			continue
		}

		data, err := storage.SaveAsset(id, info)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if err := s.fs.MkdirAll(s.rootPath, 0o755); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", s.rootPath, err))
			continue
		}
		if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		s.knownAssets[id] = struct{}{}
	}
	return result.ErrorOrNil()
}

// ReloadAllModified re-reads the modified set from disk, restoring stored
// state and deleting assets whose files are gone.
func (s *FileSystemDataSource) ReloadAllModified(ctx *EditContext, modified map[datamodel.AssetId]struct{}) error {
	var result *multierror.Error
	for id := range modified {
		path := s.assetPath(id)
		exists, err := afero.Exists(s.fs, path)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if !exists {
			if ctx.HasAsset(id) {
				if err := ctx.DeleteAsset(id); err != nil {
					result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
				}
			}
			delete(s.knownAssets, id)
			continue
		}
		data, err := afero.ReadFile(s.fs, path)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		restored, err := storage.LoadAsset(ctx.SchemaSet(), data)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if err := s.restore(ctx, restored); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
			continue
		}
		s.knownAssets[id] = struct{}{}
	}
	return result.ErrorOrNil()
}
