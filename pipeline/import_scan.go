// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package pipeline

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pb33f/assetforge/datamodel"
	"github.com/pb33f/assetforge/schema"
	"github.com/spf13/afero"
)

// ScanSourceFile dispatches the metadata pass for one source file by its
// extension. When several importers claim the extension the first registered
// wins, matching editor behavior when creating assets from dropped files.
func ScanSourceFile(registry *ImporterRegistry, fs afero.Fs, path string, set *schema.Set, logger *slog.Logger) (datamodel.ImporterId, []ScannedImportable, error) {
	extension := strings.TrimPrefix(filepath.Ext(path), ".")
	ids := registry.ImportersForFileExtension(extension)
	if len(ids) == 0 {
		return datamodel.ImporterId{}, nil, fmt.Errorf("%w for extension %q", ErrImporterNotFound, extension)
	}
	importer, _ := registry.Importer(ids[0])
	scanned, err := importer.ScanFile(ScanContext{
		Fs:        fs,
		Path:      path,
		SchemaSet: set,
		Logger:    logger,
	})
	if err != nil {
		return ids[0], nil, fmt.Errorf("%w: scanning %s: %v", ErrImportFailed, path, err)
	}
	return ids[0], scanned, nil
}
