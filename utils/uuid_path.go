// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package utils

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// UUIDToPath maps an id into a two-level directory layout rooted at root:
// the first two hex characters of the id form a bucket directory, the file is
// the full id plus extension. Keeps directory fan-out manageable for stores
// holding tens of thousands of entries.
func UUIDToPath(root string, id uuid.UUID, extension string) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return path.Join(root, hex[0:2], fmt.Sprintf("%s.%s", id.String(), extension))
}

// UUIDAndHashToPath maps an (id, hash) pair into the layout used by the build
// data store: <root>/<first-2-hex>/<uuid>/<hash:016x>.<ext>.
func UUIDAndHashToPath(root string, id uuid.UUID, hash uint64, extension string) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return path.Join(root, hex[0:2], id.String(), fmt.Sprintf("%016x.%s", hash, extension))
}

// PathToUUID recovers the id from a path produced by UUIDToPath. The bucket
// directory is validated against the id so stray files are rejected.
func PathToUUID(p string) (uuid.UUID, bool) {
	base := path.Base(p)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	id, err := uuid.Parse(base)
	if err != nil {
		return uuid.Nil, false
	}
	bucket := path.Base(path.Dir(p))
	hex := strings.ReplaceAll(id.String(), "-", "")
	if bucket != hex[0:2] {
		return uuid.Nil, false
	}
	return id, true
}
