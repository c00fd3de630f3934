// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package utils

import "hash"

// HashSymbolName hashes a symbol name (an asset path rendered as a string)
// for use in release manifests. The empty string hashes to zero, which
// manifest consumers treat as "no symbol".
func HashSymbolName(name string) Hash128 {
	if name == "" {
		return Hash128{}
	}
	return WithHasher128(func(h hash.Hash) {
		HashString(h, name)
	})
}
