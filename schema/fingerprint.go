// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package schema

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/pb33f/assetforge/utils"
)

// Fingerprint is the 128-bit deterministic identity of a named schema type.
// Two structurally identical types linked in two different processes produce
// the same fingerprint.
type Fingerprint [16]byte

// FingerprintFromHash converts a 128-bit hash into a fingerprint.
func FingerprintFromHash(h utils.Hash128) Fingerprint {
	return Fingerprint(h)
}

// FingerprintFromUUID converts a UUID into a fingerprint.
func FingerprintFromUUID(id uuid.UUID) Fingerprint {
	return Fingerprint(id)
}

// UUID renders the fingerprint as a UUID, the form used in serialized assets.
func (f Fingerprint) UUID() uuid.UUID {
	return uuid.UUID(f)
}

// String renders the fingerprint as 32 hex characters.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}
