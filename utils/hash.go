// Copyright 2022-2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: MIT

package utils

import (
	"encoding/binary"
	"hash"
	"math"

	"github.com/dchest/siphash"
)

// Hash keys are fixed so that every hash produced by the pipeline is stable
// across processes and hosts. Changing these invalidates every cached
// fingerprint, job id and build hash on disk.
const (
	hashKey0 uint64 = 0x616e64726f6d6564
	hashKey1 uint64 = 0x6173736574666f72
)

var hashKeyBytes = func() []byte {
	k := make([]byte, 16)
	binary.LittleEndian.PutUint64(k[0:8], hashKey0)
	binary.LittleEndian.PutUint64(k[8:16], hashKey1)
	return k
}()

// Hash128 is a 128-bit hash value, stored big-endian so the hex form reads the
// same as the formatted value.
type Hash128 [16]byte

// Uint128 splits the hash into its high and low 64-bit halves.
func (h Hash128) Uint128() (hi uint64, lo uint64) {
	return binary.BigEndian.Uint64(h[0:8]), binary.BigEndian.Uint64(h[8:16])
}

// IsZero reports whether every byte of the hash is zero.
func (h Hash128) IsZero() bool {
	return h == Hash128{}
}

// NewHasher64 returns a SipHash-2-4 64-bit hasher seeded with the pipeline keys.
func NewHasher64() hash.Hash64 {
	return siphash.New(hashKeyBytes)
}

// NewHasher128 returns a SipHash-2-4 128-bit hasher seeded with the pipeline keys.
func NewHasher128() hash.Hash {
	return siphash.New128(hashKeyBytes)
}

// WithHasher64 provides a 64-bit hasher for the duration of fn and returns the
// final sum. This pattern eliminates forgotten Sum64() bugs.
func WithHasher64(fn func(h hash.Hash64)) uint64 {
	hasher := NewHasher64()
	fn(hasher)
	return hasher.Sum64()
}

// WithHasher128 provides a 128-bit hasher for the duration of fn.
func WithHasher128(fn func(h hash.Hash)) Hash128 {
	hasher := NewHasher128()
	fn(hasher)
	var out Hash128
	copy(out[:], hasher.Sum(nil))
	return out
}

// HashString writes a string to the hasher.
func HashString(h hash.Hash, s string) {
	_, _ = h.Write([]byte(s))
}

// HashByte writes a single byte (typically a separator).
func HashByte(h hash.Hash, b byte) {
	_, _ = h.Write([]byte{b})
}

// HashBool writes a boolean as a single byte.
func HashBool(h hash.Hash, b bool) {
	if b {
		HashByte(h, 1)
	} else {
		HashByte(h, 0)
	}
}

// HashInt64 writes an int64 using little-endian binary encoding.
func HashInt64(h hash.Hash, n int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	_, _ = h.Write(buf[:])
}

// HashUint64 writes another hash value (for composition of nested hashes).
func HashUint64(h hash.Hash, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

// HashFloat64 writes a float64 using its IEEE 754 bit pattern.
func HashFloat64(h hash.Hash, f float64) {
	HashUint64(h, math.Float64bits(f))
}

// HashFloat32 writes a float32 using its IEEE 754 bit pattern.
func HashFloat32(h hash.Hash, f float32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
	_, _ = h.Write(buf[:])
}

// HashHash128 writes a 128-bit hash value into another hasher.
func HashHash128(h hash.Hash, v Hash128) {
	_, _ = h.Write(v[:])
}

// HASH_PIPE is the separator byte used between hash fields. :)
const HASH_PIPE = '|'
