package cachekey

import "strconv"

const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

// HashString computes the FNV-1a 64-bit hash of s and returns it as a
// 16-character zero-padded lowercase hex string. Multiplication wraps at 64
// bits, matching the reference FNV definition.
func HashString(s string) string {
	h := fnvOffset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	out := strconv.FormatUint(h, 16)
	for len(out) < 16 {
		out = "0" + out
	}
	return out
}

// StableHash hashes the canonical serialization of v. Logically equal values
// always produce the same hash.
func StableHash(v any) string {
	return HashString(CanonicalSerialize(v))
}
