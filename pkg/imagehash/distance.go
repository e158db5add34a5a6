package imagehash

import (
	"math/bits"
	"strconv"
)

const (
	// MaxDistance is reported for fingerprints that cannot be compared
	// (different length, malformed hex). A hash produced by an incompatible
	// hasher version must count as fully dissimilar, never as an error.
	MaxDistance = 256

	// DefaultThreshold is the similarity cutoff calibrated for 256-bit
	// hashes: ~5.9% of bits may differ, enough to absorb re-encoding.
	DefaultThreshold = 15

	chunkHexLen = 16
)

// HammingDistance counts the bit positions where two fingerprints differ.
// The comparison works chunk-wise: each aligned 16-hex-char chunk pair is
// XORed as a 64-bit integer and population-counted, so no big-integer
// parsing is needed. Incomparable inputs yield MaxDistance.
func HammingDistance(a, b string) int {
	if !isCanonicalHex(a) || !isCanonicalHex(b) {
		return MaxDistance
	}

	distance := 0
	for i := 0; i < HexLength; i += chunkHexLen {
		ca, err := strconv.ParseUint(a[i:i+chunkHexLen], 16, 64)
		if err != nil {
			return MaxDistance
		}
		cb, err := strconv.ParseUint(b[i:i+chunkHexLen], 16, 64)
		if err != nil {
			return MaxDistance
		}
		distance += bits.OnesCount64(ca ^ cb)
	}
	return distance
}

// isCanonicalHex reports whether s is a canonical fingerprint: exactly
// HexLength lowercase hex digits. ParseUint alone would also admit
// uppercase, which the hasher never emits.
func isCanonicalHex(s string) bool {
	if len(s) != HexLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// AreSimilar reports whether two fingerprints are within threshold differing
// bits of each other. Pure function, safe for concurrent use.
func AreSimilar(a, b string, threshold int) bool {
	return HammingDistance(a, b) <= threshold
}
