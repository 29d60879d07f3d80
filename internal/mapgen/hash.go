// internal/mapgen/hash.go
package mapgen

import "unicode/utf16"

const (
	fnvOffset32 uint32 = 0x811c9dc5
	fnvPrime32  uint32 = 0x01000193
)

// PseudoRandom maps a seed to a stable value in [0,1) using 32-bit FNV-1a.
// It is the only randomness source for map layout, so a reloaded session
// reproduces the same map without storing coordinates.
//
// The seed is consumed as UTF-16 code units, the same units a browser's
// charCodeAt yields; inside the BMP this equals hashing code points.
func PseudoRandom(seed string) float64 {
	h := fnvOffset32
	for _, unit := range utf16.Encode([]rune(seed)) {
		h ^= uint32(unit)
		h *= fnvPrime32
	}
	return float64(h) / 4294967296.0
}
