// Package conv provides safe integer conversion helpers for the regex
// engine.
//
// These functions perform bounds checking before narrowing conversions to
// prevent silent overflow. They panic on overflow since this indicates a
// programming error (e.g., an input position outside the addressable
// range).
package conv

import "math"

// Uint64ToInt safely converts a uint64 position to an int index.
// Panics if n does not fit in an int.
func Uint64ToInt(n uint64) int {
	if n > uint64(math.MaxInt) {
		panic("integer overflow: uint64 value out of int range")
	}
	return int(n)
}

// IntToUint64 safely converts an int to uint64.
// Panics if n < 0.
func IntToUint64(n int) uint64 {
	if n < 0 {
		panic("integer overflow: negative int value")
	}
	return uint64(n)
}
