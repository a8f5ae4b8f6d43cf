//go:build amd64

package simd

import "golang.org/x/sys/cpu"

// AVX2-era cores have the out-of-order depth to profit from the 32-byte
// unrolled kernel; older cores do better with the plain 8-byte loop.
var useWide = cpu.X86.HasAVX2

// IndexByte returns the index of the first instance of needle in haystack,
// or -1 if needle is not present.
func IndexByte(haystack []byte, needle byte) int {
	return indexByteGeneric(haystack, needle)
}

// RunLength returns how many leading bytes of haystack equal b.
func RunLength(haystack []byte, b byte) int {
	if useWide && len(haystack) >= 32 {
		return runLengthWide(haystack, b)
	}
	return runLengthGeneric(haystack, b)
}
