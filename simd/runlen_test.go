package simd

import (
	"bytes"
	"strings"
	"testing"
)

func TestIndexByte(t *testing.T) {
	tests := []struct {
		haystack string
		needle   byte
	}{
		{"", 'x'},
		{"a", 'a'},
		{"a", 'b'},
		{"hello world", 'w'},
		{"hello world", 'z'},
		{strings.Repeat("a", 100) + "b", 'b'},
		{strings.Repeat("ab", 50), 'b'},
		{"\x00\x01\x02", 0},
	}
	for _, tt := range tests {
		want := bytes.IndexByte([]byte(tt.haystack), tt.needle)
		if got := IndexByte([]byte(tt.haystack), tt.needle); got != want {
			t.Errorf("IndexByte(%q, %q) = %d, want %d", tt.haystack, tt.needle, got, want)
		}
	}
}

func TestRunLength(t *testing.T) {
	tests := []struct {
		haystack string
		b        byte
		want     int
	}{
		{"", 'x', 0},
		{"x", 'x', 1},
		{"y", 'x', 0},
		{"xxxy", 'x', 3},
		{strings.Repeat("x", 1000), 'x', 1000},
		{strings.Repeat("x", 999) + "y", 'x', 999},
		{"yxxxx", 'x', 0},
		{strings.Repeat("x", 31) + "z" + strings.Repeat("x", 64), 'x', 31},
		{strings.Repeat("x", 32) + "z", 'x', 32},
		{strings.Repeat("x", 33) + "z", 'x', 33},
	}
	for _, tt := range tests {
		if got := RunLength([]byte(tt.haystack), tt.b); got != tt.want {
			t.Errorf("RunLength(len %d, %q) = %d, want %d", len(tt.haystack), tt.b, got, tt.want)
		}
		// Both kernels must agree regardless of CPU feature selection.
		if got := runLengthGeneric([]byte(tt.haystack), tt.b); got != tt.want {
			t.Errorf("runLengthGeneric(len %d) = %d, want %d", len(tt.haystack), got, tt.want)
		}
		if got := runLengthWide([]byte(tt.haystack), tt.b); got != tt.want {
			t.Errorf("runLengthWide(len %d) = %d, want %d", len(tt.haystack), got, tt.want)
		}
	}
}

func TestCountRepeats(t *testing.T) {
	tests := []struct {
		haystack string
		rep      string
		want     int
	}{
		{"", "ab", 0},
		{"ab", "ab", 1},
		{"ababab", "ab", 3},
		{"ababxb", "ab", 2},
		{"aaaa", "a", 4},
		{"abcabcab", "abc", 2},
		{strings.Repeat("xyz", 500), "xyz", 500},
		{strings.Repeat("xyz", 500) + "xy", "xyz", 500},
	}
	for _, tt := range tests {
		if got := CountRepeats([]byte(tt.haystack), []byte(tt.rep)); got != tt.want {
			t.Errorf("CountRepeats(%q..., %q) = %d, want %d", tt.haystack[:min(8, len(tt.haystack))], tt.rep, got, tt.want)
		}
	}
}
