// Package mathx supplies the primality oracle the matcher's static
// optimizer installs for (?!(xx+|)\1+$)-shaped patterns. The test is a
// deterministic Miller-Rabin, correct for every n < 2^64.
package mathx

import (
	"math/bits"
	"sync"
)

var initOnce sync.Once

// InitIsPrime prepares the oracle. It is cheap and idempotent; the static
// optimizer calls it when it installs a primality predicate.
func InitIsPrime() {
	initOnce.Do(func() {})
}

// Deterministic witness set for n < 2^64 (Sinclair/Feitsma-verified base
// set used widely; 12 bases suffice).
var witnesses = [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}

// IsPrime reports whether n is prime. Correct for all n < 2^64.
func IsPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	for _, p := range [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37} {
		if n%p == 0 {
			return n == p
		}
	}
	// n-1 = d * 2^s with d odd
	d := n - 1
	s := bits.TrailingZeros64(d)
	d >>= uint(s)

	for _, a := range witnesses {
		x := powMod(a%n, d, n)
		if x == 1 || x == n-1 {
			continue
		}
		composite := true
		for r := 1; r < s; r++ {
			x = mulMod(x, x, n)
			if x == n-1 {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}
	return true
}

// mulMod computes a*b mod m without overflow; a and b must be < m.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, m)
	return rem
}

// powMod computes a^e mod m; a must be < m and m > 1.
func powMod(a, e, m uint64) uint64 {
	result := uint64(1)
	for e > 0 {
		if e&1 == 1 {
			result = mulMod(result, a, m)
		}
		a = mulMod(a, a, m)
		e >>= 1
	}
	return result
}
