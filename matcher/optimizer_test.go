package matcher

import (
	"testing"

	"github.com/coregx/rxmath/syntax"
)

func matchNumbers(t *testing.T, pattern string, flags syntax.Flags, optLevel int, upTo uint64) []uint64 {
	t.Helper()
	m := newTestMatcher(t, pattern, flags, optLevel)
	var out []uint64
	for n := uint64(0); n <= upTo; n++ {
		if res := m.MatchNumber(n, 'x'); res.Matched {
			out = append(out, n)
		}
	}
	return out
}

func equalU64(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMatchNumber_PrimeLengths(t *testing.T) {
	want := []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}
	for _, level := range []int{0, 1, 2} {
		got := matchNumbers(t, `^(?!(xx+)\1+$)xx+$`, syntax.DefaultFlags(), level, 30)
		if !equalU64(got, want) {
			t.Errorf("-O%d: primes up to 30 = %v, want %v", level, got, want)
		}
	}
}

func TestMatchNumber_PowerOf2(t *testing.T) {
	want := []uint64{1, 2, 4, 8, 16}
	for _, level := range []int{0, 2} {
		got := matchNumbers(t, `^(?!(x(xx)+|)\1*$)x*$`, syntax.DefaultFlags(), level, 20)
		if !equalU64(got, want) {
			t.Errorf("-O%d: powers of 2 up to 20 = %v, want %v", level, got, want)
		}
	}
}

func TestMatchNumber_PowerOf2SplitForm(t *testing.T) {
	want := []uint64{1, 2, 4, 8, 16}
	got := matchNumbers(t, `^(?!(x*)(\1\1)+$)x+$`, syntax.DefaultFlags(), 2, 20)
	if !equalU64(got, want) {
		t.Errorf("powers of 2 (split form) up to 20 = %v, want %v", got, want)
	}
}

func TestMatchNumber_HugePrime(t *testing.T) {
	// 2^61-1 is a Mersenne prime. Without the primality rewrite this would
	// take geological time; with it, the predicate answers immediately.
	m := newTestMatcher(t, `^(?!(xx+)\1+$)xx+$`, syntax.DefaultFlags(), 2)
	const mersenne61 = 1<<61 - 1
	if res := m.MatchNumber(mersenne61, 'x'); !res.Matched {
		t.Error("2^61-1 did not match the prime pattern")
	}
	if res := m.MatchNumber(mersenne61-1, 'x'); res.Matched {
		t.Error("2^61-2 matched the prime pattern")
	}
}

func TestMatchNumber_HugePowerOf2(t *testing.T) {
	m := newTestMatcher(t, `^(?!(x(xx)+|)\1*$)x*$`, syntax.DefaultFlags(), 2)
	if res := m.MatchNumber(1<<62, 'x'); !res.Matched {
		t.Error("2^62 did not match the power-of-two pattern")
	}
	if res := m.MatchNumber(1<<62+2, 'x'); res.Matched {
		t.Error("2^62+2 matched the power-of-two pattern")
	}
}

func TestMatchNumber_EndAnchorArithmetic(t *testing.T) {
	// ^(xxx)*$ matches multiples of 3; the const-group rewrite plus the
	// end-anchored runtime optimizer solve each input without looping.
	for _, level := range []int{0, 2} {
		got := matchNumbers(t, `^(xxx)*$`, syntax.DefaultFlags(), level, 20)
		want := []uint64{0, 3, 6, 9, 12, 15, 18}
		if !equalU64(got, want) {
			t.Errorf("-O%d: multiples of 3 up to 20 = %v, want %v", level, got, want)
		}
	}
	// Large input: only feasible through the arithmetic.
	m := newTestMatcher(t, `^(xxx)*$`, syntax.DefaultFlags(), 2)
	if res := m.MatchNumber(300000000000000000, 'x'); !res.Matched {
		t.Error("3e17 did not match ^(xxx)*$")
	}
	if res := m.MatchNumber(300000000000000001, 'x'); res.Matched {
		t.Error("3e17+1 matched ^(xxx)*$")
	}
}

func TestMatchNumber_HalvingBackref(t *testing.T) {
	// ^(x*)\1$ matches even lengths via the divide-by-two shortcut.
	for _, level := range []int{0, 2} {
		got := matchNumbers(t, `^(x*)\1$`, syntax.DefaultFlags(), level, 15)
		want := []uint64{0, 2, 4, 6, 8, 10, 12, 14}
		if !equalU64(got, want) {
			t.Errorf("-O%d: even lengths up to 15 = %v, want %v", level, got, want)
		}
	}
	m := newTestMatcher(t, `^(x*)\1$`, syntax.DefaultFlags(), 2)
	if res := m.MatchNumber(1<<60, 'x'); !res.Matched {
		t.Error("2^60 did not match ^(x*)\\1$")
	}
	if res := m.MatchNumber(1<<60+1, 'x'); res.Matched {
		t.Error("2^60+1 matched ^(x*)\\1$")
	}
	// The capture must hold half the input.
	res := m.MatchNumber(1<<60, 'x')
	if c := res.Captures[0]; !c.Participating || c.Length != 1<<59 {
		t.Errorf("capture 1 = %+v, want length %d", c, uint64(1)<<59)
	}
}

func TestMatchNumber_TriplingBackrefs(t *testing.T) {
	// ^(x*)\1\1$ matches multiples of 3 through the self-backref divisor.
	for _, level := range []int{0, 2} {
		got := matchNumbers(t, `^(x*)\1\1$`, syntax.DefaultFlags(), level, 13)
		want := []uint64{0, 3, 6, 9, 12}
		if !equalU64(got, want) {
			t.Errorf("-O%d: multiples of 3 up to 13 = %v, want %v", level, got, want)
		}
	}
}

func TestMatchNumber_OptimizerEquivalence(t *testing.T) {
	// -O0 and -O2 must agree byte-exactly on match, offset, length, and
	// captures for every pattern and input.
	patterns := []string{
		`^(?!(xx+)\1+$)xx+$`,
		`^(?!(x(xx)+|)\1*$)x*$`,
		`^(?!(x*)(\1\1)+$)x+$`,
		`^(xxx)*$`,
		`^(x*)\1$`,
		`^(x*)\1\1$`,
		`^(xx)*(xxx)*$`,
		`^x{3,7}$`,
		`^(x+)(?=\1$)x+$`,
		`x*`,
	}
	for _, pattern := range patterns {
		m0 := newTestMatcher(t, pattern, syntax.DefaultFlags(), 0)
		m2 := newTestMatcher(t, pattern, syntax.DefaultFlags(), 2)
		for n := uint64(0); n <= 36; n++ {
			r0 := m0.MatchNumber(n, 'x')
			r2 := m2.MatchNumber(n, 'x')
			if r0.Matched != r2.Matched || (r0.Matched && (r0.Offset != r2.Offset || r0.Length != r2.Length)) {
				t.Errorf("%q at %d: -O0 got %v %d:%d, -O2 got %v %d:%d",
					pattern, n, r0.Matched, r0.Offset, r0.Length, r2.Matched, r2.Offset, r2.Length)
				continue
			}
			if !r0.Matched {
				continue
			}
			for i := range r0.Captures {
				if r0.Captures[i].Participating != r2.Captures[i].Participating ||
					r0.Captures[i].Length != r2.Captures[i].Length {
					t.Errorf("%q at %d: capture %d differs: -O0 %+v, -O2 %+v",
						pattern, n, i+1, r0.Captures[i], r2.Captures[i])
				}
			}
		}
	}
}

func TestMatchString_RepetendVerification(t *testing.T) {
	// In string mode the closed-form count must still verify that the
	// repetend actually occurs that many times.
	m := newTestMatcher(t, `^(ab)*$`, syntax.DefaultFlags(), 2)
	if res := m.MatchString([]byte("ababab")); !res.Matched {
		t.Error("^(ab)*$ did not match ababab")
	}
	if res := m.MatchString([]byte("ababxb")); res.Matched {
		t.Error("^(ab)*$ matched ababxb")
	}
	m = newTestMatcher(t, `^(a+)\1$`, syntax.DefaultFlags(), 2)
	if res := m.MatchString([]byte("aaaa")); !res.Matched {
		t.Error("^(a+)\\1$ did not match aaaa")
	}
	if res := m.MatchString([]byte("aaab")); res.Matched {
		t.Error("^(a+)\\1$ matched aaab")
	}
}

func TestMatchString_UnaryMultiplication(t *testing.T) {
	// Verifies a*b=c in unary: each x of the first factor extends the
	// accumulator (capture 2) by one copy of the second factor, and the
	// tail requires the accumulator to equal the product exactly.
	flags := syntax.DefaultFlags()
	flags.EmulateECMANPCGs = false
	flags.PersistentBackrefs = true
	flags.AllowConditionals = true

	m := newTestMatcher(t, `^(?:x(?=x*\*(x+)=((?(2)\2)\1)x*$))*\*x+=\2$`, flags, 2)

	for _, tt := range []struct {
		a, b, c uint64
		matched bool
	}{
		{3, 4, 12, true},
		{3, 4, 13, false},
		{3, 4, 11, false},
		{3, 4, 8, false},
		{1, 1, 1, true},
		{2, 5, 10, true},
		{5, 2, 10, true},
		{7, 6, 42, true},
		{7, 6, 41, false},
	} {
		input := unaryString(tt.a) + "*" + unaryString(tt.b) + "=" + unaryString(tt.c)
		if res := m.MatchString([]byte(input)); res.Matched != tt.matched {
			t.Errorf("%d*%d=%d: matched=%v, want %v", tt.a, tt.b, tt.c, res.Matched, tt.matched)
		}
	}
}

func unaryString(n uint64) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}
