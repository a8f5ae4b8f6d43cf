package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/coregx/rxmath"
)

func printTestList() {
	fmt.Fprint(os.Stderr, `String mode tests:
  triples                  Match multiples of 3 in decimal notation.
  multiplication           Match correct multiplication in unary, e.g.
                           xxx*xxxx=xxxxxxxxxxxx
  multiplication-0         The above, allowing zero factors.
  triangular-table         Print a triangular table of results for
                           comma-delimited unary pairs "a,b" with b <= a.

Numerical mode (unary) tests:
  Fibonacci                Match only Fibonacci numbers.
  power-of-2               Match only powers of 2.
  triangular               Match only triangular numbers.
`)
}

func runBuiltinTest(opt *options, cfg rxmath.Config, pattern string) error {
	if pattern == "" {
		return fmt.Errorf("rxmath: --test requires a pattern to verify")
	}
	re, err := rxmath.CompileWithConfig(pattern, cfg)
	if err != nil {
		return err
	}
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	lo, hi := uint64(0), uint64(100)
	if opt.rangeSpec != "" {
		if lo, hi, err = parseRange(opt.rangeSpec); err != nil {
			return err
		}
	}

	switch strings.ToLower(opt.testName) {
	case "fibonacci":
		return testSequence(opt, re, out, fibonacciSet(), "Fibonacci")
	case "power-of-2":
		return testSequence(opt, re, out, powerOf2Set(), "power of 2")
	case "triangular":
		return testSequence(opt, re, out, triangularSet(), "triangular")
	case "multiplication":
		return testMultiplication(opt, re, out, lo, hi, false)
	case "multiplication-0":
		return testMultiplication(opt, re, out, lo, hi, true)
	case "triples":
		return testTriples(opt, re, out, lo, hi)
	case "triangular-table":
		return testTriangularTable(re, out, lo, hi)
	}
	return fmt.Errorf("rxmath: unknown test %q", opt.testName)
}

// fibonacciSet returns every Fibonacci number representable in a uint64.
func fibonacciSet() map[uint64]bool {
	set := map[uint64]bool{0: true, 1: true}
	a, b := uint64(0), uint64(1)
	for {
		next := a + b
		if next < b {
			break
		}
		set[next] = true
		a, b = b, next
	}
	return set
}

func powerOf2Set() map[uint64]bool {
	set := make(map[uint64]bool, 64)
	for i := 0; i < 64; i++ {
		set[uint64(1)<<i] = true
	}
	return set
}

func triangularSet() map[uint64]bool {
	set := make(map[uint64]bool)
	var t uint64
	for n := uint64(0); ; n++ {
		t += n
		if t < n {
			break
		}
		set[t] = true
	}
	return set
}

// testSequence verifies membership of every input in the tested range and,
// when --test-false is given, also that the large members of the set
// beyond the range match, which is feasible only through the optimizers.
func testSequence(opt *options, re *rxmath.Regex, out *bufio.Writer, set map[uint64]bool, name string) error {
	basicChar := byte('x')
	if opt.numChar != "" {
		basicChar = opt.numChar[0]
	}
	lo, hi := uint64(0), uint64(100)
	if opt.rangeSpec != "" {
		var err error
		if lo, hi, err = parseRange(opt.rangeSpec); err != nil {
			return err
		}
	}
	failures := 0
	for n := lo; ; n++ {
		matched, _, _ := re.MatchNumber(n, basicChar, 0)
		if matched != set[n] {
			failures++
			fmt.Fprintf(out, "FAIL %d: matched=%v, want %v (%s)\n", n, matched, set[n], name)
		}
		if n == hi {
			break
		}
	}
	if opt.testFalse {
		// Probe the large members and their neighbors: these only finish
		// through the optimizers.
		for n := range set {
			if n < hi {
				continue
			}
			if matched, _, _ := re.MatchNumber(n, basicChar, 0); !matched {
				failures++
				fmt.Fprintf(out, "FAIL %d: large %s member did not match\n", n, name)
			}
			if matched, _, _ := re.MatchNumber(n+1, basicChar, 0); matched && !set[n+1] {
				failures++
				fmt.Fprintf(out, "FAIL %d: false positive\n", n+1)
			}
		}
	}
	if failures == 0 {
		fmt.Fprintf(out, "%s: all inputs in %d..%d OK\n", name, lo, hi)
	}
	return nil
}

func unary(n uint64) string { return strings.Repeat("x", int(n)) }

func testMultiplication(opt *options, re *rxmath.Regex, out *bufio.Writer, lo, hi uint64, allowZero bool) error {
	start := lo
	if !allowZero && start == 0 {
		start = 1
	}
	failures := 0
	for a := start; a <= hi; a++ {
		for b := start; b <= hi; b++ {
			good := unary(a) + "*" + unary(b) + "=" + unary(a*b)
			if matched, _, _ := re.MatchString([]byte(good), 0); !matched {
				failures++
				fmt.Fprintf(out, "FAIL %d*%d: correct product did not match\n", a, b)
			}
			if opt.testFalse {
				bad := unary(a) + "*" + unary(b) + "=" + unary(a*b+1)
				if matched, _, _ := re.MatchString([]byte(bad), 0); matched {
					failures++
					fmt.Fprintf(out, "FAIL %d*%d: off-by-one product matched\n", a, b)
				}
			}
		}
	}
	if failures == 0 {
		fmt.Fprintf(out, "multiplication: all products in %d..%d OK\n", start, hi)
	}
	return nil
}

func testTriples(opt *options, re *rxmath.Regex, out *bufio.Writer, lo, hi uint64) error {
	failures := 0
	for n := lo; n <= hi; n++ {
		s := fmt.Sprintf("%d", n)
		matched, _, _ := re.MatchString([]byte(s), 0)
		if matched != (n%3 == 0) {
			failures++
			fmt.Fprintf(out, "FAIL %s: matched=%v, want %v\n", s, matched, n%3 == 0)
		}
	}
	if failures == 0 {
		fmt.Fprintf(out, "triples: all inputs in %d..%d OK\n", lo, hi)
	}
	return nil
}

// testTriangularTable prints the raw output of the pattern over unary
// pairs "a,b" with b <= a, one row per a; it displays without verifying.
func testTriangularTable(re *rxmath.Regex, out *bufio.Writer, lo, hi uint64) error {
	if lo == 0 {
		lo = 1
	}
	for a := lo; a <= hi; a++ {
		for b := uint64(1); b <= a; b++ {
			input := unary(a) + "," + unary(b)
			matched, _, length := re.MatchString([]byte(input), 0)
			if matched {
				fmt.Fprintf(out, "%3d", length)
			} else {
				fmt.Fprint(out, "  -")
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}
