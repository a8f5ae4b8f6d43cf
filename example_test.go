package rxmath_test

import (
	"fmt"

	"github.com/coregx/rxmath"
)

func ExampleRegex_MatchNumber() {
	// Primality test in unary: the pattern rejects any length that has a
	// proper divisor of at least 2.
	re := rxmath.MustCompile(`^(?!(xx+)\1+$)xx+$`)
	for n := uint64(2); n <= 12; n++ {
		if matched, _, _ := re.MatchNumber(n, 'x', 0); matched {
			fmt.Print(n, " ")
		}
	}
	fmt.Println()
	// Output: 2 3 5 7 11
}

func ExampleRegex_MatchString() {
	re := rxmath.MustCompile(`(a+)b`)
	matched, off, length := re.MatchString([]byte("xxaab"), 0)
	fmt.Println(matched, off, length)
	// Output: true 2 3
}

func ExampleCompileWithConfig() {
	cfg := rxmath.DefaultConfig()
	cfg.Flags.AllowAtomicGroups = true
	re, err := rxmath.CompileWithConfig(`^a(?>b+)c$`, cfg)
	if err != nil {
		panic(err)
	}
	matched, _, _ := re.MatchString([]byte("abbc"), 0)
	fmt.Println(matched)
	// Output: true
}
