// Package rxmath provides a backtracking regular-expression engine
// specialized for regex mathematics: matching numbers in unary and
// verifying arithmetic written as repeated characters.
//
// rxmath accepts one pattern at compile time and matches it against
// inputs in two modes:
//
//   - Numerical (unary) mode: the input is an integer N, treated as a
//     string of N identical sentinel characters. Positions are plain
//     integers and no buffer exists, which lets the optimizers collapse
//     entire backtracking subtrees into closed-form arithmetic:
//     divisibility, primality, and power-of-two tests run in O(1) per
//     position instead of exploring the unary string.
//   - String mode: the input is a byte buffer; captures carry offsets as
//     well as lengths.
//
// The dialect is a configurable superset of ECMAScript regex: atomic
// groups (?>...), possessive quantifiers, molecular lookahead (?*...),
// lookinto (?^=...), branch reset groups (?|...), conditionals (?(N)...),
// lookaround conditionals, \K, persistent backrefs, and the backtracking
// verbs (*ACCEPT), (*FAIL), (*COMMIT), (*PRUNE), (*SKIP), (*THEN).
//
// Basic usage:
//
//	re, err := rxmath.Compile(`^(?!(xx+)\1+$)xx+$`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	matched, _, _ := re.MatchNumber(23, 'x', 0) // true: 23 is prime
//
// A Regex is not safe for concurrent matching: each Match call reuses the
// engine's internal stacks. Give each goroutine its own Regex; matchers
// built over one shared pattern are not independent, since virtualization
// rewrites the pattern's symbol tree.
package rxmath

import (
	"github.com/coregx/rxmath/matcher"
	"github.com/coregx/rxmath/prefilter"
	"github.com/coregx/rxmath/syntax"
)

// Regex is a compiled pattern plus the matcher that executes it.
type Regex struct {
	pattern string
	pat     *syntax.Pattern
	cfg     Config
	m       *matcher.Matcher
}

// Compile compiles a pattern with the default configuration.
func Compile(pattern string) (*Regex, error) {
	return CompileWithConfig(pattern, DefaultConfig())
}

// MustCompile compiles a pattern and panics if it fails. Useful for
// patterns known to be valid at compile time.
func MustCompile(pattern string) *Regex {
	re, err := Compile(pattern)
	if err != nil {
		panic("rxmath: Compile(" + pattern + "): " + err.Error())
	}
	return re
}

// CompileWithConfig compiles a pattern under the given dialect and
// optimization configuration. The error is a *syntax.ParseError carrying
// the byte offset of the problem.
func CompileWithConfig(pattern string, cfg Config) (*Regex, error) {
	pat, err := syntax.Parse(pattern, cfg.Flags)
	if err != nil {
		return nil, err
	}
	re := &Regex{
		pattern: pattern,
		pat:     pat,
		cfg:     cfg,
		m:       matcher.New(pat, cfg.matcherConfig()),
	}
	if cfg.EnablePrefilter {
		if f := prefilter.ForPattern(pat); f != nil {
			re.m.Starts = f
		}
	}
	return re, nil
}

// String returns the source pattern.
func (re *Regex) String() string { return re.pattern }

// NumCaptures returns the number of capture groups in the pattern.
func (re *Regex) NumCaptures() int { return int(re.pat.NumCaptures) }

// Anchored reports whether every root alternative of the pattern is
// anchored at the start, so matching tries exactly one start position.
func (re *Regex) Anchored() bool { return re.pat.Anchored }

// selectSpan picks the reported span: the whole match for index 0, or
// capture N for index N >= 1.
func selectSpan(res matcher.Result, captureIndex uint32) (bool, uint64, uint64) {
	if !res.Matched {
		return false, 0, 0
	}
	if captureIndex == 0 {
		return true, res.Offset, res.Length
	}
	i := int(captureIndex) - 1
	if i >= len(res.Captures) || !res.Captures[i].Participating {
		return false, 0, 0
	}
	return true, res.Captures[i].Offset, res.Captures[i].Length
}

// MatchNumber matches the pattern against a unary input of length input.
// basicChar is the sentinel character the unary string repeats (consulted
// for literal characters and \w, \d, \s membership). captureIndex selects
// the reported span: 0 for the whole match, N for capture N.
func (re *Regex) MatchNumber(input uint64, basicChar byte, captureIndex uint32) (matched bool, offset, length uint64) {
	return selectSpan(re.m.MatchNumber(input, basicChar), captureIndex)
}

// MatchString matches the pattern against a byte buffer. captureIndex
// selects the reported span as in MatchNumber.
func (re *Regex) MatchString(b []byte, captureIndex uint32) (matched bool, offset, length uint64) {
	return selectSpan(re.m.MatchString(b), captureIndex)
}

// MatchNumberResult is MatchNumber returning the full result, including
// every capture.
func (re *Regex) MatchNumberResult(input uint64, basicChar byte) matcher.Result {
	return re.m.MatchNumber(input, basicChar)
}

// MatchStringResult is MatchString returning the full result.
func (re *Regex) MatchStringResult(b []byte) matcher.Result {
	return re.m.MatchString(b)
}

// CountNumber counts the distinct ways the pattern can match a unary
// input (exhaustive mode).
func (re *Regex) CountNumber(input uint64, basicChar byte) uint64 {
	return re.m.CountNumber(input, basicChar).PossibleMatches
}

// CountString counts the distinct ways the pattern can match a buffer.
func (re *Regex) CountString(b []byte) uint64 {
	return re.m.CountString(b).PossibleMatches
}
