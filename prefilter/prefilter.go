// Package prefilter accelerates unanchored string-mode matching by
// proposing candidate start positions instead of trying every offset.
//
// When every root-level alternative of a pattern begins with a mandatory
// literal, a match can only start where one of those literals occurs. A
// single one-byte literal is located with a SWAR byte scan; multiple
// distinct literals are located with an Aho-Corasick automaton.
package prefilter

import (
	"github.com/coregx/ahocorasick"

	"github.com/coregx/rxmath/simd"
	"github.com/coregx/rxmath/syntax"
)

// maxLiterals bounds the extracted prefix set; beyond this the automaton's
// advantage over plain position scanning evaporates.
const maxLiterals = 64

// Finder proposes candidate start offsets. It satisfies the matcher
// package's StartFinder interface.
type Finder interface {
	FindStart(haystack []byte, from int) (pos int, ok bool)
}

// byteFinder proposes every occurrence of a single byte.
type byteFinder struct {
	b byte
}

func (f *byteFinder) FindStart(haystack []byte, from int) (int, bool) {
	if from >= len(haystack) {
		return 0, false
	}
	i := simd.IndexByte(haystack[from:], f.b)
	if i < 0 {
		return 0, false
	}
	return from + i, true
}

// acFinder proposes every position where any literal of the set occurs.
type acFinder struct {
	auto *ahocorasick.Automaton
}

func (f *acFinder) FindStart(haystack []byte, from int) (int, bool) {
	if from >= len(haystack) {
		return 0, false
	}
	m := f.auto.Find(haystack, from)
	if m == nil {
		return 0, false
	}
	return m.Start, true
}

// ForPattern builds a start finder for the pattern, or nil when the
// pattern is anchored, some alternative lacks a mandatory literal prefix,
// or the prefix set is too large to be worthwhile.
func ForPattern(pat *syntax.Pattern) Finder {
	if pat.Anchored {
		return nil
	}
	lits, ok := prefixesOfGroup(pat.Root.Group, nil)
	if !ok {
		return nil
	}
	lits = dedupe(lits)
	if len(lits) == 0 || len(lits) > maxLiterals {
		return nil
	}
	if len(lits) == 1 && len(lits[0]) == 1 {
		return &byteFinder{b: lits[0][0]}
	}
	builder := ahocorasick.NewBuilder()
	for _, lit := range lits {
		builder.AddPattern(lit)
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return &acFinder{auto: auto}
}

// prefixesOfGroup collects one mandatory literal prefix per alternative of
// the group, recursing through leading subgroups. ok is false when any
// alternative fails to yield one.
func prefixesOfGroup(g *syntax.Group, acc [][]byte) ([][]byte, bool) {
	for _, alt := range g.Alts {
		var ok bool
		acc, ok = prefixOfAlternative(alt, acc)
		if !ok {
			return nil, false
		}
	}
	return acc, true
}

func prefixOfAlternative(alt *syntax.Alternative, acc [][]byte) ([][]byte, bool) {
	for _, s := range alt.Symbols {
		switch s.Kind {
		case syntax.KindNoOp:
			continue
		case syntax.KindCharacter:
			if s.CharacterAny || s.Min == 0 {
				return nil, false
			}
			return append(acc, []byte{s.Character}), true
		case syntax.KindString:
			return append(acc, s.Str), true
		case syntax.KindGroup:
			sub := s.Group
			if s.Min == 0 || sub.IsLookaround() ||
				sub.Kind == syntax.GroupConditional || sub.Kind == syntax.GroupLookaroundConditional {
				return nil, false
			}
			return prefixesOfGroup(sub, acc)
		default:
			return nil, false
		}
	}
	return nil, false
}

func dedupe(lits [][]byte) [][]byte {
	seen := make(map[string]bool, len(lits))
	out := lits[:0]
	for _, l := range lits {
		if !seen[string(l)] {
			seen[string(l)] = true
			out = append(out, l)
		}
	}
	return out
}
