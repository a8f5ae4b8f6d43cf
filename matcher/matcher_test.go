package matcher

import (
	"testing"

	"github.com/coregx/rxmath/syntax"
)

func compileForTest(t *testing.T, pattern string, flags syntax.Flags) *syntax.Pattern {
	t.Helper()
	pat, err := syntax.Parse(pattern, flags)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", pattern, err)
	}
	return pat
}

func newTestMatcher(t *testing.T, pattern string, flags syntax.Flags, optLevel int) *Matcher {
	t.Helper()
	pat := compileForTest(t, pattern, flags)
	return New(pat, Config{Flags: flags, OptimizationLevel: optLevel})
}

func TestMatchString_Basics(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		matched bool
		offset  uint64
		length  uint64
	}{
		// Literals and alternation
		{"abc", "xxabcxx", true, 2, 3},
		{"abc", "ab", false, 0, 0},
		{"foo|bar", "bar", true, 0, 3},
		{"foo|bar", "baz", false, 0, 0},

		// Quantifiers
		{"a*", "", true, 0, 0},
		{"a+", "aaa", true, 0, 3},
		{"a+", "bbb", false, 0, 0},
		{"a{2,4}", "aaaaa", true, 0, 4},
		{"a{2,4}", "a", false, 0, 0},
		{"ab{2}c", "abbc", true, 0, 4},

		// Anchors
		{"^abc$", "abc", true, 0, 3},
		{"^abc$", "xabc", false, 0, 0},
		{"c$", "abc", true, 2, 1},

		// Character classes
		{"[a-c]+", "zzabcz", true, 2, 3},
		{"[^a-c]+", "abczzz", true, 3, 3},
		{`\d+`, "ab123cd", true, 2, 3},
		{`\w+`, "  hi_9 ", true, 2, 4},
		{`\s`, "ab cd", true, 2, 1},

		// Dot matches any byte
		{"a.c", "abc", true, 0, 3},
		{"a.c", "ac", false, 0, 0},

		// Groups and backrefs
		{"(ab)+", "ababab", true, 0, 6},
		{`(a+)b\1`, "aabaa", true, 0, 5},
		{`(a+)b\1`, "aaba", true, 1, 3},
		{`(ab|cd)\1`, "cdcd", true, 0, 4},
		{`(ab|cd)\1`, "abcd", false, 0, 0},

		// Word boundaries
		{`\bcat\b`, "a cat.", true, 2, 3},
		{`\bcat\b`, "scatter", false, 0, 0},

		// Lookahead
		{"(?!foo)bar", "barn", true, 0, 3},
		{"(?!foo)bar", "foobar", true, 3, 3},
		{"a(?=b)", "ab", true, 0, 1},
		{"a(?=b)", "ac", false, 0, 0},
	}
	for _, tt := range tests {
		m := newTestMatcher(t, tt.pattern, syntax.DefaultFlags(), 2)
		res := m.MatchString([]byte(tt.input))
		if res.Matched != tt.matched {
			t.Errorf("%q on %q: matched=%v, want %v", tt.pattern, tt.input, res.Matched, tt.matched)
			continue
		}
		if tt.matched && (res.Offset != tt.offset || res.Length != tt.length) {
			t.Errorf("%q on %q: got %d:%d, want %d:%d",
				tt.pattern, tt.input, res.Offset, res.Length, tt.offset, tt.length)
		}
	}
}

func TestMatchString_QuantifierLaws(t *testing.T) {
	// Greedy maximizes, lazy minimizes, subject to overall success.
	tests := []struct {
		pattern string
		input   string
		cap1    string
	}{
		{`^(a+)a`, "aaaa", "aaa"},
		{`^(a+?)a`, "aaaa", "a"},
		{`^(a*)`, "aaa", "aaa"},
		{`^(a*?)b`, "aaab", "aaa"},
		{`^(a{1,3}?)a`, "aaaa", "a"},
	}
	for _, tt := range tests {
		m := newTestMatcher(t, tt.pattern, syntax.DefaultFlags(), 2)
		res := m.MatchString([]byte(tt.input))
		if !res.Matched {
			t.Errorf("%q on %q: no match", tt.pattern, tt.input)
			continue
		}
		c := res.Captures[0]
		got := tt.input[c.Offset : c.Offset+c.Length]
		if got != tt.cap1 {
			t.Errorf("%q on %q: capture 1 = %q, want %q", tt.pattern, tt.input, got, tt.cap1)
		}
	}
}

func TestMatchString_Possessive(t *testing.T) {
	flags := syntax.DefaultFlags()
	flags.AllowPossessiveQuantifiers = true

	// a++ refuses to give back the final 'a'.
	m := newTestMatcher(t, "^a++ab$", flags, 2)
	if res := m.MatchString([]byte("aaaab")); res.Matched {
		t.Error("^a++ab$ matched aaaab; possessive quantifier gave back input")
	}
	m = newTestMatcher(t, "^a+ab$", flags, 2)
	if res := m.MatchString([]byte("aaaab")); !res.Matched {
		t.Error("^a+ab$ did not match aaaab")
	}
}

func TestMatchString_AtomicGroups(t *testing.T) {
	flags := syntax.DefaultFlags()
	flags.AllowAtomicGroups = true

	tests := []struct {
		pattern string
		input   string
		matched bool
	}{
		{"^a(?>b+)c$", "abbc", true},
		{"^a(?>b+)bc$", "abbc", false}, // the atomic group keeps both b's
		{"^a(?:b+)bc$", "abbc", true},
		{"^(?>a|ab)c$", "abc", false}, // no re-entry to try the longer branch
		{"^(?:a|ab)c$", "abc", true},
	}
	for _, tt := range tests {
		m := newTestMatcher(t, tt.pattern, flags, 2)
		if res := m.MatchString([]byte(tt.input)); res.Matched != tt.matched {
			t.Errorf("%q on %q: matched=%v, want %v", tt.pattern, tt.input, res.Matched, tt.matched)
		}
	}
}

func TestMatchString_BranchReset(t *testing.T) {
	flags := syntax.DefaultFlags()
	flags.AllowBranchResetGroups = true

	m := newTestMatcher(t, `(?|(a)|(b))\1`, flags, 2)
	for _, tt := range []struct {
		input   string
		matched bool
		cap1    string
	}{
		{"aa", true, "a"},
		{"bb", true, "b"},
		{"ab", false, ""},
	} {
		res := m.MatchString([]byte(tt.input))
		if res.Matched != tt.matched {
			t.Errorf("(?|(a)|(b))\\1 on %q: matched=%v, want %v", tt.input, res.Matched, tt.matched)
			continue
		}
		if !tt.matched {
			continue
		}
		c := res.Captures[0]
		if got := tt.input[c.Offset : c.Offset+c.Length]; got != tt.cap1 {
			t.Errorf("capture 1 on %q = %q, want %q", tt.input, got, tt.cap1)
		}
	}
}

func TestMatchString_Conditionals(t *testing.T) {
	flags := syntax.DefaultFlags()
	flags.AllowConditionals = true

	m := newTestMatcher(t, `^(a)?(?(1)b|c)$`, flags, 2)
	for _, tt := range []struct {
		input   string
		matched bool
	}{
		{"ab", true},
		{"c", true},
		{"ac", false},
		{"b", false},
	} {
		if res := m.MatchString([]byte(tt.input)); res.Matched != tt.matched {
			t.Errorf("^(a)?(?(1)b|c)$ on %q: matched=%v, want %v", tt.input, res.Matched, tt.matched)
		}
	}
}

func TestMatchString_LookaroundConditional(t *testing.T) {
	flags := syntax.DefaultFlags()
	flags.AllowLookaroundConditionals = true

	m := newTestMatcher(t, `^(?(?=ab)ab|cd)$`, flags, 2)
	for _, tt := range []struct {
		input   string
		matched bool
	}{
		{"ab", true},
		{"cd", true},
		{"ad", false},
	} {
		if res := m.MatchString([]byte(tt.input)); res.Matched != tt.matched {
			t.Errorf("^(?(?=ab)ab|cd)$ on %q: matched=%v, want %v", tt.input, res.Matched, tt.matched)
		}
	}
}

func TestMatchString_MolecularLookahead(t *testing.T) {
	flags := syntax.DefaultFlags()
	flags.AllowMolecularLookaround = true

	// An atomic lookahead commits to the first branch; a molecular one can
	// be re-entered after the outer pattern fails.
	atomic := newTestMatcher(t, `^(?=(a|ab))\1c$`, flags, 2)
	if res := atomic.MatchString([]byte("abc")); res.Matched {
		t.Error("atomic lookahead re-entered its body")
	}
	molecular := newTestMatcher(t, `^(?*(a|ab))\1c$`, flags, 2)
	if res := molecular.MatchString([]byte("abc")); !res.Matched {
		t.Error("molecular lookahead was not re-entered")
	}
}

func TestMatchString_NPCG(t *testing.T) {
	// A backref to a non-participating group matches empty under ECMA
	// emulation and forces a non-match otherwise.
	ecma := syntax.DefaultFlags()
	strict := syntax.DefaultFlags()
	strict.EmulateECMANPCGs = false

	m := newTestMatcher(t, `^(?:(a)|b)\1c$`, ecma, 2)
	if res := m.MatchString([]byte("bc")); !res.Matched {
		t.Error("NPCG backref did not match empty under ECMA emulation")
	}
	m = newTestMatcher(t, `^(?:(a)|b)\1c$`, strict, 2)
	if res := m.MatchString([]byte("bc")); res.Matched {
		t.Error("NPCG backref matched with emulation off")
	}
	// With minCount == 0 the backref matches empty in both modes.
	m = newTestMatcher(t, `^(?:(a)|b)\1?c$`, strict, 2)
	if res := m.MatchString([]byte("bc")); !res.Matched {
		t.Error("optional NPCG backref failed with emulation off")
	}
}

func TestMatchString_ResetStart(t *testing.T) {
	flags := syntax.DefaultFlags()
	flags.AllowResetStart = true

	m := newTestMatcher(t, `a\Kb`, flags, 2)
	res := m.MatchString([]byte("xab"))
	if !res.Matched || res.Offset != 2 || res.Length != 1 {
		t.Errorf(`a\Kb on "xab": got %v %d:%d, want match 2:1`, res.Matched, res.Offset, res.Length)
	}
}

func TestMatchString_Lookinto(t *testing.T) {
	flags := syntax.DefaultFlags()
	flags.AllowLookinto = true

	// (?^1=xx$) asserts that capture 1 is exactly "xx".
	m := newTestMatcher(t, `^(x+),x+(?^1=xx$)$`, flags, 2)
	for _, tt := range []struct {
		input   string
		matched bool
	}{
		{"xx,xxx", true},
		{"xxx,xx", false},
	} {
		if res := m.MatchString([]byte(tt.input)); res.Matched != tt.matched {
			t.Errorf("lookinto on %q: matched=%v, want %v", tt.input, res.Matched, tt.matched)
		}
	}
}

func TestMatchString_NoEmptyOptional(t *testing.T) {
	flags := syntax.DefaultFlags()
	flags.NoEmptyOptional = true

	// The optional group's iteration matches empty; with no-empty-optional
	// it exits at the minimum instead of looping toward the maximum.
	m := newTestMatcher(t, `^(?:a?){1,5}b$`, flags, 2)
	if res := m.MatchString([]byte("ab")); !res.Matched {
		t.Error("no-empty-optional mode failed to match ab")
	}
	if res := m.MatchString([]byte("b")); !res.Matched {
		t.Error("no-empty-optional mode failed to match b")
	}
}

func TestMatchString_Determinism(t *testing.T) {
	m := newTestMatcher(t, `^(a+)(a+)b$`, syntax.DefaultFlags(), 2)
	first := m.MatchString([]byte("aaaab"))
	for i := 0; i < 3; i++ {
		res := m.MatchString([]byte("aaaab"))
		if res.Matched != first.Matched || res.Offset != first.Offset || res.Length != first.Length ||
			res.Captures[0] != first.Captures[0] || res.Captures[1] != first.Captures[1] {
			t.Fatalf("run %d differed: %+v vs %+v", i, res, first)
		}
	}
	// Greedy split: first group maximal.
	if c := first.Captures[0]; c.Length != 3 {
		t.Errorf("capture 1 length = %d, want 3", c.Length)
	}
}

func TestCountString(t *testing.T) {
	// Every split of aaa into two non-empty runs. The pattern is anchored,
	// so only start 0 is tried: 2 ways.
	pat := compileForTest(t, `^(a+)(a+)$`, syntax.DefaultFlags())
	m := New(pat, Config{Flags: syntax.DefaultFlags(), OptimizationLevel: 0})
	res := m.CountString([]byte("aaa"))
	if !res.Matched || res.PossibleMatches != 2 {
		t.Errorf("CountString(aaa) = %d possible matches, want 2", res.PossibleMatches)
	}
}
