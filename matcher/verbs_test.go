package matcher

import (
	"testing"

	"github.com/coregx/rxmath/syntax"
)

func verbFlags() syntax.Flags {
	f := syntax.DefaultFlags()
	f.AllowVerbs = true
	return f
}

func TestVerb_Accept(t *testing.T) {
	m := newTestMatcher(t, `a(*ACCEPT)b`, verbFlags(), 2)
	res := m.MatchString([]byte("a"))
	if !res.Matched || res.Length != 1 {
		t.Errorf("a(*ACCEPT)b on a: got %v len %d, want match len 1", res.Matched, res.Length)
	}
	// ACCEPT inside a group closes every enclosing group and ends the
	// whole match successfully, skipping the rest of the pattern.
	m = newTestMatcher(t, `^(?:a(*ACCEPT)z)b$`, verbFlags(), 2)
	res = m.MatchString([]byte("ab"))
	if !res.Matched || res.Length != 1 {
		t.Errorf("(*ACCEPT) in a group: got %v len %d, want match len 1", res.Matched, res.Length)
	}
}

func TestVerb_Fail(t *testing.T) {
	m := newTestMatcher(t, `a(?:(*FAIL)|b)`, verbFlags(), 2)
	res := m.MatchString([]byte("ab"))
	if !res.Matched || res.Length != 2 {
		t.Errorf("(*FAIL) alternative: got %v len %d, want match len 2", res.Matched, res.Length)
	}
	m = newTestMatcher(t, `a(*F)`, verbFlags(), 2)
	if res := m.MatchString([]byte("a")); res.Matched {
		t.Error("a(*F) matched")
	}
}

func TestVerb_Commit(t *testing.T) {
	// After (*COMMIT), failure aborts the whole search: no retry at the
	// next start position.
	m := newTestMatcher(t, `a(*COMMIT)b`, verbFlags(), 2)
	res := m.MatchString([]byte("acab"))
	if res.Matched {
		t.Error("a(*COMMIT)b matched acab")
	}
	if !res.NoRetry {
		t.Error("(*COMMIT) failure did not set NoRetry")
	}
	// Without the verb, the later start position matches.
	m = newTestMatcher(t, `ab`, verbFlags(), 2)
	if res := m.MatchString([]byte("acab")); !res.Matched {
		t.Error("ab did not match acab")
	}
}

func TestVerb_Prune(t *testing.T) {
	// (*PRUNE) abandons the current start position but allows later ones.
	m := newTestMatcher(t, `a(*PRUNE)b`, verbFlags(), 2)
	res := m.MatchString([]byte("acab"))
	if !res.Matched || res.Offset != 2 {
		t.Errorf("a(*PRUNE)b on acab: got %v at %d, want match at 2", res.Matched, res.Offset)
	}
	// Within one attempt, PRUNE discards the backtrack state: the a+ that
	// swallowed both a's cannot give one back.
	m = newTestMatcher(t, `^a+(*PRUNE)a$`, verbFlags(), 2)
	if res := m.MatchString([]byte("aa")); res.Matched {
		t.Error("^a+(*PRUNE)a$ matched aa; choice point survived the verb")
	}
}

func TestVerb_Skip(t *testing.T) {
	// (*SKIP) moves the retry cursor past the skipped prefix, hiding the
	// overlap match at offset 1.
	m := newTestMatcher(t, `aa(*SKIP)b`, verbFlags(), 2)
	if res := m.MatchString([]byte("aaab")); res.Matched {
		t.Error("aa(*SKIP)b matched aaab; cursor did not skip")
	}
	m = newTestMatcher(t, `aab`, verbFlags(), 2)
	if res := m.MatchString([]byte("aaab")); !res.Matched {
		t.Error("aab did not match aaab")
	}
	// When the skip target is ahead of a real match, it is found there.
	m = newTestMatcher(t, `aa(*SKIP)b`, verbFlags(), 2)
	if res := m.MatchString([]byte("aacaab")); !res.Matched || res.Offset != 3 {
		t.Errorf("aa(*SKIP)b on aacaab: got %v at %d, want match at 3", res.Matched, res.Offset)
	}
}

func TestVerb_Then(t *testing.T) {
	// (*THEN) forces backtracking to the next alternative.
	m := newTestMatcher(t, `^(?:a(*THEN)b|ac)$`, verbFlags(), 2)
	if res := m.MatchString([]byte("ac")); !res.Matched {
		t.Error("(*THEN) did not fall through to the next alternative")
	}
}
