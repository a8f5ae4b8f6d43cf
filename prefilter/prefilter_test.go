package prefilter

import (
	"testing"

	"github.com/coregx/rxmath/syntax"
)

func parseForTest(t *testing.T, pattern string) *syntax.Pattern {
	t.Helper()
	pat, err := syntax.Parse(pattern, syntax.DefaultFlags())
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	return pat
}

func TestForPattern_Selection(t *testing.T) {
	tests := []struct {
		pattern string
		want    string // "", "byte", or "ac"
	}{
		{"^abc", ""},            // anchored: no prefilter needed
		{"abc", "ac"},           // one multi-byte literal
		{"a+b", "byte"},         // leading mandatory 'a'
		{"foo|bar", "ac"},       // two distinct literals
		{"(foo|bar)baz", "ac"},  // leading group with literal prefixes
		{"a*b", ""},             // optional leading literal
		{".x", ""},              // wildcard prefix
		{`\d+`, ""},             // class prefix
		{"x|y*", ""},            // second alternative has no mandatory prefix
	}
	for _, tt := range tests {
		f := ForPattern(parseForTest(t, tt.pattern))
		var got string
		switch f.(type) {
		case nil:
			got = ""
		case *byteFinder:
			got = "byte"
		case *acFinder:
			got = "ac"
		}
		if got != tt.want {
			t.Errorf("ForPattern(%q) = %q finder, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestFindStart_Byte(t *testing.T) {
	f := ForPattern(parseForTest(t, "z+"))
	if f == nil {
		t.Fatal("no finder for z+")
	}
	hay := []byte("aazaaza")
	pos, ok := f.FindStart(hay, 0)
	if !ok || pos != 2 {
		t.Errorf("FindStart from 0 = %d,%v, want 2,true", pos, ok)
	}
	pos, ok = f.FindStart(hay, 3)
	if !ok || pos != 5 {
		t.Errorf("FindStart from 3 = %d,%v, want 5,true", pos, ok)
	}
	if _, ok = f.FindStart(hay, 6); ok {
		t.Error("FindStart past the last candidate reported ok")
	}
}

func TestFindStart_MultiLiteral(t *testing.T) {
	f := ForPattern(parseForTest(t, "cat|dog"))
	if f == nil {
		t.Fatal("no finder for cat|dog")
	}
	hay := []byte("a dog, a cat")
	pos, ok := f.FindStart(hay, 0)
	if !ok || pos != 2 {
		t.Errorf("FindStart from 0 = %d,%v, want 2,true", pos, ok)
	}
	pos, ok = f.FindStart(hay, 3)
	if !ok || pos != 9 {
		t.Errorf("FindStart from 3 = %d,%v, want 9,true", pos, ok)
	}
}
