package rxmath

import (
	"io"

	"github.com/coregx/rxmath/matcher"
	"github.com/coregx/rxmath/syntax"
)

// Config controls the dialect a pattern is parsed in and how aggressively
// the matcher optimizes. It is read-only once a Regex is constructed.
type Config struct {
	// Flags selects the dialect: extensions, NPCG behavior, free-spacing
	// mode, and so on.
	Flags syntax.Flags

	// OptimizationLevel gates the optimizers: 0 disables them, 1 enables
	// end-anchor and subtraction arithmetic, 2 additionally enables the
	// primality, power-of-two, and multiplication optimizations.
	// Default: 2.
	OptimizationLevel int

	// EnablePrefilter allows unanchored string-mode matching to scan for
	// literal-prefix candidates instead of trying every start position.
	// Default: true.
	EnablePrefilter bool

	// DebugTrace prints a step trace (1) or a step trace plus matching
	// stack dump (2) to TraceWriter while matching. Default: 0.
	DebugTrace int

	// TraceWriter receives the debug trace; os.Stderr when nil.
	TraceWriter io.Writer
}

// DefaultConfig returns the engine defaults: the ECMAScript-leaning
// dialect with all extensions off, full optimization, and the prefilter
// enabled.
func DefaultConfig() Config {
	return Config{
		Flags:             syntax.DefaultFlags(),
		OptimizationLevel: 2,
		EnablePrefilter:   true,
	}
}

// PCREConfig returns the --pcre preset: PCRE-style NPCGs, empty character
// classes rejected, no-empty-optional turned off, and the atomic
// group, possessive quantifier, conditional, \K, and persistent-backref
// extensions enabled.
func PCREConfig() Config {
	cfg := DefaultConfig()
	cfg.Flags = syntax.PCREFlags()
	return cfg
}

func (c Config) matcherConfig() matcher.Config {
	return matcher.Config{
		Flags:             c.Flags,
		OptimizationLevel: c.OptimizationLevel,
		DebugTrace:        c.DebugTrace,
		TraceWriter:       c.TraceWriter,
	}
}
