package syntax

// Flags selects the dialect accepted by the parser and the matching
// semantics that depend on it. The zero value is the strictest dialect;
// DefaultFlags matches the engine's historical defaults (ECMAScript-leaning
// with all extensions off).
type Flags struct {
	// FreeSpacing makes the parser ignore unescaped whitespace and treat
	// '#' as a to-end-of-line comment.
	FreeSpacing bool

	// EmulateECMANPCGs makes a backref to a non-participating capture group
	// match empty (ECMAScript behavior) instead of forcing a non-match.
	EmulateECMANPCGs bool

	// AllowEmptyClasses permits "[]" and "[^]" (ECMAScript behavior).
	AllowEmptyClasses bool

	// NoEmptyOptional makes a quantified group whose iteration matched
	// empty exit at its minimum count rather than loop.
	NoEmptyOptional bool

	// AllowQuantifiersOnAssertions permits quantifiers on lookarounds,
	// anchors, and word boundaries.
	AllowQuantifiersOnAssertions bool

	// Extensions.
	AllowMolecularLookaround    bool // (?*...)
	AllowLookinto               bool // (?^=...), (?^!...), (?^N=...)
	AllowAtomicGroups           bool // (?>...)
	AllowBranchResetGroups      bool // (?|...|...)
	AllowPossessiveQuantifiers  bool // p*+ p++ p?+ p{A,B}+
	AllowConditionals           bool // (?(N)yes|no)
	AllowLookaroundConditionals bool // (?(?=...)yes|no)
	AllowResetStart             bool // \K
	PersistentBackrefs          bool // nested and forward backrefs
	AllowVerbs                  bool // (*ACCEPT) etc.
}

// DefaultFlags returns the engine's default dialect: ECMAScript-style NPCG
// and empty-class handling, quantifiers on assertions permitted, every
// extension disabled.
func DefaultFlags() Flags {
	return Flags{
		EmulateECMANPCGs:             true,
		AllowEmptyClasses:            true,
		NoEmptyOptional:              true,
		AllowQuantifiersOnAssertions: true,
	}
}

// PCREFlags returns the dialect of the --pcre preset: PCRE-style NPCGs and
// empty matches, atomic groups, possessive quantifiers, conditionals,
// \K, and persistent backrefs.
func PCREFlags() Flags {
	return Flags{
		AllowQuantifiersOnAssertions: true,
		AllowAtomicGroups:            true,
		AllowPossessiveQuantifiers:   true,
		AllowConditionals:            true,
		AllowResetStart:              true,
		PersistentBackrefs:           true,
	}
}

// AllExtensions enables every extension on top of f, mirroring "-x all".
func (f Flags) AllExtensions() Flags {
	f.AllowMolecularLookaround = true
	f.AllowLookinto = true
	f.AllowAtomicGroups = true
	f.AllowBranchResetGroups = true
	f.AllowPossessiveQuantifiers = true
	f.AllowConditionals = true
	f.AllowLookaroundConditionals = true
	f.AllowResetStart = true
	f.PersistentBackrefs = true
	f.AllowVerbs = true
	return f
}
