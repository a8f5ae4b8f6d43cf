package matcher

import (
	"github.com/coregx/rxmath/internal/mathx"
	"github.com/coregx/rxmath/syntax"
)

// The static optimizer runs during numerical-mode virtualization. It
// recognizes three shapes and replaces the group symbol in its parent slot
// with a synthetic symbol that computes the answer arithmetically:
//
//  1. constant-length groups -> ConstGroup / ConstGroupCapturing
//  2. (?!(xx+|)\1+$)         -> IsPrime
//  3. (?!(x(xx)+|)\1*$) and
//     (?!(x*)(\1\1)+$)       -> IsPowerOf2
//
// The negative-lookinto variants of 2 and 3 rewrite to the same synthetic
// symbols carrying the lookinto's capture index, so the predicate is
// evaluated against the captured length instead of the space left.

// staticallyOptimizeGroup inspects the group symbol at alt.Symbols[i] and
// reports whether it was rewritten into a specialized symbol.
func (m *Matcher) staticallyOptimizeGroup(alt *syntax.Alternative, i int) bool {
	if m.cfg.OptimizationLevel == 0 || m.str != nil {
		return false
	}
	s := alt.Symbols[i]
	g := s.Group

	if (g.Kind == syntax.GroupNonCapturing || g.Kind == syntax.GroupCapturing) && s.Max != 0 {
		if m.tryConstGroup(alt, i) {
			return true
		}
		m.virtualize(s)
		return true
	}

	if m.cfg.OptimizationLevel >= 2 && g.IsNegativeLookaround() && s.Min != 0 {
		if m.tryPrimality(alt, i) || m.tryPowerOf2(alt, i) || m.tryPowerOf2Split(alt, i) {
			return true
		}
	}
	return false
}

// tryConstGroup rewrites a single-alternative group whose symbols all have
// fixed counts (characters and backrefs only, no self-reference) into a
// ConstGroup that computes its total length arithmetically.
func (m *Matcher) tryConstGroup(alt *syntax.Alternative, i int) bool {
	s := alt.Symbols[i]
	g := s.Group
	if len(g.Alts) != 1 {
		return false
	}
	selfIndex := uint32(syntax.NoBackref)
	if g.Kind == syntax.GroupCapturing {
		selfIndex = g.BackrefIndex
	}
	inner := g.Alts[0].Symbols
	if len(inner) == 0 {
		return false
	}
	for _, in := range inner {
		switch in.Kind {
		case syntax.KindNoOp:
			if in.Min != in.Max {
				return false
			}
		case syntax.KindCharacter, syntax.KindBackref:
			if in.Min != in.Max {
				return false
			}
			if in.Kind == syntax.KindBackref && in.Index == selfIndex {
				return false
			}
			if in.Kind == syntax.KindCharacter && in.Min > 0 && !m.characterCanMatch(in) {
				return false
			}
		default:
			return false
		}
	}

	kind := syntax.KindConstGroup
	op := opConstGroup
	if g.Kind == syntax.GroupCapturing {
		kind = syntax.KindConstGroupCapturing
		op = opConstGroupCapturing
	}
	rewrite := &syntax.Symbol{
		Kind:       kind,
		Min:        s.Min,
		Max:        s.Max,
		Lazy:       s.Lazy,
		Possessive: s.Possessive,
		Group:      g,
		Original:   s,
		Parent:     alt,
		Self:       i,
		Pos:        s.Pos,
		Op:         uint8(op),
	}
	alt.Symbols[i] = rewrite
	return true
}

// matchZeroAlternation unwraps a capture body of the form (X), (X|) or
// (|X). matchZero is true when there is no empty alternative, and false
// when there is one. Returns nil when the shape does not apply.
func matchZeroAlternation(g *syntax.Group) (body []*syntax.Symbol, matchZero bool, ok bool) {
	switch len(g.Alts) {
	case 1:
		return g.Alts[0].Symbols, true, true
	case 2:
		a0, a1 := g.Alts[0].Symbols, g.Alts[1].Symbols
		if len(a0) == 0 && len(a1) != 0 {
			return a1, false, true
		}
		if len(a1) == 0 && len(a0) != 0 {
			return a0, false, true
		}
	}
	return nil, false, false
}

// installPredicate replaces the negative lookaround at alt.Symbols[i] with
// a synthetic predicate symbol. For a negative lookinto the predicate
// carries the scoped capture index.
func (m *Matcher) installPredicate(alt *syntax.Alternative, i int, kind syntax.SymbolKind, op uint8, lazyBit bool) {
	s := alt.Symbols[i]
	g := s.Group
	rewrite := &syntax.Symbol{
		Kind:     kind,
		Min:      1,
		Max:      1,
		Lazy:     lazyBit,
		Original: s,
		Parent:   alt,
		Self:     i,
		Pos:      s.Pos,
		Op:       op,
		Index:    syntax.NoBackref,
	}
	if g.Kind == syntax.GroupNegativeLookinto {
		rewrite.Possessive = true // marks "evaluate against the capture"
		rewrite.Index = g.BackrefIndex
	}
	alt.Symbols[i] = rewrite
}

// tryPrimality recognizes (?!(xx+|)\1+$): the tail length has a proper
// divisor >= 2, negated. The optional empty alternative decides whether a
// length of 0 is accepted.
func (m *Matcher) tryPrimality(alt *syntax.Alternative, i int) bool {
	s := alt.Symbols[i]
	g := s.Group
	if len(g.Alts) != 1 {
		return false
	}
	body := g.Alts[0].Symbols
	if len(body) != 3 {
		return false
	}
	capSym, backref, anchor := body[0], body[1], body[2]
	if capSym.Kind != syntax.KindGroup || capSym.Group.Kind != syntax.GroupCapturing ||
		capSym.Min != 1 || capSym.Max != 1 {
		return false
	}
	if backref.Kind != syntax.KindBackref || backref.Min != 1 || backref.Max != syntax.Unbounded ||
		backref.Index != capSym.Group.BackrefIndex {
		return false
	}
	if anchor.Kind != syntax.KindAnchorEnd || anchor.Min == 0 {
		return false
	}
	inner, matchZero, ok := matchZeroAlternation(capSym.Group)
	if !ok || len(inner) != 2 {
		return false
	}
	if inner[0].Kind != syntax.KindCharacter || inner[0].Min != 1 || inner[0].Max != 1 || !m.characterCanMatch(inner[0]) {
		return false
	}
	if inner[1].Kind != syntax.KindCharacter || inner[1].Min != 1 || inner[1].Max != syntax.Unbounded || !m.characterCanMatch(inner[1]) {
		return false
	}
	// The lazy bit is set when the empty alternative is present: 1 is then
	// accepted and 0 is not. Without it both 0 and 1 are accepted.
	m.installPredicate(alt, i, syntax.KindIsPrime, opIsPrime, !matchZero)
	mathx.InitIsPrime()
	return true
}

// tryPowerOf2 recognizes (?!(x(xx)+|)\1*$).
func (m *Matcher) tryPowerOf2(alt *syntax.Alternative, i int) bool {
	s := alt.Symbols[i]
	g := s.Group
	if len(g.Alts) != 1 {
		return false
	}
	body := g.Alts[0].Symbols
	if len(body) != 3 {
		return false
	}
	capSym, backref, anchor := body[0], body[1], body[2]
	if capSym.Kind != syntax.KindGroup || capSym.Group.Kind != syntax.GroupCapturing ||
		capSym.Min != 1 || capSym.Max != 1 {
		return false
	}
	if backref.Kind != syntax.KindBackref || backref.Min != 0 || backref.Max != syntax.Unbounded ||
		backref.Index != capSym.Group.BackrefIndex {
		return false
	}
	if anchor.Kind != syntax.KindAnchorEnd || anchor.Min == 0 {
		return false
	}
	inner, matchZero, ok := matchZeroAlternation(capSym.Group)
	if !ok || len(inner) != 2 {
		return false
	}
	one, rep := inner[0], inner[1]
	if one.Kind == syntax.KindGroup {
		one, rep = rep, one
	}
	if one.Kind != syntax.KindCharacter || one.Min != 1 || one.Max != 1 || !m.characterCanMatch(one) {
		return false
	}
	if rep.Kind != syntax.KindGroup || rep.Min != 1 || rep.Max != syntax.Unbounded || rep.Possessive {
		return false
	}
	rg := rep.Group
	if rg.Kind != syntax.GroupCapturing && rg.Kind != syntax.GroupNonCapturing {
		return false
	}
	if len(rg.Alts) != 1 {
		return false
	}
	innermost := rg.Alts[0].Symbols
	if len(innermost) != 1 || innermost[0].Kind != syntax.KindCharacter ||
		innermost[0].Min != 2 || innermost[0].Max != 2 || !m.characterCanMatch(innermost[0]) {
		return false
	}
	// The lazy bit records "zero counts as a power of two".
	m.installPredicate(alt, i, syntax.KindIsPowerOf2, opIsPowerOf2, matchZero)
	return true
}

// tryPowerOf2Split recognizes the second power-of-two shape,
// (?!(x*)(\1\1)+$).
func (m *Matcher) tryPowerOf2Split(alt *syntax.Alternative, i int) bool {
	s := alt.Symbols[i]
	g := s.Group
	if len(g.Alts) != 1 {
		return false
	}
	body := g.Alts[0].Symbols
	if len(body) != 3 {
		return false
	}
	g1Sym, g2Sym, anchor := body[0], body[1], body[2]
	if g1Sym.Kind != syntax.KindGroup || g2Sym.Kind != syntax.KindGroup {
		return false
	}
	if anchor.Kind != syntax.KindAnchorEnd || anchor.Min == 0 {
		return false
	}
	g1, g2 := g1Sym.Group, g2Sym.Group
	if g1.Kind != syntax.GroupCapturing || g1Sym.Min != 1 || g1Sym.Max != 1 ||
		g1Sym.Possessive || len(g1.Alts) != 1 {
		return false
	}
	switch g2.Kind {
	case syntax.GroupNonCapturing, syntax.GroupCapturing, syntax.GroupAtomic, syntax.GroupBranchReset:
	default:
		return false
	}
	if g2Sym.Min != 1 || g2Sym.Max != syntax.Unbounded || len(g2.Alts) != 1 {
		return false
	}
	inner1 := g1.Alts[0].Symbols
	if len(inner1) != 1 || inner1[0].Kind != syntax.KindCharacter ||
		inner1[0].Min > 1 || inner1[0].Max != syntax.Unbounded || !m.characterCanMatch(inner1[0]) {
		return false
	}
	inner2 := g2.Alts[0].Symbols
	if len(inner2) != 2 ||
		inner2[0].Kind != syntax.KindBackref || inner2[0].Min != 1 || inner2[0].Max != 1 ||
		inner2[1].Kind != syntax.KindBackref || inner2[1].Min != 1 || inner2[1].Max != 1 {
		return false
	}
	idx := g1.BackrefIndex
	if inner2[0].Index != idx || inner2[1].Index != idx {
		return false
	}
	// (x*) lets the body match a length of 0, so the assertion rejects zero;
	// with (x+) the body cannot match it and zero is accepted.
	m.installPredicate(alt, i, syntax.KindIsPowerOf2, opIsPowerOf2, inner1[0].Min != 0)
	return true
}

// predicateSpace returns the length the predicate is evaluated against:
// the space left, or the scoped capture's length for a lookinto rewrite.
// ok is false when it has already signalled a non-match.
func (m *Matcher) predicateSpace(sym *syntax.Symbol) (uint64, bool) {
	if !sym.Possessive {
		return m.input - m.position, true
	}
	length := m.captures[sym.Index]
	if length == NonParticipating {
		if !m.cfg.Flags.EmulateECMANPCGs {
			m.nonMatch(false)
			return 0, false
		}
		length = 0
	}
	return length, true
}

func (m *Matcher) matchIsPrime(sym *syntax.Symbol) {
	spaceLeft, ok := m.predicateSpace(sym)
	if !ok {
		return
	}
	lo := uint64(0)
	if sym.Lazy {
		lo = 1
	}
	if (spaceLeft >= lo && spaceLeft <= 1) || mathx.IsPrime(spaceLeft) {
		m.symIdx++
		return
	}
	m.nonMatch(false)
}

func (m *Matcher) matchIsPowerOf2(sym *syntax.Symbol) {
	spaceLeft, ok := m.predicateSpace(sym)
	if !ok {
		return
	}
	if (spaceLeft != 0 || sym.Lazy) && spaceLeft&(spaceLeft-1) == 0 {
		m.symIdx++
		return
	}
	m.nonMatch(false)
}

// matchConstGroup computes the constant length of one iteration of the
// collapsed group and runs the shared repetition protocol against it.
// It returns the iteration length, or ok=false when it signalled a
// non-match; zeroCount reports a successful zero-iteration match.
func (m *Matcher) matchConstGroup(sym *syntax.Symbol, capturing bool) (multiple uint64, zeroCount, ok bool) {
	g := sym.Group
	for _, in := range g.Alts[0].Symbols {
		switch in.Kind {
		case syntax.KindCharacter:
			multiple += uint64(in.Min)
		case syntax.KindBackref:
			length := m.captures[in.Index]
			if length == NonParticipating {
				if !m.cfg.Flags.EmulateECMANPCGs && in.Min != 0 {
					m.nonMatch(false)
					return 0, false, false
				}
				length = 0
			}
			multiple += length * uint64(in.Min)
		}
	}
	if multiple == 0 && !capturing {
		// Backtracking over a zero-length group changes nothing.
		m.symIdx++
		return 0, sym.Min == 0, true
	}
	switch m.matchRepeat(sym, multiple, repetend{}) {
	case 1:
		return multiple, false, true
	case -1:
		return multiple, true, true
	}
	return 0, false, false
}

// matchConstGroupCapturing is matchConstGroup plus the capture write and
// its undo record. The capture participates only when at least one
// iteration matched; its value is the length of one iteration.
func (m *Matcher) matchConstGroupCapturing(sym *syntax.Symbol) {
	multiple, zeroCount, ok := m.matchConstGroup(sym, true)
	if !ok || zeroCount {
		return
	}
	idx := sym.Group.BackrefIndex

	r := m.stack.push(recLeaveConstGroupCapturing)
	r.backrefIndex = idx
	prev := m.captures[idx]
	if m.cfg.Flags.PersistentBackrefs {
		c := capSave{index: idx, length: prev}
		if m.str != nil {
			c.offset = m.captureOffsets[idx]
		}
		m.stack.saveCap(r, c)
	}

	m.captures[idx] = multiple
	if m.str != nil {
		m.captureOffsets[idx] = m.position - multiple
	}
	if !m.cfg.Flags.PersistentBackrefs || prev == NonParticipating {
		m.captureStack = append(m.captureStack, idx)
		m.frame().numCaptured++
		r.numCaptured = 1
	}
}
