package matcher

import (
	"github.com/coregx/rxmath/simd"
	"github.com/coregx/rxmath/syntax"
)

// Dispatch opcodes installed per symbol by virtualize. Zero means "not
// virtualized yet".
const (
	opNone uint8 = iota
	opAlwaysMatch
	opNeverMatch
	opCharacter
	opCharacterClass
	opString
	opBackref
	opResetStart
	opAnchorStart
	opAnchorEnd
	opWordBoundary
	opWordBoundaryNot
	opDigit
	opDigitNot
	opSpace
	opSpaceNot
	opWordCharacter
	opWordCharacterNot
	opGroup
	opVerbAccept
	opVerbCommit
	opVerbPrune
	opVerbSkip
	opVerbThen
	opIsPrime
	opIsPowerOf2
	opConstGroup
	opConstGroupCapturing
)

// virtualize walks the IR installing per-mode dispatch opcodes and, in
// numerical mode, the static optimizer rewrites. It is idempotent: calling
// it again for the same mode is a no-op, and re-virtualizing for string
// mode undoes the numerical-mode synthetic symbols.
func (m *Matcher) virtualize(groupSym *syntax.Symbol) {
	groupSym.Op = opGroup
	for _, alt := range groupSym.Group.Alts {
		for i := 0; i < len(alt.Symbols); i++ {
			m.virtualizeSymbol(alt, i)
		}
	}
	if groupSym.Group.Kind == syntax.GroupLookaroundConditional {
		m.virtualize(groupSym.Group.Lookaround)
	}
}

func (m *Matcher) virtualizeSymbol(alt *syntax.Alternative, i int) {
	s := alt.Symbols[i]

	// Undo a synthetic optimizer product before re-virtualizing: the mode
	// or sentinel byte it was installed for may have changed, and the
	// static optimizer re-installs it when still applicable.
	if s.Original != nil {
		switch s.Kind {
		case syntax.KindIsPrime, syntax.KindIsPowerOf2, syntax.KindConstGroup, syntax.KindConstGroupCapturing:
			alt.Symbols[i] = s.Original
			s = s.Original
		}
	}

	switch s.Kind {
	case syntax.KindNoOp:
		s.Op = opAlwaysMatch
	case syntax.KindCharacter:
		if m.characterCanMatch(s) {
			s.Op = opCharacter
		} else {
			s.Op = opNeverMatch
		}
	case syntax.KindCharacterClass:
		if m.str != nil || s.Class.IsMember(m.basicChar) {
			s.Op = opCharacterClass
		} else {
			s.Op = opNeverMatch
		}
	case syntax.KindString:
		if m.str != nil {
			s.Op = opString
		} else {
			// A String holds at least two distinct bytes, which a unary
			// input can never supply.
			s.Op = opNeverMatch
		}
	case syntax.KindBackref:
		s.Op = opBackref
	case syntax.KindResetStart:
		s.Op = opResetStart
	case syntax.KindAnchorStart:
		s.Op = m.demoteZeroCount(s, opAnchorStart)
	case syntax.KindAnchorEnd:
		s.Op = m.demoteZeroCount(s, opAnchorEnd)
	case syntax.KindWordBoundary:
		s.Op = m.demoteZeroCount(s, opWordBoundary)
	case syntax.KindWordBoundaryNot:
		s.Op = m.demoteZeroCount(s, opWordBoundaryNot)
	case syntax.KindDigit:
		s.Op = m.builtinClassOp(syntax.MatchDigit, false, opDigit)
	case syntax.KindDigitNot:
		s.Op = m.builtinClassOp(syntax.MatchDigit, true, opDigitNot)
	case syntax.KindSpace:
		s.Op = m.builtinClassOp(syntax.MatchSpace, false, opSpace)
	case syntax.KindSpaceNot:
		s.Op = m.builtinClassOp(syntax.MatchSpace, true, opSpaceNot)
	case syntax.KindWordCharacter:
		s.Op = m.builtinClassOp(syntax.MatchWordCharacter, false, opWordCharacter)
	case syntax.KindWordCharacterNot:
		s.Op = m.builtinClassOp(syntax.MatchWordCharacter, true, opWordCharacterNot)
	case syntax.KindVerb:
		switch s.Verb {
		case syntax.VerbAccept:
			s.Op = opVerbAccept
		case syntax.VerbFail:
			s.Op = opNeverMatch
		case syntax.VerbCommit:
			s.Op = opVerbCommit
		case syntax.VerbPrune:
			s.Op = opVerbPrune
		case syntax.VerbSkip:
			s.Op = opVerbSkip
		case syntax.VerbThen:
			s.Op = opVerbThen
		}
	case syntax.KindIsPrime:
		s.Op = opIsPrime
	case syntax.KindIsPowerOf2:
		s.Op = opIsPowerOf2
	case syntax.KindConstGroup:
		s.Op = opConstGroup
	case syntax.KindConstGroupCapturing:
		s.Op = opConstGroupCapturing
	case syntax.KindGroup:
		if m.staticallyOptimizeGroup(alt, i) {
			return
		}
		m.virtualize(s)
	}
}

// demoteZeroCount rewrites a zero-count assertion to a no-op.
func (m *Matcher) demoteZeroCount(s *syntax.Symbol, op uint8) uint8 {
	if s.Min == 0 {
		s.Kind = syntax.KindNoOp
		return opAlwaysMatch
	}
	return op
}

// builtinClassOp resolves a built-in class symbol for the current mode: in
// numerical mode the class either always matches the sentinel byte or
// never matches at all.
func (m *Matcher) builtinClassOp(member func(byte) bool, negated bool, op uint8) uint8 {
	if m.str != nil {
		return op
	}
	if member(m.basicChar) != negated {
		return opCharacter
	}
	return opNeverMatch
}

func (m *Matcher) characterCanMatch(s *syntax.Symbol) bool {
	if m.str != nil || s.CharacterAny {
		return true
	}
	return s.Character == m.basicChar
}

// repetend describes one unit of a repeated symbol for string-mode
// verification. kind repNone (numerical mode) always matches.
type repetend struct {
	kind  uint8
	b     byte
	class *syntax.CharClass
	fn    func(byte) bool
	bytes []byte
}

const (
	repNone uint8 = iota
	repByte
	repClass
	repFunc
	repBytes
)

// repMatchesOnce reports whether the repetend matches at offset pos.
func (m *Matcher) repMatchesOnce(rep repetend, pos uint64) bool {
	switch rep.kind {
	case repByte:
		return m.str[pos] == rep.b
	case repClass:
		return rep.class.IsMember(m.str[pos])
	case repFunc:
		return rep.fn(m.str[pos])
	case repBytes:
		end := pos + uint64(len(rep.bytes))
		if end > m.input {
			return false
		}
		return equalBytes(m.str[pos:end], rep.bytes)
	}
	return true
}

func equalBytes(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// doesRepetendMatch verifies count consecutive repetends starting at the
// current position, up to the end of input.
func (m *Matcher) doesRepetendMatch(rep repetend, multiple, count uint64) bool {
	if rep.kind == repNone {
		return true
	}
	pos := m.position
	for i := uint64(0); i < count && pos+multiple <= m.input; i, pos = i+1, pos+multiple {
		if !m.repMatchesOnce(rep, pos) {
			return false
		}
	}
	return true
}

// countRepetendMatches clamps currentMatch down to the number of repetends
// that actually match consecutively at the current position.
func (m *Matcher) countRepetendMatches(rep repetend, multiple uint64) {
	switch rep.kind {
	case repNone:
		return
	case repByte:
		run := uint64(simd.RunLength(m.str[m.position:m.input], rep.b))
		if run < m.currentMatch {
			m.currentMatch = run
		}
	case repBytes:
		run := uint64(simd.CountRepeats(m.str[m.position:m.input], rep.bytes))
		if run < m.currentMatch {
			m.currentMatch = run
		}
	default:
		pos := m.position
		var n uint64
		for n < m.currentMatch && pos < m.input && m.repMatchesOnce(rep, pos) {
			n++
			pos += multiple
		}
		m.currentMatch = n
	}
}

// fitsAt reports whether count repetends of length multiple fit in the space
// left from pos, without overflowing.
func (m *Matcher) fitsAt(pos, multiple, count uint64) bool {
	if pos > m.input {
		return false
	}
	return (m.input-pos)/multiple >= count
}

// matchRepeat is the shared repetition protocol for characters, classes,
// and backrefs. It returns +1 when the symbol consumed at least one
// repetend, -1 when it matched zero repetends, and 0 when it signalled a
// non-match.
func (m *Matcher) matchRepeat(sym *syntax.Symbol, multiple uint64, rep repetend) int8 {
	if multiple == 0 {
		m.currentMatch = unset
		m.symIdx++
		if sym.Min > 0 {
			return 1
		}
		return -1
	}

	if m.currentMatch == unset {
		if r := m.runtimeOptimize(sym, multiple, rep); r != 0 {
			if r == -2 {
				return 0
			}
			return r
		}
		if sym.Lazy {
			m.currentMatch = uint64(sym.Min)
			if !m.doesRepetendMatch(rep, multiple, m.currentMatch) {
				m.nonMatch(false)
				return 0
			}
		} else if sym.Max == syntax.Unbounded {
			spaceLeft := m.input - m.position
			m.currentMatch = spaceLeft / multiple
			if m.currentMatch < uint64(sym.Min) {
				m.nonMatch(false)
				return 0
			}
			if rep.kind != repNone {
				m.countRepetendMatches(rep, multiple)
				if m.currentMatch < uint64(sym.Min) {
					m.nonMatch(false)
					return 0
				}
			}
			if m.currentMatch > uint64(sym.Min) {
				m.pushTryMatch(sym)
			}
			matched := int8(-1)
			if m.currentMatch != 0 {
				matched = 1
			}
			m.position += m.currentMatch * multiple
			m.currentMatch = unset
			m.symIdx++
			return matched
		} else {
			m.currentMatch = uint64(sym.Max)
			if rep.kind != repNone {
				m.countRepetendMatches(rep, multiple)
				if m.currentMatch < uint64(sym.Min) {
					m.nonMatch(false)
					return 0
				}
			}
		}
	} else {
		// Re-entry from a TryMatch record: take the next count.
		if sym.Lazy {
			if m.currentMatch == maxExtend(sym.Max) {
				m.nonMatch(false)
				return 0
			}
			m.currentMatch++
		} else {
			if m.currentMatch == uint64(sym.Min) {
				m.nonMatch(false)
				return 0
			}
			m.currentMatch--
		}
	}

	for {
		if m.fitsAt(m.position, multiple, m.currentMatch) {
			if sym.Lazy && m.currentMatch != 0 && rep.kind != repNone &&
				!m.repMatchesOnce(rep, m.position+(m.currentMatch-1)*multiple) {
				m.nonMatch(false)
				return 0
			}
			limit := uint64(sym.Min)
			if sym.Lazy {
				limit = maxExtend(sym.Max)
			}
			if m.currentMatch != limit {
				m.pushTryMatch(sym)
			}
			matched := int8(-1)
			if m.currentMatch != 0 {
				matched = 1
			}
			m.position += m.currentMatch * multiple
			m.currentMatch = unset
			m.symIdx++
			return matched
		}
		if sym.Lazy {
			m.nonMatch(false)
			return 0
		}
		if m.currentMatch == uint64(sym.Min) {
			m.nonMatch(false)
			return 0
		}
		m.currentMatch--
	}
}

// repetendFor builds the string-mode repetend for a symbol; numerical mode
// always gets repNone.
func (m *Matcher) repetendFor(sym *syntax.Symbol) repetend {
	if m.str == nil {
		return repetend{}
	}
	switch sym.Op {
	case opCharacter:
		if sym.CharacterAny {
			return repetend{}
		}
		return repetend{kind: repByte, b: sym.Character}
	case opCharacterClass:
		return repetend{kind: repClass, class: sym.Class}
	case opDigit:
		return repetend{kind: repFunc, fn: syntax.MatchDigit}
	case opDigitNot:
		return repetend{kind: repFunc, fn: func(b byte) bool { return !syntax.MatchDigit(b) }}
	case opSpace:
		return repetend{kind: repFunc, fn: syntax.MatchSpace}
	case opSpaceNot:
		return repetend{kind: repFunc, fn: func(b byte) bool { return !syntax.MatchSpace(b) }}
	case opWordCharacter:
		return repetend{kind: repFunc, fn: syntax.MatchWordCharacter}
	case opWordCharacterNot:
		return repetend{kind: repFunc, fn: func(b byte) bool { return !syntax.MatchWordCharacter(b) }}
	}
	return repetend{}
}

// matchWordBoundary evaluates \b at the current position.
func (m *Matcher) matchWordBoundary() bool {
	if m.str == nil {
		return m.basicCharIsWord && (m.position == 0 || m.position == m.input) && m.input != 0
	}
	lf := m.position != 0 && syntax.MatchWordCharacter(m.str[m.position-1])
	rh := m.position != m.input && syntax.MatchWordCharacter(m.str[m.position])
	return lf != rh
}

// step dispatches one symbol.
func (m *Matcher) step(sym *syntax.Symbol) {
	switch sym.Op {
	case opAlwaysMatch:
		m.symIdx++
	case opNeverMatch:
		m.nonMatch(false)

	case opCharacter, opDigit, opDigitNot, opSpace, opSpaceNot,
		opWordCharacter, opWordCharacterNot, opCharacterClass:
		m.matchRepeat(sym, 1, m.repetendFor(sym))

	case opString:
		n := uint64(len(sym.Str))
		if m.position+n <= m.input && equalBytes(m.str[m.position:m.position+n], sym.Str) {
			m.position += n
			m.symIdx++
			return
		}
		m.nonMatch(false)

	case opBackref:
		length, content := m.readCapture(sym.Index)
		if length == NonParticipating {
			if !m.cfg.Flags.EmulateECMANPCGs && sym.Min != 0 {
				m.nonMatch(false)
				return
			}
			length = 0
		}
		if length == 0 {
			// Backtracking over a zero-length backref changes nothing.
			m.symIdx++
			return
		}
		rep := repetend{}
		if m.str != nil {
			rep = repetend{kind: repBytes, bytes: content}
		}
		m.matchRepeat(sym, length, rep)

	case opResetStart:
		if m.startPosition < m.position {
			r := m.stack.push(recResetStart)
			r.position = m.startPosition
			m.startPosition = m.position
		}
		m.symIdx++

	case opAnchorStart:
		if m.position == 0 {
			m.symIdx++
			return
		}
		m.nonMatch(false)
	case opAnchorEnd:
		if m.position == m.input {
			m.symIdx++
			return
		}
		m.nonMatch(false)

	case opWordBoundary:
		if m.matchWordBoundary() {
			m.symIdx++
			return
		}
		m.nonMatch(false)
	case opWordBoundaryNot:
		if !m.matchWordBoundary() {
			m.symIdx++
			return
		}
		m.nonMatch(false)

	case opVerbAccept:
		m.verb = syntax.VerbAccept
		m.symIdx = len(m.alt.Symbols)
	case opVerbCommit:
		m.stack.push(recCommit)
		m.symIdx++
	case opVerbPrune:
		m.stack.push(recPrune)
		m.symIdx++
	case opVerbSkip:
		r := m.stack.push(recSkip)
		r.position = m.position
		m.symIdx++
	case opVerbThen:
		m.stack.push(recThen)
		m.symIdx++

	case opIsPrime:
		m.matchIsPrime(sym)
	case opIsPowerOf2:
		m.matchIsPowerOf2(sym)
	case opConstGroup:
		m.matchConstGroup(sym, false)
	case opConstGroupCapturing:
		m.matchConstGroupCapturing(sym)

	case opGroup:
		m.matchGroup(sym)

	default:
		m.nonMatch(false)
	}
}

// matchGroup starts a group symbol, skipping it outright when it cannot or
// need not iterate.
func (m *Matcher) matchGroup(sym *syntax.Symbol) {
	if sym.Max == 0 {
		m.symIdx++
		return
	}
	if sym.Lazy && sym.Min == 0 {
		r := m.stack.push(recSkipGroup)
		r.position = m.position
		r.sym = sym
		m.symIdx++
		return
	}
	m.enterGroup(sym)
}
