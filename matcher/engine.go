package matcher

import (
	"github.com/coregx/rxmath/internal/conv"
	"github.com/coregx/rxmath/syntax"
)

// prepare readies the matcher for one input: input model, capture tables,
// and (re-)virtualization of the shared IR when the mode, sentinel byte,
// or optimization level changed since the last match.
func (m *Matcher) prepare(str []byte, input uint64, basicChar byte) {
	m.str = str
	m.input = input
	m.basicChar = basicChar
	m.basicCharIsWord = syntax.MatchWordCharacter(basicChar)
	if str != nil && m.captureOffsets == nil {
		m.captureOffsets = make([]uint64, len(m.captures))
	}
	if m.cfg.Flags.PersistentBackrefs && m.atomicTmpUsed == nil {
		n := len(m.captures)
		m.atomicTmpUsed = make([]bool, n)
		m.atomicTmpIdx = make([]uint32, n)
		m.atomicTmpVal = make([]uint64, n)
		m.atomicTmpOff = make([]uint64, n)
	}
	m.verb = syntax.VerbNone

	cookie := uint32(1) | uint32(m.cfg.OptimizationLevel)<<1 | uint32(basicChar)<<4
	if str != nil {
		cookie |= 1 << 3
	}
	if m.pat.VirtualizedFor != cookie {
		m.virtualize(m.pat.Root)
		m.pat.VirtualizedFor = cookie
	}
}

// runAttempt runs the dispatch loop for one start position until the
// attempt succeeds or fails.
func (m *Matcher) runAttempt(cur uint64) {
	root := m.pat.Root
	m.setAlternative(root.Group, 0)
	m.position = cur
	m.startPosition = cur
	m.currentMatch = unset
	m.numSteps = 0

	m.gTop = 0
	f := m.frame()
	f.position = cur
	f.loopCount = 1
	f.group = root
	f.numCaptured = 0

	for i := range m.captures {
		m.captures[i] = NonParticipating
	}
	m.captureStack = m.captureStack[:0]
	m.match = 0

	for m.match == 0 {
		sym := m.symbol()
		if sym == nil {
			m.closeCurrent()
			continue
		}
		if m.cfg.DebugTrace > 0 {
			m.traceStep(sym)
		}
		m.numSteps++
		m.step(sym)
	}
}

// closeCurrent handles "current alternative complete": group-closure logic
// dispatched on the open group's type, or overall success at the root.
func (m *Matcher) closeCurrent() {
	if m.gTop == 0 {
		if m.countAll != nil {
			// Exhaustive mode: count the way we got here, then explore the
			// remaining choice points as if this were a non-match.
			*m.countAll++
			m.nonMatch(false)
			return
		}
		m.match = 1
		return
	}

	f := m.frame()
	groupSym := f.group
	g := groupSym.Group

	switch g.Kind {
	case syntax.GroupAtomic:
		m.popAtomicGroup(groupSym)
	case syntax.GroupLookahead, syntax.GroupLookinto:
		m.closeLookahead(f)
		return
	case syntax.GroupMolecularLookahead, syntax.GroupMolecularLookinto:
		m.closeMolecular(f)
		return
	case syntax.GroupNegativeLookahead, syntax.GroupNegativeLookinto:
		m.closeNegative(f)
		return
	}

	switch {
	case groupSym.Lazy && f.loopCount >= uint64(groupSym.Min):
		m.leaveLazyGroup()
	case f.loopCount == maxExtend(groupSym.Max) ||
		((groupSym.Max == syntax.Unbounded || m.cfg.Flags.NoEmptyOptional) &&
			f.loopCount >= uint64(groupSym.Min) && m.position == f.position):
		// Maxed out, or the iteration matched empty and can never make
		// progress again.
		m.leaveMaxedOutGroup()
	default:
		m.loopGroup()
	}

	if m.verb == syntax.VerbAccept {
		// (*ACCEPT) keeps shortcutting groups until the root closes.
		m.symIdx = len(m.alt.Symbols)
	}
}

// closeLookahead finishes a positive atomic lookaround: the body matched,
// its backtrack records are discarded, and the captures it made are
// retained behind an AtomicCapture record so the outer pattern can roll
// them back.
func (m *Matcher) closeLookahead(f *groupFrame) {
	if m.verb == syntax.VerbAccept {
		m.verb = syntax.VerbNone
	}
	groupSym := f.group
	m.position = f.position

	oldTop := m.gTop
	delta := 0
	m.atomicTmpCount = 0
	for m.gTop >= oldTop {
		r := m.stack.peek()
		delta += m.popForLookahead(r)
		if m.cfg.Flags.PersistentBackrefs {
			m.forwardCaptures(r)
		}
		m.stack.pop()
	}
	m.frame().numCaptured += delta
	if delta != 0 || (m.cfg.Flags.PersistentBackrefs && m.atomicTmpCount > 0) {
		m.pushAtomicCapture(delta, groupSym)
	}
	m.exitCondOrResume(groupSym, false)
	m.currentMatch = unset
}

// closeMolecular finishes a molecular lookaround: position rewinds but the
// body's backtrack records stay live behind a LeaveMolecularLookahead
// record, so later failures can re-enter the body.
func (m *Matcher) closeMolecular(f *groupFrame) {
	if m.verb == syntax.VerbAccept {
		m.verb = syntax.VerbNone
	}
	groupSym := f.group

	r := m.stack.push(recLeaveMolecularLookahead)
	r.sym = groupSym
	r.position = f.position
	r.numCaptured = f.numCaptured
	r.alternative = m.altIdx
	r.savedInput = f.savedInput
	r.savedOuter = f.savedOuter

	m.position = f.position
	m.exitLookintoFrame(f)
	m.groupStack[m.gTop-1].numCaptured += f.numCaptured
	m.gTop--
	m.exitCondOrResume(groupSym, false)
	m.currentMatch = unset
}

// closeNegative handles a completed negative lookaround body: a match
// inside makes it a non-match outside. Everything the body did is undone.
func (m *Matcher) closeNegative(f *groupFrame) {
	if m.verb == syntax.VerbAccept {
		m.verb = syntax.VerbNone
	}
	groupSym := f.group
	m.position = f.position

	oldTop := m.gTop
	for m.gTop >= oldTop {
		r := m.stack.peek()
		m.popForNegativeLookahead(r)
		m.stack.pop()
	}

	if groupSym.Parent == nil {
		// Condition of a lookaround conditional: jump to the "no" branch.
		if m.cfg.DebugTrace > 0 {
			m.tracef("Match found inside negative lookaround conditional; jumping to \"no\" alternative\n\n")
		}
		m.exitCondOrResume(groupSym, true)
		m.currentMatch = unset
		return
	}
	m.alt = groupSym.Parent
	m.altIdx = groupSym.Parent.Index
	m.nonMatch(true)
}

// MatchNumber matches the pattern against a unary input of the given
// length, with basicChar as the repeated sentinel byte (consulted only for
// \w, \d, \s class membership and literal characters).
func (m *Matcher) MatchNumber(input uint64, basicChar byte) Result {
	m.prepare(nil, input, basicChar)
	return m.run()
}

// MatchString matches the pattern against a byte buffer.
func (m *Matcher) MatchString(b []byte) Result {
	m.prepare(b, uint64(len(b)), 0)
	return m.run()
}

// CountNumber is MatchNumber in exhaustive mode: it counts every distinct
// way the pattern can match the input.
func (m *Matcher) CountNumber(input uint64, basicChar byte) Result {
	var n uint64
	m.countAll = &n
	defer func() { m.countAll = nil }()
	m.prepare(nil, input, basicChar)
	res := m.run()
	res.Matched = n > 0
	res.PossibleMatches = n
	return res
}

// CountString is MatchString in exhaustive mode.
func (m *Matcher) CountString(b []byte) Result {
	var n uint64
	m.countAll = &n
	defer func() { m.countAll = nil }()
	m.prepare(b, uint64(len(b)), 0)
	res := m.run()
	res.Matched = n > 0
	res.PossibleMatches = n
	return res
}

// run drives the outer try-every-start-position loop (collapsed to one
// position for anchored patterns, or to prefilter candidates when a
// StartFinder is installed) and assembles the Result.
func (m *Matcher) run() Result {
	anchored := m.pat.Anchored
	cur := uint64(0)
	m.match = -1

	for {
		if m.str != nil && !anchored && m.Starts != nil {
			p, ok := m.Starts.FindStart(m.str, conv.Uint64ToInt(cur))
			if !ok {
				m.match = -1
				break
			}
			cur = conv.IntToUint64(p)
		}

		m.runAttempt(cur)

		skipped := false
		if m.verb == syntax.VerbSkip {
			if m.skipPosition == cur {
				// (*SKIP) to the same position cannot make progress.
				m.match = -2
			} else {
				cur = m.skipPosition
				skipped = true
			}
		}
		m.verb = syntax.VerbNone
		m.stack.flush()

		if m.match > 0 {
			if m.cfg.DebugTrace > 0 {
				m.tracef("Match found at {%d}\n\n", cur)
			}
			break
		}
		if m.match < -1 {
			if m.cfg.DebugTrace > 0 {
				m.tracef("\nHalting matching process due to backtracking verb\n\n")
			}
			break
		}
		if anchored {
			break
		}
		if !skipped {
			cur++
		}
		if cur > m.input {
			break
		}
	}

	// If \K moved the reported start past the end of the match (possible
	// through lookahead), swap the two.
	if m.startPosition > m.position {
		m.startPosition, m.position = m.position, m.startPosition
	}

	res := Result{
		Matched: m.match > 0,
		NoRetry: m.match == -2,
		Offset:  m.startPosition,
		Length:  m.position - m.startPosition,
	}
	res.Captures = make([]Capture, len(m.captures))
	for i, length := range m.captures {
		c := Capture{Length: length, Participating: length != NonParticipating}
		if !c.Participating {
			c.Length = 0
		} else if m.str != nil {
			c.Offset = m.captureOffsets[i]
		}
		res.Captures[i] = c
	}
	return res
}
