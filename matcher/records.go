package matcher

import "github.com/coregx/rxmath/syntax"

// nonMatch unwinds the matching stack after a failed symbol match, popping
// records until one of them restores a state the matcher can resume from,
// or the stack empties and the whole attempt fails. Before stopping it may
// switch to the next alternative of the current group when the top record
// permits it and the verb state does not forbid it.
func (m *Matcher) nonMatch(negativeLookahead bool) {
	if m.cfg.DebugTrace > 0 {
		m.traceNonMatch(negativeLookahead)
	}

	m.position = m.frame().position

	for {
		if m.verb != syntax.VerbNone && m.verb != syntax.VerbThen {
			// A verb signalled inside a negative lookahead must not leak
			// out of it.
			if m.curGroup().Kind == syntax.GroupNegativeLookahead &&
				!m.stack.empty() && m.okayToTryAlternatives(m.stack.peek()) {
				m.verb = syntax.VerbNone
			}
		} else {
			g := m.curGroup()
			if m.altIdx < len(g.Alts) &&
				(m.stack.empty() || m.okayToTryAlternatives(m.stack.peek())) &&
				g.Kind != syntax.GroupConditional && g.Kind != syntax.GroupLookaroundConditional {
				if m.altIdx+1 < len(g.Alts) {
					m.verb = syntax.VerbNone
					m.position = m.frame().position
					m.setAlternative(g, m.altIdx+1)
					m.currentMatch = unset
					return
				}
				m.altIdx++
			}
		}

		if m.stack.empty() {
			if m.verb == syntax.VerbCommit {
				m.match = -2
			} else {
				m.match = -1
			}
			return
		}

		r := m.stack.pop()
		stopHere := m.popTo(r)
		if stopHere && m.verb == syntax.VerbNone {
			return
		}
	}
}

// popTo restores the state a record saved. It reports true when the
// matcher should resume matching with the restored state, false when
// unwinding must continue.
func (m *Matcher) popTo(r *record) bool {
	switch r.kind {
	case recTryMatch:
		m.position = r.position
		m.currentMatch = r.currentMatch
		m.alt = r.sym.Parent
		m.altIdx = r.sym.Parent.Index
		m.symIdx = r.sym.Self
		return true

	case recEnterGroup:
		f := m.frame()
		groupSym := f.group
		g := groupSym.Group
		m.exitLookintoFrame(f)
		m.gTop--
		if groupSym.Parent != nil {
			m.alt = groupSym.Parent
			m.altIdx = groupSym.Parent.Index
		} else if groupSym.Group.Owner != nil {
			m.setAlternativeKeepSym(groupSym.Group.Owner, 0)
		}
		if !g.IsLookinto() {
			m.position = f.position
		}
		if g.IsNegativeLookaround() {
			// No match was found inside the negative lookaround, which
			// makes it a match outside.
			m.exitCondOrResume(groupSym, false)
			m.currentMatch = unset
			return true
		}
		if groupSym.Parent == nil && g.Owner != nil {
			// A failed positive condition selects the "no" branch of its
			// lookaround conditional.
			m.setAlternative(g.Owner, 1)
			m.currentMatch = unset
			return true
		}
		if f.loopCount > uint64(groupSym.Min) && groupSym.Min != groupSym.Max {
			// The group already satisfied its minimum; leaving it with the
			// completed iterations is the next choice.
			m.resumeAfter(groupSym)
			m.currentMatch = unset
			return true
		}
		return false

	case recLeaveGroup, recLeaveCaptureGroup:
		m.reopenFrame(r)
		m.popCaptureOnLeaveUndo(r)
		m.setAlternativeKeepSym(r.sym.Group, r.alternative)
		return false

	case recLeaveGroupLazily, recLeaveCaptureGroupLazily:
		m.reopenFrame(r)
		m.popCaptureOnLeaveUndo(r)
		f := m.frame()
		f.loopCount++
		m.position = f.position
		m.setAlternative(r.sym.Group, 0)
		m.currentMatch = unset
		return true

	case recLeaveConstGroupCapturing:
		idx := r.backrefIndex
		if m.cfg.Flags.PersistentBackrefs {
			p := m.stack.payload(r)[0]
			if m.captures[idx] == NonParticipating && p.length != NonParticipating {
				// It was counted as fresh; the stack entry goes away with
				// the restore.
				m.popCaptureStackEntry(idx)
			}
			m.captures[idx] = p.length
			if m.str != nil {
				m.captureOffsets[idx] = p.offset
			}
			if p.length == NonParticipating && r.numCaptured > 0 {
				m.popCaptureStackEntry(idx)
			}
		} else {
			m.popCaptureStackEntry(idx)
			m.captures[idx] = NonParticipating
		}
		return false

	case recLoopGroup:
		f := m.frame()
		groupSym := f.group
		f.loopCount--
		f.position = r.oldPosition
		m.restoreLoopCaptures(r)
		m.setAlternativeKeepSym(groupSym.Group, r.alternative)
		if !groupSym.Lazy && f.loopCount >= uint64(groupSym.Min) {
			// Greedy un-loop: leave the group with one fewer iteration.
			m.position = r.position
			m.leaveMaxedOutRecordless()
			return true
		}
		return false

	case recLeaveMolecularLookahead:
		m.gTop++
		f := m.frame()
		f.position = r.position
		f.loopCount = 1
		f.group = r.sym
		f.numCaptured = r.numCaptured
		f.savedInput = r.savedInput
		f.savedOuter = r.savedOuter
		m.groupStack[m.gTop-1].numCaptured -= r.numCaptured
		if r.sym.Group.IsLookinto() {
			m.input = m.inputForLookinto(f)
		}
		m.setAlternativeKeepSym(r.sym.Group, r.alternative)
		return false

	case recSkipGroup:
		m.position = r.position
		m.enterGroup(r.sym)
		m.currentMatch = unset
		return true

	case recTryLazyAlternatives:
		f := m.frame()
		n := f.numCaptured
		base := len(m.captureStack) - n
		for i := 0; i < n; i++ {
			m.captures[m.captureStack[base+i]] = NonParticipating
		}
		m.captureStack = m.captureStack[:base]
		f.numCaptured = 0
		f.position = r.position
		f.loopCount--
		m.position = r.position
		g := f.group.Group
		if r.alternative+1 < len(g.Alts) {
			m.setAlternative(g, r.alternative+1)
			m.currentMatch = unset
			return true
		}
		m.altIdx = r.alternative + 1
		return false

	case recBeginAtomicGroup:
		return false

	case recAtomicCapture:
		m.rollbackAtomicCapture(r)
		m.frame().numCaptured -= r.numCaptured
		m.alt = r.parentAlt
		m.altIdx = r.parentAltIdx
		return false

	case recCommit:
		m.verb = syntax.VerbCommit
		return false
	case recPrune:
		m.verb = syntax.VerbPrune
		return false
	case recSkip:
		m.verb = syntax.VerbSkip
		m.skipPosition = r.position
		return false
	case recThen:
		m.verb = syntax.VerbThen
		return false

	case recResetStart:
		m.startPosition = r.position
		return false
	}
	return false
}

// exitCondOrResume resumes after a lookaround group, or jumps to the
// conditional's branch when the group is the embedded condition of a
// lookaround conditional (negative selects the "no" branch).
func (m *Matcher) exitCondOrResume(groupSym *syntax.Symbol, negative bool) {
	if groupSym.Parent != nil {
		m.resumeAfter(groupSym)
		return
	}
	owner := groupSym.Group.Owner
	branch := 0
	if negative {
		branch = 1
	}
	m.setAlternative(owner, branch)
}

// reopenFrame re-pushes the group frame a LeaveGroup-family record closed.
func (m *Matcher) reopenFrame(r *record) {
	m.gTop++
	f := m.frame()
	f.position = r.position
	f.loopCount = r.loopCount
	f.group = r.sym
	f.numCaptured = r.numCaptured
	f.savedInput = r.savedInput
	f.savedOuter = r.savedOuter
	m.groupStack[m.gTop-1].numCaptured -= r.numCaptured
}

// popCaptureOnLeaveUndo undoes the capture write a leaveGroup performed.
func (m *Matcher) popCaptureOnLeaveUndo(r *record) {
	g := r.sym.Group
	if g.Kind != syntax.GroupCapturing {
		return
	}
	idx := g.BackrefIndex
	if r.kind == recLeaveCaptureGroup || r.kind == recLeaveCaptureGroupLazily {
		p := m.stack.payload(r)[0]
		fresh := p.length == NonParticipating
		m.captures[idx] = p.length
		if m.str != nil {
			m.captureOffsets[idx] = p.offset
		}
		if fresh {
			m.popCaptureStackEntry(idx)
			m.frame().numCaptured--
		}
		return
	}
	m.captures[idx] = NonParticipating
	m.popCaptureStackEntry(idx)
	m.frame().numCaptured--
}

func (m *Matcher) popCaptureStackEntry(idx uint32) {
	n := len(m.captureStack) - 1
	m.captureStack = m.captureStack[:n]
}

// restoreLoopCaptures puts back the capture values a loopGroup rotated
// away.
func (m *Matcher) restoreLoopCaptures(r *record) {
	f := m.frame()
	if !m.cfg.Flags.PersistentBackrefs {
		for _, c := range m.stack.payload(r) {
			m.captureStack = append(m.captureStack, c.index)
			m.captures[c.index] = c.length
			if m.str != nil {
				m.captureOffsets[c.index] = c.offset
			}
		}
		f.numCaptured = r.numCaptured
		return
	}
	g := f.group.Group
	if g.Kind != syntax.GroupCapturing {
		return
	}
	idx := g.BackrefIndex
	if r.numCaptured > 0 {
		p := m.stack.payload(r)[0]
		m.captures[idx] = p.length
		if m.str != nil {
			m.captureOffsets[idx] = p.offset
		}
	} else if m.captures[idx] != NonParticipating {
		// The loop wrote a fresh capture; undo it.
		m.captures[idx] = NonParticipating
		m.popCaptureStackEntry(idx)
		f.numCaptured--
	}
}

// leaveMaxedOutRecordless is the greedy un-loop exit: like
// leaveMaxedOutGroup, it leaves the group, but the frame position has
// already been rewound by the caller.
func (m *Matcher) leaveMaxedOutRecordless() {
	f := m.frame()
	g := f.group.Group
	var r *record
	if m.cfg.Flags.PersistentBackrefs && g.Kind == syntax.GroupCapturing {
		r = m.stack.push(recLeaveCaptureGroup)
		m.saveCaptureInto(r, g.BackrefIndex)
	} else {
		r = m.stack.push(recLeaveGroup)
	}
	m.leaveGroup(r, f.position)
}

// okayToTryAlternatives reports whether the record on top of the stack
// permits abandoning the current alternative in favor of the next.
//
// An atomic group's alternatives are reachable only while its inner
// BeginAtomicGroup marker is still on the stack; once the group has
// committed, backtracking finds its bare EnterGroup record and must not
// retry the remaining alternatives.
func (m *Matcher) okayToTryAlternatives(r *record) bool {
	switch r.kind {
	case recEnterGroup:
		return m.curGroup().Kind != syntax.GroupAtomic
	case recLoopGroup, recBeginAtomicGroup:
		return true
	}
	return false
}

// popForNegativeLookahead undoes a record's side effects when a negative
// lookaround's body succeeds and everything it did must be discarded.
func (m *Matcher) popForNegativeLookahead(r *record) {
	switch r.kind {
	case recEnterGroup:
		m.exitLookintoFrame(m.frame())
		m.gTop--
	case recLeaveGroup, recLeaveCaptureGroup, recLeaveGroupLazily, recLeaveCaptureGroupLazily:
		m.gTop++
		m.frame().group = r.sym
		m.popCaptureOnLeaveUndoShallow(r)
	case recLeaveMolecularLookahead:
		m.gTop++
		m.frame().group = r.sym
	case recLoopGroup:
		if !m.cfg.Flags.PersistentBackrefs {
			for _, c := range m.stack.payload(r) {
				m.captureStack = append(m.captureStack, c.index)
			}
		} else if g := r.sym.Group; g.Kind == syntax.GroupCapturing {
			idx := g.BackrefIndex
			if r.numCaptured > 0 {
				p := m.stack.payload(r)[0]
				m.captures[idx] = p.length
				if m.str != nil {
					m.captureOffsets[idx] = p.offset
				}
			} else if m.captures[idx] != NonParticipating {
				m.captures[idx] = NonParticipating
				m.popCaptureStackEntry(idx)
			}
		}
	case recAtomicCapture:
		m.rollbackAtomicCapture(r)
	case recLeaveConstGroupCapturing:
		idx := r.backrefIndex
		m.captures[idx] = NonParticipating
		m.popCaptureStackEntry(idx)
	case recResetStart:
		m.startPosition = r.position
	}
}

// popCaptureOnLeaveUndoShallow rolls back the capture write of a leave
// record without touching frame counters (used during negative-lookaround
// unwinding, where the frames being crossed are already accounted).
func (m *Matcher) popCaptureOnLeaveUndoShallow(r *record) {
	g := r.sym.Group
	if g.Kind != syntax.GroupCapturing {
		return
	}
	idx := g.BackrefIndex
	if r.kind == recLeaveCaptureGroup || r.kind == recLeaveCaptureGroupLazily {
		p := m.stack.payload(r)[0]
		m.captures[idx] = p.length
		if m.str != nil {
			m.captureOffsets[idx] = p.offset
		}
		if p.length == NonParticipating {
			m.popCaptureStackEntry(idx)
			m.groupStack[m.gTop-1].numCaptured--
		}
		return
	}
	m.captures[idx] = NonParticipating
	m.popCaptureStackEntry(idx)
	m.groupStack[m.gTop-1].numCaptured--
}

// popForLookahead accounts a record while an atomic scope (lookahead or
// atomic group) discards its interior backtrack records; the return value
// is the record's capture-count delta.
func (m *Matcher) popForLookahead(r *record) int {
	switch r.kind {
	case recEnterGroup:
		m.exitLookintoFrame(m.frame())
		m.gTop--
		return 0
	case recLeaveGroup, recLeaveCaptureGroup, recLeaveGroupLazily, recLeaveCaptureGroupLazily:
		m.gTop++
		m.frame().group = r.sym
		if r.sym.Group.Kind == syntax.GroupCapturing {
			return 1
		}
		return 0
	case recLeaveMolecularLookahead:
		m.gTop++
		m.frame().group = r.sym
		return 0
	case recLeaveConstGroupCapturing:
		return 1
	case recLoopGroup:
		return -r.numCaptured
	case recAtomicCapture:
		return r.numCaptured
	}
	return 0
}

// rollbackAtomicCapture undoes the captures an AtomicCapture record
// retained past an atomic scope.
func (m *Matcher) rollbackAtomicCapture(r *record) {
	if m.cfg.Flags.PersistentBackrefs {
		for _, c := range m.stack.payload(r) {
			if c.length == NonParticipating {
				m.popCaptureStackEntry(c.index)
			}
			m.captures[c.index] = c.length
			if m.str != nil {
				m.captureOffsets[c.index] = c.offset
			}
		}
		return
	}
	base := len(m.captureStack) - r.numCaptured
	for i := len(m.captureStack) - 1; i >= base; i-- {
		m.captures[m.captureStack[i]] = NonParticipating
	}
	m.captureStack = m.captureStack[:base]
}

// forwardCaptures collects, for persistent-backref mode, the captures a
// record carries forward out of an atomic scope: the restore value each
// affected index must return to on backtrack. Popping newest-first means
// the oldest record's value wins, which is the value from before the
// scope.
func (m *Matcher) forwardCaptures(r *record) {
	switch r.kind {
	case recLeaveCaptureGroup, recLeaveCaptureGroupLazily, recLeaveConstGroupCapturing, recLoopGroup, recAtomicCapture:
		for _, c := range m.stack.payload(r) {
			m.writeAtomicTmp(c)
		}
	}
}

func (m *Matcher) writeAtomicTmp(c capSave) {
	if !m.atomicTmpUsed[c.index] {
		m.atomicTmpUsed[c.index] = true
		m.atomicTmpIdx[m.atomicTmpCount] = c.index
		m.atomicTmpCount++
	}
	m.atomicTmpVal[c.index] = c.length
	m.atomicTmpOff[c.index] = c.offset
}

// popAtomicGroup discards the backtrack records an atomic (or possessive)
// group produced, down to its BeginAtomicGroup marker, retaining the
// captures it made through an AtomicCapture record.
func (m *Matcher) popAtomicGroup(groupSym *syntax.Symbol) {
	oldTop := m.gTop
	delta := 0
	m.atomicTmpCount = 0
	for {
		done := m.gTop == oldTop && m.stack.peek().kind == recBeginAtomicGroup
		r := m.stack.peek()
		delta += m.popForLookahead(r)
		if m.cfg.Flags.PersistentBackrefs {
			m.forwardCaptures(r)
		}
		m.stack.pop()
		if done {
			break
		}
	}
	if delta != 0 || (m.cfg.Flags.PersistentBackrefs && m.atomicTmpCount > 0) {
		m.pushAtomicCapture(delta, groupSym)
	}
}

// pushAtomicCapture records the captures that must survive an atomic scope
// but still roll back if the outer pattern fails.
func (m *Matcher) pushAtomicCapture(delta int, groupSym *syntax.Symbol) {
	r := m.stack.push(recAtomicCapture)
	r.numCaptured = delta
	if groupSym.Parent != nil {
		r.parentAlt = groupSym.Parent
		r.parentAltIdx = groupSym.Parent.Index
	} else if owner := groupSym.Group.Owner; owner != nil && len(owner.Alts) > 0 {
		// The condition of a lookaround conditional restores to the "yes"
		// branch it selected.
		r.parentAlt = owner.Alts[0]
		r.parentAltIdx = 0
	} else {
		r.parentAlt = m.alt
		r.parentAltIdx = m.altIdx
	}
	if m.cfg.Flags.PersistentBackrefs {
		for i := 0; i < m.atomicTmpCount; i++ {
			idx := m.atomicTmpIdx[i]
			m.atomicTmpUsed[idx] = false
			m.stack.saveCap(r, capSave{index: idx, length: m.atomicTmpVal[idx], offset: m.atomicTmpOff[idx]})
		}
		m.atomicTmpCount = 0
	}
}

// inputForLookinto recomputes the scoped input bound when a molecular
// lookinto frame is re-entered on backtrack.
func (m *Matcher) inputForLookinto(f *groupFrame) uint64 {
	g := f.group.Group
	if g.BackrefIndex == syntax.NoBackref {
		return f.savedOuter
	}
	length := m.captures[g.BackrefIndex]
	if length == NonParticipating {
		length = 0
	}
	if m.str != nil && length != 0 {
		return m.captureOffsets[g.BackrefIndex] + length
	}
	return length
}
