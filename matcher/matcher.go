package matcher

import (
	"io"
	"math"
	"os"

	"github.com/coregx/rxmath/syntax"
)

// NonParticipating is the sentinel capture length marking a capture group
// that has not participated in the match.
const NonParticipating = math.MaxUint64

// unset is the currentMatch sentinel meaning no repetition count has been
// tried yet for the symbol being matched.
const unset = math.MaxUint64

// Config carries the process-wide options the matcher reads. It is
// immutable during a match.
type Config struct {
	// Flags is the dialect the pattern was parsed with.
	Flags syntax.Flags

	// OptimizationLevel gates the static and runtime optimizers:
	// 0 disables both, 1 enables end-anchor and subtraction arithmetic,
	// 2 additionally enables the primality/power-of-two rewrites and the
	// multiplication optimizations.
	OptimizationLevel int

	// DebugTrace enables the step trace (1) and the per-step stack dump
	// (2). Output goes to TraceWriter, os.Stderr when nil.
	DebugTrace  int
	TraceWriter io.Writer
}

// StartFinder proposes candidate start offsets for unanchored string-mode
// matching, replacing the try-every-position outer loop. Implementations
// live in the prefilter package.
type StartFinder interface {
	// FindStart returns the first candidate start position at or after
	// from, or ok == false when no further candidate exists.
	FindStart(haystack []byte, from int) (pos int, ok bool)
}

// Capture is one capture group's result.
type Capture struct {
	// Length of the captured span; meaningless unless Participating.
	Length uint64
	// Offset of the captured span (string mode only).
	Offset uint64
	// Participating is false for a non-participating capture group.
	Participating bool
}

// Result is the outcome of one Match call.
type Result struct {
	Matched bool
	// NoRetry is set when the match failed through (*COMMIT) or a
	// same-position (*SKIP): the caller should not retry this input.
	NoRetry bool
	Offset  uint64
	Length  uint64
	// Captures holds one entry per capture group.
	Captures []Capture
	// PossibleMatches is the number of distinct ways the pattern matched,
	// filled only by the Count entry points.
	PossibleMatches uint64
}

// groupFrame is the state of one currently open group instance.
type groupFrame struct {
	// position is where this group instance (current iteration) began.
	position uint64
	// loopCount is completed iterations + 1 for the current one.
	loopCount uint64
	// numCaptured counts capture-stack entries produced within this frame.
	numCaptured int
	// group is the owning group symbol.
	group *syntax.Symbol

	// Lookinto frames remap position/input on entry; these restore the
	// outer view on exit.
	savedInput uint64
	savedOuter uint64
}

// Matcher executes one pattern. It owns its matching-stack arena, group
// stack, and capture tables, and is not safe for concurrent use.
type Matcher struct {
	pat *syntax.Pattern
	cfg Config

	// Starts, when non-nil, supplies candidate start positions for
	// unanchored string-mode matching.
	Starts StartFinder

	// Input model. str is nil in numerical mode; input is the length in
	// both modes.
	str   []byte
	input uint64

	basicChar       byte
	basicCharIsWord bool

	captures       []uint64
	captureOffsets []uint64 // string mode only
	captureStack   []uint32
	groupStack     []groupFrame
	gTop           int
	stack          *btStack

	position      uint64
	startPosition uint64
	currentMatch  uint64

	alt    *syntax.Alternative
	altIdx int
	symIdx int

	verb         syntax.Verb
	skipPosition uint64

	// match: 0 = looking, +1 = found, -1 = miss, -2 = miss, do not retry.
	match int8

	// countAll, when non-nil, counts every distinct way to match instead
	// of stopping at the first.
	countAll *uint64

	// Persistent-backref scratch for atomic capture collection.
	atomicTmpUsed  []bool
	atomicTmpIdx   []uint32
	atomicTmpVal   []uint64
	atomicTmpOff   []uint64
	atomicTmpCount int

	numSteps uint64
}

// emptyAlt stands in for the implied empty "no" branch of a single-branch
// conditional.
var emptyAlt = &syntax.Alternative{}

// New creates a matcher for the pattern.
func New(pat *syntax.Pattern, cfg Config) *Matcher {
	if cfg.TraceWriter == nil {
		cfg.TraceWriter = os.Stderr
	}
	n := int(pat.NumCaptures)
	m := &Matcher{
		pat:          pat,
		cfg:          cfg,
		captures:     make([]uint64, n),
		captureStack: make([]uint32, 0, n),
		groupStack:   make([]groupFrame, pat.MaxGroupDepth+2),
		stack:        newBTStack(),
	}
	return m
}

func (m *Matcher) frame() *groupFrame { return &m.groupStack[m.gTop] }

func (m *Matcher) curGroup() *syntax.Group { return m.frame().group.Group }

// readCapture returns a capture's length and, in string mode, its content.
func (m *Matcher) readCapture(index uint32) (length uint64, content []byte) {
	length = m.captures[index]
	if m.str != nil && length != NonParticipating {
		off := m.captureOffsets[index]
		content = m.str[off : off+length]
	}
	return length, content
}

func (m *Matcher) writeCaptureRelative(index uint32, start, end uint64) {
	m.captures[index] = end - start
	if m.str != nil {
		m.captureOffsets[index] = start
	}
}

// setAlternative switches the current alternative to alts[i] of the open
// group, resetting the symbol cursor.
func (m *Matcher) setAlternative(g *syntax.Group, i int) {
	m.altIdx = i
	if i < len(g.Alts) {
		m.alt = g.Alts[i]
	} else {
		m.alt = emptyAlt
	}
	m.symIdx = 0
}

// setAlternativeKeepSym switches the active alternative without moving
// the symbol cursor, for unwinding paths that restore it separately.
func (m *Matcher) setAlternativeKeepSym(g *syntax.Group, i int) {
	m.altIdx = i
	if i < len(g.Alts) {
		m.alt = g.Alts[i]
	} else {
		m.alt = emptyAlt
	}
}

// resumeAfter resumes matching at the symbol following s in its parent
// alternative.
func (m *Matcher) resumeAfter(s *syntax.Symbol) {
	m.alt = s.Parent
	m.altIdx = s.Parent.Index
	m.symIdx = s.Self + 1
}

// symbol returns the symbol under the cursor, or nil at end of alternative.
func (m *Matcher) symbol() *syntax.Symbol {
	if m.symIdx >= len(m.alt.Symbols) {
		return nil
	}
	return m.alt.Symbols[m.symIdx]
}

// pushTryMatch saves a greedy/lazy choice point for the current symbol,
// unless it is possessive.
func (m *Matcher) pushTryMatch(sym *syntax.Symbol) {
	if sym.Possessive {
		return
	}
	r := m.stack.push(recTryMatch)
	r.sym = sym
	r.position = m.position
	r.currentMatch = m.currentMatch
}

// enterGroup opens a group instance: selects the starting alternative
// (testing the condition for conditionals), pushes the group-stack frame
// and the EnterGroup record, plus the atomic-scope markers a possessive or
// atomic group needs. For a lookaround conditional it recursively enters
// the embedded condition.
func (m *Matcher) enterGroup(groupSym *syntax.Symbol) {
	g := groupSym.Group
	altIdx := 0

	if g.Kind == syntax.GroupConditional {
		if m.captures[g.BackrefIndex] == NonParticipating {
			altIdx = 1
			if len(g.Alts) < 2 {
				// Only a "yes" branch: skip the group entirely.
				m.resumeAfter(groupSym)
				return
			}
		}
	}

	savedInput, savedOuter := m.input, m.position
	if g.IsLookinto() {
		if !m.enterLookinto(g) {
			return
		}
	}

	m.setAlternative(g, altIdx)

	m.gTop++
	f := m.frame()
	f.position = m.position
	f.loopCount = 1
	f.group = groupSym
	f.numCaptured = 0
	f.savedInput = savedInput
	f.savedOuter = savedOuter

	if groupSym.Possessive {
		m.stack.push(recBeginAtomicGroup)
	}
	m.stack.push(recEnterGroup)
	if g.Kind == syntax.GroupAtomic {
		m.stack.push(recBeginAtomicGroup)
	} else if g.Kind == syntax.GroupLookaroundConditional {
		m.enterGroup(g.Lookaround)
	}
}

// enterLookinto remaps the matcher's view to the scoped capture (or the
// match so far when unnumbered). Reports false when the capture does not
// participate and NPCG emulation is off, in which case it has already
// signalled a non-match.
func (m *Matcher) enterLookinto(g *syntax.Group) bool {
	if g.BackrefIndex == syntax.NoBackref {
		m.input = m.position
		m.position = m.startPosition
		return true
	}
	length := m.captures[g.BackrefIndex]
	if length == NonParticipating {
		if !m.cfg.Flags.EmulateECMANPCGs {
			m.nonMatch(false)
			return false
		}
		length = 0
	}
	if m.str != nil && length != 0 {
		off := m.captureOffsets[g.BackrefIndex]
		m.position = off
		m.input = off + length
	} else {
		m.position = 0
		m.input = length
	}
	return true
}

// exitLookintoFrame restores the outer view when leaving a lookinto frame
// in any way.
func (m *Matcher) exitLookintoFrame(f *groupFrame) {
	if f.group.Group.IsLookinto() {
		m.input = f.savedInput
		m.position = f.savedOuter
	}
}

// leaveGroup fills a LeaveGroup-family record from the current frame,
// writes the capture for a capturing group, pops the frame, and bubbles
// numCaptured up to the parent.
func (m *Matcher) leaveGroup(r *record, pushPosition uint64) {
	f := m.frame()
	groupSym := f.group
	g := groupSym.Group

	r.sym = groupSym
	r.position = pushPosition
	r.loopCount = f.loopCount
	r.numCaptured = f.numCaptured
	r.alternative = m.altIdx
	r.savedInput = f.savedInput
	r.savedOuter = f.savedOuter

	if g.Kind == syntax.GroupCapturing {
		idx := g.BackrefIndex
		prev := m.captures[idx]
		m.writeCaptureRelative(idx, f.position, m.position)
		if !m.cfg.Flags.PersistentBackrefs || prev == NonParticipating {
			m.captureStack = append(m.captureStack, idx)
			f.numCaptured++
			r.numCaptured = f.numCaptured
		}
	}

	m.exitLookintoFrame(f)
	m.resumeAfter(groupSym)
	m.groupStack[m.gTop-1].numCaptured += f.numCaptured
	m.gTop--
	m.currentMatch = unset
}

// leaveLazyGroup exits a lazy group at its current iteration count; the
// pushed record re-enters the group for another iteration on backtrack.
func (m *Matcher) leaveLazyGroup() {
	f := m.frame()
	g := f.group.Group
	if len(g.Alts) > 1 && m.altIdx+1 < len(g.Alts) {
		// Popped after the lazy-leave record has re-opened the frame: it
		// retries the remaining alternatives at the same iteration count.
		tla := m.stack.push(recTryLazyAlternatives)
		tla.position = f.position
		tla.alternative = m.altIdx
	}
	var r *record
	if m.cfg.Flags.PersistentBackrefs && g.Kind == syntax.GroupCapturing {
		r = m.stack.push(recLeaveCaptureGroupLazily)
		m.saveCaptureInto(r, g.BackrefIndex)
	} else {
		r = m.stack.push(recLeaveGroupLazily)
	}
	m.leaveGroup(r, m.position)
}

// leaveMaxedOutGroup exits a group that cannot loop again.
func (m *Matcher) leaveMaxedOutGroup() {
	f := m.frame()
	groupSym := f.group
	g := groupSym.Group
	possessive := groupSym.Possessive
	var r *record
	if m.cfg.Flags.PersistentBackrefs && g.Kind == syntax.GroupCapturing {
		r = m.stack.push(recLeaveCaptureGroup)
		m.saveCaptureInto(r, g.BackrefIndex)
	} else {
		r = m.stack.push(recLeaveGroup)
	}
	m.leaveGroup(r, f.position)
	if possessive {
		m.popAtomicGroup(groupSym)
	}
}

// saveCaptureInto records a capture's current value in the record payload
// so persistent-backref mode can restore it on backtrack.
func (m *Matcher) saveCaptureInto(r *record, idx uint32) {
	c := capSave{index: idx, length: m.captures[idx]}
	if m.str != nil {
		c.offset = m.captureOffsets[idx]
	}
	m.stack.saveCap(r, c)
}

// loopGroup completes one iteration of the current group and rewinds it to
// alternative 0 for the next, rotating the captures produced within the
// finished iteration onto the matching stack.
func (m *Matcher) loopGroup() {
	f := m.frame()
	groupSym := f.group
	g := groupSym.Group

	r := m.stack.push(recLoopGroup)
	r.sym = groupSym
	r.position = m.position
	r.oldPosition = f.position
	r.alternative = m.altIdx

	f.loopCount++

	if !m.cfg.Flags.PersistentBackrefs {
		n := f.numCaptured
		r.numCaptured = n
		f.numCaptured = 0
		base := len(m.captureStack) - n
		for i := 0; i < n; i++ {
			idx := m.captureStack[base+i]
			c := capSave{index: idx, length: m.captures[idx]}
			if m.str != nil {
				c.offset = m.captureOffsets[idx]
			}
			m.stack.saveCap(r, c)
			m.captures[idx] = NonParticipating
		}
		m.captureStack = m.captureStack[:base]
	} else if g.Kind == syntax.GroupCapturing {
		idx := g.BackrefIndex
		if m.captures[idx] != NonParticipating {
			r.numCaptured = 1
			m.saveCaptureInto(r, idx)
		}
		prev := m.captures[idx]
		m.writeCaptureRelative(idx, f.position, m.position)
		if prev == NonParticipating {
			m.captureStack = append(m.captureStack, idx)
			f.numCaptured++
		}
	}

	m.setAlternative(g, 0)
	f.position = m.position
	m.currentMatch = unset

	if g.Kind == syntax.GroupAtomic {
		m.stack.push(recBeginAtomicGroup)
	} else if g.Kind == syntax.GroupLookaroundConditional {
		m.enterGroup(g.Lookaround)
	}
}

// maxExtend widens a quantifier bound to 64 bits, mapping the Unbounded
// sentinel to the maximum count.
func maxExtend(max uint32) uint64 {
	if max == syntax.Unbounded {
		return math.MaxUint64
	}
	return uint64(max)
}
