package matcher

import (
	"fmt"
	"strings"

	"github.com/coregx/rxmath/syntax"
)

// The debug trace prints, for every dispatch step, the symbol's source
// text, the position and space left, the captures pushed so far, and the
// open-group stack. DebugTrace level 2 adds a dump of the matching stack.

func (m *Matcher) tracef(format string, args ...any) {
	fmt.Fprintf(m.cfg.TraceWriter, format, args...)
}

func (m *Matcher) traceNonMatch(negativeLookahead bool) {
	if negativeLookahead {
		m.tracef("Match found inside negative lookaround, resulting in a non-match outside it\n\n")
	} else {
		m.tracef(": non-match\n")
	}
}

func (m *Matcher) traceStep(sym *syntax.Symbol) {
	src := m.pat.Source
	line := src[min(sym.Pos, len(src)):]
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	m.tracef("%s\n", line)
	m.tracef("Step %d: {%d|%d} ", m.numSteps, m.position, m.input-m.position)
	for i, idx := range m.captureStack {
		m.traceCapture(idx)
		if i < len(m.captureStack)-1 {
			m.tracef(", ")
		}
	}
	m.tracef("\n")

	if m.cfg.DebugTrace > 1 {
		m.traceStack()
	}

	for d := 0; d <= m.gTop; d++ {
		f := &m.groupStack[d]
		if d > 0 {
			m.tracef("%s{%d", groupOpenText(f.group.Group), f.position)
			if d == m.gTop {
				m.tracef("..%d", m.position)
			}
			m.tracef("} #%d ", f.loopCount)
		}
		m.tracef("[%d]", f.numCaptured)
	}
	m.tracef("%s\n", strings.Repeat(")", m.gTop))
}

func (m *Matcher) traceCapture(idx uint32) {
	length := m.captures[idx]
	if length == NonParticipating {
		m.tracef("\\%d=NPCG", idx+1)
		return
	}
	if m.str == nil {
		m.tracef("\\%d=%d", idx+1, length)
		return
	}
	off := m.captureOffsets[idx]
	m.tracef("\\%d=%q (%d:%d)", idx+1, m.str[off:off+length], off, length)
}

// traceStack dumps the backtrack records, newest first.
func (m *Matcher) traceStack() {
	n := m.stackDepth()
	chunk := m.stack.top
	i := m.stack.n
	for chunk != nil {
		for i > 0 {
			i--
			m.tracef("  <%d> %s\n", n, chunk.recs[i].kind)
			n--
		}
		chunk = chunk.prev
		i = chunkRecords
	}
}

func (m *Matcher) stackDepth() int {
	n := m.stack.n
	for c := m.stack.top.prev; c != nil; c = c.prev {
		n += chunkRecords
	}
	return n
}

func groupOpenText(g *syntax.Group) string {
	switch g.Kind {
	case syntax.GroupNonCapturing:
		return " (?:"
	case syntax.GroupCapturing:
		return " ("
	case syntax.GroupAtomic:
		return " (?>"
	case syntax.GroupBranchReset:
		return " (?|"
	case syntax.GroupLookahead:
		return " (?="
	case syntax.GroupMolecularLookahead:
		return " (?*"
	case syntax.GroupNegativeLookahead:
		return " (?!"
	case syntax.GroupLookinto:
		return " (?^="
	case syntax.GroupMolecularLookinto:
		return " (?^*"
	case syntax.GroupNegativeLookinto:
		return " (?^!"
	case syntax.GroupConditional:
		return fmt.Sprintf(" (?(%d)", g.BackrefIndex+1)
	case syntax.GroupLookaroundConditional:
		return " (?(?=)"
	}
	return " ("
}
