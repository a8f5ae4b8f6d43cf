// Package matcher implements the backtracking execution engine: the
// matching stack of backtrack records, the group/capture state machine, the
// symbol dispatch loop, and the static and runtime optimizers that collapse
// backtracking subtrees into closed-form arithmetic.
//
// A Matcher runs one pattern against one input per Match call, in one of
// two modes:
//
//   - numerical (unary) mode: the input is a length N; the matcher behaves
//     as if matching a string of N identical sentinel bytes, and positions
//     are plain integers. This mode admits dramatic algebraic shortcuts.
//   - string mode: the input is a byte buffer; captures record offsets as
//     well as lengths.
//
// Matchers are single-threaded. Matchers built over the same Pattern share
// its symbol tree, which virtualization rewrites in place, so they are not
// safe to run concurrently with one another.
package matcher

import "github.com/coregx/rxmath/syntax"

// recordKind tags a backtrack record variant.
type recordKind uint8

const (
	recTryMatch recordKind = iota
	recEnterGroup
	recLeaveGroup
	recLeaveGroupLazily
	recLeaveCaptureGroup
	recLeaveCaptureGroupLazily
	recLeaveConstGroupCapturing
	recLoopGroup
	recLeaveMolecularLookahead
	recSkipGroup
	recTryLazyAlternatives
	recBeginAtomicGroup
	recAtomicCapture
	recCommit
	recPrune
	recSkip
	recThen
	recResetStart
)

var recordNames = [...]string{
	recTryMatch:                 "TryMatch",
	recEnterGroup:               "EnterGroup",
	recLeaveGroup:               "LeaveGroup",
	recLeaveGroupLazily:         "LeaveGroupLazily",
	recLeaveCaptureGroup:        "LeaveCaptureGroup",
	recLeaveCaptureGroupLazily:  "LeaveCaptureGroupLazily",
	recLeaveConstGroupCapturing: "LeaveConstGroupCapturing",
	recLoopGroup:                "LoopGroup",
	recLeaveMolecularLookahead:  "LeaveMolecularLookahead",
	recSkipGroup:                "SkipGroup",
	recTryLazyAlternatives:      "TryLazyAlternatives",
	recBeginAtomicGroup:         "BeginAtomicGroup",
	recAtomicCapture:            "AtomicCapture",
	recCommit:                   "Commit",
	recPrune:                    "Prune",
	recSkip:                     "Skip",
	recThen:                     "Then",
	recResetStart:               "ResetStart",
}

func (k recordKind) String() string { return recordNames[k] }

// record is one backtrack log entry. It is a tagged variant: which fields
// are meaningful depends on kind. Variable-size payloads (saved capture
// tables) live in the stack's capture arena, addressed by capsOff/capsLen.
type record struct {
	kind recordKind

	// The symbol whose choice point this is (TryMatch) or the group symbol
	// the record belongs to (SkipGroup, LeaveGroup family, LoopGroup,
	// LeaveMolecularLookahead).
	sym *syntax.Symbol

	position     uint64
	currentMatch uint64 // TryMatch
	oldPosition  uint64 // LoopGroup: frame position before the loop
	loopCount    uint64 // LeaveGroup family
	savedInput   uint64 // lookinto frames: outer input to restore
	savedOuter   uint64 // lookinto frames: outer position to restore

	alternative int // saved alternative index
	numCaptured int

	// AtomicCapture: the alternative to restore on rollback.
	parentAlt    *syntax.Alternative
	parentAltIdx int

	// Payload slice into stack.caps.
	capsOff, capsLen int32

	backrefIndex uint32 // LeaveConstGroupCapturing
}

// capSave is one saved capture in the stack's payload arena.
type capSave struct {
	index  uint32
	length uint64
	offset uint64
}

// chunkRecords is the per-chunk record capacity; at the record size this
// keeps a chunk in the same ballpark as the traditional 256 KiB arena
// chunk.
const chunkRecords = 2048

// btChunk is one fixed-capacity chunk of the matching stack. Chunks are
// linked through prev, newest first.
type btChunk struct {
	recs [chunkRecords]record
	prev *btChunk
}

// btStack is the backtrack log: a chunk-linked LIFO of records plus the
// shared payload arena for variable-size capture tables.
//
// Push and pop are O(1) amortized. A drained chunk is not returned to the
// allocator immediately: it is parked in free so the next push reuses it,
// which both amortizes allocation and keeps the just-popped record
// readable until the dispatcher moves on.
type btStack struct {
	top  *btChunk
	n    int // records used in top chunk
	free *btChunk
	caps []capSave
}

func newBTStack() *btStack {
	return &btStack{top: &btChunk{}}
}

func (s *btStack) empty() bool {
	return s.n == 0 && s.top.prev == nil
}

// push appends a zeroed record and returns a pointer for the caller to
// fill. The pointer stays valid until the record is popped.
func (s *btStack) push(kind recordKind) *record {
	if s.n == chunkRecords {
		c := s.free
		if c != nil {
			s.free = nil
		} else {
			c = &btChunk{}
		}
		c.prev = s.top
		s.top = c
		s.n = 0
	}
	r := &s.top.recs[s.n]
	*r = record{kind: kind, capsOff: int32(len(s.caps))}
	s.n++
	return r
}

// peek returns the next record to be popped. The stack must not be empty.
func (s *btStack) peek() *record {
	if s.n == 0 {
		return &s.top.prev.recs[chunkRecords-1]
	}
	return &s.top.recs[s.n-1]
}

// pop removes the top record and returns it. The returned pointer stays
// readable until the next push.
func (s *btStack) pop() *record {
	if s.n == 0 {
		old := s.top
		s.top = old.prev
		old.prev = nil
		s.free = old
		s.n = chunkRecords
	}
	s.n--
	r := &s.top.recs[s.n]
	// Release this record's payload region; records pop in LIFO order so
	// truncation is exact.
	s.caps = s.caps[:r.capsOff]
	return r
}

// saveCap appends a capture to the payload arena of the record currently
// being filled.
func (s *btStack) saveCap(r *record, c capSave) {
	s.caps = append(s.caps, c)
	r.capsLen++
}

// payload returns the record's saved captures.
func (s *btStack) payload(r *record) []capSave {
	return s.caps[r.capsOff : r.capsOff+r.capsLen]
}

// flush discards every record, keeping the first chunk for reuse.
func (s *btStack) flush() {
	for s.top.prev != nil {
		s.top = s.top.prev
	}
	s.n = 0
	s.caps = s.caps[:0]
}
