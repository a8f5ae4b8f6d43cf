package syntax

// finisher runs the post-parse pass: backref validation, wrapping of
// quantified lookarounds and atomic groups, group-depth accounting, and
// anchoring analysis.
type finisher struct {
	flags            Flags
	numCaptures      uint32
	maxDepth         int
	maxLookintoDepth int
	anchored         bool
}

func (f *finisher) finish(root *Symbol) error {
	anchored, err := f.walkGroup(root, 1, 0)
	if err != nil {
		return err
	}
	f.anchored = anchored
	return nil
}

// walkGroup validates and rewrites the group's subtree and reports whether
// every alternative of the group is anchored at the start.
func (f *finisher) walkGroup(groupSym *Symbol, depth, lookintoDepth int) (bool, error) {
	g := groupSym.Group
	if depth > f.maxDepth {
		f.maxDepth = depth
	}
	if g.IsLookinto() {
		lookintoDepth++
		if lookintoDepth > f.maxLookintoDepth {
			f.maxLookintoDepth = lookintoDepth
		}
		if g.BackrefIndex != NoBackref && g.BackrefIndex >= f.numCaptures {
			return false, &ParseError{Pos: groupSym.Pos, Msg: msgNonexistentCaptureGroup}
		}
	}
	if g.Kind == GroupConditional && g.BackrefIndex >= f.numCaptures {
		return false, &ParseError{Pos: groupSym.Pos, Msg: msgNonexistentCaptureGroup}
	}
	if g.Kind == GroupLookaroundConditional {
		// The condition occupies its own group frame while the conditional
		// is open, and never propagates anchoring to its owner.
		if _, err := f.walkGroup(g.Lookaround, depth+1, lookintoDepth); err != nil {
			return false, err
		}
	}

	allAnchored := true
	for _, alt := range g.Alts {
		altAnchored := false
		for i := 0; i < len(alt.Symbols); i++ {
			s := alt.Symbols[i]
			switch s.Kind {
			case KindAnchorStart:
				if s.Min > 0 {
					altAnchored = true
				}
			case KindBackref:
				if s.Index >= f.numCaptures {
					return false, &ParseError{Pos: s.Pos, Msg: msgNonexistentCaptureGroup}
				}
			case KindGroup:
				s = f.maybeWrap(alt, i)
				subAnchored, err := f.walkGroup(s, depth+1, lookintoDepth)
				if err != nil {
					return false, err
				}
				if subAnchored && s.Min > 0 && !s.Group.IsNegativeLookaround() {
					altAnchored = true
				}
			}
		}
		allAnchored = allAnchored && altAnchored
	}
	// A conditional with a single branch has an implied empty "no"
	// alternative, which is not anchored.
	if (g.Kind == GroupConditional || g.Kind == GroupLookaroundConditional) && len(g.Alts) == 1 {
		allAnchored = false
	}
	return allAnchored, nil
}

// maybeWrap wraps a quantified lookaround or atomic group in a
// non-capturing group carrying the quantifier, so the matcher's lookaround
// and atomic code is never confronted with one. Returns the symbol now
// occupying the slot.
func (f *finisher) maybeWrap(alt *Alternative, i int) *Symbol {
	s := alt.Symbols[i]
	g := s.Group
	needsWrap := (g.IsLookaround() && (s.Min != s.Max || s.Max > 1)) ||
		(g.Kind == GroupAtomic && s.Max > 1)
	if !needsWrap {
		return s
	}
	wrapper := newGroupSymbol(GroupNonCapturing)
	wrapper.Pos = s.Pos
	wrapper.Min = s.Min
	wrapper.Max = s.Max
	wrapper.Lazy = s.Lazy
	wrapper.Possessive = s.Possessive
	s.Min, s.Max = 1, 1
	s.Lazy = false
	s.Possessive = false

	inner := &Alternative{Symbols: []*Symbol{s}}
	wrapper.Group.Alts = []*Alternative{inner}
	wrapper.Parent = alt
	wrapper.Self = i
	s.Parent = inner
	s.Self = 0
	alt.Symbols[i] = wrapper
	return wrapper
}
