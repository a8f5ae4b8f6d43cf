package matcher

import (
	"math/bits"

	"github.com/coregx/rxmath/syntax"
)

// The runtime optimizer runs at the start of each repetition, before the
// standard greedy/lazy loop. It inspects the tail of the current
// alternative (and, when the repetition ends its enclosing group, the
// group's own tail) for shapes that admit a closed-form repeat count:
//
//  1. an end-anchored tail: count = spaceLeft / multiple, the unique
//     solution;
//  2. a {1,1} backref followed by $: fail fast unless
//     (spaceLeft - capture) is divisible by the repetend length;
//  3. the last iteration of a capturing group followed by a fixed
//     self-backref: solve the division for the whole group span;
//  4. a lookahead whose body is constant-length items, optionally
//     terminated by $ or by an unbounded self-backref, which induces a
//     modular-residue solution (unary multiplication in O(N));
//  5. the recursive-anchor jump: when the lookahead's tail references a
//     deeper capture that itself ends in an anchored backref repetition,
//     jump the matcher straight into that subgroup at the computed
//     position.
//
// A computed count below minCount fails the match. A count above maxCount
// fails shape 1 and is clamped to maxCount in shapes 3 to 5. A count
// strictly inside pushes a choice point so the remaining span stays
// explorable.

// runtimeOptimize returns +1 when it consumed at least one repetend, -1
// when it matched zero repetends, -2 when it signalled a non-match, and 0
// when it does not handle the shape and the standard loop must run.
func (m *Matcher) runtimeOptimize(sym *syntax.Symbol, multiple uint64, rep repetend) int8 {
	if m.cfg.OptimizationLevel == 0 || sym.Possessive {
		return 0
	}

	// Skip assertions that consume nothing: synthetic predicates and
	// negative lookarounds.
	syms := m.alt.Symbols
	j := m.symIdx + 1
	for j < len(syms) {
		t := syms[j]
		if t.Kind == syntax.KindIsPrime || t.Kind == syntax.KindIsPowerOf2 ||
			(t.Kind == syntax.KindGroup && t.Group.IsNegativeLookaround()) {
			j++
			continue
		}
		break
	}
	var next *syntax.Symbol
	if j < len(syms) {
		next = syms[j]
	}

	// 1. End-anchored tail: the count has a unique solution.
	if next != nil && next.Kind == syntax.KindAnchorEnd {
		spaceLeft := m.input - m.position
		cm := spaceLeft / multiple
		if cm < uint64(sym.Min) || cm > maxExtend(sym.Max) {
			m.nonMatch(false)
			return -2
		}
		if !m.doesRepetendMatch(rep, multiple, cm) {
			m.nonMatch(false)
			return -2
		}
		matched := int8(-1)
		if cm != 0 {
			matched = 1
		}
		m.position = m.input - spaceLeft%multiple
		m.currentMatch = unset
		m.symIdx++
		return matched
	}

	// 2. Backref-subtract tail \k{1,1}$: fail fast on indivisibility, then
	// let the standard loop run.
	if next != nil && next.Kind == syntax.KindBackref && next.Min == 1 && next.Max == 1 &&
		j+1 < len(syms) && syms[j+1].Kind == syntax.KindAnchorEnd {
		sub := m.captures[next.Index]
		if sub == NonParticipating {
			if !m.cfg.Flags.EmulateECMANPCGs {
				m.nonMatch(false)
				return -2
			}
			sub = 0
		}
		spaceLeft := m.input - m.position
		if sub > spaceLeft || (spaceLeft-sub)%multiple != 0 {
			m.nonMatch(false)
			return -2
		}
	}

	thisGroupSym := m.frame().group
	afterEndOfGroup := false
	if next == nil {
		g := thisGroupSym.Group
		if m.gTop > 0 && m.altIdx == len(g.Alts)-1 &&
			(g.Kind == syntax.GroupCapturing || g.Kind == syntax.GroupNonCapturing) &&
			m.frame().loopCount == maxExtend(thisGroupSym.Max) &&
			thisGroupSym.Parent != nil && thisGroupSym.Self+1 < len(thisGroupSym.Parent.Symbols) {
			next = thisGroupSym.Parent.Symbols[thisGroupSym.Self+1]
			afterEndOfGroup = true
		}
	}
	if next == nil {
		return 0
	}

	if next.Kind != syntax.KindGroup {
		if afterEndOfGroup {
			return m.optimizeSelfBackrefAfterGroup(sym, multiple, rep, thisGroupSym, next)
		}
		return 0
	}
	return m.optimizeLookaheadTail(sym, multiple, rep, thisGroupSym, next, afterEndOfGroup)
}

// optimizeSelfBackrefAfterGroup handles shape 3: the repetition is the
// last iteration of its capturing group G and G is immediately followed by
// \G{n,n}, so the whole span divides by 1+n (plus any further fixed
// self-backref inside a following lookahead).
func (m *Matcher) optimizeSelfBackrefAfterGroup(sym *syntax.Symbol, multiple uint64, rep repetend, thisGroupSym, next *syntax.Symbol) int8 {
	tg := thisGroupSym.Group
	if next.Kind != syntax.KindBackref || tg.Kind != syntax.GroupCapturing ||
		next.Index != tg.BackrefIndex ||
		m.cfg.OptimizationLevel < 2 || sym.Lazy || next.Min != next.Max {
		return 0
	}
	divisor := 1 + uint64(next.Min)

	var after *syntax.Symbol
	parent := thisGroupSym.Parent
	if thisGroupSym.Self+2 < len(parent.Symbols) {
		after = parent.Symbols[thisGroupSym.Self+2]
	}
	if after != nil && after.Kind == syntax.KindGroup {
		ag := after.Group
		if ag.Kind != syntax.GroupNegativeLookahead && len(ag.Alts) == 1 &&
			after.Min == 1 && after.Max == 1 {
			la := ag.Alts[0].Symbols
			if len(la) > 0 && la[0].Kind == syntax.KindBackref &&
				la[0].Index == tg.BackrefIndex && la[0].Min == la[0].Max {
				divisor += uint64(la[0].Min)
				if len(la) > 1 {
					after = la[1]
				} else {
					after = nil
				}
			}
		}
	}

	f := m.frame()
	alreadyCaptured := m.position - f.position
	spaceLeft := m.input - m.position
	cm := (alreadyCaptured + spaceLeft) / divisor
	if cm < alreadyCaptured {
		m.nonMatch(false)
		return -2
	}
	cm = (cm - alreadyCaptured) / multiple
	if cm < uint64(sym.Min) {
		m.nonMatch(false)
		return -2
	}
	if cm > maxExtend(sym.Max) {
		cm = maxExtend(sym.Max)
	}
	m.currentMatch = cm
	if after != nil && after.Kind == syntax.KindAnchorEnd {
		if !m.doesRepetendMatch(rep, multiple, cm) {
			m.nonMatch(false)
			return -2
		}
	} else {
		if rep.kind != repNone {
			m.countRepetendMatches(rep, multiple)
			if m.currentMatch < uint64(sym.Min) {
				m.nonMatch(false)
				return -2
			}
			cm = m.currentMatch
		}
		m.pushTryMatch(sym)
	}
	matched := int8(-1)
	if cm != 0 {
		matched = 1
	}
	m.position += cm * multiple
	m.currentMatch = unset
	m.symIdx++
	return matched
}

// optimizeLookaheadTail handles shapes 4 and 5: the symbol after the
// repetition (or after its enclosing group's last iteration) is a
// lookahead whose body admits length arithmetic.
func (m *Matcher) optimizeLookaheadTail(sym *syntax.Symbol, multiple uint64, rep repetend, thisGroupSym, laGroupSym *syntax.Symbol, afterEndOfGroup bool) int8 {
	lg := laGroupSym.Group
	if lg.Kind != syntax.GroupLookahead || len(lg.Alts) != 1 || laGroupSym.Min == 0 {
		return 0
	}
	la := lg.Alts[0].Symbols
	if len(la) == 0 {
		return 0
	}
	tg := thisGroupSym.Group

	var totalLength, multiplication uint64
	var mulBackref *syntax.Symbol
	cannotMatch := false
	laIdx := 0
	doOpt := false

	for {
		cur := la[laIdx]
		switch {
		case cur.Kind == syntax.KindBackref:
			if afterEndOfGroup && tg.Kind == syntax.GroupCapturing && cur.Index == tg.BackrefIndex {
				if cur.Min != cur.Max {
					return 0
				}
				if laIdx == 0 && m.cfg.OptimizationLevel >= 2 {
					if laIdx+1 < len(la) {
						if la[laIdx+1].Kind == syntax.KindAnchorEnd {
							return m.optimizeSelfBackrefInLookahead(sym, multiple, rep, cur, true)
						}
					} else if !sym.Lazy {
						return m.optimizeSelfBackrefInLookahead(sym, multiple, rep, cur, false)
					}
				}
				return 0
			}
			length := m.captures[cur.Index]
			if length != NonParticipating {
				totalLength += length * uint64(cur.Min)
				if cur.Min != cur.Max {
					if cur.Max == syntax.Unbounded && laIdx+1 < len(la) &&
						la[laIdx+1].Kind == syntax.KindAnchorEnd && m.cfg.OptimizationLevel >= 2 {
						multiplication = length
						mulBackref = cur
						doOpt = true
					}
					if !doOpt {
						return 0
					}
				}
			} else if cur.Min != 0 && !m.cfg.Flags.EmulateECMANPCGs {
				cannotMatch = true
			}
		case cur.Kind == syntax.KindCharacter && cur.Min == cur.Max:
			totalLength += uint64(cur.Min)
		default:
			return 0
		}
		if doOpt {
			break
		}
		laIdx++
		if laIdx >= len(la) {
			if sym.Lazy {
				return 0
			}
			doOpt = true
			break
		}
		if la[laIdx].Kind == syntax.KindAnchorEnd {
			doOpt = true
			break
		}
	}

	if totalLength > m.input || cannotMatch {
		m.nonMatch(false)
		return -2
	}
	target := m.input - totalLength
	if m.position > target {
		m.nonMatch(false)
		return -2
	}
	spaceLeft := target - m.position

	// anchored: the computed count is the unique solution and only needs
	// verification; otherwise a choice point is pushed.
	anchored := multiplication != 0 || laIdx < len(la)

	var mulGroupSym *syntax.Symbol
	mulAnchorIdx := 0
	var totalLengthSmallerFactor uint64

	if multiplication != 0 {
		var afterLA *syntax.Symbol
		if laGroupSym.Parent != nil && laGroupSym.Self+1 < len(laGroupSym.Parent.Symbols) {
			afterLA = laGroupSym.Parent.Symbols[laGroupSym.Self+1]
		}
		lazinessDoesntMatter := afterLA != nil && afterLA.Kind == syntax.KindBackref &&
			afterLA.Min == 0 && afterLA.Max == syntax.Unbounded && !afterLA.Lazy &&
			afterLA.Index == mulBackref.Index

		if m.str == nil && (lazinessDoesntMatter || (!sym.Lazy && sym.Max == syntax.Unbounded)) {
			target2 := afterLA
			if lazinessDoesntMatter {
				target2 = nil
				if laGroupSym.Self+2 < len(laGroupSym.Parent.Symbols) {
					target2 = laGroupSym.Parent.Symbols[laGroupSym.Self+2]
				}
			}
			if target2 != nil && target2.Kind == syntax.KindGroup && target2.Min == 1 && target2.Max == 1 {
				outsideGroupSym := thisGroupSym
				if afterEndOfGroup {
					outsideGroupSym = m.groupStack[m.gTop-1].group
				}
				og := outsideGroupSym.Group
				if og.Kind == syntax.GroupLookahead && len(og.Alts) == 1 {
					afterGroup := target2.Group
					afterSyms := afterGroup.Alts[0].Symbols
					for ai := 0; ai < len(afterSyms); ai++ {
						as := afterSyms[ai]
						if as.Kind == syntax.KindBackref {
							acap := m.captures[as.Index]
							if as.Min == as.Max {
								if acap != NonParticipating {
									totalLengthSmallerFactor += acap * uint64(as.Min)
								} else if as.Min != 0 && !m.cfg.Flags.EmulateECMANPCGs {
									break
								}
							} else if as.Min == 1 && as.Max == syntax.Unbounded &&
								ai+1 < len(afterSyms) && afterSyms[ai+1].Kind == syntax.KindAnchorEnd &&
								totalLengthSmallerFactor <= multiplication && acap+1 == multiplication {
								// Recursive anchor: the nested anchored
								// multiplication collapses into one jump.
								lazinessDoesntMatter = true
								mulGroupSym = target2
								mulAnchorIdx = ai + 1
								break
							} else {
								break
							}
						} else if as.Kind == syntax.KindCharacter && as.Min == as.Max {
							totalLengthSmallerFactor += uint64(as.Min)
						}
					}
				}
			}
		}
		if lazinessDoesntMatter || sym.Lazy {
			minMatch := uint64(sym.Min) * multiple
			if spaceLeft < minMatch {
				m.nonMatch(false)
				return -2
			}
			spaceLeft = (spaceLeft-minMatch)%multiplication + minMatch
		}
		if !lazinessDoesntMatter {
			anchored = false
		}
	}

	cm := spaceLeft / multiple
	remainder := spaceLeft % multiple
	if cm < uint64(sym.Min) {
		m.nonMatch(false)
		return -2
	}
	if cm > maxExtend(sym.Max) {
		cm = maxExtend(sym.Max)
	}
	m.currentMatch = cm
	if anchored {
		if !m.doesRepetendMatch(rep, multiple, cm) {
			m.nonMatch(false)
			return -2
		}
	} else {
		if rep.kind != repNone {
			m.countRepetendMatches(rep, multiple)
			if m.currentMatch < uint64(sym.Min) {
				m.nonMatch(false)
				return -2
			}
			cm = m.currentMatch
		}
		limit := uint64(sym.Min)
		if sym.Lazy {
			limit = maxExtend(sym.Max)
		}
		if cm != limit {
			m.pushTryMatch(sym)
		}
	}
	matched := int8(-1)
	if cm != 0 {
		matched = 1
	}
	m.position += cm * multiple
	m.currentMatch = unset
	m.symIdx++

	if mulGroupSym != nil && remainder == 0 {
		spaceLeft = m.input - m.position
		smaller := totalLengthSmallerFactor
		if smaller == 0 {
			smaller = multiplication - 1
		}
		hi, product := bits.Mul64(smaller, multiplication)
		if hi != 0 || product > m.input {
			m.nonMatch(false)
			return -2
		}
		m.position = m.input - product
		if afterEndOfGroup {
			if thisGroupSym.Lazy {
				m.leaveLazyGroup()
			} else {
				m.leaveMaxedOutGroup()
			}
		}
		if spaceLeft < product {
			m.nonMatch(false)
			return -2
		}
		m.enterGroup(mulGroupSym)
		m.symIdx = mulAnchorIdx
		m.position = m.input
	}
	return matched
}

// optimizeSelfBackrefInLookahead handles the lookahead whose body begins
// with a fixed backref to the enclosing capture: the whole group span
// divides by 1+n against the anchored (or greedy-maximal) target.
func (m *Matcher) optimizeSelfBackrefInLookahead(sym *syntax.Symbol, multiple uint64, rep repetend, selfRef *syntax.Symbol, anchoredTail bool) int8 {
	f := m.frame()
	spaceLeft := m.input - f.position
	cm := spaceLeft / (1 + uint64(selfRef.Min))
	already := m.position - f.position
	if cm < already {
		m.nonMatch(false)
		return -2
	}
	cm = (cm - already) / multiple
	if cm < uint64(sym.Min) {
		m.nonMatch(false)
		return -2
	}
	if cm > maxExtend(sym.Max) {
		cm = maxExtend(sym.Max)
	}
	m.currentMatch = cm
	if anchoredTail {
		if !m.doesRepetendMatch(rep, multiple, cm) {
			m.nonMatch(false)
			return -2
		}
	} else {
		if rep.kind != repNone {
			m.countRepetendMatches(rep, multiple)
			if m.currentMatch < uint64(sym.Min) {
				m.nonMatch(false)
				return -2
			}
			cm = m.currentMatch
		}
		m.pushTryMatch(sym)
	}
	matched := int8(-1)
	if cm != 0 {
		matched = 1
	}
	m.position += cm * multiple
	m.currentMatch = unset
	m.symIdx++
	return matched
}
