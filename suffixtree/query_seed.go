package suffixtree

import (
	"SuffixDB/errs"
	"sort"
)

// Anchor is a maximal exact match between a stretch of one sequence and the
// other indexed sequences.
type Anchor struct {
	Position uint32  // start in the query sequence
	Length   uint32  // longest prefix of the suffix found in another sequence
	Matches  []Match // where it occurs in other sequences
}

// Seed is an ungapped alignment of the query at QueryPosition against a
// target sequence, with at most the requested number of substitutions.
type Seed struct {
	SequenceID    uint32
	Position      uint32
	QueryPosition uint32
	Length        uint32
	Mismatches    int
}

/*
msWalker computes matching statistics of one indexed sequence against all
others: for position p, the longest prefix of its suffix that occurs in a
different sequence. Only children whose mask holds another sequence are
followed.

Moving from p to p+1 drops the first matched symbol: the walker follows the
suffix link of the deepest matched node and rescans the rest of the match
with skip/count, comparing only the first symbol of each edge.
*/
type msWalker struct {
	t      *Tree
	seq    SequenceInfo
	root   nodeInfo
	node   nodeInfo // deepest node whose whole path label is matched
	edge   nodeInfo // edge below node holding the partial match, id 0 if none
	k      uint32   // symbols matched along edge
	length uint32   // node.depth + k
}

func (t *Tree) newWalker(seq SequenceInfo) (*msWalker, error) {
	root, err := t.info(t.meta.root, seq.Slot)
	if err != nil {
		return nil, err
	}
	return &msWalker{t: t, seq: seq, root: root, node: root}, nil
}

func (w *msWalker) q(p uint32) (uint16, error) {
	return w.t.symbols.At(w.seq.Base + p)
}

// extend grows the match at position p as far as other sequences allow. The
// sequence's own sentinel never matches, so the walk stops inside it.
func (w *msWalker) extend(p uint32) error {
	for p+w.length < w.seq.Length {
		sym, err := w.q(p + w.length)
		if err != nil {
			return err
		}
		if w.k == 0 {
			cid, err := w.t.child(w.node.id, sym)
			if err != nil || cid == 0 {
				return err
			}
			c, err := w.t.info(cid, w.seq.Slot)
			if err != nil {
				return err
			}
			if !c.other {
				return nil
			}
			w.edge = c
		}
		label, err := w.t.symbols.At(w.edge.start + w.k)
		if err != nil {
			return err
		}
		if label != sym {
			return nil
		}
		w.k++
		w.length++
		if w.k == w.edge.edgeLen() {
			w.node, w.edge, w.k = w.edge, nodeInfo{}, 0
		}
	}
	return nil
}

// advance moves the match found at p to position p+1.
func (w *msWalker) advance(p uint32) error {
	if w.length == 0 {
		return nil
	}
	target := w.length - 1

	start := w.root
	if w.node.kind != NodeRoot {
		if w.node.link == 0 {
			return errs.Corruption("internal node %d has no suffix link", w.node.id)
		}
		link, err := w.t.info(w.node.link, w.seq.Slot)
		if err != nil {
			return err
		}
		start = link
	}

	w.node, w.edge, w.k, w.length = start, nodeInfo{}, 0, start.depth
	for w.length < target {
		sym, err := w.q(p + 1 + w.length)
		if err != nil {
			return err
		}
		cid, err := w.t.child(w.node.id, sym)
		if err != nil {
			return err
		}
		if cid == 0 {
			return errs.Corruption("rescan from node %d found no edge for code %d", w.node.id, sym)
		}
		c, err := w.t.info(cid, w.seq.Slot)
		if err != nil {
			return err
		}
		if w.length+c.edgeLen() <= target {
			if c.kind == NodeLeaf {
				return errs.Corruption("rescan ran through leaf %d", c.id)
			}
			w.node = c
			w.length += c.edgeLen()
			continue
		}
		w.edge, w.k, w.length = c, target-w.length, target
	}
	return nil
}

// locus is the node whose subtree holds every occurrence of the current match.
func (w *msWalker) locus() int64 {
	if w.k > 0 {
		return w.edge.id
	}
	return w.node.id
}

// otherMatches lists occurrences of the current match outside the walker's
// own sequence.
func (w *msWalker) otherMatches() ([]Match, error) {
	var out []Match
	if w.length == 0 {
		return out, nil
	}
	own := w.seq.Slot
	err := w.t.leaves(w.locus(), func(n *Node) bool { return n.hasOtherSlot(own) }, func(slot, suffix uint32) error {
		out = append(out, Match{SequenceID: w.t.meta.sequences[slot].ID, Position: suffix})
		return nil
	})
	sortMatches(out)
	return out, err
}

// Anchors returns the maximal exact matches of sequence seqID against every
// other sequence: each position whose match is at least minLength long and
// is not contained in the match of the previous position.
func (t *Tree) Anchors(seqID uint32, minLength uint32) ([]Anchor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkReadable(); err != nil {
		return nil, err
	}
	seq, err := t.sequence(seqID)
	if err != nil {
		return nil, err
	}
	minLength = max(minLength, 1)

	w, err := t.newWalker(seq)
	if err != nil {
		return nil, err
	}
	out := []Anchor{}
	var prev uint32
	for p := uint32(0); p+1 < seq.Length; p++ {
		if p > 0 {
			if err := w.advance(p - 1); err != nil {
				return nil, err
			}
		}
		if err := w.extend(p); err != nil {
			return nil, err
		}
		if w.length >= minLength && (p == 0 || prev <= w.length) {
			matches, err := w.otherMatches()
			if err != nil {
				return nil, err
			}
			out = append(out, Anchor{Position: p, Length: w.length, Matches: matches})
		}
		prev = w.length
	}
	return out, nil
}

// SeedExtend finds candidate alignments of sequence seqID starting at
// position. The exact anchor at position gives the first diagonals; while the
// mismatch budget lasts, the anchor resuming one symbol after the previous
// anchor's mismatch adds more. Every diagonal is then extended forward
// allowing maxMismatches substitutions. Seeds are ordered by length, longest
// first, then by sequence id and position.
func (t *Tree) SeedExtend(seqID uint32, position uint32, maxMismatches int) ([]Seed, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkReadable(); err != nil {
		return nil, err
	}
	seq, err := t.sequence(seqID)
	if err != nil {
		return nil, err
	}
	maxMismatches = max(maxMismatches, 0)
	last := seq.Length - 1 // sentinel position
	if position >= last {
		return []Seed{}, nil
	}

	type diagonal struct{ slot, start uint32 }
	var diagonals []diagonal
	seen := make(map[diagonal]struct{})

	w, err := t.newWalker(seq)
	if err != nil {
		return nil, err
	}
	cur := position
	if err := w.extend(cur); err != nil {
		return nil, err
	}
	for anchor := 0; ; anchor++ {
		shift := cur - position
		matches, err := w.otherMatches()
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if m.Position < shift {
				continue
			}
			d := diagonal{slot: t.bySeqID[m.SequenceID], start: m.Position - shift}
			if _, dup := seen[d]; !dup {
				seen[d] = struct{}{}
				diagonals = append(diagonals, d)
			}
		}

		if anchor == maxMismatches {
			break
		}
		next := cur + w.length + 1
		if next >= last {
			break
		}
		for cur < next {
			if err := w.advance(cur); err != nil {
				return nil, err
			}
			cur++
			if err := w.extend(cur); err != nil {
				return nil, err
			}
		}
	}

	out := []Seed{}
	for _, d := range diagonals {
		target := t.meta.sequences[d.slot]
		length, mismatches, err := t.extendDiagonal(seq, target, position, d.start, maxMismatches)
		if err != nil {
			return nil, err
		}
		if length == 0 {
			continue
		}
		out = append(out, Seed{
			SequenceID:    target.ID,
			Position:      d.start,
			QueryPosition: position,
			Length:        length,
			Mismatches:    mismatches,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Length != out[j].Length {
			return out[i].Length > out[j].Length
		}
		if out[i].SequenceID != out[j].SequenceID {
			return out[i].SequenceID < out[j].SequenceID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// extendDiagonal compares query[qpos:] with target[tpos:] until the budget of
// substitutions would be exceeded or either sequence ends. The seed ends at
// its last matching symbol.
func (t *Tree) extendDiagonal(query, target SequenceInfo, qpos, tpos uint32, budget int) (length uint32, mismatches int, err error) {
	used := 0
	for j := uint32(0); qpos+j+1 < query.Length && tpos+j+1 < target.Length; j++ {
		a, err := t.symbols.At(query.Base + qpos + j)
		if err != nil {
			return 0, 0, err
		}
		b, err := t.symbols.At(target.Base + tpos + j)
		if err != nil {
			return 0, 0, err
		}
		if a != b {
			if used == budget {
				break
			}
			used++
			continue
		}
		length, mismatches = j+1, used
	}
	return length, mismatches, nil
}
