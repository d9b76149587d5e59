package suffixtree

import (
	"SuffixDB/errs"
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// anySlot disables the own-sequence filter of nodeInfo.other.
const anySlot uint32 = math.MaxUint32

// locate walks pattern down from the root. It returns the node at or below
// the end of the match, or 0 when the pattern does not occur.
func (t *Tree) locate(pattern []uint16) (int64, error) {
	node := t.meta.root
	for i := 0; i < len(pattern); {
		child, err := t.child(node, pattern[i])
		if err != nil || child == 0 {
			return 0, err
		}
		edge, err := t.info(child, anySlot)
		if err != nil {
			return 0, err
		}
		for off := edge.start; off <= edge.end && i < len(pattern); off++ {
			c, err := t.symbols.At(off)
			if err != nil {
				return 0, err
			}
			if c != pattern[i] {
				return 0, nil
			}
			i++
		}
		node = child
	}
	return node, nil
}

// leaves enumerates the leaves below id with an explicit stack. Subtrees for
// which keep reports false are pruned; keep may be nil.
func (t *Tree) leaves(id int64, keep func(n *Node) bool, fn func(slot, suffix uint32) error) error {
	stack := []int64{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var kids []int64
		err := t.view(cur, func(n *Node) error {
			if keep != nil && !keep(n) {
				return nil
			}
			if n.isLeaf() {
				return fn(n.slot, n.suffix)
			}
			for _, c := range n.children {
				if c != 0 {
					kids = append(kids, c)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		stack = append(stack, kids...)
	}
	return nil
}

func sortMatches(ms []Match) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].SequenceID != ms[j].SequenceID {
			return ms[i].SequenceID < ms[j].SequenceID
		}
		return ms[i].Position < ms[j].Position
	})
}

// Exact returns every occurrence of pattern ordered by sequence id, then
// position. An empty pattern or one with bytes outside the alphabet has no
// occurrences.
func (t *Tree) Exact(pattern []byte) ([]Match, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.exact(pattern)
}

func (t *Tree) exact(pattern []byte) ([]Match, error) {
	if err := t.checkReadable(); err != nil {
		return nil, err
	}
	codes, _, ok := t.alpha.encode(pattern)
	if !ok || len(codes) == 0 {
		return []Match{}, nil
	}
	locus, err := t.locate(codes)
	if err != nil {
		return nil, err
	}
	out := []Match{}
	if locus == 0 {
		return out, nil
	}

	err = t.leaves(locus, nil, func(slot, suffix uint32) error {
		out = append(out, Match{SequenceID: t.meta.sequences[slot].ID, Position: suffix})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortMatches(out)
	return out, nil
}

// Count returns the number of occurrences of pattern from the locus's leaf
// count, without enumerating them.
func (t *Tree) Count(pattern []byte) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkReadable(); err != nil {
		return 0, err
	}
	codes, _, ok := t.alpha.encode(pattern)
	if !ok || len(codes) == 0 {
		return 0, nil
	}
	locus, err := t.locate(codes)
	if err != nil || locus == 0 {
		return 0, err
	}
	n, err := t.info(locus, anySlot)
	return n.leaves, err
}

// ExactBatch runs Exact for every pattern on up to workers goroutines sharing
// the buffer pool. results[i] belongs to patterns[i].
func (t *Tree) ExactBatch(ctx context.Context, patterns [][]byte, workers int) ([][]Match, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkReadable(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	results := make([][]Match, len(patterns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range patterns {
		i, p := i, p
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ms, err := t.exact(p)
			if err != nil {
				return errs.Wrapf(err, "pattern %d", i)
			}
			results[i] = ms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
