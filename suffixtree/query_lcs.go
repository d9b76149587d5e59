package suffixtree

import (
	"math"
)

// LCS is the longest common substring of two indexed sequences.
type LCS struct {
	Length    uint32
	Symbols   []byte
	PositionA uint32
	PositionB uint32
}

// LongestCommonSubstring finds the deepest internal node whose subtree holds
// leaves of both sequences. Among equally long candidates the one with the
// smallest position in a wins, then the smallest position in b. Sequences
// with nothing in common give a zero LCS.
func (t *Tree) LongestCommonSubstring(a, b uint32) (LCS, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkReadable(); err != nil {
		return LCS{}, err
	}
	sa, err := t.sequence(a)
	if err != nil {
		return LCS{}, err
	}
	sb, err := t.sequence(b)
	if err != nil {
		return LCS{}, err
	}
	if a == b {
		symbols, err := t.decode(sa.Base, sa.Sentinel())
		if err != nil {
			return LCS{}, err
		}
		return LCS{Length: sa.Length - 1, Symbols: symbols}, nil
	}

	both := func(n *Node) bool {
		return n.hasSlot(sa.Slot) && n.hasSlot(sb.Slot)
	}
	either := func(n *Node) bool {
		return n.hasSlot(sa.Slot) || n.hasSlot(sb.Slot)
	}

	var best uint32
	var candidates []int64
	stack := []int64{t.meta.root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		err := t.view(cur, func(n *Node) error {
			if n.isLeaf() || !both(n) {
				return nil
			}
			if n.kind == NodeInternal {
				switch {
				case n.depth > best:
					best = n.depth
					candidates = append(candidates[:0], n.id)
				case n.depth == best:
					candidates = append(candidates, n.id)
				}
			}
			for _, c := range n.children {
				if c != 0 {
					stack = append(stack, c)
				}
			}
			return nil
		})
		if err != nil {
			return LCS{}, err
		}
	}
	if best == 0 {
		return LCS{}, nil
	}

	res := LCS{Length: best, PositionA: math.MaxUint32, PositionB: math.MaxUint32}
	for _, id := range candidates {
		posA, posB := uint32(math.MaxUint32), uint32(math.MaxUint32)
		err := t.leaves(id, either, func(slot, suffix uint32) error {
			switch slot {
			case sa.Slot:
				posA = min(posA, suffix)
			case sb.Slot:
				posB = min(posB, suffix)
			}
			return nil
		})
		if err != nil {
			return LCS{}, err
		}
		if posA < res.PositionA || (posA == res.PositionA && posB < res.PositionB) {
			res.PositionA, res.PositionB = posA, posB
		}
	}

	res.Symbols, err = t.decode(sa.Base+res.PositionA, sa.Base+res.PositionA+best)
	if err != nil {
		return LCS{}, err
	}
	return res, nil
}
