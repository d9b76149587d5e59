package suffixtree

import (
	"SuffixDB/errs"
	sequencestore "SuffixDB/storage_engine/sequence_store"
	"time"

	"go.uber.org/zap"
)

/*
Ukkonen construction over page-addressed nodes.

Every sequence gets its own pass with a fresh buildContext. The context owns the
open-edge boundary (end) instead of a process-wide global: leaves created in
the pass keep end == OpenEnd and read ctx.end as their edge end. When the
sentinel has been absorbed the remainder is zero, the active point is back at
the root, and every open leaf is rewritten with an explicit end.

Edge comparisons read the in-memory symbol store directly. Node reads and
writes go through the buffer pool one or two frames at a time.
*/

type buildContext struct {
	slot     uint32
	base     uint32 // global offset of the first symbol
	sentinel uint32 // global offset of the sentinel
	end      uint32 // last symbol absorbed so far

	activeNode   int64
	activeEdge   uint32 // global offset of the symbol choosing the active edge
	activeLength uint32
	remainder    uint32

	openLeaves []int64
}

type builder struct {
	t    *Tree
	text *sequencestore.Store
}

// insert adds one validated, already-appended sequence to the tree.
func (b *builder) insert(info SequenceInfo) error {
	started := time.Now()
	nodesBefore := b.t.meta.nodeCount

	ctx := &buildContext{
		slot:       info.Slot,
		base:       info.Base,
		sentinel:   info.Sentinel(),
		activeNode: b.t.meta.root,
		openLeaves: make([]int64, 0, info.Length),
	}
	b.t.logger.Debug("sequence insertion started",
		zap.Uint32("sequence", info.ID),
		zap.Uint32("slot", info.Slot),
		zap.Uint32("symbols", info.Length))

	for i := ctx.base; i <= ctx.sentinel; i++ {
		if err := b.extend(ctx, i); err != nil {
			return err
		}
	}
	if ctx.remainder != 0 || ctx.activeLength != 0 || ctx.activeNode != b.t.meta.root {
		return errs.Corruption("sequence %d ended with remainder %d at node %d", info.ID, ctx.remainder, ctx.activeNode)
	}
	if err := b.freeze(ctx); err != nil {
		return err
	}

	b.t.logger.Info("sequence inserted",
		zap.Uint32("sequence", info.ID),
		zap.Uint32("symbols", info.Length),
		zap.Uint64("nodes", b.t.meta.nodeCount-nodesBefore),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

// edgeEnd resolves an open leaf against the current pass.
func (ctx *buildContext) edgeEnd(n *Node) uint32 {
	if n.end == OpenEnd {
		return ctx.end
	}
	return n.end
}

func (ctx *buildContext) edgeLen(n *Node) uint32 {
	return ctx.edgeEnd(n) - n.start + 1
}

// extend runs one phase: absorbs the symbol at global offset i.
func (b *builder) extend(ctx *buildContext, i uint32) error {
	root := b.t.meta.root
	ctx.end = i // rule 1 for every open leaf of this pass
	ctx.remainder++
	sym := b.text.Code(i)
	var pendingLink int64

	for ctx.remainder > 0 {
		if ctx.activeLength == 0 {
			ctx.activeEdge = i
		}
		edgeSym := b.text.Code(ctx.activeEdge)

		var next int64
		var activeDepth uint32
		if err := b.t.view(ctx.activeNode, func(n *Node) error {
			next = n.children[edgeSym]
			activeDepth = n.depth
			return nil
		}); err != nil {
			return err
		}

		if next == 0 {
			// rule 2 at a node: hang a new leaf
			leaf, err := b.newLeaf(ctx, i, activeDepth)
			if err != nil {
				return err
			}
			if err := b.t.update(ctx.activeNode, func(n *Node) error {
				n.children[edgeSym] = leaf
				return nil
			}); err != nil {
				return err
			}
			if pendingLink != 0 {
				if err := b.setLink(pendingLink, ctx.activeNode); err != nil {
					return err
				}
				pendingLink = 0
			}
		} else {
			var edgeStart, edgeLen uint32
			if err := b.t.view(next, func(n *Node) error {
				edgeStart, edgeLen = n.start, ctx.edgeLen(n)
				return nil
			}); err != nil {
				return err
			}

			// skip/count down the active edge
			if ctx.activeLength >= edgeLen {
				ctx.activeEdge += edgeLen
				ctx.activeLength -= edgeLen
				ctx.activeNode = next
				continue
			}

			// rule 3: the symbol is already on the edge, the phase ends
			if b.text.Code(edgeStart+ctx.activeLength) == sym {
				if pendingLink != 0 && ctx.activeNode != root {
					if err := b.setLink(pendingLink, ctx.activeNode); err != nil {
						return err
					}
					pendingLink = 0
				}
				ctx.activeLength++
				break
			}

			// rule 2 inside an edge: split it
			split, err := b.split(ctx, next, edgeStart, activeDepth, i)
			if err != nil {
				return err
			}
			if err := b.t.update(ctx.activeNode, func(n *Node) error {
				n.children[edgeSym] = split
				return nil
			}); err != nil {
				return err
			}
			if pendingLink != 0 {
				if err := b.setLink(pendingLink, split); err != nil {
					return err
				}
			}
			pendingLink = split
		}

		ctx.remainder--
		if ctx.activeNode == root && ctx.activeLength > 0 {
			ctx.activeLength--
			ctx.activeEdge = i - ctx.remainder + 1
		} else if ctx.activeNode != root {
			var link int64
			if err := b.t.view(ctx.activeNode, func(n *Node) error {
				link = n.suffixLink
				return nil
			}); err != nil {
				return err
			}
			if link == 0 {
				link = root
			}
			ctx.activeNode = link
		}
	}
	return nil
}

// newLeaf creates the leaf for the suffix whose locus hangs at string depth
// parentDepth, with its edge starting at i.
func (b *builder) newLeaf(ctx *buildContext, i, parentDepth uint32) (int64, error) {
	suffixStart := i - parentDepth
	id, err := b.t.create(NodeLeaf, func(n *Node) {
		n.start = i
		n.end = OpenEnd
		n.slot = ctx.slot
		n.suffix = suffixStart - ctx.base
		n.depth = ctx.sentinel - suffixStart + 1
	})
	if err != nil {
		return 0, err
	}
	ctx.openLeaves = append(ctx.openLeaves, id)
	return id, nil
}

// split cuts the edge into child at the active point. The upper part becomes a
// new internal node holding the old child and a new leaf for symbol i.
func (b *builder) split(ctx *buildContext, child int64, edgeStart, activeDepth, i uint32) (int64, error) {
	splitDepth := activeDepth + ctx.activeLength
	split, err := b.t.create(NodeInternal, func(n *Node) {
		n.start = edgeStart
		n.end = edgeStart + ctx.activeLength - 1
		n.depth = splitDepth
		n.suffixLink = b.t.meta.root
	})
	if err != nil {
		return 0, err
	}

	lowerStart := edgeStart + ctx.activeLength
	if err := b.t.update(child, func(n *Node) error {
		n.start = lowerStart
		return nil
	}); err != nil {
		return 0, err
	}

	leaf, err := b.newLeaf(ctx, i, splitDepth)
	if err != nil {
		return 0, err
	}

	lowerSym := b.text.Code(lowerStart)
	err = b.t.update(split, func(n *Node) error {
		n.children[lowerSym] = child
		n.children[b.text.Code(i)] = leaf
		return nil
	})
	return split, err
}

func (b *builder) setLink(from, to int64) error {
	return b.t.update(from, func(n *Node) error {
		n.suffixLink = to
		return nil
	})
}

// freeze rewrites every open leaf of the pass with an explicit end at the
// sentinel offset.
func (b *builder) freeze(ctx *buildContext) error {
	for _, id := range ctx.openLeaves {
		if err := b.t.update(id, func(n *Node) error {
			if n.end != OpenEnd {
				return errs.Corruption("leaf %d was frozen twice", id)
			}
			n.end = ctx.sentinel
			return nil
		}); err != nil {
			return err
		}
	}
	ctx.openLeaves = nil
	return nil
}
