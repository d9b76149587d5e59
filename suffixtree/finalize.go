package suffixtree

import (
	"SuffixDB/errs"
	sequencestore "SuffixDB/storage_engine/sequence_store"
	"time"

	"go.uber.org/zap"
)

// postFrame is one entry of the explicit post-order stack.
type postFrame struct {
	id       int64
	children []int64
	next     int
	mask     []uint64
	leaves   uint64
	nodes    uint64
}

// annotate computes every node's sequence mask and leaf count bottom-up with
// an explicit stack. It returns the number of nodes and leaves reached from
// the root.
func (t *Tree) annotate() (nodes, leaves uint64, err error) {
	words := t.codec.maskWords
	push := func(stack []*postFrame, id int64) ([]*postFrame, error) {
		fr := &postFrame{id: id, mask: make([]uint64, words)}
		err := t.view(id, func(n *Node) error {
			if n.isLeaf() {
				fr.mask[n.slot/64] |= 1 << (n.slot % 64)
				fr.leaves = 1
				return nil
			}
			for _, c := range n.children {
				if c != 0 {
					fr.children = append(fr.children, c)
				}
			}
			return nil
		})
		return append(stack, fr), err
	}

	stack, err := push(nil, t.meta.root)
	if err != nil {
		return 0, 0, err
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next < len(top.children) {
			child := top.children[top.next]
			top.next++
			if stack, err = push(stack, child); err != nil {
				return 0, 0, err
			}
			continue
		}

		stack = stack[:len(stack)-1]
		top.nodes++
		if err := t.update(top.id, func(n *Node) error {
			if n.end == OpenEnd {
				return errs.Corruption("node %d still has an open edge at finalization", n.id)
			}
			if !n.isLeaf() && n.kind != NodeRoot && len(top.children) < 2 {
				return errs.Corruption("internal node %d has %d children", n.id, len(top.children))
			}
			copy(n.mask, top.mask)
			n.leaves = top.leaves
			return nil
		}); err != nil {
			return 0, 0, err
		}

		if len(stack) == 0 {
			return top.nodes, top.leaves, nil
		}
		parent := stack[len(stack)-1]
		for i, w := range top.mask {
			parent.mask[i] |= w
		}
		parent.leaves += top.leaves
		parent.nodes += top.nodes
	}
	return 0, 0, nil
}

// finalize makes the tree queryable: annotates nodes, persists the symbol
// region and writes the header with finalized set.
func (t *Tree) finalize(text *sequencestore.Store) error {
	started := time.Now()

	nodes, leaves, err := t.annotate()
	if err != nil {
		return err
	}
	if nodes != t.meta.nodeCount {
		return errs.Corruption("reached %d nodes from the root, created %d", nodes, t.meta.nodeCount)
	}
	if want := uint64(text.Len()); leaves != want {
		return errs.Corruption("tree has %d leaves for %d symbols", leaves, want)
	}
	if err := t.pool.FlushAll(); err != nil {
		return err
	}

	if err := sequencestore.FreeRegion(t.disk, t.meta.region); err != nil {
		return err
	}
	region, err := sequencestore.WriteRegion(t.disk, text, int(t.meta.chunkSymbols))
	if err != nil {
		return err
	}
	t.meta.region = region
	t.meta.totalSymbols = text.Len()
	t.meta.finalized = true
	if err := t.writeMeta(); err != nil {
		return err
	}

	reader, err := sequencestore.OpenReader(t.disk, region, t.opts.ChunkCacheBytes, t.logger)
	if err != nil {
		return err
	}
	t.closeReader()
	t.reader = reader
	t.symbols = reader

	t.logger.Info("tree finalized",
		zap.Uint64("nodes", nodes),
		zap.Uint64("leaves", leaves),
		zap.Uint32("regionPages", region.Pages),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}
