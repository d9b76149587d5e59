package suffixtree

import (
	"SuffixDB/errs"
	"SuffixDB/storage_engine/bufferpool"
)

// Node access goes through the buffer pool. A *Node is only valid inside the
// callback; nothing may keep it after the frame is unpinned.

// view pins id, passes the node to fn and unpins it clean.
func (t *Tree) view(id int64, fn func(n *Node) error) error {
	f, err := t.pool.Pin(id)
	if err != nil {
		return err
	}
	ferr := fn(f.Value)
	if err := t.pool.Unpin(f, false); err != nil {
		return err
	}
	return ferr
}

// update pins id, lets fn mutate the node and unpins it dirty.
func (t *Tree) update(id int64, fn func(n *Node) error) error {
	f, err := t.pool.Pin(id)
	if err != nil {
		return err
	}
	ferr := fn(f.Value)
	if err := t.pool.Unpin(f, true); err != nil {
		return err
	}
	return ferr
}

// create allocates a node page, lets fn initialise it and returns its id.
func (t *Tree) create(kind NodeKind, fn func(n *Node)) (int64, error) {
	f, err := t.pool.NewPage(func(id int64) *Node {
		return t.codec.newNode(id, kind)
	})
	if err != nil {
		return 0, err
	}
	if fn != nil {
		fn(f.Value)
	}
	t.meta.nodeCount++
	if kind == NodeLeaf {
		t.meta.leafCount++
	}
	return f.ID, t.pool.Unpin(f, true)
}

// nodeInfo is a copy of the node fields the query engine walks on.
type nodeInfo struct {
	id     int64
	kind   NodeKind
	start  uint32
	end    uint32
	depth  uint32
	link   int64
	slot   uint32
	suffix uint32
	leaves uint64
	other  bool // some sequence other than the walker's own has a leaf below
}

func (n nodeInfo) edgeLen() uint32 {
	return n.end - n.start + 1
}

func (t *Tree) info(id int64, own uint32) (nodeInfo, error) {
	var ni nodeInfo
	err := t.view(id, func(n *Node) error {
		ni = nodeInfo{
			id:     n.id,
			kind:   n.kind,
			start:  n.start,
			end:    n.end,
			depth:  n.depth,
			link:   n.suffixLink,
			slot:   n.slot,
			suffix: n.suffix,
			leaves: n.leaves,
			other:  n.hasOtherSlot(own),
		}
		return nil
	})
	return ni, err
}

func (t *Tree) child(id int64, code uint16) (int64, error) {
	var child int64
	err := t.view(id, func(n *Node) error {
		if int(code) >= len(n.children) {
			return errs.Corruption("symbol code %d outside %d child slots", code, len(n.children))
		}
		child = n.children[code]
		return nil
	})
	return child, err
}

var _ bufferpool.PageCodec[*Node] = (*nodeCodec)(nil)
