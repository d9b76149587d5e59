package suffixtree

import (
	"SuffixDB/errs"
	"SuffixDB/storage_engine/page"
	"SuffixDB/types"
	"encoding/binary"
)

/*
Node page payload, little-endian, fixed size for a given configuration:

	offset  size
	0       1     kind
	1       3     reserved
	4       4     start
	8       4     end (OpenEnd while the leaf is open)
	12      4     depth
	16      4     slot (leaf)
	20      4     suffix (leaf)
	24      8     suffix link
	32      8     leaf count
	40      8*W   sequence mask, W = ceil(maxSequences/64)
	40+8W   8*S   child ids, S = alphabet size + maxSequences
*/

const nodeFixed = 40

// nodeCodec implements bufferpool.PageCodec[*Node] for one tree configuration.
type nodeCodec struct {
	slots     int
	maskWords int
	maxSlot   uint32
}

func newNodeCodec(alphabetSize, maxSequences int) *nodeCodec {
	return &nodeCodec{
		slots:     alphabetSize + maxSequences,
		maskWords: (maxSequences + 63) / 64,
		maxSlot:   uint32(maxSequences),
	}
}

// Size is the encoded length of one node.
func (c *nodeCodec) Size() int {
	return nodeFixed + 8*c.maskWords + 8*c.slots
}

// fits reports whether a node fits one page payload.
func (c *nodeCodec) fits(pageSize int) error {
	if need, have := c.Size(), page.PayloadSize(pageSize); need > have {
		return errs.Mark(errs.ErrCapacityExceeded,
			"node of %d child slots needs %d bytes, page payload holds %d", c.slots, need, have)
	}
	return nil
}

func (c *nodeCodec) PageType() types.PageType {
	return types.PageTypeNode
}

func (c *nodeCodec) newNode(id int64, kind NodeKind) *Node {
	return &Node{
		id:       id,
		kind:     kind,
		mask:     make([]uint64, c.maskWords),
		children: make([]int64, c.slots),
	}
}

func (c *nodeCodec) Encode(n *Node, payload []byte) error {
	if len(payload) < c.Size() {
		return errs.Mark(errs.ErrCapacityExceeded, "node %d needs %d bytes, payload is %d", n.id, c.Size(), len(payload))
	}
	if len(n.children) != c.slots || len(n.mask) != c.maskWords {
		return errs.Corruption("node %d has %d child slots and %d mask words, want %d and %d",
			n.id, len(n.children), len(n.mask), c.slots, c.maskWords)
	}

	payload[0] = byte(n.kind)
	payload[1], payload[2], payload[3] = 0, 0, 0
	binary.LittleEndian.PutUint32(payload[4:], n.start)
	binary.LittleEndian.PutUint32(payload[8:], n.end)
	binary.LittleEndian.PutUint32(payload[12:], n.depth)
	binary.LittleEndian.PutUint32(payload[16:], n.slot)
	binary.LittleEndian.PutUint32(payload[20:], n.suffix)
	binary.LittleEndian.PutUint64(payload[24:], uint64(n.suffixLink))
	binary.LittleEndian.PutUint64(payload[32:], n.leaves)

	off := nodeFixed
	for _, w := range n.mask {
		binary.LittleEndian.PutUint64(payload[off:], w)
		off += 8
	}
	for _, child := range n.children {
		binary.LittleEndian.PutUint64(payload[off:], uint64(child))
		off += 8
	}
	return nil
}

func (c *nodeCodec) Decode(pageID int64, payload []byte) (*Node, error) {
	if len(payload) < c.Size() {
		return nil, errs.Corruption("node page %d payload is %d bytes, want %d", pageID, len(payload), c.Size())
	}

	kind := NodeKind(payload[0])
	if kind != NodeRoot && kind != NodeInternal && kind != NodeLeaf {
		return nil, errs.Corruption("node page %d has unknown kind %d", pageID, payload[0])
	}

	n := c.newNode(pageID, kind)
	n.start = binary.LittleEndian.Uint32(payload[4:])
	n.end = binary.LittleEndian.Uint32(payload[8:])
	n.depth = binary.LittleEndian.Uint32(payload[12:])
	n.slot = binary.LittleEndian.Uint32(payload[16:])
	n.suffix = binary.LittleEndian.Uint32(payload[20:])
	n.suffixLink = int64(binary.LittleEndian.Uint64(payload[24:]))
	n.leaves = binary.LittleEndian.Uint64(payload[32:])

	if kind != NodeRoot && n.end != OpenEnd && n.end < n.start {
		return nil, errs.Corruption("node page %d has edge end %d before start %d", pageID, n.end, n.start)
	}
	if n.suffixLink < 0 || n.suffixLink == pageID {
		return nil, errs.Corruption("node page %d has impossible suffix link %d", pageID, n.suffixLink)
	}
	if kind == NodeLeaf && n.slot >= c.maxSlot {
		return nil, errs.Corruption("leaf page %d claims sequence slot %d of %d", pageID, n.slot, c.maxSlot)
	}

	off := nodeFixed
	for i := range n.mask {
		n.mask[i] = binary.LittleEndian.Uint64(payload[off:])
		off += 8
	}
	for i := range n.children {
		child := int64(binary.LittleEndian.Uint64(payload[off:]))
		off += 8
		if child == 0 {
			continue
		}
		if kind == NodeLeaf {
			return nil, errs.Corruption("leaf page %d has a child in slot %d", pageID, i)
		}
		if child < 0 || child == pageID {
			return nil, errs.Corruption("node page %d slot %d references impossible page %d", pageID, i, child)
		}
		n.children[i] = child
	}
	return n, nil
}
