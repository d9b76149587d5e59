// Structure of the disk-backed generalized suffix tree
/*
Tree
 ├── Root (no edge, depth 0)
 │      ├── Internal Node (edge label (start,end) into the symbol store, suffix link, depth)
 │      │      └── ... one child slot per symbol code
 │      └── Leaf (edge ends at its sequence's sentinel, sequence slot + suffix start)


- every node lives in its own page, node id == page id
- child tables are flat: alphabet codes first, then one sentinel code per sequence slot
- edge labels never copy symbols, they reference the shared symbol store
- leaves of the sequence under construction have end == OpenEnd and grow implicitly
- suffix links, child ids and the root are plain page ids resolved through the buffer pool

*/
package suffixtree

import (
	"SuffixDB/storage_engine/bufferpool"
	diskmanager "SuffixDB/storage_engine/disk_manager"
	sequencestore "SuffixDB/storage_engine/sequence_store"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NodeKind uint8

const (
	NodeRoot NodeKind = iota + 1
	NodeInternal
	NodeLeaf
)

func (k NodeKind) String() string {
	switch k {
	case NodeRoot:
		return "root"
	case NodeInternal:
		return "internal"
	case NodeLeaf:
		return "leaf"
	default:
		return "invalid"
	}
}

// OpenEnd marks a leaf edge that tracks the construction boundary of the
// sequence currently being inserted.
const OpenEnd uint32 = math.MaxUint32

type Node struct {
	id         int64
	kind       NodeKind
	start      uint32 // first symbol of the incoming edge (global offset)
	end        uint32 // last symbol of the incoming edge, inclusive, or OpenEnd
	suffixLink int64  // 0 until resolved, internal nodes only
	depth      uint32 // path-label length at the bottom of the edge
	slot       uint32 // leaf: sequence slot
	suffix     uint32 // leaf: suffix start position within its sequence
	leaves     uint64 // leaves in the subtree, set at finalization
	mask       []uint64
	children   []int64 // indexed by symbol code, 0 = empty
}

func (n *Node) ID() int64         { return n.id }
func (n *Node) Kind() NodeKind    { return n.kind }
func (n *Node) SuffixLink() int64 { return n.suffixLink }
func (n *Node) Depth() uint32     { return n.depth }

func (n *Node) isLeaf() bool {
	return n.kind == NodeLeaf
}

// hasSlot reports whether sequence slot s has a leaf below n.
func (n *Node) hasSlot(s uint32) bool {
	return n.mask[s/64]&(1<<(s%64)) != 0
}

// hasOtherSlot reports whether a sequence other than slot s has a leaf below n.
func (n *Node) hasOtherSlot(s uint32) bool {
	for i, w := range n.mask {
		if uint32(i) == s/64 {
			w &^= 1 << (s % 64)
		}
		if w != 0 {
			return true
		}
	}
	return false
}

// Sequence is one input to Build or Append. Symbols must be bytes of the
// configured alphabet; the sentinel is added by the tree.
type Sequence struct {
	ID      uint32
	Symbols []byte
}

// SequenceInfo is the persisted metadata of an indexed sequence.
type SequenceInfo struct {
	ID       uint32
	Slot     uint32
	Base     uint32 // global offset of the first symbol
	Length   uint32 // symbols including the sentinel
	Complete bool
}

// Sentinel is the global offset of the sequence's sentinel.
func (s SequenceInfo) Sentinel() uint32 {
	return s.Base + s.Length - 1
}

// Match is one occurrence: a suffix start position within a sequence.
type Match struct {
	SequenceID uint32
	Position   uint32
}

// treeMeta is everything persisted in the header page besides the page
// store's own fields.
type treeMeta struct {
	storeID      uuid.UUID
	alphabet     string
	maxSequences uint32
	maxOffset    uint32
	chunkSymbols uint32
	root         int64
	finalized    bool
	totalSymbols uint32
	nodeCount    uint64
	leafCount    uint64
	region       sequencestore.Region
	sequences    []SequenceInfo
}

type Tree struct {
	path    string
	opts    Options
	alpha   alphabet
	disk    *diskmanager.DiskManager
	pool    *bufferpool.BufferPool[*Node]
	codec   *nodeCodec
	meta    treeMeta
	bySeqID map[uint32]uint32 // sequence id -> slot

	symbols sequencestore.Source  // in-memory store while building, region reader once finalized
	reader  *sequencestore.Reader // nil while building

	logger *zap.Logger
	mu     sync.RWMutex
}
