package bufferpool

import (
	diskmanager "SuffixDB/storage_engine/disk_manager"
	"SuffixDB/types"
	"container/list"
	"sync"

	"go.uber.org/zap"
)

// ############################################# BUFFER POOL #############################################

// PageCodec maps a decoded value to and from a page payload. The pool seals
// and verifies the page header itself, codecs only ever see the payload.
type PageCodec[T any] interface {
	PageType() types.PageType
	Encode(v T, payload []byte) error
	Decode(pageID int64, payload []byte) (T, error)
}

// Frame is one cached page. Value may be read and mutated only while the
// frame is pinned.
type Frame[T any] struct {
	ID    int64
	Value T

	pinCount int32
	dirty    bool
	elem     *list.Element // position in the LRU list, nil while pinned
}

// BufferPool caches decoded pages with LRU eviction among unpinned frames and
// writes dirty frames back through the disk manager
type BufferPool[T any] struct {
	frames     map[int64]*Frame[T] // pageID -> frame
	lru        *list.List          // unpinned frames, least recently used at the front
	capacity   int
	store      *diskmanager.DiskManager
	codec      PageCodec[T]
	generation uint64
	stats      counters
	logger     *zap.Logger
	mu         sync.Mutex
}

type counters struct {
	hits       uint64
	misses     uint64
	evictions  uint64
	writeBacks uint64
}

// Stats returns buffer pool statistics
type BufferPoolStats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	WriteBacks  uint64
}

func (s BufferPoolStats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}
