package bufferpool

import (
	"SuffixDB/errs"
	diskmanager "SuffixDB/storage_engine/disk_manager"
	"SuffixDB/storage_engine/page"
	"container/list"

	"go.uber.org/zap"
)

/*
This file is the main file of the bufferpool
The buffer pool works on LRU based caching mechanism among unpinned frames
and holds access to the disk manager for writing dirty pages back
if a page is not found in the cache, it is read through the disk manager,
verified, decoded by the codec and cached for future access

Pin/Unpin is the only synchronization the callers need: a pinned frame is never evicted.
*/

// NewBufferPool creates a new buffer pool with the given capacity
func NewBufferPool[T any](capacity int, store *diskmanager.DiskManager, codec PageCodec[T], logger *zap.Logger) *BufferPool[T] {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BufferPool[T]{
		frames:   make(map[int64]*Frame[T], capacity),
		lru:      list.New(),
		capacity: capacity,
		store:    store,
		codec:    codec,
		logger:   logger,
	}
}

// Pin returns the frame for pageID with its pin count incremented, loading
// and decoding the page on a miss.
func (bp *BufferPool[T]) Pin(pageID int64) (*Frame[T], error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if f, ok := bp.frames[pageID]; ok {
		bp.stats.hits++
		bp.pinLocked(f)
		return f, nil
	}

	bp.stats.misses++
	if err := bp.makeRoomLocked(); err != nil {
		return nil, err
	}

	buf, err := bp.store.ReadPage(pageID)
	if err != nil {
		return nil, err
	}
	h, err := page.Open(buf, bp.codec.PageType(), pageID)
	if err != nil {
		return nil, err
	}
	if h.Generation > bp.generation {
		bp.generation = h.Generation
	}
	value, err := bp.codec.Decode(pageID, page.Payload(buf))
	if err != nil {
		return nil, err
	}

	f := &Frame[T]{ID: pageID, Value: value}
	bp.frames[pageID] = f
	bp.pinLocked(f)
	return f, nil
}

// NewPage allocates a fresh page, builds its value with init and returns it
// pinned and dirty. Nothing is written until the frame is evicted or flushed.
func (bp *BufferPool[T]) NewPage(init func(pageID int64) T) (*Frame[T], error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if err := bp.makeRoomLocked(); err != nil {
		return nil, err
	}
	pageID, err := bp.store.AllocatePage()
	if err != nil {
		return nil, err
	}

	f := &Frame[T]{ID: pageID, Value: init(pageID), dirty: true}
	bp.frames[pageID] = f
	bp.pinLocked(f)
	return f, nil
}

// Unpin releases one pin. dirty=true records that the caller modified Value.
func (bp *BufferPool[T]) Unpin(f *Frame[T], dirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	cached, ok := bp.frames[f.ID]
	if !ok || cached != f {
		return errs.Mark(errs.ErrCorruption, "unpin of page %d which is not in the buffer pool", f.ID)
	}
	if f.pinCount <= 0 {
		return errs.Mark(errs.ErrCorruption, "unpin of page %d which is not pinned", f.ID)
	}

	if dirty {
		f.dirty = true
	}
	f.pinCount--
	if f.pinCount == 0 {
		f.elem = bp.lru.PushBack(f)
	}
	return nil
}

// FlushAll writes every dirty frame back through the disk manager.
// Frames stay cached.
func (bp *BufferPool[T]) FlushAll() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	flushed := 0
	for _, f := range bp.frames {
		if !f.dirty {
			continue
		}
		if err := bp.writeBackLocked(f); err != nil {
			return err
		}
		flushed++
	}
	bp.logger.Debug("buffer pool flushed", zap.Int("pages", flushed), zap.Int("resident", len(bp.frames)))
	return nil
}

func (bp *BufferPool[T]) pinLocked(f *Frame[T]) {
	if f.elem != nil {
		bp.lru.Remove(f.elem)
		f.elem = nil
	}
	f.pinCount++
}

// makeRoomLocked evicts the least recently used unpinned frame when the pool
// is full.
func (bp *BufferPool[T]) makeRoomLocked() error {
	if len(bp.frames) < bp.capacity {
		return nil
	}

	front := bp.lru.Front()
	if front == nil {
		return errs.Mark(errs.ErrPoolExhausted, "all %d frames are pinned", bp.capacity)
	}
	victim := front.Value.(*Frame[T])

	if victim.dirty {
		if err := bp.writeBackLocked(victim); err != nil {
			return err
		}
	}
	bp.lru.Remove(front)
	victim.elem = nil
	delete(bp.frames, victim.ID)
	bp.stats.evictions++
	bp.logger.Debug("evict", zap.Int64("page", victim.ID))
	return nil
}

func (bp *BufferPool[T]) writeBackLocked(f *Frame[T]) error {
	buf := make([]byte, bp.store.PageSize())
	if err := bp.codec.Encode(f.Value, page.Payload(buf)); err != nil {
		return err
	}
	bp.generation++
	page.Seal(buf, bp.codec.PageType(), f.ID, bp.generation)
	if err := bp.store.WritePage(f.ID, buf); err != nil {
		return err
	}
	f.dirty = false
	bp.stats.writeBacks++
	return nil
}
