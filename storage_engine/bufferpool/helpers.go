package bufferpool

import (
	"SuffixDB/errs"
)

/*
This file holds helper functions for the bufferpool
*/

// GetStats returns current buffer pool statistics
func (bp *BufferPool[T]) GetStats() BufferPoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := BufferPoolStats{
		TotalPages: len(bp.frames),
		Capacity:   bp.capacity,
		Hits:       bp.stats.hits,
		Misses:     bp.stats.misses,
		Evictions:  bp.stats.evictions,
		WriteBacks: bp.stats.writeBacks,
	}
	for _, f := range bp.frames {
		if f.pinCount > 0 {
			stats.PinnedPages++
		}
		if f.dirty {
			stats.DirtyPages++
		}
	}
	return stats
}

// Reset writes back dirty frames and drops every cached frame.
// Fails if anything is still pinned.
func (bp *BufferPool[T]) Reset() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for id, f := range bp.frames {
		if f.pinCount > 0 {
			return errs.Mark(errs.ErrPoolExhausted, "cannot reset: page %d is pinned", id)
		}
	}
	for _, f := range bp.frames {
		if f.dirty {
			if err := bp.writeBackLocked(f); err != nil {
				return err
			}
		}
	}

	bp.frames = make(map[int64]*Frame[T], bp.capacity)
	bp.lru.Init()
	return nil
}

// Size returns the current number of pages in the buffer pool
func (bp *BufferPool[T]) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.frames)
}

// Capacity returns the maximum capacity of the buffer pool
func (bp *BufferPool[T]) Capacity() int {
	return bp.capacity
}

// Contains reports whether pageID is resident without touching LRU order.
func (bp *BufferPool[T]) Contains(pageID int64) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	_, ok := bp.frames[pageID]
	return ok
}
