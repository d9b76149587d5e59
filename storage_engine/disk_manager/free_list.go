package diskmanager

import (
	"SuffixDB/errs"
	"SuffixDB/storage_engine/page"
	"SuffixDB/types"
	"encoding/binary"
	"sort"
)

/*
Free list region.

The list is stored in pages taken from the list itself, so persisting it never
grows the file. Each holder page is a sealed PageTypeFreeList page:

	next   int64   : next holder page, 0 ends the chain
	count  uint32
	ids    count × int64

On load every listed id and every holder page are free again.
*/

const freeListFixed = 12

func (dm *DiskManager) freeIDsPerPage() int {
	return (page.PayloadSize(dm.pageSize) - freeListFixed) / 8
}

// writeFreeList persists the in-memory list and returns the chain head.
// Caller holds dm.mu.
func (dm *DiskManager) writeFreeList() (int64, error) {
	if len(dm.free) == 0 {
		return 0, nil
	}

	ids := append([]int64(nil), dm.free...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	perPage := dm.freeIDsPerPage()
	holders := 1
	for holders*perPage < len(ids)-holders {
		holders++
	}
	holderIDs, entries := ids[:holders], ids[holders:]

	for i, holder := range holderIDs {
		buf := make([]byte, dm.pageSize)
		payload := page.Payload(buf)

		var next int64
		if i+1 < len(holderIDs) {
			next = holderIDs[i+1]
		}
		lo := i * perPage
		hi := min(lo+perPage, len(entries))
		if lo > hi {
			lo = hi
		}
		chunk := entries[lo:hi]

		binary.LittleEndian.PutUint64(payload[0:], uint64(next))
		binary.LittleEndian.PutUint32(payload[8:], uint32(len(chunk)))
		for j, id := range chunk {
			binary.LittleEndian.PutUint64(payload[freeListFixed+j*8:], uint64(id))
		}
		page.Seal(buf, types.PageTypeFreeList, holder, 0)

		if _, err := dm.file.WriteAt(buf, holder*int64(dm.pageSize)); err != nil {
			return 0, errs.IO(err, "failed to write free list page %d", holder)
		}
	}
	return holderIDs[0], nil
}

// loadFreeList walks the chain starting at head. A cycle, an out of range id
// or a page that is not a free-list page means the file is corrupt.
func (dm *DiskManager) loadFreeList(head int64) error {
	seen := make(map[int64]struct{})
	add := func(id int64) error {
		if id <= 0 || id >= dm.numPages {
			return errs.Corruption("free list references page %d (store has %d pages)", id, dm.numPages)
		}
		if _, dup := seen[id]; dup {
			return errs.Corruption("free list lists page %d twice", id)
		}
		seen[id] = struct{}{}
		dm.free = append(dm.free, id)
		dm.freeSet[id] = struct{}{}
		return nil
	}

	perPage := dm.freeIDsPerPage()
	for holder := head; holder != 0; {
		if err := add(holder); err != nil {
			return err
		}
		buf := make([]byte, dm.pageSize)
		if _, err := dm.file.ReadAt(buf, holder*int64(dm.pageSize)); err != nil {
			return errs.IO(err, "failed to read free list page %d", holder)
		}
		if _, err := page.Open(buf, types.PageTypeFreeList, holder); err != nil {
			return err
		}
		payload := page.Payload(buf)
		next := int64(binary.LittleEndian.Uint64(payload[0:]))
		count := int(binary.LittleEndian.Uint32(payload[8:]))
		if count > perPage {
			return errs.Corruption("free list page %d claims %d entries, capacity is %d", holder, count, perPage)
		}
		for j := 0; j < count; j++ {
			if err := add(int64(binary.LittleEndian.Uint64(payload[freeListFixed+j*8:]))); err != nil {
				return err
			}
		}
		holder = next
	}

	// pop order: smallest id first
	sort.Slice(dm.free, func(i, j int) bool { return dm.free[i] > dm.free[j] })
	return nil
}
