package diskmanager

import (
	"SuffixDB/errs"
	"SuffixDB/types"
	"io"
	"os"

	"go.uber.org/zap"
)

/*
This is the main file for the disk manager (the page store).
It owns:
The single os.File backing a tree
Reading/writing raw pages at pageID * pageSize (ReadAt, WriteAt)
Page allocation: the free list first, then growing the file by one page
The header page (page 0) with the free list head and the tree's meta bytes

It never interprets page contents; node and symbol pages are sealed and
verified by the buffer pool and the sequence store.
*/

// Create makes a fresh store at path, truncating anything already there.
func Create(path string, pageSize int, opts ...Option) (*DiskManager, error) {
	if pageSize < types.MinPageSize || pageSize > types.MaxPageSize {
		return nil, errs.Mark(errs.ErrCapacityExceeded, "page size %d outside [%d, %d]", pageSize, types.MinPageSize, types.MaxPageSize)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errs.IO(err, "failed to create store file %s", path)
	}

	dm := newDiskManager(file, path, pageSize, opts...)
	dm.numPages = 1
	if err := dm.writeHeader(0); err != nil {
		file.Close()
		return nil, err
	}

	dm.logger.Debug("store created", zap.String("path", path), zap.Int("page_size", pageSize))
	return dm, nil
}

// Open loads an existing store. Size, magic, version and checksum mismatches
// are reported as corruption.
func Open(path string, opts ...Option) (*DiskManager, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, errs.IO(err, "failed to open store file %s", path)
	}

	dm, err := openFile(file, path, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	return dm, nil
}

func openFile(file *os.File, path string, opts ...Option) (*DiskManager, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, errs.IO(err, "failed to stat store file %s", path)
	}
	fileSize := stat.Size()

	prefix := make([]byte, headerFixedSize)
	if _, err := file.ReadAt(prefix, 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errs.Corruption("store file %s is %d bytes, too small for a header", path, fileSize)
		}
		return nil, errs.IO(err, "failed to read header of %s", path)
	}
	pageSize, err := peekPageSize(prefix)
	if err != nil {
		return nil, err
	}
	if pageSize < types.MinPageSize || pageSize > types.MaxPageSize {
		return nil, errs.Corruption("recorded page size %d is out of range", pageSize)
	}
	if fileSize%int64(pageSize) != 0 {
		return nil, errs.Corruption("file size %d is not a multiple of page size %d", fileSize, pageSize)
	}

	raw := make([]byte, pageSize)
	if _, err := file.ReadAt(raw, 0); err != nil {
		return nil, errs.IO(err, "failed to read header page of %s", path)
	}
	h, err := decodeHeader(raw)
	if err != nil {
		return nil, err
	}
	if h.numPages != fileSize/int64(pageSize) {
		return nil, errs.Corruption("header records %d pages, file holds %d", h.numPages, fileSize/int64(pageSize))
	}

	dm := newDiskManager(file, path, pageSize, opts...)
	dm.numPages = h.numPages
	dm.meta = h.meta
	if err := dm.loadFreeList(h.freeHead); err != nil {
		return nil, err
	}

	dm.logger.Debug("store opened",
		zap.String("path", path),
		zap.Int("page_size", pageSize),
		zap.Int64("pages", dm.numPages),
		zap.Int("free", len(dm.free)))
	return dm, nil
}

func newDiskManager(file *os.File, path string, pageSize int, opts ...Option) *DiskManager {
	dm := &DiskManager{
		file:     file,
		filePath: path,
		pageSize: pageSize,
		freeSet:  make(map[int64]struct{}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(dm)
	}
	return dm
}

// ReadPage reads one full page. Reading page 0 returns the raw header page.
func (dm *DiskManager) ReadPage(pageID int64) ([]byte, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	if dm.file == nil {
		return nil, errs.ErrClosed
	}
	if pageID < 0 || pageID >= dm.numPages {
		return nil, errs.Corruption("page %d out of range (store has %d pages)", pageID, dm.numPages)
	}

	buf := make([]byte, dm.pageSize)
	if _, err := dm.file.ReadAt(buf, pageID*int64(dm.pageSize)); err != nil {
		return nil, errs.IO(err, "failed to read page %d", pageID)
	}
	return buf, nil
}

// WritePage writes exactly one page worth of bytes to an allocated page.
func (dm *DiskManager) WritePage(pageID int64, data []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return errs.ErrClosed
	}
	if pageID <= 0 || pageID >= dm.numPages {
		return errs.Corruption("write to page %d out of range (store has %d pages)", pageID, dm.numPages)
	}
	if len(data) != dm.pageSize {
		return errs.Corruption("data size %d does not match page size %d", len(data), dm.pageSize)
	}

	if _, err := dm.file.WriteAt(data, pageID*int64(dm.pageSize)); err != nil {
		return errs.IO(err, "failed to write page %d", pageID)
	}
	return nil
}

// AllocatePage hands out a released page if there is one, otherwise grows the
// file by one zeroed page. Ids stay dense either way.
func (dm *DiskManager) AllocatePage() (int64, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return 0, errs.ErrClosed
	}

	if n := len(dm.free); n > 0 {
		pageID := dm.free[n-1]
		dm.free = dm.free[:n-1]
		delete(dm.freeSet, pageID)
		return pageID, nil
	}

	pageID := dm.numPages
	empty := make([]byte, dm.pageSize)
	if _, err := dm.file.WriteAt(empty, pageID*int64(dm.pageSize)); err != nil {
		return 0, errs.IO(err, "failed to grow store for page %d", pageID)
	}
	dm.numPages++
	return pageID, nil
}

// FreePage returns a page to the free list. The header page can never be freed.
func (dm *DiskManager) FreePage(pageID int64) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return errs.ErrClosed
	}
	if pageID <= 0 || pageID >= dm.numPages {
		return errs.Corruption("cannot free page %d (store has %d pages)", pageID, dm.numPages)
	}
	if _, dup := dm.freeSet[pageID]; dup {
		return errs.Corruption("page %d freed twice", pageID)
	}
	dm.free = append(dm.free, pageID)
	dm.freeSet[pageID] = struct{}{}
	return nil
}

// Meta returns a copy of the meta bytes stored in the header page.
func (dm *DiskManager) Meta() []byte {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return append([]byte(nil), dm.meta...)
}

// SetMeta replaces the meta bytes. They reach disk on the next Flush.
func (dm *DiskManager) SetMeta(meta []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if capacity := MetaCapacity(dm.pageSize); len(meta) > capacity {
		return errs.Mark(errs.ErrCapacityExceeded, "meta of %d bytes exceeds header capacity %d", len(meta), capacity)
	}
	dm.meta = append([]byte(nil), meta...)
	return nil
}

// Flush persists the free list and the header page, then fsyncs the file.
func (dm *DiskManager) Flush() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.flushLocked()
}

func (dm *DiskManager) flushLocked() error {
	if dm.file == nil {
		return errs.ErrClosed
	}
	head, err := dm.writeFreeList()
	if err != nil {
		return err
	}
	if err := dm.writeHeader(head); err != nil {
		return err
	}
	if err := dm.file.Sync(); err != nil {
		return errs.IO(err, "failed to sync %s", dm.filePath)
	}
	return nil
}

func (dm *DiskManager) writeHeader(freeHead int64) error {
	buf := encodeHeader(fileHeader{
		pageSize: dm.pageSize,
		numPages: dm.numPages,
		freeHead: freeHead,
		meta:     dm.meta,
	})
	if _, err := dm.file.WriteAt(buf, 0); err != nil {
		return errs.IO(err, "failed to write header page")
	}
	return nil
}

// Close flushes and closes the backing file. Closing twice is a no-op.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.file == nil {
		return nil
	}
	if err := dm.flushLocked(); err != nil {
		dm.file.Close()
		dm.file = nil
		return err
	}
	err := dm.file.Close()
	dm.file = nil
	if err != nil {
		return errs.IO(err, "failed to close %s", dm.filePath)
	}
	return nil
}

func (dm *DiskManager) PageSize() int {
	return dm.pageSize
}

func (dm *DiskManager) Path() string {
	return dm.filePath
}

// NumPages returns the number of pages in the file, header included.
func (dm *DiskManager) NumPages() int64 {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.numPages
}

// FreeCount returns how many released pages are waiting to be reused.
func (dm *DiskManager) FreeCount() int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return len(dm.free)
}
