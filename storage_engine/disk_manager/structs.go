package diskmanager

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

// ############################################# DISK MANAGER #############################################

// DiskManager is the page store: one backing file cut into fixed-size pages.
// Page 0 is the header page, every other page id is handed out by AllocatePage.
type DiskManager struct {
	file     *os.File
	filePath string
	pageSize int
	numPages int64 // pages currently in the file, header included

	free    []int64 // stack of released page ids, reused before the file grows
	freeSet map[int64]struct{}
	meta    []byte // opaque bytes owned by the layer above, stored in page 0

	logger *zap.Logger
	mu     sync.RWMutex
}

// Option configures a DiskManager at Create/Open time.
type Option func(*DiskManager)

func WithLogger(logger *zap.Logger) Option {
	return func(dm *DiskManager) {
		if logger != nil {
			dm.logger = logger
		}
	}
}
