package suffixtree

import (
	"SuffixDB/errs"
	"SuffixDB/storage_engine/bufferpool"
	diskmanager "SuffixDB/storage_engine/disk_manager"
	sequencestore "SuffixDB/storage_engine/sequence_store"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

/*
Tree lifecycle:

	Build  -> validate input, create the file, insert every sequence, finalize
	Open   -> read the header, refuse stores that never finalized
	Append -> validate, reload symbols, re-enter construction, re-finalize
	Close  -> flush, sync, close

The tree is single writer: Build and Append hold the write lock for their
whole run, queries share the read lock.
*/

// staged is a validated sequence waiting to be inserted.
type staged struct {
	info  SequenceInfo
	codes []uint16 // symbols followed by the sentinel
}

// Build creates a new tree file at path indexing seqs. Input errors are
// reported before the file is created or truncated.
func Build(path string, seqs []Sequence, opts ...Option) (*Tree, error) {
	o := buildOptions(opts)
	if err := o.validate(); err != nil {
		return nil, err
	}
	t, err := newTree(path, o)
	if err != nil {
		return nil, err
	}
	t.meta = treeMeta{
		storeID:      uuid.New(),
		alphabet:     o.Alphabet,
		maxSequences: uint32(o.MaxSequences),
		maxOffset:    o.MaxOffset,
		chunkSymbols: uint32(o.ChunkSymbols),
	}
	if err := t.codec.fits(o.PageSize); err != nil {
		return nil, err
	}
	if need, have := metaSize(len(o.Alphabet), o.MaxSequences), diskmanager.MetaCapacity(o.PageSize); need > have {
		return nil, errs.Mark(errs.ErrCapacityExceeded,
			"header for %d sequences needs %d bytes, page %d holds %d", o.MaxSequences, need, o.PageSize, have)
	}

	batch, err := t.stage(seqs, 0)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	t.disk, err = diskmanager.Create(path, o.PageSize, diskmanager.WithLogger(t.logger))
	if err != nil {
		return nil, err
	}
	t.pool = bufferpool.NewBufferPool[*Node](o.PoolCapacity, t.disk, t.codec, t.logger)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.meta.root, err = t.create(NodeRoot, nil); err != nil {
		return nil, t.abort(err)
	}
	if err := t.writeMeta(); err != nil {
		return nil, t.abort(err)
	}

	text := sequencestore.NewStore()
	if err := t.construct(text, batch); err != nil {
		return nil, t.abort(err)
	}
	if err := t.finalize(text); err != nil {
		return nil, t.abort(err)
	}

	t.logger.Info("tree built",
		zap.String("path", path),
		zap.Int("sequences", len(t.meta.sequences)),
		zap.Uint32("symbols", t.meta.totalSymbols),
		zap.Duration("elapsed", time.Since(started)))
	return t, nil
}

// Open loads a finalized tree.
func Open(path string, opts ...Option) (*Tree, error) {
	o := buildOptions(opts)
	disk, err := diskmanager.Open(path, diskmanager.WithLogger(o.Logger))
	if err != nil {
		return nil, err
	}

	meta, err := decodeMeta(disk.Meta())
	if err != nil {
		disk.Close()
		return nil, err
	}
	if !meta.finalized {
		disk.Close()
		return nil, errs.Mark(errs.ErrNotFinalized, "%s: construction never completed", path)
	}

	o.Alphabet = meta.alphabet
	o.PageSize = disk.PageSize()
	o.MaxSequences = int(meta.maxSequences)
	o.MaxOffset = meta.maxOffset
	o.ChunkSymbols = int(meta.chunkSymbols)

	t, err := newTree(path, o)
	if err != nil {
		disk.Close()
		return nil, errs.Mark(errs.ErrCorruption, "%s: %v", path, err)
	}
	if err := t.codec.fits(o.PageSize); err != nil {
		disk.Close()
		return nil, errs.Mark(errs.ErrCorruption, "%s: %v", path, err)
	}
	t.disk = disk
	t.meta = meta
	for _, s := range meta.sequences {
		t.bySeqID[s.ID] = s.Slot
	}
	t.pool = bufferpool.NewBufferPool[*Node](o.PoolCapacity, disk, t.codec, t.logger)

	t.reader, err = sequencestore.OpenReader(disk, meta.region, o.ChunkCacheBytes, t.logger)
	if err != nil {
		disk.Close()
		return nil, err
	}
	if t.reader.Len() != meta.totalSymbols {
		t.reader.Close()
		disk.Close()
		return nil, errs.Corruption("%s: symbol region holds %d symbols, header says %d", path, t.reader.Len(), meta.totalSymbols)
	}
	t.symbols = t.reader

	t.logger.Debug("tree opened",
		zap.String("path", path),
		zap.String("store", meta.storeID.String()),
		zap.Int("sequences", len(meta.sequences)),
		zap.Uint64("nodes", meta.nodeCount))
	return t, nil
}

func newTree(path string, o Options) (*Tree, error) {
	alpha, err := newAlphabet(o.Alphabet)
	if err != nil {
		return nil, err
	}
	return &Tree{
		path:    path,
		opts:    o,
		alpha:   alpha,
		codec:   newNodeCodec(alpha.size(), o.MaxSequences),
		bySeqID: make(map[uint32]uint32),
		logger:  o.Logger,
	}, nil
}

// Append inserts more sequences into a finalized tree and re-finalizes it.
// Input errors leave the tree untouched.
func (t *Tree) Append(seqs []Sequence) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkReadable(); err != nil {
		return err
	}
	batch, err := t.stage(seqs, t.meta.totalSymbols)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	text, err := sequencestore.LoadStore(t.reader)
	if err != nil {
		return err
	}
	t.symbols = text
	t.meta.finalized = false
	if err := t.writeMeta(); err != nil {
		return err
	}

	if err := t.construct(text, batch); err != nil {
		return err
	}
	if err := t.finalize(text); err != nil {
		return err
	}
	t.logger.Info("sequences appended", zap.Int("added", len(batch)), zap.Int("sequences", len(t.meta.sequences)))
	return nil
}

// stage validates a batch against the tree and assigns slots and offsets.
// Nothing is modified.
func (t *Tree) stage(seqs []Sequence, base uint32) ([]staged, error) {
	existing := len(t.meta.sequences)
	if existing+len(seqs) > int(t.meta.maxSequences) {
		return nil, errs.Mark(errs.ErrCapacityExceeded,
			"%d sequences plus %d new exceed the maximum of %d", existing, len(seqs), t.meta.maxSequences)
	}

	seen := make(map[uint32]struct{}, len(seqs))
	batch := make([]staged, 0, len(seqs))
	next := uint64(base)
	for i, s := range seqs {
		if _, dup := t.bySeqID[s.ID]; dup {
			return nil, errs.Mark(errs.ErrDuplicateSequenceID, "sequence id %d is already indexed", s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, errs.Mark(errs.ErrDuplicateSequenceID, "sequence id %d appears twice in the input", s.ID)
		}
		seen[s.ID] = struct{}{}

		if len(s.Symbols) == 0 {
			return nil, errs.Mark(errs.ErrInvalidSymbol, "sequence %d is empty", s.ID)
		}
		codes, bad, ok := t.alpha.encode(s.Symbols)
		if !ok {
			return nil, errs.Mark(errs.ErrInvalidSymbol,
				"sequence %d: byte %q at position %d is not in alphabet %q", s.ID, s.Symbols[bad], bad, t.alpha.symbols)
		}

		length := uint64(len(codes)) + 1
		if next+length-1 > uint64(t.meta.maxOffset) {
			return nil, errs.Mark(errs.ErrCapacityExceeded,
				"sequence %d would end at offset %d, maximum is %d", s.ID, next+length-1, t.meta.maxOffset)
		}

		slot := uint32(existing + i)
		batch = append(batch, staged{
			info: SequenceInfo{
				ID:     s.ID,
				Slot:   slot,
				Base:   uint32(next),
				Length: uint32(length),
			},
			codes: append(codes, t.alpha.sentinel(slot)),
		})
		next += length
	}
	return batch, nil
}

// construct appends every staged sequence to the symbol store and runs the
// builder over it.
func (t *Tree) construct(text *sequencestore.Store, batch []staged) error {
	t.symbols = text
	b := &builder{t: t, text: text}
	for _, s := range batch {
		if base := text.Append(s.codes); base != s.info.Base {
			return errs.Corruption("sequence %d staged at offset %d, store is at %d", s.info.ID, s.info.Base, base)
		}
		t.meta.sequences = append(t.meta.sequences, s.info)
		t.bySeqID[s.info.ID] = s.info.Slot

		if err := b.insert(s.info); err != nil {
			return err
		}
		t.meta.sequences[s.info.Slot].Complete = true
	}
	return nil
}

func (t *Tree) writeMeta() error {
	if err := t.disk.SetMeta(t.meta.encode()); err != nil {
		return err
	}
	return t.disk.Flush()
}

// abort closes a half-built store. The file stays on disk without the
// finalized flag, so Open refuses it.
func (t *Tree) abort(cause error) error {
	t.closeReader()
	if err := t.disk.Close(); err != nil {
		t.logger.Warn("closing aborted store", zap.Error(err))
	}
	t.disk = nil
	return cause
}

func (t *Tree) closeReader() {
	if t.reader != nil {
		t.reader.Close()
		t.reader = nil
	}
}

// Close flushes the buffer pool, syncs and closes the file. Calling it twice
// is a no-op.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disk == nil {
		return nil
	}
	var firstErr error
	if err := t.pool.FlushAll(); err != nil {
		firstErr = err
	}
	t.closeReader()
	if err := t.disk.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	t.disk = nil
	return firstErr
}

// Destroy deletes a tree file.
func Destroy(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.IO(err, "failed to remove %s", path)
	}
	return nil
}

func (t *Tree) checkReadable() error {
	if t.disk == nil {
		return errs.Mark(errs.ErrClosed, "tree %s is closed", t.path)
	}
	if !t.meta.finalized {
		return errs.Mark(errs.ErrNotFinalized, "tree %s is not finalized", t.path)
	}
	return nil
}

func (t *Tree) sequence(id uint32) (SequenceInfo, error) {
	slot, ok := t.bySeqID[id]
	if !ok {
		return SequenceInfo{}, errs.Mark(errs.ErrUnknownSequence, "sequence %d is not indexed", id)
	}
	return t.meta.sequences[slot], nil
}

// Sequences lists the indexed sequences in slot order.
func (t *Tree) Sequences() []SequenceInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]SequenceInfo(nil), t.meta.sequences...)
}

// Symbols returns the symbols of an indexed sequence without its sentinel.
func (t *Tree) Symbols(id uint32) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkReadable(); err != nil {
		return nil, err
	}
	info, err := t.sequence(id)
	if err != nil {
		return nil, err
	}
	return t.decode(info.Base, info.Sentinel())
}

// decode renders the alphabet symbols in [start, end).
func (t *Tree) decode(start, end uint32) ([]byte, error) {
	out := make([]byte, 0, end-start)
	for off := start; off < end; off++ {
		c, err := t.symbols.At(off)
		if err != nil {
			return nil, err
		}
		if t.alpha.isSentinel(c) {
			return nil, errs.Corruption("sentinel inside symbol range [%d,%d)", start, end)
		}
		out = append(out, t.alpha.symbols[c])
	}
	return out, nil
}

type Stats struct {
	StoreID      uuid.UUID
	Path         string
	Alphabet     string
	PageSize     int
	NodeSize     int
	Sequences    int
	MaxSequences int
	Nodes        uint64
	Leaves       uint64
	TotalSymbols uint32
	Pages        int64
	FreePages    int
	RegionPages  uint32
	Pool         bufferpool.BufferPoolStats
}

func (t *Tree) Stats() (Stats, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.disk == nil {
		return Stats{}, errs.Mark(errs.ErrClosed, "tree %s is closed", t.path)
	}
	return Stats{
		StoreID:      t.meta.storeID,
		Path:         t.path,
		Alphabet:     t.meta.alphabet,
		PageSize:     t.disk.PageSize(),
		NodeSize:     t.codec.Size(),
		Sequences:    len(t.meta.sequences),
		MaxSequences: int(t.meta.maxSequences),
		Nodes:        t.meta.nodeCount,
		Leaves:       t.meta.leafCount,
		TotalSymbols: t.meta.totalSymbols,
		Pages:        t.disk.NumPages(),
		FreePages:    t.disk.FreeCount(),
		RegionPages:  t.meta.region.Pages,
		Pool:         t.pool.GetStats(),
	}, nil
}
