package sequencestore

import (
	"SuffixDB/errs"
	"SuffixDB/storage_engine/page"
	"SuffixDB/types"
	"encoding/binary"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/golang/snappy"
	"go.uber.org/zap"
)

const DefaultCacheBytes = 32 << 20

// Reader serves symbol lookups from a persisted region. Decoded chunks are
// kept in a ristretto cache keyed by chunk index, so a query touching a few
// edge labels only decompresses the chunks it needs. Safe for concurrent use.
type Reader struct {
	pages        PageReader
	payloadSize  int
	dataPages    []int64
	chunks       []chunkRef
	chunkSymbols uint32
	total        uint32
	streamLen    uint64

	cache  *ristretto.Cache[uint64, []uint16]
	logger *zap.Logger
}

// OpenReader loads the region directory and chunk table. cacheBytes bounds
// the decoded chunks kept in memory.
func OpenReader(r PageReader, region Region, cacheBytes int64, logger *zap.Logger) (*Reader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheBytes <= 0 {
		cacheBytes = DefaultCacheBytes
	}

	data, _, err := readDirectory(r, region)
	if err != nil {
		return nil, err
	}

	rd := &Reader{
		pages:       r,
		payloadSize: page.PayloadSize(r.PageSize()),
		dataPages:   data,
		streamLen:   region.StreamLen,
		logger:      logger,
	}

	fixed, err := rd.readStream(0, streamFixed)
	if err != nil {
		return nil, err
	}
	numChunks := binary.LittleEndian.Uint32(fixed[0:])
	rd.chunkSymbols = binary.LittleEndian.Uint32(fixed[4:])
	total := binary.LittleEndian.Uint64(fixed[8:])
	if total > uint64(^uint32(0)) {
		return nil, errs.Corruption("symbol region claims %d symbols", total)
	}
	rd.total = uint32(total)
	if rd.chunkSymbols == 0 {
		return nil, errs.Corruption("symbol region has a zero chunk size")
	}
	if want := (total + uint64(rd.chunkSymbols) - 1) / uint64(rd.chunkSymbols); uint64(numChunks) != want {
		return nil, errs.Corruption("symbol region has %d chunks for %d symbols, want %d", numChunks, total, want)
	}

	table, err := rd.readStream(streamFixed, uint64(numChunks)*chunkEntrySize)
	if err != nil {
		return nil, err
	}
	rd.chunks = make([]chunkRef, numChunks)
	for i := range rd.chunks {
		entry := table[i*chunkEntrySize:]
		ref := chunkRef{
			offset: binary.LittleEndian.Uint64(entry[0:]),
			length: binary.LittleEndian.Uint32(entry[8:]),
		}
		if ref.offset+uint64(ref.length) > region.StreamLen {
			return nil, errs.Corruption("symbol chunk %d [%d,+%d) beyond stream of %d bytes", i, ref.offset, ref.length, region.StreamLen)
		}
		rd.chunks[i] = ref
	}

	rd.cache, err = ristretto.NewCache(&ristretto.Config[uint64, []uint16]{
		NumCounters: max(int64(numChunks)*10, 1000),
		MaxCost:     cacheBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errs.Mark(errs.ErrCapacityExceeded, "symbol cache: %v", err)
	}

	logger.Debug("symbol region opened",
		zap.Uint32("symbols", rd.total),
		zap.Uint32("chunks", numChunks),
		zap.Int("pages", len(data)))
	return rd, nil
}

func (rd *Reader) Len() uint32 {
	return rd.total
}

func (rd *Reader) At(off uint32) (uint16, error) {
	if off >= rd.total {
		return 0, errs.Corruption("symbol offset %d beyond region length %d", off, rd.total)
	}
	chunk, err := rd.chunk(off / rd.chunkSymbols)
	if err != nil {
		return 0, err
	}
	return chunk[off%rd.chunkSymbols], nil
}

// Slice returns a fresh copy of codes in [start, end).
func (rd *Reader) Slice(start, end uint32) ([]uint16, error) {
	if start > end || end > rd.total {
		return nil, errs.Corruption("symbol range [%d,%d) outside region length %d", start, end, rd.total)
	}
	out := make([]uint16, 0, end-start)
	for off := start; off < end; {
		idx := off / rd.chunkSymbols
		chunk, err := rd.chunk(idx)
		if err != nil {
			return nil, err
		}
		lo := off % rd.chunkSymbols
		hi := min(uint32(len(chunk)), lo+(end-off))
		out = append(out, chunk[lo:hi]...)
		off += hi - lo
	}
	return out, nil
}

// Close releases the chunk cache.
func (rd *Reader) Close() {
	if rd.cache != nil {
		rd.cache.Close()
	}
}

func (rd *Reader) chunk(idx uint32) ([]uint16, error) {
	if chunk, ok := rd.cache.Get(uint64(idx)); ok {
		return chunk, nil
	}
	if int(idx) >= len(rd.chunks) {
		return nil, errs.Corruption("symbol chunk %d beyond %d chunks", idx, len(rd.chunks))
	}

	ref := rd.chunks[idx]
	compressed, err := rd.readStream(ref.offset, uint64(ref.length))
	if err != nil {
		return nil, err
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errs.Corruption("symbol chunk %d: %v", idx, err)
	}

	want := rd.chunkSymbols
	if last := uint32(len(rd.chunks) - 1); idx == last {
		want = rd.total - last*rd.chunkSymbols
	}
	if uint32(len(raw)) != 2*want {
		return nil, errs.Corruption("symbol chunk %d decodes to %d bytes, want %d", idx, len(raw), 2*want)
	}
	chunk := make([]uint16, want)
	for i := range chunk {
		chunk[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}

	rd.cache.Set(uint64(idx), chunk, int64(2*len(chunk)))
	return chunk, nil
}

// readStream copies n stream bytes starting at off out of the data pages.
func (rd *Reader) readStream(off, n uint64) ([]byte, error) {
	if off+n > rd.streamLen {
		return nil, errs.Corruption("symbol stream read [%d,+%d) beyond %d bytes", off, n, rd.streamLen)
	}
	out := make([]byte, 0, n)
	ps := uint64(rd.payloadSize)
	for n > 0 {
		idx := off / ps
		if idx >= uint64(len(rd.dataPages)) {
			return nil, errs.Corruption("symbol stream offset %d beyond %d data pages", off, len(rd.dataPages))
		}
		id := rd.dataPages[idx]
		buf, err := rd.pages.ReadPage(id)
		if err != nil {
			return nil, err
		}
		if _, err := page.Open(buf, types.PageTypeSymbols, id); err != nil {
			return nil, err
		}
		lo := off % ps
		take := min(ps-lo, n)
		out = append(out, page.Payload(buf)[lo:lo+take]...)
		off += take
		n -= take
	}
	return out, nil
}
