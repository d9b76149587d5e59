package sequencestore

import (
	"SuffixDB/errs"
	"SuffixDB/storage_engine/page"
	"SuffixDB/types"
	"encoding/binary"

	"github.com/golang/snappy"
)

/*
On-disk symbol region.

The region is a byte stream laid over PageTypeSymbols data pages, plus a chain
of directory pages listing those data pages in stream order:

	directory page payload:  next int64 | count uint32 | count × pageID int64
	data page payload:       raw stream bytes

Stream layout:

	numChunks     uint32
	chunkSymbols  uint32
	totalSymbols  uint64
	numChunks × [ offset uint64 | length uint32 ]   : offsets are into the stream
	chunk bytes: snappy(little-endian uint16 codes)

Regions are written once per finalization and never patched in place.
*/

const (
	DefaultChunkSymbols = 64 * 1024

	streamFixed    = 16
	chunkEntrySize = 12
	dirFixed       = 12
)

// Region locates a persisted symbol region. It is stored in the tree header.
type Region struct {
	Root      int64  // first directory page, 0 for an empty region
	StreamLen uint64 // bytes in the logical stream
	Pages     uint32 // directory and data pages together
}

// PageWriter is the subset of the disk manager used to persist a region.
type PageWriter interface {
	PageReader
	AllocatePage() (int64, error)
	WritePage(pageID int64, data []byte) error
	FreePage(pageID int64) error
}

type PageReader interface {
	ReadPage(pageID int64) ([]byte, error)
	PageSize() int
}

type chunkRef struct {
	offset uint64
	length uint32
}

// WriteRegion compresses the store into chunks of chunkSymbols codes and
// writes them to freshly allocated pages.
func WriteRegion(w PageWriter, s *Store, chunkSymbols int) (Region, error) {
	if chunkSymbols <= 0 {
		chunkSymbols = DefaultChunkSymbols
	}

	var chunks [][]byte
	raw := make([]byte, 2*chunkSymbols)
	for lo := 0; lo < len(s.codes); lo += chunkSymbols {
		hi := min(lo+chunkSymbols, len(s.codes))
		n := 0
		for _, c := range s.codes[lo:hi] {
			binary.LittleEndian.PutUint16(raw[n:], c)
			n += 2
		}
		chunks = append(chunks, snappy.Encode(nil, raw[:n]))
	}

	tableLen := streamFixed + chunkEntrySize*len(chunks)
	streamLen := tableLen
	for _, c := range chunks {
		streamLen += len(c)
	}

	stream := make([]byte, streamLen)
	binary.LittleEndian.PutUint32(stream[0:], uint32(len(chunks)))
	binary.LittleEndian.PutUint32(stream[4:], uint32(chunkSymbols))
	binary.LittleEndian.PutUint64(stream[8:], uint64(len(s.codes)))
	off := tableLen
	for i, c := range chunks {
		entry := stream[streamFixed+i*chunkEntrySize:]
		binary.LittleEndian.PutUint64(entry[0:], uint64(off))
		binary.LittleEndian.PutUint32(entry[8:], uint32(len(c)))
		copy(stream[off:], c)
		off += len(c)
	}

	return writeStream(w, stream)
}

func writeStream(w PageWriter, stream []byte) (Region, error) {
	pageSize := w.PageSize()
	payloadSize := page.PayloadSize(pageSize)

	numData := (len(stream) + payloadSize - 1) / payloadSize
	perDir := (payloadSize - dirFixed) / 8
	numDir := max(1, (numData+perDir-1)/perDir)

	dirIDs := make([]int64, numDir)
	for i := range dirIDs {
		id, err := w.AllocatePage()
		if err != nil {
			return Region{}, err
		}
		dirIDs[i] = id
	}
	dataIDs := make([]int64, numData)
	for i := range dataIDs {
		id, err := w.AllocatePage()
		if err != nil {
			return Region{}, err
		}
		dataIDs[i] = id

		buf := make([]byte, pageSize)
		lo := i * payloadSize
		copy(page.Payload(buf), stream[lo:min(lo+payloadSize, len(stream))])
		page.Seal(buf, types.PageTypeSymbols, id, 0)
		if err := w.WritePage(id, buf); err != nil {
			return Region{}, err
		}
	}

	for i, id := range dirIDs {
		buf := make([]byte, pageSize)
		payload := page.Payload(buf)
		var next int64
		if i+1 < numDir {
			next = dirIDs[i+1]
		}
		lo := min(i*perDir, numData)
		hi := min(lo+perDir, numData)
		binary.LittleEndian.PutUint64(payload[0:], uint64(next))
		binary.LittleEndian.PutUint32(payload[8:], uint32(hi-lo))
		for j, dataID := range dataIDs[lo:hi] {
			binary.LittleEndian.PutUint64(payload[dirFixed+j*8:], uint64(dataID))
		}
		page.Seal(buf, types.PageTypeSymbols, id, 0)
		if err := w.WritePage(id, buf); err != nil {
			return Region{}, err
		}
	}

	return Region{
		Root:      dirIDs[0],
		StreamLen: uint64(len(stream)),
		Pages:     uint32(numDir + numData),
	}, nil
}

// readDirectory returns the data pages of a region in stream order and the
// directory pages that list them.
func readDirectory(r PageReader, region Region) (data []int64, dirs []int64, err error) {
	payloadSize := page.PayloadSize(r.PageSize())
	perDir := (payloadSize - dirFixed) / 8
	seen := make(map[int64]struct{})

	for id := region.Root; id != 0; {
		if _, loop := seen[id]; loop {
			return nil, nil, errs.Corruption("symbol directory chain loops at page %d", id)
		}
		seen[id] = struct{}{}
		dirs = append(dirs, id)

		buf, err := r.ReadPage(id)
		if err != nil {
			return nil, nil, err
		}
		if _, err := page.Open(buf, types.PageTypeSymbols, id); err != nil {
			return nil, nil, err
		}
		payload := page.Payload(buf)
		count := int(binary.LittleEndian.Uint32(payload[8:]))
		if count > perDir {
			return nil, nil, errs.Corruption("symbol directory page %d lists %d pages, capacity %d", id, count, perDir)
		}
		for j := 0; j < count; j++ {
			data = append(data, int64(binary.LittleEndian.Uint64(payload[dirFixed+j*8:])))
		}
		id = int64(binary.LittleEndian.Uint64(payload[0:]))
	}

	if need := (region.StreamLen + uint64(payloadSize) - 1) / uint64(payloadSize); uint64(len(data)) != need {
		return nil, nil, errs.Corruption("symbol region has %d data pages, stream of %d bytes needs %d", len(data), region.StreamLen, need)
	}
	return data, dirs, nil
}

// FreeRegion returns every page of a region to the free list.
func FreeRegion(w PageWriter, region Region) error {
	if region.Root == 0 {
		return nil
	}
	data, dirs, err := readDirectory(w, region)
	if err != nil {
		return err
	}
	for _, id := range append(dirs, data...) {
		if err := w.FreePage(id); err != nil {
			return err
		}
	}
	return nil
}
