package suffixtree

import (
	"SuffixDB/errs"
	sequencestore "SuffixDB/storage_engine/sequence_store"
	"encoding/binary"

	"github.com/google/uuid"
)

/*
Tree metadata lives in the meta area of the store header page:

	version       uint16
	storeID       [16]byte
	alphabetLen   uint8, alphabet bytes
	maxSequences  uint32
	maxOffset     uint32
	chunkSymbols  uint32
	root          int64
	finalized     uint8
	totalSymbols  uint32
	nodeCount     uint64
	leafCount     uint64
	region        root int64 | streamLen uint64 | pages uint32
	numSequences  uint32
	numSequences × [ id uint32 | base uint32 | length uint32 | complete uint8 ]

A sequence's slot is its index in the list.
*/

const (
	metaVersion  = 1
	metaFixed    = 2 + 16 + 1 + 4 + 4 + 4 + 8 + 1 + 4 + 8 + 8 + 8 + 8 + 4 + 4
	metaPerEntry = 13
)

// metaSize is the encoded size for an alphabet and sequence count, used to
// reject inputs whose metadata would not fit the header page.
func metaSize(alphabetLen, sequences int) int {
	return metaFixed + alphabetLen + sequences*metaPerEntry
}

func (m *treeMeta) encode() []byte {
	buf := make([]byte, 0, metaSize(len(m.alphabet), len(m.sequences)))
	buf = binary.LittleEndian.AppendUint16(buf, metaVersion)
	buf = append(buf, m.storeID[:]...)
	buf = append(buf, byte(len(m.alphabet)))
	buf = append(buf, m.alphabet...)
	buf = binary.LittleEndian.AppendUint32(buf, m.maxSequences)
	buf = binary.LittleEndian.AppendUint32(buf, m.maxOffset)
	buf = binary.LittleEndian.AppendUint32(buf, m.chunkSymbols)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(m.root))
	if m.finalized {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.LittleEndian.AppendUint32(buf, m.totalSymbols)
	buf = binary.LittleEndian.AppendUint64(buf, m.nodeCount)
	buf = binary.LittleEndian.AppendUint64(buf, m.leafCount)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(m.region.Root))
	buf = binary.LittleEndian.AppendUint64(buf, m.region.StreamLen)
	buf = binary.LittleEndian.AppendUint32(buf, m.region.Pages)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m.sequences)))
	for _, s := range m.sequences {
		buf = binary.LittleEndian.AppendUint32(buf, s.ID)
		buf = binary.LittleEndian.AppendUint32(buf, s.Base)
		buf = binary.LittleEndian.AppendUint32(buf, s.Length)
		if s.Complete {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf
}

// metaReader walks the meta bytes and remembers the first short read.
type metaReader struct {
	buf []byte
	off int
	err error
}

func (r *metaReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = errs.Corruption("tree header truncated at byte %d of %d", r.off, len(r.buf))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *metaReader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *metaReader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *metaReader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *metaReader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func decodeMeta(buf []byte) (treeMeta, error) {
	var m treeMeta
	if len(buf) == 0 {
		return m, errs.Corruption("store carries no tree header")
	}
	r := &metaReader{buf: buf}

	if v := r.u16(); r.err == nil && v != metaVersion {
		return m, errs.Corruption("unsupported tree header version %d", v)
	}
	if id := r.take(16); id != nil {
		copy(m.storeID[:], id)
	}
	m.alphabet = string(r.take(int(r.u8())))
	m.maxSequences = r.u32()
	m.maxOffset = r.u32()
	m.chunkSymbols = r.u32()
	m.root = int64(r.u64())
	m.finalized = r.u8() == 1
	m.totalSymbols = r.u32()
	m.nodeCount = r.u64()
	m.leafCount = r.u64()
	m.region = sequencestore.Region{
		Root:      int64(r.u64()),
		StreamLen: r.u64(),
		Pages:     r.u32(),
	}
	count := r.u32()
	if r.err != nil {
		return m, r.err
	}
	if count > m.maxSequences {
		return m, errs.Corruption("tree header lists %d sequences, maximum is %d", count, m.maxSequences)
	}

	var next uint32
	for slot := uint32(0); slot < count; slot++ {
		s := SequenceInfo{
			ID:       r.u32(),
			Slot:     slot,
			Base:     r.u32(),
			Length:   r.u32(),
			Complete: r.u8() == 1,
		}
		if r.err != nil {
			return m, r.err
		}
		if s.Base != next || s.Length == 0 {
			return m, errs.Corruption("sequence %d occupies [%d,+%d), expected base %d", s.ID, s.Base, s.Length, next)
		}
		next = s.Base + s.Length
		m.sequences = append(m.sequences, s)
	}
	if m.finalized && next != m.totalSymbols {
		return m, errs.Corruption("sequences cover %d symbols, header says %d", next, m.totalSymbols)
	}
	if m.root <= 0 {
		return m, errs.Corruption("tree header has no root (got %d)", m.root)
	}
	if m.storeID == uuid.Nil {
		return m, errs.Corruption("tree header has a nil store id")
	}
	return m, nil
}
