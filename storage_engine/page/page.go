package page

import (
	"SuffixDB/errs"
	"SuffixDB/types"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

/*
Every typed page (node, symbol region, free list) starts with the same 32 byte
header, the rest of the page is the payload owned by whoever encoded it.

	Header (32 bytes):
	  pageType    uint8  (1 byte)
	  reserved           (7 bytes)
	  pageID      int64  (8 bytes)  : must equal the slot the page was read from
	  generation  uint64 (8 bytes)  : bumped on every write-back by the pool
	  checksum    uint64 (8 bytes)  : xxhash64 of the payload

The disk manager never looks inside; sealing and verification happen in the
layers above it.
*/

const (
	typeOffset       = 0
	idOffset         = 8
	generationOffset = 16
	checksumOffset   = 24
	HeaderSize       = types.PageHeaderSize
)

type Header struct {
	Type       types.PageType
	ID         int64
	Generation uint64
	Checksum   uint64
}

// Payload returns the bytes after the header.
func Payload(buf []byte) []byte {
	return buf[HeaderSize:]
}

// PayloadSize is the usable number of bytes in a page of the given size.
func PayloadSize(pageSize int) int {
	return pageSize - HeaderSize
}

// Seal stamps the header in front of an already encoded payload.
func Seal(buf []byte, pageType types.PageType, pageID int64, generation uint64) Header {
	h := Header{
		Type:       pageType,
		ID:         pageID,
		Generation: generation,
		Checksum:   xxhash.Sum64(buf[HeaderSize:]),
	}
	buf[typeOffset] = byte(h.Type)
	for i := typeOffset + 1; i < idOffset; i++ {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint64(buf[idOffset:], uint64(h.ID))
	binary.LittleEndian.PutUint64(buf[generationOffset:], h.Generation)
	binary.LittleEndian.PutUint64(buf[checksumOffset:], h.Checksum)
	return h
}

// ReadHeader decodes the header without verifying it.
func ReadHeader(buf []byte) Header {
	return Header{
		Type:       types.PageType(buf[typeOffset]),
		ID:         int64(binary.LittleEndian.Uint64(buf[idOffset:])),
		Generation: binary.LittleEndian.Uint64(buf[generationOffset:]),
		Checksum:   binary.LittleEndian.Uint64(buf[checksumOffset:]),
	}
}

// Open verifies that buf holds a sealed page of the expected type stored at pageID.
func Open(buf []byte, pageType types.PageType, pageID int64) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errs.Corruption("page %d: %d bytes is shorter than the page header", pageID, len(buf))
	}
	h := ReadHeader(buf)
	if h.Type != pageType {
		return h, errs.Corruption("page %d: expected %s page, found %s", pageID, pageType, h.Type)
	}
	if h.ID != pageID {
		return h, errs.Corruption("page %d: header claims page id %d", pageID, h.ID)
	}
	if sum := xxhash.Sum64(buf[HeaderSize:]); sum != h.Checksum {
		return h, errs.Corruption("page %d: checksum mismatch (stored %x, computed %x)", pageID, h.Checksum, sum)
	}
	return h, nil
}
