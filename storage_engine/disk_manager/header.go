package diskmanager

import (
	"SuffixDB/errs"
	"bytes"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

/*
Header page (page 0) layout, written directly by the disk manager:

	magic      [8]byte  "SFXTREE\x00"
	version    uint32
	pageSize   uint32
	numPages   uint64   : pages in the file including this one
	freeHead   int64    : first free-list page, 0 if the list is empty
	metaLen    uint32
	reserved            (4 bytes)
	checksum   uint64   : xxhash64 of bytes [0,40) followed by the meta bytes
	meta       [metaLen]byte

Everything after the fixed part belongs to the tree layer (see SetMeta).
*/

const (
	FormatVersion   = 1
	headerFixedSize = 48

	offMagic    = 0
	offVersion  = 8
	offPageSize = 12
	offNumPages = 16
	offFreeHead = 24
	offMetaLen  = 32
	offChecksum = 40
)

var magic = [8]byte{'S', 'F', 'X', 'T', 'R', 'E', 'E', 0}

type fileHeader struct {
	pageSize int
	numPages int64
	freeHead int64
	meta     []byte
}

// MetaCapacity is the number of meta bytes a header page of pageSize can hold.
func MetaCapacity(pageSize int) int {
	return pageSize - headerFixedSize
}

func encodeHeader(h fileHeader) []byte {
	buf := make([]byte, h.pageSize)
	copy(buf[offMagic:], magic[:])
	binary.LittleEndian.PutUint32(buf[offVersion:], FormatVersion)
	binary.LittleEndian.PutUint32(buf[offPageSize:], uint32(h.pageSize))
	binary.LittleEndian.PutUint64(buf[offNumPages:], uint64(h.numPages))
	binary.LittleEndian.PutUint64(buf[offFreeHead:], uint64(h.freeHead))
	binary.LittleEndian.PutUint32(buf[offMetaLen:], uint32(len(h.meta)))
	copy(buf[headerFixedSize:], h.meta)
	binary.LittleEndian.PutUint64(buf[offChecksum:], headerChecksum(buf, len(h.meta)))
	return buf
}

func headerChecksum(buf []byte, metaLen int) uint64 {
	d := xxhash.New()
	d.Write(buf[:offChecksum])
	d.Write(buf[headerFixedSize : headerFixedSize+metaLen])
	return d.Sum64()
}

// peekPageSize validates the fixed prefix and returns the recorded page size.
func peekPageSize(prefix []byte) (int, error) {
	if len(prefix) < headerFixedSize {
		return 0, errs.Corruption("header page truncated: %d bytes", len(prefix))
	}
	if !bytes.Equal(prefix[offMagic:offMagic+8], magic[:]) {
		return 0, errs.Corruption("bad magic %q", prefix[offMagic:offMagic+8])
	}
	if v := binary.LittleEndian.Uint32(prefix[offVersion:]); v != FormatVersion {
		return 0, errs.Corruption("unsupported format version %d (want %d)", v, FormatVersion)
	}
	return int(binary.LittleEndian.Uint32(prefix[offPageSize:])), nil
}

func decodeHeader(buf []byte) (fileHeader, error) {
	pageSize, err := peekPageSize(buf)
	if err != nil {
		return fileHeader{}, err
	}
	if pageSize != len(buf) {
		return fileHeader{}, errs.Corruption("header page is %d bytes, page size says %d", len(buf), pageSize)
	}
	metaLen := int(binary.LittleEndian.Uint32(buf[offMetaLen:]))
	if metaLen > MetaCapacity(pageSize) {
		return fileHeader{}, errs.Corruption("meta length %d exceeds header capacity %d", metaLen, MetaCapacity(pageSize))
	}
	stored := binary.LittleEndian.Uint64(buf[offChecksum:])
	if sum := headerChecksum(buf, metaLen); sum != stored {
		return fileHeader{}, errs.Corruption("header checksum mismatch (stored %x, computed %x)", stored, sum)
	}
	meta := make([]byte, metaLen)
	copy(meta, buf[headerFixedSize:headerFixedSize+metaLen])
	return fileHeader{
		pageSize: pageSize,
		numPages: int64(binary.LittleEndian.Uint64(buf[offNumPages:])),
		freeHead: int64(binary.LittleEndian.Uint64(buf[offFreeHead:])),
		meta:     meta,
	}, nil
}
