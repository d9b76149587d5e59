package sequencestore

import (
	"SuffixDB/errs"
)

/*
The sequence store is the append-only symbol region every edge label points
into. Symbols are stored as uint16 codes: alphabet symbols first, then one
reserved sentinel code per sequence slot.

Store is the write side used during construction, it keeps every code in
memory. Reader (reader.go) is the read side used by queries, it pulls
compressed chunks from the region on demand.
*/

// Source is what the query engine needs from either side.
type Source interface {
	At(off uint32) (uint16, error)
	Len() uint32
}

type Store struct {
	codes []uint16
}

func NewStore() *Store {
	return &Store{}
}

// Append adds codes at the end of the store and returns the offset of the
// first one.
func (s *Store) Append(codes []uint16) uint32 {
	base := uint32(len(s.codes))
	s.codes = append(s.codes, codes...)
	return base
}

// Code is the unchecked accessor used on the construction hot path.
func (s *Store) Code(off uint32) uint16 {
	return s.codes[off]
}

func (s *Store) At(off uint32) (uint16, error) {
	if int(off) >= len(s.codes) {
		return 0, errs.Corruption("symbol offset %d beyond store length %d", off, len(s.codes))
	}
	return s.codes[off], nil
}

func (s *Store) Len() uint32 {
	return uint32(len(s.codes))
}

// Slice returns codes in [start, end).
func (s *Store) Slice(start, end uint32) []uint16 {
	return s.codes[start:end]
}

// LoadStore reads a whole persisted region back into memory, used when a
// finalized tree re-enters construction.
func LoadStore(r *Reader) (*Store, error) {
	codes, err := r.Slice(0, r.Len())
	if err != nil {
		return nil, err
	}
	return &Store{codes: codes}, nil
}
