package suffixtree

import (
	"SuffixDB/errs"
	sequencestore "SuffixDB/storage_engine/sequence_store"
	"SuffixDB/types"
	"math"
	"strconv"

	"go.uber.org/zap"
)

const (
	DefaultAlphabet     = "ACGT"
	DefaultPoolCapacity = 1024
	DefaultMaxSequences = 64

	// MaxOffset is the largest global symbol offset; OpenEnd stays above it.
	MaxOffset uint32 = math.MaxUint32 - 1

	minPoolCapacity = 8
)

// Options configures a tree. Alphabet, PageSize, MaxSequences, MaxOffset and
// ChunkSymbols are fixed at Build and read back from the header on Open; the
// remaining fields apply per handle.
type Options struct {
	Alphabet        string
	PageSize        int
	PoolCapacity    int
	MaxSequences    int
	MaxOffset       uint32
	ChunkSymbols    int
	ChunkCacheBytes int64
	Logger          *zap.Logger
}

type Option func(*Options)

func DefaultOptions() Options {
	return Options{
		Alphabet:        DefaultAlphabet,
		PageSize:        types.DefaultPageSize,
		PoolCapacity:    DefaultPoolCapacity,
		MaxSequences:    DefaultMaxSequences,
		MaxOffset:       MaxOffset,
		ChunkSymbols:    sequencestore.DefaultChunkSymbols,
		ChunkCacheBytes: sequencestore.DefaultCacheBytes,
		Logger:          zap.NewNop(),
	}
}

func WithAlphabet(alphabet string) Option {
	return func(o *Options) { o.Alphabet = alphabet }
}

func WithPageSize(size int) Option {
	return func(o *Options) { o.PageSize = size }
}

func WithPoolCapacity(frames int) Option {
	return func(o *Options) { o.PoolCapacity = frames }
}

func WithMaxSequences(n int) Option {
	return func(o *Options) { o.MaxSequences = n }
}

// WithMaxOffset caps the total number of symbols, sentinels included, that
// the tree will accept.
func WithMaxOffset(off uint32) Option {
	return func(o *Options) { o.MaxOffset = off }
}

func WithChunkSymbols(n int) Option {
	return func(o *Options) { o.ChunkSymbols = n }
}

func WithChunkCacheBytes(n int64) Option {
	return func(o *Options) { o.ChunkCacheBytes = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.PoolCapacity < minPoolCapacity {
		o.PoolCapacity = minPoolCapacity
	}
	if o.ChunkSymbols <= 0 {
		o.ChunkSymbols = sequencestore.DefaultChunkSymbols
	}
	if o.MaxOffset > MaxOffset {
		o.MaxOffset = MaxOffset
	}
	return o
}

// validate checks the parts of a configuration that are fixed at Build.
func (o Options) validate() error {
	if o.PageSize < types.MinPageSize || o.PageSize > types.MaxPageSize {
		return errs.Mark(errs.ErrCapacityExceeded, "page size %d outside [%d, %d]", o.PageSize, types.MinPageSize, types.MaxPageSize)
	}
	if o.MaxSequences < 1 {
		return errs.Mark(errs.ErrCapacityExceeded, "max sequences must be positive, got %d", o.MaxSequences)
	}
	if len(o.Alphabet)+o.MaxSequences > math.MaxUint16 {
		return errs.Mark(errs.ErrCapacityExceeded, "alphabet of %d plus %d sentinels does not fit 16-bit codes", len(o.Alphabet), o.MaxSequences)
	}
	return nil
}

// alphabet maps bytes to symbol codes. Codes at or above size() are sentinels.
type alphabet struct {
	symbols string
	codes   [256]int16
}

func newAlphabet(symbols string) (alphabet, error) {
	a := alphabet{symbols: symbols}
	if len(symbols) == 0 || len(symbols) > 255 {
		return a, errs.Mark(errs.ErrInvalidSymbol, "alphabet must hold 1..255 symbols, got %d", len(symbols))
	}
	for i := range a.codes {
		a.codes[i] = -1
	}
	for i := 0; i < len(symbols); i++ {
		b := symbols[i]
		if a.codes[b] >= 0 {
			return a, errs.Mark(errs.ErrInvalidSymbol, "alphabet repeats symbol %q", b)
		}
		a.codes[b] = int16(i)
	}
	return a, nil
}

func (a *alphabet) size() int {
	return len(a.symbols)
}

func (a *alphabet) sentinel(slot uint32) uint16 {
	return uint16(len(a.symbols)) + uint16(slot)
}

func (a *alphabet) isSentinel(code uint16) bool {
	return int(code) >= len(a.symbols)
}

// encode maps symbols to codes. ok is false at the first byte outside the
// alphabet, whose index is returned.
func (a *alphabet) encode(symbols []byte) (codes []uint16, bad int, ok bool) {
	codes = make([]uint16, len(symbols))
	for i, b := range symbols {
		c := a.codes[b]
		if c < 0 {
			return nil, i, false
		}
		codes[i] = uint16(c)
	}
	return codes, -1, true
}

// label renders codes for display. Sentinel of slot k prints as $k.
func (a *alphabet) label(codes []uint16) string {
	var out []byte
	for _, c := range codes {
		if a.isSentinel(c) {
			out = append(out, '$')
			out = strconv.AppendUint(out, uint64(int(c)-len(a.symbols)), 10)
			continue
		}
		out = append(out, a.symbols[c])
	}
	return string(out)
}
