package sequencestore

import (
	"SuffixDB/errs"
	diskmanager "SuffixDB/storage_engine/disk_manager"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDisk(t *testing.T) (*diskmanager.DiskManager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symbols.stree")
	dm, err := diskmanager.Create(path, 512)
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	return dm, path
}

func sampleStore(n int) *Store {
	s := NewStore()
	codes := make([]uint16, n)
	for i := range codes {
		codes[i] = uint16((i * 7) % 300)
	}
	s.Append(codes)
	return s
}

func TestStoreAppendOffsets(t *testing.T) {
	s := NewStore()
	assert.Equal(t, uint32(0), s.Append([]uint16{1, 2, 3}))
	assert.Equal(t, uint32(3), s.Append([]uint16{4, 5}))
	assert.Equal(t, uint32(5), s.Len())

	c, err := s.At(3)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), c)

	_, err = s.At(5)
	assert.True(t, errs.Is(err, errs.ErrCorruption))
}

func TestRegionRoundTrip(t *testing.T) {
	tests := []struct {
		name         string
		symbols      int
		chunkSymbols int
	}{
		{"empty", 0, 16},
		{"single partial chunk", 5, 16},
		{"exact chunk boundary", 64, 16},
		{"many chunks spanning pages", 5000, 100},
		{"default chunk size", 3000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dm, path := newTestDisk(t)
			s := sampleStore(tt.symbols)

			region, err := WriteRegion(dm, s, tt.chunkSymbols)
			require.NoError(t, err)
			require.NoError(t, dm.Close())

			reopened, err := diskmanager.Open(path)
			require.NoError(t, err)
			defer reopened.Close()

			rd, err := OpenReader(reopened, region, 1<<20, nil)
			require.NoError(t, err)
			defer rd.Close()

			require.Equal(t, s.Len(), rd.Len())
			for _, off := range []int{0, 1, tt.symbols / 2, tt.symbols - 1} {
				if off < 0 || off >= tt.symbols {
					continue
				}
				got, err := rd.At(uint32(off))
				require.NoError(t, err)
				assert.Equal(t, s.Code(uint32(off)), got, "offset %d", off)
			}

			all, err := rd.Slice(0, rd.Len())
			require.NoError(t, err)
			require.Len(t, all, tt.symbols)
			if tt.symbols > 0 {
				assert.Equal(t, s.Slice(0, s.Len()), all)
			}

			loaded, err := LoadStore(rd)
			require.NoError(t, err)
			assert.Equal(t, s.Len(), loaded.Len())
		})
	}
}

func TestRegionFreeReturnsEveryPage(t *testing.T) {
	dm, _ := newTestDisk(t)
	s := sampleStore(4000)

	before := dm.NumPages()
	region, err := WriteRegion(dm, s, 256)
	require.NoError(t, err)
	assert.Equal(t, int64(region.Pages), dm.NumPages()-before)

	require.NoError(t, FreeRegion(dm, region))
	assert.Equal(t, int(region.Pages), dm.FreeCount())

	// rewriting the same region reuses the freed pages
	_, err = WriteRegion(dm, s, 256)
	require.NoError(t, err)
	assert.Equal(t, before+int64(region.Pages), dm.NumPages())
}

func TestRegionDetectsCorruptChunk(t *testing.T) {
	dm, _ := newTestDisk(t)
	s := sampleStore(2000)
	region, err := WriteRegion(dm, s, 128)
	require.NoError(t, err)

	data, _, err := readDirectory(dm, region)
	require.NoError(t, err)
	last := data[len(data)-1]
	raw, err := dm.ReadPage(last)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x5a
	require.NoError(t, dm.WritePage(last, raw))

	rd, err := OpenReader(dm, region, 1<<20, nil)
	if err != nil {
		assert.True(t, errs.Is(err, errs.ErrCorruption))
		return
	}
	defer rd.Close()
	_, err = rd.Slice(0, rd.Len())
	assert.True(t, errs.Is(err, errs.ErrCorruption), "got %v", err)
}
