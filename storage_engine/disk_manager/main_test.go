package diskmanager

import (
	"SuffixDB/errs"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPageSize = 1024

func newTestStore(t *testing.T) (*DiskManager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.stree")
	dm, err := Create(path, testPageSize)
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	return dm, path
}

// TestDiskManagerBasicOperations tests allocate/write/read and persistence across reopen
func TestDiskManagerBasicOperations(t *testing.T) {
	dm, path := newTestStore(t)

	pageID, err := dm.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pageID, "first allocated page follows the header page")

	data := make([]byte, testPageSize)
	copy(data, []byte("Hello, page store!"))
	require.NoError(t, dm.WritePage(pageID, data))

	got, err := dm.ReadPage(pageID)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))

	pageID2, err := dm.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, int64(2), pageID2)

	require.NoError(t, dm.SetMeta([]byte("tree meta")))
	require.NoError(t, dm.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, int64(3), reopened.NumPages())
	assert.Equal(t, testPageSize, reopened.PageSize())
	assert.Equal(t, []byte("tree meta"), reopened.Meta())

	persisted, err := reopened.ReadPage(pageID)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, persisted))
}

func TestDiskManagerReusesFreedPages(t *testing.T) {
	dm, _ := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := dm.AllocatePage()
		require.NoError(t, err)
	}
	require.NoError(t, dm.FreePage(2))
	require.NoError(t, dm.FreePage(4))
	assert.Equal(t, 2, dm.FreeCount())

	a, err := dm.AllocatePage()
	require.NoError(t, err)
	b, err := dm.AllocatePage()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 4}, []int64{a, b})

	c, err := dm.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, int64(6), c, "file grows once the free list is empty")
}

func TestDiskManagerFreeRejectsBadIDs(t *testing.T) {
	dm, _ := newTestStore(t)
	_, err := dm.AllocatePage()
	require.NoError(t, err)

	assert.True(t, errs.Is(dm.FreePage(0), errs.ErrCorruption), "header page cannot be freed")
	assert.True(t, errs.Is(dm.FreePage(9), errs.ErrCorruption))

	require.NoError(t, dm.FreePage(1))
	assert.True(t, errs.Is(dm.FreePage(1), errs.ErrCorruption), "double free")
}

func TestDiskManagerFreeListSurvivesReopen(t *testing.T) {
	dm, path := newTestStore(t)

	// enough ids to need more than one holder page
	perPage := dm.freeIDsPerPage()
	total := perPage*2 + 10
	for i := 0; i < total; i++ {
		_, err := dm.AllocatePage()
		require.NoError(t, err)
	}
	var freed []int64
	for id := int64(1); id <= int64(total); id += 1 {
		if id%3 == 0 {
			continue
		}
		require.NoError(t, dm.FreePage(id))
		freed = append(freed, id)
	}
	require.NoError(t, dm.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, len(freed), reopened.FreeCount())
	var got []int64
	for i := 0; i < len(freed); i++ {
		id, err := reopened.AllocatePage()
		require.NoError(t, err)
		got = append(got, id)
	}
	assert.ElementsMatch(t, freed, got)
	assert.Equal(t, int64(total+1), reopened.NumPages(), "reusing free pages must not grow the file")
}

func TestDiskManagerOpenDetectsCorruption(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		dm, path := newTestStore(t)
		_, err := dm.AllocatePage()
		require.NoError(t, err)
		require.NoError(t, dm.Close())

		require.NoError(t, os.Truncate(path, testPageSize+100))
		_, err = Open(path)
		assert.True(t, errs.Is(err, errs.ErrCorruption), "got %v", err)
	})

	t.Run("bad magic", func(t *testing.T) {
		dm, path := newTestStore(t)
		require.NoError(t, dm.Close())

		f, err := os.OpenFile(path, os.O_RDWR, 0644)
		require.NoError(t, err)
		_, err = f.WriteAt([]byte("NOTATREE"), 0)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, err = Open(path)
		assert.True(t, errs.Is(err, errs.ErrCorruption), "got %v", err)
	})

	t.Run("meta bit flip", func(t *testing.T) {
		dm, path := newTestStore(t)
		require.NoError(t, dm.SetMeta([]byte("important")))
		require.NoError(t, dm.Close())

		f, err := os.OpenFile(path, os.O_RDWR, 0644)
		require.NoError(t, err)
		_, err = f.WriteAt([]byte{'X'}, headerFixedSize+2)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, err = Open(path)
		assert.True(t, errs.Is(err, errs.ErrCorruption), "got %v", err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.stree")
		require.NoError(t, os.WriteFile(path, nil, 0644))
		_, err := Open(path)
		assert.True(t, errs.Is(err, errs.ErrCorruption), "got %v", err)
	})
}

func TestDiskManagerRejectsOversizedMeta(t *testing.T) {
	dm, _ := newTestStore(t)
	err := dm.SetMeta(make([]byte, MetaCapacity(testPageSize)+1))
	assert.True(t, errs.Is(err, errs.ErrCapacityExceeded))
}

func TestDiskManagerClosed(t *testing.T) {
	dm, _ := newTestStore(t)
	require.NoError(t, dm.Close())

	_, err := dm.AllocatePage()
	assert.ErrorIs(t, err, errs.ErrClosed)
	_, err = dm.ReadPage(0)
	assert.ErrorIs(t, err, errs.ErrClosed)
	assert.NoError(t, dm.Close(), "second close is a no-op")
}
