package suffixtree

import (
	"SuffixDB/errs"
	diskmanager "SuffixDB/storage_engine/disk_manager"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, seqs []Sequence, opts ...Option) (*Tree, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.stree")
	tree, err := Build(path, seqs, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { tree.Close() })
	return tree, path
}

func seqs(symbols ...string) []Sequence {
	out := make([]Sequence, len(symbols))
	for i, s := range symbols {
		out[i] = Sequence{ID: uint32(i), Symbols: []byte(s)}
	}
	return out
}

func TestExactBanana(t *testing.T) {
	tree, _ := newTestTree(t, seqs("banana"), WithAlphabet("abn"))

	got, err := tree.Exact([]byte("ana"))
	require.NoError(t, err)
	assert.Equal(t, []Match{{0, 1}, {0, 3}}, got)

	got, err = tree.Exact([]byte("banana"))
	require.NoError(t, err)
	assert.Equal(t, []Match{{0, 0}}, got)

	got, err = tree.Exact([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []Match{{0, 1}, {0, 3}, {0, 5}}, got)

	for _, absent := range []string{"xyz", "", "nab", "bananab", "a$"} {
		got, err = tree.Exact([]byte(absent))
		require.NoError(t, err)
		assert.Empty(t, got, "pattern %q", absent)
	}

	n, err := tree.Count([]byte("an"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	n, err = tree.Count([]byte("nn"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLongestCommonSubstring(t *testing.T) {
	tree, _ := newTestTree(t, []Sequence{
		{ID: 10, Symbols: []byte("gatta")},
		{ID: 20, Symbols: []byte("tagac")},
		{ID: 30, Symbols: []byte("cccc")},
	}, WithAlphabet("acgt"))

	lcs, err := tree.LongestCommonSubstring(10, 20)
	require.NoError(t, err)
	assert.Equal(t, LCS{Length: 2, Symbols: []byte("ga"), PositionA: 0, PositionB: 2}, lcs)

	lcs, err = tree.LongestCommonSubstring(20, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), lcs.Length)
	assert.Equal(t, []byte("ta"), lcs.Symbols, "ties go to the smallest position in the first sequence")
	assert.Equal(t, uint32(0), lcs.PositionA)
	assert.Equal(t, uint32(3), lcs.PositionB)

	lcs, err = tree.LongestCommonSubstring(10, 30)
	require.NoError(t, err)
	assert.Zero(t, lcs.Length)

	lcs, err = tree.LongestCommonSubstring(30, 30)
	require.NoError(t, err)
	assert.Equal(t, []byte("cccc"), lcs.Symbols)

	_, err = tree.LongestCommonSubstring(10, 99)
	assert.True(t, errs.Is(err, errs.ErrUnknownSequence))
}

func TestLeafCountAndSuffixLinks(t *testing.T) {
	input := seqs("ACGTACGTTAGC", "GGGGACGTA", "TTTTTTTT", "ACACACACAC")
	tree, _ := newTestTree(t, input)

	var want uint64
	for _, s := range input {
		want += uint64(len(s.Symbols)) + 1
	}
	stats, err := tree.Stats()
	require.NoError(t, err)
	assert.Equal(t, want, stats.Leaves)

	root, err := tree.info(tree.meta.root, anySlot)
	require.NoError(t, err)
	assert.Equal(t, want, root.leaves)

	checkSuffixLinks(t, tree)
}

func TestPoolEvictionDuringBuild(t *testing.T) {
	input := seqs("ACGTTGCAACGGTACCAGTAGGATCCA", "TTGACCAGTAGGATACGGA", "CAGTAGGA")
	small, _ := newTestTree(t, input, WithPoolCapacity(8), WithPageSize(1024))
	large, _ := newTestTree(t, input)

	stats, err := small.Stats()
	require.NoError(t, err)
	assert.Greater(t, stats.Pool.Evictions, uint64(0))

	for _, p := range []string{"CAGTAGGA", "A", "GGA", "TTG", "ACGGTA"} {
		a, err := small.Exact([]byte(p))
		require.NoError(t, err)
		b, err := large.Exact([]byte(p))
		require.NoError(t, err)
		assert.Equal(t, b, a, "pattern %s", p)
	}
	checkSuffixLinks(t, small)
}

func TestReopen(t *testing.T) {
	input := []Sequence{
		{ID: 7, Symbols: []byte("ACGTACGGT")},
		{ID: 3, Symbols: []byte("TACGA")},
	}
	tree, path := newTestTree(t, input, WithPageSize(1024), WithChunkSymbols(4))
	before, err := tree.Exact([]byte("ACG"))
	require.NoError(t, err)
	statsBefore, err := tree.Stats()
	require.NoError(t, err)
	require.NoError(t, tree.Close())
	require.NoError(t, tree.Close())

	_, err = tree.Exact([]byte("ACG"))
	assert.True(t, errs.Is(err, errs.ErrClosed))

	reopened, err := Open(path, WithPoolCapacity(8))
	require.NoError(t, err)
	defer reopened.Close()

	after, err := reopened.Exact([]byte("ACG"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []Match{{3, 1}, {7, 0}, {7, 4}}, after)

	statsAfter, err := reopened.Stats()
	require.NoError(t, err)
	assert.Equal(t, statsBefore.StoreID, statsAfter.StoreID)
	assert.Equal(t, statsBefore.Nodes, statsAfter.Nodes)
	assert.Equal(t, 1024, statsAfter.PageSize)

	symbols, err := reopened.Symbols(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("TACGA"), symbols)

	infos := reopened.Sequences()
	require.Len(t, infos, 2)
	assert.Equal(t, SequenceInfo{ID: 3, Slot: 1, Base: 10, Length: 6, Complete: true}, infos[1])
}

func TestBuildRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input []Sequence
		opts  []Option
		want  error
	}{
		{"symbol outside alphabet", seqs("ACGN"), nil, errs.ErrInvalidSymbol},
		{"sentinel byte", seqs("AC$"), nil, errs.ErrInvalidSymbol},
		{"empty sequence", seqs("ACG", ""), nil, errs.ErrInvalidSymbol},
		{"duplicate id", []Sequence{{ID: 1, Symbols: []byte("A")}, {ID: 1, Symbols: []byte("C")}}, nil, errs.ErrDuplicateSequenceID},
		{"too many sequences", seqs("A", "C", "G"), []Option{WithMaxSequences(2)}, errs.ErrCapacityExceeded},
		{"offset overflow", seqs("ACGT", "ACGT"), []Option{WithMaxOffset(8)}, errs.ErrCapacityExceeded},
		{"node larger than page", seqs("A"), []Option{WithPageSize(512), WithMaxSequences(200)}, errs.ErrCapacityExceeded},
		{"bad alphabet", seqs("A"), []Option{WithAlphabet("AA")}, errs.ErrInvalidSymbol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.stree")
			_, err := Build(path, tt.input, tt.opts...)
			assert.True(t, errs.Is(err, tt.want), "got %v", err)
			assert.NoFileExists(t, path)
		})
	}

	// exactly at the offset limit is fine: 4 symbols + sentinel end at offset 4
	tree, _ := newTestTree(t, seqs("ACGT"), WithMaxOffset(4))
	n, err := tree.Count([]byte("CG"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestAppendRejectsBadInputWithoutChanges(t *testing.T) {
	tree, path := newTestTree(t, seqs("ACGTAC", "GTACG"))
	before, err := tree.Exact([]byte("AC"))
	require.NoError(t, err)

	err = tree.Append([]Sequence{{ID: 9, Symbols: []byte("AC$G")}})
	assert.True(t, errs.Is(err, errs.ErrInvalidSymbol))
	err = tree.Append([]Sequence{{ID: 1, Symbols: []byte("ACGT")}})
	assert.True(t, errs.Is(err, errs.ErrDuplicateSequenceID))

	after, err := tree.Exact([]byte("AC"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, tree.Sequences(), 2)

	require.NoError(t, tree.Close())
	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	after, err = reopened.Exact([]byte("AC"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAppendMatchesSingleBuild(t *testing.T) {
	all := seqs("ACGTTGCAACGG", "TTGACCAGTA", "CAGTAGGATCC", "GGATACGT")
	whole, _ := newTestTree(t, all)
	grown, path := newTestTree(t, all[:2], WithPageSize(1024))

	require.NoError(t, grown.Append(all[2:3]))
	require.NoError(t, grown.Append(all[3:]))
	require.NoError(t, grown.Append(nil))
	checkSuffixLinks(t, grown)

	compare := func(got *Tree) {
		for _, p := range []string{"A", "AC", "GGA", "CAGTA", "TTG", "ACGT", "GATCC", "TTTT"} {
			a, err := whole.Exact([]byte(p))
			require.NoError(t, err)
			b, err := got.Exact([]byte(p))
			require.NoError(t, err)
			assert.Equal(t, a, b, "pattern %s", p)
		}
		for a := uint32(0); a < 4; a++ {
			for b := uint32(0); b < 4; b++ {
				x, err := whole.LongestCommonSubstring(a, b)
				require.NoError(t, err)
				y, err := got.LongestCommonSubstring(a, b)
				require.NoError(t, err)
				assert.Equal(t, x, y, "lcs(%d,%d)", a, b)
			}
		}
		sw, err := whole.Stats()
		require.NoError(t, err)
		sg, err := got.Stats()
		require.NoError(t, err)
		assert.Equal(t, sw.Leaves, sg.Leaves)
		assert.Equal(t, sw.Nodes, sg.Nodes)
	}
	compare(grown)

	require.NoError(t, grown.Close())
	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	compare(reopened)

	require.NoError(t, reopened.Append(seqs("A")[:0]))
	err = reopened.Append([]Sequence{{ID: 2, Symbols: []byte("A")}})
	assert.True(t, errs.Is(err, errs.ErrDuplicateSequenceID))
}

func TestOpenRejectsUnfinalizedAndForeignStores(t *testing.T) {
	tree, path := newTestTree(t, seqs("ACGT"))
	require.NoError(t, tree.Close())

	dm, err := diskmanager.Open(path)
	require.NoError(t, err)
	meta, err := decodeMeta(dm.Meta())
	require.NoError(t, err)
	meta.finalized = false
	require.NoError(t, dm.SetMeta(meta.encode()))
	require.NoError(t, dm.Close())

	_, err = Open(path)
	assert.True(t, errs.Is(err, errs.ErrNotFinalized), "got %v", err)

	bare := filepath.Join(t.TempDir(), "bare.stree")
	dm, err = diskmanager.Create(bare, 1024)
	require.NoError(t, err)
	require.NoError(t, dm.Close())
	_, err = Open(bare)
	assert.True(t, errs.Is(err, errs.ErrCorruption), "got %v", err)

	_, err = Open(filepath.Join(t.TempDir(), "missing.stree"))
	assert.True(t, errs.Is(err, errs.ErrIO))
}

func TestExactBatch(t *testing.T) {
	tree, _ := newTestTree(t, seqs("ACGTACGTTAGC", "GGGGACGTA"))
	patterns := [][]byte{[]byte("ACG"), []byte("G"), []byte("TTT"), []byte("GTA"), nil}

	got, err := tree.ExactBatch(context.Background(), patterns, 3)
	require.NoError(t, err)
	require.Len(t, got, len(patterns))
	for i, p := range patterns {
		want, err := tree.Exact(p)
		require.NoError(t, err)
		assert.Equal(t, want, got[i], "pattern %q", p)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tree.ExactBatch(ctx, patterns, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDestroy(t *testing.T) {
	tree, path := newTestTree(t, seqs("ACGT"))
	require.NoError(t, tree.Close())
	require.NoError(t, Destroy(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, Destroy(path))
}

// checkSuffixLinks verifies that every internal node links to the node whose
// path label is its own minus the first symbol.
func checkSuffixLinks(t *testing.T, tree *Tree) {
	t.Helper()
	labels := make(map[int64]string)
	links := make(map[int64]int64)

	type entry struct {
		id    int64
		label string
	}
	stack := []entry{{id: tree.meta.root}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		require.NoError(t, tree.view(e.id, func(n *Node) error {
			label := e.label
			if n.kind != NodeRoot {
				for off := n.start; off <= n.end; off++ {
					c, err := tree.symbols.At(off)
					require.NoError(t, err)
					label += string(rune(c))
				}
			}
			if n.isLeaf() {
				return nil
			}
			assert.Equal(t, uint32(len([]rune(label))), n.depth, "depth of node %d", n.id)
			labels[n.id] = label
			if n.kind == NodeInternal {
				links[n.id] = n.suffixLink
			}
			for _, c := range n.children {
				if c != 0 {
					stack = append(stack, entry{id: c, label: label})
				}
			}
			return nil
		}))
	}

	for id, link := range links {
		require.NotZero(t, link, "node %d has no suffix link", id)
		want := string([]rune(labels[id])[1:])
		assert.Equal(t, want, labels[link], "suffix link of node %d", id)
	}
}
