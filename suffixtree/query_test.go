package suffixtree

import (
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lowercase = "abcdefghijklmnopqrstuvwxyz"

// fakerSequences joins random words into sequences over the lowercase alphabet.
func fakerSequences(n, words int) []Sequence {
	out := make([]Sequence, n)
	for i := range out {
		var sb strings.Builder
		for sb.Len() == 0 {
			for w := 0; w < words; w++ {
				for _, r := range faker.Word() {
					if r >= 'a' && r <= 'z' {
						sb.WriteRune(r)
					}
				}
			}
		}
		out[i] = Sequence{ID: uint32(100 + i), Symbols: []byte(sb.String())}
	}
	return out
}

// randomSequences draws from a tiny alphabet so repeats are frequent.
func randomSequences(rng *rand.Rand, alphabet string, n, maxLen int) []Sequence {
	out := make([]Sequence, n)
	for i := range out {
		b := make([]byte, 1+rng.Intn(maxLen))
		for j := range b {
			b[j] = alphabet[rng.Intn(len(alphabet))]
		}
		out[i] = Sequence{ID: uint32(i * 3), Symbols: b}
	}
	return out
}

func naiveExact(input []Sequence, pattern string) []Match {
	out := []Match{}
	if pattern == "" {
		return out
	}
	for _, s := range input {
		text := string(s.Symbols)
		for i := 0; i+len(pattern) <= len(text); i++ {
			if text[i:i+len(pattern)] == pattern {
				out = append(out, Match{SequenceID: s.ID, Position: uint32(i)})
			}
		}
	}
	sortMatches(out)
	return out
}

func samplePatterns(rng *rand.Rand, input []Sequence, alphabet string, n int) []string {
	var out []string
	for i := 0; i < n; i++ {
		s := input[rng.Intn(len(input))].Symbols
		lo := rng.Intn(len(s))
		hi := lo + 1 + rng.Intn(min(len(s)-lo, 8))
		out = append(out, string(s[lo:hi]))

		b := make([]byte, 1+rng.Intn(5))
		for j := range b {
			b[j] = alphabet[rng.Intn(len(alphabet))]
		}
		out = append(out, string(b))
	}
	return out
}

func TestExactAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tests := []struct {
		name     string
		alphabet string
		input    []Sequence
	}{
		{"faker words", lowercase, fakerSequences(6, 12)},
		{"binary repeats", "ab", randomSequences(rng, "ab", 8, 40)},
		{"dna", "ACGT", randomSequences(rng, "ACGT", 12, 120)},
		{"single symbol runs", "a", randomSequences(rng, "a", 5, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, _ := newTestTree(t, tt.input, WithAlphabet(tt.alphabet), WithPoolCapacity(16), WithPageSize(1024))
			checkSuffixLinks(t, tree)

			for _, p := range samplePatterns(rng, tt.input, tt.alphabet, 60) {
				got, err := tree.Exact([]byte(p))
				require.NoError(t, err)
				want := naiveExact(tt.input, p)
				assert.Equal(t, want, got, "pattern %q", p)

				n, err := tree.Count([]byte(p))
				require.NoError(t, err)
				assert.Equal(t, uint64(len(want)), n, "count %q", p)
			}
		})
	}
}

// naiveMatchingStats returns, for every position of query, the longest prefix
// of its suffix that occurs in one of others.
func naiveMatchingStats(query string, others []string) []int {
	ms := make([]int, len(query))
	for p := range query {
		for l := len(query) - p; l > 0; l-- {
			found := false
			for _, o := range others {
				if strings.Contains(o, query[p:p+l]) {
					found = true
					break
				}
			}
			if found {
				ms[p] = l
				break
			}
		}
	}
	return ms
}

func otherSequences(input []Sequence, id uint32) ([]string, []Sequence) {
	var texts []string
	var seqs []Sequence
	for _, s := range input {
		if s.ID != id {
			texts = append(texts, string(s.Symbols))
			seqs = append(seqs, s)
		}
	}
	return texts, seqs
}

func naiveAnchors(input []Sequence, id uint32, minLength int) []Anchor {
	var query string
	for _, s := range input {
		if s.ID == id {
			query = string(s.Symbols)
		}
	}
	texts, others := otherSequences(input, id)
	ms := naiveMatchingStats(query, texts)

	out := []Anchor{}
	for p, l := range ms {
		if l < max(minLength, 1) || (p > 0 && ms[p-1] > l) {
			continue
		}
		out = append(out, Anchor{
			Position: uint32(p),
			Length:   uint32(l),
			Matches:  naiveExact(others, query[p:p+l]),
		})
	}
	return out
}

func naiveSeeds(input []Sequence, id uint32, position, budget int) []Seed {
	var query string
	for _, s := range input {
		if s.ID == id {
			query = string(s.Symbols)
		}
	}
	out := []Seed{}
	if position >= len(query) {
		return out
	}
	texts, others := otherSequences(input, id)
	ms := naiveMatchingStats(query, texts)

	type diagonal struct {
		id    uint32
		start int
	}
	seen := map[diagonal]bool{}
	var diagonals []diagonal
	cur := position
	for anchor := 0; ; anchor++ {
		if l := ms[cur]; l > 0 {
			shift := cur - position
			for _, m := range naiveExact(others, query[cur:cur+l]) {
				d := diagonal{m.SequenceID, int(m.Position) - shift}
				if d.start >= 0 && !seen[d] {
					seen[d] = true
					diagonals = append(diagonals, d)
				}
			}
		}
		if anchor == budget {
			break
		}
		next := cur + ms[cur] + 1
		if next >= len(query) {
			break
		}
		cur = next
	}

	for _, d := range diagonals {
		var target string
		for _, s := range input {
			if s.ID == d.id {
				target = string(s.Symbols)
			}
		}
		length, mismatches, used := 0, 0, 0
		for j := 0; position+j < len(query) && d.start+j < len(target); j++ {
			if query[position+j] != target[d.start+j] {
				if used == budget {
					break
				}
				used++
				continue
			}
			length, mismatches = j+1, used
		}
		if length > 0 {
			out = append(out, Seed{
				SequenceID:    d.id,
				Position:      uint32(d.start),
				QueryPosition: uint32(position),
				Length:        uint32(length),
				Mismatches:    mismatches,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Length != out[j].Length {
			return out[i].Length > out[j].Length
		}
		if out[i].SequenceID != out[j].SequenceID {
			return out[i].SequenceID < out[j].SequenceID
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func TestAnchorsAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 4; round++ {
		input := randomSequences(rng, "ACGT", 5, 60)
		tree, _ := newTestTree(t, input, WithPoolCapacity(16))

		for _, s := range input {
			for _, minLength := range []uint32{0, 3, 6} {
				got, err := tree.Anchors(s.ID, minLength)
				require.NoError(t, err)
				assert.Equal(t, naiveAnchors(input, s.ID, int(minLength)), got,
					"round %d sequence %d min %d", round, s.ID, minLength)
			}
		}
	}
}

func TestAnchorsSkipOwnSequence(t *testing.T) {
	tree, _ := newTestTree(t, seqs("AAAAAAAA", "CCAC"))

	got, err := tree.Anchors(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []Anchor{
		{Position: 0, Length: 1, Matches: []Match{{1, 2}}},
		{Position: 1, Length: 1, Matches: []Match{{1, 2}}},
		{Position: 2, Length: 1, Matches: []Match{{1, 2}}},
		{Position: 3, Length: 1, Matches: []Match{{1, 2}}},
		{Position: 4, Length: 1, Matches: []Match{{1, 2}}},
		{Position: 5, Length: 1, Matches: []Match{{1, 2}}},
		{Position: 6, Length: 1, Matches: []Match{{1, 2}}},
		{Position: 7, Length: 1, Matches: []Match{{1, 2}}},
	}, got)
}

func TestSeedExtend(t *testing.T) {
	tree, _ := newTestTree(t, []Sequence{
		{ID: 1, Symbols: []byte("ACGTTACGATCG")},
		{ID: 2, Symbols: []byte("GGACGTAACGATCGG")},
	})

	// ACGT matches exactly, then T/A mismatch, then ACGATCG matches again
	seeds, err := tree.SeedExtend(1, 0, 1)
	require.NoError(t, err)
	require.NotEmpty(t, seeds)
	assert.Equal(t, Seed{SequenceID: 2, Position: 2, QueryPosition: 0, Length: 12, Mismatches: 1}, seeds[0])

	exact, err := tree.SeedExtend(1, 0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, exact)
	assert.Equal(t, Seed{SequenceID: 2, Position: 2, QueryPosition: 0, Length: 4}, exact[0])

	none, err := tree.SeedExtend(1, 12, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSeedExtendAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for round := 0; round < 3; round++ {
		input := randomSequences(rng, "ACGT", 4, 50)
		tree, _ := newTestTree(t, input, WithPoolCapacity(16))

		for _, s := range input {
			for _, budget := range []int{0, 1, 3} {
				for _, pos := range []int{0, len(s.Symbols) / 2, len(s.Symbols) - 1} {
					got, err := tree.SeedExtend(s.ID, uint32(pos), budget)
					require.NoError(t, err)
					assert.Equal(t, naiveSeeds(input, s.ID, pos, budget), got,
						"round %d sequence %d position %d budget %d", round, s.ID, pos, budget)
				}
			}
		}
	}
}
