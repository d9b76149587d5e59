// Seed program: writes a sample sequence file of go-faker words, builds a
// tree from it and runs a few queries.
// Run: go run ./cmd/seed
// Then inspect: go run ./cmd/inspect_tree demo/words.stree
package main

import (
	"SuffixDB/suffixtree"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faker/faker/v4"
	"go.uber.org/zap"
)

const (
	baseDir  = "demo"
	alphabet = "abcdefghijklmnopqrstuvwxyz"
)

var (
	numSequences = flag.Int("sequences", 8, "sequences to generate")
	wordsPerSeq  = flag.Int("words", 40, "faker words joined into each sequence")
)

// fakerSequence joins random words, keeping only lowercase letters.
func fakerSequence(words int) string {
	var sb strings.Builder
	for i := 0; i < words; i++ {
		for _, r := range strings.ToLower(faker.Word()) {
			if r >= 'a' && r <= 'z' {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}

func main() {
	flag.Parse()
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}

	seqPath := filepath.Join(baseDir, "words.txt")
	treePath := filepath.Join(baseDir, "words.stree")

	var lines []string
	lines = append(lines, "# generated by cmd/seed")
	for i := 0; i < *numSequences; i++ {
		lines = append(lines, fmt.Sprintf("%d\t%s", i, fakerSequence(*wordsPerSeq)))
	}
	if err := os.WriteFile(seqPath, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		log.Fatalf("write sequences: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	seqs, err := suffixtree.LoadSequences(seqPath)
	if err != nil {
		log.Fatalf("load sequences: %v", err)
	}
	tree, err := suffixtree.Build(treePath, seqs,
		suffixtree.WithAlphabet(alphabet),
		suffixtree.WithLogger(logger))
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	defer tree.Close()

	fmt.Println("\n--- occurrences of a few words ---")
	for _, w := range []string{faker.Word(), faker.Word(), "the"} {
		ms, err := tree.Exact([]byte(strings.ToLower(w)))
		if err != nil {
			log.Fatalf("exact %q: %v", w, err)
		}
		fmt.Printf("%-12s %d\n", w, len(ms))
	}

	if len(seqs) >= 2 {
		lcs, err := tree.LongestCommonSubstring(seqs[0].ID, seqs[1].ID)
		if err != nil {
			log.Fatalf("lcs: %v", err)
		}
		fmt.Printf("\n--- longest common substring of 0 and 1 ---\n%q (length %d)\n", lcs.Symbols, lcs.Length)
	}

	fmt.Println("\nDone. Inspect:")
	fmt.Println("  - Sequences:", seqPath)
	fmt.Println("  - Tree file:", treePath)
}
