// Inspect a suffix tree file.
// Usage: go run ./cmd/inspect_tree <path-to-.stree> [max-nodes]
// Example: go run ./cmd/inspect_tree demo/words.stree 100
package main

import (
	"fmt"
	"os"
	"strconv"

	"SuffixDB/suffixtree"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <tree.stree> [max-nodes]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s demo/words.stree 100\n", os.Args[0])
		os.Exit(1)
	}
	limit := 0
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: bad node limit %q\n", os.Args[2])
			os.Exit(1)
		}
		limit = n
	}
	if err := inspect(os.Args[1], limit); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func inspect(path string, limit int) error {
	tree, err := suffixtree.Open(path)
	if err != nil {
		return err
	}
	defer tree.Close()
	return tree.Inspect(os.Stdout, limit)
}
