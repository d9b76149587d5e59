// dump_sample runs the seed program and the tree inspector, writing all output
// to cmd/sample_run_output.txt. Run from repo root: go run ./cmd/dump_sample
package main

import (
	"SuffixDB/suffixtree"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	baseDir    = "demo"
	outputFile = "cmd/sample_run_output.txt"
)

func main() {
	outPath := outputFile
	// If run from cmd/dump_sample, output next to binary
	if _, err := os.Stat("cmd"); os.IsNotExist(err) {
		outPath = "sample_run_output.txt"
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	// Clean previous run so seed starts fresh
	os.RemoveAll(baseDir)

	// 1) Run seed: capture stdout/stderr to file
	fmt.Fprintln(f, "========== SEED (generate sequences, build tree, query) ==========")
	cmd := exec.Command("go", "run", "./cmd/seed", "-sequences", "4", "-words", "6")
	cmd.Stdout = f
	cmd.Stderr = f
	cmd.Dir = repoRoot()
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(f, "seed exited with error: %v\n", err)
	}

	// 2) Dump the tree
	path := filepath.Join(repoRoot(), baseDir, "words.stree")
	fmt.Fprintf(f, "\n========== INSPECT %s ==========\n", filepath.Base(path))
	if err := inspectTo(f, path); err != nil {
		fmt.Fprintf(f, "inspect error: %v\n", err)
	}

	fmt.Printf("Output written to %s\n", outPath)
}

func inspectTo(f *os.File, path string) error {
	tree, err := suffixtree.Open(path)
	if err != nil {
		return err
	}
	defer tree.Close()
	return tree.Inspect(f, 0)
}

func repoRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
