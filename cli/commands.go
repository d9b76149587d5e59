package cli

import (
	"SuffixDB/suffixtree"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func parseID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

// withTree opens the tree at path, runs fn and closes it.
func withTree(g *globals, path string, fn func(t *suffixtree.Tree) error) error {
	t, err := g.open(path)
	if err != nil {
		return err
	}
	ferr := fn(t)
	if err := t.Close(); err != nil && ferr == nil {
		return err
	}
	return ferr
}

func newBuildCmd(g *globals) *cobra.Command {
	defaults := suffixtree.DefaultOptions()
	var (
		alphabet     string
		pageSize     int
		maxSequences int
		chunkSymbols int
	)
	cmd := &cobra.Command{
		Use:   "build <tree-file> <sequence-file>",
		Short: "Build a tree from a sequence file",
		Long: `Build indexes every sequence of a plain-text file, one per line, optionally
written as "id<TAB>symbols". Lines starting with '>' or '#' are ignored.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seqs, err := suffixtree.LoadSequences(args[1])
			if err != nil {
				return err
			}
			started := time.Now()
			t, err := suffixtree.Build(args[0], seqs, g.options(
				suffixtree.WithAlphabet(alphabet),
				suffixtree.WithPageSize(pageSize),
				suffixtree.WithMaxSequences(maxSequences),
				suffixtree.WithChunkSymbols(chunkSymbols),
			)...)
			if err != nil {
				return err
			}
			defer t.Close()

			st, err := t.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			okColor.Fprintf(out, "built %s", args[0])
			fmt.Fprintf(out, " in %s: %d sequences, %s symbols, %s nodes, %s\n",
				time.Since(started).Round(time.Millisecond), st.Sequences,
				humanize.Comma(int64(st.TotalSymbols)), humanize.Comma(int64(st.Nodes)),
				humanize.IBytes(uint64(st.Pages)*uint64(st.PageSize)))
			return nil
		},
	}
	cmd.Flags().StringVar(&alphabet, "alphabet", defaults.Alphabet, "symbols allowed in sequences")
	cmd.Flags().IntVar(&pageSize, "page-size", defaults.PageSize, "page size in bytes")
	cmd.Flags().IntVar(&maxSequences, "max-sequences", defaults.MaxSequences, "maximum number of sequences the tree can hold")
	cmd.Flags().IntVar(&chunkSymbols, "chunk-symbols", defaults.ChunkSymbols, "symbols per compressed chunk")
	return cmd
}

func newAppendCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "append <tree-file> <sequence-file>",
		Short: "Add sequences to an existing tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seqs, err := suffixtree.LoadSequences(args[1])
			if err != nil {
				return err
			}
			return withTree(g, args[0], func(t *suffixtree.Tree) error {
				if err := t.Append(seqs); err != nil {
					return err
				}
				okColor.Fprintf(cmd.OutOrStdout(), "appended %d sequences\n", len(seqs))
				return nil
			})
		},
	}
}

func newQueryCmd(g *globals) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "query <tree-file> <pattern>...",
		Short: "Find every exact occurrence of one or more patterns",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTree(g, args[0], func(t *suffixtree.Tree) error {
				patterns := make([][]byte, len(args)-1)
				for i, p := range args[1:] {
					patterns[i] = []byte(p)
				}
				results, err := t.ExactBatch(context.Background(), patterns, workers)
				if err != nil {
					return err
				}
				for i, ms := range results {
					printMatches(cmd.OutOrStdout(), args[i+1], ms)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "patterns searched concurrently")
	return cmd
}

func newCountCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "count <tree-file> <pattern>",
		Short: "Count occurrences of a pattern without listing them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTree(g, args[0], func(t *suffixtree.Tree) error {
				n, err := t.Count([]byte(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", matchColor.Sprint(args[1]), humanize.Comma(int64(n)))
				return nil
			})
		},
	}
}

func newLCSCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "lcs <tree-file> <seq-a> <seq-b>",
		Short: "Longest common substring of two sequences",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parseID(args[1])
			if err != nil {
				return err
			}
			b, err := parseID(args[2])
			if err != nil {
				return err
			}
			return withTree(g, args[0], func(t *suffixtree.Tree) error {
				lcs, err := t.LongestCommonSubstring(a, b)
				if err != nil {
					return err
				}
				printLCS(cmd.OutOrStdout(), a, b, lcs)
				return nil
			})
		},
	}
}

func newAnchorsCmd(g *globals) *cobra.Command {
	var minLength uint32
	cmd := &cobra.Command{
		Use:   "anchors <tree-file> <seq>",
		Short: "Maximal exact matches of a sequence against all others",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withTree(g, args[0], func(t *suffixtree.Tree) error {
				anchors, err := t.Anchors(id, minLength)
				if err != nil {
					return err
				}
				printAnchors(cmd.OutOrStdout(), id, anchors)
				return nil
			})
		},
	}
	cmd.Flags().Uint32Var(&minLength, "min", 12, "minimum anchor length")
	return cmd
}

func newSeedsCmd(g *globals) *cobra.Command {
	var mismatches int
	cmd := &cobra.Command{
		Use:   "seeds <tree-file> <seq> <position>",
		Short: "Seed and extend alignments starting at a sequence position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			pos, err := parseID(args[2])
			if err != nil {
				return err
			}
			return withTree(g, args[0], func(t *suffixtree.Tree) error {
				seeds, err := t.SeedExtend(id, pos, mismatches)
				if err != nil {
					return err
				}
				printSeeds(cmd.OutOrStdout(), seeds)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&mismatches, "mismatches", "k", 2, "substitutions allowed while extending")
	return cmd
}

func newStatsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <tree-file>",
		Short: "Show tree and file statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTree(g, args[0], func(t *suffixtree.Tree) error {
				st, err := t.Stats()
				if err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
}

func newInspectCmd(g *globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "inspect <tree-file>",
		Short: "Dump the tree structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTree(g, args[0], func(t *suffixtree.Tree) error {
				return t.Inspect(cmd.OutOrStdout(), limit)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 200, "maximum nodes to print, 0 for all")
	return cmd
}

func newDotCmd(g *globals) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "dot <tree-file>",
		Short: "Export the tree as a Graphviz digraph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTree(g, args[0], func(t *suffixtree.Tree) error {
				if output == "" || output == "-" {
					return t.ExportDOT(cmd.OutOrStdout())
				}
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				if err := t.ExportDOT(f); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file")
	return cmd
}
