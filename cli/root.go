// Package cli is the suffixdb command line: cobra commands over a tree file.
package cli

import (
	"SuffixDB/suffixtree"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	Version = "dev"
	Commit  = "none"
)

// global flags
type globals struct {
	logLevel   string
	pool       int
	cacheBytes int64
	logger     *zap.Logger
}

func (g *globals) options(extra ...suffixtree.Option) []suffixtree.Option {
	opts := []suffixtree.Option{
		suffixtree.WithLogger(g.logger),
		suffixtree.WithPoolCapacity(g.pool),
		suffixtree.WithChunkCacheBytes(g.cacheBytes),
	}
	return append(opts, extra...)
}

func (g *globals) open(path string) (*suffixtree.Tree, error) {
	return suffixtree.Open(path, g.options()...)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// NewRootCommand wires every subcommand.
func NewRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "suffixdb",
		Short: "Disk-backed generalized suffix tree",
		Long: `suffixdb builds a generalized suffix tree over a set of sequences into a
single paged file and answers exact-match, longest-common-substring and
seeding queries against it.`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(g.logLevel)
			if err != nil {
				return err
			}
			g.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	defaults := suffixtree.DefaultOptions()
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().IntVar(&g.pool, "pool", defaults.PoolCapacity, "buffer pool capacity in node pages")
	root.PersistentFlags().Int64Var(&g.cacheBytes, "cache", defaults.ChunkCacheBytes, "symbol chunk cache size in bytes")

	root.AddCommand(
		newBuildCmd(g),
		newAppendCmd(g),
		newQueryCmd(g),
		newCountCmd(g),
		newLCSCmd(g),
		newAnchorsCmd(g),
		newSeedsCmd(g),
		newStatsCmd(g),
		newInspectCmd(g),
		newDotCmd(g),
		newShellCmd(g),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
