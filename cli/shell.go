package cli

import (
	"SuffixDB/suffixtree"
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

const shellHelp = `commands:
  find <pattern>             exact occurrences
  count <pattern>            occurrence count
  lcs <seq-a> <seq-b>        longest common substring
  anchors <seq> [min]        maximal exact matches against other sequences
  seeds <seq> <pos> [k]      seed-and-extend with k mismatches
  seq <seq>                  print a sequence
  stats                      tree statistics
  help                       this text
  exit                       leave the shell`

func newShellCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "shell <tree-file>",
		Short: "Interactive query shell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTree(g, args[0], func(t *suffixtree.Tree) error {
				return runShell(t, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

// runShell reads one command per line until EOF or "exit".
func runShell(t *suffixtree.Tree, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "sfx> ")

		if !scanner.Scan() { // Ctrl+D pressed
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}
		if line == "" {
			continue
		}

		if err := runShellCommand(t, strings.Fields(line), out); err != nil {
			printError(out, err)
		}
	}
}

func runShellCommand(t *suffixtree.Tree, fields []string, out io.Writer) error {
	ids := func(args []string, n int) ([]uint32, error) {
		if len(args) < n {
			return nil, errors.Newf("%s needs %d numeric arguments", fields[0], n)
		}
		vals := make([]uint32, len(args))
		for i, a := range args {
			v, err := parseID(a)
			if err != nil {
				return nil, errors.Newf("bad number %q", a)
			}
			vals[i] = v
		}
		return vals, nil
	}
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "find", "exact":
		if len(args) != 1 {
			return errors.New("usage: find <pattern>")
		}
		ms, err := t.Exact([]byte(args[0]))
		if err != nil {
			return err
		}
		printMatches(out, args[0], ms)

	case "count":
		if len(args) != 1 {
			return errors.New("usage: count <pattern>")
		}
		n, err := t.Count([]byte(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %d\n", matchColor.Sprint(args[0]), n)

	case "lcs":
		v, err := ids(args, 2)
		if err != nil {
			return err
		}
		lcs, err := t.LongestCommonSubstring(v[0], v[1])
		if err != nil {
			return err
		}
		printLCS(out, v[0], v[1], lcs)

	case "anchors":
		v, err := ids(args, 1)
		if err != nil {
			return err
		}
		minLength := uint32(1)
		if len(v) > 1 {
			minLength = v[1]
		}
		anchors, err := t.Anchors(v[0], minLength)
		if err != nil {
			return err
		}
		printAnchors(out, v[0], anchors)

	case "seeds":
		v, err := ids(args, 2)
		if err != nil {
			return err
		}
		k := 0
		if len(v) > 2 {
			k = int(v[2])
		}
		seeds, err := t.SeedExtend(v[0], v[1], k)
		if err != nil {
			return err
		}
		printSeeds(out, seeds)

	case "seq":
		v, err := ids(args, 1)
		if err != nil {
			return err
		}
		symbols, err := t.Symbols(v[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", keyColor.Sprint(strconv.FormatUint(uint64(v[0]), 10)), symbols)

	case "stats":
		st, err := t.Stats()
		if err != nil {
			return err
		}
		printStats(out, st)

	case "help", "?":
		fmt.Fprintln(out, shellHelp)

	default:
		return errors.Newf("unknown command %q, try help", fields[0])
	}
	return nil
}
