package cli

import (
	"SuffixDB/suffixtree"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	errColor   = color.New(color.FgRed, color.Bold)
	keyColor   = color.New(color.FgCyan)
	matchColor = color.New(color.FgYellow, color.Bold)
)

func printError(w io.Writer, err error) {
	errColor.Fprint(w, "error: ")
	fmt.Fprintln(w, err)
}

func printMatches(w io.Writer, pattern string, ms []suffixtree.Match) {
	if len(ms) == 0 {
		fmt.Fprintf(w, "%s not found\n", matchColor.Sprint(pattern))
		return
	}
	okColor.Fprintf(w, "%s occurrences", humanize.Comma(int64(len(ms))))
	fmt.Fprintf(w, " of %s\n", matchColor.Sprint(pattern))
	for _, m := range ms {
		fmt.Fprintf(w, "  %s %d  %s %d\n", keyColor.Sprint("seq"), m.SequenceID, keyColor.Sprint("pos"), m.Position)
	}
}

func printLCS(w io.Writer, a, b uint32, lcs suffixtree.LCS) {
	if lcs.Length == 0 {
		fmt.Fprintf(w, "sequences %d and %d share no substring\n", a, b)
		return
	}
	okColor.Fprintf(w, "length %d", lcs.Length)
	fmt.Fprintf(w, "  %s\n", matchColor.Sprint(string(lcs.Symbols)))
	fmt.Fprintf(w, "  seq %d @ %d\n  seq %d @ %d\n", a, lcs.PositionA, b, lcs.PositionB)
}

func printAnchors(w io.Writer, seqID uint32, anchors []suffixtree.Anchor) {
	okColor.Fprintf(w, "%s anchors", humanize.Comma(int64(len(anchors))))
	fmt.Fprintf(w, " for sequence %d\n", seqID)
	for _, a := range anchors {
		fmt.Fprintf(w, "  %s %-8d %s %-6d %s %d\n",
			keyColor.Sprint("pos"), a.Position, keyColor.Sprint("len"), a.Length, keyColor.Sprint("hits"), len(a.Matches))
	}
}

func printSeeds(w io.Writer, seeds []suffixtree.Seed) {
	if len(seeds) == 0 {
		fmt.Fprintln(w, "no seeds")
		return
	}
	okColor.Fprintf(w, "%s seeds\n", humanize.Comma(int64(len(seeds))))
	for _, s := range seeds {
		fmt.Fprintf(w, "  %s %-6d %s %-8d %s %-6d %s %d\n",
			keyColor.Sprint("seq"), s.SequenceID, keyColor.Sprint("pos"), s.Position,
			keyColor.Sprint("len"), s.Length, keyColor.Sprint("mm"), s.Mismatches)
	}
}

func printStats(w io.Writer, st suffixtree.Stats) {
	row := func(k, v string) {
		fmt.Fprintf(w, "%s %s\n", keyColor.Sprintf("%-14s", k), v)
	}
	row("store", st.StoreID.String())
	row("file", st.Path)
	row("alphabet", fmt.Sprintf("%q", st.Alphabet))
	row("sequences", fmt.Sprintf("%d of %d", st.Sequences, st.MaxSequences))
	row("symbols", humanize.Comma(int64(st.TotalSymbols)))
	row("nodes", fmt.Sprintf("%s (%s leaves)", humanize.Comma(int64(st.Nodes)), humanize.Comma(int64(st.Leaves))))
	row("pages", fmt.Sprintf("%s x %s, %d free, %d symbol region",
		humanize.Comma(st.Pages), humanize.IBytes(uint64(st.PageSize)), st.FreePages, st.RegionPages))
	row("file size", humanize.IBytes(uint64(st.Pages)*uint64(st.PageSize)))
	row("node size", humanize.IBytes(uint64(st.NodeSize)))
	row("pool", fmt.Sprintf("%d/%d frames, hit rate %.1f%%, %d evictions",
		st.Pool.TotalPages, st.Pool.Capacity, 100*st.Pool.HitRate(), st.Pool.Evictions))
}
