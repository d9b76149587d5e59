package suffixtree

import (
	"SuffixDB/errs"
	"bufio"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/xlab/treeprint"
)

const maxLabelSymbols = 24

// edgeLabel renders an edge label, shortened in the middle when long.
func (t *Tree) edgeLabel(start, end uint32) (string, error) {
	n := end - start + 1
	read := func(from, to uint32) ([]uint16, error) {
		codes := make([]uint16, 0, to-from)
		for off := from; off < to; off++ {
			c, err := t.symbols.At(off)
			if err != nil {
				return nil, err
			}
			codes = append(codes, c)
		}
		return codes, nil
	}
	if n <= maxLabelSymbols {
		codes, err := read(start, end+1)
		if err != nil {
			return "", err
		}
		return t.alpha.label(codes), nil
	}
	head, err := read(start, start+maxLabelSymbols/2)
	if err != nil {
		return "", err
	}
	tail, err := read(end+1-maxLabelSymbols/2, end+1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s..(%d)..%s", t.alpha.label(head), n, t.alpha.label(tail)), nil
}

func (t *Tree) describe(n *Node) (string, error) {
	if n.kind == NodeRoot {
		return fmt.Sprintf("root #%d", n.id), nil
	}
	label, err := t.edgeLabel(n.start, n.end)
	if err != nil {
		return "", err
	}
	if n.isLeaf() {
		return fmt.Sprintf("%s  [seq %d @ %d]", label, t.meta.sequences[n.slot].ID, n.suffix), nil
	}
	return fmt.Sprintf("%s  #%d depth=%d leaves=%s link=#%d", label, n.id, n.depth, humanize.Comma(int64(n.leaves)), n.suffixLink), nil
}

// Inspect writes a summary and an indented dump of the first maxNodes nodes
// in depth-first order. maxNodes <= 0 dumps everything.
func (t *Tree) Inspect(w io.Writer, maxNodes int) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkReadable(); err != nil {
		return err
	}

	fmt.Fprintf(w, "store      %s\n", t.meta.storeID)
	fmt.Fprintf(w, "file       %s (%s pages of %s)\n", t.path,
		humanize.Comma(t.disk.NumPages()), humanize.IBytes(uint64(t.disk.PageSize())))
	fmt.Fprintf(w, "alphabet   %q\n", t.meta.alphabet)
	fmt.Fprintf(w, "sequences  %d of %d\n", len(t.meta.sequences), t.meta.maxSequences)
	fmt.Fprintf(w, "symbols    %s\n", humanize.Comma(int64(t.meta.totalSymbols)))
	fmt.Fprintf(w, "nodes      %s (%s leaves)\n", humanize.Comma(int64(t.meta.nodeCount)), humanize.Comma(int64(t.meta.leafCount)))
	for _, s := range t.meta.sequences {
		fmt.Fprintf(w, "  seq %-6d slot %-4d base %-10d length %d\n", s.ID, s.Slot, s.Base, s.Length-1)
	}

	type entry struct {
		id     int64
		parent treeprint.Tree
	}
	out := treeprint.New()
	stack := []entry{{id: t.meta.root}}
	shown := 0
	for len(stack) > 0 {
		if maxNodes > 0 && shown == maxNodes {
			out.AddNode(fmt.Sprintf("... %s more nodes", humanize.Comma(int64(t.meta.nodeCount)-int64(shown))))
			break
		}
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		shown++

		err := t.view(e.id, func(n *Node) error {
			text, err := t.describe(n)
			if err != nil {
				return err
			}
			var branch treeprint.Tree
			switch {
			case e.parent == nil:
				out.SetValue(text)
				branch = out
			case n.isLeaf():
				e.parent.AddNode(text)
				return nil
			default:
				branch = e.parent.AddBranch(text)
			}
			// push in reverse so the smallest symbol prints first
			for i := len(n.children) - 1; i >= 0; i-- {
				if c := n.children[i]; c != 0 {
					stack = append(stack, entry{id: c, parent: branch})
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, out.String()); err != nil {
		return errs.IO(err, "failed to write tree dump")
	}
	return nil
}

// ExportDOT writes the tree as a Graphviz digraph. Suffix links are drawn
// as dashed edges.
func (t *Tree) ExportDOT(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkReadable(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph suffixtree {")
	fmt.Fprintln(bw, "  node [shape=circle, label=\"\", width=0.15];")

	type entry struct{ id, parent int64 }
	queue := []entry{{id: t.meta.root}}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		err := t.view(e.id, func(n *Node) error {
			switch {
			case n.kind == NodeRoot:
				fmt.Fprintf(bw, "  n%d [shape=doublecircle];\n", n.id)
			case n.isLeaf():
				fmt.Fprintf(bw, "  n%d [shape=box, width=0, label=\"%d:%d\"];\n", n.id, t.meta.sequences[n.slot].ID, n.suffix)
			case n.suffixLink != 0:
				fmt.Fprintf(bw, "  n%d -> n%d [style=dashed, color=gray];\n", n.id, n.suffixLink)
			}
			if e.parent != 0 {
				label, err := t.edgeLabel(n.start, n.end)
				if err != nil {
					return err
				}
				fmt.Fprintf(bw, "  n%d -> n%d [label=%q];\n", e.parent, n.id, label)
			}
			for _, c := range n.children {
				if c != 0 {
					queue = append(queue, entry{id: c, parent: n.id})
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(bw, "}")
	if err := bw.Flush(); err != nil {
		return errs.IO(err, "failed to write dot output")
	}
	return nil
}
