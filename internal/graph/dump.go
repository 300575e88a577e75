package graph

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes the graph as a Graphviz DOT digraph: one vertex per node,
// labeled with its display name (or arena token) and filled by payload kind,
// plus one directed arc per successor edge. Read-only; it may run alongside
// other readers but not alongside Precede or Union.
func (g *Graph) Dump(w io.Writer) {
	fmt.Fprintf(w, "digraph G {\n")
	for _, n := range g.nodes {
		n.dump(w)
	}
	fmt.Fprintf(w, "}\n")
}

// DumpString returns Dump output as a string.
func (g *Graph) DumpString() string {
	var sb strings.Builder
	g.Dump(&sb)
	return sb.String()
}

func (n *Node) dump(w io.Writer) {
	fmt.Fprintf(w, "p%d [label=%q", n.index, n.ident())

	switch n.Kind() {
	case KindPull:
		fmt.Fprintf(w, " style=filled fillcolor=\"cyan\"")
	case KindPush:
		fmt.Fprintf(w, " style=filled fillcolor=\"springgreen\"")
	case KindKernel:
		fmt.Fprintf(w, " style=filled fillcolor=\"black\" fontcolor=\"white\"")
	case KindTransfer:
		fmt.Fprintf(w, " style=filled fillcolor=\"coral\"")
	}

	fmt.Fprintf(w, "];\n")

	for _, s := range n.successors {
		fmt.Fprintf(w, "p%d -> p%d;\n", n.index, s.index)
	}
}
