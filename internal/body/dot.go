package body

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteDOT writes the body as a Graphviz digraph: one cluster per body part,
// one node per organ and one edge per connector link.
func (b *Body) WriteDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph G {")
	if root := b.Root(); root != nil {
		b.dotCluster(bw, root, 1)
		fmt.Fprintln(bw)
		for _, o := range b.Organs() {
			if c := b.parts[o.ConnectorID]; c != nil {
				fmt.Fprintf(bw, "\t%s -> %s;\n", strconv.Quote(c.LogicalID), strconv.Quote(o.LogicalID))
			}
		}
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func (b *Body) dotCluster(w io.Writer, p *Part, depth int) {
	indent := strings.Repeat("\t", depth)
	fmt.Fprintf(w, "%ssubgraph %s {\n", indent, strconv.Quote("cluster_"+p.LogicalID))
	fmt.Fprintf(w, "%s\tlabel = %s;\n", indent, strconv.Quote(p.Name))
	for _, cid := range p.Children {
		c := b.parts[cid]
		if c == nil {
			continue
		}
		if c.IsContainer() {
			b.dotCluster(w, c, depth+1)
			continue
		}
		attrs := "label=" + strconv.Quote(c.Name)
		if c.Stump {
			attrs += ", style=dashed"
		}
		fmt.Fprintf(w, "%s\t%s [%s];\n", indent, strconv.Quote(c.LogicalID), attrs)
	}
	fmt.Fprintf(w, "%s}\n", indent)
}
