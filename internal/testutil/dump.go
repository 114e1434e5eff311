package testutil

import (
	"fmt"
	"strings"

	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/language"
	"github.com/roach88/modelsync/internal/model"
)

// Dump renders a tree as indented text: one line per node, then its
// properties, containments, references and annotations in declaration
// order. Two trees with equal dumps are equal up to node identity.
func Dump(n *model.Node) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func dump(b *strings.Builder, n *model.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s %s\n", indent, n.Classifier().Name, n.ID())
	for _, f := range n.SetFeatures() {
		switch f.Kind {
		case language.Property:
			v, _ := n.Property(f)
			data, _ := ir.MarshalCanonical(v)
			fmt.Fprintf(b, "%s  .%s = %s\n", indent, f.Name, data)
		case language.Containment:
			kids, _ := n.Children(f)
			fmt.Fprintf(b, "%s  %s:\n", indent, f.Name)
			for _, k := range kids {
				dump(b, k, depth+2)
			}
		case language.Reference:
			refs, _ := n.References(f)
			parts := make([]string, len(refs))
			for i, r := range refs {
				parts[i] = r.String()
			}
			fmt.Fprintf(b, "%s  %s -> [%s]\n", indent, f.Name, strings.Join(parts, ", "))
		}
	}
	for _, a := range n.Annotations() {
		fmt.Fprintf(b, "%s  @\n", indent)
		dump(b, a, depth+2)
	}
}
