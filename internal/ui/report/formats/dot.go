package formats

import (
	"fmt"
	"strings"
)

type DOTGenerator struct {
	sheet Sheet
}

func NewDOTGenerator(s Sheet) *DOTGenerator {
	return &DOTGenerator{sheet: s}
}

// Generate renders the reference graph. Edges point from a formula to the
// cells it reads; cycle members and cycle edges are drawn in red.
func (d *DOTGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("digraph gridnote {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=\"#f7fbff\", fontname=\"Helvetica\"];\n")
	b.WriteString(fmt.Sprintf("  label=\"%s\";\n", escapeLabel(d.sheet.Name)))

	cells := d.sheet.linkedCells()
	names := make([]string, 0, len(cells))
	for _, c := range cells {
		names = append(names, c.Ref)
	}
	ids := makeIDs(names)
	cycleKeys := cycleKeySet(d.sheet.Cycles)
	cycleEdges := cycleEdgeSet(d.sheet.Cycles)

	for _, c := range cells {
		attrs := fmt.Sprintf("label=\"%s\"", escapeLabel(cellLabel(c)))
		if cycleKeys[c.Key] {
			attrs += ", color=\"#cc0000\", fillcolor=\"#ffecec\", penwidth=2"
		}
		b.WriteString(fmt.Sprintf("  %s [%s];\n", ids[c.Ref], attrs))
	}

	codec := d.sheet.Codec
	for _, e := range d.sheet.edges() {
		from, to := ids[codec.RefForKey(e.From)], ids[codec.RefForKey(e.To)]
		if cycleEdges.has(e.From, e.To) {
			b.WriteString(fmt.Sprintf("  %s -> %s [color=\"#cc0000\", penwidth=2, label=\"CYCLE\"];\n", from, to))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s -> %s;\n", from, to))
	}

	b.WriteString("}\n")
	return b.String(), nil
}
