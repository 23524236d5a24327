package formats

import (
	"fmt"
	"strings"
)

type TSVGenerator struct {
	sheet Sheet
}

func NewTSVGenerator(s Sheet) *TSVGenerator {
	return &TSVGenerator{sheet: s}
}

// Generate lists every stored cell with its content and display value.
func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("Ref\tX\tY\tContent\tDisplay\n")
	for _, c := range t.sheet.Cells {
		buf.WriteString(fmt.Sprintf("%s\t%d\t%d\t%s\t%s\n",
			c.Ref, c.X, c.Y, escapeTSV(c.Content), escapeTSV(c.Display)))
	}

	return buf.String(), nil
}

// GenerateReferences lists every reference edge; Cycle is true when both
// ends of the edge belong to the same reference cycle.
func (t *TSVGenerator) GenerateReferences() (string, error) {
	var buf strings.Builder
	codec := t.sheet.Codec
	cycleEdges := cycleEdgeSet(t.sheet.Cycles)

	buf.WriteString("From\tTo\tCycle\n")
	for _, e := range t.sheet.edges() {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%t\n",
			codec.RefForKey(e.From),
			codec.RefForKey(e.To),
			cycleEdges.has(e.From, e.To),
		))
	}

	return buf.String(), nil
}
