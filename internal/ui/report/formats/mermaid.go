package formats

import (
	"fmt"
	"sort"
	"strings"

	"gridnote/internal/core/ports"
	"gridnote/internal/engine/grid"
)

type MermaidGenerator struct {
	sheet Sheet
}

func NewMermaidGenerator(s Sheet) *MermaidGenerator {
	return &MermaidGenerator{sheet: s}
}

// Generate renders the reference graph as a mermaid flowchart. Cells are
// grouped by row so the layout follows the grid.
func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("%%{init: {'theme': 'base', 'themeVariables': {'textColor': '#000000', 'primaryTextColor': '#000000', 'lineColor': '#333333'}, 'flowchart': {'nodeSpacing': 60, 'rankSpacing': 90, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	cells := m.sheet.linkedCells()
	names := make([]string, 0, len(cells))
	for _, c := range cells {
		names = append(names, c.Ref)
	}
	ids := makeIDs(names)
	cycleKeys := cycleKeySet(m.sheet.Cycles)
	cycleEdges := cycleEdgeSet(m.sheet.Cycles)

	for _, row := range groupByRow(cells, m.sheet.Codec) {
		b.WriteString(fmt.Sprintf("  subgraph row_%d[\"Row %d\"]\n", row.number, row.number))
		for _, c := range row.cells {
			b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", ids[c.Ref], escapeLabel(cellLabel(c))))
		}
		b.WriteString("  end\n")
	}

	b.WriteString("\n")
	if len(names) > 0 {
		b.WriteString("  classDef cellNode fill:#f7fbff,stroke:#4d6480,stroke-width:1px,color:#000000;\n")
		b.WriteString("  class ")
		b.WriteString(strings.Join(idsFor(names, ids), ","))
		b.WriteString(" cellNode;\n")
	}
	cycleNames := make([]string, 0)
	for _, c := range cells {
		if cycleKeys[c.Key] {
			cycleNames = append(cycleNames, c.Ref)
		}
	}
	if len(cycleNames) > 0 {
		b.WriteString("  classDef cycleNode fill:#ffecec,stroke:#cc0000,stroke-width:2px,color:#000000;\n")
		b.WriteString("  class ")
		b.WriteString(strings.Join(idsFor(cycleNames, ids), ","))
		b.WriteString(" cycleNode;\n")
	}

	b.WriteString("\n")
	codec := m.sheet.Codec
	linkIndex := 0
	cycleLinkIndexes := make([]int, 0)
	for _, e := range m.sheet.edges() {
		edgeLabel := ""
		if cycleEdges.has(e.From, e.To) {
			edgeLabel = "|CYCLE|"
			cycleLinkIndexes = append(cycleLinkIndexes, linkIndex)
		}
		b.WriteString(fmt.Sprintf("  %s -->%s %s\n", ids[codec.RefForKey(e.From)], edgeLabel, ids[codec.RefForKey(e.To)]))
		linkIndex++
	}
	if len(cycleLinkIndexes) > 0 {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#cc0000,stroke-width:3px;\n", joinInts(cycleLinkIndexes)))
	}

	b.WriteString("\n")
	b.WriteString("  subgraph legend_info[\"Legend\"]\n")
	b.WriteString("    legend_nodes[\"Node: ref, formula, = display value\"]\n")
	b.WriteString("    legend_edges[\"Edge: formula --> cell it reads; CYCLE=reference cycle\"]\n")
	b.WriteString("  end\n")
	b.WriteString("  classDef legendNode fill:#fff8dc,stroke:#b8a24c,stroke-width:1px,color:#000000;\n")
	b.WriteString("  class legend_nodes,legend_edges legendNode;\n")

	return b.String(), nil
}

type rowGroup struct {
	number int
	cells  []ports.CellView
}

// groupByRow buckets cells by A1 row number, top row first, keeping the
// incoming order within a row.
func groupByRow(cells []ports.CellView, codec grid.Codec) []rowGroup {
	index := make(map[int]int)
	out := make([]rowGroup, 0)
	max := codec.Bounds().Max
	for _, c := range cells {
		number := max - c.Y + 1
		i, ok := index[number]
		if !ok {
			i = len(out)
			index[number] = i
			out = append(out, rowGroup{number: number})
		}
		out[i].cells = append(out[i].cells, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out
}

func idsFor(names []string, ids map[string]string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := ids[name]; ok {
			out = append(out, id)
		}
	}
	return out
}
