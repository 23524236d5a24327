package cli

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gridnote/internal/core/ports"
	"gridnote/internal/data/history"
	"gridnote/internal/engine/graph"
	"gridnote/internal/engine/grid"
)

const maxColumnWidth = 16

// renderSummary prints the filled part of the sheet as a plain table,
// followed by any reference cycles.
func renderSummary(svc ports.SheetService) string {
	var b strings.Builder
	codec := svc.Codec()
	cells := svc.Cells()

	b.WriteString(strings.Repeat("-", 40) + "\n")
	filled := 0
	for _, c := range cells {
		if c.Content != "" {
			filled++
		}
	}
	fmt.Fprintf(&b, "Document: %s (%d cells, %d filled)\n", svc.DocumentName(), len(cells), filled)

	if table := renderPlainGrid(codec, cells); table != "" {
		b.WriteString(table)
	} else {
		b.WriteString("The sheet is empty.\n")
	}

	cycles := svc.Cycles()
	if len(cycles) > 0 {
		fmt.Fprintf(&b, "FOUND %d REFERENCE CYCLES:\n", len(cycles))
		for _, cycle := range cycles {
			b.WriteString("   " + cyclePath(codec, cycle) + "\n")
		}
	} else {
		b.WriteString("No reference cycles found.\n")
	}
	return b.String()
}

func renderPlainGrid(codec grid.Codec, cells []ports.CellView) string {
	minX, maxX, minY, maxY, ok := filledExtent(cells)
	if !ok {
		return ""
	}
	display := make(map[grid.Key]string, len(cells))
	for _, c := range cells {
		display[c.Key] = c.Display
	}
	bounds := codec.Bounds()

	widths := make([]int, maxX-minX+1)
	for x := minX; x <= maxX; x++ {
		w := len(grid.ColumnLabel(x - bounds.Min))
		for y := minY; y <= maxY; y++ {
			w = max(w, utf8.RuneCountInString(clip(display[grid.ToKey(x, y)], maxColumnWidth)))
		}
		widths[x-minX] = w
	}
	rowLabelWidth := len(fmt.Sprint(bounds.Max - minY + 1))

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", rowLabelWidth))
	for x := minX; x <= maxX; x++ {
		fmt.Fprintf(&b, " | %-*s", widths[x-minX], grid.ColumnLabel(x-bounds.Min))
	}
	b.WriteString("\n")
	for y := maxY; y >= minY; y-- {
		fmt.Fprintf(&b, "%*d", rowLabelWidth, bounds.Max-y+1)
		for x := minX; x <= maxX; x++ {
			fmt.Fprintf(&b, " | %-*s", widths[x-minX], clip(display[grid.ToKey(x, y)], maxColumnWidth))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatImpactReport(codec grid.Codec, report graph.ImpactReport) string {
	var b strings.Builder

	b.WriteString("Impact Analysis\n")
	b.WriteString("===============\n")
	fmt.Fprintf(&b, "Target cell: %s\n\n", codec.RefForKey(report.Target))

	writeRefList(&b, "Reads", codec, report.Dependencies)
	writeRefList(&b, "Direct dependents", codec, report.DirectDependents)
	fmt.Fprintf(&b, "Transitive dependents (%d)\n", len(report.TransitiveDependents))
	for _, k := range report.TransitiveDependents {
		fmt.Fprintf(&b, "- %s", codec.RefForKey(k))
		if chain := report.Chains[k]; len(chain) > 0 {
			refs := make([]string, len(chain))
			for i, c := range chain {
				refs[i] = codec.RefForKey(c)
			}
			fmt.Fprintf(&b, " (via %s)", strings.Join(refs, " -> "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeRefList(b *strings.Builder, title string, codec grid.Codec, keys []grid.Key) {
	fmt.Fprintf(b, "%s (%d)\n", title, len(keys))
	for _, k := range keys {
		fmt.Fprintf(b, "- %s\n", codec.RefForKey(k))
	}
	b.WriteString("\n")
}

func formatDocuments(docs []history.Summary) string {
	if len(docs) == 0 {
		return "No saved documents.\n"
	}
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "%s\trev %d\t%d cells\t%s\n", d.Name, d.Revision, d.CellCount, d.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}

func cyclePath(codec grid.Codec, cycle []grid.Key) string {
	if len(cycle) == 0 {
		return ""
	}
	refs := make([]string, 0, len(cycle)+1)
	for _, k := range cycle {
		refs = append(refs, codec.RefForKey(k))
	}
	refs = append(refs, refs[0])
	return strings.Join(refs, " -> ")
}

func filledExtent(cells []ports.CellView) (minX, maxX, minY, maxY int, ok bool) {
	for _, c := range cells {
		if c.Content == "" {
			continue
		}
		if !ok {
			minX, maxX, minY, maxY, ok = c.X, c.X, c.Y, c.Y, true
			continue
		}
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minY, maxY = min(minY, c.Y), max(maxY, c.Y)
	}
	return minX, maxX, minY, maxY, ok
}

func clip(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "~"
}
