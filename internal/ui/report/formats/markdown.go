package formats

import (
	"fmt"
	"strings"
	"time"

	"gridnote/internal/core/ports"
	"gridnote/internal/engine/grid"
)

type MarkdownReportOptions struct {
	DocumentPath        string
	Version             string
	ErrorToken          string
	GeneratedAt         time.Time
	Verbosity           string
	TableOfContents     bool
	CollapsibleSections bool
	IncludeMermaid      bool
	MermaidDiagram      string
}

const keyCellLimit = 5

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (m *MarkdownGenerator) Generate(s Sheet, opts MarkdownReportOptions) (string, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}
	verbosity := normalizeReportVerbosity(opts.Verbosity)
	formulas, errorCells := classifyCells(s.Cells, opts.ErrorToken)

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Sheet Report\n")
	b.WriteString("document: " + nonEmpty(s.Name, "untitled") + "\n")
	if opts.DocumentPath != "" {
		b.WriteString("path: " + opts.DocumentPath + "\n")
	}
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# " + nonEmpty(s.Name, "untitled") + "\n\n")
	includeDiagram := opts.IncludeMermaid && strings.TrimSpace(opts.MermaidDiagram) != ""
	if opts.TableOfContents {
		b.WriteString("## Table of Contents\n")
		b.WriteString("- [Summary](#summary)\n")
		if verbosity != "summary" {
			b.WriteString("- [Values](#values)\n")
		}
		if verbosity == "detailed" && len(formulas) > 0 {
			b.WriteString("- [Formulas](#formulas)\n")
			b.WriteString("- [Key Cells](#key-cells)\n")
		}
		b.WriteString("- [Reference Cycles](#reference-cycles)\n")
		b.WriteString("- [Errors](#errors)\n")
		if includeDiagram {
			b.WriteString("- [Reference Diagram](#reference-diagram)\n")
		}
		b.WriteString("\n")
	}

	edgeCount := 0
	if s.Graph != nil {
		edgeCount = s.Graph.EdgeCount()
	}
	b.WriteString("## Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Cells | %d |\n", len(s.Cells)))
	b.WriteString(fmt.Sprintf("| Filled Cells | %d |\n", countFilled(s.Cells)))
	b.WriteString(fmt.Sprintf("| Formulas | %d |\n", len(formulas)))
	b.WriteString(fmt.Sprintf("| References | %d |\n", edgeCount))
	b.WriteString(fmt.Sprintf("| Reference Cycles | %d |\n", len(s.Cycles)))
	b.WriteString(fmt.Sprintf("| Errors | %d |\n\n", len(errorCells)))

	if verbosity != "summary" {
		m.writeValues(&b, s)
	}
	if verbosity == "detailed" {
		m.writeFormulas(&b, formulas, opts.CollapsibleSections)
		if len(formulas) > 0 {
			m.writeKeyCells(&b, s)
		}
	}
	m.writeCycles(&b, s, opts.CollapsibleSections)
	m.writeErrors(&b, errorCells, opts.CollapsibleSections)

	if includeDiagram {
		b.WriteString("## Reference Diagram\n")
		b.WriteString("```mermaid\n")
		b.WriteString(strings.TrimSpace(opts.MermaidDiagram))
		b.WriteString("\n```\n")
	}

	return b.String(), nil
}

// writeValues renders display values over the smallest rectangle holding
// every filled cell.
func (m *MarkdownGenerator) writeValues(b *strings.Builder, s Sheet) {
	b.WriteString("## Values\n")
	minX, maxX, minY, maxY, ok := filledExtent(s.Cells)
	if !ok {
		b.WriteString("The sheet is empty.\n\n")
		return
	}

	display := make(map[grid.Key]string, len(s.Cells))
	for _, c := range s.Cells {
		display[c.Key] = c.Display
	}

	bounds := s.Codec.Bounds()
	b.WriteString("| |")
	for x := minX; x <= maxX; x++ {
		b.WriteString(" " + grid.ColumnLabel(x-bounds.Min) + " |")
	}
	b.WriteString("\n| --- |")
	for x := minX; x <= maxX; x++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for y := maxY; y >= minY; y-- {
		b.WriteString(fmt.Sprintf("| **%d** |", bounds.Max-y+1))
		for x := minX; x <= maxX; x++ {
			b.WriteString(" " + escapeCell(display[grid.ToKey(x, y)]) + " |")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m *MarkdownGenerator) writeFormulas(b *strings.Builder, formulas []ports.CellView, collapsible bool) {
	b.WriteString("## Formulas\n")
	if len(formulas) == 0 {
		b.WriteString("No formulas.\n\n")
		return
	}
	rows := make([]string, 0, len(formulas))
	for _, c := range formulas {
		rows = append(rows, fmt.Sprintf("| `%s` | `%s` | %s |\n", c.Ref, escapeCell(c.Content), escapeCell(c.Display)))
	}
	m.writeTableWithCollapse(
		b,
		"Formula details",
		collapsible,
		len(rows) > 15,
		[]string{"| Cell | Formula | Value |\n", "| --- | --- | --- |\n"},
		rows,
	)
}

// writeKeyCells lists the cells whose change would ripple furthest.
func (m *MarkdownGenerator) writeKeyCells(b *strings.Builder, s Sheet) {
	b.WriteString("## Key Cells\n")
	if s.Graph == nil {
		b.WriteString("No references.\n\n")
		return
	}
	top := s.Graph.TopCells(keyCellLimit)
	if len(top) == 0 {
		b.WriteString("No references.\n\n")
		return
	}
	b.WriteString("| Cell | Read By | Reads | Reach | Score |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, c := range top {
		b.WriteString(fmt.Sprintf("| `%s` | %d | %d | %d | %.1f |\n", s.Codec.RefForKey(c.Key), c.FanIn, c.FanOut, c.Reach, c.Score))
	}
	b.WriteString("\n")
}

func (m *MarkdownGenerator) writeCycles(b *strings.Builder, s Sheet, collapsible bool) {
	b.WriteString("## Reference Cycles\n")
	if len(s.Cycles) == 0 {
		b.WriteString("No reference cycles detected.\n\n")
		return
	}
	rows := make([]string, 0, len(s.Cycles))
	for i, cycle := range s.Cycles {
		refs := make([]string, 0, len(cycle)+1)
		for _, k := range cycle {
			refs = append(refs, s.Codec.RefForKey(k))
		}
		refs = append(refs, refs[0])
		rows = append(rows, fmt.Sprintf("| %d | `%s` | %d |\n", i+1, strings.Join(refs, " -> "), len(cycle)))
	}
	m.writeTableWithCollapse(
		b,
		"Cycle details",
		collapsible,
		len(rows) > 10,
		[]string{"| # | Cycle Path | Cells |\n", "| --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeErrors(b *strings.Builder, cells []ports.CellView, collapsible bool) {
	b.WriteString("## Errors\n")
	if len(cells) == 0 {
		b.WriteString("No cells evaluate to an error.\n\n")
		return
	}
	rows := make([]string, 0, len(cells))
	for _, c := range cells {
		rows = append(rows, fmt.Sprintf("| `%s` | `%s` |\n", c.Ref, escapeCell(c.Content)))
	}
	m.writeTableWithCollapse(
		b,
		"Error details",
		collapsible,
		len(rows) > 15,
		[]string{"| Cell | Content |\n", "| --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeTableWithCollapse(
	b *strings.Builder,
	summary string,
	collapsible bool,
	collapse bool,
	header []string,
	rows []string,
) {
	if collapsible && collapse {
		b.WriteString("<details>\n")
		b.WriteString("<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapsible && collapse {
		b.WriteString("</details>\n\n")
	}
}

func classifyCells(cells []ports.CellView, errorToken string) (formulas, errs []ports.CellView) {
	for _, c := range cells {
		if strings.HasPrefix(c.Content, "=") && len(c.Content) > 1 {
			formulas = append(formulas, c)
		}
		if errorToken != "" && c.Display == errorToken {
			errs = append(errs, c)
		}
	}
	return formulas, errs
}

func countFilled(cells []ports.CellView) int {
	n := 0
	for _, c := range cells {
		if c.Content != "" {
			n++
		}
	}
	return n
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

func escapeCell(s string) string {
	return strings.NewReplacer("|", "\\|", "\n", " ").Replace(s)
}

func normalizeReportVerbosity(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "summary":
		return "summary"
	case "detailed":
		return "detailed"
	default:
		return "standard"
	}
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
