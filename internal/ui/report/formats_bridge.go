package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"gridnote/internal/core/ports"
	"gridnote/internal/ui/report/formats"
)

type Sheet = formats.Sheet
type DOTGenerator = formats.DOTGenerator
type TSVGenerator = formats.TSVGenerator
type MermaidGenerator = formats.MermaidGenerator
type MarkdownGenerator = formats.MarkdownGenerator
type MarkdownReportOptions = formats.MarkdownReportOptions

// Export formats accepted by Render.
const (
	FormatTSV        = "tsv"
	FormatReferences = "refs"
	FormatDOT        = "dot"
	FormatMermaid    = "mermaid"
	FormatMarkdown   = "markdown"
)

func SheetFrom(svc ports.SheetService) Sheet {
	return formats.SheetFrom(svc)
}

func NewDOTGenerator(s Sheet) *DOTGenerator {
	return formats.NewDOTGenerator(s)
}

func NewTSVGenerator(s Sheet) *TSVGenerator {
	return formats.NewTSVGenerator(s)
}

func NewMermaidGenerator(s Sheet) *MermaidGenerator {
	return formats.NewMermaidGenerator(s)
}

func NewMarkdownGenerator() *MarkdownGenerator {
	return formats.NewMarkdownGenerator()
}

// FormatForPath picks an export format from a file extension. A
// ".refs.tsv" suffix selects the reference list instead of the cell list.
func FormatForPath(path string) (string, error) {
	if strings.HasSuffix(strings.ToLower(path), ".refs.tsv") {
		return FormatReferences, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		return FormatTSV, nil
	case ".dot", ".gv":
		return FormatDOT, nil
	case ".mmd", ".mermaid":
		return FormatMermaid, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("no export format for %q (use .tsv, .refs.tsv, .dot, .mmd or .md)", path)
	}
}

// Render produces s in format. The markdown report embeds the mermaid
// diagram when opts.IncludeMermaid is set and no diagram was supplied.
func Render(format string, s Sheet, opts MarkdownReportOptions) (string, error) {
	switch format {
	case FormatTSV:
		return NewTSVGenerator(s).Generate()
	case FormatReferences:
		return NewTSVGenerator(s).GenerateReferences()
	case FormatDOT:
		return NewDOTGenerator(s).Generate()
	case FormatMermaid:
		return NewMermaidGenerator(s).Generate()
	case FormatMarkdown:
		if opts.IncludeMermaid && strings.TrimSpace(opts.MermaidDiagram) == "" {
			diagram, err := NewMermaidGenerator(s).Generate()
			if err != nil {
				return "", err
			}
			opts.MermaidDiagram = diagram
		}
		return NewMarkdownGenerator().Generate(s, opts)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}
