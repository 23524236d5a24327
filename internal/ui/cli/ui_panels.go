package cli

import (
	"fmt"
	"strings"

	"gridnote/internal/engine/grid"
)

func renderHelp(m model) string {
	keys := "Keys: arrows/hjkl move | enter edit | x clear | i impact | ctrl+s save | tab documents | q quit"
	switch {
	case m.mode == panelDocuments:
		keys = "Keys: enter open | / filter | esc back | q quit"
	case m.editing:
		keys = "Keys: enter commit | esc cancel"
	}
	return statusStyle.Render(keys)
}

// renderGrid draws the visible window of the sheet. The cursor wins over
// every other highlight, then cycles, then references.
func renderGrid(m model) string {
	b := m.codec.Bounds()
	cols := min(m.columns, b.Size())
	rows := min(m.rows, b.Size())

	var out strings.Builder
	out.WriteString(strings.Repeat(" ", rowLabelWidth))
	for x := m.viewLeft; x < m.viewLeft+cols; x++ {
		out.WriteString(" " + headerStyle.Render(pad(grid.ColumnLabel(x-b.Min), cellWidth)))
	}
	out.WriteString("\n")

	for y := m.viewTop; y > m.viewTop-rows; y-- {
		out.WriteString(headerStyle.Render(fmt.Sprintf("%*d", rowLabelWidth, b.Max-y+1)))
		for x := m.viewLeft; x < m.viewLeft+cols; x++ {
			key := grid.ToKey(x, y)
			text := pad(clip(m.values[key], cellWidth), cellWidth)
			out.WriteString(" " + styleCell(m, key, x, y, text))
		}
		out.WriteString("\n")
	}
	return out.String()
}

func styleCell(m model, key grid.Key, x, y int, text string) string {
	switch {
	case x == m.cursorX && y == m.cursorY:
		return cursorStyle.Render(text)
	case m.cycleKeys[key]:
		return cycleStyle.Render(text)
	case m.editing && m.highlights[key]:
		return referenceStyle.Render(text)
	case m.showImpact && m.impacted[key]:
		return referenceStyle.Render(text)
	default:
		return text
	}
}

func renderCellPanel(m model) string {
	ref := m.cursorRef()
	if m.editing {
		lines := []string{
			fmt.Sprintf("Editing %s", ref),
			m.input.View(),
		}
		switch {
		case m.previewErr != "":
			lines = append(lines, cycleStyle.Render("  "+m.previewErr))
		case m.preview != "":
			lines = append(lines, "  = "+m.preview)
		}
		if len(m.highlights) > 0 {
			lines = append(lines, referenceStyle.Render(fmt.Sprintf("  reads %d cells", len(m.highlights))))
		}
		return strings.Join(lines, "\n")
	}

	content := ""
	if m.svc != nil {
		content, _ = m.svc.Content(ref)
	}
	line := fmt.Sprintf("%s: %s", ref, content)
	if content != "" && content != m.values[grid.ToKey(m.cursorX, m.cursorY)] {
		line += " = " + m.values[grid.ToKey(m.cursorX, m.cursorY)]
	}
	if m.showImpact {
		line += referenceStyle.Render(fmt.Sprintf("  (%d dependents)", len(m.impacted)))
	}
	return line
}

func pad(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
