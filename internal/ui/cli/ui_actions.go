package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"gridnote/internal/core/errors"
	"gridnote/internal/engine/grid"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	if m.editing {
		return handleEditKeys(msg, m)
	}
	if m.mode == panelDocuments {
		return handleDocumentKeys(msg, m)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		m.mode = panelDocuments
		return m, loadDocumentsCmd(m)
	case "up", "k":
		m.moveCursor(0, 1)
	case "down", "j":
		m.moveCursor(0, -1)
	case "left", "h":
		m.moveCursor(-1, 0)
	case "right", "l":
		m.moveCursor(1, 0)
	case "enter", "e":
		content, _ := m.svc.Content(m.cursorRef())
		m.editing = true
		m.status = ""
		m.input.SetValue(content)
		m.input.CursorEnd()
		m.input.Focus()
		m.updatePreview()
		return m, nil
	case "x", "delete":
		return commitEdit(m, "")
	case "i":
		m.showImpact = !m.showImpact
		if m.showImpact {
			m.computeImpact()
		}
	case "ctrl+s":
		return m, saveCmd(m)
	}
	return m, nil
}

func handleEditKeys(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.stopEditing()
		return m, nil
	case "enter":
		value := m.input.Value()
		m.stopEditing()
		return commitEdit(m, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.updatePreview()
	return m, cmd
}

func handleDocumentKeys(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	// While filtering, keys belong to the list.
	if m.docList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.docList, cmd = m.docList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "esc", "tab":
		m.mode = panelGrid
		return m, nil
	case "enter":
		selected, ok := m.docList.SelectedItem().(item)
		if !ok {
			return m, nil
		}
		name := selected.title
		m.mode = panelGrid
		if err := m.svc.Open(context.Background(), name); err != nil {
			m.status = cycleStyle.Render("Open failed: " + err.Error())
			return m, nil
		}
		m.docPath = ""
		m.refresh()
		m.status = successStyle.Render("Opened " + name)
		return m, nil
	}

	var cmd tea.Cmd
	m.docList, cmd = m.docList.Update(msg)
	return m, cmd
}

func (m *model) moveCursor(dx, dy int) {
	b := m.codec.Bounds()
	m.cursorX = min(max(m.cursorX+dx, b.Min), b.Max)
	m.cursorY = min(max(m.cursorY+dy, b.Min), b.Max)
	m.ensureVisible()
	if m.showImpact {
		m.computeImpact()
	}
}

func (m *model) stopEditing() {
	m.editing = false
	m.input.Blur()
	m.input.SetValue("")
	m.preview, m.previewErr = "", ""
	m.highlights = map[grid.Key]bool{}
}

// commitEdit writes content to the cursor cell. The app broadcasts the
// change asynchronously; the model refreshes right away so the edit is
// visible without waiting for the round trip.
func commitEdit(m model, content string) (tea.Model, tea.Cmd) {
	ref := m.cursorRef()
	u, err := m.svc.Edit(context.Background(), ref, content)
	if err != nil {
		m.status = cycleStyle.Render(fmt.Sprintf("Edit %s failed: %v", ref, err))
		return m, nil
	}
	m.refresh()
	if u.Affected > 0 {
		m.status = statusStyle.Render(fmt.Sprintf("%s updated, %d cells recomputed (%s)", ref, u.Affected, u.Mode))
	}
	return m, nil
}

func loadDocumentsCmd(m model) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		docs, err := svc.Documents(context.Background())
		return documentsMsg{docs: docs, err: err}
	}
}

// saveCmd writes the document file when one is attached and records a
// history revision when history is enabled.
func saveCmd(m model) tea.Cmd {
	svc := m.svc
	path := m.docPath
	return func() tea.Msg {
		done := make([]string, 0, 2)
		if path != "" {
			if err := svc.ExportFile(path); err != nil {
				return savedMsg{err: err}
			}
			done = append(done, "wrote "+path)
		}
		rev, err := svc.Save(context.Background())
		switch {
		case err == nil:
			done = append(done, fmt.Sprintf("saved revision %d", rev.Number))
		case errors.IsCode(err, errors.CodeValidationError) && path != "":
			// History is disabled; the file write is enough.
		default:
			return savedMsg{err: err}
		}
		return savedMsg{summary: strings.Join(done, ", ")}
	}
}
