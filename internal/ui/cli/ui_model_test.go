package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"gridnote/internal/engine/grid"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m model, keys ...string) model {
	t.Helper()
	for _, k := range keys {
		updated, _ := m.Update(key(k))
		next, ok := updated.(model)
		if !ok {
			t.Fatalf("expected model type, got %T", updated)
		}
		m = next
	}
	return m
}

func TestModel_EditWithPreviewAndCommit(t *testing.T) {
	app := newCLITestApp(t)
	mustEdit(t, app, "B1", "5")

	m := initialModel(app, "")
	if got := m.cursorRef(); got != "A1" {
		t.Fatalf("expected cursor at A1, got %s", got)
	}

	m = press(t, m, "enter")
	if !m.editing {
		t.Fatal("expected edit mode after enter")
	}
	m = press(t, m, "=B1*2")
	if m.preview != "10" {
		t.Fatalf("expected preview 10, got %q (err %q)", m.preview, m.previewErr)
	}
	if !m.highlights[grid.ToKey(-11, 12)] {
		t.Fatalf("expected B1 to be highlighted, got %v", m.highlights)
	}
	if v, _ := app.Value("A1"); v != "" {
		t.Fatalf("preview must not commit, A1 = %q", v)
	}

	m = press(t, m, "enter")
	if m.editing {
		t.Fatal("expected edit mode to end on commit")
	}
	if v, _ := app.Value("A1"); v != "10" {
		t.Fatalf("expected A1 = 10, got %q", v)
	}
	if m.values[grid.ToKey(-12, 12)] != "10" {
		t.Fatalf("expected model to refresh after commit, got %q", m.values[grid.ToKey(-12, 12)])
	}
	if len(m.highlights) != 0 {
		t.Fatal("expected highlights to clear after commit")
	}
}

func TestModel_EscapeCancelsEdit(t *testing.T) {
	app := newCLITestApp(t)
	mustEdit(t, app, "A1", "1")

	m := press(t, initialModel(app, ""), "enter", "2", "esc")
	if m.editing {
		t.Fatal("expected edit mode to end on esc")
	}
	if v, _ := app.Value("A1"); v != "1" {
		t.Fatalf("expected A1 unchanged, got %q", v)
	}
}

func TestModel_CursorClampsAndScrolls(t *testing.T) {
	app := newCLITestApp(t)
	m := initialModel(app, "")

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 30})
	m = updated.(model)
	if m.columns != 2 {
		t.Fatalf("expected 2 visible columns, got %d", m.columns)
	}

	b := app.Codec().Bounds()
	m = press(t, m, "left", "up")
	if m.cursorX != b.Min || m.cursorY != b.Max {
		t.Fatalf("cursor left the grid: (%d,%d)", m.cursorX, m.cursorY)
	}

	m = press(t, m, "l", "l", "l", "l", "l")
	if m.cursorX != b.Min+5 {
		t.Fatalf("expected cursor column %d, got %d", b.Min+5, m.cursorX)
	}
	if m.viewLeft != b.Min+4 {
		t.Fatalf("expected viewport to follow cursor, viewLeft = %d", m.viewLeft)
	}
	if got := m.cursorRef(); got != "F1" {
		t.Fatalf("expected F1, got %s", got)
	}

	m = press(t, m, "j", "j")
	if got := m.cursorRef(); got != "F3" {
		t.Fatalf("expected F3, got %s", got)
	}
}

func TestModel_ClearCell(t *testing.T) {
	app := newCLITestApp(t)
	mustEdit(t, app, "A1", "7")

	press(t, initialModel(app, ""), "x")
	if v, _ := app.Value("A1"); v != "" {
		t.Fatalf("expected A1 cleared, got %q", v)
	}
	if c, _ := app.Content("A1"); c != "" {
		t.Fatalf("expected A1 content cleared, got %q", c)
	}
}

func TestModel_UpdateMsgRefreshesCycles(t *testing.T) {
	app := newCLITestApp(t)
	m := initialModel(app, "")

	mustEdit(t, app, "A1", "=B1")
	mustEdit(t, app, "B1", "=A1")

	updated, _ := m.Update(updateMsg{})
	m = updated.(model)
	if len(m.cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(m.cycles))
	}
	if !m.cycleKeys[grid.ToKey(-12, 12)] || !m.cycleKeys[grid.ToKey(-11, 12)] {
		t.Fatalf("expected A1 and B1 marked as cycle cells, got %v", m.cycleKeys)
	}
	if view := m.View(); !strings.Contains(view, "1 cycles") {
		t.Fatalf("expected cycle count in view:\n%s", view)
	}
}

func TestModel_ImpactToggle(t *testing.T) {
	app := newCLITestApp(t)
	mustEdit(t, app, "A1", "1")
	mustEdit(t, app, "B1", "=A1")
	mustEdit(t, app, "C1", "=B1")

	m := press(t, initialModel(app, ""), "i")
	if !m.showImpact || len(m.impacted) != 2 {
		t.Fatalf("expected 2 impacted cells, got %v", m.impacted)
	}

	m = press(t, m, "i")
	if m.showImpact {
		t.Fatal("expected impact overlay to toggle off")
	}
}

func TestModel_DocumentsPanelWithoutHistory(t *testing.T) {
	app := newCLITestApp(t)
	m := initialModel(app, "")

	updated, cmd := m.Update(key("tab"))
	m = updated.(model)
	if m.mode != panelDocuments {
		t.Fatalf("expected documents panel after tab, got %v", m.mode)
	}
	if cmd == nil {
		t.Fatal("expected a command loading documents")
	}

	updated, _ = m.Update(cmd())
	m = updated.(model)
	if m.mode != panelGrid {
		t.Fatalf("expected fallback to grid panel, got %v", m.mode)
	}
	if !strings.Contains(m.status, "Documents unavailable") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModel_SaveWritesDocumentFile(t *testing.T) {
	app := newCLITestApp(t)
	mustEdit(t, app, "A1", "4")
	path := t.TempDir() + "/sheet.grid.toml"

	m := initialModel(app, path)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatal("expected save command")
	}
	msg, ok := cmd().(savedMsg)
	if !ok {
		t.Fatalf("expected savedMsg, got %T", msg)
	}
	if msg.err != nil {
		t.Fatalf("save failed: %v", msg.err)
	}
	if !strings.Contains(msg.summary, "wrote "+path) {
		t.Fatalf("unexpected summary %q", msg.summary)
	}
}
