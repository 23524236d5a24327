package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gridnote/internal/core/ports"
	"gridnote/internal/data/history"
	"gridnote/internal/engine/grid"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	cycleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	referenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	cursorStyle = lipgloss.NewStyle().
			Reverse(true).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94A3B8")).
			Bold(true)
)

const (
	cellWidth      = 10
	rowLabelWidth  = 4
	defaultColumns = 8
	defaultRows    = 12
	// Lines used by everything but the grid body.
	chromeHeight = 12
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type panelMode int

const (
	panelGrid panelMode = iota
	panelDocuments
)

type model struct {
	svc     ports.SheetService
	docPath string
	codec   grid.Codec

	mode panelMode

	// Cursor and viewport are grid coordinates. viewTop is the highest
	// visible y because row 1 sits at the top of the grid.
	cursorX  int
	cursorY  int
	viewLeft int
	viewTop  int
	columns  int
	rows     int

	editing    bool
	input      textinput.Model
	preview    string
	previewErr string
	highlights map[grid.Key]bool

	showImpact bool
	impacted   map[grid.Key]bool

	values     map[grid.Key]string
	cycles     [][]grid.Key
	cycleKeys  map[grid.Key]bool
	cellCount  int
	docName    string
	lastUpdate time.Time
	lastReason string
	status     string

	docList list.Model
}

type updateMsg struct {
	update ports.Update
}

type documentsMsg struct {
	docs []history.Summary
	err  error
}

type savedMsg struct {
	summary string
	err     error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v
		m.columns = max(1, (width-rowLabelWidth)/(cellWidth+1))
		m.rows = max(3, height-chromeHeight)
		m.input.Width = max(10, width-10)
		m.docList.SetSize(width, max(5, height-8))
		m.ensureVisible()
		return m, nil
	case updateMsg:
		m.lastUpdate = time.Now()
		m.lastReason = msg.update.Reason
		m.refresh()
		return m, nil
	case documentsMsg:
		if msg.err != nil {
			m.status = cycleStyle.Render("Documents unavailable: " + msg.err.Error())
			m.mode = panelGrid
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.docs))
		for _, d := range msg.docs {
			items = append(items, item{
				title: d.Name,
				desc:  fmt.Sprintf("rev %d | %d cells | %s", d.Revision, d.CellCount, d.UpdatedAt.Local().Format("2006-01-02 15:04")),
			})
		}
		m.docList.SetItems(items)
		return m, nil
	case savedMsg:
		if msg.err != nil {
			m.status = cycleStyle.Render("Save failed: " + msg.err.Error())
		} else {
			m.status = successStyle.Render(msg.summary)
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.mode == panelDocuments {
		m.docList, cmd = m.docList.Update(msg)
	} else if m.editing {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	if m.mode == panelDocuments {
		return docStyle.Render(titleStyle("gridnote") + "\n" + renderHelp(m) + "\n\n" + m.docList.View())
	}

	status := statusStyle.Render(fmt.Sprintf("%s | %d cells | last update: %s (%s)",
		m.docName, m.cellCount, m.lastUpdate.Format("15:04:05"), nonEmptyReason(m.lastReason)))

	var summary string
	if len(m.cycles) == 0 {
		summary = successStyle.Render("No cycles")
	} else {
		summary = cycleStyle.Render(fmt.Sprintf("%d cycles", len(m.cycles)))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("gridnote"), status, summary)
	body := renderGrid(m) + "\n" + renderCellPanel(m)
	if m.status != "" {
		body += "\n" + m.status
	}
	return docStyle.Render(header + "\n" + renderHelp(m) + "\n\n" + body)
}

// refresh pulls the latest values and cycles from the service.
func (m *model) refresh() {
	if m.svc == nil {
		return
	}
	m.codec = m.svc.Codec()
	m.docName = m.svc.DocumentName()
	m.values = m.svc.Values()
	m.cellCount = len(m.values)
	m.cycles = m.svc.Cycles()
	m.cycleKeys = make(map[grid.Key]bool)
	for _, cycle := range m.cycles {
		for _, k := range cycle {
			m.cycleKeys[k] = true
		}
	}
	// A config reload may shrink the grid under the cursor.
	b := m.codec.Bounds()
	m.cursorX = min(max(m.cursorX, b.Min), b.Max)
	m.cursorY = min(max(m.cursorY, b.Min), b.Max)
	m.ensureVisible()
	if m.showImpact {
		m.computeImpact()
	}
}

func (m *model) ensureVisible() {
	b := m.codec.Bounds()
	cols := min(m.columns, b.Size())
	rows := min(m.rows, b.Size())

	if m.cursorX < m.viewLeft {
		m.viewLeft = m.cursorX
	}
	if m.cursorX >= m.viewLeft+cols {
		m.viewLeft = m.cursorX - cols + 1
	}
	if m.cursorY > m.viewTop {
		m.viewTop = m.cursorY
	}
	if m.cursorY <= m.viewTop-rows {
		m.viewTop = m.cursorY + rows - 1
	}
	m.viewLeft = min(max(m.viewLeft, b.Min), b.Max-cols+1)
	m.viewTop = max(min(m.viewTop, b.Max), b.Min+rows-1)
}

func (m model) cursorRef() string {
	return m.codec.CoordsToRef(m.cursorX, m.cursorY)
}

func (m *model) computeImpact() {
	m.impacted = make(map[grid.Key]bool)
	report, err := m.svc.Impact(m.cursorRef())
	if err != nil {
		return
	}
	for _, k := range report.DirectDependents {
		m.impacted[k] = true
	}
	for _, k := range report.TransitiveDependents {
		m.impacted[k] = true
	}
}

// updatePreview evaluates the edit buffer against the committed sheet and
// highlights the cells it references.
func (m *model) updatePreview() {
	value := m.input.Value()
	m.highlights = make(map[grid.Key]bool)
	for _, ref := range m.svc.References(value) {
		if ref.Resolved {
			m.highlights[ref.Key] = true
		}
	}
	preview, err := m.svc.Preview(m.cursorRef(), value)
	if err != nil {
		m.preview, m.previewErr = "", err.Error()
		return
	}
	m.preview, m.previewErr = preview, ""
}

func nonEmptyReason(reason string) string {
	if reason == "" {
		return "start"
	}
	return reason
}

func initialModel(svc ports.SheetService, docPath string) model {
	docList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	docList.Title = "Saved Documents"
	docList.SetShowStatusBar(false)
	docList.SetFilteringEnabled(true)

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "value or =formula"
	input.CharLimit = 1024
	input.Width = 60

	m := model{
		svc:        svc,
		docPath:    docPath,
		mode:       panelGrid,
		columns:    defaultColumns,
		rows:       defaultRows,
		input:      input,
		docList:    docList,
		lastUpdate: time.Now(),
		highlights: map[grid.Key]bool{},
		impacted:   map[grid.Key]bool{},
	}
	if svc != nil {
		m.codec = svc.Codec()
		b := m.codec.Bounds()
		m.cursorX, m.cursorY = b.Min, b.Max
		m.viewLeft, m.viewTop = b.Min, b.Max
		m.refresh()
	}
	return m
}
