package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gridnote/internal/core/ports"
	"gridnote/internal/data/history"
	"gridnote/internal/engine/eval"
	"gridnote/internal/engine/formula"
	"gridnote/internal/engine/graph"
	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/recompute"
	"gridnote/internal/engine/sheet"
)

// stubService serves a fixed evaluated store through ports.SheetService.
type stubService struct {
	ports.SheetService
	codec  grid.Codec
	store  sheet.Store
	result recompute.Result
}

func newStubService(t *testing.T, contents map[string]string) *stubService {
	t.Helper()
	codec := grid.NewCodec(grid.Symmetric(2))
	cells := make([]sheet.Cell, 0, len(contents))
	for ref, content := range contents {
		x, y, ok := codec.RefToCoords(ref)
		if !ok {
			t.Fatalf("bad test ref %q", ref)
		}
		cells = append(cells, sheet.Cell{X: x, Y: y, Content: content})
	}
	store := sheet.FromCells(codec, cells)
	result := recompute.New(eval.New(formula.NewExprEngine(16))).Full(store)
	return &stubService{codec: codec, store: store, result: result}
}

func (s *stubService) Codec() grid.Codec             { return s.codec }
func (s *stubService) DocumentName() string          { return "stub" }
func (s *stubService) Graph() *graph.DependencyGraph { return s.result.Graph }
func (s *stubService) Cycles() [][]grid.Key          { return s.result.Graph.DetectCycles() }

func (s *stubService) Cells() []ports.CellView {
	out := make([]ports.CellView, 0, s.store.Len())
	for _, c := range s.store.Cells() {
		out = append(out, ports.CellView{
			Key:     c.Key(),
			Ref:     s.codec.CoordsToRef(c.X, c.Y),
			X:       c.X,
			Y:       c.Y,
			Content: c.Content,
			Display: s.result.Values[c.Key()],
		})
	}
	return out
}

func TestFormatForPath(t *testing.T) {
	cases := map[string]string{
		"out.tsv":      FormatTSV,
		"a.refs.tsv":   FormatReferences,
		"graph.DOT":    FormatDOT,
		"graph.gv":     FormatDOT,
		"refs.mmd":     FormatMermaid,
		"report.md":    FormatMarkdown,
		"x.markdown":   FormatMarkdown,
		"refs.mermaid": FormatMermaid,
	}
	for path, want := range cases {
		got, err := FormatForPath(path)
		if err != nil {
			t.Fatalf("FormatForPath(%q): %v", path, err)
		}
		if got != want {
			t.Fatalf("FormatForPath(%q) = %q, want %q", path, got, want)
		}
	}
	if _, err := FormatForPath("out.json"); err == nil {
		t.Fatal("expected error for unknown extension")
	}
}

func TestRender(t *testing.T) {
	svc := newStubService(t, map[string]string{"A1": "2", "B1": "=A1+1"})
	s := SheetFrom(svc)
	if s.Name != "stub" || len(s.Cells) != 2 {
		t.Fatalf("unexpected sheet %+v", s)
	}

	checks := map[string]string{
		FormatTSV:        "B1\t-1\t2\t=A1+1\t3",
		FormatReferences: "B1\tA1\tfalse",
		FormatDOT:        "B1 -> A1;",
		FormatMermaid:    "B1 --> A1",
		FormatMarkdown:   "document: stub",
	}
	for format, want := range checks {
		out, err := Render(format, s, MarkdownReportOptions{})
		if err != nil {
			t.Fatalf("Render(%s): %v", format, err)
		}
		if !strings.Contains(out, want) {
			t.Fatalf("Render(%s) missing %q:\n%s", format, want, out)
		}
	}

	if _, err := Render("pdf", s, MarkdownReportOptions{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestRender_MarkdownEmbedsDiagram(t *testing.T) {
	s := SheetFrom(newStubService(t, map[string]string{"A1": "=B1", "B1": "=A1"}))
	out, err := Render(FormatMarkdown, s, MarkdownReportOptions{
		IncludeMermaid: true,
		GeneratedAt:    time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "generated_at: 2026-02-14T11:00:00Z") {
		t.Fatalf("expected frontmatter timestamp, got: %s", out)
	}
	if !strings.Contains(out, "## Reference Diagram") || !strings.Contains(out, "|CYCLE|") {
		t.Fatalf("expected embedded diagram with cycle edges, got: %s", out)
	}
}

func TestReplaceBetweenMarkers(t *testing.T) {
	content := strings.Join([]string{
		"# Docs",
		"<!-- gridnote:refs:start -->",
		"old",
		"<!-- gridnote:refs:end -->",
	}, "\n")
	got, err := ReplaceBetweenMarkers(content, "refs", "new-line")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "<!-- gridnote:refs:start -->\nnew-line\n<!-- gridnote:refs:end -->") {
		t.Fatalf("unexpected marker replacement result: %s", got)
	}
}

func TestReplaceBetweenMarkers_MissingMarker(t *testing.T) {
	_, err := ReplaceBetweenMarkers("no markers here", "refs", "content")
	if err == nil {
		t.Fatal("expected error for missing markers")
	}
	_, err = ReplaceBetweenMarkers("x", " ", "content")
	if err == nil {
		t.Fatal("expected error for blank marker")
	}
	_, err = ReplaceBetweenMarkers("<!-- gridnote:a -->b:start -->", "a -->b", "content")
	if err == nil {
		t.Fatal("expected error for marker that escapes the comment")
	}
}

func TestInjectDiagram(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "README.md")
	initial := "<!-- gridnote:refs:start -->\nold\n<!-- gridnote:refs:end -->\n"
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatal(err)
	}
	if err := InjectDiagram(path, "refs", "```mermaid\nflowchart LR\n```"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "flowchart LR") || strings.Contains(string(data), "old") {
		t.Fatalf("expected updated markdown diagram, got: %s", string(data))
	}
}

func TestInjectSheetDiagram(t *testing.T) {
	svc := newStubService(t, map[string]string{"A1": "1", "B1": "=A1", "A2": "=B2", "B2": "=A2"})
	path := filepath.Join(t.TempDir(), "README.md")
	initial := "# Budget\n<!-- gridnote:refs:start -->\nold\n<!-- gridnote:refs:end -->\ntail\n"
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatal(err)
	}

	if err := InjectSheetDiagram(path, "refs", SheetFrom(svc)); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{
		"<!-- gridnote:refs:start -->\n<!-- document: stub | 3 references | 1 cycles -->\n```mermaid\n",
		"flowchart LR",
		"\n```\n<!-- gridnote:refs:end -->\ntail",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "old") {
		t.Fatalf("expected previous block replaced, got:\n%s", got)
	}
}

func TestRenderRevisions(t *testing.T) {
	revs := []history.Revision{
		{DocumentID: "d", Number: 1, Timestamp: time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC), CellCount: 5, FilledCount: 1},
		{DocumentID: "d", Number: 2, Timestamp: time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), CellCount: 9, FilledCount: 3},
	}

	out, err := RenderRevisionsTSV("budget", revs)
	if err != nil {
		t.Fatalf("render tsv: %v", err)
	}
	text := string(out)
	if !strings.HasPrefix(text, "Document\tRevision\tTimestamp\tCells\tFilled\tDeltaFilled\n") {
		t.Fatalf("unexpected header: %q", text)
	}
	if !strings.Contains(text, "budget\t2\t2026-02-14T00:00:00Z\t9\t3\t2\n") {
		t.Fatalf("unexpected rows: %q", text)
	}

	js, err := RenderRevisionsJSON("budget", revs)
	if err != nil {
		t.Fatalf("render json: %v", err)
	}
	if !strings.Contains(string(js), "\"document\": \"budget\"") {
		t.Fatalf("unexpected json: %s", js)
	}
}
