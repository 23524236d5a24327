package ports

import (
	"context"
	"time"

	"gridnote/internal/data/document"
	"gridnote/internal/data/history"
	"gridnote/internal/engine/formula"
	"gridnote/internal/engine/graph"
	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/recompute"
)

// DocumentHistory abstracts document persistence across sessions.
type DocumentHistory interface {
	Save(ctx context.Context, doc document.Document) (history.Revision, error)
	Load(ctx context.Context, name string, codec grid.Codec) (document.Document, error)
	List(ctx context.Context) ([]history.Summary, error)
	Revisions(ctx context.Context, name string) ([]history.Revision, error)
	Close() error
}

// SaveRequest asks the autosave worker to persist a document snapshot.
type SaveRequest struct {
	Document document.Document
	Reason   string
	Queued   time.Time
}

type EnqueueResult string

const (
	EnqueueAccepted EnqueueResult = "accepted"
	EnqueueDropped  EnqueueResult = "dropped"
)

// SaveQueuePort buffers autosave requests between the editor and the worker.
type SaveQueuePort interface {
	Enqueue(req SaveRequest) EnqueueResult
	DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]SaveRequest, error)
	Close() error
	Len() int
}

// CellView is one rendered cell.
type CellView struct {
	Key     grid.Key
	Ref     string
	X       int
	Y       int
	Content string
	Display string
}

// Update is pushed to listeners after every committed change.
type Update struct {
	Document string
	Cells    int
	Cycles   [][]grid.Key
	Affected int
	Mode     string
	Reason   string
}

// SheetService is the driving port used by the CLI and the terminal UI.
type SheetService interface {
	Codec() grid.Codec
	DocumentName() string
	Edit(ctx context.Context, ref, content string) (Update, error)
	EditAt(ctx context.Context, x, y int, content string) (Update, error)
	Preview(ref, content string) (string, error)
	Content(ref string) (string, error)
	Value(ref string) (string, error)
	Values() recompute.DisplayValues
	Cells() []CellView
	References(content string) []formula.Reference
	Cycles() [][]grid.Key
	Impact(ref string) (graph.ImpactReport, error)
	Graph() *graph.DependencyGraph
	Save(ctx context.Context) (history.Revision, error)
	Open(ctx context.Context, name string) error
	Documents(ctx context.Context) ([]history.Summary, error)
	Revisions(ctx context.Context) ([]history.Revision, error)
	ExportFile(path string) error
	LoadFile(path string) error
	SetUpdateHandler(func(Update))
}
