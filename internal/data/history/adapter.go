package history

import (
	"context"
	"log/slog"

	"gridnote/internal/data/document"
	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/sheet"
)

// Adapter bridges Store to the core DocumentHistory port, converting between
// in-memory documents and stored rows.
type Adapter struct {
	store *Store
}

func NewAdapter(store *Store) *Adapter {
	return &Adapter{store: store}
}

func (a *Adapter) Save(ctx context.Context, doc document.Document) (Revision, error) {
	bounds := doc.Store.Codec().Bounds()
	return a.store.SaveDocument(ctx, Document{
		ID:    doc.ID,
		Name:  doc.Name,
		Min:   bounds.Min,
		Max:   bounds.Max,
		Cells: doc.Store.Cells(),
	})
}

// Load restores name under codec. Cells saved under wider bounds that fall
// outside codec are dropped.
func (a *Adapter) Load(ctx context.Context, name string, codec grid.Codec) (document.Document, error) {
	stored, err := a.store.LoadDocument(ctx, name)
	if err != nil {
		return document.Document{}, err
	}

	store := sheet.FromCells(codec, stored.Cells)
	if len(stored.Cells) == 0 {
		store = sheet.New(codec)
	}
	if dropped := len(stored.Cells) - store.Len(); dropped > 0 && len(stored.Cells) > 0 {
		slog.Warn("document saved under wider grid bounds; cells dropped",
			"document", name, "dropped", dropped, "saved_min", stored.Min, "saved_max", stored.Max)
	}
	return document.Document{ID: stored.ID, Name: stored.Name, Store: store}, nil
}

func (a *Adapter) List(ctx context.Context) ([]Summary, error) {
	return a.store.ListDocuments(ctx)
}

func (a *Adapter) Revisions(ctx context.Context, name string) ([]Revision, error) {
	return a.store.ListRevisions(ctx, name)
}

func (a *Adapter) Close() error {
	return a.store.Close()
}
