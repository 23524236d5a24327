package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"gridnote/internal/core/config"
	"gridnote/internal/data/document"
	"gridnote/internal/data/history"
	"gridnote/internal/engine/grid"
)

type recordingHistory struct {
	mu     sync.Mutex
	saved  []document.Document
	closed bool
}

func (h *recordingHistory) Save(_ context.Context, doc document.Document) (history.Revision, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append(h.saved, doc)
	return history.Revision{DocumentID: doc.ID, Number: len(h.saved)}, nil
}

func (h *recordingHistory) Load(context.Context, string, grid.Codec) (document.Document, error) {
	return document.Document{}, nil
}

func (h *recordingHistory) List(context.Context) ([]history.Summary, error) { return nil, nil }

func (h *recordingHistory) Revisions(context.Context, string) ([]history.Revision, error) {
	return nil, nil
}

func (h *recordingHistory) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *recordingHistory) snapshot() []document.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]document.Document(nil), h.saved...)
}

func TestSaveWorker_PersistsEdits(t *testing.T) {
	h := &recordingHistory{}
	a, err := New(config.DefaultConfig(), "worker", WithHistory(h))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close(context.Background())

	if _, err := a.Edit(context.Background(), "A1", "1"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(h.snapshot()) > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timed out waiting for autosave")
}

func TestSaveWorker_CloseDrainsPendingSaves(t *testing.T) {
	h := &recordingHistory{}
	a, err := New(config.DefaultConfig(), "worker", WithHistory(h))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, content := range []string{"1", "2", "3"} {
		if _, err := a.Edit(context.Background(), "A1", content); err != nil {
			t.Fatalf("edit failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	saved := h.snapshot()
	if len(saved) == 0 {
		t.Fatal("expected pending saves to be flushed on close")
	}
	last := saved[len(saved)-1]
	if got := last.Store.Content(grid.ToKey(-12, 12)); got != "3" {
		t.Fatalf("last saved A1 = %q, want 3", got)
	}
	if !h.closed {
		t.Fatal("expected history to be closed")
	}
}

func TestSaveWorker_DisabledWithoutHistory(t *testing.T) {
	a, err := New(config.DefaultConfig(), "plain")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close(context.Background())

	if a.saveQueue != nil || a.workerCancel != nil {
		t.Fatal("expected no save worker without history")
	}
	a.enqueueSave(a.Snapshot(), ReasonEdit)
}
