package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gridnote/internal/core/errors"
	"gridnote/internal/engine/sheet"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), time.Second)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveLoadDocument(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	rev, err := store.SaveDocument(ctx, Document{
		ID:   "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		Name: "budget",
		Min:  -3,
		Max:  3,
		Cells: []sheet.Cell{
			{X: 0, Y: 0, Content: "2"},
			{X: 1, Y: 0, Content: "=D4*2"},
			{X: 0, Y: 1},
		},
		UpdatedAt: base,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rev.Number != 1 || rev.CellCount != 3 || rev.FilledCount != 2 {
		t.Fatalf("unexpected revision %+v", rev)
	}

	doc, err := store.LoadDocument(ctx, "budget")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.ID != rev.DocumentID || doc.Min != -3 || doc.Max != 3 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if !doc.UpdatedAt.Equal(base) {
		t.Fatalf("updated at = %v", doc.UpdatedAt)
	}
	if len(doc.Cells) != 3 || doc.Cells[0].Y != 1 {
		t.Fatalf("cells not ordered top row first: %+v", doc.Cells)
	}
}

func TestStore_SaveReplacesCellsAndKeepsIdentity(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.SaveDocument(ctx, Document{Name: "notes", Cells: []sheet.Cell{{X: 0, Y: 0, Content: "a"}, {X: 1, Y: 0, Content: "b"}}})
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	// A different ID under the same name updates the existing document.
	second, err := store.SaveDocument(ctx, Document{ID: "other", Name: "notes", Cells: []sheet.Cell{{X: 0, Y: 0, Content: "c"}}})
	if err != nil {
		t.Fatalf("save second: %v", err)
	}
	if second.DocumentID != first.DocumentID || second.Number != 2 {
		t.Fatalf("expected revision 2 of %s, got %+v", first.DocumentID, second)
	}

	doc, err := store.LoadDocument(ctx, "notes")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.Cells) != 1 || doc.Cells[0].Content != "c" {
		t.Fatalf("expected cells to be replaced, got %+v", doc.Cells)
	}

	revs, err := store.ListRevisions(ctx, "notes")
	if err != nil {
		t.Fatalf("revisions: %v", err)
	}
	if len(revs) != 2 || revs[0].FilledCount != 2 || revs[1].FilledCount != 1 {
		t.Fatalf("unexpected revisions %+v", revs)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha"} {
		if _, err := store.SaveDocument(ctx, Document{Name: name, Cells: []sheet.Cell{{X: 0, Y: 0, Content: name}}}); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}

	list, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "alpha" || list[0].CellCount != 1 || list[0].Revision != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := store.DeleteDocument(ctx, "alpha"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.LoadDocument(ctx, "alpha"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND after delete, got %v", err)
	}
	if err := store.DeleteDocument(ctx, "alpha"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND deleting twice, got %v", err)
	}

	var orphaned int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM cells c LEFT JOIN documents d ON d.id = c.document_id WHERE d.id IS NULL`).Scan(&orphaned); err != nil {
		t.Fatal(err)
	}
	if orphaned != 0 {
		t.Fatalf("expected cascade delete, %d orphaned cells", orphaned)
	}
}

func TestStore_SaveRequiresName(t *testing.T) {
	store := openTestStore(t)
	_, err := store.SaveDocument(context.Background(), Document{Name: "  "})
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestOpen_RejectsDirectoryAndEmptyPath(t *testing.T) {
	if _, err := Open(" ", 0); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := Open(t.TempDir(), 0); err == nil || !strings.Contains(err.Error(), "directory") {
		t.Fatalf("expected directory error, got %v", err)
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store := openTestStore(t)
	if err := EnsureSchema(store.db); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	var version int
	if err := store.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != SchemaVersion {
		t.Fatalf("schema version = %d, want %d", version, SchemaVersion)
	}
}

func TestEnsureSchema_RejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	db, err := sql.Open(driverName, path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := EnsureSchema(db); err != nil {
		t.Fatalf("initial schema: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}
	if err := EnsureSchema(db); err == nil {
		t.Fatal("expected error for newer schema version")
	}
}

func TestIsLockError(t *testing.T) {
	if isLockError(nil) {
		t.Fatal("nil is not a lock error")
	}
	if !isLockError(errors.New(errors.CodeInternal, "database is locked")) {
		t.Fatal("expected lock error to be detected")
	}
}
