package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gridnote/internal/core/errors"
	"gridnote/internal/engine/sheet"
	"gridnote/internal/shared/observability"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}
	// busy_timeout + WAL reduce lock conflicts while the watcher reloads.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveDocument replaces the stored cells of doc and appends a revision. A
// document is identified by name; when the name is new, doc.ID is used (or
// generated when empty). The returned revision carries the stored ID.
func (s *Store) SaveDocument(ctx context.Context, doc Document) (Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return Revision{}, errors.New(errors.CodeValidationError, "document name must not be empty")
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	ts := doc.UpdatedAt.UTC().Format(time.RFC3339Nano)

	var rev Revision
	err := s.withRetry("save document", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		id, err := resolveID(ctx, tx, name, doc.ID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO documents (id, name, min_bound, max_bound, updated_at_utc)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  min_bound=excluded.min_bound,
  max_bound=excluded.max_bound,
  updated_at_utc=excluded.updated_at_utc
`, id, name, doc.Min, doc.Max, ts); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE document_id = ?`, id); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO cells (document_id, x, y, content) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		filled := 0
		for _, c := range doc.Cells {
			if !c.IsEmpty() {
				filled++
			}
			if _, err := stmt.ExecContext(ctx, id, c.X, c.Y, c.Content); err != nil {
				return err
			}
		}

		var number int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(revision), 0) + 1 FROM revisions WHERE document_id = ?`, id,
		).Scan(&number); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO revisions (document_id, revision, ts_utc, cell_count, filled_count)
VALUES (?, ?, ?, ?, ?)
`, id, number, ts, len(doc.Cells), filled); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		rev = Revision{
			DocumentID:  id,
			Number:      number,
			Timestamp:   doc.UpdatedAt.UTC(),
			CellCount:   len(doc.Cells),
			FilledCount: filled,
		}
		return nil
	})
	observe("save", err)
	if err != nil {
		return Revision{}, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "save document"), errors.CtxDocument, name)
	}
	return rev, nil
}

func resolveID(ctx context.Context, tx *sql.Tx, name, requested string) (string, error) {
	var existing string
	err := tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE name = ?`, name).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case !stderrors.Is(err, sql.ErrNoRows):
		return "", err
	}
	if strings.TrimSpace(requested) != "" {
		return requested, nil
	}
	return uuid.NewString(), nil
}

// LoadDocument returns the latest saved state of name.
func (s *Store) LoadDocument(ctx context.Context, name string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	var (
		doc   Document
		tsRaw string
	)
	err := s.withRetry("load document", func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT id, name, min_bound, max_bound, updated_at_utc FROM documents WHERE name = ?`, name,
		).Scan(&doc.ID, &doc.Name, &doc.Min, &doc.Max, &tsRaw)
	})
	if err != nil {
		observe("load", err)
		if stderrors.Is(err, sql.ErrNoRows) {
			return Document{}, errors.AddContext(errors.New(errors.CodeNotFound, "document not found"), errors.CtxDocument, name)
		}
		return Document{}, errors.Wrap(err, errors.CodeInternal, "load document")
	}

	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return Document{}, fmt.Errorf("parse document timestamp %q: %w", tsRaw, err)
	}
	doc.UpdatedAt = ts.UTC()

	var rows *sql.Rows
	err = s.withRetry("load cells", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx,
			`SELECT x, y, content FROM cells WHERE document_id = ? ORDER BY y DESC, x ASC`, doc.ID)
		return qErr
	})
	if err != nil {
		observe("load", err)
		return Document{}, errors.Wrap(err, errors.CodeInternal, "load cells")
	}
	defer rows.Close()

	for rows.Next() {
		var c sheet.Cell
		if err := rows.Scan(&c.X, &c.Y, &c.Content); err != nil {
			return Document{}, fmt.Errorf("scan cell row: %w", err)
		}
		doc.Cells = append(doc.Cells, c)
	}
	if err := rows.Err(); err != nil {
		return Document{}, fmt.Errorf("iterate cell rows: %w", err)
	}

	observe("load", nil)
	return doc, nil
}

// ListDocuments returns every stored document ordered by name.
func (s *Store) ListDocuments(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("list documents", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT d.id, d.name, d.updated_at_utc,
  (SELECT COUNT(*) FROM cells c WHERE c.document_id = d.id),
  (SELECT COALESCE(MAX(r.revision), 0) FROM revisions r WHERE r.document_id = d.id)
FROM documents d
ORDER BY d.name ASC
`)
		return qErr
	})
	observe("list", err)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list documents")
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		var (
			sum   Summary
			tsRaw string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &tsRaw, &sum.CellCount, &sum.Revision); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse document timestamp %q: %w", tsRaw, err)
		}
		sum.UpdatedAt = ts.UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return out, nil
}

// ListRevisions returns the save log of name, oldest first.
func (s *Store) ListRevisions(ctx context.Context, name string) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("list revisions", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT r.document_id, r.revision, r.ts_utc, r.cell_count, r.filled_count
FROM revisions r JOIN documents d ON d.id = r.document_id
WHERE d.name = ?
ORDER BY r.revision ASC
`, strings.TrimSpace(name))
		return qErr
	})
	observe("revisions", err)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list revisions")
	}
	defer rows.Close()

	out := make([]Revision, 0)
	for rows.Next() {
		var (
			rev   Revision
			tsRaw string
		)
		if err := rows.Scan(&rev.DocumentID, &rev.Number, &tsRaw, &rev.CellCount, &rev.FilledCount); err != nil {
			return nil, fmt.Errorf("scan revision row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse revision timestamp %q: %w", tsRaw, err)
		}
		rev.Timestamp = ts.UTC()
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revision rows: %w", err)
	}
	return out, nil
}

// DeleteDocument removes name together with its cells and revisions.
func (s *Store) DeleteDocument(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	var affected int64
	err := s.withRetry("delete document", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	observe("delete", err)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "delete document")
	}
	if affected == 0 {
		return errors.AddContext(errors.New(errors.CodeNotFound, "document not found"), errors.CtxDocument, name)
	}
	return nil
}

func observe(op string, err error) {
	outcome := "ok"
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		outcome = "error"
	} else if err != nil {
		outcome = "not_found"
	}
	observability.HistoryOperationsTotal.WithLabelValues(op, outcome).Inc()
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || stderrors.Is(err, os.ErrInvalid)
}
