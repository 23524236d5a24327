package history

import (
	"time"

	"gridnote/internal/engine/sheet"
)

// SchemaVersion is the latest migration version this build understands.
const SchemaVersion = 2

// Document is a persisted sheet. Min and Max record the grid bounds the
// cells were saved under.
type Document struct {
	ID        string
	Name      string
	Min       int
	Max       int
	Cells     []sheet.Cell
	UpdatedAt time.Time
}

// Summary is one row of ListDocuments.
type Summary struct {
	ID        string
	Name      string
	CellCount int
	Revision  int
	UpdatedAt time.Time
}

// Revision records one save of a document.
type Revision struct {
	DocumentID  string
	Number      int
	Timestamp   time.Time
	CellCount   int
	FilledCount int
}
