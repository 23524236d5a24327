// Package document reads and writes grid documents as TOML files.
package document

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"gridnote/internal/core/errors"
	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/sheet"
)

// Extension is appended to document names when no path is given.
const Extension = ".grid.toml"

// File is the on-disk shape of a document.
//
//	id = "6f1c..."
//	name = "budget"
//
//	[[cells]]
//	ref = "A1"
//	content = "=B1*2"
type File struct {
	ID    string   `toml:"id,omitempty"`
	Name  string   `toml:"name"`
	Cells []Record `toml:"cells"`
}

type Record struct {
	Ref     string `toml:"ref"`
	Content string `toml:"content"`
}

// Document is a named sheet snapshot.
type Document struct {
	ID    string
	Name  string
	Store sheet.Store
}

// New returns an empty document with a fresh ID.
func New(name string, codec grid.Codec) Document {
	return Document{ID: uuid.NewString(), Name: name, Store: sheet.New(codec)}
}

// FromFile rebuilds a document by applying every record as an edit, in file
// order, to an empty store. Hand-written files therefore only need their
// non-empty cells; neighbours are recreated by expansion.
func FromFile(f File, codec grid.Codec) (Document, error) {
	doc := Document{ID: strings.TrimSpace(f.ID), Name: strings.TrimSpace(f.Name)}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	} else if _, err := uuid.Parse(doc.ID); err != nil {
		de := errors.Wrap(err, errors.CodeValidationError, "invalid document id")
		return Document{}, errors.AddContext(de, errors.CtxDocument, f.Name)
	}

	if len(f.Cells) == 0 {
		doc.Store = sheet.New(codec)
		return doc, nil
	}

	store := sheet.FromCells(codec, nil)
	for _, rec := range f.Cells {
		x, y, ok := codec.RefToCoords(strings.TrimSpace(rec.Ref))
		if !ok {
			err := errors.New(errors.CodeValidationError, "cell reference outside grid")
			err = errors.AddContext(err, errors.CtxRef, rec.Ref)
			return Document{}, errors.AddContext(err, errors.CtxDocument, doc.Name)
		}
		next, _, err := store.Set(x, y, rec.Content)
		if err != nil {
			return Document{}, err
		}
		store = next
	}
	doc.Store = store
	return doc, nil
}

// ToFile flattens a document into records. Empty cells are kept so a reload
// restores the same cell set.
func ToFile(doc Document) File {
	codec := doc.Store.Codec()
	cells := doc.Store.Cells()
	f := File{ID: doc.ID, Name: doc.Name, Cells: make([]Record, 0, len(cells))}
	for _, c := range cells {
		f.Cells = append(f.Cells, Record{Ref: codec.CoordsToRef(c.X, c.Y), Content: c.Content})
	}
	return f
}

// Read decodes the document at path.
func Read(path string, codec grid.Codec) (Document, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if os.IsNotExist(err) {
			de := errors.Wrap(err, errors.CodeNotFound, "document file not found")
			return Document{}, errors.AddContext(de, errors.CtxPath, path)
		}
		de := errors.Wrap(err, errors.CodeValidationError, "decode document")
		return Document{}, errors.AddContext(de, errors.CtxPath, path)
	}
	if strings.TrimSpace(f.Name) == "" {
		f.Name = NameFromPath(path)
	}
	return FromFile(f, codec)
}

// Write encodes doc to path through a temporary file and a rename, so
// watchers never observe a half-written document.
func Write(path string, doc Document) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(ToFile(doc)); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode document")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create document directory")
	}
	tmp, err := os.CreateTemp(dir, ".gridnote-*")
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.CodeInternal, "write document")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "close document")
	}
	if err := os.Rename(tmpName, path); err != nil {
		de := errors.Wrap(err, errors.CodeInternal, "replace document")
		return errors.AddContext(de, errors.CtxPath, path)
	}
	return nil
}

// NameFromPath strips the directory and the document extension.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	if strings.HasSuffix(base, Extension) {
		return strings.TrimSuffix(base, Extension)
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
