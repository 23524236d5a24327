package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gridnote/internal/core/errors"
	"gridnote/internal/data/document"
	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/sheet"
	"gridnote/internal/shared/observability"
)

// reloadWait bounds how long a watcher-driven reload waits for its limiter.
const reloadWait = 5 * time.Second

var readDocument = document.Read

// readDocumentLocked parses path without holding mu, then returns with mu
// held. A config reload that swapped the codec while the file was parsed
// forces a second parse against the installed codec.
func (a *App) readDocumentLocked(path string) (document.Document, error) {
	a.mu.RLock()
	codec := a.codec
	a.mu.RUnlock()

	doc, err := readDocument(path, codec)
	if err != nil {
		return document.Document{}, err
	}

	a.mu.Lock()
	if a.codec == codec {
		return doc, nil
	}
	slog.Debug("grid changed while reading document, reparsing", "path", path)
	doc, err = readDocument(path, a.codec)
	if err != nil {
		a.mu.Unlock()
		return document.Document{}, err
	}
	return doc, nil
}

// LoadFile replaces the current document with the one stored at path. Later
// changes to that file are picked up by HandleChanges.
func (a *App) LoadFile(path string) error {
	_, span := observability.Tracer.Start(context.Background(), "App.LoadFile", trace.WithAttributes(
		attribute.String("document.path", path),
	))
	defer span.End()

	abs := absPath(path)
	doc, err := a.readDocumentLocked(abs)
	if err != nil {
		span.RecordError(err)
		return err
	}

	result := a.replaceDocument(doc, abs)
	u := a.updateLocked(result, ReasonLoad)
	a.mu.Unlock()

	slog.Info("document loaded", "document", doc.Name, "path", abs, "cells", doc.Store.Len())
	a.emitUpdate(u)
	return nil
}

// ExportFile writes the current document to path. When path is the
// document's own file the watcher sees identical content and skips it.
func (a *App) ExportFile(path string) error {
	doc := a.Snapshot()
	if err := document.Write(path, doc); err != nil {
		return errors.AddContext(err, errors.CtxDocument, doc.Name)
	}
	return nil
}

// HandleChanges is the watcher callback. Only the file backing the current
// document triggers a reload.
func (a *App) HandleChanges(paths []string) {
	current := a.DocumentPath()
	if current == "" {
		return
	}
	for _, p := range paths {
		if absPath(p) != current {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), reloadWait)
		if err := a.ReloadFromFile(ctx, current); err != nil {
			slog.Warn("document reload failed", "path", current, "error", err)
		}
		cancel()
	}
}

// ReloadFromFile rereads path and recomputes only the cells whose presence
// or content differs from the current snapshot. Reloads of one file are
// rate limited.
func (a *App) ReloadFromFile(ctx context.Context, path string) error {
	ctx, span := observability.Tracer.Start(ctx, "App.ReloadFromFile", trace.WithAttributes(
		attribute.String("document.path", path),
	))
	defer span.End()

	if err := a.reloadLimits.Get(path).Wait(ctx, 1); err != nil {
		return err
	}

	doc, err := a.readDocumentLocked(path)
	if err != nil {
		span.RecordError(err)
		return err
	}

	changed := diffStores(a.doc.Store, doc.Store)
	if len(changed) == 0 {
		a.mu.Unlock()
		slog.Debug("document unchanged on disk", "path", path)
		return nil
	}
	a.doc = doc
	a.docPath = path
	result := a.orchestrator.Recompute(doc.Store, a.values, changed)
	a.install(result)
	u := a.updateLocked(result, ReasonReload)
	a.mu.Unlock()

	observability.ReloadsTotal.Inc()
	span.SetAttributes(attribute.Int("reload.changed", len(changed)))
	slog.Info("document reloaded", "document", doc.Name, "changed", len(changed), "affected", result.Affected)
	a.emitUpdate(u)
	return nil
}

// diffStores lists every key present in only one store or holding different
// content in each.
func diffStores(prev, next sheet.Store) []grid.Key {
	changed := make([]grid.Key, 0)
	for _, c := range next.Cells() {
		old, ok := prev.Get(c.Key())
		if !ok || old.Content != c.Content {
			changed = append(changed, c.Key())
		}
	}
	for _, c := range prev.Cells() {
		if _, ok := next.Get(c.Key()); !ok {
			changed = append(changed, c.Key())
		}
	}
	return changed
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
