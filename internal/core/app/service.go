package app

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gridnote/internal/core/errors"
	"gridnote/internal/core/ports"
	"gridnote/internal/data/history"
	"gridnote/internal/engine/formula"
	"gridnote/internal/engine/graph"
	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/recompute"
	"gridnote/internal/shared/observability"
)

var _ ports.SheetService = (*App)(nil)

// Edit writes content into the cell named by ref.
func (a *App) Edit(ctx context.Context, ref, content string) (ports.Update, error) {
	a.mu.RLock()
	x, y, err := a.resolveRef(ref)
	a.mu.RUnlock()
	if err != nil {
		return ports.Update{}, err
	}
	return a.EditAt(ctx, x, y, content)
}

// EditAt writes content at (x, y), applies neighbour expansion or pruning and
// recomputes the edited cell, the cells added or removed, and everything that
// reads them.
func (a *App) EditAt(ctx context.Context, x, y int, content string) (ports.Update, error) {
	_, span := observability.Tracer.Start(ctx, "App.EditAt", trace.WithAttributes(
		attribute.Int("cell.x", x),
		attribute.Int("cell.y", y),
	))
	defer span.End()

	a.mu.Lock()
	next, changed, err := a.doc.Store.Set(x, y, content)
	if err != nil {
		a.mu.Unlock()
		span.RecordError(err)
		return ports.Update{}, err
	}
	if len(changed) == 0 {
		u := a.updateLocked(recompute.Result{}, ReasonEdit)
		a.mu.Unlock()
		return u, nil
	}

	a.doc.Store = next
	result := a.orchestrator.Recompute(next, a.values, changed)
	a.install(result)
	u := a.updateLocked(result, ReasonEdit)
	doc := a.doc
	a.mu.Unlock()

	span.SetAttributes(
		attribute.Int("recompute.affected", result.Affected),
		attribute.String("recompute.mode", result.Mode),
	)
	observability.EditsTotal.Inc()
	a.enqueueSave(doc, ReasonEdit)
	a.emitUpdate(u)
	return u, nil
}

// Preview evaluates content as if it were placed at ref, without committing.
func (a *App) Preview(ref, content string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	x, y, err := a.resolveRef(ref)
	if err != nil {
		return "", err
	}
	return a.evaluator.Preview(a.doc.Store, x, y, content), nil
}

func (a *App) Content(ref string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	x, y, err := a.resolveRef(ref)
	if err != nil {
		return "", err
	}
	return a.doc.Store.Content(grid.ToKey(x, y)), nil
}

// Value returns the display value at ref; absent cells display as "".
func (a *App) Value(ref string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	x, y, err := a.resolveRef(ref)
	if err != nil {
		return "", err
	}
	return a.values[grid.ToKey(x, y)], nil
}

func (a *App) Values() recompute.DisplayValues {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.values.Clone()
}

// Cells lists every stored cell with its display value, top row first.
func (a *App) Cells() []ports.CellView {
	a.mu.RLock()
	defer a.mu.RUnlock()

	cells := a.doc.Store.Cells()
	out := make([]ports.CellView, 0, len(cells))
	for _, c := range cells {
		key := c.Key()
		out = append(out, ports.CellView{
			Key:     key,
			Ref:     a.codec.CoordsToRef(c.X, c.Y),
			X:       c.X,
			Y:       c.Y,
			Content: c.Content,
			Display: a.values[key],
		})
	}
	return out
}

// References resolves the references of in-progress input for highlighting.
func (a *App) References(content string) []formula.Reference {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return formula.ResolveReferences(content, a.codec)
}

func (a *App) Cycles() [][]grid.Key {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneCycles(a.cycles)
}

// Graph returns the dependency graph of the current snapshot. Graphs are
// rebuilt on every change and never mutated afterwards.
func (a *App) Graph() *graph.DependencyGraph {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.graph
}

// Impact reports which cells read ref directly or indirectly.
func (a *App) Impact(ref string) (graph.ImpactReport, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	x, y, err := a.resolveRef(ref)
	if err != nil {
		return graph.ImpactReport{}, err
	}
	report, err := a.graph.Impact(grid.ToKey(x, y))
	if err != nil {
		de := errors.Wrap(err, errors.CodeNotFound, "cell has no references")
		return graph.ImpactReport{}, errors.AddContext(de, errors.CtxRef, ref)
	}
	return report, nil
}

// Save writes the current document to the history store.
func (a *App) Save(ctx context.Context) (history.Revision, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.Save")
	defer span.End()

	if a.history == nil {
		return history.Revision{}, errHistoryDisabled()
	}
	doc := a.Snapshot()
	rev, err := a.history.Save(ctx, doc)
	if err != nil {
		span.RecordError(err)
		return history.Revision{}, errors.AddContext(err, errors.CtxOperation, "save")
	}
	span.SetAttributes(attribute.Int("document.revision", rev.Number))
	return rev, nil
}

// Open replaces the current document with the newest stored snapshot of name.
func (a *App) Open(ctx context.Context, name string) error {
	ctx, span := observability.Tracer.Start(ctx, "App.Open", trace.WithAttributes(
		attribute.String("document.name", name),
	))
	defer span.End()

	if a.history == nil {
		return errHistoryDisabled()
	}
	doc, err := a.history.Load(ctx, name, a.Codec())
	if err != nil {
		span.RecordError(err)
		return err
	}

	a.mu.Lock()
	result := a.replaceDocument(doc, "")
	u := a.updateLocked(result, ReasonOpen)
	a.mu.Unlock()

	a.emitUpdate(u)
	return nil
}

func (a *App) Documents(ctx context.Context) ([]history.Summary, error) {
	if a.history == nil {
		return nil, errHistoryDisabled()
	}
	return a.history.List(ctx)
}

// Revisions lists the stored revisions of the current document.
func (a *App) Revisions(ctx context.Context) ([]history.Revision, error) {
	if a.history == nil {
		return nil, errHistoryDisabled()
	}
	return a.history.Revisions(ctx, a.DocumentName())
}

func errHistoryDisabled() error {
	return errors.New(errors.CodeValidationError, "document history is disabled")
}
