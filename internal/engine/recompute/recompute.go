// # internal/engine/recompute/recompute.go
package recompute

import (
	"log/slog"
	"time"

	"gridnote/internal/engine/eval"
	"gridnote/internal/engine/graph"
	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/sheet"
	"gridnote/internal/shared/observability"
)

const (
	ModeFull      = "full"
	ModeSelective = "selective"
)

// DisplayValues maps every cell of a snapshot to its display string.
type DisplayValues map[grid.Key]string

// Clone returns an independent copy.
func (d DisplayValues) Clone() DisplayValues {
	out := make(DisplayValues, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Result is the outcome of one recompute.
type Result struct {
	Values   DisplayValues
	Graph    *graph.DependencyGraph
	Mode     string
	Affected int
}

// Orchestrator decides which cells to re-evaluate after a change.
type Orchestrator struct {
	evaluator *eval.Evaluator
}

func New(evaluator *eval.Evaluator) *Orchestrator {
	return &Orchestrator{evaluator: evaluator}
}

// Full evaluates every cell in store with a single shared pass.
func (o *Orchestrator) Full(store sheet.Store) Result {
	start := time.Now()
	g := graph.Build(store)
	pass := eval.NewPass()

	values := make(DisplayValues, store.Len())
	for _, key := range store.Keys() {
		values[key] = o.evaluator.Evaluate(store, key, pass)
	}

	o.observe(ModeFull, len(values), start)
	return Result{Values: values, Graph: g, Mode: ModeFull, Affected: len(values)}
}

// Recompute refreshes previous for a store in which the cells in changed were
// edited. An empty changed set means everything is stale. Only the changed
// cells and their transitive dependents are re-evaluated; every other value
// is carried over from previous. Affected keys that no longer exist in store
// are dropped from the result.
func (o *Orchestrator) Recompute(store sheet.Store, previous DisplayValues, changed []grid.Key) Result {
	if len(changed) == 0 || previous == nil {
		return o.Full(store)
	}

	start := time.Now()
	g := graph.Build(store)
	affected := g.Affected(changed)
	pass := eval.NewPass()

	values := previous.Clone()
	for key := range affected {
		if _, ok := store.Get(key); !ok {
			delete(values, key)
			continue
		}
		values[key] = o.evaluator.Evaluate(store, key, pass)
	}

	// A cell present in store but missing from previous was never evaluated;
	// this happens when previous belongs to an older snapshot.
	for _, key := range store.Keys() {
		if _, ok := values[key]; !ok {
			values[key] = o.evaluator.Evaluate(store, key, pass)
		}
	}

	slog.Debug("selective recompute", "changed", len(changed), "affected", len(affected))
	o.observe(ModeSelective, len(affected), start)
	return Result{Values: values, Graph: g, Mode: ModeSelective, Affected: len(affected)}
}

func (o *Orchestrator) observe(mode string, affected int, start time.Time) {
	observability.RecomputeDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	observability.AffectedCells.Observe(float64(affected))
}
