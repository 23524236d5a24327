package eval

import (
	"log/slog"

	"gridnote/internal/engine/formula"
	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/sheet"
	"gridnote/internal/shared/observability"
)

const (
	// DefaultErrorToken is displayed for cycles and failed formulas.
	DefaultErrorToken = "#ERROR"

	// DefaultMaxDepth caps reference recursion. The visiting set already
	// bounds depth by the grid size; this only guards oversized grids.
	DefaultMaxDepth = 4096
)

// Evaluator computes display values for cells of a sheet snapshot. It never
// returns an error: cycles and formula failures become the error token and
// unresolvable references contribute 0.
type Evaluator struct {
	engine     formula.Engine
	errorToken string
	maxDepth   int
}

type Option func(*Evaluator)

func WithErrorToken(token string) Option {
	return func(e *Evaluator) {
		if token != "" {
			e.errorToken = token
		}
	}
}

func WithMaxDepth(depth int) Option {
	return func(e *Evaluator) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

func New(engine formula.Engine, opts ...Option) *Evaluator {
	e := &Evaluator{
		engine:     engine,
		errorToken: DefaultErrorToken,
		maxDepth:   DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) ErrorToken() string {
	return e.errorToken
}

// Evaluate returns the display string of key within store, sharing pass with
// every other cell evaluated in the same recompute.
func (e *Evaluator) Evaluate(store sheet.Store, key grid.Key, pass *Pass) string {
	return e.Value(store, key, pass).String()
}

// Value is Evaluate without the final stringification.
func (e *Evaluator) Value(store sheet.Store, key grid.Key, pass *Pass) formula.Value {
	v, _ := e.value(store, key, pass)
	return v
}

// value follows references depth first. The second result is the lowest
// visit order of a cell on the recursion path reachable from key; when it
// equals key's own order, key closes a strongly connected component, and a
// component that is a real cycle has every member replaced by the error token.
func (e *Evaluator) value(store sheet.Store, key grid.Key, pass *Pass) (formula.Value, int) {
	if v, ok := pass.Lookup(key); ok {
		return v, pass.link(key)
	}

	content := store.Content(key)
	if content == "" {
		return pass.remember(key, formula.Text("")), noLink
	}
	if !formula.IsFormula(content) {
		return pass.remember(key, formula.Text(content)), noLink
	}

	if pass.onPath(key) {
		return formula.Error(e.errorToken), pass.order[key]
	}
	if pass.depth >= e.maxDepth {
		observability.EvaluationErrorsTotal.WithLabelValues(observability.ReasonDepth).Inc()
		slog.Warn("reference depth limit reached", "cell", key, "max_depth", e.maxDepth)
		return pass.remember(key, formula.Error(e.errorToken)), noLink
	}

	idx := pass.enter(key)
	low := idx
	selfReference := false

	body := formula.Body(content)
	codec := store.Codec()
	refs := formula.ExtractReferences(body)
	bindings := make(map[string]float64, len(refs))
	for _, ref := range refs {
		target, ok := codec.KeyForRef(ref)
		if !ok {
			bindings[ref] = 0
			continue
		}
		if target == key {
			selfReference = true
		}
		v, l := e.value(store, target, pass)
		bindings[ref] = v.Operand()
		if l < low {
			low = l
		}
	}

	result, err := e.engine.Evaluate(body, bindings)
	if err != nil {
		observability.EvaluationErrorsTotal.WithLabelValues(observability.ReasonExpression).Inc()
		slog.Debug("formula evaluation failed", "cell", key, "error", err)
		result = formula.Error(e.errorToken)
	}
	pass.remember(key, result)
	pass.leave(key)

	if low < idx {
		return result, low
	}

	members := pass.closeComponent(key)
	if len(members) > 1 || selfReference {
		for _, m := range members {
			pass.remember(m, formula.Error(e.errorToken))
		}
		observability.EvaluationErrorsTotal.WithLabelValues(observability.ReasonCycle).Add(float64(len(members)))
		slog.Debug("circular reference", "cell", key, "members", len(members))
	}
	return pass.memo[key], noLink
}

// Preview evaluates content as if it were committed at (x, y) without
// touching store. A fresh pass is used because the hypothetical content can
// change every value that depends on (x, y).
func (e *Evaluator) Preview(store sheet.Store, x, y int, content string) string {
	overlay := store.With(sheet.Cell{X: x, Y: y, Content: content})
	return e.Evaluate(overlay, grid.ToKey(x, y), NewPass())
}
