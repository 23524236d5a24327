package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gridnote/internal/core/config"
	"gridnote/internal/core/errors"
	"gridnote/internal/core/ports"
	"gridnote/internal/core/watcher"
	"gridnote/internal/data/document"
	"gridnote/internal/engine/eval"
	"gridnote/internal/engine/formula"
	"gridnote/internal/engine/graph"
	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/recompute"
	"gridnote/internal/engine/sheet"
	"gridnote/internal/shared/observability"
	"gridnote/internal/shared/util"
)

const (
	ReasonEdit   = "edit"
	ReasonOpen   = "open"
	ReasonLoad   = "load"
	ReasonReload = "reload"
	ReasonConfig = "config"
)

// reloadLimiterTTL is how long an idle per-file reload limiter is kept.
const reloadLimiterTTL = 10 * time.Minute

// App owns the current document snapshot and its display values. All
// mutations go through mu so the terminal UI and the file watcher can both
// drive edits.
type App struct {
	Config *config.Config

	mu           sync.RWMutex
	codec        grid.Codec
	engine       formula.Engine
	evaluator    *eval.Evaluator
	orchestrator *recompute.Orchestrator
	doc          document.Document
	docPath      string
	values       recompute.DisplayValues
	graph        *graph.DependencyGraph
	cycles       [][]grid.Key

	history      ports.DocumentHistory
	saveQueue    ports.SaveQueuePort
	workerCancel context.CancelFunc
	workerDone   chan struct{}

	reloadLimits  *util.LimiterRegistry
	activeWatcher *watcher.Watcher

	updateMu sync.RWMutex
	onUpdate func(ports.Update)

	closeOnce sync.Once
}

// Option customizes an App at construction.
type Option func(*App)

// WithHistory enables Save, Open, Documents and autosave.
func WithHistory(h ports.DocumentHistory) Option {
	return func(a *App) {
		a.history = h
	}
}

// WithEngine replaces the default expression engine.
func WithEngine(e formula.Engine) Option {
	return func(a *App) {
		a.engine = e
	}
}

// New builds an App holding an empty document named name.
func New(cfg *config.Config, name string, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.engine == nil {
		a.engine = formula.NewExprEngine(cfg.Formula.ProgramCacheSize)
	}
	a.configureEngine(cfg)
	a.reloadLimits = util.NewLimiterRegistry(cfg.Watch.ReloadRate, cfg.Watch.ReloadBurst, reloadLimiterTTL)

	a.replaceDocument(document.New(name, a.codec), "")
	if a.history != nil {
		a.startSaveWorker()
	}
	return a, nil
}

func (a *App) configureEngine(cfg *config.Config) {
	min, max := cfg.Grid.Bounds()
	a.codec = grid.NewCodec(grid.Bounds{Min: min, Max: max})
	a.evaluator = eval.New(a.engine,
		eval.WithErrorToken(cfg.Grid.ErrorToken),
		eval.WithMaxDepth(cfg.Grid.MaxDepth),
	)
	a.orchestrator = recompute.New(a.evaluator)
}

// replaceDocument installs doc and recomputes it from scratch. Callers hold
// mu, except during construction.
func (a *App) replaceDocument(doc document.Document, path string) recompute.Result {
	a.doc = doc
	a.docPath = path
	result := a.orchestrator.Full(doc.Store)
	a.install(result)
	return result
}

func (a *App) install(result recompute.Result) {
	a.values = result.Values
	a.graph = result.Graph
	a.cycles = result.Graph.DetectCycles()
	observability.DocumentCells.Set(float64(a.doc.Store.Len()))
}

func (a *App) updateLocked(result recompute.Result, reason string) ports.Update {
	return ports.Update{
		Document: a.doc.Name,
		Cells:    a.doc.Store.Len(),
		Cycles:   cloneCycles(a.cycles),
		Affected: result.Affected,
		Mode:     result.Mode,
		Reason:   reason,
	}
}

// SetUpdateHandler registers fn to receive every committed change.
func (a *App) SetUpdateHandler(fn func(ports.Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = fn
}

func (a *App) emitUpdate(u ports.Update) {
	a.updateMu.RLock()
	fn := a.onUpdate
	a.updateMu.RUnlock()
	if fn != nil {
		fn(u)
	}
}

func (a *App) Codec() grid.Codec {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.codec
}

func (a *App) DocumentName() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.doc.Name
}

// DocumentPath is the file the document was loaded from, "" when it only
// lives in memory or in the history store.
func (a *App) DocumentPath() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.docPath
}

// Snapshot returns the current document.
func (a *App) Snapshot() document.Document {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.doc
}

// ApplyConfig swaps in a reloaded configuration. Grid bounds, the error
// token and the depth limit rebuild the evaluator and force a full
// recompute; cells outside new bounds are dropped.
func (a *App) ApplyConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	a.reloadLimits.SetLimit(cfg.Watch.ReloadRate, cfg.Watch.ReloadBurst)
	if w := a.currentWatcher(); w != nil {
		w.SetDebounce(cfg.Watch.Debounce)
	}

	a.mu.Lock()
	prev := a.Config
	a.Config = cfg
	if prev != nil && !engineChanged(prev, cfg) {
		a.mu.Unlock()
		return nil
	}

	a.configureEngine(cfg)
	cells := a.doc.Store.Cells()
	doc := a.doc
	doc.Store = sheet.FromCells(a.codec, cells)
	if dropped := len(cells) - doc.Store.Len(); dropped > 0 {
		slog.Warn("cells outside new grid bounds dropped", "document", doc.Name, "count", dropped)
	}
	result := a.replaceDocument(doc, a.docPath)
	u := a.updateLocked(result, ReasonConfig)
	a.mu.Unlock()

	slog.Info("configuration applied", "document", u.Document, "cells", u.Cells)
	a.emitUpdate(u)
	return nil
}

func engineChanged(prev, next *config.Config) bool {
	pmin, pmax := prev.Grid.Bounds()
	nmin, nmax := next.Grid.Bounds()
	return pmin != nmin || pmax != nmax ||
		prev.Grid.ErrorToken != next.Grid.ErrorToken ||
		prev.Grid.MaxDepth != next.Grid.MaxDepth
}

// StartWatcher reloads the document file whenever a file under paths
// changes on disk. An empty paths watches the configured watch paths.
func (a *App) StartWatcher(paths []string) error {
	a.mu.RLock()
	watchCfg := a.Config.Watch
	a.mu.RUnlock()

	if len(paths) == 0 {
		paths = watchCfg.Paths
	}
	w, err := watcher.NewWatcher(
		watchCfg.Debounce,
		watchCfg.Include,
		watchCfg.Exclude,
		a.HandleChanges,
	)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.activeWatcher = w
	a.mu.Unlock()
	return w.Watch(paths)
}

// currentWatcher returns the running file watcher, if any. Callers must not hold mu.
func (a *App) currentWatcher() *watcher.Watcher {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.activeWatcher
}

// Close stops the watcher, drains pending autosaves and closes the history
// store.
func (a *App) Close(ctx context.Context) error {
	var closeErr error
	a.closeOnce.Do(func() {
		if w := a.currentWatcher(); w != nil {
			if err := w.Close(); err != nil {
				slog.Warn("watcher close failed", "error", err)
			}
		}
		if err := a.stopSaveWorker(ctx); err != nil {
			closeErr = err
		}
		a.reloadLimits.Stop()
		if a.history != nil {
			if err := a.history.Close(); err != nil && closeErr == nil {
				closeErr = err
			}
		}
	})
	return closeErr
}

func (a *App) resolveRef(ref string) (int, int, error) {
	x, y, ok := a.codec.RefToCoords(ref)
	if !ok {
		err := errors.New(errors.CodeValidationError, "unknown cell reference")
		return 0, 0, errors.AddContext(err, errors.CtxRef, ref)
	}
	return x, y, nil
}

func cloneCycles(cycles [][]grid.Key) [][]grid.Key {
	out := make([][]grid.Key, len(cycles))
	for i, c := range cycles {
		out[i] = append([]grid.Key(nil), c...)
	}
	return out
}
