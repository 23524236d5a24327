package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	RecomputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridnote_recompute_seconds",
		Help:    "Time spent recomputing display values.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	AffectedCells = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridnote_recompute_affected_cells",
		Help:    "Number of cells re-evaluated by one recompute.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	EvaluationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridnote_evaluation_errors_total",
		Help: "Total number of cells that evaluated to the error token.",
	}, []string{"reason"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridnote_graph_nodes_total",
		Help: "Number of cells in the last dependency graph built.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridnote_graph_edges_total",
		Help: "Number of reference edges in the last dependency graph built.",
	})

	DocumentCells = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridnote_document_cells",
		Help: "Number of cells in the current document snapshot.",
	})

	EditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridnote_edits_total",
		Help: "Total number of committed cell edits.",
	})

	HistoryOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridnote_history_operations_total",
		Help: "Total number of document store operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridnote_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridnote_document_reloads_total",
		Help: "Total number of document reloads triggered by file changes.",
	})
)

// Evaluation error reasons.
const (
	ReasonCycle      = "cycle"
	ReasonExpression = "expression"
	ReasonDepth      = "depth"
)
