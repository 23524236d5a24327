package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"gridnote/internal/core/ports"
	"gridnote/internal/data/document"
	"gridnote/internal/data/queue"
	"gridnote/internal/shared/observability"
)

const (
	saveQueueCapacity  = 64
	saveBatchSize      = 16
	saveFlushInterval  = 250 * time.Millisecond
	saveRequestTimeout = 10 * time.Second
)

func (a *App) startSaveWorker() {
	if a == nil || a.history == nil || a.workerCancel != nil {
		return
	}
	a.saveQueue = queue.NewMemoryQueue(saveQueueCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	a.workerCancel = cancel
	a.workerDone = make(chan struct{})
	go a.runSaveWorker(ctx)
}

// runSaveWorker persists queued snapshots. Within a batch only the newest
// snapshot of each document is written.
func (a *App) runSaveWorker(ctx context.Context) {
	defer close(a.workerDone)

	for {
		batch, err := a.saveQueue.DequeueBatch(ctx, saveBatchSize, saveFlushInterval)
		if err != nil && !errors.Is(err, io.EOF) {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Warn("save queue dequeue failed", "error", err)
			continue
		}

		for _, req := range queue.Latest(batch) {
			a.applySave(ctx, req)
		}

		if errors.Is(err, io.EOF) {
			return
		}
	}
}

func (a *App) applySave(ctx context.Context, req ports.SaveRequest) {
	saveCtx, cancel := context.WithTimeout(ctx, saveRequestTimeout)
	defer cancel()

	rev, err := a.history.Save(saveCtx, req.Document)
	if err != nil {
		slog.Warn("autosave failed", "document", req.Document.Name, "reason", req.Reason, "error", err)
		return
	}
	slog.Debug("autosaved document",
		"document", req.Document.Name,
		"revision", rev.Number,
		"latency", time.Since(req.Queued),
	)
}

func (a *App) enqueueSave(doc document.Document, reason string) {
	if a == nil || a.saveQueue == nil {
		return
	}
	result := a.saveQueue.Enqueue(ports.SaveRequest{Document: doc, Reason: reason})
	if result == ports.EnqueueDropped {
		observability.HistoryOperationsTotal.WithLabelValues("autosave", "dropped").Inc()
		slog.Warn("autosave queue full, snapshot dropped", "document", doc.Name)
	}
}

// stopSaveWorker closes the queue and waits for the worker to drain it. If
// ctx expires first the worker is cancelled.
func (a *App) stopSaveWorker(ctx context.Context) error {
	if a == nil || a.workerCancel == nil {
		return nil
	}
	_ = a.saveQueue.Close()

	select {
	case <-a.workerDone:
		a.workerCancel()
		return nil
	case <-ctx.Done():
		a.workerCancel()
		<-a.workerDone
		return ctx.Err()
	}
}
