package queue

import (
	"context"
	"io"
	"sync"
	"time"

	"gridnote/internal/core/ports"
)

var _ ports.SaveQueuePort = (*MemoryQueue)(nil)

type MemoryQueue struct {
	ch     chan ports.SaveRequest
	mu     sync.RWMutex
	closed bool
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryQueue{ch: make(chan ports.SaveRequest, capacity)}
}

func (q *MemoryQueue) Enqueue(req ports.SaveRequest) ports.EnqueueResult {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ports.EnqueueDropped
	}
	if req.Queued.IsZero() {
		req.Queued = time.Now()
	}
	select {
	case q.ch <- req:
		return ports.EnqueueAccepted
	default:
		return ports.EnqueueDropped
	}
}

// DequeueBatch waits up to wait for a first request, then drains whatever
// else is immediately available up to maxItems. It returns io.EOF once the
// queue is closed and empty.
func (q *MemoryQueue) DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]ports.SaveRequest, error) {
	if maxItems <= 0 {
		maxItems = 1
	}
	batch := make([]ports.SaveRequest, 0, maxItems)

	var timer <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timer = t.C
	}

	select {
	case req, ok := <-q.ch:
		if !ok {
			return nil, io.EOF
		}
		batch = append(batch, req)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer:
		return nil, nil
	default:
		if wait <= 0 {
			return nil, nil
		}
		select {
		case req, ok := <-q.ch:
			if !ok {
				return nil, io.EOF
			}
			batch = append(batch, req)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer:
			return nil, nil
		}
	}

	for len(batch) < maxItems {
		select {
		case req, ok := <-q.ch:
			if !ok {
				return batch, io.EOF
			}
			batch = append(batch, req)
		default:
			return batch, nil
		}
	}

	return batch, nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}

func (q *MemoryQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.ch)
}

// Latest keeps only the newest request per document name, preserving the
// order in which each name last appeared.
func Latest(batch []ports.SaveRequest) []ports.SaveRequest {
	index := make(map[string]int, len(batch))
	out := make([]ports.SaveRequest, 0, len(batch))
	for _, req := range batch {
		if i, ok := index[req.Document.Name]; ok {
			out = append(out[:i], out[i+1:]...)
			for name, j := range index {
				if j > i {
					index[name] = j - 1
				}
			}
		}
		index[req.Document.Name] = len(out)
		out = append(out, req)
	}
	return out
}
