package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the Async queue length when none is given.
const DefaultQueueSize = 8

// AsyncStats reports queue activity.
type AsyncStats struct {
	Queued    uint64 `json:"queued"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

// Async decouples the frame loop from a slow publisher. PutData never
// blocks: when the queue is full the oldest pending report is dropped.
// Errors from the wrapped publisher are logged and counted, not returned.
type Async struct {
	next   Publisher
	queue  chan Report
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	queued    atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewAsync starts a delivery goroutine in front of next.
func NewAsync(next Publisher, size int, logger *slog.Logger) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &Async{
		next:   next,
		queue:  make(chan Report, size),
		logger: logger.With("component", "telemetry.async"),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for r := range a.queue {
		if err := a.next.PutData(context.Background(), r); err != nil {
			a.failed.Add(1)
			a.logger.Warn("publish failed", "frame", r.Frame, "error", err)
			continue
		}
		a.delivered.Add(1)
	}
}

// PutData enqueues r, dropping the oldest queued report if necessary.
func (a *Async) PutData(_ context.Context, r Report) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	for {
		select {
		case a.queue <- r:
			a.queued.Add(1)
			return nil
		default:
		}

		select {
		case <-a.queue:
			a.dropped.Add(1)
		default:
		}
	}
}

// Stats returns queue counters.
func (a *Async) Stats() AsyncStats {
	return AsyncStats{
		Queued:    a.queued.Load(),
		Delivered: a.delivered.Load(),
		Dropped:   a.dropped.Load(),
		Failed:    a.failed.Load(),
	}
}

// Close stops accepting reports, delivers what is queued and closes the
// wrapped publisher.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.next.Close()
}
