package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.uber.org/multierr"
)

// ErrClosed is returned when publishing to a closed publisher.
var ErrClosed = errors.New("telemetry: publisher closed")

// Publisher receives one Report per frame. PutData is fire-and-forget
// from the caller's point of view: no acknowledgement is expected beyond
// the returned error.
type Publisher interface {
	PutData(ctx context.Context, r Report) error
	Close() error
}

// Multi fans a report out to several publishers.
type Multi struct {
	publishers []Publisher
}

// NewMulti creates a fan-out publisher. Nil entries are skipped.
func NewMulti(publishers ...Publisher) *Multi {
	m := &Multi{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Add appends a publisher
func (m *Multi) Add(p Publisher) {
	if p != nil {
		m.publishers = append(m.publishers, p)
	}
}

// Len returns the number of publishers
func (m *Multi) Len() int {
	return len(m.publishers)
}

// PutData sends r to every publisher, even after one fails.
func (m *Multi) PutData(ctx context.Context, r Report) error {
	var err error
	for _, p := range m.publishers {
		err = multierr.Append(err, p.PutData(ctx, r))
	}
	return err
}

// Close closes every publisher.
func (m *Multi) Close() error {
	var err error
	for _, p := range m.publishers {
		err = multierr.Append(err, p.Close())
	}
	return err
}

// Log writes each report to a structured logger at debug level.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging publisher. A nil logger uses slog.Default.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "telemetry.log")}
}

// PutData logs the report.
func (l *Log) PutData(ctx context.Context, r Report) error {
	if !l.logger.Enabled(ctx, slog.LevelDebug) {
		return nil
	}
	l.logger.DebugContext(ctx, "detections",
		"frame", r.Frame,
		"fps", r.FPS,
		"num_objects", len(r.Detections),
		"objects", r.Objects(),
	)
	return nil
}

// Close is a no-op.
func (l *Log) Close() error {
	return nil
}

// Latest keeps the most recent report for pull-style consumers such as
// the web API.
type Latest struct {
	mu     sync.RWMutex
	report Report
	ok     bool
}

// NewLatest creates an empty Latest publisher
func NewLatest() *Latest {
	return &Latest{}
}

// PutData replaces the stored report.
func (l *Latest) PutData(_ context.Context, r Report) error {
	l.mu.Lock()
	l.report = r
	l.ok = true
	l.mu.Unlock()
	return nil
}

// Get returns the last report and whether one has been stored.
func (l *Latest) Get() (Report, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.report, l.ok
}

// Close is a no-op.
func (l *Latest) Close() error {
	return nil
}
