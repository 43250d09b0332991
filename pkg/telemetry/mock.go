package telemetry

import (
	"context"
	"sync"
)

// Mock implements Publisher for testing. Reports are recorded in order.
type Mock struct {
	// PutDataFunc is called after the report is recorded. If nil,
	// PutData returns nil.
	PutDataFunc func(ctx context.Context, r Report) error

	// CloseFunc is called when Close is invoked. If nil, returns nil.
	CloseFunc func() error

	mu      sync.Mutex
	reports []Report
	closed  int
}

// NewMock creates a recording publisher
func NewMock() *Mock {
	return &Mock{}
}

// PutData records r and calls PutDataFunc.
func (m *Mock) PutData(ctx context.Context, r Report) error {
	m.mu.Lock()
	m.reports = append(m.reports, r)
	m.mu.Unlock()

	if m.PutDataFunc != nil {
		return m.PutDataFunc(ctx, r)
	}
	return nil
}

// Close records the call and calls CloseFunc.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Reports returns a copy of the recorded reports.
func (m *Mock) Reports() []Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Report(nil), m.reports...)
}

// Calls returns the number of PutData calls
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// CloseCount returns the number of Close calls
func (m *Mock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
