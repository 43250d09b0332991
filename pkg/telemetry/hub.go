package telemetry

import (
	"context"

	"golang.org/x/time/rate"
)

// Broadcaster sends a JSON value to every connected dashboard client.
type Broadcaster interface {
	BroadcastJSON(v interface{}) error
}

// Hub forwards report snapshots to dashboard websockets, at most
// maxPerSecond times per second. Reports over the limit are skipped.
type Hub struct {
	hub     Broadcaster
	limiter *rate.Limiter
}

// NewHub creates a throttled dashboard publisher. maxPerSecond <= 0
// disables throttling.
func NewHub(hub Broadcaster, maxPerSecond float64) *Hub {
	limit := rate.Inf
	if maxPerSecond > 0 {
		limit = rate.Limit(maxPerSecond)
	}
	return &Hub{hub: hub, limiter: rate.NewLimiter(limit, 1)}
}

// PutData broadcasts the report snapshot if the rate limit allows it.
func (h *Hub) PutData(_ context.Context, r Report) error {
	if !h.limiter.Allow() {
		return nil
	}
	return h.hub.BroadcastJSON(r.Snapshot())
}

// Close is a no-op; the hub is owned by the web server.
func (h *Hub) Close() error {
	return nil
}
