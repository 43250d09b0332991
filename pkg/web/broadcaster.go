package web

import (
	"log/slog"
	"sync"
)

// clientBuffer is the number of frames queued per stream client.
const clientBuffer = 2

// BroadcastStats reports frame fan-out activity.
type BroadcastStats struct {
	Clients   int    `json:"clients"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	HasFrame  bool   `json:"has_frame"`
}

// Broadcaster fans encoded JPEG frames out to MJPEG clients and keeps the
// latest frame for snapshots. A slow client skips frames instead of
// blocking the publisher.
type Broadcaster struct {
	mu        sync.Mutex
	clients   map[int]chan []byte
	nextID    int
	latest    []byte
	closed    bool
	published uint64
	dropped   uint64
	logger    *slog.Logger
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[int]chan []byte),
		logger:  slog.Default().With("component", "web.broadcaster"),
	}
}

// Subscribe adds a client and returns its id and frame channel. After
// Close the returned channel is already closed.
func (b *Broadcaster) Subscribe() (int, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan []byte, clientBuffer)
	if b.closed {
		close(ch)
		return id, ch
	}
	b.clients[id] = ch

	b.logger.Debug("client subscribed", "id", id, "clients", len(b.clients))
	return id, ch
}

// Unsubscribe removes a client.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
		b.logger.Debug("client unsubscribed", "id", id, "clients", len(b.clients))
	}
}

// Publish stores frame as the latest and offers it to every client. The
// slice must not be modified afterwards.
func (b *Broadcaster) Publish(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.latest = frame
	b.published++

	for _, ch := range b.clients {
		select {
		case ch <- frame:
		default:
			b.dropped++
		}
	}
}

// Latest returns the most recent frame.
func (b *Broadcaster) Latest() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.latest != nil
}

// Clients returns the number of subscribed clients
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Stats returns fan-out counters.
func (b *Broadcaster) Stats() BroadcastStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BroadcastStats{
		Clients:   len(b.clients),
		Published: b.published,
		Dropped:   b.dropped,
		HasFrame:  b.latest != nil,
	}
}

// Close disconnects every client and ignores later frames. It is safe to
// call more than once.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
	return nil
}
