// Package hub fans telemetry snapshots out to dashboard websockets.
package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
)

// Queue sizes.
const (
	broadcastQueue = 64
	clientQueue    = 16
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Stats reports hub activity.
type Stats struct {
	Clients   int    `json:"clients"`
	Sent      uint64 `json:"sent"`
	Dropped   uint64 `json:"dropped"`
	Evicted   uint64 `json:"evicted"`
	Connected uint64 `json:"connected"`
}

// Hub maintains the set of dashboard clients. A new client is sent the
// most recent snapshot immediately so it never starts blank.
type Hub struct {
	name   string
	logger *slog.Logger

	// Owned by Run.
	clients map[*Client]struct{}
	last    []byte

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu    sync.RWMutex
	count int

	sent      atomic.Uint64
	dropped   atomic.Uint64
	evicted   atomic.Uint64
	connected atomic.Uint64
}

// New creates a Hub. name labels its log lines.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     slog.Default().With("component", "hub", "hub", name),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run delivers broadcasts until ctx is cancelled. Remaining clients are
// disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.connected.Add(1)
			if h.last != nil {
				h.deliver(c, h.last)
			}
			h.setCount()
			h.logger.Info("dashboard connected", "client", c.id, "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
				h.logger.Info("dashboard disconnected", "client", c.id, "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			h.last = msg
			for c := range h.clients {
				h.deliver(c, msg)
			}
		}
	}
}

// deliver queues msg for c, evicting c when its queue is full.
func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
		h.sent.Add(1)
	default:
		h.remove(c)
		h.evicted.Add(1)
		h.logger.Warn("evicted slow dashboard", "client", c.id)
	}
}

func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		h.remove(c)
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Broadcast queues an encoded message for every client. It never blocks;
// when the hub is behind the message is dropped.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Stats returns a snapshot of hub counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients:   h.ClientCount(),
		Sent:      h.sent.Load(),
		Dropped:   h.dropped.Load(),
		Evicted:   h.evicted.Load(),
		Connected: h.connected.Load(),
	}
}
