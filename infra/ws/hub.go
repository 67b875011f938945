// Package ws pushes fleet events to dashboards over websockets.
package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/notify"
)

// Client is one connected dashboard. An empty vehicle set receives every
// event.
type Client struct {
	ID   string
	Send chan []byte

	mu       sync.RWMutex
	vehicles map[string]struct{}
}

// NewClient creates a client with a buffered send queue.
func NewClient(id string, bufferSize int) *Client {
	return &Client{ID: id, Send: make(chan []byte, bufferSize), vehicles: make(map[string]struct{})}
}

// Follow restricts delivery to the given vehicles.
func (c *Client) Follow(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.vehicles[id] = struct{}{}
	}
}

// Unfollow removes vehicles from the filter.
func (c *Client) Unfollow(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.vehicles, id)
	}
}

// Wants reports whether an event about vehicleID should reach c. Events
// without a vehicle go to everyone.
func (c *Client) Wants(vehicleID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.vehicles) == 0 || vehicleID == "" {
		return true
	}
	_, ok := c.vehicles[vehicleID]
	return ok
}

// Hub fans events out to connected clients. It implements notify.Notifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     logger.Logger
	now     func() time.Time

	dropped atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub(log logger.Logger) *Hub {
	return &Hub{clients: make(map[*Client]struct{}), log: logger.OrNop(log), now: time.Now}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debugw("client registered", map[string]any{"client_id": c.ID, "total": n})
}

// Unregister removes c and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
	}
	h.mu.Unlock()
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of messages discarded for slow clients.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Notify encodes e once and queues it on every interested client. A client
// with a full queue misses the event.
func (h *Hub) Notify(_ context.Context, e events.Event) error {
	msg, err := notify.Encode(e, h.now())
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.Wants(e.Key()) {
			continue
		}
		select {
		case c.Send <- msg:
		default:
			h.dropped.Add(1)
			h.log.Debugw("client queue full", map[string]any{"client_id": c.ID, "event": e.Name()})
		}
	}
	return nil
}

// send queues msg for c if it is still registered.
func (h *Hub) send(c *Client, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.Send <- msg:
	default:
		h.dropped.Add(1)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.Send)
	}
}
