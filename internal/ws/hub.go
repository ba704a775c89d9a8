package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event is the envelope pushed to connected clients.
type Event struct {
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Hub tracks one live connection per account handle. A new join for the
// same handle replaces the previous connection, so notifications always
// reach the most recent socket.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
}

// NewHub creates a presence hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes registrations until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.clients[client.handle]; ok {
		close(prev.send)
		prev.conn.Close()
	}
	h.clients[client.handle] = client
	log.Printf("ws: connected %s", client.handle)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Only drop the entry if it still points at this connection; a
	// rejoin may already have replaced it.
	if current, ok := h.clients[client.handle]; ok && current == client {
		delete(h.clients, client.handle)
		close(client.send)
		log.Printf("ws: disconnected %s", client.handle)
	}
}

// Publish sends an event to the handle's live connection. Absent or
// slow connections are a silent no-op; delivery is best effort.
func (h *Hub) Publish(handle, event string, data any) {
	payload, err := json.Marshal(Event{
		Event:     event,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
	if err != nil {
		log.Printf("ws: marshal %s: %v", event, err)
		return
	}

	// The send channel is only closed under the write lock, so holding
	// the read lock across the send keeps it safe.
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[handle]
	if !ok {
		return
	}

	select {
	case client.send <- payload:
	default:
		// Backed-up client; drop the event rather than block.
	}
}

// Connected reports whether a handle currently has a live connection.
func (h *Hub) Connected(handle string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[handle]
	return ok
}
