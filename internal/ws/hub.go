package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/medisupply/field-app/internal/model"
	"github.com/sirupsen/logrus"
)

// nitEvent is an internal struct for routing events to one institution
type nitEvent struct {
	NIT   string
	Event model.DeliveryEvent
}

// Hub maintains the set of active clients and broadcasts delivery events to
// them, one room per institution NIT
type Hub struct {
	// Registered clients by NIT
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *nitEvent

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe room access
	mu sync.RWMutex

	log logrus.FieldLogger
}

// NewHub creates a new Hub instance
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *nitEvent, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop and returns when ctx is done, closing every
// client's send channel.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for nit, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, nit)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.nit] == nil {
				h.rooms[client.nit] = make(map[*Client]bool)
			}
			h.rooms[client.nit][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.log.WithError(err).Error("marshal delivery event")
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.NIT] {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, drop it
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops client from its room. Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.nit]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	// Clean up empty rooms
	if len(clients) == 0 {
		delete(h.rooms, client.nit)
	}
}

// BroadcastToNIT sends an event to all clients following one institution.
// It is a no-op once the hub has stopped.
func (h *Hub) BroadcastToNIT(nit string, event model.DeliveryEvent) {
	select {
	case h.broadcast <- &nitEvent{NIT: nit, Event: event}:
	case <-h.done:
	}
}

// DeliveryChanged announces a delivery to its institution's room.
func (h *Hub) DeliveryChanged(eventType string, d model.Delivery) {
	h.BroadcastToNIT(d.NIT, model.DeliveryEvent{Type: eventType, Delivery: d})
}

// Followers counts the clients in a NIT room.
func (h *Hub) Followers(nit string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[nit])
}

// join and leave hand a client to the hub unless it has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
