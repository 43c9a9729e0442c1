package notify

import (
	"encoding/json"
	"log"

	"ecosakshi/backend/internal/models"
	"ecosakshi/backend/internal/storage"
)

// Hub fans notification events out to the websocket clients connected to
// this server instance. Events arrive over Redis Pub/Sub, so a deployment
// with several instances still reaches every open socket.
type Hub struct {
	// Clients maps a user ID to that user's open connections (one user can
	// have several tabs/devices).
	Clients map[string]map[*WSClient]bool

	RegisterCh   chan *WSClient
	UnregisterCh chan *WSClient

	Storage *storage.Service

	eventCh chan models.Event
}

func NewHub(s *storage.Service) *Hub {
	return &Hub{
		Clients:      make(map[string]map[*WSClient]bool),
		RegisterCh:   make(chan *WSClient),
		UnregisterCh: make(chan *WSClient),
		Storage:      s,
		eventCh:      make(chan models.Event, 64),
	}
}

// Run is the hub's dispatcher loop. Call it in its own goroutine.
func (h *Hub) Run() {
	h.startPubSubListener()

	for {
		select {
		case client := <-h.RegisterCh:
			conns, ok := h.Clients[client.UserID]
			if !ok {
				conns = make(map[*WSClient]bool)
				h.Clients[client.UserID] = conns
			}
			conns[client] = true

		case client := <-h.UnregisterCh:
			if conns, ok := h.Clients[client.UserID]; ok {
				if conns[client] {
					delete(conns, client)
					close(client.Send)
				}
				if len(conns) == 0 {
					delete(h.Clients, client.UserID)
				}
			}

		case ev := <-h.eventCh:
			h.deliver(ev)
		}
	}
}

// deliver pushes the event to each of the target user's connections and
// prunes the user entry once its last connection is gone.
func (h *Hub) deliver(ev models.Event) {
	conns := h.Clients[ev.UserID]
	for client := range conns {
		select {
		case client.Send <- ev:
		default:
			// Slow client: drop it rather than block the hub.
			close(client.Send)
			delete(conns, client)
		}
	}
	if conns != nil && len(conns) == 0 {
		delete(h.Clients, ev.UserID)
	}
}

// startPubSubListener subscribes to the Redis notify channel and feeds
// decoded events into the hub loop.
func (h *Hub) startPubSubListener() {
	if h.Storage == nil || h.Storage.Redis == nil {
		log.Println("Warning: notification hub running without Redis, websocket delivery disabled")
		return
	}

	go func() {
		pubsub := h.Storage.SubscribeEvents()
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var ev models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("Error unmarshalling notify event: %v", err)
				continue
			}
			h.eventCh <- ev
		}
	}()
}
