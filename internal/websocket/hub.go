package websocket

import (
	"encoding/json"

	"github.com/isdelr/carshelf/internal/models"
	"github.com/rs/zerolog/log"
)

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages for every client.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Replies addressed to a single client.
	direct chan directMessage

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		direct:     make(chan directMessage),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Info().Str("user_id", client.UserID).Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case d := <-h.direct:
			if !h.clients[d.client] {
				continue
			}
			select {
			case d.client.Send <- d.data:
			default:
				log.Warn().Str("user_id", d.client.UserID).Msg("Client send buffer full, dropping reply")
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// slow consumer
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Add registers client and reports whether the hub accepted it. It returns
// false once the hub has stopped.
func (h *Hub) Add(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Remove unregisters client unless the hub has already stopped.
func (h *Hub) Remove(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Stop ends the Run loop and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

type directMessage struct {
	client *Client
	data   []byte
}

// SendTo queues data for a single registered client. Messages for clients that
// are no longer registered are discarded.
func (h *Hub) SendTo(client *Client, data []byte) {
	select {
	case h.direct <- directMessage{client: client, data: data}:
	case <-h.done:
	}
}

// Publish broadcasts an activity event. It never blocks; when the broadcast
// buffer is full the event is dropped.
func (h *Hub) Publish(event models.Event) {
	data, err := json.Marshal(Message{Action: ActionEvent, Payload: event})
	if err != nil {
		log.Error().Err(err).Str("event_type", event.Type).Msg("Failed to encode event for broadcast")
		return
	}
	select {
	case h.Broadcast <- data:
	default:
		log.Warn().Str("event_type", event.Type).Msg("Broadcast buffer full, dropping event")
	}
}
