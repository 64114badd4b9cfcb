package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/isdelr/carshelf/internal/auth"
	"github.com/isdelr/carshelf/internal/services"
	ws "github.com/isdelr/carshelf/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades admin connections to the live activity feed.
type WebSocketHandler struct {
	hub      *ws.Hub
	events   services.EventServiceProvider
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Cross-origin upgrades
// are accepted only from allowedOrigins.
func NewWebSocketHandler(hub *ws.Hub, events services.EventServiceProvider, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub:    hub,
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin] || origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
	}
}

// Serve handles the WebSocket connection request.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, account.ID)
	if !h.hub.Add(client) {
		log.Warn().Str("user_id", account.ID).Msg("Hub stopped, closing websocket connection")
		_ = conn.Close()
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		client.WritePump()
	}()
	go func() {
		defer wg.Done()
		client.ReadPump(h.handleIncomingWSMessage)
		h.hub.Remove(client)
	}()
	wg.Wait()
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().Err(err).Bytes("message", message).Msg("Error decoding websocket message")
		h.reply(client, ws.NewErrorMessage("Invalid message"))
		return
	}

	switch msg.Action {
	case ws.ActionRecentEvents:
		limit := defaultEventLimit
		if payload, ok := msg.Payload.(map[string]interface{}); ok {
			if n, ok := payload["limit"].(float64); ok && n > 0 && n <= maxEventLimit {
				limit = int(n)
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		events, err := h.events.GetRecentEvents(ctx, limit)
		if err != nil {
			log.Error().Err(err).Str("user_id", client.UserID).Msg("Failed to load events for websocket client")
			h.reply(client, ws.NewErrorMessage("Failed to load events"))
			return
		}
		h.reply(client, ws.NewMessage(ws.ActionRecentEvents, events))

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		h.reply(client, ws.NewErrorMessage("Unknown action: "+msg.Action))
	}
}

func (h *WebSocketHandler) reply(client *ws.Client, data []byte) {
	h.hub.SendTo(client, data)
}
