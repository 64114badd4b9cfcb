package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is a middleman between a websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// UserID is the account the connection was opened for.
	UserID string

	// Buffered channel of outbound messages.
	Send chan []byte
}

// NewClient creates a Client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{hub: hub, conn: conn, UserID: userID, Send: make(chan []byte, 256)}
}

// ReadPump passes inbound messages to handle until the connection fails.
func (c *Client) ReadPump(handle func(*Client, []byte)) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("user_id", c.UserID).Msg("Websocket closed unexpectedly")
			}
			return
		}
		handle(c, message)
	}
}

// WritePump writes queued messages and pings until Send is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
