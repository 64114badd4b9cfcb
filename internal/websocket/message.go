package websocket

import "encoding/json"

const (
	// ActionEvent carries a single activity event pushed by the server.
	ActionEvent = "event"
	// ActionRecentEvents requests (client) or carries (server) the recent activity log.
	ActionRecentEvents = "recent_events"
	// ActionError reports a problem with a client request.
	ActionError = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewMessage encodes a message; encoding failures yield an error message instead.
func NewMessage(action string, payload interface{}) []byte {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		return NewErrorMessage("failed to encode " + action)
	}
	return data
}

// NewErrorMessage encodes an error message for a client.
func NewErrorMessage(text string) []byte {
	data, _ := json.Marshal(Message{Action: ActionError, Payload: map[string]string{"message": text}})
	return data
}
