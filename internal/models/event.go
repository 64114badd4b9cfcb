package models

import "time"

// Event represents an entry in the activity log.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "account.create", "item.delete"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	SubjectID *string   `json:"subjectId,omitempty"` // account or item the event is about
	CreatedAt time.Time `json:"createdAt"`
}
