package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/carshelf/internal/models"
	"github.com/rs/zerolog/log"
)

// EventPublisher receives every recorded event, e.g. to fan it out to live clients.
type EventPublisher interface {
	Publish(event models.Event)
}

// EventServiceProvider defines the interface for the activity log.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, subjectID *string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventService provides business logic for the activity log.
type EventService struct {
	db        *sql.DB
	publisher EventPublisher
}

// NewEventService creates a new EventService. publisher may be nil.
func NewEventService(db *sql.DB, publisher EventPublisher) *EventService {
	return &EventService{db: db, publisher: publisher}
}

// CreateEvent logs a new event to the database and publishes it.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, subjectID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		SubjectID: subjectID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, subject_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.SubjectID, event.CreatedAt)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to record event")
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(event)
	}
	return nil
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, level, message, subject_id, created_at FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var subject sql.NullString
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &subject, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if subject.Valid {
			event.SubjectID = &subject.String
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
