package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/carshelf/internal/common"
	"github.com/isdelr/carshelf/internal/models"
)

// ItemServiceProvider defines the interface for inventory item storage.
type ItemServiceProvider interface {
	CreateItem(ctx context.Context, title, author, genre string) (models.Item, error)
	GetAllItems(ctx context.Context) ([]models.Item, error)
	GetItemByID(ctx context.Context, id string) (models.Item, error)
	UpdateItem(ctx context.Context, id, title, author, genre string) (models.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// ItemService persists inventory items in the items table.
type ItemService struct {
	db     *sql.DB
	events EventServiceProvider
}

// NewItemService creates a new ItemService. events may be nil.
func NewItemService(db *sql.DB, events EventServiceProvider) *ItemService {
	return &ItemService{db: db, events: events}
}

const itemColumns = "id, title, author, genre, image_ref, created_at, deleted_at"

func scanItem(scanner interface{ Scan(...any) error }) (models.Item, error) {
	var item models.Item
	var deletedAt sql.NullTime
	if err := scanner.Scan(&item.ID, &item.Title, &item.Author, &item.Genre, &item.ImageRef, &item.CreatedAt, &deletedAt); err != nil {
		return models.Item{}, err
	}
	if deletedAt.Valid {
		item.DeletedAt = &deletedAt.Time
	}
	return item, nil
}

func validateItemFields(title, author, genre string) error {
	var missing []string
	for _, f := range [...]struct{ name, value string }{{"title", title}, {"author", author}, {"genre", genre}} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", common.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// CreateItem always stores a new item; there is no de-duplication.
func (s *ItemService) CreateItem(ctx context.Context, title, author, genre string) (models.Item, error) {
	if err := validateItemFields(title, author, genre); err != nil {
		return models.Item{}, err
	}
	item := models.Item{
		ID:        uuid.New().String(),
		Title:     title,
		Author:    author,
		Genre:     genre,
		ImageRef:  models.DefaultImageRef,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO items (id, title, author, genre, image_ref, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		item.ID, item.Title, item.Author, item.Genre, item.ImageRef, item.CreatedAt)
	if err != nil {
		return models.Item{}, fmt.Errorf("failed to insert item: %w", err)
	}

	s.record(ctx, "item.create", fmt.Sprintf("Item '%s' added.", item.Title), item.ID)
	return item, nil
}

// GetAllItems returns every item in creation order. There is no pagination.
func (s *ItemService) GetAllItems(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE deleted_at IS NULL ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItemByID retrieves a single item.
func (s *ItemService) GetItemByID(ctx context.Context, id string) (models.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = ? AND deleted_at IS NULL", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Item{}, common.ErrNotFound
		}
		return models.Item{}, fmt.Errorf("failed to query item: %w", err)
	}
	return item, nil
}

// UpdateItem overwrites title, author and genre. Nothing else changes.
func (s *ItemService) UpdateItem(ctx context.Context, id, title, author, genre string) (models.Item, error) {
	if err := validateItemFields(title, author, genre); err != nil {
		return models.Item{}, err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET title = ?, author = ?, genre = ? WHERE id = ? AND deleted_at IS NULL",
		title, author, genre, id)
	if err != nil {
		return models.Item{}, fmt.Errorf("failed to update item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Item{}, fmt.Errorf("failed to update item: %w", err)
	}
	if n == 0 {
		return models.Item{}, common.ErrNotFound
	}

	s.record(ctx, "item.update", fmt.Sprintf("Item '%s' updated.", title), id)
	return s.GetItemByID(ctx, id)
}

// DeleteItem physically removes a live item. A missing or hidden id yields
// common.ErrNotFound.
func (s *ItemService) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}

	s.record(ctx, "item.delete", "Item removed.", id)
	return nil
}

func (s *ItemService) record(ctx context.Context, eventType, message, subjectID string) {
	if s.events == nil {
		return
	}
	_ = s.events.CreateEvent(ctx, eventType, "info", message, &subjectID)
}
