package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/isdelr/carshelf/internal/common"
	"github.com/isdelr/carshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemService_CreateAssignsDefaults(t *testing.T) {
	svc := NewItemService(newTestDB(t), nil)

	item, err := svc.CreateItem(context.Background(), "Book A", "X", "Sedan")
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, models.DefaultImageRef, item.ImageRef)
	assert.Nil(t, item.DeletedAt)

	items, err := svc.GetAllItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Book A", items[0].Title)
}

func TestItemService_CreateDoesNotDeduplicate(t *testing.T) {
	ctx := context.Background()
	svc := NewItemService(newTestDB(t), nil)

	first, err := svc.CreateItem(ctx, "Book A", "X", "Sedan")
	require.NoError(t, err)
	second, err := svc.CreateItem(ctx, "Book A", "X", "Sedan")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	items, err := svc.GetAllItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestItemService_CreateValidation(t *testing.T) {
	svc := NewItemService(newTestDB(t), nil)

	_, err := svc.CreateItem(context.Background(), "", "X", " ")
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "title, genre")
}

func TestItemService_UpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	svc := NewItemService(newTestDB(t), nil)

	item, err := svc.CreateItem(ctx, "Book A", "X", "Sedan")
	require.NoError(t, err)

	updated, err := svc.UpdateItem(ctx, item.ID, "Book B", "Y", "Coupe")
	require.NoError(t, err)
	assert.Equal(t, item.ID, updated.ID)
	assert.Equal(t, "Book B", updated.Title)
	assert.Equal(t, "Y", updated.Author)
	assert.Equal(t, "Coupe", updated.Genre)
	assert.Equal(t, item.ImageRef, updated.ImageRef)
	assert.True(t, item.CreatedAt.Equal(updated.CreatedAt))
}

func TestItemService_MissingID(t *testing.T) {
	ctx := context.Background()
	svc := NewItemService(newTestDB(t), nil)

	_, err := svc.GetItemByID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.UpdateItem(ctx, "nope", "a", "b", "c")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteItem(ctx, "nope"), common.ErrNotFound)
}

func TestItemService_Delete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewItemService(db, nil)

	item, err := svc.CreateItem(ctx, "Book A", "X", "Sedan")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteItem(ctx, item.ID))

	items, err := svc.GetAllItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&n))
	assert.Zero(t, n)
}

func TestItemService_HiddenItemsAreNotFound(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewItemService(db, nil)

	item, err := svc.CreateItem(ctx, "Book A", "X", "Sedan")
	require.NoError(t, err)
	_, err = db.Exec("UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?", item.ID)
	require.NoError(t, err)

	_, err = svc.GetItemByID(ctx, item.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.UpdateItem(ctx, item.ID, "Book B", "Y", "Coupe")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteItem(ctx, item.ID), common.ErrNotFound)

	items, err := svc.GetAllItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestItemService_RecordsEvents(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	pub := &recordingPublisher{}
	svc := NewItemService(db, NewEventService(db, pub))

	item, err := svc.CreateItem(ctx, "Book A", "X", "Sedan")
	require.NoError(t, err)
	_, err = svc.UpdateItem(ctx, item.ID, "Book B", "X", "Sedan")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteItem(ctx, item.ID))

	assert.Equal(t, []string{"item.create", "item.update", "item.delete"}, pub.types())
}

func TestItemService_StorageFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM items").WillReturnError(errors.New("database is locked"))

	_, err = NewItemService(db, nil).GetAllItems(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
