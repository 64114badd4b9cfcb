package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_CreatesSchema(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db))

	for _, table := range []string{"users", "items", "events"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, Migrate(context.Background(), db))
}

func TestMigrate_UsersUniqueAmongLiveRows(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db))

	insert := `INSERT INTO users (id, username, email, password_hash, is_deleted) VALUES (?, 'alice', 'a@x.io', 'h', ?)`
	_, err = db.Exec(insert, "u1", 1)
	require.NoError(t, err)
	_, err = db.Exec(insert, "u2", 0)
	require.NoError(t, err)
	_, err = db.Exec(insert, "u3", 0)
	assert.Error(t, err)
}

func TestWithPragmas(t *testing.T) {
	assert.Equal(t, "a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", withPragmas("a.db"))
	assert.Equal(t, "file:a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", withPragmas("file:a.db?mode=rwc"))
}
