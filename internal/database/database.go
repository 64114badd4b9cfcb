package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/isdelr/carshelf/internal/database/migrations"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", withPragmas(dataSourceName))
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, res := range results {
		log.Info().Str("migration", res.Source.Path).Dur("took", res.Duration).Msg("Applied migration")
	}
	return nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
