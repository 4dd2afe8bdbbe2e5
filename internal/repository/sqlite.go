package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"fitrpg-bot/internal/store"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS engine_state (
		scope TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
`

// SQLiteStateRepository stores the state blob in a local SQLite file.
type SQLiteStateRepository struct {
	db    *sql.DB
	scope string
}

var _ store.Gateway = (*SQLiteStateRepository)(nil)

// OpenSQLite opens (creating if needed) the SQLite database at path in WAL mode
// and migrates the schema.
func OpenSQLite(ctx context.Context, path, scope string) (*SQLiteStateRepository, error) {
	if scope == "" {
		scope = DefaultScope
	}
	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", url.PathEscape(path))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	// one writer; the blob is rewritten whole on every save
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create engine_state table: %w", err)
	}
	return &SQLiteStateRepository{db: db, scope: scope}, nil
}

// Close closes the database.
func (r *SQLiteStateRepository) Close() error {
	return r.db.Close()
}

// Load returns the blob of the repository's scope, or store.ErrNoState.
func (r *SQLiteStateRepository) Load(ctx context.Context) ([]byte, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM engine_state WHERE scope = ?`, r.scope).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoState
		}
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return []byte(data), nil
}

// Save upserts the blob of the repository's scope.
func (r *SQLiteStateRepository) Save(ctx context.Context, data []byte) error {
	const query = `
		INSERT INTO engine_state (scope, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(scope) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := r.db.ExecContext(ctx, query, r.scope, string(data), now); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
