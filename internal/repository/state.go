// Package repository provides the state gateways behind the write-behind store.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitrpg-bot/internal/store"
)

// DefaultScope is the key of the single global state blob.
const DefaultScope = "GLOBAL"

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS engine_state (
		scope VARCHAR(64) PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

// PostgresStateRepository stores the state blob in PostgreSQL.
type PostgresStateRepository struct {
	pool  *pgxpool.Pool
	scope string
}

var _ store.Gateway = (*PostgresStateRepository)(nil)

// NewPostgresStateRepository creates a new PostgresStateRepository instance.
func NewPostgresStateRepository(pool *pgxpool.Pool, scope string) *PostgresStateRepository {
	if scope == "" {
		scope = DefaultScope
	}
	return &PostgresStateRepository{pool: pool, scope: scope}
}

// Migrate creates the engine_state table.
func (r *PostgresStateRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create engine_state table: %w", err)
	}
	return nil
}

// Load returns the blob of the repository's scope, or store.ErrNoState.
func (r *PostgresStateRepository) Load(ctx context.Context) ([]byte, error) {
	const query = `SELECT data FROM engine_state WHERE scope = $1`

	var data []byte
	err := r.pool.QueryRow(ctx, query, r.scope).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNoState
		}
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return data, nil
}

// Save upserts the blob of the repository's scope.
func (r *PostgresStateRepository) Save(ctx context.Context, data []byte) error {
	const query = `
		INSERT INTO engine_state (scope, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (scope) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, r.scope, string(data)); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
