package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresArchive keeps finished evidence packages in a durable table.
// Redis holds the hot copy; this is the one investigators query weeks
// later.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS evidence_packages (
	call_id    TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	chain_hash TEXT NOT NULL,
	turn_count INTEGER NOT NULL,
	payload    JSONB NOT NULL
)`

// NewPostgresArchive connects, verifies the connection, and ensures the
// schema exists.
func NewPostgresArchive(ctx context.Context, dsn string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if _, err := pool.Exec(ctx, archiveSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresArchive{pool: pool}, nil
}

// ArchivePackage upserts the package; re-packaging a call overwrites
// the previous archive row.
func (a *PostgresArchive) ArchivePackage(ctx context.Context, pkg *Package) error {
	payload, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("marshal package: %w", err)
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO evidence_packages (call_id, created_at, chain_hash, turn_count, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (call_id) DO UPDATE
		SET created_at = EXCLUDED.created_at,
		    chain_hash = EXCLUDED.chain_hash,
		    turn_count = EXCLUDED.turn_count,
		    payload    = EXCLUDED.payload`,
		pkg.CallID, pkg.CreatedAt, pkg.ChainHash, len(pkg.Turns), payload)
	if err != nil {
		return fmt.Errorf("archive package: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Close() {
	a.pool.Close()
}
