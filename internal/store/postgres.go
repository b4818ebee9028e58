package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres backs the hierarchical store with a single path-keyed jsonb
// table. Subscription fan-out is in-process: writes through this instance
// notify this instance's subscribers.
type Postgres struct {
	pool *pgxpool.Pool
	*notifier
}

// ConnectPostgres establishes a connection pool and ensures the backing
// table exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	_, err = pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS kv_entries (
			path TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure kv_entries table: %w", err)
	}

	return &Postgres{pool: pool, notifier: newNotifier()}, nil
}

func (p *Postgres) Get(ctx context.Context, path string, dest any) (bool, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE path = $1`, path,
	).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if dest == nil {
		return true, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("failed to decode value at %s: %w", path, err)
	}
	return true, nil
}

func (p *Postgres) Set(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", path, err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO kv_entries (path, value)
		 VALUES ($1, $2)
		 ON CONFLICT (path) DO UPDATE SET value = $2, updated_at = NOW()`,
		path, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	p.publish(path, raw)
	return nil
}

func (p *Postgres) Update(ctx context.Context, path string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields for %s: %w", path, err)
	}

	// jsonb || merges at the top level, which matches the atomic
	// multi-field update semantics the pipeline relies on.
	var merged []byte
	err = p.pool.QueryRow(ctx,
		`INSERT INTO kv_entries (path, value)
		 VALUES ($1, $2)
		 ON CONFLICT (path) DO UPDATE
		 SET value = kv_entries.value || EXCLUDED.value, updated_at = NOW()
		 RETURNING value`,
		path, raw,
	).Scan(&merged)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", path, err)
	}
	p.publish(path, merged)
	return nil
}

func (p *Postgres) Delete(ctx context.Context, path string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM kv_entries WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	p.publish(path, nil)
	return nil
}

func (p *Postgres) List(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT path, value FROM kv_entries WHERE path LIKE $1 || '%'`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var path string
		var raw []byte
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan row under %s: %w", prefix, err)
		}
		out[path] = json.RawMessage(raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows under %s: %w", prefix, err)
	}
	return out, nil
}

func (p *Postgres) Subscribe(ctx context.Context, prefix string) (<-chan Event, func()) {
	return p.subscribe(ctx, prefix)
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
