package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres keeps every document in one JSONB table with a version column.
type Postgres struct {
	*docStore
	db *sql.DB
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS documents (
    seq        BIGSERIAL PRIMARY KEY,
    collection TEXT      NOT NULL,
    id         TEXT      NOT NULL,
    version    BIGINT    NOT NULL DEFAULT 1,
    body       JSONB     NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (collection, id)
)`

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	p := &Postgres{db: db}
	p.docStore = &docStore{b: pgBackend{q: db, db: db}}
	return p, nil
}

// Migrate creates the documents table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pgBackend runs against the pool, or against a transaction when db is nil.
type pgBackend struct {
	q  querier
	db *sql.DB
}

func (b pgBackend) get(ctx context.Context, coll, id string) (document, error) {
	d := document{ID: id}
	err := b.q.QueryRowContext(ctx,
		`SELECT version, body FROM documents WHERE collection=$1 AND id=$2`, coll, id).Scan(&d.Version, &d.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return document{}, ErrNotFound
	}
	return d, err
}

func (b pgBackend) list(ctx context.Context, coll string) ([]document, error) {
	rows, err := b.q.QueryContext(ctx,
		`SELECT id, version, body FROM documents WHERE collection=$1 ORDER BY seq`, coll)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []document
	for rows.Next() {
		var d document
		if err := rows.Scan(&d.ID, &d.Version, &d.Body); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (b pgBackend) insert(ctx context.Context, coll, id string, body []byte) error {
	res, err := b.q.ExecContext(ctx,
		`INSERT INTO documents (collection, id, version, body) VALUES ($1,$2,1,$3) ON CONFLICT (collection, id) DO NOTHING`,
		coll, id, body)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

func (b pgBackend) upsert(ctx context.Context, coll, id string, body []byte) (int64, error) {
	var v int64
	err := b.q.QueryRowContext(ctx, `
		INSERT INTO documents (collection, id, version, body) VALUES ($1,$2,1,$3)
		ON CONFLICT (collection, id) DO UPDATE
		SET body = EXCLUDED.body, version = documents.version + 1, updated_at = now()
		RETURNING version`, coll, id, body).Scan(&v)
	return v, err
}

func (b pgBackend) swap(ctx context.Context, coll, id string, expected int64, body []byte) error {
	res, err := b.q.ExecContext(ctx, `
		UPDATE documents SET body=$4, version=version+1, updated_at=now()
		WHERE collection=$1 AND id=$2 AND version=$3`, coll, id, expected, body)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := b.get(ctx, coll, id); err != nil {
		return err
	}
	return ErrConflict
}

func (b pgBackend) inTx(ctx context.Context, fn func(backend) error) error {
	if b.db == nil {
		return fn(b)
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(pgBackend{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}
