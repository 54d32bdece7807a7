// Package pgstore implements the remote tables directly on Postgres, for
// deployments that run their own database instead of a PostgREST gateway.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tiliavir/fieldtime/internal/remote"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	date       TEXT NOT NULL,
	time_in    TEXT NOT NULL,
	time_out   TEXT NOT NULL,
	hours      DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	user_email TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS shifts (
	id         TEXT PRIMARY KEY,
	date       TEXT NOT NULL,
	time_in    TEXT NOT NULL,
	time_out   TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	user_email TEXT NOT NULL DEFAULT ''
);`

// Store owns the connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for databaseURL and verifies it.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the entries and shifts tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Entries returns the entries table.
func (s *Store) Entries() remote.Table[remote.EntryRow] {
	return entries{pool: s.pool}
}

// Shifts returns the shifts table.
func (s *Store) Shifts() remote.Table[remote.ShiftRow] {
	return shifts{pool: s.pool}
}

type entries struct {
	pool *pgxpool.Pool
}

func (t entries) Upsert(ctx context.Context, r remote.EntryRow) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO entries (id, date, time_in, time_out, hours, created_at, user_id, user_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			date = excluded.date,
			time_in = excluded.time_in,
			time_out = excluded.time_out,
			hours = excluded.hours,
			created_at = excluded.created_at,
			user_id = excluded.user_id,
			user_email = excluded.user_email`,
		r.ID, r.Date, r.TimeIn, r.TimeOut, r.Hours, r.CreatedAt, r.UserID, r.UserEmail)
	if err != nil {
		return &remote.Error{Message: err.Error()}
	}
	return nil
}

func (t entries) SelectAll(ctx context.Context) ([]remote.EntryRow, error) {
	rows, err := t.pool.Query(ctx, `
		SELECT id, date, time_in, time_out, hours, created_at, user_id, user_email
		FROM entries ORDER BY date ASC`)
	if err != nil {
		return nil, &remote.Error{Message: err.Error()}
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (remote.EntryRow, error) {
		var r remote.EntryRow
		err := row.Scan(&r.ID, &r.Date, &r.TimeIn, &r.TimeOut, &r.Hours, &r.CreatedAt, &r.UserID, &r.UserEmail)
		return r, err
	})
	if err != nil {
		return nil, &remote.Error{Message: err.Error()}
	}
	return out, nil
}

type shifts struct {
	pool *pgxpool.Pool
}

func (t shifts) Upsert(ctx context.Context, r remote.ShiftRow) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO shifts (id, date, time_in, time_out, status, created_at, user_id, user_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			date = excluded.date,
			time_in = excluded.time_in,
			time_out = excluded.time_out,
			status = excluded.status,
			created_at = excluded.created_at,
			user_id = excluded.user_id,
			user_email = excluded.user_email`,
		r.ID, r.Date, r.TimeIn, r.TimeOut, r.Status, r.CreatedAt, r.UserID, r.UserEmail)
	if err != nil {
		return &remote.Error{Message: err.Error()}
	}
	return nil
}

func (t shifts) SelectAll(ctx context.Context) ([]remote.ShiftRow, error) {
	rows, err := t.pool.Query(ctx, `
		SELECT id, date, time_in, time_out, status, created_at, user_id, user_email
		FROM shifts ORDER BY date ASC`)
	if err != nil {
		return nil, &remote.Error{Message: err.Error()}
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (remote.ShiftRow, error) {
		var r remote.ShiftRow
		err := row.Scan(&r.ID, &r.Date, &r.TimeIn, &r.TimeOut, &r.Status, &r.CreatedAt, &r.UserID, &r.UserEmail)
		return r, err
	})
	if err != nil {
		return nil, &remote.Error{Message: err.Error()}
	}
	return out, nil
}
