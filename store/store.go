// Package store implements the canonical Postgres store: entities, metrics,
// facts, provenance, artifacts, snapshots and job runs.
//
// The store exclusively owns all canonical rows. Writers are the collector
// and the parser; the query service is a strict reader. All methods take a
// context and respect its cancellation through pgx.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors for canonical store operations.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("row not found")

	// ErrDuplicateHash indicates an artifact with the same content hash
	// already exists. Callers convert this into a reuse of the existing row.
	ErrDuplicateHash = errors.New("artifact content hash already registered")
)

// uniqueViolation is the Postgres error code for unique constraint breaks.
const uniqueViolation = "23505"

// Store is the pgx-backed canonical store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres, applies pending migrations and returns the
// store. The connection string is the DB_URL contract value.
func New(ctx context.Context, dbURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// noRows maps pgx.ErrNoRows onto the store's ErrNotFound sentinel.
func noRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
