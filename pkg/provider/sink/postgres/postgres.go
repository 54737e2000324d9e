// Package postgres provides a sink.Sink that upserts the dataset into a
// PostgreSQL table:
//
//	CREATE TABLE IF NOT EXISTS <table> (
//	    word       TEXT        PRIMARY KEY,
//	    kata       TEXT        NOT NULL,
//	    run_id     TEXT        NOT NULL DEFAULT '',
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
// The connection pool is opened lazily on the first Write so that a run which
// fails before producing output never touches the database. All rows of one
// Write are upserted in a single transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/kanaset/pkg/provider/sink"
)

// DefaultTable is the table name used when none is configured.
const DefaultTable = "pronunciations"

// batchSize is the number of upserts queued per round trip.
const batchSize = 1000

// Sink implements sink.Sink over a pgx connection pool.
type Sink struct {
	cfg   *pgxpool.Config
	table string
	runID string

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// Option is a functional option for Sink.
type Option func(*Sink)

// WithTable overrides [DefaultTable].
func WithTable(name string) Option {
	return func(s *Sink) {
		if name != "" {
			s.table = name
		}
	}
}

// WithRunID tags every written row with the run identifier.
func WithRunID(id string) Option {
	return func(s *Sink) {
		s.runID = id
	}
}

// New parses dsn and returns a Sink. No connection is made until Write.
func New(dsn string, opts ...Option) (*Sink, error) {
	if dsn == "" {
		return nil, errors.New("postgres sink: dsn must not be empty")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: parse dsn: %w", err)
	}
	s := &Sink{cfg: cfg, table: DefaultTable}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// connect opens the pool and ensures the table exists.
func (s *Sink) connect(ctx context.Context) (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		return s.pool, nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres sink: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, s.ddl()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres sink: migrate: %w", err)
	}
	s.pool = pool
	return pool, nil
}

func (s *Sink) quotedTable() string {
	return pgx.Identifier{s.table}.Sanitize()
}

func (s *Sink) ddl() string {
	return `CREATE TABLE IF NOT EXISTS ` + s.quotedTable() + ` (
    word       TEXT        PRIMARY KEY,
    kata       TEXT        NOT NULL,
    run_id     TEXT        NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
}

func (s *Sink) upsertSQL() string {
	return `INSERT INTO ` + s.quotedTable() + ` (word, kata, run_id, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (word) DO UPDATE
    SET kata = EXCLUDED.kata, run_id = EXCLUDED.run_id, updated_at = EXCLUDED.updated_at`
}

// Write implements sink.Sink.
func (s *Sink) Write(ctx context.Context, results map[string]string) error {
	pool, err := s.connect(ctx)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres sink: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := s.upsertSQL()
	words := slices.Sorted(maps.Keys(results))
	for chunk := range slices.Chunk(words, batchSize) {
		batch := &pgx.Batch{}
		for _, w := range chunk {
			batch.Queue(query, w, results[w], s.runID)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres sink: upsert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres sink: commit: %w", err)
	}
	return nil
}

// Close releases the connection pool, if one was opened.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

// Ensure Sink implements sink.Sink at compile time.
var _ sink.Sink = (*Sink)(nil)
