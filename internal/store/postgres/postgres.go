// Package postgres implements store.Store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	//go:embed schema.sql
	schema string

	//go:embed seed.sql
	seed string
)

type Config struct {
	Addr     string
	User     string
	Pass     string
	Name     string
	MaxConns int32
}

type Store struct {
	db *pgxpool.Pool
}

// New wraps an existing pool. The caller keeps ownership of the pool unless Close is called.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Connect opens a pool and pings it.
func Connect(ctx context.Context, c Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", c.User, c.Pass, c.Addr, c.Name))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.MaxConns > 0 {
		cc.MaxConns = c.MaxConns
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return New(db), nil
}

// Migrate creates the tables if they don't exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	slog.InfoContext(ctx, "postgres: schema migrated")
	return nil
}

// Seed inserts the demo companies and tests. It is idempotent.
func (s *Store) Seed(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, seed); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	slog.InfoContext(ctx, "postgres: seed data loaded")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}
