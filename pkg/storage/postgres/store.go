// Package postgres implements the queue, dlq, and alerts repository
// interfaces on PostgreSQL using pgx/v5. Claiming relies on
// FOR UPDATE SKIP LOCKED so concurrent workers never block each other or
// double-claim a job.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evocloud/jobqueue/pkg/backoff"
)

// Store implements all repository interfaces against a pgx connection pool.
type Store struct {
	pool     *pgxpool.Pool
	strategy backoff.Strategy
}

// Option configures a Store.
type Option func(*Store)

// WithBackoffStrategy overrides the retry backoff strategy.
func WithBackoffStrategy(s backoff.Strategy) Option {
	return func(st *Store) {
		if s != nil {
			st.strategy = s
		}
	}
}

// New creates a Store backed by the given pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:     pool,
		strategy: backoff.DefaultStrategy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
