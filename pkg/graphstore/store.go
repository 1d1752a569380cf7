// Package graphstore implements the property graph over a relational
// emulation: one table per node kind, one table per edge type, with
// idempotent merge semantics standing in for a native graph engine's
// upsert-by-identity.
package graphstore

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ctxatlas/atlas/pkg/config"
)

// Store is the Graph Store: node/edge upserts and subgraph traversal
// over the Postgres-backed property graph.
type Store struct {
	pool *pgxpool.Pool
	cfg  *config.GraphStoreConfig
}

// New builds a Store over an already-connected Postgres pool.
func New(pool *pgxpool.Pool, cfg *config.GraphStoreConfig) *Store {
	return &Store{pool: pool, cfg: cfg}
}

func clampDepth(requested, cap int) int {
	if requested <= 0 || requested > cap {
		return cap
	}
	return requested
}

func clampLimit(requested, cap int) int {
	if requested <= 0 || requested > cap {
		return cap
	}
	return requested
}

func wrapf(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("graphstore: %s: %w", op, err)
}
