// Package store implements the Postgres persistence layer on top of sqlx.
// Row-not-found is reported as sql.ErrNoRows; callers map it to domain
// errors.
package store

import (
	"github.com/jmoiron/sqlx"
)

// Store bundles all repositories over a single connection pool.
type Store struct {
	db *sqlx.DB
}

// New wraps an open sqlx pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}
