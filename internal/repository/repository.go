package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastebase/tastebase/internal/domain"
	"github.com/tastebase/tastebase/internal/store"
)

// Repository aggregates all domain-specific repositories and implements the
// rating engine's store contract (see engine.go).
type Repository struct {
	pool    *pgxpool.Pool
	Recipes *RecipesRepository
	Ratings *RatingsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool:    pool,
		Recipes: &RecipesRepository{pool: pool},
		Ratings: &RatingsRepository{pool: pool},
	}
}

// Postgres SQLSTATEs the engine's error taxonomy depends on.
const (
	codeUniqueViolation = "23505"
	codeSerialization   = "40001"
	codeDeadlock        = "40P01"
)

// mapPgError translates driver-level failures into the domain taxonomy.
// Serialization failures and deadlocks are retryable conflicts; everything
// else propagates unchanged.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return domain.ErrDuplicateRating
	case codeSerialization, codeDeadlock:
		return domain.ErrConcurrencyConflict
	}
	return err
}
