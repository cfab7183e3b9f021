// Package ratings implements the rating aggregation and cache consistency
// engine: it keeps a recipe's derived aggregate fields exactly consistent
// with its underlying rating records and clears every cached read view a
// mutation may have staled.
package ratings

import (
	"context"

	"github.com/tastebase/tastebase/internal/domain"
)

// RecipeTx is the mutation scope handed out by Store.WithRecipe. Every call
// operates on the single recipe the scope was opened for, under that
// recipe's mutual exclusion.
type RecipeTx interface {
	// Recipe returns the locked recipe row.
	Recipe(ctx context.Context) (domain.Recipe, error)
	// Ratings returns the recipe's full current rating set.
	Ratings(ctx context.Context) ([]domain.Rating, error)
	// InsertRating adds a new rating. Returns domain.ErrDuplicateRating when
	// the author already rated this recipe.
	InsertRating(ctx context.Context, authorID string, value int, review *string) (domain.Rating, error)
	// UpdateRating mutates the author's existing rating. Returns
	// domain.ErrRatingNotFound when there is none.
	UpdateRating(ctx context.Context, authorID string, value int, review *string) (domain.Rating, error)
	// DeleteRating removes the author's rating. Returns
	// domain.ErrRatingNotFound when there is none.
	DeleteRating(ctx context.Context, authorID string) error
	// SetAggregate writes the derived fields onto the recipe row.
	SetAggregate(ctx context.Context, agg domain.Aggregate) error
}

// Store is the persistence contract the engine depends on. The pgx
// implementation lives in internal/repository; tests use an in-memory
// double with the same locking scope.
type Store interface {
	// WithRecipe runs fn inside a per-recipe mutual-exclusion scope. Two
	// invocations for the same recipe never interleave; invocations for
	// different recipes proceed in parallel. Returns
	// domain.ErrRecipeNotFound when the recipe does not exist and
	// domain.ErrConcurrencyConflict when lock contention was detected, in
	// which case the whole scope may be retried.
	WithRecipe(ctx context.Context, recipeID string, fn func(tx RecipeTx) error) error

	Recipe(ctx context.Context, recipeID string) (domain.Recipe, error)
	RatingsByRecipe(ctx context.Context, recipeID string) ([]domain.Rating, error)
	RatingByReview(ctx context.Context, reviewID int64) (domain.Rating, error)
	RecipesByAuthor(ctx context.Context, authorID string) ([]domain.Recipe, error)
	RatingsByAuthor(ctx context.Context, authorID string) ([]domain.Rating, error)
	// RecipeIDsRatedBy lists the recipes holding a rating by the author,
	// used to cascade aggregate recomputes when an author is removed.
	RecipeIDsRatedBy(ctx context.Context, authorID string) ([]string, error)
	// DeleteRecipe removes the recipe and, by cascade, all of its ratings.
	DeleteRecipe(ctx context.Context, recipeID string) error

	SearchRecipes(ctx context.Context, query string, page int) ([]domain.Recipe, error)
	TopPopularRecipes(ctx context.Context, limit int) ([]domain.Recipe, error)
	TopActiveAuthors(ctx context.Context, limit int) ([]domain.AuthorActivity, error)
}
