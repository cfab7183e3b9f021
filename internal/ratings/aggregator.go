package ratings

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tastebase/tastebase/internal/domain"
)

// Aggregator makes one rating mutation and the recipe's derived fields
// durably consistent as a single unit: it mutates, recomputes over the full
// current rating set, and writes the aggregate, all inside the store's
// per-recipe mutual-exclusion scope.
type Aggregator struct {
	store      Store
	logger     *zap.Logger
	maxRetries uint64
}

// NewAggregator constructs an Aggregator. maxRetries bounds how many times a
// conflicted mutation is re-attempted before domain.ErrConcurrencyConflict
// is surfaced.
func NewAggregator(store Store, logger *zap.Logger, maxRetries int) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Aggregator{store: store, logger: logger, maxRetries: uint64(maxRetries)}
}

// AddRating inserts a new rating for (recipeID, authorID) and returns the
// updated aggregate. Fails with domain.ErrRecipeNotFound,
// domain.ErrDuplicateRating, or domain.ErrInvalidRating.
func (a *Aggregator) AddRating(ctx context.Context, recipeID, authorID string, value int, review *string) (domain.Aggregate, error) {
	if !domain.RatingValueValid(value) {
		return domain.Aggregate{}, domain.ErrInvalidRating
	}
	return a.mutate(ctx, recipeID, func(tx RecipeTx) error {
		_, err := tx.InsertRating(ctx, authorID, value, review)
		return err
	})
}

// UpdateRating mutates the author's existing rating and returns the updated
// aggregate. Fails with domain.ErrRatingNotFound when the author has not
// rated the recipe yet.
func (a *Aggregator) UpdateRating(ctx context.Context, recipeID, authorID string, value int, review *string) (domain.Aggregate, error) {
	if !domain.RatingValueValid(value) {
		return domain.Aggregate{}, domain.ErrInvalidRating
	}
	return a.mutate(ctx, recipeID, func(tx RecipeTx) error {
		_, err := tx.UpdateRating(ctx, authorID, value, review)
		return err
	})
}

// DeleteRating removes the author's rating. When the last rating goes, the
// aggregate drops back to nil/0, never a stale non-zero value.
func (a *Aggregator) DeleteRating(ctx context.Context, recipeID, authorID string) (domain.Aggregate, error) {
	return a.mutate(ctx, recipeID, func(tx RecipeTx) error {
		return tx.DeleteRating(ctx, authorID)
	})
}

// RecomputeRecipe rewrites the aggregate from the current rating set without
// mutating any rating. Used after out-of-band rating removals.
func (a *Aggregator) RecomputeRecipe(ctx context.Context, recipeID string) (domain.Aggregate, error) {
	return a.mutate(ctx, recipeID, func(RecipeTx) error { return nil })
}

// mutate runs fn plus the recompute-and-write step under the per-recipe
// scope, retrying conflicted attempts with jittered exponential backoff.
// Terminal precondition failures are surfaced unchanged on the first
// attempt.
func (a *Aggregator) mutate(ctx context.Context, recipeID string, fn func(tx RecipeTx) error) (domain.Aggregate, error) {
	var agg domain.Aggregate

	attempt := func() error {
		err := a.store.WithRecipe(ctx, recipeID, func(tx RecipeTx) error {
			if err := fn(tx); err != nil {
				return err
			}
			set, err := tx.Ratings(ctx)
			if err != nil {
				return err
			}
			agg = Compute(set)
			return tx.SetAggregate(ctx, agg)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			a.logger.Warn("rating mutation conflicted, retrying",
				zap.String("recipe_id", recipeID), zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(attempt, a.retryPolicy(ctx)); err != nil {
		return domain.Aggregate{}, err
	}
	return agg, nil
}

func (a *Aggregator) retryPolicy(ctx context.Context) backoff.BackOffContext {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxInterval = 250 * time.Millisecond
	return backoff.WithContext(backoff.WithMaxRetries(policy, a.maxRetries), ctx)
}
