package ratings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tastebase/tastebase/internal/cache"
	"github.com/tastebase/tastebase/internal/domain"
)

// RatingOp selects the rating mutation ApplyRatingChange performs.
type RatingOp string

// RecipeOp selects the recipe mutation ApplyRecipeChange performs.
type RecipeOp string

const (
	RatingOpAdd    RatingOp = "add"
	RatingOpUpdate RatingOp = "update"
	RatingOpDelete RatingOp = "delete"

	RecipeOpEdit   RecipeOp = "edit"
	RecipeOpDelete RecipeOp = "delete"
)

// RatingPayload carries the mutation arguments for add/update operations.
type RatingPayload struct {
	Value  int
	Review *string
}

const leaderboardSize = 10

// Coordinator is the engine's façade: it sequences the aggregator and the
// invalidator for writes and serves the cached read views. It is the only
// entry point the route layer uses.
type Coordinator struct {
	store      Store
	aggregator *Aggregator
	inval      *Invalidator
	cache      cache.Cache
	ttl        time.Duration
	logger     *zap.Logger
	group      singleflight.Group
}

// NewCoordinator wires the engine together. ttl bounds how long any stale
// cached view can outlive a failed invalidation.
func NewCoordinator(store Store, aggregator *Aggregator, inval *Invalidator, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Coordinator {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:      store,
		aggregator: aggregator,
		inval:      inval,
		cache:      c,
		ttl:        ttl,
		logger:     logger,
	}
}

// ApplyRatingChange executes one rating mutation and, on success, clears
// every cache key the change may have staled before returning the updated
// aggregate. A failed mutation leaves the cache untouched.
func (c *Coordinator) ApplyRatingChange(ctx context.Context, op RatingOp, recipeID, authorID string, payload RatingPayload) (domain.Aggregate, error) {
	var (
		agg domain.Aggregate
		err error
	)
	switch op {
	case RatingOpAdd:
		agg, err = c.aggregator.AddRating(ctx, recipeID, authorID, payload.Value, payload.Review)
	case RatingOpUpdate:
		agg, err = c.aggregator.UpdateRating(ctx, recipeID, authorID, payload.Value, payload.Review)
	case RatingOpDelete:
		agg, err = c.aggregator.DeleteRating(ctx, recipeID, authorID)
	default:
		return domain.Aggregate{}, fmt.Errorf("unknown rating operation %q", op)
	}
	if err != nil {
		return domain.Aggregate{}, err
	}

	c.inval.InvalidateForRatingChange(ctx, recipeID)
	c.inval.InvalidateAuthor(ctx, authorID)

	// The owner's cached recipe list embeds the aggregate, so it stales too.
	if recipe, lookupErr := c.store.Recipe(ctx, recipeID); lookupErr == nil {
		c.inval.InvalidateAuthor(ctx, recipe.AuthorID)
	} else {
		c.logger.Warn("recipe owner lookup failed, owner views left to TTL",
			zap.String("recipe_id", recipeID), zap.Error(lookupErr))
	}
	return agg, nil
}

// DeleteRatingByReview resolves a review id to its (recipe, author) pair and
// runs the normal delete flow.
func (c *Coordinator) DeleteRatingByReview(ctx context.Context, reviewID int64) (domain.Aggregate, error) {
	rating, err := c.store.RatingByReview(ctx, reviewID)
	if err != nil {
		return domain.Aggregate{}, err
	}
	return c.ApplyRatingChange(ctx, RatingOpDelete, rating.RecipeID, rating.AuthorID, RatingPayload{})
}

// ApplyRecipeChange triggers the invalidation contract for non-rating recipe
// mutations performed by the CRUD layer. A delete additionally removes the
// recipe and cascades to its ratings before any key is cleared.
func (c *Coordinator) ApplyRecipeChange(ctx context.Context, recipeID string, op RecipeOp) error {
	recipe, err := c.store.Recipe(ctx, recipeID)
	if err != nil {
		return err
	}

	var raters []domain.Rating
	switch op {
	case RecipeOpEdit:
	case RecipeOpDelete:
		// Capture the raters before the cascade removes their ratings;
		// their cached rating lists stale with the delete.
		raters, err = c.store.RatingsByRecipe(ctx, recipeID)
		if err != nil {
			return err
		}
		if err := c.store.DeleteRecipe(ctx, recipeID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown recipe operation %q", op)
	}

	c.inval.InvalidateRecipe(ctx, recipeID)
	c.inval.InvalidateLeaderboards(ctx)
	c.inval.InvalidateSearchIndexes(ctx)
	c.inval.InvalidateAuthor(ctx, recipe.AuthorID)
	for _, rating := range raters {
		c.inval.InvalidateAuthor(ctx, rating.AuthorID)
	}
	return nil
}

// RemoveAuthorRatings deletes every rating the author has submitted,
// recomputing each affected recipe's aggregate under its own lock. Used by
// the user-deletion cascade.
func (c *Coordinator) RemoveAuthorRatings(ctx context.Context, authorID string) error {
	recipeIDs, err := c.store.RecipeIDsRatedBy(ctx, authorID)
	if err != nil {
		return err
	}

	for _, recipeID := range recipeIDs {
		if _, err := c.aggregator.DeleteRating(ctx, recipeID, authorID); err != nil {
			// The recipe may have disappeared between listing and locking.
			if errors.Is(err, domain.ErrRecipeNotFound) || errors.Is(err, domain.ErrRatingNotFound) {
				continue
			}
			return err
		}
		c.inval.InvalidateRecipe(ctx, recipeID)
	}

	c.inval.InvalidateLeaderboards(ctx)
	c.inval.InvalidateSearchIndexes(ctx)
	c.inval.InvalidateAuthor(ctx, authorID)
	return nil
}

// GetRecipeView serves the cached single-recipe snapshot, falling back to
// the stores on a miss and repopulating the cache.
func (c *Coordinator) GetRecipeView(ctx context.Context, recipeID string) (domain.RecipeSnapshot, error) {
	return readThrough(ctx, c, cache.KeyRecipe(recipeID), func(ctx context.Context) (domain.RecipeSnapshot, error) {
		recipe, err := c.store.Recipe(ctx, recipeID)
		if err != nil {
			return domain.RecipeSnapshot{}, err
		}
		set, err := c.store.RatingsByRecipe(ctx, recipeID)
		if err != nil {
			return domain.RecipeSnapshot{}, err
		}
		return domain.RecipeSnapshot{Recipe: recipe, Ratings: set}, nil
	})
}

// SearchRecipes serves one cached page of search results.
func (c *Coordinator) SearchRecipes(ctx context.Context, query string, page int) ([]domain.Recipe, error) {
	if page < 1 {
		page = 1
	}
	return readThrough(ctx, c, cache.KeySearch(query, page), func(ctx context.Context) ([]domain.Recipe, error) {
		return c.store.SearchRecipes(ctx, query, page)
	})
}

// TopPopularRecipes serves the cached popularity leaderboard.
func (c *Coordinator) TopPopularRecipes(ctx context.Context) ([]domain.Recipe, error) {
	return readThrough(ctx, c, cache.KeyTopPopularRecipes, func(ctx context.Context) ([]domain.Recipe, error) {
		return c.store.TopPopularRecipes(ctx, leaderboardSize)
	})
}

// TopActiveUsers serves the cached rater-activity leaderboard.
func (c *Coordinator) TopActiveUsers(ctx context.Context) ([]domain.AuthorActivity, error) {
	return readThrough(ctx, c, cache.KeyTopActiveUsers, func(ctx context.Context) ([]domain.AuthorActivity, error) {
		return c.store.TopActiveAuthors(ctx, leaderboardSize)
	})
}

// RecipesByAuthor serves the author's cached recipe list.
func (c *Coordinator) RecipesByAuthor(ctx context.Context, authorID string) ([]domain.Recipe, error) {
	return readThrough(ctx, c, cache.KeyUserRecipes(authorID), func(ctx context.Context) ([]domain.Recipe, error) {
		return c.store.RecipesByAuthor(ctx, authorID)
	})
}

// RatingsByAuthor serves the author's cached rating list.
func (c *Coordinator) RatingsByAuthor(ctx context.Context, authorID string) ([]domain.Rating, error) {
	return readThrough(ctx, c, cache.KeyUserRatings(authorID), func(ctx context.Context) ([]domain.Rating, error) {
		return c.store.RatingsByAuthor(ctx, authorID)
	})
}

// readThrough implements the cache-first read path. Cache failures degrade
// to the store; concurrent misses for the same key are collapsed into one
// load.
func readThrough[T any](ctx context.Context, c *Coordinator, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	if data, err := c.cache.Get(ctx, key); err == nil {
		var out T
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.cache.Delete(ctx, key)
	} else if !errors.Is(err, domain.ErrCacheMiss) {
		c.logger.Warn("cache read failed, falling back to store", zap.String("key", key), zap.Error(err))
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		out, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(out); err == nil {
			if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
				c.logger.Warn("cache repopulation failed", zap.String("key", key), zap.Error(err))
			}
		}
		return out, nil
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}
