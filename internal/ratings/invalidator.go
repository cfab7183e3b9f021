package ratings

import (
	"context"

	"go.uber.org/zap"

	"github.com/tastebase/tastebase/internal/cache"
)

// Invalidator deletes every cache key a mutation may have staled. Cache
// failures never fail the underlying write: they are logged and the affected
// entries are left to expire through their TTL.
type Invalidator struct {
	cache  cache.Cache
	logger *zap.Logger
}

// NewInvalidator constructs an Invalidator over the given cache layer.
func NewInvalidator(c cache.Cache, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{cache: c, logger: logger}
}

// InvalidateRecipe drops the cached view of a single recipe.
func (i *Invalidator) InvalidateRecipe(ctx context.Context, recipeID string) {
	i.delete(ctx, cache.KeyRecipe(recipeID))
}

// InvalidateSearchIndexes drops every cached search result page. Search
// snippets embed rating summaries, so any rating or content change can stale
// any page.
func (i *Invalidator) InvalidateSearchIndexes(ctx context.Context) {
	if _, err := i.cache.DeleteMatching(ctx, cache.PatternSearch); err != nil {
		i.logger.Warn("search cache invalidation failed, entries left to TTL",
			zap.String("pattern", cache.PatternSearch), zap.Error(err))
	}
}

// InvalidateLeaderboards drops both cached top-N rankings.
func (i *Invalidator) InvalidateLeaderboards(ctx context.Context) {
	i.delete(ctx, cache.KeyTopPopularRecipes, cache.KeyTopActiveUsers)
}

// InvalidateAuthor drops the author's cached recipe and rating lists.
func (i *Invalidator) InvalidateAuthor(ctx context.Context, authorID string) {
	i.delete(ctx, cache.KeyUserRecipes(authorID), cache.KeyUserRatings(authorID))
}

// InvalidateForRatingChange clears everything a rating mutation can stale: a
// rating moves the recipe's popularity rank and the rater's activity rank,
// and search snippets embed the aggregate.
func (i *Invalidator) InvalidateForRatingChange(ctx context.Context, recipeID string) {
	i.InvalidateRecipe(ctx, recipeID)
	i.InvalidateLeaderboards(ctx)
	i.InvalidateSearchIndexes(ctx)
}

func (i *Invalidator) delete(ctx context.Context, keys ...string) {
	if err := i.cache.Delete(ctx, keys...); err != nil {
		i.logger.Warn("cache invalidation failed, entries left to TTL",
			zap.Strings("keys", keys), zap.Error(err))
	}
}
