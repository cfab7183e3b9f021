package ratings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tastebase/tastebase/internal/domain"
)

func TestAggregatorAddRating(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addRecipe("r1", "chef", "Carbonara")
	agg := NewAggregator(store, nil, 0)

	first, err := agg.AddRating(ctx, "r1", "alice", 4, nil)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if first.Count != 1 || first.Rating == nil || *first.Rating != 4 {
		t.Fatalf("first aggregate = %+v, want 4.0/1", first)
	}

	review := "lovely"
	second, err := agg.AddRating(ctx, "r1", "bob", 5, &review)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if second.Count != 2 || second.Rating == nil || *second.Rating != 4.5 {
		t.Fatalf("second aggregate = %+v, want 4.5/2", second)
	}

	recipe, err := store.Recipe(ctx, "r1")
	if err != nil {
		t.Fatalf("load recipe: %v", err)
	}
	if recipe.ReviewCount != 2 || recipe.AggregatedRating == nil || *recipe.AggregatedRating != 4.5 {
		t.Fatalf("stored aggregate = %v/%d, want 4.5/2", recipe.AggregatedRating, recipe.ReviewCount)
	}
}

func TestAggregatorRejectsSecondRatingBySameAuthor(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addRecipe("r1", "chef", "Carbonara")
	agg := NewAggregator(store, nil, 0)

	if _, err := agg.AddRating(ctx, "r1", "alice", 4, nil); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := agg.AddRating(ctx, "r1", "alice", 5, nil); !errors.Is(err, domain.ErrDuplicateRating) {
		t.Fatalf("second add err = %v, want ErrDuplicateRating", err)
	}

	// The failed attempt must not disturb the stored aggregate.
	recipe, _ := store.Recipe(ctx, "r1")
	if recipe.ReviewCount != 1 || *recipe.AggregatedRating != 4 {
		t.Fatalf("aggregate after rejected add = %v/%d, want 4.0/1", recipe.AggregatedRating, recipe.ReviewCount)
	}
}

func TestAggregatorUpdateRecomputes(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addRecipe("r1", "chef", "Carbonara")
	agg := NewAggregator(store, nil, 0)

	if _, err := agg.AddRating(ctx, "r1", "alice", 1, nil); err != nil {
		t.Fatalf("add alice: %v", err)
	}
	if _, err := agg.AddRating(ctx, "r1", "bob", 5, nil); err != nil {
		t.Fatalf("add bob: %v", err)
	}

	updated, err := agg.UpdateRating(ctx, "r1", "alice", 5, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Count != 2 || updated.Rating == nil || *updated.Rating != 5 {
		t.Fatalf("aggregate after update = %+v, want 5.0/2", updated)
	}
}

func TestAggregatorUpdateWithoutExistingRating(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addRecipe("r1", "chef", "Carbonara")
	agg := NewAggregator(store, nil, 0)

	if _, err := agg.UpdateRating(ctx, "r1", "alice", 3, nil); !errors.Is(err, domain.ErrRatingNotFound) {
		t.Fatalf("err = %v, want ErrRatingNotFound", err)
	}
}

func TestAggregatorRejectsOutOfRangeValues(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addRecipe("r1", "chef", "Carbonara")
	agg := NewAggregator(store, nil, 0)

	for _, value := range []int{0, 6, -1, 100} {
		if _, err := agg.AddRating(ctx, "r1", "alice", value, nil); !errors.Is(err, domain.ErrInvalidRating) {
			t.Fatalf("add value %d err = %v, want ErrInvalidRating", value, err)
		}
		if _, err := agg.UpdateRating(ctx, "r1", "alice", value, nil); !errors.Is(err, domain.ErrInvalidRating) {
			t.Fatalf("update value %d err = %v, want ErrInvalidRating", value, err)
		}
	}
}

func TestAggregatorDeleteLastRatingClearsAggregate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addRecipe("r1", "chef", "Carbonara")
	agg := NewAggregator(store, nil, 0)

	if _, err := agg.AddRating(ctx, "r1", "alice", 4, nil); err != nil {
		t.Fatalf("add: %v", err)
	}

	cleared, err := agg.DeleteRating(ctx, "r1", "alice")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if cleared.Rating != nil || cleared.Count != 0 {
		t.Fatalf("aggregate after last delete = %+v, want nil/0", cleared)
	}

	recipe, _ := store.Recipe(ctx, "r1")
	if recipe.AggregatedRating != nil || recipe.ReviewCount != 0 {
		t.Fatalf("stored aggregate = %v/%d, want nil/0", recipe.AggregatedRating, recipe.ReviewCount)
	}
}

func TestAggregatorUnknownRecipe(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(newMemStore(), nil, 0)

	if _, err := agg.AddRating(ctx, "missing", "alice", 4, nil); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Fatalf("err = %v, want ErrRecipeNotFound", err)
	}
}

func TestAggregatorRetriesConflicts(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addRecipe("r1", "chef", "Carbonara")
	store.failConflicts = 2
	agg := NewAggregator(store, nil, 3)

	result, err := agg.AddRating(ctx, "r1", "alice", 4, nil)
	if err != nil {
		t.Fatalf("add with transient conflicts: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("count = %d, want 1", result.Count)
	}
}

func TestAggregatorSurfacesExhaustedConflicts(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addRecipe("r1", "chef", "Carbonara")
	store.failConflicts = 10
	agg := NewAggregator(store, nil, 2)

	if _, err := agg.AddRating(ctx, "r1", "alice", 4, nil); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("err = %v, want ErrConcurrencyConflict", err)
	}
}

func TestAggregatorConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addRecipe("r1", "chef", "Carbonara")
	agg := NewAggregator(store, nil, 0)

	const raters = 25
	var wg sync.WaitGroup
	errCh := make(chan error, raters)
	for i := 0; i < raters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := agg.AddRating(ctx, "r1", fmt.Sprintf("rater-%d", i), 1+i%5, nil)
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent add: %v", err)
		}
	}

	set, err := store.RatingsByRecipe(ctx, "r1")
	if err != nil {
		t.Fatalf("load ratings: %v", err)
	}
	if len(set) != raters {
		t.Fatalf("rating count = %d, want %d", len(set), raters)
	}

	// The stored aggregate must equal a recompute over the final set,
	// whatever order the writers won their locks in.
	recipe, _ := store.Recipe(ctx, "r1")
	want := Compute(set)
	if recipe.ReviewCount != want.Count {
		t.Fatalf("stored count = %d, want %d", recipe.ReviewCount, want.Count)
	}
	if recipe.AggregatedRating == nil || *recipe.AggregatedRating != *want.Rating {
		t.Fatalf("stored rating = %v, want %v", recipe.AggregatedRating, *want.Rating)
	}
}

func TestAggregatorRecomputeRecipe(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addRecipe("r1", "chef", "Carbonara")
	agg := NewAggregator(store, nil, 0)

	if _, err := agg.AddRating(ctx, "r1", "alice", 2, nil); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Remove the rating behind the engine's back, then recompute.
	store.mu.Lock()
	delete(store.recipes["r1"].ratings, "alice")
	store.mu.Unlock()

	result, err := agg.RecomputeRecipe(ctx, "r1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if result.Rating != nil || result.Count != 0 {
		t.Fatalf("recomputed aggregate = %+v, want nil/0", result)
	}
}
