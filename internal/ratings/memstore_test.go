package ratings

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tastebase/tastebase/internal/domain"
)

// memStore is an in-memory Store double with the same per-recipe
// mutual-exclusion contract as the pgx implementation. failConflicts injects
// domain.ErrConcurrencyConflict into the next N WithRecipe attempts.
type memStore struct {
	mu            sync.Mutex
	recipes       map[string]*memRecipe
	locks         map[string]*sync.Mutex
	nextReviewID  int64
	failConflicts int
}

type memRecipe struct {
	recipe  domain.Recipe
	ratings map[string]domain.Rating
}

func newMemStore() *memStore {
	return &memStore{
		recipes: make(map[string]*memRecipe),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *memStore) addRecipe(id, authorID, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[id] = &memRecipe{
		recipe: domain.Recipe{
			ID:        id,
			AuthorID:  authorID,
			Title:     title,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		},
		ratings: make(map[string]domain.Rating),
	}
}

func (s *memStore) WithRecipe(ctx context.Context, recipeID string, fn func(tx RecipeTx) error) error {
	s.mu.Lock()
	if _, ok := s.recipes[recipeID]; !ok {
		s.mu.Unlock()
		return domain.ErrRecipeNotFound
	}
	if s.failConflicts > 0 {
		s.failConflicts--
		s.mu.Unlock()
		return domain.ErrConcurrencyConflict
	}
	lock, ok := s.locks[recipeID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[recipeID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(&memTx{store: s, recipeID: recipeID})
}

func (s *memStore) Recipe(_ context.Context, recipeID string) (domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.recipes[recipeID]
	if !ok {
		return domain.Recipe{}, domain.ErrRecipeNotFound
	}
	return entry.recipe, nil
}

func (s *memStore) RatingsByRecipe(_ context.Context, recipeID string) ([]domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.recipes[recipeID]
	if !ok {
		return nil, domain.ErrRecipeNotFound
	}
	return sortedRatings(entry.ratings), nil
}

func (s *memStore) RatingByReview(_ context.Context, reviewID int64) (domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.recipes {
		for _, rating := range entry.ratings {
			if rating.ReviewID == reviewID {
				return rating, nil
			}
		}
	}
	return domain.Rating{}, domain.ErrRatingNotFound
}

func (s *memStore) RecipesByAuthor(_ context.Context, authorID string) ([]domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Recipe
	for _, entry := range s.recipes {
		if entry.recipe.AuthorID == authorID {
			out = append(out, entry.recipe)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) RatingsByAuthor(_ context.Context, authorID string) ([]domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Rating
	for _, entry := range s.recipes {
		if rating, ok := entry.ratings[authorID]; ok {
			out = append(out, rating)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewID < out[j].ReviewID })
	return out, nil
}

func (s *memStore) RecipeIDsRatedBy(_ context.Context, authorID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, entry := range s.recipes {
		if _, ok := entry.ratings[authorID]; ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) DeleteRecipe(_ context.Context, recipeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[recipeID]; !ok {
		return domain.ErrRecipeNotFound
	}
	delete(s.recipes, recipeID)
	delete(s.locks, recipeID)
	return nil
}

func (s *memStore) SearchRecipes(_ context.Context, query string, _ int) ([]domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Recipe
	for _, entry := range s.recipes {
		if strings.Contains(strings.ToLower(entry.recipe.Title), strings.ToLower(query)) {
			out = append(out, entry.recipe)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) TopPopularRecipes(_ context.Context, limit int) ([]domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Recipe
	for _, entry := range s.recipes {
		out = append(out, entry.recipe)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReviewCount != out[j].ReviewCount {
			return out[i].ReviewCount > out[j].ReviewCount
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) TopActiveAuthors(_ context.Context, limit int) ([]domain.AuthorActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, entry := range s.recipes {
		for authorID := range entry.ratings {
			counts[authorID]++
		}
	}
	var out []domain.AuthorActivity
	for authorID, count := range counts {
		out = append(out, domain.AuthorActivity{AuthorID: authorID, RatingCount: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RatingCount != out[j].RatingCount {
			return out[i].RatingCount > out[j].RatingCount
		}
		return out[i].AuthorID < out[j].AuthorID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memTx struct {
	store    *memStore
	recipeID string
}

func (t *memTx) entry() *memRecipe { return t.store.recipes[t.recipeID] }

func (t *memTx) Recipe(context.Context) (domain.Recipe, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.entry().recipe, nil
}

func (t *memTx) Ratings(context.Context) ([]domain.Rating, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return sortedRatings(t.entry().ratings), nil
}

func (t *memTx) InsertRating(_ context.Context, authorID string, value int, review *string) (domain.Rating, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	entry := t.entry()
	if _, ok := entry.ratings[authorID]; ok {
		return domain.Rating{}, domain.ErrDuplicateRating
	}
	t.store.nextReviewID++
	rating := domain.Rating{
		ReviewID:    t.store.nextReviewID,
		RecipeID:    t.recipeID,
		AuthorID:    authorID,
		Value:       value,
		Review:      review,
		SubmittedAt: time.Now().UTC(),
	}
	entry.ratings[authorID] = rating
	return rating, nil
}

func (t *memTx) UpdateRating(_ context.Context, authorID string, value int, review *string) (domain.Rating, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	entry := t.entry()
	rating, ok := entry.ratings[authorID]
	if !ok {
		return domain.Rating{}, domain.ErrRatingNotFound
	}
	now := time.Now().UTC()
	rating.Value = value
	rating.Review = review
	rating.ModifiedAt = &now
	entry.ratings[authorID] = rating
	return rating, nil
}

func (t *memTx) DeleteRating(_ context.Context, authorID string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	entry := t.entry()
	if _, ok := entry.ratings[authorID]; !ok {
		return domain.ErrRatingNotFound
	}
	delete(entry.ratings, authorID)
	return nil
}

func (t *memTx) SetAggregate(_ context.Context, agg domain.Aggregate) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	entry := t.entry()
	entry.recipe.AggregatedRating = agg.Rating
	entry.recipe.ReviewCount = agg.Count
	entry.recipe.UpdatedAt = time.Now().UTC()
	return nil
}

func sortedRatings(ratings map[string]domain.Rating) []domain.Rating {
	out := make([]domain.Rating, 0, len(ratings))
	for _, rating := range ratings {
		out = append(out, rating)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewID < out[j].ReviewID })
	return out
}

var _ Store = (*memStore)(nil)
