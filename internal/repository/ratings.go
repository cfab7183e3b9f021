package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastebase/tastebase/internal/domain"
)

// RatingsRepository provides read helpers for rating records. All rating
// mutations go through the engine store's per-recipe scope in engine.go.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

const ratingColumns = `
    review_id,
    recipe_id,
    author_id,
    value,
    review,
    submitted_at,
    modified_at
`

// Get retrieves a rating for a specific recipe/author combination.
func (r *RatingsRepository) Get(ctx context.Context, recipeID, authorID string) (domain.Rating, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM ratings
        WHERE recipe_id = $1 AND author_id = $2
    `, ratingColumns)
	rating, err := scanRating(r.pool.QueryRow(ctx, query, recipeID, authorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, domain.ErrRatingNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// GetByReview retrieves a rating by its review identifier.
func (r *RatingsRepository) GetByReview(ctx context.Context, reviewID int64) (domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE review_id = $1`, ratingColumns)
	rating, err := scanRating(r.pool.QueryRow(ctx, query, reviewID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, domain.ErrRatingNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// ListByRecipe returns a recipe's ratings, newest submission first.
func (r *RatingsRepository) ListByRecipe(ctx context.Context, recipeID string) ([]domain.Rating, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM ratings
        WHERE recipe_id = $1
        ORDER BY submitted_at DESC, review_id DESC
    `, ratingColumns)
	return r.queryRatings(ctx, query, recipeID)
}

// ListByAuthor returns an author's ratings, newest submission first.
func (r *RatingsRepository) ListByAuthor(ctx context.Context, authorID string) ([]domain.Rating, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM ratings
        WHERE author_id = $1
        ORDER BY submitted_at DESC, review_id DESC
    `, ratingColumns)
	return r.queryRatings(ctx, query, authorID)
}

// RecipeIDsRatedBy lists the distinct recipes the author has rated.
func (r *RatingsRepository) RecipeIDsRatedBy(ctx context.Context, authorID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT DISTINCT recipe_id FROM ratings WHERE author_id = $1
    `, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TopActiveAuthors returns the activity leaderboard: authors ranked by how
// many ratings they have submitted.
func (r *RatingsRepository) TopActiveAuthors(ctx context.Context, limit int) ([]domain.AuthorActivity, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT author_id, COUNT(*) AS rating_count
        FROM ratings
        GROUP BY author_id
        ORDER BY rating_count DESC, author_id ASC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.AuthorActivity, 0)
	for rows.Next() {
		var activity domain.AuthorActivity
		if err := rows.Scan(&activity.AuthorID, &activity.RatingCount); err != nil {
			return nil, err
		}
		items = append(items, activity)
	}
	return items, rows.Err()
}

func (r *RatingsRepository) queryRatings(ctx context.Context, query string, args ...interface{}) ([]domain.Rating, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rating)
	}
	return items, rows.Err()
}

func scanRating(row pgx.Row) (domain.Rating, error) {
	var rating domain.Rating
	err := row.Scan(
		&rating.ReviewID,
		&rating.RecipeID,
		&rating.AuthorID,
		&rating.Value,
		&rating.Review,
		&rating.SubmittedAt,
		&rating.ModifiedAt,
	)
	if err != nil {
		return domain.Rating{}, err
	}
	return rating, nil
}
