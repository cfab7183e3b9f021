package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tastebase/tastebase/internal/domain"
	"github.com/tastebase/tastebase/internal/ratings"
)

// Repository implements the rating engine's store contract. The per-recipe
// mutual-exclusion scope is a transaction holding a row lock on the recipe,
// so two mutations of the same recipe serialize inside Postgres while
// mutations of different recipes proceed in parallel.
var _ ratings.Store = (*Repository)(nil)

// WithRecipe runs fn inside a transaction that holds the recipe's row lock.
func (r *Repository) WithRecipe(ctx context.Context, recipeID string, fn func(tx ratings.RecipeTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin recipe scope: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM recipes WHERE id = $1 FOR UPDATE`, recipeID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRecipeNotFound
		}
		return mapPgError(err)
	}

	if err := fn(&recipeTx{tx: tx, recipeID: recipeID}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *Repository) Recipe(ctx context.Context, recipeID string) (domain.Recipe, error) {
	return r.Recipes.GetByID(ctx, recipeID)
}

func (r *Repository) RatingsByRecipe(ctx context.Context, recipeID string) ([]domain.Rating, error) {
	return r.Ratings.ListByRecipe(ctx, recipeID)
}

func (r *Repository) RatingByReview(ctx context.Context, reviewID int64) (domain.Rating, error) {
	return r.Ratings.GetByReview(ctx, reviewID)
}

func (r *Repository) RecipesByAuthor(ctx context.Context, authorID string) ([]domain.Recipe, error) {
	return r.Recipes.ListByAuthor(ctx, authorID)
}

func (r *Repository) RatingsByAuthor(ctx context.Context, authorID string) ([]domain.Rating, error) {
	return r.Ratings.ListByAuthor(ctx, authorID)
}

func (r *Repository) RecipeIDsRatedBy(ctx context.Context, authorID string) ([]string, error) {
	return r.Ratings.RecipeIDsRatedBy(ctx, authorID)
}

func (r *Repository) DeleteRecipe(ctx context.Context, recipeID string) error {
	return r.Recipes.Delete(ctx, recipeID)
}

func (r *Repository) SearchRecipes(ctx context.Context, query string, page int) ([]domain.Recipe, error) {
	return r.Recipes.Search(ctx, query, page)
}

func (r *Repository) TopPopularRecipes(ctx context.Context, limit int) ([]domain.Recipe, error) {
	return r.Recipes.TopPopular(ctx, limit)
}

func (r *Repository) TopActiveAuthors(ctx context.Context, limit int) ([]domain.AuthorActivity, error) {
	return r.Ratings.TopActiveAuthors(ctx, limit)
}

// recipeTx is the locked per-recipe mutation scope handed to the engine.
type recipeTx struct {
	tx       pgx.Tx
	recipeID string
}

var _ ratings.RecipeTx = (*recipeTx)(nil)

func (t *recipeTx) Recipe(ctx context.Context) (domain.Recipe, error) {
	query := fmt.Sprintf(`SELECT %s FROM recipes WHERE id = $1`, recipeColumns)
	recipe, err := scanRecipe(t.tx.QueryRow(ctx, query, t.recipeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Recipe{}, domain.ErrRecipeNotFound
		}
		return domain.Recipe{}, err
	}
	return recipe, nil
}

func (t *recipeTx) Ratings(ctx context.Context) ([]domain.Rating, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM ratings
        WHERE recipe_id = $1
        ORDER BY review_id ASC
    `, ratingColumns)
	rows, err := t.tx.Query(ctx, query, t.recipeID)
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

func (t *recipeTx) InsertRating(ctx context.Context, authorID string, value int, review *string) (domain.Rating, error) {
	query := fmt.Sprintf(`
        INSERT INTO ratings (recipe_id, author_id, value, review)
        VALUES ($1,$2,$3,$4)
        RETURNING %s
    `, ratingColumns)
	rating, err := scanRating(t.tx.QueryRow(ctx, query, t.recipeID, authorID, value, review))
	if err != nil {
		return domain.Rating{}, mapPgError(err)
	}
	return rating, nil
}

func (t *recipeTx) UpdateRating(ctx context.Context, authorID string, value int, review *string) (domain.Rating, error) {
	query := fmt.Sprintf(`
        UPDATE ratings
        SET value = $3, review = $4, modified_at = now()
        WHERE recipe_id = $1 AND author_id = $2
        RETURNING %s
    `, ratingColumns)
	rating, err := scanRating(t.tx.QueryRow(ctx, query, t.recipeID, authorID, value, review))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, domain.ErrRatingNotFound
		}
		return domain.Rating{}, mapPgError(err)
	}
	return rating, nil
}

func (t *recipeTx) DeleteRating(ctx context.Context, authorID string) error {
	tag, err := t.tx.Exec(ctx, `
        DELETE FROM ratings WHERE recipe_id = $1 AND author_id = $2
    `, t.recipeID, authorID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRatingNotFound
	}
	return nil
}

func (t *recipeTx) SetAggregate(ctx context.Context, agg domain.Aggregate) error {
	_, err := t.tx.Exec(ctx, `
        UPDATE recipes
        SET aggregated_rating = $2, review_count = $3, updated_at = now()
        WHERE id = $1
    `, t.recipeID, agg.Rating, agg.Count)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}
