package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastebase/tastebase/internal/domain"
)

// RecipesRepository provides persistence helpers for recipe entities.
type RecipesRepository struct {
	pool *pgxpool.Pool
}

const recipeColumns = `
    id,
    author_id,
    title,
    description,
    category,
    ingredients,
    instructions,
    cook_time,
    prep_time,
    nutrition,
    aggregated_rating,
    review_count,
    created_at,
    updated_at
`

// SearchPageSize is the fixed page length for recipe search results; the
// cache keys one entry per (query, page) pair.
const SearchPageSize = 20

// RecipeCreateParams bundles the fields required to create a recipe. The
// identity is minted here and never changes afterwards.
type RecipeCreateParams struct {
	AuthorID     string
	Title        string
	Description  *string
	Category     *string
	Ingredients  *string
	Instructions *string
	CookTime     *string
	PrepTime     *string
	Nutrition    *domain.Nutrition
}

// RecipeUpdateParams captures a partial content edit. Nil fields keep their
// stored value. Aggregate fields are deliberately absent: only the rating
// engine writes those.
type RecipeUpdateParams struct {
	Title        *string
	Description  *string
	Category     *string
	Ingredients  *string
	Instructions *string
	CookTime     *string
	PrepTime     *string
	Nutrition    *domain.Nutrition
}

// Create inserts a new recipe row and returns the stored entity.
func (r *RecipesRepository) Create(ctx context.Context, params RecipeCreateParams) (domain.Recipe, error) {
	nutritionJSON, err := marshalNutrition(params.Nutrition)
	if err != nil {
		return domain.Recipe{}, err
	}

	query := fmt.Sprintf(`
        INSERT INTO recipes (id, author_id, title, description, category, ingredients, instructions, cook_time, prep_time, nutrition)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING %s
    `, recipeColumns)

	row := r.pool.QueryRow(ctx, query,
		uuid.NewString(),
		params.AuthorID,
		params.Title,
		params.Description,
		params.Category,
		params.Ingredients,
		params.Instructions,
		params.CookTime,
		params.PrepTime,
		nutritionJSON,
	)
	return scanRecipe(row)
}

// GetByID fetches a recipe by its identifier.
func (r *RecipesRepository) GetByID(ctx context.Context, id string) (domain.Recipe, error) {
	query := fmt.Sprintf(`SELECT %s FROM recipes WHERE id = $1`, recipeColumns)
	recipe, err := scanRecipe(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Recipe{}, domain.ErrRecipeNotFound
		}
		return domain.Recipe{}, err
	}
	return recipe, nil
}

// Update applies a partial content edit and returns the stored entity.
func (r *RecipesRepository) Update(ctx context.Context, id string, params RecipeUpdateParams) (domain.Recipe, error) {
	nutritionJSON, err := marshalNutrition(params.Nutrition)
	if err != nil {
		return domain.Recipe{}, err
	}

	query := fmt.Sprintf(`
        UPDATE recipes
        SET title = COALESCE($2, title),
            description = COALESCE($3, description),
            category = COALESCE($4, category),
            ingredients = COALESCE($5, ingredients),
            instructions = COALESCE($6, instructions),
            cook_time = COALESCE($7, cook_time),
            prep_time = COALESCE($8, prep_time),
            nutrition = COALESCE($9, nutrition),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, recipeColumns)

	recipe, err := scanRecipe(r.pool.QueryRow(ctx, query, id,
		params.Title,
		params.Description,
		params.Category,
		params.Ingredients,
		params.Instructions,
		params.CookTime,
		params.PrepTime,
		nutritionJSON,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Recipe{}, domain.ErrRecipeNotFound
		}
		return domain.Recipe{}, err
	}
	return recipe, nil
}

// Delete removes a recipe; the schema cascades to its ratings.
func (r *RecipesRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecipeNotFound
	}
	return nil
}

// ListByAuthor returns the author's recipes, newest first.
func (r *RecipesRepository) ListByAuthor(ctx context.Context, authorID string) ([]domain.Recipe, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM recipes
        WHERE author_id = $1
        ORDER BY created_at DESC, id DESC
    `, recipeColumns)
	return r.queryRecipes(ctx, query, authorID)
}

// Search returns one page of recipes matching the query against title,
// description, and category. An empty query lists everything.
func (r *RecipesRepository) Search(ctx context.Context, query string, page int) ([]domain.Recipe, error) {
	if page < 1 {
		page = 1
	}

	where := ""
	args := []interface{}{SearchPageSize, (page - 1) * SearchPageSize}
	if q := strings.TrimSpace(query); q != "" {
		where = "WHERE title ILIKE $3 OR description ILIKE $3 OR category ILIKE $3"
		args = append(args, "%"+q+"%")
	}

	sql := fmt.Sprintf(`
        SELECT %s FROM recipes
        %s
        ORDER BY created_at DESC, id DESC
        LIMIT $1 OFFSET $2
    `, recipeColumns, where)

	return r.queryRecipes(ctx, sql, args...)
}

// TopPopular returns the popularity leaderboard: most reviewed first, ties
// broken by the higher aggregate.
func (r *RecipesRepository) TopPopular(ctx context.Context, limit int) ([]domain.Recipe, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM recipes
        ORDER BY review_count DESC, aggregated_rating DESC NULLS LAST, created_at DESC
        LIMIT $1
    `, recipeColumns)
	return r.queryRecipes(ctx, query, limit)
}

func (r *RecipesRepository) queryRecipes(ctx context.Context, query string, args ...interface{}) ([]domain.Recipe, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Recipe, 0)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanRecipe(row pgx.Row) (domain.Recipe, error) {
	var (
		recipe        domain.Recipe
		nutritionJSON []byte
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(
		&recipe.ID,
		&recipe.AuthorID,
		&recipe.Title,
		&recipe.Description,
		&recipe.Category,
		&recipe.Ingredients,
		&recipe.Instructions,
		&recipe.CookTime,
		&recipe.PrepTime,
		&nutritionJSON,
		&recipe.AggregatedRating,
		&recipe.ReviewCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Recipe{}, err
	}

	recipe.CreatedAt = createdAt
	recipe.UpdatedAt = updatedAt

	if len(nutritionJSON) > 0 {
		var nutrition domain.Nutrition
		if err := json.Unmarshal(nutritionJSON, &nutrition); err != nil {
			return domain.Recipe{}, err
		}
		recipe.Nutrition = &nutrition
	}

	return recipe, nil
}

func marshalNutrition(nutrition *domain.Nutrition) ([]byte, error) {
	if nutrition == nil {
		return nil, nil
	}
	return json.Marshal(nutrition)
}
