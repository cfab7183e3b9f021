// Command seed loads sample recipes and ratings into the database. It is
// meant for local development and demo environments, not production.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tastebase/tastebase/internal/domain"
	"github.com/tastebase/tastebase/internal/ratings"
	"github.com/tastebase/tastebase/internal/repository"
)

type seedRating struct {
	AuthorID string  `json:"authorId"`
	Value    int     `json:"value"`
	Review   *string `json:"review,omitempty"`
}

type seedRecipe struct {
	AuthorID     string            `json:"authorId"`
	Title        string            `json:"title"`
	Description  *string           `json:"description,omitempty"`
	Category     *string           `json:"category,omitempty"`
	Ingredients  *string           `json:"ingredients,omitempty"`
	Instructions *string           `json:"instructions,omitempty"`
	CookTime     *string           `json:"cookTime,omitempty"`
	PrepTime     *string           `json:"prepTime,omitempty"`
	Nutrition    *domain.Nutrition `json:"nutrition,omitempty"`
	Ratings      []seedRating      `json:"ratings,omitempty"`
}

func main() {
	var (
		dbURL    string
		dataFile string
		verbose  bool
	)
	flag.StringVar(&dbURL, "db", os.Getenv("DB_URL"), "PostgreSQL connection string (defaults to DB_URL)")
	flag.StringVar(&dataFile, "data", "seed-data.json", "Path to JSON file with recipes to load")
	flag.BoolVar(&verbose, "verbose", false, "Log each inserted recipe and rating")
	flag.Parse()

	if dbURL == "" {
		log.Fatal("no database URL: pass -db or set DB_URL")
	}

	recipes, err := loadSeedData(dataFile)
	if err != nil {
		log.Fatalf("load seed data: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	repo := repository.NewWithPool(pool)
	aggregator := ratings.NewAggregator(repo, zap.NewNop(), 3)

	inserted, rated := 0, 0
	for _, sr := range recipes {
		recipe, err := repo.Recipes.Create(ctx, repository.RecipeCreateParams{
			AuthorID:     sr.AuthorID,
			Title:        sr.Title,
			Description:  sr.Description,
			Category:     sr.Category,
			Ingredients:  sr.Ingredients,
			Instructions: sr.Instructions,
			CookTime:     sr.CookTime,
			PrepTime:     sr.PrepTime,
			Nutrition:    sr.Nutrition,
		})
		if err != nil {
			log.Fatalf("insert recipe %q: %v", sr.Title, err)
		}
		inserted++
		if verbose {
			log.Printf("recipe %s %q", recipe.ID, recipe.Title)
		}

		for _, rr := range sr.Ratings {
			agg, err := aggregator.AddRating(ctx, recipe.ID, rr.AuthorID, rr.Value, rr.Review)
			if err != nil {
				log.Fatalf("rate recipe %q by %s: %v", sr.Title, rr.AuthorID, err)
			}
			rated++
			if verbose {
				log.Printf("  rating %d by %s (count now %d)", rr.Value, rr.AuthorID, agg.Count)
			}
		}
	}

	log.Printf("seeded %d recipes, %d ratings", inserted, rated)
}

func loadSeedData(path string) ([]seedRecipe, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var recipes []seedRecipe
	if err := json.Unmarshal(raw, &recipes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(recipes) == 0 {
		return nil, fmt.Errorf("%s contains no recipes", path)
	}
	return recipes, nil
}
