package domain

import "time"

// Nutrition captures the per-serving nutrition facts attached to a recipe.
type Nutrition struct {
	Calories     float64   `json:"calories"`
	Fat          float64   `json:"fat"`
	SaturatedFat float64   `json:"saturatedFat"`
	Cholesterol  float64   `json:"cholesterol"`
	Sodium       float64   `json:"sodium"`
	Carbohydrate float64   `json:"carbohydrate"`
	Fiber        float64   `json:"fiber"`
	Sugar        float64   `json:"sugar"`
	Protein      float64   `json:"protein"`
	Source       string    `json:"source"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// Recipe represents the canonical recipe entity in the database/service.
//
// AggregatedRating and ReviewCount are derived from the recipe's ratings and
// are written only by the rating engine: AggregatedRating is nil exactly when
// ReviewCount is zero, otherwise it holds the mean rating value rounded to
// two decimal places.
type Recipe struct {
	ID               string
	AuthorID         string
	Title            string
	Description      *string
	Category         *string
	Ingredients      *string
	Instructions     *string
	CookTime         *string
	PrepTime         *string
	Nutrition        *Nutrition
	AggregatedRating *float64
	ReviewCount      int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RecipeSnapshot is the read-model served from the cache for a single recipe.
type RecipeSnapshot struct {
	Recipe  Recipe   `json:"recipe"`
	Ratings []Rating `json:"ratings"`
}

// AuthorActivity is one row of the active-users leaderboard.
type AuthorActivity struct {
	AuthorID    string `json:"authorId"`
	RatingCount int64  `json:"ratingCount"`
}
