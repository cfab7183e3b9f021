package domain

import "time"

// Rating represents a single author's rating of a recipe. At most one live
// rating exists per (RecipeID, AuthorID) pair.
type Rating struct {
	ReviewID    int64      `json:"reviewId"`
	RecipeID    string     `json:"recipeId"`
	AuthorID    string     `json:"authorId"`
	Value       int        `json:"value"`
	Review      *string    `json:"review,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	ModifiedAt  *time.Time `json:"modifiedAt,omitempty"`
}

// Aggregate holds the derived rating fields for one recipe.
type Aggregate struct {
	Rating *float64 `json:"aggregatedRating"`
	Count  int      `json:"reviewCount"`
}

// RatingValueValid reports whether value is an acceptable rating.
func RatingValueValid(value int) bool {
	return value >= MinRatingValue && value <= MaxRatingValue
}

// Rating values are whole stars.
const (
	MinRatingValue = 1
	MaxRatingValue = 5
)
