package ratings

import (
	"math"

	"github.com/tastebase/tastebase/internal/domain"
)

// Compute derives a recipe's aggregate fields from its full rating set. The
// mean is rounded half-up to two decimal places; an empty set yields a nil
// rating and zero count, never 0.0. Pure and deterministic, it is both the
// write path's recompute step and the ground-truth oracle in tests.
func Compute(ratings []domain.Rating) domain.Aggregate {
	count := len(ratings)
	if count == 0 {
		return domain.Aggregate{}
	}

	sum := 0
	for _, r := range ratings {
		sum += r.Value
	}

	mean := roundToTwoDecimals(float64(sum) / float64(count))
	return domain.Aggregate{Rating: &mean, Count: count}
}

func roundToTwoDecimals(value float64) float64 {
	return math.Round(value*100) / 100
}
