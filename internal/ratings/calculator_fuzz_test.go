package ratings

import (
	"testing"

	"github.com/tastebase/tastebase/internal/domain"
)

func FuzzCompute(f *testing.F) {
	f.Add([]byte{1, 5, 3})
	f.Add([]byte{})
	f.Add([]byte{5, 5, 5, 5, 5, 5, 5, 5})

	f.Fuzz(func(t *testing.T, raw []byte) {
		set := make([]domain.Rating, 0, len(raw))
		for i, b := range raw {
			set = append(set, domain.Rating{
				ReviewID: int64(i + 1),
				Value:    domain.MinRatingValue + int(b)%(domain.MaxRatingValue-domain.MinRatingValue+1),
			})
		}

		agg := Compute(set)
		if agg.Count != len(set) {
			t.Fatalf("count = %d, want %d", agg.Count, len(set))
		}
		if len(set) == 0 {
			if agg.Rating != nil {
				t.Fatalf("empty set rating = %v, want nil", *agg.Rating)
			}
			return
		}
		if agg.Rating == nil {
			t.Fatalf("non-empty set rating = nil")
		}
		if *agg.Rating < domain.MinRatingValue || *agg.Rating > domain.MaxRatingValue {
			t.Fatalf("rating %v outside [%d,%d]", *agg.Rating, domain.MinRatingValue, domain.MaxRatingValue)
		}
	})
}
