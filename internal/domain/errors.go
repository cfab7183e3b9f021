package domain

import "errors"

// Error taxonomy shared by the stores, the rating engine, and the HTTP layer.
// NotFound/Duplicate/Invalid are terminal caller errors; ErrConcurrencyConflict
// is retried internally before being surfaced; ErrCacheMiss never leaves the
// cache read paths.
var (
	ErrRecipeNotFound      = errors.New("domain: recipe not found")
	ErrRatingNotFound      = errors.New("domain: rating not found")
	ErrDuplicateRating     = errors.New("domain: rating already exists for this recipe and author")
	ErrInvalidRating       = errors.New("domain: rating value out of range")
	ErrConcurrencyConflict = errors.New("domain: concurrent update conflict")
	ErrCacheMiss           = errors.New("domain: cache miss")
)
