package cache

import "strconv"

// Cache keys live in one place so the families never drift apart from the
// invalidation contract.

const (
	KeyTopPopularRecipes = "top-popular-recipes"
	KeyTopActiveUsers    = "top-active-users"

	PatternSearch = "search:*"
)

// KeyRecipe addresses the cached view of a single recipe.
func KeyRecipe(recipeID string) string { return "recipe:" + recipeID }

// KeySearch addresses one page of cached search results.
func KeySearch(query string, page int) string {
	return "search:" + query + ":page:" + strconv.Itoa(page)
}

// KeyUserRecipes addresses an author's cached recipe list.
func KeyUserRecipes(authorID string) string { return "user-recipes:" + authorID }

// KeyUserRatings addresses an author's cached rating list.
func KeyUserRatings(authorID string) string { return "user-ratings:" + authorID }
