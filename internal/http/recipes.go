package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tastebase/tastebase/internal/domain"
	"github.com/tastebase/tastebase/internal/nutrition"
	"github.com/tastebase/tastebase/internal/ratings"
	"github.com/tastebase/tastebase/internal/repository"
)

type recipeCreateRequest struct {
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	Ingredients  *string `json:"ingredients"`
	Instructions *string `json:"instructions"`
	CookTime     *string `json:"cookTime"`
	PrepTime     *string `json:"prepTime"`
}

type recipeUpdateRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	Ingredients  *string `json:"ingredients"`
	Instructions *string `json:"instructions"`
	CookTime     *string `json:"cookTime"`
	PrepTime     *string `json:"prepTime"`
}

type recipeResponse struct {
	ID               string            `json:"id"`
	AuthorID         string            `json:"authorId"`
	Title            string            `json:"title"`
	Description      *string           `json:"description,omitempty"`
	Category         *string           `json:"category,omitempty"`
	Ingredients      *string           `json:"ingredients,omitempty"`
	Instructions     *string           `json:"instructions,omitempty"`
	CookTime         *string           `json:"cookTime,omitempty"`
	PrepTime         *string           `json:"prepTime,omitempty"`
	Nutrition        *domain.Nutrition `json:"nutrition,omitempty"`
	AggregatedRating *float64          `json:"aggregatedRating"`
	ReviewCount      int               `json:"reviewCount"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

type recipeListResponse struct {
	Items []recipeResponse `json:"items"`
	Page  int              `json:"page,omitempty"`
}

type recipeViewResponse struct {
	Recipe  recipeResponse  `json:"recipe"`
	Ratings []domain.Rating `json:"ratings"`
}

func (s *Server) handleSearchRecipes(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page := 1
	if val := strings.TrimSpace(r.URL.Query().Get("page")); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil || parsed < 1 {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid page value")
			return
		}
		page = parsed
	}

	items, err := s.coordinator.SearchRecipes(r.Context(), query, page)
	if err != nil {
		s.logger.Error("search recipes failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to search recipes")
		return
	}

	s.respondJSON(w, http.StatusOK, recipeListResponse{Items: toRecipeResponses(items), Page: page})
}

func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}
	author := authorID(r)
	if author == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing author identity")
		return
	}

	var req recipeCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required")
		return
	}

	recipe, err := s.repo.Recipes.Create(r.Context(), repository.RecipeCreateParams{
		AuthorID:     author,
		Title:        strings.TrimSpace(req.Title),
		Description:  normalizeStringPtr(req.Description),
		Category:     normalizeStringPtr(req.Category),
		Ingredients:  normalizeStringPtr(req.Ingredients),
		Instructions: normalizeStringPtr(req.Instructions),
		CookTime:     normalizeStringPtr(req.CookTime),
		PrepTime:     normalizeStringPtr(req.PrepTime),
	})
	if err != nil {
		s.logger.Error("create recipe failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create recipe")
		return
	}

	recipe = s.enrichRecipeWithNutrition(r.Context(), recipe)

	// A new recipe can appear in search results and author lists.
	if err := s.coordinator.ApplyRecipeChange(r.Context(), recipe.ID, ratings.RecipeOpEdit); err != nil {
		s.logger.Warn("post-create invalidation failed", zap.String("recipe_id", recipe.ID), zap.Error(err))
	}

	w.Header().Set("Location", fmt.Sprintf("/recipes/%s", url.PathEscape(recipe.ID)))
	s.respondJSON(w, http.StatusCreated, toRecipeResponse(recipe))
}

func (s *Server) enrichRecipeWithNutrition(ctx context.Context, recipe domain.Recipe) domain.Recipe {
	if s.nutrition == nil {
		return recipe
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.NutritionTimeoutSecs)*time.Second)
	defer cancel()

	facts, err := s.nutrition.Fetch(ctx, recipe.Title)
	if err != nil {
		if !errors.Is(err, nutrition.ErrNotFound) {
			s.logger.Warn("nutrition fetch failed", zap.String("title", recipe.Title), zap.Error(err))
		}
		return recipe
	}

	updated, err := s.repo.Recipes.Update(ctx, recipe.ID, repository.RecipeUpdateParams{Nutrition: facts})
	if err != nil {
		s.logger.Warn("store nutrition facts failed", zap.String("recipe_id", recipe.ID), zap.Error(err))
		return recipe
	}
	return updated
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	recipeID := chi.URLParam(r, "recipeID")

	snapshot, err := s.coordinator.GetRecipeView(r.Context(), recipeID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, recipeViewResponse{
		Recipe:  toRecipeResponse(snapshot.Recipe),
		Ratings: snapshot.Ratings,
	})
}

func (s *Server) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}
	recipeID := chi.URLParam(r, "recipeID")

	var req recipeUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	recipe, err := s.repo.Recipes.Update(r.Context(), recipeID, repository.RecipeUpdateParams{
		Title:        normalizeStringPtr(req.Title),
		Description:  normalizeStringPtr(req.Description),
		Category:     normalizeStringPtr(req.Category),
		Ingredients:  normalizeStringPtr(req.Ingredients),
		Instructions: normalizeStringPtr(req.Instructions),
		CookTime:     normalizeStringPtr(req.CookTime),
		PrepTime:     normalizeStringPtr(req.PrepTime),
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	if err := s.coordinator.ApplyRecipeChange(r.Context(), recipeID, ratings.RecipeOpEdit); err != nil {
		s.logger.Warn("post-edit invalidation failed", zap.String("recipe_id", recipeID), zap.Error(err))
	}

	s.respondJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}
	recipeID := chi.URLParam(r, "recipeID")

	if err := s.coordinator.ApplyRecipeChange(r.Context(), recipeID, ratings.RecipeOpDelete); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListAuthorRecipes(w http.ResponseWriter, r *http.Request) {
	author := chi.URLParam(r, "authorID")

	items, err := s.coordinator.RecipesByAuthor(r.Context(), author)
	if err != nil {
		s.logger.Error("list author recipes failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list recipes")
		return
	}
	s.respondJSON(w, http.StatusOK, recipeListResponse{Items: toRecipeResponses(items)})
}

func (s *Server) handleTopPopularRecipes(w http.ResponseWriter, r *http.Request) {
	items, err := s.coordinator.TopPopularRecipes(r.Context())
	if err != nil {
		s.logger.Error("top popular recipes failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load leaderboard")
		return
	}
	s.respondJSON(w, http.StatusOK, recipeListResponse{Items: toRecipeResponses(items)})
}

func toRecipeResponse(recipe domain.Recipe) recipeResponse {
	return recipeResponse{
		ID:               recipe.ID,
		AuthorID:         recipe.AuthorID,
		Title:            recipe.Title,
		Description:      recipe.Description,
		Category:         recipe.Category,
		Ingredients:      recipe.Ingredients,
		Instructions:     recipe.Instructions,
		CookTime:         recipe.CookTime,
		PrepTime:         recipe.PrepTime,
		Nutrition:        recipe.Nutrition,
		AggregatedRating: recipe.AggregatedRating,
		ReviewCount:      recipe.ReviewCount,
		CreatedAt:        recipe.CreatedAt,
		UpdatedAt:        recipe.UpdatedAt,
	}
}

func toRecipeResponses(recipes []domain.Recipe) []recipeResponse {
	items := make([]recipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		items = append(items, toRecipeResponse(recipe))
	}
	return items
}
