package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tastebase/tastebase/internal/domain"
	"github.com/tastebase/tastebase/internal/ratings"
)

type ratingRequest struct {
	Value  int     `json:"value"`
	Review *string `json:"review"`
}

type aggregateResponse struct {
	AggregatedRating *float64 `json:"aggregatedRating"`
	ReviewCount      int      `json:"reviewCount"`
}

type ratingListResponse struct {
	Items []domain.Rating `json:"items"`
}

type activityListResponse struct {
	Items []domain.AuthorActivity `json:"items"`
}

func (s *Server) handleListRecipeRatings(w http.ResponseWriter, r *http.Request) {
	recipeID := chi.URLParam(r, "recipeID")

	items, err := s.repo.Ratings.ListByRecipe(r.Context(), recipeID)
	if err != nil {
		s.logger.Error("list recipe ratings failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list ratings")
		return
	}
	s.respondJSON(w, http.StatusOK, ratingListResponse{Items: items})
}

func (s *Server) handleAddRating(w http.ResponseWriter, r *http.Request) {
	s.applyRatingChange(w, r, ratings.RatingOpAdd, http.StatusCreated)
}

func (s *Server) handleUpdateRating(w http.ResponseWriter, r *http.Request) {
	s.applyRatingChange(w, r, ratings.RatingOpUpdate, http.StatusOK)
}

func (s *Server) handleDeleteRating(w http.ResponseWriter, r *http.Request) {
	author := authorID(r)
	if author == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing author identity")
		return
	}
	recipeID := chi.URLParam(r, "recipeID")

	agg, err := s.coordinator.ApplyRatingChange(r.Context(), ratings.RatingOpDelete, recipeID, author, ratings.RatingPayload{})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toAggregateResponse(agg))
}

func (s *Server) applyRatingChange(w http.ResponseWriter, r *http.Request, op ratings.RatingOp, successStatus int) {
	author := authorID(r)
	if author == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing author identity")
		return
	}
	recipeID := chi.URLParam(r, "recipeID")

	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	agg, err := s.coordinator.ApplyRatingChange(r.Context(), op, recipeID, author, ratings.RatingPayload{
		Value:  req.Value,
		Review: normalizeStringPtr(req.Review),
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, successStatus, toAggregateResponse(agg))
}

func (s *Server) handleDeleteRatingByReview(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid review id")
		return
	}

	agg, err := s.coordinator.DeleteRatingByReview(r.Context(), reviewID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toAggregateResponse(agg))
}

func (s *Server) handleListAuthorRatings(w http.ResponseWriter, r *http.Request) {
	author := chi.URLParam(r, "authorID")

	items, err := s.coordinator.RatingsByAuthor(r.Context(), author)
	if err != nil {
		s.logger.Error("list author ratings failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list ratings")
		return
	}
	s.respondJSON(w, http.StatusOK, ratingListResponse{Items: items})
}

func (s *Server) handleDeleteAuthorRatings(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}
	author := chi.URLParam(r, "authorID")

	if err := s.coordinator.RemoveAuthorRatings(r.Context(), author); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleTopActiveUsers(w http.ResponseWriter, r *http.Request) {
	items, err := s.coordinator.TopActiveUsers(r.Context())
	if err != nil {
		s.logger.Error("top active users failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load leaderboard")
		return
	}
	s.respondJSON(w, http.StatusOK, activityListResponse{Items: items})
}

func toAggregateResponse(agg domain.Aggregate) aggregateResponse {
	return aggregateResponse{AggregatedRating: agg.Rating, ReviewCount: agg.Count}
}
