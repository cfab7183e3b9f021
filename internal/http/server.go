package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tastebase/tastebase/internal/config"
	"github.com/tastebase/tastebase/internal/nutrition"
	"github.com/tastebase/tastebase/internal/ratings"
	"github.com/tastebase/tastebase/internal/repository"
	"github.com/tastebase/tastebase/internal/store"
)

// Server wires HTTP routing, middleware, and handlers. Handlers are thin
// glue: every rating or recipe mutation goes through the coordinator, which
// owns the consistency contract.
type Server struct {
	cfg         config.Config
	store       *store.Store
	repo        *repository.Repository
	coordinator *ratings.Coordinator
	nutrition   nutrition.Client
	logger      *zap.Logger
	router      chi.Router
	httpSrv     *http.Server
}

// New constructs the HTTP server with base middleware and routes. The
// nutrition client may be nil, in which case recipes are stored without
// enrichment.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, coordinator *ratings.Coordinator, nutritionClient nutrition.Client, logger *zap.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:         cfg,
		store:       st,
		repo:        repo,
		coordinator: coordinator,
		nutrition:   nutritionClient,
		logger:      logger,
		router:      r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Route("/recipes", func(r chi.Router) {
		r.Get("/", s.handleSearchRecipes)
		r.Post("/", s.handleCreateRecipe)
		r.Route("/{recipeID}", func(r chi.Router) {
			r.Get("/", s.handleGetRecipe)
			r.Put("/", s.handleUpdateRecipe)
			r.Delete("/", s.handleDeleteRecipe)
			r.Get("/ratings", s.handleListRecipeRatings)
			r.Post("/ratings", s.handleAddRating)
			r.Put("/ratings", s.handleUpdateRating)
			r.Delete("/ratings", s.handleDeleteRating)
		})
	})

	s.router.Delete("/ratings/{reviewID}", s.handleDeleteRatingByReview)

	s.router.Route("/users/{authorID}", func(r chi.Router) {
		r.Get("/recipes", s.handleListAuthorRecipes)
		r.Get("/ratings", s.handleListAuthorRatings)
		r.Delete("/ratings", s.handleDeleteAuthorRatings)
	})

	s.router.Get("/top/popular-recipes", s.handleTopPopularRecipes)
	s.router.Get("/top/active-users", s.handleTopActiveUsers)
}

// Start boots the HTTP server asynchronously.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
