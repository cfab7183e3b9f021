package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tastebase/tastebase/internal/cache"
	"github.com/tastebase/tastebase/internal/config"
	httpserver "github.com/tastebase/tastebase/internal/http"
	"github.com/tastebase/tastebase/internal/nutrition"
	"github.com/tastebase/tastebase/internal/ratings"
	"github.com/tastebase/tastebase/internal/repository"
	"github.com/tastebase/tastebase/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := newLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:        int32(cfg.DBMaxConns),
		MinConns:        int32(cfg.DBMinConns),
		MaxConnIdleTime: time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime: time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:     time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer st.Close()

	// The cache lifecycle is owned here: the engine receives it as an
	// explicit dependency, never as a process-wide singleton.
	cacheLayer, err := newCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("connect cache", zap.Error(err))
	}
	defer func() { _ = cacheLayer.Close() }()

	var nutritionClient nutrition.Client
	if cfg.NutritionURL != "" {
		nutritionClient, err = nutrition.NewHTTPClient(cfg.NutritionURL, cfg.NutritionAPIKey,
			time.Duration(cfg.NutritionTimeoutSecs)*time.Second, logger)
		if err != nil {
			logger.Fatal("init nutrition client", zap.Error(err))
		}
	}

	repo := repository.New(st)
	aggregator := ratings.NewAggregator(repo, logger, cfg.RatingRetryMax)
	invalidator := ratings.NewInvalidator(cacheLayer, logger)
	coordinator := ratings.NewCoordinator(repo, aggregator, invalidator, cacheLayer,
		time.Duration(cfg.CacheTTLSecs)*time.Second, logger)

	server := httpserver.New(cfg, st, repo, coordinator, nutritionClient, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown error", zap.Error(err))
	}
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "development" || mode == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, using in-process cache")
		return cache.NewMemory(), nil
	}
	return cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
}
