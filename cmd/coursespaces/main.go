package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campushub/coursespaces/internal/handler"
	"github.com/campushub/coursespaces/internal/repository"
	"github.com/campushub/coursespaces/internal/service"
	"github.com/campushub/coursespaces/pkg/cache"
	"github.com/campushub/coursespaces/pkg/config"
	"github.com/campushub/coursespaces/pkg/database"
	"github.com/campushub/coursespaces/pkg/logger"
	reqidmiddleware "github.com/campushub/coursespaces/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	docs, err := openDocumentStore(cfg)
	if err != nil {
		logr.Sugar().Fatalw("failed to open document store", "backend", cfg.Storage.Backend, "error", err)
	}

	terms := service.NewTermService(cfg.Platform.DefaultTerm, logr)
	metrics := service.NewMetricsService()
	enrollments := repository.NewEnrollmentRepository(docs, logr)
	users := repository.NewUserRepository(docs, logr)

	terms.OnChange(func(term string) {
		logr.Info("current term changed", zap.String("term", term))
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	ops := handler.NewOpsHandler(terms, enrollments, users)
	ops.Register(r.Group("/api/v1"))

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting",
		"addr", addr,
		"env", cfg.Env,
		"storage_backend", cfg.Storage.Backend,
		"default_term", terms.Current(),
	)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func openDocumentStore(cfg *config.Config) (repository.DocumentStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisDocumentStore(client), nil
	case config.BackendPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		store := repository.NewPostgresDocumentStore(db)
		if err := store.Init(context.Background()); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return repository.NewFileDocumentStore(cfg.Storage.DataDir)
	}
}
