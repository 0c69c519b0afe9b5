package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	configs "github.com/thatlq1812/identity-service/internal/configs"
	"github.com/thatlq1812/identity-service/internal/handler"
	"github.com/thatlq1812/identity-service/internal/repository"
	"github.com/thatlq1812/identity-service/internal/service"
)

func main() {
	// 1. Load configuration
	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Connect to database
	dbpool, err := repository.NewPool(context.Background(), cfg.DatabaseURL, cfg.DatabaseMaxConn)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// 3. Initialize layers (bottom-up: Repository → Service → Handler)
	userRepo := repository.NewPostgresWorkspaceUserRepository(dbpool)
	refRepo := repository.NewPostgresReferenceRepository(dbpool)
	mergeStore := repository.NewPostgresMergeStore(dbpool)

	scanner := service.NewDuplicateScanner(userRepo, logger)
	previewer := service.NewMergePreviewer(userRepo, refRepo, cfg.PreviewConcurrency, logger)
	executor := service.NewMergeExecutor(mergeStore, logger)
	coordinator := service.NewBulkMergeCoordinator(executor, logger)

	hdl := handler.NewMergeHandler(scanner, previewer, executor, coordinator, logger)

	// 4. Setup HTTP server
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: strings.Split(cfg.CORSAllowedOrigins, ","),
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Actor-Id"},
	}))
	hdl.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// 5. Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutting down gracefully")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("identity merge service listening", zap.String("port", cfg.ServerPort))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("failed to serve", zap.Error(err))
	}
}
