package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mangawatch/database"
	"mangawatch/internal/cache"
	"mangawatch/internal/config"
	"mangawatch/internal/ingestion/mangadex"
	"mangawatch/internal/microservices/http-api/handler"
	"mangawatch/internal/microservices/http-api/middleware"
	"mangawatch/internal/microservices/http-api/repository"
	"mangawatch/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.OpenGorm(cfg, logger)
	if err != nil {
		logger.Error("database_unavailable", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisCache, err := cache.Connect(rootCtx, cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		// the API still works without a cache
		logger.Warn("cache_unavailable", "error", err)
	}
	defer redisCache.Close()

	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	mangaRepo := repository.NewMangaRepository(db)
	libraryRepo := repository.NewLibraryRepository(db)
	syncRepo := repository.NewSyncStateRepository(db)

	authService := service.NewAuthService(userRepo, refreshRepo, cfg, logger)
	mangaService := service.NewMangaService(mangaRepo, redisCache, cfg.CacheExpiry(), logger)
	libraryService := service.NewLibraryService(libraryRepo, mangaRepo, logger)
	coverService := service.NewCoverService(mangaRepo, redisCache, cfg.MangaDexUploadsURL, logger)

	importer := mangadex.NewImporter(
		mangadex.NewClient(cfg.MangaDexAPIURL, cfg.MangaDexAPIKey, logger),
		mangaRepo,
		syncRepo,
		mangadex.NewTransformer(cfg.MangaDexUploadsURL),
		cfg.ImportWorkers,
		cfg.ImportBatchSize,
		logger,
	)
	importService := service.NewImportService(importer, mangaService, logger)

	router := handler.NewRouter(handler.RouterDeps{
		Auth:        authService,
		Manga:       mangaService,
		Library:     libraryService,
		Covers:      coverService,
		Import:      importService,
		AuthLimiter: middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst),
		CORSOrigins: cfg.CORSOrigins,
		Health: map[string]handler.HealthCheck{
			"postgres": postgresCheck(db),
			"redis":    redisCache.Ping,
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server_started", "addr", srv.Addr, "env", cfg.GoEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_failed", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("server_stopping")

	importService.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	logger.Info("server_stopped")
}

func postgresCheck(db *gorm.DB) handler.HealthCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
