package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mangawatch/database"
	"mangawatch/internal/cache"
	"mangawatch/internal/config"
	"mangawatch/internal/ingestion/mangadex"
	"mangawatch/internal/microservices/http-api/repository"
	"mangawatch/internal/microservices/http-api/service"

	"github.com/spf13/cobra"
)

func main() {
	var (
		maxManga  int
		cursor    string
		fromStart bool
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "mangadex-sync",
		Short: "Import the MangaDex catalog into the mangawatch database",
		Long: `mangadex-sync walks MangaDex oldest first and upserts every manga it sees.
Without flags it resumes from the cursor saved by the previous run.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), mangadex.ImportOptions{
				Cursor:    cursor,
				Max:       maxManga,
				BatchSize: batchSize,
				FromStart: fromStart,
			})
		},
	}
	cmd.Flags().IntVar(&maxManga, "max", -1, "Stop after this many manga (0 = all, default IMPORT_MAX)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "createdAt cursor to start from (2006-01-02T15:04:05)")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "Ignore the stored cursor and start from the beginning")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Manga per request (1-100, default IMPORT_BATCH_SIZE)")
	cmd.MarkFlagsMutuallyExclusive("cursor", "from-start")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts mangadex.ImportOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	logger := cfg.NewLogger()

	if opts.Max < 0 {
		opts.Max = cfg.ImportMax
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = cfg.ImportBatchSize
	}

	db, err := database.OpenGorm(cfg, logger)
	if err != nil {
		logger.Error("database_unavailable", "error", err)
		return err
	}
	defer database.Close(db)

	redisCache, err := cache.Connect(ctx, cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		logger.Warn("cache_unavailable", "error", err)
	}
	defer redisCache.Close()

	mangaRepo := repository.NewMangaRepository(db)
	importer := mangadex.NewImporter(
		mangadex.NewClient(cfg.MangaDexAPIURL, cfg.MangaDexAPIKey, logger),
		mangaRepo,
		repository.NewSyncStateRepository(db),
		mangadex.NewTransformer(cfg.MangaDexUploadsURL),
		cfg.ImportWorkers,
		cfg.ImportBatchSize,
		logger,
	)
	catalog := service.NewMangaService(mangaRepo, redisCache, cfg.CacheExpiry(), logger)
	imports := service.NewImportService(importer, catalog, logger)
	defer imports.Shutdown()

	result, err := imports.Run(ctx, opts)
	if result != nil {
		fmt.Println(result.String())
		for _, detail := range result.ErrorDetails {
			fmt.Println("  " + detail)
		}
	}
	if err != nil {
		logger.Error("import_failed", "error", err)
		return err
	}
	return nil
}
