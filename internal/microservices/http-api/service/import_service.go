package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mangawatch/internal/ingestion/mangadex"
	"mangawatch/internal/microservices/http-api/dto"
)

var ErrImportRunning = errors.New("an import is already running")

// Importer runs one catalog import.
type Importer interface {
	Import(ctx context.Context, opts mangadex.ImportOptions) (*mangadex.ImportResult, error)
}

// CacheInvalidator drops cached catalog answers.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

type ImportService interface {
	// Start launches an import in the background.
	Start(req dto.ImportRequest) error
	// Run imports synchronously.
	Run(ctx context.Context, opts mangadex.ImportOptions) (*mangadex.ImportResult, error)
	Status() dto.ImportStatusResponse
	// Shutdown cancels a background import and waits for it to stop.
	Shutdown()
}

type importService struct {
	importer Importer
	catalog  CacheInvalidator
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.Mutex
	running    bool
	startedAt  *time.Time
	finishedAt *time.Time
	lastErr    string
	lastResult *mangadex.ImportResult
}

func NewImportService(importer Importer, catalog CacheInvalidator, logger *slog.Logger) ImportService {
	ctx, cancel := context.WithCancel(context.Background())
	return &importService{
		importer: importer,
		catalog:  catalog,
		logger:   logger,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

func (s *importService) Start(req dto.ImportRequest) error {
	if err := s.begin(true); err != nil {
		return err
	}

	opts := mangadex.ImportOptions{Cursor: req.Cursor, Max: req.Max}
	go func() {
		defer s.wg.Done()
		res, err := s.importer.Import(s.baseCtx, opts)
		s.finish(res, err)
	}()
	return nil
}

func (s *importService) Run(ctx context.Context, opts mangadex.ImportOptions) (*mangadex.ImportResult, error) {
	if err := s.begin(false); err != nil {
		return nil, err
	}
	res, err := s.importer.Import(ctx, opts)
	s.finish(res, err)
	return res, err
}

// begin claims the import slot. Background imports join wg under mu so
// Shutdown cannot start waiting between the claim and the Add.
func (s *importService) begin(background bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrImportRunning
	}
	if s.baseCtx.Err() != nil {
		return context.Canceled
	}
	if background {
		s.wg.Add(1)
	}
	now := time.Now()
	s.running = true
	s.startedAt = &now
	s.finishedAt = nil
	s.lastErr = ""
	return nil
}

func (s *importService) finish(res *mangadex.ImportResult, err error) {
	// partial imports still change the catalog
	if res != nil && res.Inserted+res.Updated > 0 {
		if cerr := s.catalog.InvalidateCache(context.WithoutCancel(s.baseCtx)); cerr != nil {
			s.logger.Warn("catalog_cache_invalidate_failed", "error", cerr)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.running = false
	s.finishedAt = &now
	s.lastResult = res
	if err != nil {
		s.lastErr = err.Error()
		s.logger.Error("import_finished_with_error", "error", err)
		return
	}
	if res != nil {
		s.logger.Info("import_finished", "inserted", res.Inserted, "updated", res.Updated, "errors", res.Errors)
	}
}

func (s *importService) Status() dto.ImportStatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dto.ImportStatusResponse{
		Running:    s.running,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
		Error:      s.lastErr,
		LastResult: dto.FromImportResult(s.lastResult),
	}
}

func (s *importService) Shutdown() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}
