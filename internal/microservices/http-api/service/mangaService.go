package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mangawatch/internal/discover"
	"mangawatch/internal/microservices/http-api/dto"
	"mangawatch/internal/microservices/http-api/models"
	"mangawatch/internal/microservices/http-api/repository"
)

var (
	ErrMangaNotFound = errors.New("manga not found")
	ErrInvalidSort   = discover.ErrInvalidSort
)

const (
	cacheKeyGenres = "catalog:genres"
	cacheKeyStats  = "catalog:stats"
)

// JSONCache is the subset of the Redis cache the catalog needs.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type MangaService interface {
	Discover(ctx context.Context, p discover.Params) (*dto.DiscoverResponse, error)
	GetByID(ctx context.Context, id int64) (*models.Manga, error)
	GetByDexID(ctx context.Context, dexID string) (*models.Manga, error)
	Genres(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*dto.CatalogStatsResponse, error)
	// InvalidateCache drops cached genre and stats answers after an import.
	InvalidateCache(ctx context.Context) error
}

type mangaService struct {
	repo     repository.MangaRepository
	cache    JSONCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

func NewMangaService(r repository.MangaRepository, cache JSONCache, cacheTTL time.Duration, logger *slog.Logger) MangaService {
	return &mangaService{repo: r, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func (s *mangaService) Discover(ctx context.Context, p discover.Params) (*dto.DiscoverResponse, error) {
	sort, err := discover.ParseSort(p.Sort)
	if err != nil {
		return nil, ErrInvalidSort
	}
	if p.Page < 1 {
		p.Page = discover.DefaultPage
	}
	if p.Size < 1 || p.Size > discover.MaxSize {
		p.Size = discover.DefaultSize
	}

	items, total, err := s.repo.Discover(ctx, repository.MangaFilter{
		Query:    p.Query,
		Statuses: p.Status,
		Genres:   p.Genres,
		Sort:     sort,
		Limit:    p.Size,
		Offset:   p.Offset(),
	})
	if err != nil {
		return nil, err
	}

	totalPages := p.TotalPages(total)
	return &dto.DiscoverResponse{
		Data: dto.FromModelsToResponses(items),
		Pagination: dto.PaginationResponse{
			Page:        p.Page,
			Size:        p.Size,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     p.Page < totalPages,
			HasPrevious: p.Page > 1,
			PageNumbers: discover.PageWindow(p.Page, totalPages),
		},
		Filters: dto.DiscoverFilters{
			Query:  p.Query,
			Genres: nonNil(p.Genres),
			Status: nonNil(p.Status),
			Sort:   sort.String(),
		},
		CanonicalQuery: p.Encode(),
	}, nil
}

func (s *mangaService) GetByID(ctx context.Context, id int64) (*models.Manga, error) {
	m, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMangaNotFound
	}
	return m, err
}

func (s *mangaService) GetByDexID(ctx context.Context, dexID string) (*models.Manga, error) {
	m, err := s.repo.GetByDexID(ctx, dexID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMangaNotFound
	}
	return m, err
}

func (s *mangaService) Genres(ctx context.Context) ([]string, error) {
	var genres []string
	if s.cachedJSON(ctx, cacheKeyGenres, &genres) {
		return genres, nil
	}

	genres, err := s.repo.ListGenres(ctx)
	if err != nil {
		return nil, err
	}
	s.storeJSON(ctx, cacheKeyGenres, genres)
	return genres, nil
}

func (s *mangaService) Stats(ctx context.Context) (*dto.CatalogStatsResponse, error) {
	var stats dto.CatalogStatsResponse
	if s.cachedJSON(ctx, cacheKeyStats, &stats) {
		return &stats, nil
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	genres, err := s.repo.CountGenres(ctx)
	if err != nil {
		return nil, err
	}

	stats = dto.CatalogStatsResponse{TotalManga: total, TotalGenres: genres}
	s.storeJSON(ctx, cacheKeyStats, stats)
	return &stats, nil
}

func (s *mangaService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, cacheKeyGenres, cacheKeyStats)
}

// cache failures are logged and treated as misses
func (s *mangaService) cachedJSON(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		s.logger.Warn("cache_read_failed", "key", key, "error", err)
		return false
	}
	return hit
}

func (s *mangaService) storeJSON(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("cache_write_failed", "key", key, "error", err)
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
