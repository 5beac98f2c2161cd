package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mangawatch/internal/cache"
	"mangawatch/internal/microservices/http-api/repository"

	"golang.org/x/time/rate"
)

var (
	ErrCoverNotFound = errors.New("cover not found")
	ErrInvalidCover  = errors.New("invalid cover reference")
	ErrUpstream      = errors.New("cover upstream failed")
)

const (
	// covers larger than this are served but not cached
	maxCacheableCover = 2 << 20
	// upstream bodies past this are rejected
	maxCoverBytes = 5 << 20
	coverCacheTTL = time.Hour
)

// BlobCache is the subset of the Redis cache used for cover bytes.
type BlobCache interface {
	GetBlob(ctx context.Context, key string) (*cache.Blob, error)
	SetBlob(ctx context.Context, key string, b cache.Blob, ttl time.Duration) error
}

// CoverImage is a cover ready to be written to the client.
type CoverImage struct {
	Data        []byte
	ContentType string
	FromCache   bool
}

type CoverService interface {
	Get(ctx context.Context, mangaID int64) (*CoverImage, error)
}

type coverService struct {
	mangaRepo  repository.MangaRepository
	cache      BlobCache
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewCoverService(mangaRepo repository.MangaRepository, blobs BlobCache, uploadsBaseURL string, logger *slog.Logger) CoverService {
	return &coverService{
		mangaRepo: mangaRepo,
		cache:     blobs,
		baseURL:   strings.TrimRight(uploadsBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(5, 10),
		logger:  logger,
	}
}

func (s *coverService) Get(ctx context.Context, mangaID int64) (*CoverImage, error) {
	manga, err := s.mangaRepo.GetByID(ctx, mangaID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCoverNotFound
		}
		return nil, err
	}

	dexID, fileName, err := ParseCoverURL(manga.CoverURL)
	if err != nil {
		return nil, err
	}
	if !ValidCover(dexID, fileName) {
		return nil, ErrInvalidCover
	}

	key := "cover:" + dexID + "/" + fileName
	if s.cache != nil {
		blob, err := s.cache.GetBlob(ctx, key)
		if err != nil {
			s.logger.Warn("cover_cache_read_failed", "key", key, "error", err)
		} else if blob != nil && len(blob.Data) > 0 {
			return &CoverImage{Data: blob.Data, ContentType: blob.ContentType, FromCache: true}, nil
		}
	}

	data, err := s.fetch(ctx, dexID, fileName)
	if err != nil {
		return nil, err
	}

	img := &CoverImage{Data: data, ContentType: CoverContentType(fileName)}
	if s.cache != nil && len(data) <= maxCacheableCover {
		if err := s.cache.SetBlob(ctx, key, cache.Blob{Data: data, ContentType: img.ContentType}, coverCacheTTL); err != nil {
			s.logger.Warn("cover_cache_write_failed", "key", key, "error", err)
		}
	}
	return img, nil
}

func (s *coverService) fetch(ctx context.Context, dexID, fileName string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/covers/%s/%s", s.baseURL, url.PathEscape(dexID), url.PathEscape(fileName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCoverNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(data) > maxCoverBytes {
		return nil, fmt.Errorf("%w: cover exceeds %d bytes", ErrUpstream, maxCoverBytes)
	}
	return data, nil
}

// ParseCoverURL extracts the dex id and file name from a stored cover URL
// of the form .../covers/{dexId}/{fileName}.
func ParseCoverURL(raw string) (string, string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", "", ErrCoverNotFound
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", ErrCoverNotFound
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 || parts[len(parts)-3] != "covers" {
		return "", "", ErrCoverNotFound
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

// ValidCover rejects blank ids, path tricks and non-image extensions.
func ValidCover(dexID, fileName string) bool {
	if strings.TrimSpace(dexID) == "" || strings.TrimSpace(fileName) == "" {
		return false
	}
	if strings.Contains(fileName, "..") || strings.Contains(fileName, "/") {
		return false
	}
	lower := strings.ToLower(fileName)
	return strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") || strings.HasSuffix(lower, ".png")
}

func CoverContentType(fileName string) string {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
