package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"mangawatch/internal/microservices/http-api/dto"
	"mangawatch/internal/microservices/http-api/models"
	"mangawatch/internal/microservices/http-api/repository"
)

var (
	ErrAlreadyInLibrary = errors.New("manga already in library")
	ErrNotInLibrary     = errors.New("manga not in library")
	ErrInvalidStatus    = errors.New("invalid reading status")
	ErrInvalidRating    = errors.New("rating must be between 1 and 10")
	ErrInvalidSortBy    = errors.New("sort must be one of popularity, date, title")
)

// Library sort keys.
const (
	SortPopularity = "popularity"
	SortDate       = "date"
	SortTitle      = "title"
)

// ListOptions filters and orders a library listing. An empty or "all"
// status lists everything; an empty sort means popularity.
type ListOptions struct {
	Status string
	SortBy string
}

type LibraryService interface {
	List(ctx context.Context, userID string, opts ListOptions) ([]models.LibraryEntry, error)
	Add(ctx context.Context, userID string, mangaID int64) (*models.LibraryEntry, error)
	Remove(ctx context.Context, userID string, mangaID int64) error
	UpdateStatus(ctx context.Context, userID string, mangaID int64, status string) (*models.LibraryEntry, error)
	CycleStatus(ctx context.Context, userID string, mangaID int64) (*models.LibraryEntry, error)
	UpdateReview(ctx context.Context, userID string, mangaID int64, rating *int, review *string) (*models.LibraryEntry, error)
	Stats(ctx context.Context, userID string) (*dto.LibraryStatsResponse, error)
}

type libraryService struct {
	repo      repository.LibraryRepository
	mangaRepo repository.MangaRepository
	logger    *slog.Logger
}

func NewLibraryService(repo repository.LibraryRepository, mangaRepo repository.MangaRepository, logger *slog.Logger) LibraryService {
	return &libraryService{
		repo:      repo,
		mangaRepo: mangaRepo,
		logger:    logger,
	}
}

func (s *libraryService) List(ctx context.Context, userID string, opts ListOptions) ([]models.LibraryEntry, error) {
	status := ""
	if raw := strings.TrimSpace(opts.Status); raw != "" && !strings.EqualFold(raw, "all") {
		parsed, err := models.ParseReadingStatus(raw)
		if err != nil {
			return nil, ErrInvalidStatus
		}
		status = string(parsed)
	}

	sortBy := strings.ToLower(strings.TrimSpace(opts.SortBy))
	if sortBy == "" {
		sortBy = SortPopularity
	}
	if sortBy != SortPopularity && sortBy != SortDate && sortBy != SortTitle {
		return nil, ErrInvalidSortBy
	}

	entries, err := s.repo.List(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	sortEntries(entries, sortBy)
	return entries, nil
}

func (s *libraryService) Add(ctx context.Context, userID string, mangaID int64) (*models.LibraryEntry, error) {
	exists, err := s.mangaRepo.Exists(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrMangaNotFound
	}

	entry := &models.LibraryEntry{
		UserID:        userID,
		MangaID:       mangaID,
		ReadingStatus: string(models.StatusPlanToRead),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyInLibrary
		}
		return nil, err
	}

	s.logger.Info("library_entry_added", "user_id", userID, "manga_id", mangaID)
	return s.reload(ctx, userID, mangaID)
}

func (s *libraryService) Remove(ctx context.Context, userID string, mangaID int64) error {
	if err := s.repo.Delete(ctx, userID, mangaID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotInLibrary
		}
		return err
	}
	s.logger.Info("library_entry_removed", "user_id", userID, "manga_id", mangaID)
	return nil
}

func (s *libraryService) UpdateStatus(ctx context.Context, userID string, mangaID int64, status string) (*models.LibraryEntry, error) {
	parsed, err := models.ParseReadingStatus(status)
	if err != nil {
		return nil, ErrInvalidStatus
	}
	return s.update(ctx, userID, mangaID, map[string]any{"reading_status": string(parsed)})
}

func (s *libraryService) CycleStatus(ctx context.Context, userID string, mangaID int64) (*models.LibraryEntry, error) {
	entry, err := s.repo.Get(ctx, userID, mangaID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotInLibrary
		}
		return nil, err
	}

	next := models.ReadingStatus(entry.ReadingStatus).Next()
	return s.update(ctx, userID, mangaID, map[string]any{"reading_status": string(next)})
}

func (s *libraryService) UpdateReview(ctx context.Context, userID string, mangaID int64, rating *int, review *string) (*models.LibraryEntry, error) {
	fields := map[string]any{}
	if rating != nil {
		if *rating < 1 || *rating > 10 {
			return nil, ErrInvalidRating
		}
		fields["rating"] = *rating
	}
	if review != nil {
		if text := strings.TrimSpace(*review); text == "" {
			fields["review"] = nil
		} else {
			fields["review"] = text
		}
	}
	if len(fields) == 0 {
		return s.reload(ctx, userID, mangaID)
	}
	return s.update(ctx, userID, mangaID, fields)
}

// Stats summarises the user's library. Titles without a catalog rating
// count as zero in the average.
func (s *libraryService) Stats(ctx context.Context, userID string) (*dto.LibraryStatsResponse, error) {
	entries, err := s.repo.List(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	stats := &dto.LibraryStatsResponse{Total: len(entries)}
	var ratingSum float64
	for _, e := range entries {
		switch models.ReadingStatus(e.ReadingStatus) {
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusReading:
			stats.Reading++
		case models.StatusPlanToRead:
			stats.PlanToRead++
		}
		ratingSum += mangaRating(e)
	}
	if stats.Total > 0 {
		stats.AverageRating = math.Round(ratingSum/float64(stats.Total)*10) / 10
	}
	return stats, nil
}

func (s *libraryService) update(ctx context.Context, userID string, mangaID int64, fields map[string]any) (*models.LibraryEntry, error) {
	if err := s.repo.Update(ctx, userID, mangaID, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotInLibrary
		}
		return nil, fmt.Errorf("update library entry: %w", err)
	}
	return s.reload(ctx, userID, mangaID)
}

func (s *libraryService) reload(ctx context.Context, userID string, mangaID int64) (*models.LibraryEntry, error) {
	entry, err := s.repo.Get(ctx, userID, mangaID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotInLibrary
		}
		return nil, err
	}
	return entry, nil
}

func mangaRating(e models.LibraryEntry) float64 {
	if e.Manga == nil || e.Manga.Rating == nil {
		return 0
	}
	return *e.Manga.Rating
}

func mangaYear(e models.LibraryEntry) int {
	if e.Manga == nil || e.Manga.ReleaseYear == nil {
		return 0
	}
	return *e.Manga.ReleaseYear
}

func mangaTitle(e models.LibraryEntry) string {
	if e.Manga == nil {
		return ""
	}
	return strings.ToLower(e.Manga.Title)
}

func sortEntries(entries []models.LibraryEntry, sortBy string) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch sortBy {
		case SortDate:
			return mangaYear(a) > mangaYear(b)
		case SortTitle:
			return mangaTitle(a) < mangaTitle(b)
		default:
			return mangaRating(a) > mangaRating(b)
		}
	})
}
