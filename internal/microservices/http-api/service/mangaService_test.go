package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"mangawatch/internal/discover"
	"mangawatch/internal/microservices/http-api/dto"
	"mangawatch/internal/microservices/http-api/models"
	"mangawatch/internal/microservices/http-api/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDiscover_BuildsFilterAndPagination(t *testing.T) {
	repo := new(MockMangaRepository)
	svc := NewMangaService(repo, nil, time.Minute, discardLogger())
	ctx := context.Background()

	params := discover.Parse(url.Values{
		"query":  {"piece"},
		"genres": {"Action,Adventure"},
		"status": {"Ongoing"},
		"sort":   {"rating,desc"},
		"page":   {"2"},
		"size":   {"10"},
	})

	want := repository.MangaFilter{
		Query:    "piece",
		Statuses: []string{"Ongoing"},
		Genres:   []string{"Action", "Adventure"},
		Sort:     discover.Sort{Field: "rating", Desc: true},
		Limit:    10,
		Offset:   10,
	}
	items := []models.Manga{{ID: 11, Title: "One Piece", CoverURL: "https://uploads.mangadex.org/covers/a/b.jpg"}}
	repo.On("Discover", ctx, want).Return(items, int64(42), nil)

	resp, err := svc.Discover(ctx, params)
	require.NoError(t, err)

	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "/api/covers/11", resp.Data[0].CoverProxyURL)
	assert.Equal(t, dto.PaginationResponse{
		Page:        2,
		Size:        10,
		Total:       42,
		TotalPages:  5,
		HasNext:     true,
		HasPrevious: true,
		PageNumbers: []int{1, 2, 3, 4, 5},
	}, resp.Pagination)
	assert.Equal(t, "rating,desc", resp.Filters.Sort)
	assert.Equal(t, params.Encode(), resp.CanonicalQuery)
	repo.AssertExpectations(t)
}

func TestDiscover_EmptyFiltersEchoAsLists(t *testing.T) {
	repo := new(MockMangaRepository)
	svc := NewMangaService(repo, nil, time.Minute, discardLogger())
	ctx := context.Background()

	repo.On("Discover", ctx, mock.AnythingOfType("repository.MangaFilter")).Return([]models.Manga{}, int64(0), nil)

	resp, err := svc.Discover(ctx, discover.Parse(url.Values{}))
	require.NoError(t, err)
	assert.Equal(t, []string{}, resp.Filters.Genres)
	assert.Equal(t, []string{}, resp.Filters.Status)
	assert.Equal(t, "title", resp.Filters.Sort)
	assert.False(t, resp.Pagination.HasNext)
	assert.False(t, resp.Pagination.HasPrevious)
	assert.Equal(t, []int{}, resp.Pagination.PageNumbers)
	assert.Equal(t, "", resp.CanonicalQuery)
}

func TestDiscover_InvalidSort(t *testing.T) {
	repo := new(MockMangaRepository)
	svc := NewMangaService(repo, nil, time.Minute, discardLogger())

	_, err := svc.Discover(context.Background(), discover.Params{Sort: "popularity", Page: 1, Size: 35})
	assert.ErrorIs(t, err, ErrInvalidSort)
	repo.AssertNotCalled(t, "Discover", mock.Anything, mock.Anything)
}

func TestGetByID_NotFound(t *testing.T) {
	repo := new(MockMangaRepository)
	svc := NewMangaService(repo, nil, time.Minute, discardLogger())
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(9)).Return(nil, repository.ErrNotFound)
	repo.On("GetByDexID", ctx, "abc").Return(nil, repository.ErrNotFound)

	_, err := svc.GetByID(ctx, 9)
	assert.ErrorIs(t, err, ErrMangaNotFound)
	_, err = svc.GetByDexID(ctx, "abc")
	assert.ErrorIs(t, err, ErrMangaNotFound)
}

func TestGenres_CachesResult(t *testing.T) {
	repo := new(MockMangaRepository)
	cache := newMemoryCache()
	svc := NewMangaService(repo, cache, time.Minute, discardLogger())
	ctx := context.Background()

	repo.On("ListGenres", ctx).Return([]string{"Action", "Drama"}, nil).Once()

	first, err := svc.Genres(ctx)
	require.NoError(t, err)
	second, err := svc.Genres(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Action", "Drama"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets)
	repo.AssertExpectations(t)

	require.NoError(t, svc.InvalidateCache(ctx))
	repo.On("ListGenres", ctx).Return([]string{"Action"}, nil).Once()
	third, err := svc.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Action"}, third)
}

func TestStats(t *testing.T) {
	repo := new(MockMangaRepository)
	cache := newMemoryCache()
	svc := NewMangaService(repo, cache, time.Minute, discardLogger())
	ctx := context.Background()

	repo.On("Count", ctx).Return(int64(120), nil).Once()
	repo.On("CountGenres", ctx).Return(int64(14), nil).Once()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(120), stats.TotalManga)
	assert.Equal(t, int64(14), stats.TotalGenres)

	cached, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, cached)
	repo.AssertExpectations(t)
}

func TestStats_RepositoryError(t *testing.T) {
	repo := new(MockMangaRepository)
	svc := NewMangaService(repo, nil, time.Minute, discardLogger())
	ctx := context.Background()

	boom := errors.New("db down")
	repo.On("Count", ctx).Return(int64(0), boom)

	_, err := svc.Stats(ctx)
	assert.ErrorIs(t, err, boom)
}
