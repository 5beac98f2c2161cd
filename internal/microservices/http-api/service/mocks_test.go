package service

import (
	"context"
	"encoding/json"
	"time"

	"mangawatch/internal/microservices/http-api/models"
	"mangawatch/internal/microservices/http-api/repository"

	"github.com/stretchr/testify/mock"
)

// MockMangaRepository mocks the MangaRepository interface
type MockMangaRepository struct {
	mock.Mock
}

func (m *MockMangaRepository) Discover(ctx context.Context, f repository.MangaFilter) ([]models.Manga, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Manga), args.Get(1).(int64), args.Error(2)
}

func (m *MockMangaRepository) GetByID(ctx context.Context, id int64) (*models.Manga, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Manga), args.Error(1)
}

func (m *MockMangaRepository) GetByDexID(ctx context.Context, dexID string) (*models.Manga, error) {
	args := m.Called(ctx, dexID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Manga), args.Error(1)
}

func (m *MockMangaRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockMangaRepository) ListGenres(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMangaRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMangaRepository) CountGenres(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMangaRepository) UpsertByDexID(ctx context.Context, manga *models.Manga) (bool, error) {
	args := m.Called(ctx, manga)
	return args.Bool(0), args.Error(1)
}

// MockLibraryRepository mocks the LibraryRepository interface
type MockLibraryRepository struct {
	mock.Mock
}

func (m *MockLibraryRepository) List(ctx context.Context, userID string, status string) ([]models.LibraryEntry, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LibraryEntry), args.Error(1)
}

func (m *MockLibraryRepository) Get(ctx context.Context, userID string, mangaID int64) (*models.LibraryEntry, error) {
	args := m.Called(ctx, userID, mangaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LibraryEntry), args.Error(1)
}

func (m *MockLibraryRepository) Create(ctx context.Context, entry *models.LibraryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLibraryRepository) Delete(ctx context.Context, userID string, mangaID int64) error {
	args := m.Called(ctx, userID, mangaID)
	return args.Error(0)
}

func (m *MockLibraryRepository) Update(ctx context.Context, userID string, mangaID int64, fields map[string]any) error {
	args := m.Called(ctx, userID, mangaID, fields)
	return args.Error(0)
}

// memoryCache is an in-process JSONCache for tests.
type memoryCache struct {
	data map[string][]byte
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.sets++
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
