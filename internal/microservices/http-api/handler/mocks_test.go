package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"mangawatch/internal/discover"
	"mangawatch/internal/ingestion/mangadex"
	"mangawatch/internal/microservices/http-api/dto"
	"mangawatch/internal/microservices/http-api/models"
	"mangawatch/internal/microservices/http-api/service"
	"mangawatch/internal/middleware/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stringPtr(s string) *string  { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

// --- auth ---

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*service.TokenPair, *models.User, error) {
	args := m.Called(ctx, username, password)
	pair, _ := args.Get(0).(*service.TokenPair)
	u, _ := args.Get(1).(*models.User)
	return pair, u, args.Error(2)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	pair, _ := args.Get(0).(*service.TokenPair)
	return pair, args.Error(1)
}

func (m *MockAuthService) Revoke(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*auth.Claims, error) {
	args := m.Called(tokenString)
	c, _ := args.Get(0).(*auth.Claims)
	return c, args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

// --- catalog ---

type MockMangaService struct {
	mock.Mock
}

func (m *MockMangaService) Discover(ctx context.Context, p discover.Params) (*dto.DiscoverResponse, error) {
	args := m.Called(ctx, p)
	resp, _ := args.Get(0).(*dto.DiscoverResponse)
	return resp, args.Error(1)
}

func (m *MockMangaService) GetByID(ctx context.Context, id int64) (*models.Manga, error) {
	args := m.Called(ctx, id)
	manga, _ := args.Get(0).(*models.Manga)
	return manga, args.Error(1)
}

func (m *MockMangaService) GetByDexID(ctx context.Context, dexID string) (*models.Manga, error) {
	args := m.Called(ctx, dexID)
	manga, _ := args.Get(0).(*models.Manga)
	return manga, args.Error(1)
}

func (m *MockMangaService) Genres(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	genres, _ := args.Get(0).([]string)
	return genres, args.Error(1)
}

func (m *MockMangaService) Stats(ctx context.Context) (*dto.CatalogStatsResponse, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*dto.CatalogStatsResponse)
	return stats, args.Error(1)
}

func (m *MockMangaService) InvalidateCache(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- library ---

type MockLibraryService struct {
	mock.Mock
}

func (m *MockLibraryService) List(ctx context.Context, userID string, opts service.ListOptions) ([]models.LibraryEntry, error) {
	args := m.Called(ctx, userID, opts)
	entries, _ := args.Get(0).([]models.LibraryEntry)
	return entries, args.Error(1)
}

func (m *MockLibraryService) Add(ctx context.Context, userID string, mangaID int64) (*models.LibraryEntry, error) {
	args := m.Called(ctx, userID, mangaID)
	e, _ := args.Get(0).(*models.LibraryEntry)
	return e, args.Error(1)
}

func (m *MockLibraryService) Remove(ctx context.Context, userID string, mangaID int64) error {
	return m.Called(ctx, userID, mangaID).Error(0)
}

func (m *MockLibraryService) UpdateStatus(ctx context.Context, userID string, mangaID int64, status string) (*models.LibraryEntry, error) {
	args := m.Called(ctx, userID, mangaID, status)
	e, _ := args.Get(0).(*models.LibraryEntry)
	return e, args.Error(1)
}

func (m *MockLibraryService) CycleStatus(ctx context.Context, userID string, mangaID int64) (*models.LibraryEntry, error) {
	args := m.Called(ctx, userID, mangaID)
	e, _ := args.Get(0).(*models.LibraryEntry)
	return e, args.Error(1)
}

func (m *MockLibraryService) UpdateReview(ctx context.Context, userID string, mangaID int64, rating *int, review *string) (*models.LibraryEntry, error) {
	args := m.Called(ctx, userID, mangaID, rating, review)
	e, _ := args.Get(0).(*models.LibraryEntry)
	return e, args.Error(1)
}

func (m *MockLibraryService) Stats(ctx context.Context, userID string) (*dto.LibraryStatsResponse, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(*dto.LibraryStatsResponse)
	return s, args.Error(1)
}

// --- covers ---

type MockCoverService struct {
	mock.Mock
}

func (m *MockCoverService) Get(ctx context.Context, mangaID int64) (*service.CoverImage, error) {
	args := m.Called(ctx, mangaID)
	img, _ := args.Get(0).(*service.CoverImage)
	return img, args.Error(1)
}

// --- import ---

type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) Start(req dto.ImportRequest) error {
	return m.Called(req).Error(0)
}

func (m *MockImportService) Run(ctx context.Context, opts mangadex.ImportOptions) (*mangadex.ImportResult, error) {
	args := m.Called(ctx, opts)
	res, _ := args.Get(0).(*mangadex.ImportResult)
	return res, args.Error(1)
}

func (m *MockImportService) Status() dto.ImportStatusResponse {
	return m.Called().Get(0).(dto.ImportStatusResponse)
}

func (m *MockImportService) Shutdown() {
	m.Called()
}

// --- helpers ---

// withUser stands in for AuthMiddleware.
func withUser(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", role)
		c.Set("scopes", auth.ScopesForRole(role))
		c.Next()
	}
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf io.Reader = http.NoBody
	if body != nil {
		raw, _ := json.Marshal(body)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// doAuthed is doJSON with a bearer token; an empty token sends no header.
func doAuthed(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf io.Reader = http.NoBody
	if body != nil {
		raw, _ := json.Marshal(body)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	return v
}
