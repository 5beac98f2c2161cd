package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mangawatch/internal/microservices/http-api/dto"
	"mangawatch/internal/microservices/http-api/handler"
	"mangawatch/internal/microservices/http-api/models"
	"mangawatch/internal/middleware/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type routerMocks struct {
	auth    *MockAuthService
	manga   *MockMangaService
	library *MockLibraryService
	covers  *MockCoverService
	imports *MockImportService
}

func setupRouter(health map[string]handler.HealthCheck, withImport bool) (*gin.Engine, routerMocks) {
	gin.SetMode(gin.TestMode)
	m := routerMocks{
		auth:    new(MockAuthService),
		manga:   new(MockMangaService),
		library: new(MockLibraryService),
		covers:  new(MockCoverService),
		imports: new(MockImportService),
	}
	deps := handler.RouterDeps{
		Auth:        m.auth,
		Manga:       m.manga,
		Library:     m.library,
		Covers:      m.covers,
		CORSOrigins: []string{"*"},
		Health:      health,
		Logger:      discardLogger(),
	}
	if withImport {
		deps.Import = m.imports
	}
	return handler.NewRouter(deps), m
}

func claimsFor(role string) *auth.Claims {
	return &auth.Claims{UserID: "u-" + role, Username: role, Role: role, Scopes: auth.ScopesForRole(role)}
}

func TestRouter_CheckConn(t *testing.T) {
	r, _ := setupRouter(nil, false)

	w := doJSON(r, http.MethodGet, "/check-conn", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "API is alive", decode[map[string]string](w)["message"])
}

func TestRouter_Health(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	r, _ := setupRouter(map[string]handler.HealthCheck{"postgres": ok, "redis": ok}, false)
	w := doJSON(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]any](w)["status"])

	r, _ = setupRouter(map[string]handler.HealthCheck{"postgres": ok, "redis": down}, false)
	w = doJSON(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode[map[string]any](w)
	assert.Equal(t, "degraded", body["status"])
	checks, _ := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["postgres"])
	assert.Equal(t, "dial tcp: refused", checks["redis"])
}

func TestRouter_CatalogIsPublic(t *testing.T) {
	r, m := setupRouter(nil, false)
	m.manga.On("Genres", mock.Anything).Return([]string{"Action"}, nil)

	w := doJSON(r, http.MethodGet, "/api/manga/genres", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_CatalogRejectsBadToken(t *testing.T) {
	r, m := setupRouter(nil, false)
	m.auth.On("ValidateToken", "junk").Return(nil, errors.New("malformed"))

	w := doAuthed(r, http.MethodGet, "/api/manga/genres", "junk", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	m.manga.AssertNotCalled(t, "Genres", mock.Anything)
}

func TestRouter_LibraryNeedsToken(t *testing.T) {
	r, m := setupRouter(nil, false)

	w := doJSON(r, http.MethodGet, "/api/library", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	m.auth.On("ValidateToken", "user-token").Return(claimsFor(models.RoleUser), nil)
	m.library.On("Stats", mock.Anything, "u-user").Return(&dto.LibraryStatsResponse{}, nil)

	w = doAuthed(r, http.MethodGet, "/api/library/stats", "user-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminImport(t *testing.T) {
	r, m := setupRouter(nil, true)
	m.auth.On("ValidateToken", "user-token").Return(claimsFor(models.RoleUser), nil)
	m.auth.On("ValidateToken", "admin-token").Return(claimsFor(models.RoleAdmin), nil)
	m.imports.On("Status").Return(dto.ImportStatusResponse{})

	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodGet, "/api/admin/import/status", nil).Code)
	assert.Equal(t, http.StatusForbidden, doAuthed(r, http.MethodGet, "/api/admin/import/status", "user-token", nil).Code)
	assert.Equal(t, http.StatusOK, doAuthed(r, http.MethodGet, "/api/admin/import/status", "admin-token", nil).Code)
}

func TestRouter_NoImportRoutesWhenDisabled(t *testing.T) {
	r, _ := setupRouter(nil, false)

	w := doJSON(r, http.MethodGet, "/api/admin/import/status", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	r, _ := setupRouter(nil, false)

	req := httptest.NewRequest(http.MethodOptions, "/api/manga", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
