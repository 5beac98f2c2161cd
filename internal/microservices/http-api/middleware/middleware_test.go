package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mangawatch/internal/microservices/http-api/middleware"
	"mangawatch/internal/middleware/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	claims *auth.Claims
}

func (s stubValidator) ValidateToken(token string) (*auth.Claims, error) {
	if token != "good-token" {
		return nil, errors.New("invalid token")
	}
	return s.claims, nil
}

func userClaims(role string) *auth.Claims {
	return &auth.Claims{
		UserID:   "user-1",
		Username: "reader",
		Role:     role,
		Scopes:   auth.ScopesForRole(role),
		Type:     auth.TokenTypeAccess,
	}
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		id, _ := middleware.UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(middleware.AuthMiddleware(stubValidator{claims: userClaims("user")}))

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"Missing", "", http.StatusUnauthorized},
		{"WrongScheme", "Basic abc", http.StatusUnauthorized},
		{"EmptyToken", "Bearer ", http.StatusUnauthorized},
		{"Invalid", "Bearer bad-token", http.StatusUnauthorized},
		{"Valid", "Bearer good-token", http.StatusOK},
		{"LowercaseScheme", "bearer good-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.header)
			assert.Equal(t, tt.code, w.Code)
		})
	}

	w := do(r, "Bearer good-token")
	assert.JSONEq(t, `{"user_id":"user-1"}`, w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	r := newRouter(middleware.OptionalAuth(stubValidator{claims: userClaims("user")}))

	w := do(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":""}`, w.Body.String())

	w = do(r, "Bearer good-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user-1"}`, w.Body.String())

	w = do(r, "Bearer bad-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireScopes(t *testing.T) {
	user := stubValidator{claims: userClaims("user")}
	admin := stubValidator{claims: userClaims("admin")}
	wildcard := stubValidator{claims: &auth.Claims{UserID: "u", Scopes: []string{"read:*"}}}

	tests := []struct {
		name      string
		validator stubValidator
		scopes    []string
		code      int
	}{
		{"UserHasScope", user, []string{auth.ScopeReadLibrary}, http.StatusOK},
		{"UserMissingScope", user, []string{"import:manga"}, http.StatusForbidden},
		{"AdminWildcard", admin, []string{"import:manga", auth.ScopeWriteLibrary}, http.StatusOK},
		{"PrefixWildcard", wildcard, []string{auth.ScopeReadManga}, http.StatusOK},
		{"PrefixWildcardMismatch", wildcard, []string{auth.ScopeWriteLibrary}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(middleware.AuthMiddleware(tt.validator), middleware.RequireScopes(tt.scopes...))
			assert.Equal(t, tt.code, do(r, "Bearer good-token").Code)
		})
	}
}

func TestRequireScopes_WithoutAuth(t *testing.T) {
	r := newRouter(middleware.RequireScopes(auth.ScopeReadManga))
	assert.Equal(t, http.StatusForbidden, do(r, "").Code)
}

func TestRequireAnyScope(t *testing.T) {
	r := newRouter(
		middleware.AuthMiddleware(stubValidator{claims: userClaims("user")}),
		middleware.RequireAnyScope("import:manga", auth.ScopeReadManga),
	)
	assert.Equal(t, http.StatusOK, do(r, "Bearer good-token").Code)

	r = newRouter(
		middleware.AuthMiddleware(stubValidator{claims: userClaims("user")}),
		middleware.RequireAnyScope("import:manga"),
	)
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer good-token").Code)
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter(middleware.AuthMiddleware(stubValidator{claims: userClaims("user")}), middleware.RequireAdmin())
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer good-token").Code)

	r = newRouter(middleware.AuthMiddleware(stubValidator{claims: userClaims("admin")}), middleware.RequireAdmin())
	assert.Equal(t, http.StatusOK, do(r, "Bearer good-token").Code)
}

func TestIPRateLimiter(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(0.001, 2)
	r := newRouter(limiter.Middleware())

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	// buckets are per client
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
}

func TestIPRateLimiter_Refills(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(1, 1)
	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.False(t, limiter.Allow("1.1.1.1"))
	time.Sleep(1100 * time.Millisecond)
	assert.True(t, limiter.Allow("1.1.1.1"))
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CORS([]string{"http://localhost:5173"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
