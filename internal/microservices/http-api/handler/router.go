package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"mangawatch/internal/microservices/http-api/middleware"
	"mangawatch/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether a backing store is reachable.
type HealthCheck func(ctx context.Context) error

// RouterDeps carries everything the HTTP API is built from. Nil optional
// fields switch the matching feature off.
type RouterDeps struct {
	Auth    service.AuthService
	Manga   service.MangaService
	Library service.LibraryService
	Covers  service.CoverService
	Import  service.ImportService // optional

	AuthLimiter *middleware.IPRateLimiter // optional
	CORSOrigins []string
	Health      map[string]HealthCheck
	Logger      *slog.Logger
}

// NewRouter builds the gin engine with every API route mounted.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(d.CORSOrigins))

	r.GET("/check-conn", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is alive"})
	})
	r.GET("/health", healthHandler(d.Health))

	api := r.Group("/api")

	NewAuthHandler(d.Auth, d.AuthLimiter, d.Logger).RegisterRoutes(api.Group("/auth"))

	manga := api.Group("/manga", middleware.OptionalAuth(d.Auth))
	NewMangaHandler(d.Manga, d.Logger).RegisterRoutes(manga)

	NewCoverHandler(d.Covers, d.Logger).RegisterRoutes(api.Group("/covers"))

	library := api.Group("/library", middleware.AuthMiddleware(d.Auth))
	NewLibraryHandler(d.Library, d.Logger).RegisterRoutes(library)

	if d.Import != nil {
		admin := api.Group("/admin", middleware.AuthMiddleware(d.Auth), middleware.RequireAdmin())
		NewImportHandler(d.Import, d.Logger).RegisterRoutes(admin)
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "checks": results})
	}
}
