package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mangawatch/internal/discover"
	"mangawatch/internal/microservices/http-api/dto"
	"mangawatch/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type MangaHandler struct {
	svc    service.MangaService
	logger *slog.Logger
}

func NewMangaHandler(svc service.MangaService, logger *slog.Logger) *MangaHandler {
	return &MangaHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the catalog. Browsing is public; the caller's
// group decides whether a token is attached.
func (h *MangaHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Discover)
	rg.GET("/genres", h.Genres)
	rg.GET("/stats", h.Stats)
	rg.GET("/dex/:dex_id", h.GetByDexID)
	rg.GET("/:manga_id", h.Get)
}

// Discover lists manga filtered by query, genres and status, sorted and
// paginated.
func (h *MangaHandler) Discover(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	params := discover.Parse(c.Request.URL.Query())
	resp, err := h.svc.Discover(ctx, params)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSort) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort: use title, author, rating or year with optional ,asc or ,desc"})
			return
		}
		h.logger.Error("discover_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load manga"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *MangaHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("manga_id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	m, err := h.svc.GetByID(ctx, id)
	if err != nil {
		h.mangaError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToResponse(*m))
}

func (h *MangaHandler) GetByDexID(c *gin.Context) {
	dexID := strings.TrimSpace(c.Param("dex_id"))
	if dexID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dex id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	m, err := h.svc.GetByDexID(ctx, dexID)
	if err != nil {
		h.mangaError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToResponse(*m))
}

func (h *MangaHandler) Genres(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	genres, err := h.svc.Genres(ctx)
	if err != nil {
		h.logger.Error("genres_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load genres"})
		return
	}
	c.JSON(http.StatusOK, dto.GenresResponse{Genres: genres})
}

func (h *MangaHandler) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		h.logger.Error("stats_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *MangaHandler) mangaError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrMangaNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "manga not found"})
		return
	}
	h.logger.Error("manga_lookup_failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load manga"})
}
