package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"mangawatch/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type CoverHandler struct {
	svc    service.CoverService
	logger *slog.Logger
}

func NewCoverHandler(svc service.CoverService, logger *slog.Logger) *CoverHandler {
	return &CoverHandler{svc: svc, logger: logger}
}

func (h *CoverHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:manga_id", h.Get)
}

// Get proxies a manga's cover image from the uploads CDN.
func (h *CoverHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("manga_id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
	defer cancel()

	img, err := h.svc.Get(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrCoverNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "cover not found"})
		return
	case errors.Is(err, service.ErrInvalidCover):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cover"})
		return
	case errors.Is(err, service.ErrUpstream):
		h.logger.Warn("cover_upstream_failed", "manga_id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "cover unavailable"})
		return
	default:
		h.logger.Error("cover_failed", "manga_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cover unavailable"})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	if img.FromCache {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, img.ContentType, img.Data)
}
