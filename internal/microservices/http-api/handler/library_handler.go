package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"mangawatch/internal/microservices/http-api/dto"
	"mangawatch/internal/microservices/http-api/middleware"
	"mangawatch/internal/microservices/http-api/service"
	"mangawatch/internal/middleware/auth"

	"github.com/gin-gonic/gin"
)

type LibraryHandler struct {
	svc    service.LibraryService
	logger *slog.Logger
}

func NewLibraryHandler(svc service.LibraryService, logger *slog.Logger) *LibraryHandler {
	return &LibraryHandler{svc: svc, logger: logger}
}

// RegisterRoutes expects AuthMiddleware on rg.
func (h *LibraryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	read := middleware.RequireScopes(auth.ScopeReadLibrary)
	write := middleware.RequireScopes(auth.ScopeWriteLibrary)

	rg.GET("", read, h.List)
	rg.GET("/stats", read, h.Stats)
	rg.POST("", write, h.Add)
	rg.DELETE("/:manga_id", write, h.Remove)
	rg.PATCH("/:manga_id/status", write, h.UpdateStatus)
	rg.POST("/:manga_id/status/cycle", write, h.CycleStatus)
	rg.PATCH("/:manga_id", write, h.UpdateReview)
}

// List user's library
func (h *LibraryHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	opts := service.ListOptions{Status: c.Query("status"), SortBy: c.Query("sort")}
	entries, err := h.svc.List(ctx, userID, opts)
	if err != nil {
		h.libraryError(c, err)
		return
	}

	status := opts.Status
	if status == "" {
		status = "all"
	}
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = service.SortPopularity
	}

	c.JSON(http.StatusOK, dto.LibraryListResponse{
		Entries: dto.FromLibraryEntries(entries),
		Total:   len(entries),
		Status:  status,
		Sort:    sortBy,
	})
}

// Add manga to user's library
func (h *LibraryHandler) Add(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req dto.AddToLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	entry, err := h.svc.Add(ctx, userID, req.MangaID)
	if err != nil {
		h.libraryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromLibraryEntry(*entry))
}

// Remove manga from library
func (h *LibraryHandler) Remove(c *gin.Context) {
	userID, mangaID, ok := h.target(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Remove(ctx, userID, mangaID); err != nil {
		h.libraryError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) UpdateStatus(c *gin.Context) {
	userID, mangaID, ok := h.target(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	entry, err := h.svc.UpdateStatus(ctx, userID, mangaID, req.ReadingStatus)
	if err != nil {
		h.libraryError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLibraryEntry(*entry))
}

// CycleStatus advances Reading -> Completed -> Plan to Read -> Reading.
func (h *LibraryHandler) CycleStatus(c *gin.Context) {
	userID, mangaID, ok := h.target(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	entry, err := h.svc.CycleStatus(ctx, userID, mangaID)
	if err != nil {
		h.libraryError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLibraryEntry(*entry))
}

func (h *LibraryHandler) UpdateReview(c *gin.Context) {
	userID, mangaID, ok := h.target(c)
	if !ok {
		return
	}

	var req dto.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	entry, err := h.svc.UpdateReview(ctx, userID, mangaID, req.Rating, req.Review)
	if err != nil {
		h.libraryError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLibraryEntry(*entry))
}

func (h *LibraryHandler) Stats(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	stats, err := h.svc.Stats(ctx, userID)
	if err != nil {
		h.libraryError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// target reads the caller and the :manga_id path parameter, writing the
// error response itself when either is missing.
func (h *LibraryHandler) target(c *gin.Context) (string, int64, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", 0, false
	}

	mangaID, err := strconv.ParseInt(c.Param("manga_id"), 10, 64)
	if err != nil || mangaID < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid manga_id"})
		return "", 0, false
	}
	return userID, mangaID, true
}

func (h *LibraryHandler) libraryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyInLibrary):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotInLibrary), errors.Is(err, service.ErrMangaNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidSortBy):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("library_request_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "library request failed"})
	}
}
