package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"mangawatch/internal/microservices/http-api/dto"
	"mangawatch/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type ImportHandler struct {
	svc    service.ImportService
	logger *slog.Logger
}

func NewImportHandler(svc service.ImportService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{svc: svc, logger: logger}
}

// RegisterRoutes expects AuthMiddleware and RequireAdmin on rg.
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.Start)
	rg.GET("/import/status", h.Status)
}

// Start launches a background import. An empty body imports everything
// from the stored cursor.
func (h *ImportHandler) Start(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.Start(req); err != nil {
		if errors.Is(err, service.ErrImportRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "import unavailable"})
		return
	}

	h.logger.Info("import_requested", "user_id", c.GetString("userID"), "max", req.Max, "cursor", req.Cursor)
	c.JSON(http.StatusAccepted, h.svc.Status())
}

func (h *ImportHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}
