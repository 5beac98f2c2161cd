package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"mangawatch/internal/microservices/http-api/handler"
	"mangawatch/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupCoverRouter(svc *MockCoverService) *gin.Engine {
	r := newEngine()
	handler.NewCoverHandler(svc, discardLogger()).RegisterRoutes(r.Group("/api/covers"))
	return r
}

func TestCover_ServesImage(t *testing.T) {
	for _, tc := range []struct {
		name      string
		fromCache bool
		want      string
	}{
		{"Miss", false, "MISS"},
		{"Hit", true, "HIT"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockCoverService)
			img := &service.CoverImage{Data: []byte{0xff, 0xd8, 0xff}, ContentType: "image/jpeg", FromCache: tc.fromCache}
			svc.On("Get", mock.Anything, int64(12)).Return(img, nil)

			w := doJSON(setupCoverRouter(svc), http.MethodGet, "/api/covers/12", nil)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
			assert.Equal(t, "public, max-age=86400", w.Header().Get("Cache-Control"))
			assert.Equal(t, tc.want, w.Header().Get("X-Cache"))
			assert.Equal(t, []byte{0xff, 0xd8, 0xff}, w.Body.Bytes())
		})
	}
}

func TestCover_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"NotFound", service.ErrCoverNotFound, http.StatusNotFound},
		{"InvalidReference", fmt.Errorf("%w: not an uploads url", service.ErrInvalidCover), http.StatusBadRequest},
		{"Upstream", fmt.Errorf("%w: status 503", service.ErrUpstream), http.StatusBadGateway},
		{"Other", errors.New("redis: closed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockCoverService)
			svc.On("Get", mock.Anything, int64(7)).Return(nil, tt.err)

			w := doJSON(setupCoverRouter(svc), http.MethodGet, "/api/covers/7", nil)

			assert.Equal(t, tt.want, w.Code)
			assert.Empty(t, w.Header().Get("X-Cache"))
		})
	}
}

func TestCover_InvalidID(t *testing.T) {
	svc := new(MockCoverService)

	w := doJSON(setupCoverRouter(svc), http.MethodGet, "/api/covers/-1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
