package client

// http_client.go talks to the mangawatch REST API.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mangawatch/internal/discover"
	"mangawatch/internal/microservices/http-api/dto"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// --- auth ---

func (c *HTTPClient) Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error) {
	var out dto.UserResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	req := dto.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	req := dto.RefreshTokenRequest{RefreshToken: refreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Revoke(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/revoke", dto.RefreshTokenRequest{RefreshToken: refreshToken}, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*dto.UserResponse, error) {
	var out dto.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- catalog ---

// Discover sends p in its canonical query form.
func (c *HTTPClient) Discover(ctx context.Context, p discover.Params) (*dto.DiscoverResponse, error) {
	path := "/api/manga"
	if q := p.Encode(); q != "" {
		path += "?" + q
	}

	var out dto.DiscoverResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetManga(ctx context.Context, id int64) (*dto.MangaResponse, error) {
	var out dto.MangaResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/manga/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetMangaByDexID(ctx context.Context, dexID string) (*dto.MangaResponse, error) {
	var out dto.MangaResponse
	if err := c.do(ctx, http.MethodGet, "/api/manga/dex/"+url.PathEscape(dexID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Genres(ctx context.Context) ([]string, error) {
	var out dto.GenresResponse
	if err := c.do(ctx, http.MethodGet, "/api/manga/genres", nil, &out); err != nil {
		return nil, err
	}
	return out.Genres, nil
}

func (c *HTTPClient) CatalogStats(ctx context.Context) (*dto.CatalogStatsResponse, error) {
	var out dto.CatalogStatsResponse
	if err := c.do(ctx, http.MethodGet, "/api/manga/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- library ---

func (c *HTTPClient) Library(ctx context.Context, status, sortBy string) (*dto.LibraryListResponse, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if sortBy != "" {
		q.Set("sort", sortBy)
	}
	path := "/api/library"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out dto.LibraryListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) AddToLibrary(ctx context.Context, mangaID int64) (*dto.LibraryEntryResponse, error) {
	var out dto.LibraryEntryResponse
	if err := c.do(ctx, http.MethodPost, "/api/library", dto.AddToLibraryRequest{MangaID: mangaID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) RemoveFromLibrary(ctx context.Context, mangaID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/library/%d", mangaID), nil, nil)
}

func (c *HTTPClient) SetStatus(ctx context.Context, mangaID int64, status string) (*dto.LibraryEntryResponse, error) {
	var out dto.LibraryEntryResponse
	req := dto.UpdateStatusRequest{ReadingStatus: status}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/library/%d/status", mangaID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CycleStatus(ctx context.Context, mangaID int64) (*dto.LibraryEntryResponse, error) {
	var out dto.LibraryEntryResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/library/%d/status/cycle", mangaID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateReview(ctx context.Context, mangaID int64, rating *int, review *string) (*dto.LibraryEntryResponse, error) {
	var out dto.LibraryEntryResponse
	req := dto.UpdateReviewRequest{Rating: rating, Review: review}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/library/%d", mangaID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) LibraryStats(ctx context.Context) (*dto.LibraryStatsResponse, error) {
	var out dto.LibraryStatsResponse
	if err := c.do(ctx, http.MethodGet, "/api/library/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- admin ---

func (c *HTTPClient) StartImport(ctx context.Context, req dto.ImportRequest) (*dto.ImportStatusResponse, error) {
	var out dto.ImportStatusResponse
	if err := c.do(ctx, http.MethodPost, "/api/admin/import", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ImportStatus(ctx context.Context) (*dto.ImportStatusResponse, error) {
	var out dto.ImportStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/import/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends body as JSON and decodes a 2xx answer into out. out may be nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
