package dto

import (
	"fmt"
	"time"

	"mangawatch/internal/microservices/http-api/models"
)

// MangaResponse DTO for responses
type MangaResponse struct {
	ID            int64     `json:"id"`
	DexID         *string   `json:"dex_id,omitempty"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	ReleaseYear   *int      `json:"release_year,omitempty"`
	Status        string    `json:"status"`
	Rating        *float64  `json:"rating,omitempty"`
	Description   string    `json:"description"`
	CoverURL      string    `json:"cover_url"`
	CoverProxyURL string    `json:"cover_proxy_url,omitempty"`
	AltTitles     []string  `json:"alt_titles"`
	Genres        []string  `json:"genres"`
	CreatedAt     time.Time `json:"created_at"`
}

func FromModelToResponse(m models.Manga) MangaResponse {
	resp := MangaResponse{
		ID:          m.ID,
		DexID:       m.DexID,
		Title:       m.Title,
		Author:      m.Author,
		ReleaseYear: m.ReleaseYear,
		Status:      m.Status,
		Rating:      m.Rating,
		Description: m.Description,
		CoverURL:    m.CoverURL,
		AltTitles:   m.AltTitleValues(),
		Genres:      m.GenreNames(),
		CreatedAt:   m.CreatedAt,
	}
	if m.CoverURL != "" {
		resp.CoverProxyURL = fmt.Sprintf("/api/covers/%d", m.ID)
	}
	return resp
}

func FromModelsToResponses(list []models.Manga) []MangaResponse {
	out := make([]MangaResponse, 0, len(list))
	for _, m := range list {
		out = append(out, FromModelToResponse(m))
	}
	return out
}

type PaginationResponse struct {
	Page        int   `json:"page"`
	Size        int   `json:"size"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
	PageNumbers []int `json:"page_numbers"`
}

// DiscoverFilters echoes the filters that were applied.
type DiscoverFilters struct {
	Query  string   `json:"query"`
	Genres []string `json:"genres"`
	Status []string `json:"status"`
	Sort   string   `json:"sort"`
}

type DiscoverResponse struct {
	Data           []MangaResponse    `json:"data"`
	Pagination     PaginationResponse `json:"pagination"`
	Filters        DiscoverFilters    `json:"filters"`
	CanonicalQuery string             `json:"canonical_query"`
}

type GenresResponse struct {
	Genres []string `json:"genres"`
}

type CatalogStatsResponse struct {
	TotalManga  int64 `json:"total_manga"`
	TotalGenres int64 `json:"total_genres"`
}
