package dto

import (
	"time"

	"mangawatch/internal/microservices/http-api/models"
)

type AddToLibraryRequest struct {
	MangaID int64 `json:"manga_id" binding:"required,gt=0"`
}

type UpdateStatusRequest struct {
	ReadingStatus string `json:"reading_status" binding:"required"`
}

// UpdateReviewRequest: nil fields are left unchanged
type UpdateReviewRequest struct {
	Rating *int    `json:"rating" binding:"omitempty,min=1,max=10"`
	Review *string `json:"review" binding:"omitempty,max=5000"`
}

type LibraryEntryResponse struct {
	ID            int64          `json:"id"`
	MangaID       int64          `json:"manga_id"`
	ReadingStatus string         `json:"reading_status"`
	Rating        *int           `json:"rating,omitempty"`
	Review        *string        `json:"review,omitempty"`
	AddedAt       time.Time      `json:"added_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Manga         *MangaResponse `json:"manga,omitempty"`
}

type LibraryListResponse struct {
	Entries []LibraryEntryResponse `json:"entries"`
	Total   int                    `json:"total"`
	Status  string                 `json:"status"`
	Sort    string                 `json:"sort"`
}

type LibraryStatsResponse struct {
	Total         int     `json:"total"`
	Completed     int     `json:"completed"`
	Reading       int     `json:"reading"`
	PlanToRead    int     `json:"plan_to_read"`
	AverageRating float64 `json:"average_rating"`
}

func FromLibraryEntry(e models.LibraryEntry) LibraryEntryResponse {
	resp := LibraryEntryResponse{
		ID:            e.ID,
		MangaID:       e.MangaID,
		ReadingStatus: e.ReadingStatus,
		Rating:        e.Rating,
		Review:        e.Review,
		AddedAt:       e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.Manga != nil {
		m := FromModelToResponse(*e.Manga)
		resp.Manga = &m
	}
	return resp
}

func FromLibraryEntries(entries []models.LibraryEntry) []LibraryEntryResponse {
	out := make([]LibraryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromLibraryEntry(e))
	}
	return out
}
