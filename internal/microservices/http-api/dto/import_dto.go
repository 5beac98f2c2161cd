package dto

import (
	"time"

	"mangawatch/internal/ingestion/mangadex"
)

// ImportRequest: body for POST /api/admin/import
type ImportRequest struct {
	Max    int    `json:"max" binding:"gte=0"`
	Cursor string `json:"cursor"`
}

type ImportResultResponse struct {
	Fetched      int      `json:"fetched"`
	Inserted     int      `json:"inserted"`
	Updated      int      `json:"updated"`
	Skipped      int      `json:"skipped"`
	Errors       int      `json:"errors"`
	ErrorDetails []string `json:"error_details,omitempty"`
	LastCursor   string   `json:"last_cursor"`
}

type ImportStatusResponse struct {
	Running    bool                  `json:"running"`
	StartedAt  *time.Time            `json:"started_at,omitempty"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	Error      string                `json:"error,omitempty"`
	LastResult *ImportResultResponse `json:"last_result,omitempty"`
}

func FromImportResult(r *mangadex.ImportResult) *ImportResultResponse {
	if r == nil {
		return nil
	}
	return &ImportResultResponse{
		Fetched:      r.Fetched,
		Inserted:     r.Inserted,
		Updated:      r.Updated,
		Skipped:      r.Skipped,
		Errors:       r.Errors,
		ErrorDetails: r.ErrorDetails,
		LastCursor:   r.LastCursor,
	}
}
