package models

import "time"

// LibraryEntry is one title in a user's library.
type LibraryEntry struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex:idx_library_user_manga" json:"user_id"`
	MangaID       int64     `gorm:"not null;uniqueIndex:idx_library_user_manga" json:"manga_id"`
	ReadingStatus string    `gorm:"not null;default:'Plan to Read'" json:"reading_status"`
	Rating        *int      `gorm:"check:rating >= 1 AND rating <= 10" json:"rating,omitempty"`
	Review        *string   `gorm:"type:text" json:"review,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Associations
	Manga *Manga `gorm:"foreignKey:MangaID" json:"manga,omitempty"`
}

func (LibraryEntry) TableName() string {
	return "library_entries"
}
