package models

import "time"

// Manga statuses as stored after import.
const (
	MangaStatusOngoing   = "Ongoing"
	MangaStatusCompleted = "Completed"
	MangaStatusHiatus    = "Hiatus"
	MangaStatusCancelled = "Cancelled"
	MangaStatusUnknown   = "Unknown"
)

type Manga struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	DexID       *string   `json:"dex_id,omitempty" gorm:"uniqueIndex;size:64"`
	Title       string    `json:"title" gorm:"not null"`
	Author      string    `json:"author" gorm:"not null;default:Unknown"`
	ReleaseYear *int      `json:"release_year,omitempty"`
	Status      string    `json:"status" gorm:"not null;default:Unknown"`
	Rating      *float64  `json:"rating,omitempty" gorm:"type:numeric(4,2)"`
	Description string    `json:"description" gorm:"type:text"`
	CoverURL    string    `json:"cover_url"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// association
	AltTitles []MangaAltTitle `json:"alt_titles,omitempty" gorm:"foreignKey:MangaID;constraint:OnDelete:CASCADE;"`
	Genres    []Genre         `json:"genres,omitempty" gorm:"many2many:manga_genres;constraint:OnDelete:CASCADE;"`
}

func (Manga) TableName() string {
	return "manga"
}

// GenreNames flattens the genre association.
func (m *Manga) GenreNames() []string {
	names := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		names = append(names, g.Name)
	}
	return names
}

// AltTitleValues flattens the alternative title association.
func (m *Manga) AltTitleValues() []string {
	titles := make([]string, 0, len(m.AltTitles))
	for _, t := range m.AltTitles {
		titles = append(titles, t.Title)
	}
	return titles
}
