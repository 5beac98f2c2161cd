package models

type MangaAltTitle struct {
	ID      int64  `json:"-" gorm:"primaryKey;autoIncrement"`
	MangaID int64  `json:"-" gorm:"index;not null"`
	Title   string `json:"title" gorm:"not null"`
}

func (MangaAltTitle) TableName() string {
	return "manga_alt_titles"
}
