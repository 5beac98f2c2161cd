package models

import "time"

// SyncState stores the resume cursor of a named import job.
type SyncState struct {
	Name       string    `gorm:"primaryKey;size:50" json:"name"`
	LastCursor string    `gorm:"column:last_cursor;not null" json:"last_cursor"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SyncState) TableName() string {
	return "sync_state"
}
