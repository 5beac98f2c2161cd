package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mangawatch/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncStateRepository persists import cursors by job name.
type SyncStateRepository interface {
	GetCursor(ctx context.Context, name string) (string, error)
	SaveCursor(ctx context.Context, name, cursor string) error
}

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepository{db: db}
}

// GetCursor returns "" when the job has never run.
func (r *syncStateRepository) GetCursor(ctx context.Context, name string) (string, error) {
	var state models.SyncState
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get sync state: %w", err)
	}
	return state.LastCursor, nil
}

func (r *syncStateRepository) SaveCursor(ctx context.Context, name, cursor string) error {
	state := models.SyncState{Name: name, LastCursor: cursor, UpdatedAt: time.Now()}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_cursor", "updated_at"}),
	}).Create(&state).Error; err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}
