package repository

import (
	"context"
	"fmt"

	"mangawatch/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type LibraryRepository interface {
	// List returns the user's entries with their manga; an empty status means all.
	List(ctx context.Context, userID string, status string) ([]models.LibraryEntry, error)
	Get(ctx context.Context, userID string, mangaID int64) (*models.LibraryEntry, error)
	Create(ctx context.Context, entry *models.LibraryEntry) error
	Delete(ctx context.Context, userID string, mangaID int64) error
	Update(ctx context.Context, userID string, mangaID int64, fields map[string]any) error
}

type libraryRepository struct {
	db *gorm.DB
}

func NewLibraryRepository(db *gorm.DB) LibraryRepository {
	return &libraryRepository{db: db}
}

func (r *libraryRepository) List(ctx context.Context, userID string, status string) ([]models.LibraryEntry, error) {
	entries := make([]models.LibraryEntry, 0)

	q := r.db.WithContext(ctx).
		Preload("Manga").
		Preload("Manga.Genres").
		Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("reading_status = ?", status)
	}

	if err := q.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	return entries, nil
}

func (r *libraryRepository) Get(ctx context.Context, userID string, mangaID int64) (*models.LibraryEntry, error) {
	var entry models.LibraryEntry
	if err := r.db.WithContext(ctx).
		Preload("Manga").
		Where("user_id = ? AND manga_id = ?", userID, mangaID).
		First(&entry).Error; err != nil {
		return nil, fmt.Errorf("get library entry: %w", mapError(err))
	}
	return &entry, nil
}

func (r *libraryRepository) Create(ctx context.Context, entry *models.LibraryEntry) error {
	if err := r.db.WithContext(ctx).Omit("Manga").Create(entry).Error; err != nil {
		return fmt.Errorf("add to library: %w", mapError(err))
	}
	return nil
}

func (r *libraryRepository) Delete(ctx context.Context, userID string, mangaID int64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND manga_id = ?", userID, mangaID).
		Delete(&models.LibraryEntry{})
	if result.Error != nil {
		return fmt.Errorf("remove from library: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("remove from library: %w", ErrNotFound)
	}
	return nil
}

func (r *libraryRepository) Update(ctx context.Context, userID string, mangaID int64, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.LibraryEntry{}).
		Where("user_id = ? AND manga_id = ?", userID, mangaID).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update library entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update library entry: %w", ErrNotFound)
	}
	return nil
}
