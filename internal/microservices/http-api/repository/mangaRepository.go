package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mangawatch/internal/discover"
	"mangawatch/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrMissingDexID = errors.New("manga has no dex id")

// MangaFilter is the storage-level form of a discover request.
type MangaFilter struct {
	Query    string
	Statuses []string
	Genres   []string
	Sort     discover.Sort
	Limit    int
	Offset   int
}

type MangaRepository interface {
	Discover(ctx context.Context, f MangaFilter) ([]models.Manga, int64, error)
	GetByID(ctx context.Context, id int64) (*models.Manga, error)
	GetByDexID(ctx context.Context, dexID string) (*models.Manga, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ListGenres(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
	CountGenres(ctx context.Context) (int64, error)
	// UpsertByDexID inserts or updates m keyed by its dex id and replaces its
	// genres and alternative titles. It reports whether a row was inserted.
	UpsertByDexID(ctx context.Context, m *models.Manga) (bool, error)
}

type mangaRepository struct {
	db *gorm.DB
}

func NewMangaRepository(db *gorm.DB) MangaRepository {
	return &mangaRepository{db: db}
}

func (r *mangaRepository) Discover(ctx context.Context, f MangaFilter) ([]models.Manga, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Model(&models.Manga{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count manga: %w", err)
	}

	list := make([]models.Manga, 0)
	if total == 0 || int64(f.Offset) >= total {
		return list, total, nil
	}

	if err := r.filtered(ctx, f).
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.name") }).
		Preload("AltTitles").
		Order(orderClause(f.Sort.Field, f.Sort.Desc)).
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("discover manga: %w", err)
	}
	return list, total, nil
}

// filtered builds a fresh query so Count and Find never share state.
func (r *mangaRepository) filtered(ctx context.Context, f MangaFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Table("manga")

	if query := strings.TrimSpace(f.Query); query != "" {
		p := containsPattern(query)
		q = q.Where(
			"LOWER(manga.title) LIKE ? OR LOWER(manga.author) LIKE ? OR EXISTS (SELECT 1 FROM manga_alt_titles mat WHERE mat.manga_id = manga.id AND LOWER(mat.title) LIKE ?)",
			p, p, p,
		)
	}

	if statuses := lowerAll(normalizeNames(f.Statuses)); len(statuses) > 0 {
		q = q.Where("LOWER(manga.status) IN ?", statuses)
	}

	// every requested genre must be present
	if genres := lowerAll(normalizeNames(f.Genres)); len(genres) > 0 {
		q = q.Where(
			"(SELECT COUNT(DISTINCT LOWER(g.name)) FROM manga_genres mg JOIN genres g ON g.id = mg.genre_id WHERE mg.manga_id = manga.id AND LOWER(g.name) IN ?) = ?",
			genres, len(genres),
		)
	}
	return q
}

func (r *mangaRepository) GetByID(ctx context.Context, id int64) (*models.Manga, error) {
	var m models.Manga
	if err := r.db.WithContext(ctx).Preload("Genres").Preload("AltTitles").First(&m, id).Error; err != nil {
		return nil, fmt.Errorf("get manga: %w", mapError(err))
	}
	return &m, nil
}

func (r *mangaRepository) GetByDexID(ctx context.Context, dexID string) (*models.Manga, error) {
	var m models.Manga
	if err := r.db.WithContext(ctx).Preload("Genres").Preload("AltTitles").
		Where("dex_id = ?", dexID).First(&m).Error; err != nil {
		return nil, fmt.Errorf("get manga by dex id: %w", mapError(err))
	}
	return &m, nil
}

func (r *mangaRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Manga{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check manga: %w", err)
	}
	return count > 0, nil
}

func (r *mangaRepository) ListGenres(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	if err := r.db.WithContext(ctx).Model(&models.Genre{}).
		Distinct("name").Order("name").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return names, nil
}

func (r *mangaRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Manga{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count manga: %w", err)
	}
	return n, nil
}

func (r *mangaRepository) CountGenres(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Genre{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count genres: %w", err)
	}
	return n, nil
}

func (r *mangaRepository) UpsertByDexID(ctx context.Context, m *models.Manga) (bool, error) {
	if m.DexID == nil || *m.DexID == "" {
		return false, ErrMissingDexID
	}

	inserted := false
	genreNames := m.GenreNames()
	altTitles := m.AltTitleValues()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Manga
		err := tx.Select("id", "created_at").Where("dex_id = ?", *m.DexID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			inserted = true
			m.Genres, m.AltTitles = nil, nil
			if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
				return fmt.Errorf("create manga: %w", mapError(err))
			}
		case err != nil:
			return fmt.Errorf("find manga by dex id: %w", err)
		default:
			m.ID = existing.ID
			m.CreatedAt = existing.CreatedAt
			m.UpdatedAt = time.Now()
			fields := map[string]any{
				"title":        m.Title,
				"author":       m.Author,
				"release_year": m.ReleaseYear,
				"status":       m.Status,
				"description":  m.Description,
				"cover_url":    m.CoverURL,
				"updated_at":   m.UpdatedAt,
			}
			// imports carry no rating; keep the stored one
			if m.Rating != nil {
				fields["rating"] = m.Rating
			}
			if err := tx.Model(&models.Manga{}).Where("id = ?", m.ID).Updates(fields).Error; err != nil {
				return fmt.Errorf("update manga: %w", err)
			}
		}

		genres, err := ensureGenres(tx, genreNames)
		if err != nil {
			return err
		}
		if err := tx.Model(m).Omit("Genres.*").Association("Genres").Replace(genres); err != nil {
			return fmt.Errorf("replace genres: %w", err)
		}
		m.Genres = genres

		if err := tx.Where("manga_id = ?", m.ID).Delete(&models.MangaAltTitle{}).Error; err != nil {
			return fmt.Errorf("clear alt titles: %w", err)
		}
		rows := make([]models.MangaAltTitle, 0, len(altTitles))
		for _, t := range altTitles {
			rows = append(rows, models.MangaAltTitle{MangaID: m.ID, Title: t})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("create alt titles: %w", err)
			}
		}
		m.AltTitles = rows
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// ensureGenres creates any missing genre rows and returns all of them.
func ensureGenres(tx *gorm.DB, names []string) ([]models.Genre, error) {
	names = normalizeNames(names)
	if len(names) == 0 {
		return []models.Genre{}, nil
	}

	rows := make([]models.Genre, 0, len(names))
	for _, n := range names {
		rows = append(rows, models.Genre{Name: n})
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("create genres: %w", err)
	}

	var genres []models.Genre
	if err := tx.Where("name IN ?", names).Order("name").Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("load genres: %w", err)
	}
	return genres, nil
}

func orderClause(field string, desc bool) string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	switch field {
	case discover.SortAuthor:
		return "LOWER(manga.author) " + dir + ", manga.id ASC"
	case discover.SortRating:
		return "manga.rating " + dir + " NULLS LAST, manga.id ASC"
	case discover.SortYear:
		return "manga.release_year " + dir + " NULLS LAST, manga.id ASC"
	default:
		return "LOWER(manga.title) " + dir + ", manga.id ASC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// normalizeNames trims, drops blanks and removes case-insensitive duplicates.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

func lowerAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToLower(n)
	}
	return out
}
