package mangadex

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"mangawatch/internal/microservices/http-api/models"
)

const (
	DefaultUploadsURL = "https://uploads.mangadex.org"

	unknownTitle  = "Unknown Title"
	unknownAuthor = "Unknown"

	// createdAtSince rejects offsets and fractional seconds
	cursorLayout = "2006-01-02T15:04:05"
)

// Transformer maps API manga onto catalog rows.
type Transformer struct {
	uploadsURL string
}

func NewTransformer(uploadsURL string) *Transformer {
	if uploadsURL == "" {
		uploadsURL = DefaultUploadsURL
	}
	return &Transformer{uploadsURL: strings.TrimRight(uploadsURL, "/")}
}

// Transform builds a manga row. authorName may be empty.
func (t *Transformer) Transform(d MangaData, authorName string) *models.Manga {
	dexID := d.ID
	attrs := d.Attributes

	m := &models.Manga{
		DexID:       &dexID,
		Title:       pickLocalized(attrs.Title, unknownTitle, "en", "ja-ro"),
		Author:      unknownAuthor,
		Status:      capitalize(attrs.Status),
		Description: pickLocalized(attrs.Description, "", "en"),
		CoverURL:    t.coverURL(d.ID, d.CoverFileName()),
	}
	if name := strings.TrimSpace(authorName); name != "" {
		m.Author = name
	}
	if attrs.Year != nil && *attrs.Year > 0 {
		year := *attrs.Year
		m.ReleaseYear = &year
	}

	for _, title := range altTitles(attrs.AltTitles) {
		m.AltTitles = append(m.AltTitles, models.MangaAltTitle{Title: title})
	}
	for _, name := range genreNames(attrs.Tags) {
		m.Genres = append(m.Genres, models.Genre{Name: name})
	}
	return m
}

func (t *Transformer) coverURL(dexID, fileName string) string {
	if dexID == "" || strings.TrimSpace(fileName) == "" {
		return ""
	}
	return t.uploadsURL + "/covers/" + dexID + "/" + fileName
}

// pickLocalized returns the first preferred language present, then the
// value of the alphabetically first language, then fallback.
func pickLocalized(values map[string]string, fallback string, preferred ...string) string {
	for _, lang := range preferred {
		if v := strings.TrimSpace(values[lang]); v != "" {
			return v
		}
	}
	for _, lang := range sortedLangs(values) {
		if v := strings.TrimSpace(values[lang]); v != "" {
			return v
		}
	}
	return fallback
}

func altTitles(list []map[string]string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]bool)
	for _, titles := range list {
		for _, lang := range sortedLangs(titles) {
			v := strings.TrimSpace(titles[lang])
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// genreNames keeps the English name of every tag.
func genreNames(tags []Tag) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if name := strings.TrimSpace(tag.Attributes.Name["en"]); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func capitalize(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return models.MangaStatusUnknown
	}
	r := []rune(strings.ToLower(status))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func sortedLangs(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NormalizeCursor converts an API createdAt timestamp into the form
// accepted by createdAtSince. Unparseable input is returned unchanged.
func NormalizeCursor(createdAt string) string {
	createdAt = strings.TrimSpace(createdAt)
	if createdAt == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, cursorLayout} {
		if ts, err := time.Parse(layout, createdAt); err == nil {
			return ts.UTC().Format(cursorLayout)
		}
	}
	return createdAt
}
