package mangadex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func sampleManga() MangaData {
	return MangaData{
		ID:   "dex-1",
		Type: "manga",
		Attributes: MangaAttributes{
			Title:       map[string]string{"ja": "ベルセルク", "en": "Berserk"},
			AltTitles:   []map[string]string{{"ja": "ベルセルク"}, {"ko": "베르세르크", "fr": "Berserk FR"}},
			Description: map[string]string{"en": "Guts.", "fr": "Guts FR."},
			Status:      "ongoing",
			Year:        intPtr(1989),
			Tags: []Tag{
				{Attributes: TagAttributes{Name: map[string]string{"en": "Action"}, Group: "genre"}},
				{Attributes: TagAttributes{Name: map[string]string{"en": "Dark Fantasy"}, Group: "theme"}},
				{Attributes: TagAttributes{Name: map[string]string{"ja": "グロ"}}},
			},
			CreatedAt: "2018-01-11T20:26:12+00:00",
		},
		Relationships: []Relationship{
			{ID: "author-1", Type: "author"},
			{ID: "artist-1", Type: "artist"},
			{ID: "cover-1", Type: "cover_art", Attributes: map[string]any{"fileName": "abc.jpg"}},
		},
	}
}

func TestTransform(t *testing.T) {
	tr := NewTransformer("https://uploads.example.org/")
	m := tr.Transform(sampleManga(), "Kentaro Miura")

	require.NotNil(t, m.DexID)
	assert.Equal(t, "dex-1", *m.DexID)
	assert.Equal(t, "Berserk", m.Title)
	assert.Equal(t, "Kentaro Miura", m.Author)
	assert.Equal(t, "Ongoing", m.Status)
	assert.Equal(t, "Guts.", m.Description)
	require.NotNil(t, m.ReleaseYear)
	assert.Equal(t, 1989, *m.ReleaseYear)
	assert.Nil(t, m.Rating)
	assert.Equal(t, "https://uploads.example.org/covers/dex-1/abc.jpg", m.CoverURL)
	assert.Equal(t, []string{"Action", "Dark Fantasy"}, m.GenreNames())
	assert.Equal(t, []string{"ベルセルク", "Berserk FR", "베르세르크"}, m.AltTitleValues())
}

func TestTransform_Fallbacks(t *testing.T) {
	tr := NewTransformer("")

	d := MangaData{ID: "dex-2"}
	m := tr.Transform(d, "  ")

	assert.Equal(t, "Unknown Title", m.Title)
	assert.Equal(t, "Unknown", m.Author)
	assert.Equal(t, "Unknown", m.Status)
	assert.Equal(t, "", m.Description)
	assert.Equal(t, "", m.CoverURL)
	assert.Nil(t, m.ReleaseYear)
	assert.Empty(t, m.Genres)
	assert.Empty(t, m.AltTitles)
}

func TestTransform_TitlePreference(t *testing.T) {
	tests := []struct {
		name   string
		titles map[string]string
		want   string
	}{
		{"English", map[string]string{"ja-ro": "Shingeki", "en": "Attack on Titan"}, "Attack on Titan"},
		{"Romanized", map[string]string{"ja": "進撃", "ja-ro": "Shingeki no Kyojin"}, "Shingeki no Kyojin"},
		{"FirstAvailable", map[string]string{"ko": "진격", "fr": "L'Attaque"}, "L'Attaque"},
		{"BlankEnglish", map[string]string{"en": " ", "ja-ro": "Shingeki"}, "Shingeki"},
	}

	tr := NewTransformer("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := MangaData{ID: "x", Attributes: MangaAttributes{Title: tt.titles}}
			assert.Equal(t, tt.want, tr.Transform(d, "").Title)
		})
	}
}

func TestTransform_DefaultUploadsURL(t *testing.T) {
	m := NewTransformer("").Transform(sampleManga(), "")
	assert.Equal(t, "https://uploads.mangadex.org/covers/dex-1/abc.jpg", m.CoverURL)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Completed", capitalize("COMPLETED"))
	assert.Equal(t, "Hiatus", capitalize("hiatus"))
	assert.Equal(t, "Unknown", capitalize(""))
}

func TestNormalizeCursor(t *testing.T) {
	tests := map[string]string{
		"":                                 "",
		"2018-01-11T20:26:12+00:00":        "2018-01-11T20:26:12",
		"2018-01-11T22:26:12.123456+02:00": "2018-01-11T20:26:12",
		"2018-01-11T20:26:12":              "2018-01-11T20:26:12",
		"not-a-date":                       "not-a-date",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCursor(in), in)
	}
}

func TestMangaDataRelations(t *testing.T) {
	d := sampleManga()
	assert.Equal(t, "author-1", d.AuthorID())
	assert.Equal(t, "abc.jpg", d.CoverFileName())

	d.Relationships = []Relationship{{ID: "cover-1", Type: "cover_art"}}
	assert.Equal(t, "", d.AuthorID())
	assert.Equal(t, "", d.CoverFileName())
}
