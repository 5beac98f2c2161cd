package mangadex

// MangaListResponse represents the response from GET /manga
type MangaListResponse struct {
	Result   string      `json:"result"`
	Response string      `json:"response"`
	Data     []MangaData `json:"data"`
	Limit    int         `json:"limit"`
	Offset   int         `json:"offset"`
	Total    int         `json:"total"`
}

// MangaData represents a single manga entry from the API
type MangaData struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Attributes    MangaAttributes `json:"attributes"`
	Relationships []Relationship  `json:"relationships"`
}

// MangaAttributes contains manga metadata
type MangaAttributes struct {
	Title         map[string]string   `json:"title"`
	AltTitles     []map[string]string `json:"altTitles"`
	Description   map[string]string   `json:"description"`
	Status        string              `json:"status"` // "ongoing", "completed", "hiatus", "cancelled"
	Year          *int                `json:"year"`
	ContentRating string              `json:"contentRating"`
	Tags          []Tag               `json:"tags"`
	CreatedAt     string              `json:"createdAt"`
	UpdatedAt     string              `json:"updatedAt"`
}

// Tag represents a genre or theme tag
type Tag struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Attributes TagAttributes `json:"attributes"`
}

// TagAttributes contains tag metadata
type TagAttributes struct {
	Name  map[string]string `json:"name"`
	Group string            `json:"group"` // "genre", "theme", "format"
}

// Relationship represents related entities (author, artist, cover_art).
// Attributes are only present for expanded includes.
type Relationship struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// AuthorListResponse represents the response from GET /author
type AuthorListResponse struct {
	Result string       `json:"result"`
	Data   []AuthorData `json:"data"`
	Total  int          `json:"total"`
}

type AuthorData struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name string `json:"name"`
	} `json:"attributes"`
}

// AuthorID returns the first author relationship, or "".
func (m MangaData) AuthorID() string {
	for _, rel := range m.Relationships {
		if rel.Type == "author" {
			return rel.ID
		}
	}
	return ""
}

// CoverFileName returns the file name of the expanded cover_art relation.
func (m MangaData) CoverFileName() string {
	for _, rel := range m.Relationships {
		if rel.Type != "cover_art" {
			continue
		}
		name, _ := rel.Attributes["fileName"].(string)
		return name
	}
	return ""
}
