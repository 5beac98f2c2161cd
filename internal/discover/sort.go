package discover

import (
	"errors"
	"strings"
)

var ErrInvalidSort = errors.New("invalid sort")

// Sortable fields, matching the browse view's sort menu.
const (
	SortTitle  = "title"
	SortAuthor = "author"
	SortRating = "rating"
	SortYear   = "year"
)

var sortFields = map[string]bool{
	SortTitle:  true,
	SortAuthor: true,
	SortRating: true,
	SortYear:   true,
}

// Sort is a parsed "field" or "field,dir" sort parameter.
type Sort struct {
	Field string
	Desc  bool
}

// ParseSort validates a sort parameter. Direction defaults to ascending.
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sort{Field: DefaultSort}, nil
	}

	field, dir, _ := strings.Cut(raw, ",")
	field = strings.ToLower(strings.TrimSpace(field))
	if !sortFields[field] {
		return Sort{}, ErrInvalidSort
	}

	s := Sort{Field: field}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		s.Desc = true
	default:
		return Sort{}, ErrInvalidSort
	}
	return s, nil
}

func (s Sort) String() string {
	if s.Desc {
		return s.Field + ",desc"
	}
	return s.Field
}
