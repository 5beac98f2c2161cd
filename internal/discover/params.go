// Package discover maps the catalog browse view's filter state to and from
// URL query parameters. The API server parses requests with it and the CLI
// builds requests with it, so both sides agree on a single canonical form.
package discover

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Query parameter keys.
const (
	KeyQuery  = "query"
	KeyGenres = "genres"
	KeyStatus = "status"
	KeySort   = "sort"
	KeyPage   = "page"
	KeySize   = "size"
)

const (
	DefaultSort = "title"
	DefaultPage = 1
	DefaultSize = 35
	MaxSize     = 100
)

// Params is the parsed filter state of a discover request.
type Params struct {
	Query  string
	Genres []string
	Status []string
	Sort   string
	Page   int
	Size   int
}

// Update maps a parameter key to its new value. Supported values are
// string, int, []string and nil. Nil, "" and an empty list remove the key.
type Update map[string]any

// Parse reads discover params from a query string, filling defaults for
// anything missing or malformed.
func Parse(values url.Values) Params {
	p := Params{
		Query:  strings.TrimSpace(values.Get(KeyQuery)),
		Genres: splitList(values.Get(KeyGenres)),
		Status: splitList(values.Get(KeyStatus)),
		Sort:   strings.TrimSpace(values.Get(KeySort)),
		Page:   DefaultPage,
		Size:   DefaultSize,
	}
	if p.Sort == "" {
		p.Sort = DefaultSort
	}

	if raw := values.Get(KeyPage); raw != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n >= 1 {
			p.Page = n
		}
	}
	if raw := values.Get(KeySize); raw != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			p.Size = clamp(n, 1, MaxSize)
		}
	}
	return p
}

// Values returns the canonical query values for p. Empty filters and
// default sort, page and size are left out.
func (p Params) Values() url.Values {
	v := url.Values{}
	if q := strings.TrimSpace(p.Query); q != "" {
		v.Set(KeyQuery, q)
	}
	if g := joinList(p.Genres); g != "" {
		v.Set(KeyGenres, g)
	}
	if s := joinList(p.Status); s != "" {
		v.Set(KeyStatus, s)
	}
	if p.Sort != "" && p.Sort != DefaultSort {
		v.Set(KeySort, p.Sort)
	}
	if p.Page > DefaultPage {
		v.Set(KeyPage, strconv.Itoa(p.Page))
	}
	if p.Size > 0 && p.Size != DefaultSize {
		v.Set(KeySize, strconv.Itoa(clamp(p.Size, 1, MaxSize)))
	}
	return v
}

// Encode is the canonical query string for p.
func (p Params) Encode() string {
	return p.Values().Encode()
}

// Offset is the number of rows skipped before the current page.
func (p Params) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.limit()
}

// TotalPages is the page count for total results at the current size.
func (p Params) TotalPages(total int64) int {
	if total <= 0 {
		return 0
	}
	size := int64(p.limit())
	return int((total + size - 1) / size)
}

func (p Params) limit() int {
	if p.Size < 1 {
		return DefaultSize
	}
	return clamp(p.Size, 1, MaxSize)
}

// WithFilters replaces the filter controls and resets the page to the first
// one when any of them changed. Genre and status lists compare without
// regard to order.
func (p Params) WithFilters(genres, status []string, sortBy string) (Params, bool) {
	genres = cleanList(genres)
	status = cleanList(status)
	sortBy = strings.TrimSpace(sortBy)
	if sortBy == "" {
		sortBy = DefaultSort
	}

	current := p.Sort
	if current == "" {
		current = DefaultSort
	}
	if sameSet(p.Genres, genres) && sameSet(p.Status, status) && current == sortBy {
		return p, false
	}

	next := p
	next.Genres = genres
	next.Status = status
	next.Sort = sortBy
	next.Page = DefaultPage
	return next, true
}

// Apply merges updates into a copy of values. A nil, empty string or empty
// list value removes the key. It reports whether anything differs from the
// input; when nothing does the original values are returned untouched.
func Apply(values url.Values, updates Update) (url.Values, bool) {
	var next url.Values
	changed := false

	for _, key := range sortedKeys(updates) {
		encoded := encodeValue(updates[key])
		current, present := values[key]

		if encoded == "" {
			if !present {
				continue
			}
			if next == nil {
				next = cloneValues(values)
			}
			next.Del(key)
			changed = true
			continue
		}

		if present && len(current) == 1 && current[0] == encoded {
			continue
		}
		if next == nil {
			next = cloneValues(values)
		}
		next.Set(key, encoded)
		changed = true
	}

	if !changed {
		return values, false
	}
	return next, true
}

// Set is Apply for a single key.
func Set(values url.Values, key string, value any) (url.Values, bool) {
	return Apply(values, Update{key: value})
}

func encodeValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case []string:
		return joinList(v)
	default:
		return fmt.Sprint(v)
	}
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return cleanList(strings.Split(raw, ","))
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func joinList(items []string) string {
	return strings.Join(cleanList(items), ",")
}

func sameSet(a, b []string) bool {
	a, b = cleanList(a), cleanList(b)
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func sortedKeys(u Update) []string {
	keys := make([]string, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
