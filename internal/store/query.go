package store

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"catalog-service/internal/domain"
)

const (
	DefaultSortField = "createdAt"
	DefaultOrder     = "desc"
)

// sortColumns is the safelist of sortable fields, JSON name -> SQL column.
// The JSON names double as Mongo field names.
var sortColumns = map[string]string{
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
	"title":        "title",
	"category":     "category",
	"quality":      "quality",
	"size":         "size",
	"views":        "views",
	"downloads":    "downloads",
	"downloadLink": "download_link",
}

// MovieListParams is the parsed form of the list query string.
// Limit == 0 means no pagination window: every match is returned.
type MovieListParams struct {
	Category string
	Quality  string
	Search   string
	Sort     string
	Order    string
	Page     int
	Limit    int
}

// Pagination is the metadata attached to windowed list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ParseListQuery turns query parameters into list params.
// page below 1 or unparsable is clamped to 1; a limit that is not a positive
// integer is ignored, which disables the window.
func ParseListQuery(q url.Values) MovieListParams {
	p := MovieListParams{
		Category: q.Get("category"),
		Quality:  q.Get("quality"),
		Search:   q.Get("search"),
		Sort:     DefaultSortField,
		Order:    DefaultOrder,
		Page:     1,
	}
	if q.Has("sort") {
		p.Sort = q.Get("sort")
	}
	if q.Has("order") {
		p.Order = q.Get("order")
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 1 {
		p.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		p.Limit = limit
	}
	return p
}

// SortField returns the safelisted JSON field to sort on, falling back to createdAt.
func (p MovieListParams) SortField() string {
	if _, ok := sortColumns[p.Sort]; ok {
		return p.Sort
	}
	return DefaultSortField
}

func (p MovieListParams) sortColumn() string {
	return sortColumns[p.SortField()]
}

// Descending is true only for the exact value "desc".
func (p MovieListParams) Descending() bool {
	return p.Order == "desc"
}

// Paginated reports whether a window applies.
func (p MovieListParams) Paginated() bool {
	return p.Limit > 0
}

func (p MovieListParams) page() int {
	if p.Page < 1 {
		return 1
	}
	return p.Page
}

// Offset is the number of matches skipped before the window. A page whose
// offset does not fit in an int saturates at math.MaxInt, which every backend
// treats as past the last match.
func (p MovieListParams) Offset() int {
	if !p.Paginated() {
		return 0
	}
	skipped := p.page() - 1
	if skipped > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return skipped * p.Limit
}

// Pagination builds response metadata, or nil when no window applies.
func (p MovieListParams) Pagination(total int) *Pagination {
	if !p.Paginated() {
		return nil
	}
	return &Pagination{
		Page:  p.page(),
		Limit: p.Limit,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(p.Limit))),
	}
}

// Matches is the reference filter predicate. Category and quality compare
// exactly; search is a case-insensitive substring over title or description.
func (p MovieListParams) Matches(m *domain.Movie) bool {
	if p.Category != "" && string(m.Category) != p.Category {
		return false
	}
	if p.Quality != "" && string(m.Quality) != p.Quality {
		return false
	}
	if p.Search != "" {
		needle := strings.ToLower(p.Search)
		if !strings.Contains(strings.ToLower(m.Title), needle) &&
			!strings.Contains(strings.ToLower(m.Description), needle) {
			return false
		}
	}
	return true
}

// less orders a before b for the requested sort, breaking ties by id so every
// backend returns the same sequence.
func (p MovieListParams) less(a, b *domain.Movie) bool {
	c := compareField(p.SortField(), a, b)
	if c == 0 {
		return a.ID < b.ID
	}
	if p.Descending() {
		return c > 0
	}
	return c < 0
}

func compareField(field string, a, b *domain.Movie) int {
	switch field {
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "category":
		return strings.Compare(string(a.Category), string(b.Category))
	case "quality":
		return strings.Compare(string(a.Quality), string(b.Quality))
	case "size":
		return strings.Compare(a.Size, b.Size)
	case "downloadLink":
		return strings.Compare(a.DownloadLink, b.DownloadLink)
	case "views":
		return cmpInt64(a.Views, b.Views)
	case "downloads":
		return cmpInt64(a.Downloads, b.Downloads)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// likeEscaper escapes LIKE metacharacters so search text matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildListWhere renders the filter as a SQL WHERE clause with '?' bind vars.
// Callers rebind for the target dialect.
func buildListWhere(p MovieListParams) (string, []any) {
	var conditions []string
	var args []any

	if p.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, p.Category)
	}
	if p.Quality != "" {
		conditions = append(conditions, "quality = ?")
		args = append(args, p.Quality)
	}
	if p.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(p.Search)) + "%"
		conditions = append(conditions, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// buildListOrder renders ORDER BY and, when paginated, LIMIT/OFFSET.
func buildListOrder(p MovieListParams) (string, []any) {
	dir := "ASC"
	if p.Descending() {
		dir = "DESC"
	}
	clause := " ORDER BY " + p.sortColumn() + " " + dir + ", id ASC"
	if !p.Paginated() {
		return clause, nil
	}
	return clause + " LIMIT ? OFFSET ?", []any{p.Limit, p.Offset()}
}
