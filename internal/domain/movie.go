// catalog-service/internal/domain/movie.go
package domain

import (
	"strings"
	"time"
)

// Category is one of the fixed catalog genres.
type Category string

const (
	CategoryAction    Category = "Action"
	CategoryComedy    Category = "Comedy"
	CategoryDrama     Category = "Drama"
	CategoryHorror    Category = "Horror"
	CategorySciFi     Category = "Sci-Fi"
	CategoryThriller  Category = "Thriller"
	CategoryRomance   Category = "Romance"
	CategoryAdventure Category = "Adventure"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryAction, CategoryComedy, CategoryDrama, CategoryHorror,
	CategorySciFi, CategoryThriller, CategoryRomance, CategoryAdventure,
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Quality is one of the fixed release qualities.
type Quality string

const (
	Quality720p  Quality = "720p"
	Quality1080p Quality = "1080p"
	Quality4K    Quality = "4K"
	QualityHD    Quality = "HD"
	QualityCAM   Quality = "CAM"
)

// Qualities lists every accepted quality.
var Qualities = []Quality{Quality720p, Quality1080p, Quality4K, QualityHD, QualityCAM}

// Valid reports whether q belongs to the closed quality set.
func (q Quality) Valid() bool {
	for _, known := range Qualities {
		if q == known {
			return true
		}
	}
	return false
}

// Movie is the single catalog entity.
// Views and Downloads are only ever changed by the store's counter operations.
type Movie struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Category     Category  `json:"category" db:"category"`
	Quality      Quality   `json:"quality" db:"quality"`
	Size         string    `json:"size" db:"size"`
	DownloadLink string    `json:"downloadLink" db:"download_link"`
	Poster       string    `json:"poster" db:"poster"`
	Views        int64     `json:"views" db:"views"`
	Downloads    int64     `json:"downloads" db:"downloads"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// MovieRequest is the editable part of a movie, used for both create and full update.
// Anything else a client sends (id, views, downloads, timestamps) is dropped while decoding.
type MovieRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"required,max=2000"`
	Category     Category `json:"category" validate:"required,category"`
	Quality      Quality  `json:"quality" validate:"required,quality"`
	Size         string   `json:"size" validate:"required,max=50"`
	DownloadLink string   `json:"downloadLink" validate:"required,httpurl"`
	Poster       string   `json:"poster" validate:"required,httpurl"`
}

// Normalize trims surrounding whitespace from every field.
func (r MovieRequest) Normalize() MovieRequest {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Category = Category(strings.TrimSpace(string(r.Category)))
	r.Quality = Quality(strings.TrimSpace(string(r.Quality)))
	r.Size = strings.TrimSpace(r.Size)
	r.DownloadLink = strings.TrimSpace(r.DownloadLink)
	r.Poster = strings.TrimSpace(r.Poster)
	return r
}

// NewMovie builds a fresh record from an accepted payload. Counters always start at zero.
func NewMovie(r MovieRequest) *Movie {
	m := &Movie{}
	r.ApplyTo(m)
	m.Views = 0
	m.Downloads = 0
	return m
}

// ApplyTo copies the editable fields onto m and leaves id, counters and timestamps alone.
func (r MovieRequest) ApplyTo(m *Movie) {
	m.Title = r.Title
	m.Description = r.Description
	m.Category = r.Category
	m.Quality = r.Quality
	m.Size = r.Size
	m.DownloadLink = r.DownloadLink
	m.Poster = r.Poster
}

// CountStat is one group-by bucket of the stats report.
type CountStat struct {
	Name  string `json:"_id" db:"name" bson:"_id"`
	Count int64  `json:"count" db:"count" bson:"count"`
}

// MovieStats is the aggregate report served by the stats endpoint.
type MovieStats struct {
	TotalMovies     int64       `json:"totalMovies"`
	TotalCategories int         `json:"totalCategories"`
	TotalQualities  int         `json:"totalQualities"`
	CategoryStats   []CountStat `json:"categoryStats"`
	QualityStats    []CountStat `json:"qualityStats"`
}
