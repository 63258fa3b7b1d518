package model

import "time"

// Movie is a catalog title.
//
// TMDBID is the external provider's identifier. It is nil for titles an
// admin created by hand; when present it is unique across the catalog.
// Genres holds genre names joined with "," exactly as they are displayed.
type Movie struct {
	ID                string     `json:"id"`
	TMDBID            *int64     `json:"tmdbId"`
	Title             string     `json:"title"`
	Overview          string     `json:"overview"`
	PosterPath        string     `json:"posterPath"`
	BackdropPath      string     `json:"backdropPath"`
	ReleaseDate       string     `json:"releaseDate"`
	VoteAverage       float64    `json:"voteAverage"`
	Genres            string     `json:"genres"`
	IsFeatured        bool       `json:"isFeatured"`
	VideoURL          *string    `json:"videoUrl"`
	AvailabilityStart *time.Time `json:"availabilityStart"`
	AvailabilityEnd   *time.Time `json:"availabilityEnd"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// SortKey selects the ordering of a catalog listing.
type SortKey string

const (
	SortLatest       SortKey = "latest"
	SortPopular      SortKey = "popular"
	SortOldest       SortKey = "oldest"
	SortAlphabetical SortKey = "alphabetical"
	SortReleaseDate  SortKey = "releaseDate"
)

// ParseSortKey maps a query-string value to a SortKey. The empty string means
// latest; "a-z" and "release_date" are accepted as aliases.
func ParseSortKey(s string) (SortKey, bool) {
	switch s {
	case "", string(SortLatest):
		return SortLatest, true
	case string(SortPopular):
		return SortPopular, true
	case string(SortOldest):
		return SortOldest, true
	case string(SortAlphabetical), "a-z":
		return SortAlphabetical, true
	case string(SortReleaseDate), "release_date":
		return SortReleaseDate, true
	}
	return "", false
}

// MovieFilter is a catalog query after defaults have been applied.
type MovieFilter struct {
	Search string
	Genre  string
	SortBy SortKey
	Page   int
	Limit  int
}

// Offset is the number of rows skipped before the requested page.
func (f MovieFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes TotalPages as ceil(total/limit).
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// MoviePage is one page of a catalog listing.
type MoviePage struct {
	Data       []Movie    `json:"data"`
	Pagination Pagination `json:"pagination"`
}
