// Package provider defines the external metadata source the catalog is
// synchronised from. The types mirror the provider's JSON payloads, so the
// admin-facing search and listing endpoints can pass them through unchanged.
package provider

import (
	"context"
	"strings"
)

// Category is one of the provider's curated movie listings.
type Category string

const (
	CategoryPopular    Category = "popular"
	CategoryTopRated   Category = "top_rated"
	CategoryUpcoming   Category = "upcoming"
	CategoryNowPlaying Category = "now_playing"
)

// ParseCategory accepts the four listing names; "" means popular.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case "":
		return CategoryPopular, true
	case CategoryPopular, CategoryTopRated, CategoryUpcoming, CategoryNowPlaying:
		return Category(s), true
	}
	return "", false
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetails is the full record for one title.
type MovieDetails struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	Runtime      int     `json:"runtime"`
	Genres       []Genre `json:"genres"`
}

// GenreNames flattens the structured genres to "Action,Drama".
func (d *MovieDetails) GenreNames() string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return strings.Join(names, ",")
}

// MovieSummary is one entry of a search result or category listing. Listings
// carry genre ids only, never names.
type MovieSummary struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	Popularity   float64 `json:"popularity"`
	GenreIDs     []int   `json:"genre_ids"`
}

// ResultPage is one page of search results or a category listing.
type ResultPage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Results      []MovieSummary `json:"results"`
}

type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type CrewMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	Department  string `json:"department"`
	ProfilePath string `json:"profile_path"`
}

type Credits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

type Video struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

type Image struct {
	FilePath    string  `json:"file_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	VoteAverage float64 `json:"vote_average"`
	Language    *string `json:"iso_639_1"`
}

type Images struct {
	Backdrops []Image `json:"backdrops"`
	Posters   []Image `json:"posters"`
}

// Media bundles a title's trailers and artwork.
type Media struct {
	Videos    []Video `json:"videos"`
	Backdrops []Image `json:"backdrops"`
	Posters   []Image `json:"posters"`
}

// Provider is the read-only interface to the external metadata API.
//
// Implementations return apperror NotFound when the provider does not know
// the id and apperror Upstream for every other failure.
type Provider interface {
	MovieDetails(ctx context.Context, id int64) (*MovieDetails, error)
	Search(ctx context.Context, query string, page int) (*ResultPage, error)
	ListByCategory(ctx context.Context, category Category, page int) (*ResultPage, error)
	Credits(ctx context.Context, id int64) (*Credits, error)
	Videos(ctx context.Context, id int64) ([]Video, error)
	Images(ctx context.Context, id int64) (*Images, error)
}
