package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/repository"
	"github.com/sakif/movieku/internal/validation"
)

// Listing limits. Oversized limits are clamped rather than rejected so a
// client asking for "everything" still gets a bounded page.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CatalogService is the read path and the admin write path of the catalog.
type CatalogService struct {
	movies repository.MovieRepository
	logger *slog.Logger
}

func NewCatalogService(movies repository.MovieRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{movies: movies, logger: logger}
}

// ListQuery is a catalog listing request exactly as it arrived in the query
// string; List parses and defaults it.
type ListQuery struct {
	Search string
	Genre  string
	SortBy string
	Page   string
	Limit  string
}

// List returns one page of the catalog.
//
// Unknown sort keys are InvalidArgument; a page or limit that is not a
// positive integer is a validation error. A page past the end is simply
// empty.
func (s *CatalogService) List(ctx context.Context, q ListQuery) (*model.MoviePage, error) {
	sortKey, ok := model.ParseSortKey(strings.TrimSpace(q.SortBy))
	if !ok {
		return nil, apperror.InvalidArgument("sortBy",
			"sortBy must be one of latest, popular, oldest, alphabetical, releaseDate")
	}

	page, err := parsePositive("page", q.Page, 1)
	if err != nil {
		return nil, err
	}
	limit, err := parsePositive("limit", q.Limit, DefaultPageSize)
	if err != nil {
		return nil, err
	}
	limit = min(limit, MaxPageSize)

	filter := model.MovieFilter{
		Search: strings.TrimSpace(q.Search),
		Genre:  strings.TrimSpace(q.Genre),
		SortBy: sortKey,
		Page:   page,
		Limit:  limit,
	}

	movies, total, err := s.movies.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing movies: %w", err)
	}

	return &model.MoviePage{
		Data:       movies,
		Pagination: model.NewPagination(page, limit, total),
	}, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*model.Movie, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "movie id is required")
	}
	return s.movies.GetByID(ctx, id)
}

// MovieInput is a hand-made catalog entry.
type MovieInput struct {
	TMDBID            *int64                 `json:"tmdbId" validate:"omitempty,gt=0"`
	Title             string                 `json:"title" validate:"required,max=300"`
	Overview          string                 `json:"overview"`
	PosterPath        string                 `json:"posterPath"`
	BackdropPath      string                 `json:"backdropPath"`
	ReleaseDate       string                 `json:"releaseDate"`
	VoteAverage       float64                `json:"voteAverage" validate:"gte=0,lte=10"`
	Genres            string                 `json:"genres"`
	IsFeatured        bool                   `json:"isFeatured"`
	VideoURL          *string                `json:"videoUrl" validate:"omitempty,url"`
	AvailabilityStart model.Optional[string] `json:"availabilityStart"`
	AvailabilityEnd   model.Optional[string] `json:"availabilityEnd"`
}

// Create stores an admin-authored title.
func (s *CatalogService) Create(ctx context.Context, in MovieInput) (*model.Movie, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.VideoURL = emptyToNil(in.VideoURL)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	start, err := parseBound("availabilityStart", in.AvailabilityStart)
	if err != nil {
		return nil, err
	}
	end, err := parseBound("availabilityEnd", in.AvailabilityEnd)
	if err != nil {
		return nil, err
	}
	if err := checkWindow(start, end); err != nil {
		return nil, err
	}

	movie := &model.Movie{
		TMDBID:            in.TMDBID,
		Title:             in.Title,
		Overview:          in.Overview,
		PosterPath:        in.PosterPath,
		BackdropPath:      in.BackdropPath,
		ReleaseDate:       in.ReleaseDate,
		VoteAverage:       in.VoteAverage,
		Genres:            in.Genres,
		IsFeatured:        in.IsFeatured,
		VideoURL:          in.VideoURL,
		AvailabilityStart: start,
		AvailabilityEnd:   end,
	}

	if err := s.movies.Create(ctx, movie); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/catalog: creating movie: %w", err)
	}

	s.logger.Info("movie created", slog.String("movieID", movie.ID), slog.String("title", movie.Title))
	return movie, nil
}

// MoviePatch is a partial update. Absent fields are left alone; an explicit
// null clears optional fields and empties text fields.
type MoviePatch struct {
	Title             model.Optional[string]  `json:"title"`
	Overview          model.Optional[string]  `json:"overview"`
	PosterPath        model.Optional[string]  `json:"posterPath"`
	BackdropPath      model.Optional[string]  `json:"backdropPath"`
	ReleaseDate       model.Optional[string]  `json:"releaseDate"`
	VoteAverage       model.Optional[float64] `json:"voteAverage"`
	Genres            model.Optional[string]  `json:"genres"`
	IsFeatured        model.Optional[bool]    `json:"isFeatured"`
	VideoURL          model.Optional[string]  `json:"videoUrl"`
	AvailabilityStart model.Optional[string]  `json:"availabilityStart"`
	AvailabilityEnd   model.Optional[string]  `json:"availabilityEnd"`
}

// Update applies patch to the stored title and returns the result.
func (s *CatalogService) Update(ctx context.Context, id string, patch MoviePatch) (*model.Movie, error) {
	movie, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title.Set {
		title := strings.TrimSpace(patch.Title.Value)
		if patch.Title.Null || title == "" {
			return nil, apperror.ValidationFailed("title", "title is required")
		}
		movie.Title = title
	}
	if patch.IsFeatured.Set {
		if patch.IsFeatured.Null {
			return nil, apperror.ValidationFailed("isFeatured", "isFeatured must be true or false")
		}
		movie.IsFeatured = patch.IsFeatured.Value
	}
	if patch.VoteAverage.Set {
		v := patch.VoteAverage.Value
		if patch.VoteAverage.Null || v < 0 || v > 10 {
			return nil, apperror.ValidationFailed("voteAverage", "voteAverage must be between 0 and 10")
		}
		movie.VoteAverage = v
	}

	applyText(&movie.Overview, patch.Overview)
	applyText(&movie.PosterPath, patch.PosterPath)
	applyText(&movie.BackdropPath, patch.BackdropPath)
	applyText(&movie.ReleaseDate, patch.ReleaseDate)
	applyText(&movie.Genres, patch.Genres)

	if patch.VideoURL.Set {
		movie.VideoURL = emptyToNil(patch.VideoURL.Ptr())
		if movie.VideoURL != nil {
			if err := validation.Validator().Var(*movie.VideoURL, "url"); err != nil {
				return nil, apperror.ValidationFailed("videoUrl", "videoUrl must be a valid URL")
			}
		}
	}
	if patch.AvailabilityStart.Set {
		if movie.AvailabilityStart, err = parseBound("availabilityStart", patch.AvailabilityStart); err != nil {
			return nil, err
		}
	}
	if patch.AvailabilityEnd.Set {
		if movie.AvailabilityEnd, err = parseBound("availabilityEnd", patch.AvailabilityEnd); err != nil {
			return nil, err
		}
	}
	if err := checkWindow(movie.AvailabilityStart, movie.AvailabilityEnd); err != nil {
		return nil, err
	}

	if err := s.movies.Update(ctx, movie); err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/catalog: updating movie %s: %w", id, err)
	}

	s.logger.Info("movie updated", slog.String("movieID", movie.ID))
	return movie, nil
}

// Delete removes a title; its watch history goes with it.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.movies.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/catalog: deleting movie %s: %w", id, err)
	}
	s.logger.Info("movie deleted", slog.String("movieID", id))
	return nil
}

// applyText sets *dst from a patched text field; null empties it.
func applyText(dst *string, v model.Optional[string]) {
	if !v.Set {
		return
	}
	*dst = v.Value
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
