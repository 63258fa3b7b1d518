package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/metrics"
	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/provider"
	"github.com/sakif/movieku/internal/repository"
)

// SyncService brings titles from the metadata provider into the catalog and
// proxies the provider's read endpoints for the admin UI.
type SyncService struct {
	movies   repository.MovieRepository
	provider provider.Provider
	logger   *slog.Logger
}

func NewSyncService(movies repository.MovieRepository, p provider.Provider, logger *slog.Logger) *SyncService {
	return &SyncService{movies: movies, provider: p, logger: logger}
}

// AddFromExternalInput imports one provider title with an optional
// availability window.
type AddFromExternalInput struct {
	TMDBID            int64                  `json:"tmdbId"`
	AvailabilityStart model.Optional[string] `json:"availabilityStart"`
	AvailabilityEnd   model.Optional[string] `json:"availabilityEnd"`
}

// AddFromExternal imports a provider title.
//
// Order matters: the local duplicate check runs before any provider call,
// so re-adding a known title costs one indexed lookup. The check and the
// insert are not atomic; two concurrent imports of the same id both pass
// the check, and the tmdb_id UNIQUE constraint turns the second insert into
// a Conflict.
func (s *SyncService) AddFromExternal(ctx context.Context, in AddFromExternalInput) (*model.Movie, error) {
	if in.TMDBID < 1 {
		return nil, apperror.ValidationFailed("tmdbId", "tmdbId must be a positive integer")
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

	if err := s.ensureAbsent(ctx, in.TMDBID); err != nil {
		return nil, err
	}

	details, err := s.provider.MovieDetails(ctx, in.TMDBID)
	if err != nil {
		return nil, err
	}

	id := in.TMDBID
	movie := &model.Movie{
		TMDBID:            &id,
		Title:             details.Title,
		Overview:          details.Overview,
		PosterPath:        details.PosterPath,
		BackdropPath:      details.BackdropPath,
		ReleaseDate:       details.ReleaseDate,
		VoteAverage:       details.VoteAverage,
		Genres:            details.GenreNames(),
		AvailabilityStart: start,
		AvailabilityEnd:   end,
	}
	if err := s.movies.Create(ctx, movie); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/sync: saving tmdb %d: %w", in.TMDBID, err)
	}

	metrics.TitlesSyncedTotal.WithLabelValues("single").Inc()
	s.logger.Info("title added from provider",
		slog.String("movieID", movie.ID),
		slog.Int64("tmdbID", in.TMDBID),
		slog.String("title", movie.Title),
	)
	return movie, nil
}

func (s *SyncService) ensureAbsent(ctx context.Context, tmdbID int64) error {
	_, err := s.movies.FindByTMDBID(ctx, tmdbID)
	switch {
	case err == nil:
		return apperror.Conflict("movie already exists in library")
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("service/sync: checking tmdb %d: %w", tmdbID, err)
	}
}

// BulkSyncPopular inserts every title on the first page of the provider's
// popular listing that the catalog does not have yet and returns how many
// were added. Listings carry no genre names, so genres stay empty. Titles
// already present, including ones another caller inserted mid-sync, are
// skipped.
func (s *SyncService) BulkSyncPopular(ctx context.Context) (int, error) {
	page, err := s.provider.ListByCategory(ctx, provider.CategoryPopular, 1)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, r := range page.Results {
		if err := s.ensureAbsent(ctx, r.ID); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				continue
			}
			return added, err
		}

		id := r.ID
		movie := &model.Movie{
			TMDBID:       &id,
			Title:        r.Title,
			Overview:     r.Overview,
			PosterPath:   r.PosterPath,
			BackdropPath: r.BackdropPath,
			ReleaseDate:  r.ReleaseDate,
			VoteAverage:  r.VoteAverage,
		}
		if err := s.movies.Create(ctx, movie); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				continue
			}
			return added, fmt.Errorf("service/sync: saving tmdb %d: %w", r.ID, err)
		}
		added++
	}

	metrics.TitlesSyncedTotal.WithLabelValues("bulk").Add(float64(added))
	s.logger.Info("popular titles synced",
		slog.Int("listed", len(page.Results)),
		slog.Int("added", added),
	)
	return added, nil
}

// SearchExternal searches the provider by title.
func (s *SyncService) SearchExternal(ctx context.Context, query, page string) (*provider.ResultPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("query", "query is required")
	}
	p, err := parsePositive("page", page, 1)
	if err != nil {
		return nil, err
	}
	return s.provider.Search(ctx, query, p)
}

// ListExternalByCategory returns one page of a provider listing.
func (s *SyncService) ListExternalByCategory(ctx context.Context, category, page string) (*provider.ResultPage, error) {
	c, ok := provider.ParseCategory(strings.TrimSpace(category))
	if !ok {
		return nil, apperror.InvalidArgument("category",
			"category must be one of popular, top_rated, upcoming, now_playing")
	}
	p, err := parsePositive("page", page, 1)
	if err != nil {
		return nil, err
	}
	return s.provider.ListByCategory(ctx, c, p)
}

func (s *SyncService) GetExternalCredits(ctx context.Context, externalID string) (*provider.Credits, error) {
	id, err := parseExternalID(externalID)
	if err != nil {
		return nil, err
	}
	return s.provider.Credits(ctx, id)
}

// GetExternalMedia fetches videos and artwork concurrently. Either call
// failing fails the whole request and cancels the other.
func (s *SyncService) GetExternalMedia(ctx context.Context, externalID string) (*provider.Media, error) {
	id, err := parseExternalID(externalID)
	if err != nil {
		return nil, err
	}

	var (
		videos []provider.Video
		images *provider.Images
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		videos, err = s.provider.Videos(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		images, err = s.provider.Images(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &provider.Media{
		Videos:    videos,
		Backdrops: images.Backdrops,
		Posters:   images.Posters,
	}, nil
}
