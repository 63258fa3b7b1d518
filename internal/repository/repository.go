// Package repository declares the storage contracts the services depend on.
//
// Uniqueness is a storage concern: implementations must enforce it with
// constraints and report a lost race as apperror.ErrConflict, so that a
// service-level pre-check is only ever an optimisation.
package repository

import (
	"context"
	"time"

	"github.com/sakif/movieku/internal/model"
)

type UserRepository interface {
	// Create assigns ID and timestamps. A taken email is a Conflict.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// FindByEmail is the find-by-unique-key lookup; NotFound when absent.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

type MovieRepository interface {
	// Create assigns ID and timestamps. A taken TMDB id is a Conflict.
	Create(ctx context.Context, movie *model.Movie) error
	GetByID(ctx context.Context, id string) (*model.Movie, error)
	// FindByTMDBID is the find-by-unique-key lookup; NotFound when absent.
	FindByTMDBID(ctx context.Context, tmdbID int64) (*model.Movie, error)
	// List returns one page matching filter and the total match count.
	List(ctx context.Context, filter model.MovieFilter) ([]model.Movie, int, error)
	Update(ctx context.Context, movie *model.Movie) error
	// Delete removes the movie and, by cascade, its watch events.
	Delete(ctx context.Context, id string) error
}

type HistoryRepository interface {
	// Upsert inserts the event or, when the (user, movie) pair exists,
	// moves its WatchedAt forward. event is filled with the stored row.
	// An unknown movie is NotFound.
	Upsert(ctx context.Context, event *model.WatchEvent) error
	// ListByUser returns the user's events with their movies, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.HistoryEntry, error)
}

type StatsRepository interface {
	CountUsers(ctx context.Context) (int, error)
	CountMovies(ctx context.Context) (int, error)
	// WatchTimesSince returns the timestamps of watch events at or after since.
	WatchTimesSince(ctx context.Context, since time.Time) ([]time.Time, error)
	// TopWatched returns the movies with the most watch events.
	TopWatched(ctx context.Context, limit int) ([]model.MovieWatchCount, error)
}
