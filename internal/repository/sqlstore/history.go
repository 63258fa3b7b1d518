package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/repository"
)

var _ repository.HistoryRepository = (*HistoryStore)(nil)

// HistoryStore persists watch events in the watch_history table.
type HistoryStore struct {
	db *DB
}

// Upsert records a watch in a single statement. The UNIQUE(user_id,
// movie_id) constraint turns a repeat into an update of watched_at, so
// concurrent repeats can never produce two rows. RETURNING hands back the
// id of the surviving row, which keeps its original id on a repeat.
func (s *HistoryStore) Upsert(ctx context.Context, event *model.WatchEvent) error {
	if event.WatchedAt.IsZero() {
		event.WatchedAt = now()
	}
	event.WatchedAt = event.WatchedAt.UTC()

	err := s.db.queryRowContext(ctx,
		`INSERT INTO watch_history (id, user_id, movie_id, watched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, movie_id) DO UPDATE SET watched_at = excluded.watched_at
		 RETURNING id`,
		xid.New().String(), event.UserID, event.MovieID, event.WatchedAt,
	).Scan(&event.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return s.missingParent(ctx, event)
		}
		return fmt.Errorf("sqlstore: upserting watch event: %w", err)
	}
	return nil
}

// missingParent names the row a failed foreign key points at. SQLite does
// not say which constraint failed, so the movie is looked up after the fact.
func (s *HistoryStore) missingParent(ctx context.Context, event *model.WatchEvent) error {
	var one int
	err := s.db.queryRowContext(ctx, `SELECT 1 FROM movies WHERE id = ?`, event.MovieID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperror.NotFound("movie", event.MovieID)
	case err != nil:
		return fmt.Errorf("sqlstore: checking movie %s: %w", event.MovieID, err)
	default:
		return apperror.NotFound("user", event.UserID)
	}
}

// ListByUser returns the user's history joined with each movie, most
// recently watched first.
func (s *HistoryStore) ListByUser(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	rows, err := s.db.queryContext(ctx,
		`SELECT h.id, h.user_id, h.movie_id, h.watched_at, `+movieColumnList("m.")+`
		 FROM watch_history h
		 JOIN movies m ON m.id = h.movie_id
		 WHERE h.user_id = ?
		 ORDER BY h.watched_at DESC, h.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing history for %s: %w", userID, err)
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var e model.HistoryEntry
		dest := append([]any{&e.ID, &e.UserID, &e.MovieID, &e.WatchedAt}, movieScanTargets(&e.Movie)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating history: %w", err)
	}
	return entries, nil
}
