package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/repository"
)

var _ repository.StatsRepository = (*StatsStore)(nil)

// StatsStore answers the count-based dashboard queries.
type StatsStore struct {
	db *DB
}

func (s *StatsStore) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, "users")
}

func (s *StatsStore) CountMovies(ctx context.Context) (int, error) {
	return s.count(ctx, "movies")
}

// count is only ever called with the constant table names above.
func (s *StatsStore) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.queryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlstore: counting %s: %w", table, err)
	}
	return n, nil
}

// WatchTimesSince returns raw timestamps; grouping by month happens in Go
// so the query stays identical across dialects.
func (s *StatsStore) WatchTimesSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := s.db.queryContext(ctx,
		`SELECT watched_at FROM watch_history WHERE watched_at >= ? ORDER BY watched_at`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing watch times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning watch time: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating watch times: %w", err)
	}
	return times, nil
}

func (s *StatsStore) TopWatched(ctx context.Context, limit int) ([]model.MovieWatchCount, error) {
	rows, err := s.db.queryContext(ctx,
		`SELECT m.title, COUNT(h.id) AS views
		 FROM watch_history h
		 JOIN movies m ON m.id = h.movie_id
		 GROUP BY m.id, m.title
		 ORDER BY views DESC, m.title ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: ranking movies: %w", err)
	}
	defer rows.Close()

	top := []model.MovieWatchCount{}
	for rows.Next() {
		var c model.MovieWatchCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning ranking row: %w", err)
		}
		top = append(top, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating ranking: %w", err)
	}
	return top, nil
}
