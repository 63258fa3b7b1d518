package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/repository"
)

var _ repository.MovieRepository = (*MovieStore)(nil)

// MovieStore persists catalog titles in the movies table.
type MovieStore struct {
	db *DB
}

// movieColumnList is the SELECT list in scanMovie order. prefix qualifies
// each column for joins ("m.").
func movieColumnList(prefix string) string {
	cols := []string{
		"id", "tmdb_id", "title", "overview", "poster_path", "backdrop_path",
		"release_date", "vote_average", "genres", "is_featured", "video_url",
		"availability_start", "availability_end", "created_at", "updated_at",
	}
	if prefix == "" {
		return strings.Join(cols, ", ")
	}
	for i, c := range cols {
		cols[i] = prefix + c
	}
	return strings.Join(cols, ", ")
}

// movieScanTargets returns pointers into m in movieColumnList order.
func movieScanTargets(m *model.Movie) []any {
	return []any{
		&m.ID, &m.TMDBID, &m.Title, &m.Overview, &m.PosterPath, &m.BackdropPath,
		&m.ReleaseDate, &m.VoteAverage, &m.Genres, &m.IsFeatured, &m.VideoURL,
		&m.AvailabilityStart, &m.AvailabilityEnd, &m.CreatedAt, &m.UpdatedAt,
	}
}

func scanMovie(row interface{ Scan(...any) error }) (*model.Movie, error) {
	var m model.Movie
	if err := row.Scan(movieScanTargets(&m)...); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a movie. The tmdb_id UNIQUE constraint decides races
// between two admins adding the same external title: the loser gets a
// Conflict, never a second row.
func (s *MovieStore) Create(ctx context.Context, movie *model.Movie) error {
	t := now()
	movie.ID = xid.New().String()
	movie.CreatedAt = t
	movie.UpdatedAt = t

	_, err := s.db.execContext(ctx,
		`INSERT INTO movies (`+movieColumnList("")+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		movie.ID, movie.TMDBID, movie.Title, movie.Overview, movie.PosterPath, movie.BackdropPath,
		movie.ReleaseDate, movie.VoteAverage, movie.Genres, movie.IsFeatured, movie.VideoURL,
		utcPtr(movie.AvailabilityStart), utcPtr(movie.AvailabilityEnd), movie.CreatedAt, movie.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("movie already exists in library")
		}
		return fmt.Errorf("sqlstore: inserting movie: %w", err)
	}
	return nil
}

func (s *MovieStore) GetByID(ctx context.Context, id string) (*model.Movie, error) {
	m, err := scanMovie(s.db.queryRowContext(ctx,
		`SELECT `+movieColumnList("")+` FROM movies WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("movie", id)
		}
		return nil, fmt.Errorf("sqlstore: getting movie %s: %w", id, err)
	}
	return m, nil
}

// FindByTMDBID looks a movie up by its external provider id.
func (s *MovieStore) FindByTMDBID(ctx context.Context, tmdbID int64) (*model.Movie, error) {
	m, err := scanMovie(s.db.queryRowContext(ctx,
		`SELECT `+movieColumnList("")+` FROM movies WHERE tmdb_id = ?`, tmdbID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("movie", "tmdb:"+strconv.FormatInt(tmdbID, 10))
		}
		return nil, fmt.Errorf("sqlstore: finding movie by tmdb id %d: %w", tmdbID, err)
	}
	return m, nil
}

// orderClause maps a sort key to its ORDER BY. The trailing id makes ties
// deterministic so consecutive pages never overlap. Alphabetical order
// compares case-folded titles so both dialects agree.
func (s *MovieStore) orderClause(key model.SortKey) string {
	switch key {
	case model.SortPopular:
		return "vote_average DESC, id DESC"
	case model.SortOldest:
		return "created_at ASC, id ASC"
	case model.SortAlphabetical:
		return s.db.fold("title") + " ASC, id ASC"
	case model.SortReleaseDate:
		return "release_date DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

// List returns one page of movies matching filter plus the total number
// of matches. Search and genre are case-insensitive substring matches.
// The filter is expected to be normalised by the caller (page ≥ 1, limit ≥ 1).
func (s *MovieStore) List(ctx context.Context, filter model.MovieFilter) ([]model.Movie, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Search != "" {
		where = append(where, s.db.fold("title")+` LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(filter.Search))
	}
	if filter.Genre != "" {
		where = append(where, s.db.fold("genres")+` LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(filter.Genre))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.queryRowContext(ctx, `SELECT COUNT(*) FROM movies`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlstore: counting movies: %w", err)
	}

	order := s.orderClause(filter.SortBy)

	pageArgs := append(append([]any{}, args...), filter.Limit, filter.Offset())
	rows, err := s.db.queryContext(ctx,
		`SELECT `+movieColumnList("")+` FROM movies`+whereSQL+
			` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		pageArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlstore: listing movies: %w", err)
	}
	defer rows.Close()

	movies := make([]model.Movie, 0, filter.Limit)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlstore: scanning movie row: %w", err)
		}
		movies = append(movies, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlstore: iterating movies: %w", err)
	}

	return movies, total, nil
}

func (s *MovieStore) Update(ctx context.Context, movie *model.Movie) error {
	movie.UpdatedAt = now()

	res, err := s.db.execContext(ctx,
		`UPDATE movies SET
			tmdb_id = ?, title = ?, overview = ?, poster_path = ?, backdrop_path = ?,
			release_date = ?, vote_average = ?, genres = ?, is_featured = ?, video_url = ?,
			availability_start = ?, availability_end = ?, updated_at = ?
		 WHERE id = ?`,
		movie.TMDBID, movie.Title, movie.Overview, movie.PosterPath, movie.BackdropPath,
		movie.ReleaseDate, movie.VoteAverage, movie.Genres, movie.IsFeatured, movie.VideoURL,
		utcPtr(movie.AvailabilityStart), utcPtr(movie.AvailabilityEnd), movie.UpdatedAt,
		movie.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("movie already exists in library")
		}
		return fmt.Errorf("sqlstore: updating movie %s: %w", movie.ID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("movie", movie.ID)
	}
	return nil
}

// Delete removes a movie; its watch_history rows go with it (ON DELETE CASCADE).
func (s *MovieStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.execContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting movie %s: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("movie", id)
	}
	return nil
}

// containsPattern builds a LIKE pattern matching s anywhere, with LIKE's
// own wildcards in s escaped.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
