package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/provider"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory implementations of the repository and provider
// interfaces. Each one can be told to fail through its err field so the
// service's error paths are reachable without a database.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("email already registered")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) List(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	for id, u := range f.users {
		if id != user.ID && u.Email == user.Email {
			return apperror.Conflict("email already registered")
		}
	}
	user.UpdatedAt = time.Now().UTC()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

// fakeMovieRepo stores movies by id and records the last filter List saw.
// List does not filter; tests that need filtering semantics run against
// the sqlite store instead.
type fakeMovieRepo struct {
	mu         sync.Mutex
	movies     map[string]*model.Movie
	nextID     int
	lastFilter model.MovieFilter
	creates    int
	err        error
	// createErr fails Create only, to simulate losing an insert race.
	createErr error
}

func newFakeMovieRepo() *fakeMovieRepo {
	return &fakeMovieRepo{movies: make(map[string]*model.Movie)}
}

func (f *fakeMovieRepo) Create(_ context.Context, movie *model.Movie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.createErr != nil {
		return f.createErr
	}
	if movie.TMDBID != nil {
		for _, m := range f.movies {
			if m.TMDBID != nil && *m.TMDBID == *movie.TMDBID {
				return apperror.Conflict("movie already exists in library")
			}
		}
	}
	f.nextID++
	f.creates++
	movie.ID = fmt.Sprintf("movie-%d", f.nextID)
	movie.CreatedAt = time.Now().UTC()
	movie.UpdatedAt = movie.CreatedAt
	stored := *movie
	f.movies[movie.ID] = &stored
	return nil
}

func (f *fakeMovieRepo) GetByID(_ context.Context, id string) (*model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.movies[id]
	if !ok {
		return nil, apperror.NotFound("movie", id)
	}
	c := *m
	return &c, nil
}

func (f *fakeMovieRepo) FindByTMDBID(_ context.Context, tmdbID int64) (*model.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range f.movies {
		if m.TMDBID != nil && *m.TMDBID == tmdbID {
			c := *m
			return &c, nil
		}
	}
	return nil, apperror.NotFound("movie", fmt.Sprint(tmdbID))
}

func (f *fakeMovieRepo) List(_ context.Context, filter model.MovieFilter) ([]model.Movie, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	out := make([]model.Movie, 0, len(f.movies))
	for _, m := range f.movies {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)
	return out[start:end], total, nil
}

func (f *fakeMovieRepo) Update(_ context.Context, movie *model.Movie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.movies[movie.ID]; !ok {
		return apperror.NotFound("movie", movie.ID)
	}
	stored := *movie
	f.movies[movie.ID] = &stored
	return nil
}

func (f *fakeMovieRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.movies[id]; !ok {
		return apperror.NotFound("movie", id)
	}
	delete(f.movies, id)
	return nil
}

// fakeHistoryRepo keys events by user+movie, mirroring the unique pair.
type fakeHistoryRepo struct {
	mu     sync.Mutex
	events map[string]*model.WatchEvent
	movies map[string]bool
	nextID int
	err    error
}

func newFakeHistoryRepo(movieIDs ...string) *fakeHistoryRepo {
	f := &fakeHistoryRepo{events: make(map[string]*model.WatchEvent), movies: make(map[string]bool)}
	for _, id := range movieIDs {
		f.movies[id] = true
	}
	return f
}

func (f *fakeHistoryRepo) Upsert(_ context.Context, event *model.WatchEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if !f.movies[event.MovieID] {
		return apperror.NotFound("movie", event.MovieID)
	}
	key := event.UserID + "/" + event.MovieID
	if existing, ok := f.events[key]; ok {
		existing.WatchedAt = event.WatchedAt
		event.ID = existing.ID
		return nil
	}
	f.nextID++
	event.ID = fmt.Sprintf("event-%d", f.nextID)
	stored := *event
	f.events[key] = &stored
	return nil
}

func (f *fakeHistoryRepo) ListByUser(_ context.Context, userID string) ([]model.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.HistoryEntry{}
	for _, e := range f.events {
		if e.UserID == userID {
			out = append(out, model.HistoryEntry{WatchEvent: *e, Movie: model.Movie{ID: e.MovieID}})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WatchedAt.After(out[j].WatchedAt) })
	return out, nil
}

type fakeStatsRepo struct {
	users, movies int
	times         []time.Time
	top           []model.MovieWatchCount
	since         time.Time
	topLimit      int
	err           error
}

func (f *fakeStatsRepo) CountUsers(context.Context) (int, error) { return f.users, f.err }

func (f *fakeStatsRepo) CountMovies(context.Context) (int, error) { return f.movies, f.err }

func (f *fakeStatsRepo) WatchTimesSince(_ context.Context, since time.Time) ([]time.Time, error) {
	f.since = since
	var out []time.Time
	for _, t := range f.times {
		if !t.Before(since) {
			out = append(out, t)
		}
	}
	return out, f.err
}

func (f *fakeStatsRepo) TopWatched(_ context.Context, limit int) ([]model.MovieWatchCount, error) {
	f.topLimit = limit
	return f.top[:min(limit, len(f.top))], f.err
}

// fakeProvider serves canned provider responses and counts calls.
type fakeProvider struct {
	mu       sync.Mutex
	details  map[int64]*provider.MovieDetails
	page     *provider.ResultPage
	credits  *provider.Credits
	videos   []provider.Video
	images   *provider.Images
	calls    map[string]int
	lastArgs []any
	err      error
	// mediaErr fails only Images, leaving Videos to succeed.
	mediaErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		details: make(map[int64]*provider.MovieDetails),
		page:    &provider.ResultPage{Page: 1, Results: []provider.MovieSummary{}},
		credits: &provider.Credits{Cast: []provider.CastMember{}, Crew: []provider.CrewMember{}},
		videos:  []provider.Video{},
		images:  &provider.Images{Backdrops: []provider.Image{}, Posters: []provider.Image{}},
		calls:   make(map[string]int),
	}
}

func (f *fakeProvider) record(name string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	f.lastArgs = args
}

func (f *fakeProvider) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeProvider) MovieDetails(_ context.Context, id int64) (*provider.MovieDetails, error) {
	f.record("details", id)
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.details[id]
	if !ok {
		return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "title not found at metadata provider"}
	}
	return d, nil
}

func (f *fakeProvider) Search(_ context.Context, query string, page int) (*provider.ResultPage, error) {
	f.record("search", query, page)
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func (f *fakeProvider) ListByCategory(_ context.Context, c provider.Category, page int) (*provider.ResultPage, error) {
	f.record("category", c, page)
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func (f *fakeProvider) Credits(_ context.Context, id int64) (*provider.Credits, error) {
	f.record("credits", id)
	if f.err != nil {
		return nil, f.err
	}
	return f.credits, nil
}

func (f *fakeProvider) Videos(_ context.Context, id int64) ([]provider.Video, error) {
	f.record("videos", id)
	if f.err != nil {
		return nil, f.err
	}
	return f.videos, nil
}

func (f *fakeProvider) Images(_ context.Context, id int64) (*provider.Images, error) {
	f.record("images", id)
	if f.err != nil {
		return nil, f.err
	}
	if f.mediaErr != nil {
		return nil, f.mediaErr
	}
	return f.images, nil
}
