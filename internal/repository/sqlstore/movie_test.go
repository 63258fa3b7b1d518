package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/model"
)

func createTestMovie(t *testing.T, db *DB, m model.Movie) *model.Movie {
	t.Helper()
	if err := db.Movies().Create(context.Background(), &m); err != nil {
		t.Fatalf("failed to create test movie %q: %v", m.Title, err)
	}
	return &m
}

func tmdbID(id int64) *int64 { return &id }

func titles(movies []model.Movie) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = m.Title
	}
	return out
}

func TestMovieCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	video := "https://www.youtube.com/watch?v=abc"
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	created := createTestMovie(t, db, model.Movie{
		TMDBID:            tmdbID(550),
		Title:             "Fight Club",
		Overview:          "An insomniac office worker...",
		PosterPath:        "/poster.jpg",
		ReleaseDate:       "1999-10-15",
		VoteAverage:       8.4,
		Genres:            "Drama,Thriller",
		IsFeatured:        true,
		VideoURL:          &video,
		AvailabilityStart: &start,
	})
	if created.ID == "" {
		t.Fatal("Create() did not set ID")
	}

	got, err := db.Movies().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Fight Club" || got.Genres != "Drama,Thriller" || !got.IsFeatured {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.TMDBID == nil || *got.TMDBID != 550 {
		t.Errorf("TMDBID = %v, want 550", got.TMDBID)
	}
	if got.VideoURL == nil || *got.VideoURL != video {
		t.Errorf("VideoURL = %v, want %q", got.VideoURL, video)
	}
	if got.AvailabilityStart == nil || !got.AvailabilityStart.Equal(start) {
		t.Errorf("AvailabilityStart = %v, want %v", got.AvailabilityStart, start)
	}
	if got.AvailabilityEnd != nil {
		t.Errorf("AvailabilityEnd = %v, want nil", got.AvailabilityEnd)
	}
}

func TestMovieCreate_ManualEntriesWithoutTMDBID(t *testing.T) {
	db := newTestDB(t)

	// NULL tmdb_id values never collide with each other.
	createTestMovie(t, db, model.Movie{Title: "Home Video 1"})
	createTestMovie(t, db, model.Movie{Title: "Home Video 2"})
}

func TestMovieCreate_DuplicateTMDBID(t *testing.T) {
	db := newTestDB(t)
	createTestMovie(t, db, model.Movie{TMDBID: tmdbID(42), Title: "First"})

	err := db.Movies().Create(context.Background(), &model.Movie{TMDBID: tmdbID(42), Title: "Second"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() duplicate tmdb id error = %v, want ErrConflict", err)
	}

	_, total, _ := db.Movies().List(context.Background(), model.MovieFilter{SortBy: model.SortLatest, Page: 1, Limit: 10})
	if total != 1 {
		t.Errorf("total = %d after duplicate insert, want 1", total)
	}
}

func TestMovieFindByTMDBID(t *testing.T) {
	db := newTestDB(t)
	created := createTestMovie(t, db, model.Movie{TMDBID: tmdbID(603), Title: "The Matrix"})

	got, err := db.Movies().FindByTMDBID(context.Background(), 603)
	if err != nil {
		t.Fatalf("FindByTMDBID() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}

	_, err = db.Movies().FindByTMDBID(context.Background(), 999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindByTMDBID() unknown error = %v, want ErrNotFound", err)
	}
}

func TestMovieGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Movies().GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func seedCatalog(t *testing.T, db *DB) {
	t.Helper()
	createTestMovie(t, db, model.Movie{Title: "Alien", Genres: "Horror,Science Fiction", VoteAverage: 8.1, ReleaseDate: "1979-05-25"})
	createTestMovie(t, db, model.Movie{Title: "Casablanca", Genres: "Drama,Romance", VoteAverage: 8.5, ReleaseDate: "1942-11-26"})
	createTestMovie(t, db, model.Movie{Title: "Blade Runner", Genres: "Science Fiction,Drama", VoteAverage: 7.9, ReleaseDate: "1982-06-25"})
	createTestMovie(t, db, model.Movie{Title: "Dune", Genres: "Science Fiction,Adventure", VoteAverage: 7.8, ReleaseDate: "2021-09-15"})
	createTestMovie(t, db, model.Movie{Title: "100% Wolf", Genres: "Animation", VoteAverage: 5.9, ReleaseDate: "2020-06-25"})
}

func TestMovieList_Sorting(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)

	tests := []struct {
		sort model.SortKey
		want []string
	}{
		{model.SortLatest, []string{"100% Wolf", "Dune", "Blade Runner", "Casablanca", "Alien"}},
		{model.SortOldest, []string{"Alien", "Casablanca", "Blade Runner", "Dune", "100% Wolf"}},
		{model.SortAlphabetical, []string{"100% Wolf", "Alien", "Blade Runner", "Casablanca", "Dune"}},
		{model.SortPopular, []string{"Casablanca", "Alien", "Blade Runner", "Dune", "100% Wolf"}},
		{model.SortReleaseDate, []string{"Dune", "100% Wolf", "Blade Runner", "Alien", "Casablanca"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			movies, total, err := db.Movies().List(context.Background(), model.MovieFilter{
				SortBy: tt.sort, Page: 1, Limit: 10,
			})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != 5 {
				t.Errorf("total = %d, want 5", total)
			}
			got := titles(movies)
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("List() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMovieList_SearchAndGenre(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)

	tests := []struct {
		name   string
		filter model.MovieFilter
		want   int
	}{
		{"search is case-insensitive", model.MovieFilter{Search: "BLADE"}, 1},
		{"search matches substrings", model.MovieFilter{Search: "ne"}, 2}, // Dune, Blade Runner
		{"search escapes percent", model.MovieFilter{Search: "100%"}, 1},
		{"percent alone is literal", model.MovieFilter{Search: "%"}, 1},
		{"genre substring", model.MovieFilter{Genre: "science"}, 3},
		{"genre and search combine", model.MovieFilter{Genre: "drama", Search: "casa"}, 1},
		{"no match", model.MovieFilter{Search: "zzz"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.filter
			f.SortBy, f.Page, f.Limit = model.SortLatest, 1, 20
			movies, total, err := db.Movies().List(context.Background(), f)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != tt.want || len(movies) != tt.want {
				t.Errorf("List() total=%d len=%d, want %d (%v)", total, len(movies), tt.want, titles(movies))
			}
		})
	}
}

func TestMovieList_SearchFoldsNonASCII(t *testing.T) {
	db := newTestDB(t)
	createTestMovie(t, db, model.Movie{Title: "ÉLITE SQUAD", Genres: "Ação,Drama"})
	createTestMovie(t, db, model.Movie{Title: "Heat", Genres: "Crime"})

	tests := []struct {
		name   string
		filter model.MovieFilter
	}{
		{"exact accented capitals", model.MovieFilter{Search: "ÉLITE"}},
		{"lowercase accented", model.MovieFilter{Search: "élite"}},
		{"ascii part", model.MovieFilter{Search: "squad"}},
		{"accented genre", model.MovieFilter{Genre: "AÇÃO"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.filter
			f.SortBy, f.Page, f.Limit = model.SortLatest, 1, 20
			movies, total, err := db.Movies().List(context.Background(), f)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != 1 || len(movies) != 1 || movies[0].Title != "ÉLITE SQUAD" {
				t.Errorf("List() total=%d titles=%v, want [ÉLITE SQUAD]", total, titles(movies))
			}
		})
	}
}

func TestMovieList_AlphabeticalIgnoresCase(t *testing.T) {
	db := newTestDB(t)
	for _, title := range []string{"Banana", "ÉLITE SQUAD", "apple", "éclair"} {
		createTestMovie(t, db, model.Movie{Title: title})
	}

	movies, _, err := db.Movies().List(context.Background(), model.MovieFilter{
		SortBy: model.SortAlphabetical, Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	// Folded titles compare by code point: "é" sorts after ASCII letters.
	want := []string{"apple", "Banana", "éclair", "ÉLITE SQUAD"}
	got := titles(movies)
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("alphabetical order = %v, want %v", got, want)
		}
	}
}

func TestMovieList_Pagination(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	seen := map[string]bool{}
	for page := 1; page <= 3; page++ {
		movies, total, err := db.Movies().List(ctx, model.MovieFilter{
			SortBy: model.SortAlphabetical, Page: page, Limit: 2,
		})
		if err != nil {
			t.Fatalf("List(page %d) error = %v", page, err)
		}
		if total != 5 {
			t.Errorf("page %d total = %d, want 5", page, total)
		}
		wantLen := 2
		if page == 3 {
			wantLen = 1
		}
		if len(movies) != wantLen {
			t.Errorf("page %d returned %d movies, want %d", page, len(movies), wantLen)
		}
		for _, m := range movies {
			if seen[m.ID] {
				t.Errorf("movie %q appeared on more than one page", m.Title)
			}
			seen[m.ID] = true
		}
	}

	movies, total, err := db.Movies().List(ctx, model.MovieFilter{SortBy: model.SortLatest, Page: 4, Limit: 2})
	if err != nil {
		t.Fatalf("List(page past end) error = %v", err)
	}
	if len(movies) != 0 || total != 5 {
		t.Errorf("page past end: len=%d total=%d, want 0 and 5", len(movies), total)
	}
	if movies == nil {
		t.Error("page past end should return an empty slice, not nil")
	}
}

func TestMovieUpdate(t *testing.T) {
	db := newTestDB(t)
	m := createTestMovie(t, db, model.Movie{Title: "Draft", VoteAverage: 1})
	originalUpdated := m.UpdatedAt

	m.Title = "Final"
	m.VoteAverage = 9.1
	m.VideoURL = nil
	if err := db.Movies().Update(context.Background(), m); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := db.Movies().GetByID(context.Background(), m.ID)
	if got.Title != "Final" || got.VoteAverage != 9.1 {
		t.Errorf("after Update: %+v", got)
	}
	if got.UpdatedAt.Before(originalUpdated) {
		t.Errorf("UpdatedAt went backwards: %v < %v", got.UpdatedAt, originalUpdated)
	}
	if !got.CreatedAt.Equal(m.CreatedAt) {
		t.Error("Update() must not change CreatedAt")
	}
}

func TestMovieUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Movies().Update(context.Background(), &model.Movie{ID: "ghost", Title: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestMovieDelete_CascadesHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "viewer@example.com")
	m := createTestMovie(t, db, model.Movie{Title: "Gone Soon"})

	if err := db.History().Upsert(ctx, &model.WatchEvent{UserID: user.ID, MovieID: m.ID}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := db.Movies().Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	entries, err := db.History().ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("history still has %d entries after movie delete", len(entries))
	}

	if err := db.Movies().Delete(ctx, m.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestContainsPattern(t *testing.T) {
	tests := map[string]string{
		"Dune":   "%dune%",
		"100%":   `%100\%%`,
		"a_b":    `%a\_b%`,
		`back\s`: `%back\\s%`,
	}
	for in, want := range tests {
		if got := containsPattern(in); got != want {
			t.Errorf("containsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}
