package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/provider"
	"github.com/sakif/movieku/internal/service"
)

type CatalogService interface {
	List(ctx context.Context, q service.ListQuery) (*model.MoviePage, error)
	Get(ctx context.Context, id string) (*model.Movie, error)
	Create(ctx context.Context, in service.MovieInput) (*model.Movie, error)
	Update(ctx context.Context, id string, patch service.MoviePatch) (*model.Movie, error)
	Delete(ctx context.Context, id string) error
}

type SyncService interface {
	AddFromExternal(ctx context.Context, in service.AddFromExternalInput) (*model.Movie, error)
	BulkSyncPopular(ctx context.Context) (int, error)
	SearchExternal(ctx context.Context, query, page string) (*provider.ResultPage, error)
	ListExternalByCategory(ctx context.Context, category, page string) (*provider.ResultPage, error)
	GetExternalCredits(ctx context.Context, externalID string) (*provider.Credits, error)
	GetExternalMedia(ctx context.Context, externalID string) (*provider.Media, error)
}

// MovieHandler serves the catalog and the admin's provider tools.
type MovieHandler struct {
	catalog CatalogService
	sync    SyncService
	logger  *slog.Logger
}

func NewMovieHandler(catalog CatalogService, sync SyncService, logger *slog.Logger) *MovieHandler {
	return &MovieHandler{catalog: catalog, sync: sync, logger: logger}
}

// SyncResponse reports the outcome of a bulk sync.
type SyncResponse struct {
	Added   int    `json:"added"`
	Message string `json:"message"`
}

// HandleList returns one page of the catalog.
//
// HTTP: GET /api/movies?search=&genre=&sortBy=&page=&limit=
//
// RESPONSE FORMAT:
//
//	{"data": [...], "pagination": {"page":1,"limit":20,"total":42,"totalPages":3}}
func (h *MovieHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.catalog.List(r.Context(), service.ListQuery{
		Search: q.Get("search"),
		Genre:  q.Get("genre"),
		SortBy: q.Get("sortBy"),
		Page:   q.Get("page"),
		Limit:  q.Get("limit"),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// HandleGet returns a single title.
//
// HTTP: GET /api/movies/{id}
func (h *MovieHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	movie, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, movie)
}

// HandleCreate adds a title (admin).
//
// HTTP: POST /api/movies
//
// A body carrying "tmdbId" imports that title from the metadata provider;
// any other body is a hand-written entry:
//
//	{"tmdbId": 550, "availabilityStart": "2026-01-01"}
//	{"title": "Home Movie", "overview": "...", "videoUrl": "https://..."}
func (h *MovieHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, r, apperror.ValidationFailed("body", "request body is too large"))
			return
		}
		WriteError(w, r, apperror.ValidationFailed("body", "request body could not be read"))
		return
	}

	var probe struct {
		TMDBID json.RawMessage `json:"tmdbId"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		WriteError(w, r, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	var movie *model.Movie
	if len(probe.TMDBID) > 0 && !bytes.Equal(probe.TMDBID, []byte("null")) {
		var in service.AddFromExternalInput
		if err := json.Unmarshal(body, &in); err != nil {
			WriteError(w, r, apperror.ValidationFailed("tmdbId", "tmdbId must be a positive integer"))
			return
		}
		movie, err = h.sync.AddFromExternal(r.Context(), in)
	} else {
		var in service.MovieInput
		if err := json.Unmarshal(body, &in); err != nil {
			WriteError(w, r, apperror.ValidationFailed("body", "request body does not match a movie"))
			return
		}
		movie, err = h.catalog.Create(r.Context(), in)
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, movie)
}

// HandleUpdate applies a partial update (admin).
//
// HTTP: PUT /api/movies/{id}
//
// Only keys present in the body change. An explicit null clears optional
// fields: {"videoUrl": null, "availabilityEnd": null}.
func (h *MovieHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.MoviePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		WriteError(w, r, err)
		return
	}

	movie, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, movie)
}

// HandleDelete removes a title and its watch history (admin).
//
// HTTP: DELETE /api/movies/{id}
func (h *MovieHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "movie deleted"})
}

// HandleSyncPopular imports the provider's current popular titles (admin).
//
// HTTP: POST /api/movies/sync-tmdb
func (h *MovieHandler) HandleSyncPopular(w http.ResponseWriter, r *http.Request) {
	added, err := h.sync.BulkSyncPopular(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, SyncResponse{
		Added:   added,
		Message: fmt.Sprintf("synced %d new movies", added),
	})
}

// HandleSearchExternal searches the provider (admin).
//
// HTTP: GET /api/movies/tmdb/search?query=&page=
func (h *MovieHandler) HandleSearchExternal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.sync.SearchExternal(r.Context(), q.Get("query"), q.Get("page"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// HandleListExternal returns a provider listing (admin).
//
// HTTP: GET /api/movies/tmdb/list?category=&page=
func (h *MovieHandler) HandleListExternal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.sync.ListExternalByCategory(r.Context(), q.Get("category"), q.Get("page"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// HandleCredits returns cast and crew for a provider title.
//
// HTTP: GET /api/movies/tmdb/credits/{externalId}
func (h *MovieHandler) HandleCredits(w http.ResponseWriter, r *http.Request) {
	res, err := h.sync.GetExternalCredits(r.Context(), chi.URLParam(r, "externalId"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// HandleMedia returns videos and artwork for a provider title.
//
// HTTP: GET /api/movies/tmdb/media/{externalId}
func (h *MovieHandler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	res, err := h.sync.GetExternalMedia(r.Context(), chi.URLParam(r, "externalId"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
