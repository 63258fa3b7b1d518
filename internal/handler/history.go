package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/auth"
	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/service"
)

type HistoryService interface {
	Record(ctx context.Context, userID string, in service.RecordInput) (*model.WatchEvent, error)
	List(ctx context.Context, userID string) ([]model.HistoryEntry, error)
}

// HistoryHandler serves the caller's own watch history. The user id always
// comes from the verified token, never from the request.
type HistoryHandler struct {
	history HistoryService
	logger  *slog.Logger
}

func NewHistoryHandler(history HistoryService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, logger: logger}
}

// HandleList returns the caller's history, newest first.
//
// HTTP: GET /api/history (authenticated)
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated("authentication required"))
		return
	}

	entries, err := h.history.List(r.Context(), p.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, entries)
}

// HandleRecord notes that the caller watched a title. Watching it again
// refreshes the timestamp of the existing entry.
//
// HTTP: POST /api/history (authenticated)
// REQUEST BODY: {"movieId": "..."}
func (h *HistoryHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated("authentication required"))
		return
	}

	var in service.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	event, err := h.history.Record(r.Context(), p.UserID, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, event)
}
