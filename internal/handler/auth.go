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

// AuthService is the part of service.AuthService the handlers call.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	Me(ctx context.Context, userID string) (*model.User, error)
}

// AuthHandler serves signup, login and the caller's own profile.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create a USER account and return {user, token}
//   - HandleLogin    → exchange email + password for {user, token}
//   - HandleMe       → return the currently signed-in account
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"email": "...", "name": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, res)
}

// HandleLogin signs a user in.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, res)
}

// HandleMe returns the signed-in account.
//
// HTTP: GET /api/auth/me (authenticated)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated("authentication required"))
		return
	}

	user, err := h.auth.Me(r.Context(), p.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, user)
}
