package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/model"
)

// contextKey is unexported so no other package can read or shadow the
// principal stored in a request context.
type contextKey string

const principalKey contextKey = "principal"

// Access is the requirement a route declares in the route table.
type Access int

const (
	// Public routes never look at the Authorization header.
	Public Access = iota
	// Authenticated routes need a valid token for an existing account.
	Authenticated
	// Admin routes additionally need the ADMIN role in the token.
	Admin
)

func (a Access) String() string {
	switch a {
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	default:
		return "public"
	}
}

// Verifier turns a raw bearer token into a Principal. The service-layer
// implementation also checks that the account still exists.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*Principal, error)
}

// ErrorWriter renders an error response. The server passes the handler
// package's writer so guard failures share the API's error shape.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Guard returns the middleware enforcing access. It is the only place
// authentication and role checks happen; handlers just read the Principal.
//
// Chi applies middlewares in a chain: req → Guard → Handler → Guard → resp
func Guard(v Verifier, access Access, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if access == Public {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeErr(w, r, apperror.Unauthenticated("authentication required"))
				return
			}

			principal, err := v.VerifyToken(r.Context(), token)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			if access == Admin {
				if err := RequireRole(principal, model.RoleAdmin); err != nil {
					writeErr(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole fails with Forbidden unless the principal holds role. The
// check uses the role embedded in the token, not a fresh database read.
func RequireRole(p *Principal, role model.Role) error {
	if p == nil {
		return apperror.Unauthenticated("authentication required")
	}
	if p.Role != role {
		return apperror.Forbidden("this action requires the " + string(role) + " role")
	}
	return nil
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated caller. It returns
// (nil, false) on public routes.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}
