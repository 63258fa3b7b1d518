// Package service holds the business logic: authentication, catalog,
// provider sync, watch history, account administration and stats.
//
// AuthService sits between the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// It also implements auth.Verifier, so the route guard resolves bearer
// tokens through the same rules as everything else.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/auth"
	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/repository"
	"github.com/sakif/movieku/internal/validation"
)

var _ auth.Verifier = (*AuthService)(nil)

// AuthService handles registration, login and token verification.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write account records
//   - tokens     *auth.TokenService         → generate/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult bundles the account and its freshly issued token so the
// handler can respond in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// normaliseEmail makes the unique key case-insensitive.
func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a USER account and signs the caller in.
//
// The FindByEmail pre-check only gives a friendlier fast path; the UNIQUE
// constraint on users.email decides concurrent signups, and the loser gets
// the same Conflict from the store.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = normaliseEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, apperror.Conflict("email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.issue(user)
}

// Login checks credentials. Unknown email and wrong password produce the
// same InvalidCredentials error, and the unknown-email path still pays for
// one bcrypt comparison so the two cannot be told apart by timing.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normaliseEmail(in.Email)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(in.Password)
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", in.Email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login rejected", slog.String("userID", user.ID))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// VerifyToken validates a bearer token and confirms its account still exists.
// The returned Principal carries the role embedded in the token, so a role
// change takes effect when the caller next signs in.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*auth.Principal, error) {
	if token == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}

	p, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Debug("token rejected", slog.String("error", err.Error()))
		return nil, apperror.Unauthenticated("invalid or expired token")
	}

	if _, err := s.users.GetByID(ctx, p.UserID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("account no longer exists")
		}
		return nil, fmt.Errorf("service/auth: loading token subject: %w", err)
	}

	return p, nil
}

// Me returns the caller's own account.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// EnsureAdmin makes sure an ADMIN account exists for email, creating it or
// promoting the existing account. An existing password is left untouched.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, name, password string) (*model.User, error) {
	email = normaliseEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.IsAdmin() {
			return user, nil
		}
		user.Role = model.RoleAdmin
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: promoting %s: %w", email, err)
		}
		s.logger.Info("bootstrap admin promoted", slog.String("userID", user.ID))
		return user, nil

	case errors.Is(err, apperror.ErrNotFound):
		in := RegisterInput{Email: email, Name: strings.TrimSpace(name), Password: password}
		if err := validation.Struct(&in); err != nil {
			return nil, err
		}
		hash, err := s.passwords.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("service/auth: hashing admin password: %w", err)
		}
		user = &model.User{Email: email, Name: in.Name, PasswordHash: hash, Role: model.RoleAdmin}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating admin: %w", err)
		}
		s.logger.Info("bootstrap admin created", slog.String("userID", user.ID))
		return user, nil

	default:
		return nil, fmt.Errorf("service/auth: looking up admin %s: %w", email, err)
	}
}
