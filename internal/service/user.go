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

// UserService is account administration for admins.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{users: users, passwords: passwords, logger: logger}
}

// CreateUserInput is an admin-created account. Role defaults to USER.
type CreateUserInput struct {
	Name     string     `json:"name" validate:"required,max=100"`
	Email    string     `json:"email" validate:"required,email,max=254"`
	Password string     `json:"password" validate:"required,min=6,max=72"`
	Role     model.Role `json:"role"`
}

// UpdateUserInput changes only the fields that are present.
type UpdateUserInput struct {
	Name     *string     `json:"name" validate:"omitempty,max=100"`
	Email    *string     `json:"email" validate:"omitempty,email,max=254"`
	Role     *model.Role `json:"role"`
	Password *string     `json:"password" validate:"omitempty,min=6,max=72"`
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}
	return users, nil
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normaliseEmail(in.Email)
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, apperror.ValidationFailed("role", "role must be USER or ADMIN")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/user: hashing password: %w", err)
	}

	user := &model.User{Name: in.Name, Email: in.Email, PasswordHash: hash, Role: in.Role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/user: creating user: %w", err)
	}

	s.logger.Info("user created by admin",
		slog.String("userID", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Update applies a partial change. A new password is re-hashed; a role change
// reaches the account's tokens only after they are reissued.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*model.User, error) {
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name must not be empty")
		}
		user.Name = name
	}
	if in.Email != nil {
		email := normaliseEmail(*in.Email)
		if email == "" {
			return nil, apperror.ValidationFailed("email", "email must not be empty")
		}
		user.Email = email
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperror.ValidationFailed("role", "role must be USER or ADMIN")
		}
		user.Role = *in.Role
	}
	if in.Password != nil {
		if len(*in.Password) < 6 {
			return nil, apperror.ValidationFailed("password", "password must be at least 6 characters")
		}
		hash, err := s.passwords.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("service/user: hashing password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/user: updating user %s: %w", id, err)
	}

	s.logger.Info("user updated by admin", slog.String("userID", user.ID))
	return user, nil
}

// Delete removes the account and, through the store's cascade, its history.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/user: deleting user %s: %w", id, err)
	}
	s.logger.Info("user deleted by admin", slog.String("userID", id))
	return nil
}
