package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/model"
	"github.com/sakif/movieku/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore persists accounts in the users table.
type UserStore struct {
	db *DB
}

const userColumns = `id, email, name, password_hash, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. The users.email UNIQUE constraint is the
// authority on duplicates: two concurrent registrations for one email both
// pass any pre-check, and exactly one of them gets a Conflict here.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	t := now()
	user.ID = xid.New().String()
	user.CreatedAt = t
	user.UpdatedAt = t
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := s.db.execContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email already registered")
		}
		return fmt.Errorf("sqlstore: inserting user: %w", err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound if no user exists with that ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.db.queryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlstore: getting user %s: %w", id, err)
	}
	return u, nil
}

// FindByEmail looks a user up by the unique email key.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(s.db.queryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: "user not found with email " + email,
			}
		}
		return nil, fmt.Errorf("sqlstore: finding user by email: %w", err)
	}
	return u, nil
}

// List returns every user, newest first.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.queryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating users: %w", err)
	}
	return users, nil
}

// Update writes every mutable column. Moving to an email another account
// holds is a Conflict.
func (s *UserStore) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = now()

	res, err := s.db.execContext(ctx,
		`UPDATE users SET email = ?, name = ?, password_hash = ?, role = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email, user.Name, user.PasswordHash, user.Role, user.UpdatedAt, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email already registered")
		}
		return fmt.Errorf("sqlstore: updating user %s: %w", user.ID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// Delete removes a user; watch_history rows follow via ON DELETE CASCADE.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.execContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting user %s: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
