// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the authorization level of an account. There are exactly two.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a registered account.
//
// Email is unique across all accounts (enforced by the users.email UNIQUE
// constraint, not only by the service pre-check). PasswordHash is the bcrypt
// output and is never serialised: the `json:"-"` tag keeps it out of every
// response, including admin listings.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin is shorthand for u.Role == RoleAdmin.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
