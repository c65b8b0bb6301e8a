// Package users stores operator accounts and issues bearer tokens.
package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserExists      = errors.New("users: username or email already exists")
	ErrUserNotFound    = errors.New("users: not found")
	ErrInvalidPassword = errors.New("users: invalid password")
	ErrInvalidToken    = errors.New("users: invalid or expired token")
)

// User is an operator account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// Repository persists users. Username and email are each unique.
type Repository interface {
	// FindByIdentifier matches either the username or the email.
	FindByIdentifier(ctx context.Context, identifier string) (User, error)
	Create(ctx context.Context, u User) (User, error)
}
