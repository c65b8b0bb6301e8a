package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// SQLRepository stores users through database/sql with the lib/pq driver.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository wraps an open *sql.DB.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	if db == nil {
		panic("users: sql db required")
	}
	return &SQLRepository{db: db}
}

// OpenPostgres opens a lib/pq connection pool and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("users: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("users: ping postgres: %w", err)
	}
	return db, nil
}

func (r *SQLRepository) FindByIdentifier(ctx context.Context, identifier string) (User, error) {
	query := `
		SELECT id, username, email, password_hash, is_admin, created_at
		FROM users
		WHERE username = $1 OR email = $1
		LIMIT 1
	`
	var u User
	err := r.db.QueryRowContext(ctx, query, identifier).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("users: find %q: %w", identifier, err)
	}
	return u, nil
}

func (r *SQLRepository) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	query := `
		INSERT INTO users (id, username, email, password_hash, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, u.ID, u.Username, u.Email, u.PasswordHash, u.IsAdmin).Scan(&u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("users: insert: %w", err)
	}
	return u, nil
}
