package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/muvance-crm/pkg/logging"
)

const defaultTokenTTL = time.Hour

// Claims is the bearer token payload.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// NewUser is an add-user request. New accounts are never admins.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Service authenticates operators and manages accounts.
type Service struct {
	repo   Repository
	secret []byte
	ttl    time.Duration
	cost   int
	logger *logging.Logger
}

// NewService signs tokens with secret (HS256).
func NewService(repo Repository, secret string, ttl time.Duration, logger *logging.Logger) *Service {
	if repo == nil {
		panic("users: repository required")
	}
	if strings.TrimSpace(secret) == "" {
		panic("users: jwt secret required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, secret: []byte(secret), ttl: ttl, cost: bcrypt.DefaultCost, logger: logger}
}

// Login checks identifier (username or email) and password and returns a
// signed token.
func (s *Service) Login(ctx context.Context, identifier, password string, now time.Time) (string, User, error) {
	u, err := s.repo.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return "", User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", User{}, ErrInvalidPassword
	}
	token, err := s.Issue(u, now)
	if err != nil {
		return "", User{}, err
	}
	s.logger.Info("operator logged in", "user_id", u.ID, "username", u.Username)
	return token, u, nil
}

// Issue signs a token for u valid from now for the configured TTL.
func (s *Service) Issue(u User, now time.Time) (string, error) {
	claims := Claims{
		ID:       u.ID,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("users: sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature and expiry.
func (s *Service) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AddUser creates a non-admin account.
func (s *Service) AddUser(ctx context.Context, in NewUser) (User, error) {
	return s.create(ctx, in, false)
}

func (s *Service) create(ctx context.Context, in NewUser, admin bool) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	u, err := s.repo.Create(ctx, User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		IsAdmin:      admin,
	})
	if err != nil {
		return User{}, err
	}
	s.logger.Info("user created", "user_id", u.ID, "username", u.Username, "is_admin", admin)
	return u, nil
}

// EnsureDefaultAdmin creates the bootstrap admin when no account with that
// username exists. An empty password skips seeding.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, username, email, password string) error {
	if strings.TrimSpace(password) == "" {
		s.logger.Warn("default admin password not set, skipping admin seeding")
		return nil
	}
	if _, err := s.repo.FindByIdentifier(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}
	_, err := s.create(ctx, NewUser{Username: username, Email: email, Password: password}, true)
	if errors.Is(err, ErrUserExists) {
		return nil
	}
	return err
}
