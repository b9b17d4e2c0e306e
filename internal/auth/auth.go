// Package auth issues and verifies login tokens for catalog users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dsjohal14/cinestack/internal/scope/db"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	// ErrInvalidToken is returned for malformed, expired or forged tokens
	ErrInvalidToken = errors.New("auth: invalid or expired token")
	// ErrWeakPassword is returned when a password is too short
	ErrWeakPassword = fmt.Errorf("auth: password must be at least %d characters", MinPasswordLength)
)

// Claims is the JWT payload; Subject carries the user id
type Claims struct {
	Role db.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service registers users and signs HS256 tokens
type Service struct {
	users  db.UserStore
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates an auth service backed by users
func NewService(users db.UserStore, secret string, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		logger: logger,
	}
}

// Register creates a user with role user and returns a token for it
func (s *Service) Register(ctx context.Context, email, password string) (db.User, string, error) {
	u, err := s.createUser(ctx, email, password, db.RoleUser)
	if err != nil {
		return db.User{}, "", err
	}

	token, err := s.Issue(u)
	if err != nil {
		return db.User{}, "", err
	}

	s.logger.Info().Str("user_id", u.ID).Msg("user registered")
	return u, token, nil
}

// Login checks credentials and returns a fresh token
func (s *Service) Login(ctx context.Context, email, password string) (db.User, string, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return db.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return db.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug().Str("user_id", u.ID).Msg("login rejected")
		return db.User{}, "", ErrInvalidCredentials
	}

	token, err := s.Issue(u)
	if err != nil {
		return db.User{}, "", err
	}
	return u, token, nil
}

// Issue signs a token for u
func (s *Service) Issue(u db.User) (string, error) {
	now := s.now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and checks its signature and expiry
func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate verifies a token and loads its user
func (s *Service) Authenticate(ctx context.Context, token string) (db.User, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return db.User{}, err
	}
	return s.users.GetUser(ctx, claims.Subject)
}

// EnsureAdmin creates an admin account unless the email is already taken.
// created is false when the account existed.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (u db.User, created bool, err error) {
	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return db.User{}, false, err
	}

	u, err = s.createUser(ctx, email, password, db.RoleAdmin)
	if errors.Is(err, db.ErrDuplicate) {
		existing, err := s.users.GetUserByEmail(ctx, email)
		return existing, false, err
	}
	if err != nil {
		return db.User{}, false, err
	}

	s.logger.Info().Str("user_id", u.ID).Msg("admin user created")
	return u, true, nil
}

func (s *Service) createUser(ctx context.Context, email, password string, role db.Role) (db.User, error) {
	if len(password) < MinPasswordLength {
		return db.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return db.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.users.CreateUser(ctx, db.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
}
