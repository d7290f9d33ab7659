// Package auth signs users up, logs them in and turns bearer tokens into a
// history.Identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidSignup      = errors.New("invalid signup")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// DefaultTokenTTL is used when the service is created without a TTL.
const DefaultTokenTTL = 30 * 24 * time.Hour

// UserStore is the account storage auth needs. *store.DB satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*store.User, error)
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
}

// Claims are the JWT claims of a signed-in user.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Token is an issued bearer token.
type Token struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service issues and validates tokens.
type Service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates an auth service signing HS256 tokens with secret.
func NewService(users UserStore, secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{users: users, secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Signup creates an account and returns a token for it.
func (s *Service) Signup(ctx context.Context, email, password string) (*Token, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email %q is not valid", ErrInvalidSignup, email)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignup, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		return nil, err
	}
	return s.Issue(u)
}

// Login checks the password and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.Issue(u)
}

// Issue signs a token for u.
func (s *Service) Issue(u *store.User) (*Token, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := &Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &Token{Token: signed, UserID: u.ID, ExpiresAt: exp.UTC().Truncate(time.Second)}, nil
}

// Validate parses a bearer token and returns the signed-in identity.
func (s *Service) Validate(tokenString string) (history.Identity, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return history.Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return history.Identity{}, ErrInvalidToken
	}
	return history.Identity{UserID: claims.UserID}, nil
}
