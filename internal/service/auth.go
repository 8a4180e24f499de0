package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/userdesk/internal/domain"
)

// AuthService handles login and JWT token operations.
type AuthService struct {
	users     domain.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService creates a new AuthService issuing tokens valid for tokenTTL.
func NewAuthService(users domain.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// TokenTTL is how long issued tokens stay valid.
func (s *AuthService) TokenTTL() time.Duration { return s.tokenTTL }

// Login verifies credentials and returns a signed token with its user.
// Unknown email and wrong password both yield domain.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.Errorf(domain.ErrInvalidInput, "Please provide an email and password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.Errorf(domain.ErrUnauthorized, "Invalid credentials")
		}
		return "", nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.Errorf(domain.ErrUnauthorized, "Invalid credentials")
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("generate jwt: %w", err)
	}
	return token, user, nil
}

// IssueToken signs an HS256 token whose subject is the user id.
func (s *AuthService) IssueToken(user *domain.User) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateToken parses and validates a token string and returns the user id
// from its subject.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return s.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", domain.ErrUnauthorized
	}
	return claims.Subject, nil
}

// Authenticate resolves a token to the stored user it names.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*domain.User, error) {
	id, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
