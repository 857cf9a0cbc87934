// Package auth issues and verifies the socket tokens that bind a
// WebSocket connection to a logged-in user.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studyhub-app/studyhub/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid socket token")
	ErrExpiredToken = errors.New("expired socket token")
)

type claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// JWT signs HS256 socket tokens. It implements app.TokenVerifier.
type JWT struct {
	secret []byte
	ttl    time.Duration
}

func NewJWT(secret string, ttl time.Duration) *JWT {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWT{secret: []byte(secret), ttl: ttl}
}

// Issue creates a token for a logged-in user at login time.
func (j *JWT) Issue(user *domain.User) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	})
	s, err := t.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign socket token: %w", err)
	}
	return s, nil
}

// Verify resolves a token back to the user it was issued for.
func (j *JWT) Verify(token string) (*domain.User, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil, !parsed.Valid:
		return nil, ErrInvalidToken
	}
	if c.Subject == "" || c.Name == "" {
		return nil, ErrInvalidToken
	}
	return &domain.User{ID: domain.UserID(c.Subject), Name: c.Name}, nil
}
