package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/studyhub-app/studyhub/internal/domain"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	j := NewJWT("secret-1", time.Hour)
	token, err := j.Issue(&domain.User{ID: "u1", Name: "Ada"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	user, err := j.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.ID != "u1" || user.Name != "Ada" {
		t.Fatalf("identity mangled: %+v", user)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewJWT("secret-1", time.Hour).Issue(&domain.User{ID: "u1", Name: "Ada"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewJWT("secret-2", time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	if _, err := NewJWT("secret-1", time.Hour).Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	j := &JWT{secret: []byte("secret-1"), ttl: -time.Minute}
	token, err := j.Issue(&domain.User{ID: "u1", Name: "Ada"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := j.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}
