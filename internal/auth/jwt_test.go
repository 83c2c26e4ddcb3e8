package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-attempt-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndAuthenticate(t *testing.T) {
	v := NewVerifier("s3cret")
	token, err := v.Issue(domain.Identity{UserID: "u1", Email: "a@b.c", Role: "ADMIN"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := v.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.UserID != "u1" || id.Email != "a@b.c" || !id.IsAdmin() {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	v := NewVerifier("s3cret")
	good, _ := v.Issue(domain.Identity{UserID: "u1"}, time.Hour)
	other, _ := NewVerifier("other").Issue(domain.Identity{UserID: "u1"}, time.Hour)

	expiredIssuer := NewVerifier("s3cret")
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredIssuer.Issue(domain.Identity{UserID: "u1"}, time.Hour)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("s3cret"))

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: other},
		{name: "expired", token: expired},
		{name: "no user", token: noSubject},
		{name: "tampered", token: good + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Authenticate(context.Background(), tt.token); !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}
}
