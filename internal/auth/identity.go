// Package auth resolves the device's current user. The engine only needs a
// stable user id and an authenticated/unauthenticated answer; identity
// arrives as a signed token issued by whatever auth service fronts the app.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when no valid identity token is available
var ErrUnauthenticated = errors.New("not authenticated")

// Identity is the authenticated current user
type Identity struct {
	UserID string
	Email  string
	Name   string
}

type claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// FromToken validates an HS256 identity token and extracts the identity.
// The subject claim is the stable user id.
func FromToken(tokenString string, secret []byte) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrUnauthenticated
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	c := &claims{}
	token, err := parser.ParseWithClaims(tokenString, c, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}

	return &Identity{UserID: c.Subject, Email: c.Email, Name: c.Name}, nil
}

// IssueToken signs an identity token. Used by tests and the demo daemon;
// production tokens come from the auth service.
func IssueToken(identity Identity, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: identity.Email,
		Name:  identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign identity token: %w", err)
	}
	return signed, nil
}
