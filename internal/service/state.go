package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidState is returned when an OAuth callback carries a state value we
// did not issue, issued for another purpose, or that has expired.
var ErrInvalidState = errors.New("invalid oauth state")

const stateTTL = 10 * time.Minute

// State purposes.
const (
	purposeStravaConnect = "strava_connect"
	purposeGoogleLogin   = "google_login"
	purposeGitHubLogin   = "github_login"
)

type stateClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// signState returns a short-lived HS256 token binding subject to purpose. It
// is passed through the provider redirect as the OAuth state parameter.
func signState(secret, purpose, subject string, now time.Time) (string, error) {
	claims := stateClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parseState verifies state and returns its subject.
func parseState(secret, purpose, state string, now time.Time) (string, error) {
	var claims stateClaims
	token, err := jwt.ParseWithClaims(state, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil || !token.Valid {
		return "", ErrInvalidState
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return "", ErrInvalidState
	}
	return claims.Subject, nil
}
