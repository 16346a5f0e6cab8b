// Package token issues and verifies the signed bearer tokens that carry a
// user's identity and role between requests.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lukamath/internal/apperr"
	"lukamath/internal/domain"
)

const issuer = "lukamath"

// Identity is what a verified token proves.
type Identity struct {
	Subject string
	Role    domain.Role
}

type claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock swaps the time source; used by tests to step past expiry.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

// Issue signs a token for u that expires after the configured TTL.
func (m *Manager) Issue(u *domain.User) (string, time.Time, error) {
	now := m.now().UTC().Truncate(time.Second)
	exp := now.Add(m.ttl)
	c := claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, apperr.Wrap(apperr.ServerError, "could not issue token", err)
	}
	return signed, exp, nil
}

// Verify checks signature, algorithm, issuer and expiry with zero leeway.
// Every failure is reported as apperr.InvalidToken.
func (m *Manager) Verify(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, apperr.E(apperr.MissingToken, "authentication required")
	}
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return Identity{}, apperr.Wrap(apperr.InvalidToken, msg, err)
	}
	if !tok.Valid || c.Subject == "" || !c.Role.Valid() {
		return Identity{}, apperr.E(apperr.InvalidToken, "invalid token")
	}
	return Identity{Subject: c.Subject, Role: c.Role}, nil
}
