package main

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenKind picks which of the two signing secrets applies. Access and
// refresh tokens use independent secrets so a leaked access secret cannot
// forge refresh tokens.
type tokenKind int

const (
	kindAccess tokenKind = iota
	kindRefresh
)

type authClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

// tokenService signs and verifies the session token pair. Secrets are loaded
// once at startup; issuing has no side effects (persisting refresh tokens is
// the caller's job).
type tokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func newTokenService(cfg Config) *tokenService {
	return &tokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

func (s *tokenService) secretFor(kind tokenKind) []byte {
	if kind == kindRefresh {
		return s.refreshSecret
	}
	return s.accessSecret
}

func (s *tokenService) ttlFor(kind tokenKind) time.Duration {
	if kind == kindRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

func (s *tokenService) issue(kind tokenKind, userID string) (string, error) {
	now := time.Now()
	claims := &authClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps every issued token distinct, so rotation always
			// produces a value that differs from the stored one
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttlFor(kind))),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secretFor(kind))
}

// verify fails on a bad signature, malformed token, expired claim, or a token
// signed with the other kind's secret.
func (s *tokenService) verify(tokenStr string, kind tokenKind) (*authClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &authClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secretFor(kind), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errInvalidToken
	}
	if c, ok := token.Claims.(*authClaims); ok && token.Valid && c.UserID != "" {
		return c, nil
	}
	return nil, errInvalidToken
}
