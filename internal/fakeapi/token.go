package fakeapi

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims are the JWT claims of an access token issued by the
// fake token endpoint.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// TokenIssuer issues and verifies HS256 access tokens. Rotating the signing
// key invalidates every outstanding token.
type TokenIssuer struct {
	issuer string
	ttl    time.Duration

	mu  sync.RWMutex
	key []byte
}

// NewTokenIssuer creates a TokenIssuer with a random signing key. A zero ttl
// means one hour.
func NewTokenIssuer(issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if ttl == 0 {
		ttl = time.Hour
	}
	t := &TokenIssuer{issuer: issuer, ttl: ttl}
	if err := t.RotateKey(); err != nil {
		return nil, err
	}
	return t, nil
}

// Issue creates a signed access token for apiKey.
func (t *TokenIssuer) Issue(apiKey, scope string) (string, error) {
	now := time.Now().UTC()
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   apiKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		Scope: scope,
	}

	t.mu.RLock()
	key := t.key
	t.mu.RUnlock()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an access token, returning its claims.
func (t *TokenIssuer) Verify(tokenStr string) (*AccessTokenClaims, error) {
	if tokenStr == "" {
		return nil, errors.New("empty token")
	}

	t.mu.RLock()
	key := t.key
	t.mu.RUnlock()

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&AccessTokenClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return key, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// RotateKey replaces the signing key.
func (t *TokenIssuer) RotateKey() error {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("generate signing key: %w", err)
	}
	t.mu.Lock()
	t.key = key
	t.mu.Unlock()
	return nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }
