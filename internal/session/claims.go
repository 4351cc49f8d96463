package session

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
)

// ErrNoToken is returned when there is no token to inspect.
var ErrNoToken = errors.New("no token")

// Claims decodes the registered claims of the stored token without verifying
// its signature. They are for display only; expiry decisions use ExpiresAt.
func (a *Accessor) Claims() (*jwt.RegisteredClaims, error) {
	token := a.Snapshot().Token
	if token == "" {
		return nil, ErrNoToken
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return claims, nil
}

// Fingerprint identifies the stored token without revealing it
// (Base58-encoded SHA256 of the token).
func (a *Accessor) Fingerprint() string {
	token := a.Snapshot().Token
	if token == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(token))
	return base58.Encode(hash[:])
}
