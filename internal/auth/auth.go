package auth

import (
	"context"
	"errors"
)

// Identity carries the claims resolved from a verified credential.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

var (
	ErrInvalidToken = errors.New("invalid_token")
	ErrTokenExpired = errors.New("token_expired")
)

// TokenVerifier resolves an opaque credential into identity claims.
// Signature and expiry checks live behind this boundary.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
