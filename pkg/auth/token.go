// Package auth signs and verifies the HS256 bearer tokens shared with the
// account service. The user id travels in the standard sub claim.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/enums"
)

const clockSkew = 30 * time.Second

var (
	ErrNotConfigured = errors.New("auth: jwt secret is not configured")
	ErrTokenExpired  = errors.New("auth: token expired")
	ErrTokenInvalid  = errors.New("auth: token invalid")
)

// Identity is who a token speaks for.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
}

// Claims is the token body.
type Claims struct {
	Email string         `json:"email,omitempty"`
	Role  enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Identity extracts the caller from verified claims.
func (c *Claims) Identity() (Identity, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil || id == uuid.Nil {
		return Identity{}, fmt.Errorf("%w: subject %q is not a user id", ErrTokenInvalid, c.Subject)
	}
	if !c.Role.IsValid() {
		return Identity{}, fmt.Errorf("%w: role %q", ErrTokenInvalid, c.Role)
	}
	return Identity{UserID: id, Email: c.Email, Role: c.Role}, nil
}

// Sign issues a token for who, valid from now for cfg.ExpirationMinutes.
// Production tokens come from the account service; the API signs only for
// tooling and tests.
func Sign(cfg config.JWTConfig, now time.Time, who Identity) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", ErrNotConfigured
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("auth: expiration must be positive")
	case who.UserID == uuid.Nil:
		return "", errors.New("auth: user id is required")
	case !who.Role.IsValid():
		return "", fmt.Errorf("auth: unknown role %q", who.Role)
	}

	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	claims := Claims{
		Email: strings.TrimSpace(who.Email),
		Role:  who.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.Issuer,
			Subject:   who.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// Verify checks signature, issuer and expiry and returns the caller. Expired
// tokens wrap ErrTokenExpired; every other rejection wraps ErrTokenInvalid.
func Verify(cfg config.JWTConfig, raw string) (Identity, error) {
	if cfg.Secret == "" {
		return Identity{}, ErrNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case err != nil:
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims.Identity()
}
