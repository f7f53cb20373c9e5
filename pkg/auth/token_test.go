package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/enums"
)

var jwtCfg = config.JWTConfig{Secret: "s3cret", Issuer: "storefront", ExpirationMinutes: 30}

func TestSignVerifyRoundTrip(t *testing.T) {
	who := Identity{UserID: uuid.New(), Email: "buyer@example.com", Role: enums.UserRoleCustomer}

	token, err := Sign(jwtCfg, time.Now(), who)
	require.NoError(t, err)

	got, err := Verify(jwtCfg, token)
	require.NoError(t, err)
	assert.Equal(t, who, got)
}

func TestVerifyRejections(t *testing.T) {
	who := Identity{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	good, err := Sign(jwtCfg, time.Now(), who)
	require.NoError(t, err)
	stale, err := Sign(jwtCfg, time.Now().Add(-2*time.Hour), who)
	require.NoError(t, err)

	otherSecret := jwtCfg
	otherSecret.Secret = "different"
	otherIssuer := jwtCfg
	otherIssuer.Issuer = "someone-else"

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: enums.UserRoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct {
		cfg   config.JWTConfig
		token string
		want  error
	}{
		"wrong secret": {otherSecret, good, ErrTokenInvalid},
		"wrong issuer": {otherIssuer, good, ErrTokenInvalid},
		"expired":      {jwtCfg, stale, ErrTokenExpired},
		"garbage":      {jwtCfg, "not.a.jwt", ErrTokenInvalid},
		"alg none":     {jwtCfg, none, ErrTokenInvalid},
		"no secret":    {config.JWTConfig{}, good, ErrNotConfigured},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Verify(tc.cfg, tc.token)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestVerifyRequiresUserSubject(t *testing.T) {
	claims := Claims{
		Role: enums.UserRoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtCfg.Issuer,
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtCfg.Secret))
	require.NoError(t, err)

	_, err = Verify(jwtCfg, token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignValidatesIdentity(t *testing.T) {
	_, err := Sign(jwtCfg, time.Now(), Identity{UserID: uuid.New()})
	assert.ErrorContains(t, err, "unknown role")

	_, err = Sign(jwtCfg, time.Now(), Identity{Role: enums.UserRoleCustomer})
	assert.ErrorContains(t, err, "user id")

	_, err = Sign(config.JWTConfig{}, time.Now(), Identity{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
