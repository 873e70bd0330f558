package helpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTIssueAndParse(t *testing.T) {
	m := NewJWTManager("secret", "user-api", "user-api-clients", time.Hour)

	tok, exp, err := m.Issue("3f1c4d0e-0000-4000-8000-000000000001", "Admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "3f1c4d0e-0000-4000-8000-000000000001", claims.UserID())
	assert.Equal(t, "Admin", claims.Role)
	assert.Equal(t, "user-api", claims.Issuer)
	assert.Same(t, m, DefaultJWT())
}

func TestJWTParseRejects(t *testing.T) {
	m := NewJWTManager("secret", "user-api", "user-api-clients", time.Hour)
	tok, _, err := m.Issue("u1", "User")
	require.NoError(t, err)

	cases := map[string]*JWTManager{
		"wrong secret":   {Secret: []byte("other"), Issuer: "user-api", Audience: "user-api-clients", TTL: time.Hour},
		"wrong issuer":   {Secret: []byte("secret"), Issuer: "someone", Audience: "user-api-clients", TTL: time.Hour},
		"wrong audience": {Secret: []byte("secret"), Issuer: "user-api", Audience: "others", TTL: time.Hour},
	}
	for name, other := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := other.Parse(tok)
			assert.Error(t, err)
		})
	}

	_, err = m.Parse("not-a-token")
	assert.Error(t, err)
}

func TestJWTParseExpired(t *testing.T) {
	m := NewJWTManager("secret", "iss", "aud", -time.Minute)
	tok, _, err := m.Issue("u1", "User")
	require.NoError(t, err)

	_, err = m.Parse(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTParseRejectsNoneAlg(t *testing.T) {
	m := NewJWTManager("secret", "iss", "aud", time.Hour)
	claims := &Claims{Role: "Admin", RegisteredClaims: jwt.RegisteredClaims{
		Subject: "u1", Issuer: "iss", Audience: jwt.ClaimStrings{"aud"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Parse(tok)
	assert.Error(t, err)
}
