package jwt_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-bff/token/jwt"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestParse(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("reads claims", func(t *testing.T) {
		raw := signed(t, jwtlib.MapClaims{
			"sub":         "user-1",
			"iss":         "https://issuer/",
			"name":        "john@example.com",
			"exp":         now.Add(time.Minute).Unix(),
			"scope":       "openid profile",
			"permissions": []string{"write:roles"},
		})
		c, err := jwt.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, "user-1", c.Subject)
		require.Equal(t, "john@example.com", c.DisplayName())
		require.True(t, c.HasScope("profile"))
		require.True(t, c.HasScope("write:roles"))
		require.False(t, c.HasScope("admin"))

		expired, err := c.ExpiredAt(now)
		require.NoError(t, err)
		require.False(t, expired)
	})

	t.Run("expired", func(t *testing.T) {
		c, err := jwt.Parse(signed(t, jwtlib.MapClaims{"exp": now.Add(-time.Second).Unix()}))
		require.NoError(t, err)
		expired, err := c.ExpiredAt(now)
		require.NoError(t, err)
		require.True(t, expired)
	})

	t.Run("missing exp", func(t *testing.T) {
		c, err := jwt.Parse(signed(t, jwtlib.MapClaims{"sub": "x"}))
		require.NoError(t, err)
		_, err = c.ExpiredAt(now)
		require.ErrorIs(t, err, jwt.ErrMissingExpiry)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := jwt.Parse("not-a-jwt")
		require.ErrorIs(t, err, jwt.ErrMalformed)
		_, err = jwt.Parse(" ")
		require.ErrorIs(t, err, jwt.ErrEmptyToken)
	})
}
