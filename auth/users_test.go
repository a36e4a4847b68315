package auth_test

import (
	"context"
	"testing"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-bff/auth"
	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/stretchr/testify/require"
)

type fakeIDTokenVerifier struct {
	err   error
	calls int
}

func (v *fakeIDTokenVerifier) VerifyIDToken(context.Context, string) error {
	v.calls++
	return v.err
}

func unverifiedIDToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func TestIDTokenClaims(t *testing.T) {
	tok := unverifiedIDToken(t, jwtlib.MapClaims{"sub": "user-1", "name": "john@example.com"})

	t.Run("verified", func(t *testing.T) {
		v := &fakeIDTokenVerifier{}
		claims, err := auth.IDTokenClaims(context.Background(), v, tok)
		require.NoError(t, err)
		require.Equal(t, "user-1", claims.Subject)
		require.Equal(t, 1, v.calls)
	})

	t.Run("rejected", func(t *testing.T) {
		v := &fakeIDTokenVerifier{err: apperrors.ErrBadCredentials}
		_, err := auth.IDTokenClaims(context.Background(), v, tok)
		require.ErrorIs(t, err, apperrors.ErrBadCredentials)
	})

	t.Run("no verifier", func(t *testing.T) {
		_, err := auth.IDTokenClaims(context.Background(), nil, tok)
		require.ErrorIs(t, err, apperrors.ErrInternal)
	})

	t.Run("no subject", func(t *testing.T) {
		_, err := auth.IDTokenClaims(context.Background(), &fakeIDTokenVerifier{}, unverifiedIDToken(t, jwtlib.MapClaims{"name": "x"}))
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestCheckPasswordChange(t *testing.T) {
	tok := unverifiedIDToken(t, jwtlib.MapClaims{"sub": "user-1", "name": "john@example.com"})
	req := oauthmodel.ChangePassword{Email: "John@Example.com", Password: "password123", NewPassword: "password456"}

	t.Run("matching email", func(t *testing.T) {
		claims, err := auth.CheckPasswordChange(context.Background(), &fakeIDTokenVerifier{}, tok, req)
		require.NoError(t, err)
		require.Equal(t, "user-1", claims.Subject)
	})

	t.Run("invalid request is checked before the token", func(t *testing.T) {
		v := &fakeIDTokenVerifier{}
		bad := req
		bad.NewPassword = bad.Password
		_, err := auth.CheckPasswordChange(context.Background(), v, tok, bad)
		require.ErrorIs(t, err, apperrors.ErrSamePassword)
		require.Equal(t, 0, v.calls)
	})

	t.Run("other account", func(t *testing.T) {
		other := req
		other.Email = "someone@example.com"
		_, err := auth.CheckPasswordChange(context.Background(), &fakeIDTokenVerifier{}, tok, other)
		require.ErrorIs(t, err, apperrors.ErrEmailMismatch)
	})
}
