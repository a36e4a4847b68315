package upstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/internal/oidctest"
	"github.com/jrsteele09/go-auth-bff/upstream"
	"github.com/stretchr/testify/require"
)

func setupIssuer(t *testing.T) (*oidctest.Issuer, *upstream.Client) {
	t.Helper()
	issuer := oidctest.NewIssuer(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !issuer.Handle(w, r) {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	issuer.URL = srv.URL + "/"
	issuer.BaseURL = srv.URL
	return issuer, upstream.New("test", srv.URL, apperrors.FromHosted)
}

func TestDiscovery_VerifyIDToken(t *testing.T) {
	issuer, c := setupIssuer(t)
	d := c.Discovery(issuer.URL, upstream.WithClientID("cid"))

	t.Run("issued to us", func(t *testing.T) {
		require.NoError(t, d.VerifyIDToken(context.Background(), issuer.IDToken(t, "cid", "user-1", "john")))
	})

	t.Run("expired id token still identifies the user", func(t *testing.T) {
		tok := issuer.Sign(t, jwtlib.MapClaims{"sub": "user-1", "aud": "cid", "exp": time.Now().Add(-time.Hour).Unix()})
		require.NoError(t, d.VerifyIDToken(context.Background(), tok))
	})

	t.Run("unsigned", func(t *testing.T) {
		tok := oidctest.Unsigned(t, jwtlib.MapClaims{"sub": "user-1", "aud": "cid", "iss": issuer.URL})
		require.ErrorIs(t, d.VerifyIDToken(context.Background(), tok), apperrors.ErrBadCredentials)
	})

	t.Run("another client", func(t *testing.T) {
		tok := issuer.IDToken(t, "other", "user-1", "john")
		require.ErrorIs(t, d.VerifyIDToken(context.Background(), tok), apperrors.ErrBadCredentials)
	})

	t.Run("another issuer", func(t *testing.T) {
		tok := issuer.Sign(t, jwtlib.MapClaims{"sub": "user-1", "aud": "cid", "iss": "https://elsewhere/"})
		require.ErrorIs(t, d.VerifyIDToken(context.Background(), tok), apperrors.ErrBadCredentials)
	})

	t.Run("no client id", func(t *testing.T) {
		bare := c.Discovery(issuer.URL)
		err := bare.VerifyIDToken(context.Background(), issuer.IDToken(t, "cid", "user-1", "john"))
		require.ErrorIs(t, err, apperrors.ErrInternal)
	})
}

func TestDiscovery_VerifyAccessToken(t *testing.T) {
	issuer, c := setupIssuer(t)
	token := issuer.Sign(t, jwtlib.MapClaims{"sub": "user-1", "aud": []string{"https://api.example", "userinfo"}})

	t.Run("audience unchecked by default", func(t *testing.T) {
		require.NoError(t, c.Discovery(issuer.URL).VerifyAccessToken(context.Background(), token))
	})

	t.Run("configured audience", func(t *testing.T) {
		d := c.Discovery(issuer.URL, upstream.WithAudience("https://api.example"))
		require.NoError(t, d.VerifyAccessToken(context.Background(), token))
	})

	t.Run("wrong audience", func(t *testing.T) {
		d := c.Discovery(issuer.URL, upstream.WithAudience("https://other.example"))
		require.ErrorIs(t, d.VerifyAccessToken(context.Background(), token), apperrors.ErrUnauthorized)
	})
}
