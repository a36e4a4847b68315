package upstream_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/upstream"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func setupTestFixture(t *testing.T, handler http.HandlerFunc, opts ...upstream.Option) *upstream.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return upstream.New("test", srv.URL+"/", apperrors.FromHosted, opts...)
}

func TestClient_DoForm(t *testing.T) {
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/token", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "password", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"at"}`))
	})

	resp, err := c.Do(context.Background(), "token", upstream.Request{
		Path: "/oauth/token",
		Form: url.Values{"grant_type": {"password"}},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, resp.Decode(&out))
	require.Equal(t, "at", out.AccessToken)
}

func TestClient_DoJSONWithBearer(t *testing.T) {
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer mgmt", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var m map[string]string
		require.NoError(t, json.Unmarshal(body, &m))
		require.Equal(t, "nick", m["nickname"])
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.Do(context.Background(), "patch", upstream.Request{
		Method: http.MethodPatch,
		Path:   "api/v2/users/1",
		JSON:   map[string]string{"nickname": "nick"},
		Bearer: "mgmt",
	})
	require.NoError(t, err)
}

func TestClient_DoMapsErrorAndKeepsBody(t *testing.T) {
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"mfa_required","mfa_token":"mfa-1"}`))
	})

	resp, err := c.Do(context.Background(), "token", upstream.Request{Path: "oauth/token", Form: url.Values{}})
	require.ErrorIs(t, err, apperrors.ErrMfaRequired)
	require.NotNil(t, resp)
	require.Contains(t, string(resp.Body), "mfa-1")
}

func TestClient_TimeoutIsUpstreamUnavailable(t *testing.T) {
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, upstream.WithTimeout(20*time.Millisecond))

	_, err := c.Do(context.Background(), "slow", upstream.Request{Method: http.MethodGet, Path: "/"})
	require.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestClient_Token(t *testing.T) {
	c := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("refresh_token") == "bad" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Unknown or invalid refresh token."}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"new","token_type":"Bearer","expires_in":60}`))
	})
	cfg := oauth2.Config{
		ClientID: "id",
		Endpoint: oauth2.Endpoint{TokenURL: c.URL("oauth/token"), AuthStyle: oauth2.AuthStyleInParams},
	}

	t.Run("success", func(t *testing.T) {
		tok, err := c.Token(context.Background(), "refresh", func(ctx context.Context) (*oauth2.Token, error) {
			return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: "good"}).Token()
		})
		require.NoError(t, err)
		require.Equal(t, "new", tok.AccessToken)
		require.Equal(t, "good", tok.RefreshToken)
	})

	t.Run("mapped failure", func(t *testing.T) {
		_, err := c.Token(context.Background(), "refresh", func(ctx context.Context) (*oauth2.Token, error) {
			return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: "bad"}).Token()
		})
		require.ErrorIs(t, err, apperrors.ErrInvalidGrant)
		require.Equal(t, apperrors.CodeInvalidGrant, apperrors.From(err).Code)

		var re *oauth2.RetrieveError
		require.ErrorAs(t, err, &re)
		require.Equal(t, http.StatusForbidden, re.Response.StatusCode)
	})
}
