// Package oidctest is an OpenID provider for tests. It answers discovery and
// key set requests and signs tokens with its one RSA key.
package oidctest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	DiscoveryPath = "/.well-known/openid-configuration"
	JWKSPath      = "/.well-known/jwks.json"
	keyID         = "oidctest-1"
)

// Issuer must have URL and BaseURL set before the first request. URL is the
// issuer identifier the verifier is configured with, BaseURL is where the
// test server listens.
type Issuer struct {
	URL          string
	BaseURL      string
	UserInfoPath string

	key *rsa.PrivateKey
}

func NewIssuer(t testing.TB) *Issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &Issuer{key: key}
}

// Handle answers discovery and key set requests and reports whether r was
// one of them.
func (i *Issuer) Handle(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	var body any
	switch r.URL.Path {
	case DiscoveryPath:
		doc := map[string]any{
			"issuer":                                i.URL,
			"authorization_endpoint":                i.BaseURL + "/authorize",
			"token_endpoint":                        i.BaseURL + "/token",
			"jwks_uri":                              i.BaseURL + JWKSPath,
			"id_token_signing_alg_values_supported": []string{"RS256"},
		}
		if i.UserInfoPath != "" {
			doc["userinfo_endpoint"] = i.BaseURL + i.UserInfoPath
		}
		body = doc
	case JWKSPath:
		body = map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"kid": keyID,
			"n":   base64.RawURLEncoding.EncodeToString(i.key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(i.key.E)).Bytes()),
		}}}
	default:
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
	return true
}

// Sign issues an RS256 token with the issuer's key. iss defaults to URL.
func (i *Issuer) Sign(t testing.TB, claims jwtlib.MapClaims) string {
	t.Helper()
	if _, ok := claims["iss"]; !ok {
		claims["iss"] = i.URL
	}
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	tok.Header["kid"] = keyID
	raw, err := tok.SignedString(i.key)
	require.NoError(t, err)
	return raw
}

// IDToken issues an id token for sub, named name, to the client audience.
func (i *Issuer) IDToken(t testing.TB, audience, sub, name string) string {
	t.Helper()
	return i.Sign(t, jwtlib.MapClaims{
		"sub":  sub,
		"aud":  audience,
		"name": name,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
}

// Unsigned returns the claims as an "alg":"none" token.
func Unsigned(t testing.TB, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return raw
}
