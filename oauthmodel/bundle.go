package oauthmodel

import (
	"errors"

	"golang.org/x/oauth2"
)

var (
	ErrBundleAmbiguous  = errors.New("bundle is both authenticated and awaiting mfa")
	ErrBundleIncomplete = errors.New("bundle has neither an access token nor a pending mfa challenge")
)

// AccessTokenBundle is the unit of authentication state returned by every
// sign-up, sign-in, verify and refresh call. It is rebuilt per call and only
// ever leaves the process as cookies.
type AccessTokenBundle struct {
	// AccessToken authorises calls to protected resources.
	// Example: "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."
	// Cookie: token
	AccessToken string `json:"access_token,omitempty"`

	// IDToken is the OpenID Connect identity token (requires the openid scope).
	// Cookie: idToken
	IDToken string `json:"id_token,omitempty"`

	// RefreshToken obtains new access tokens (requires offline_access).
	// Backends do not always reissue it on refresh; callers keep the old one.
	// Cookie: refreshToken
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is normally "Bearer".
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in,omitempty"`

	// MfaToken correlates a sign-in awaiting its second factor to the later
	// verify call. Opaque, replayed verbatim to the backend.
	// Cookie: mfaToken
	MfaToken string `json:"mfa_token,omitempty"`

	// ChallengeID identifies the issued challenge (the oob code for sms).
	// Cookie: challengeId
	ChallengeID string `json:"-"`

	// NeedsMFA tells the client to show the one time code screen.
	NeedsMFA bool `json:"-"`
}

func (b AccessTokenBundle) Authenticated() bool {
	return b.AccessToken != ""
}

func (b AccessTokenBundle) AwaitingMFA() bool {
	return b.NeedsMFA && b.MfaToken != ""
}

// Validate checks that a completed bundle is either authenticated or awaiting
// mfa, never both and never neither.
func (b AccessTokenBundle) Validate() error {
	switch {
	case b.Authenticated() && b.NeedsMFA:
		return ErrBundleAmbiguous
	case !b.Authenticated() && !b.AwaitingMFA():
		return ErrBundleIncomplete
	}
	return nil
}

// PreserveRefreshToken keeps the presented refresh token when the backend
// did not issue a new one.
func (b AccessTokenBundle) PreserveRefreshToken(original string) AccessTokenBundle {
	if b.RefreshToken == "" {
		b.RefreshToken = original
	}
	return b
}

// FromOAuth2Token converts a golang.org/x/oauth2 token response.
func FromOAuth2Token(t *oauth2.Token) AccessTokenBundle {
	if t == nil {
		return AccessTokenBundle{}
	}
	b := AccessTokenBundle{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresIn:    int(t.ExpiresIn),
	}
	if idToken, ok := t.Extra("id_token").(string); ok {
		b.IDToken = idToken
	}
	if b.ExpiresIn == 0 {
		if v, ok := t.Extra("expires_in").(float64); ok {
			b.ExpiresIn = int(v)
		}
	}
	return b
}
