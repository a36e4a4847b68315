// Package selfhosted adapts the self-hosted OpenID Connect authorization
// server and its account endpoints to the auth contracts.
package selfhosted

import (
	"github.com/jrsteele09/go-auth-bff/internal/config"
	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/upstream"
)

const backendName = "self-hosted"

// TwoFactorCookie is set by the server on a sign-in awaiting the second
// factor. Its "name=value" form is the mfa token replayed on verification.
const TwoFactorCookie = "Identity.TwoFactorUserId"

// challengeChannel is the only second factor channel the server offers.
const challengeChannel = "Phone"

// Backend paths
const (
	pathToken          = "connect/token"
	pathUserInfo       = "connect/userinfo"
	pathLogout         = "connect/logout"
	pathRegister       = "Register"
	pathUserExists     = "UserExists"
	pathResetPassword  = "ResetPassword"
	pathChangePassword = "ChangePassword"
	pathUpdateUser     = "UpdateUser"
	pathAddRole        = "AddRole"
	pathRemoveRole     = "RemoveRole"
)

type Config struct {
	Host           string
	ClientID       string
	ClientSecret   string
	Audience       string // required aud of session access tokens, unchecked when empty
	Scope          string
	LogoutRedirect string
}

// ConfigFrom reads the self-hosted settings from the environment configuration.
func ConfigFrom(cfg config.ProviderConfig) Config {
	return Config{
		Host:           cfg.GetSelfHostedHost(),
		ClientID:       cfg.GetSelfHostedClientID(),
		ClientSecret:   cfg.GetSelfHostedClientSecret(),
		Audience:       cfg.GetSelfHostedAudience(),
		Scope:          cfg.GetRequestScope(),
		LogoutRedirect: cfg.GetSelfHostedLogoutRedirect(),
	}
}

func NewClient(cfg Config, opts ...upstream.Option) *upstream.Client {
	return upstream.New(backendName, cfg.Host, apperrors.FromSelfHosted, opts...)
}
