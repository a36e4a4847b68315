// Package hosted adapts the hosted identity-as-a-service provider to the
// auth contracts.
package hosted

import (
	"strings"

	"github.com/jrsteele09/go-auth-bff/internal/config"
	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/upstream"
)

const backendName = "hosted"

// Backend paths
const (
	pathToken          = "oauth/token"
	pathSignup         = "dbconnections/signup"
	pathChangePassword = "dbconnections/change_password"
	pathMfaChallenge   = "mfa/challenge"
	pathMfaAssociate   = "mfa/associate"
	pathUserInfo       = "userinfo"
	pathLogout         = "v2/logout"
	pathUsers          = "api/v2/users"
	pathUsersByEmail   = "api/v2/users-by-email"
	pathRoles          = "api/v2/roles"
)

// Config is the provider's tenant and application settings.
type Config struct {
	BaseURL        string // https://{domain}
	ClientID       string
	ClientSecret   string
	Connection     string // database connection (realm)
	Audience       string // API audience for user tokens
	Scope          string
	LogoutReturnTo string
}

// ConfigFrom reads the hosted settings from the environment configuration.
func ConfigFrom(cfg config.ProviderConfig) Config {
	return Config{
		BaseURL:        "https://" + strings.TrimSuffix(cfg.GetHostedDomain(), "/"),
		ClientID:       cfg.GetHostedClientID(),
		ClientSecret:   cfg.GetHostedClientSecret(),
		Connection:     cfg.GetHostedConnection(),
		Audience:       cfg.GetHostedAudience(),
		Scope:          cfg.GetRequestScope(),
		LogoutReturnTo: cfg.GetHostedLogoutReturnTo(),
	}
}

// ManagementAudience is the audience of management API tokens.
func (c Config) ManagementAudience() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/api/v2/"
}

// TokenPath is the token endpoint, relative to BaseURL.
func (c Config) TokenPath() string {
	return pathToken
}

// NewClient creates the upstream client for the provider.
func NewClient(cfg Config, opts ...upstream.Option) *upstream.Client {
	return upstream.New(backendName, cfg.BaseURL, apperrors.FromHosted, opts...)
}
