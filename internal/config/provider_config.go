package config

import (
	"fmt"
	"strings"
	"time"
)

type ProviderMode string

const (
	ModeHosted     ProviderMode = "hosted"
	ModeSelfHosted ProviderMode = "self-hosted"
)

const defaultRequestScope = "openid profile offline_access read:messages"

type ProviderConfig interface {
	GetProviderMode() ProviderMode
	GetRequestScope() string
	GetUpstreamTimeout() time.Duration
	GetRefreshReuseWindow() time.Duration

	GetHostedDomain() string
	GetHostedClientID() string
	GetHostedClientSecret() string
	GetHostedConnection() string
	GetHostedAudience() string
	GetHostedLogoutReturnTo() string

	GetSelfHostedHost() string
	GetSelfHostedClientID() string
	GetSelfHostedClientSecret() string
	GetSelfHostedAudience() string
	GetSelfHostedLogoutRedirect() string

	GetIssuer() string
}

type Provider struct{}

var _ ProviderConfig = Provider{}

// GetProviderMode is chosen once at startup by USE_IDENTITY_SERVER.
func (Provider) GetProviderMode() ProviderMode {
	if GetEnvBool("USE_IDENTITY_SERVER", false) {
		return ModeSelfHosted
	}
	return ModeHosted
}

func (Provider) GetRequestScope() string {
	return GetEnv("REQUEST_SCOPE", defaultRequestScope)
}

func (Provider) GetUpstreamTimeout() time.Duration {
	return GetEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
}

// GetRefreshReuseWindow is how long a refresh result stays available to
// requests still presenting the rotated refresh token. Zero disables it.
func (Provider) GetRefreshReuseWindow() time.Duration {
	return GetEnvDuration("REFRESH_REUSE_WINDOW", 10*time.Second)
}

func (Provider) GetHostedDomain() string {
	return GetEnv("AUTH0_DOMAIN", "")
}

func (Provider) GetHostedClientID() string {
	return GetEnv("AUTH0_CLIENT_ID", "")
}

func (Provider) GetHostedClientSecret() string {
	return GetEnv("AUTH0_CLIENT_SECRET", "")
}

func (Provider) GetHostedConnection() string {
	return GetEnv("AUTH0_DB_CONNECTION", "Username-Password-Authentication")
}

func (Provider) GetHostedAudience() string {
	return GetEnv("AUTH0_AUDIENCE", "")
}

func (Provider) GetHostedLogoutReturnTo() string {
	return GetEnv("AUTH0_LOGOUT_RETURN_TO", "")
}

func (Provider) GetSelfHostedHost() string {
	return strings.TrimSuffix(GetEnv("IDENTITY_SERVER_HOST", ""), "/")
}

func (Provider) GetSelfHostedClientID() string {
	return GetEnv("IDENTITY_SERVER_CLIENT_ID", "")
}

func (Provider) GetSelfHostedClientSecret() string {
	return GetEnv("IDENTITY_SERVER_CLIENT_SECRET", "")
}

func (Provider) GetSelfHostedAudience() string {
	return GetEnv("IDENTITY_SERVER_AUDIENCE", "")
}

func (Provider) GetSelfHostedLogoutRedirect() string {
	return GetEnv("IDENTITY_SERVER_LOGOUT_REDIRECT", "")
}

// GetIssuer is the issuer of the session access tokens for the active mode.
func (p Provider) GetIssuer() string {
	if p.GetProviderMode() == ModeSelfHosted {
		return p.GetSelfHostedHost()
	}
	return fmt.Sprintf("https://%s/", p.GetHostedDomain())
}
