package config

type SecurityConfig interface {
	GetEnableRateLimiting() bool
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
	GetTrustProxy() bool
	GetCookieDomain() string
	GetCookieSecure() bool
	GetRoleAdminScope() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetEnableRateLimiting() bool {
	return GetEnvBool("RATE_LIMIT_ENABLED", true)
}

// GetRateLimitRPS is the sustained per client rate on credential endpoints.
func (Security) GetRateLimitRPS() float64 {
	return GetEnvFloat("RATE_LIMIT_RPS", 5)
}

func (Security) GetRateLimitBurst() int {
	return GetEnvInt("RATE_LIMIT_BURST", 10)
}

// GetTrustProxy makes the nearest X-Forwarded-For hop the client address.
// Only set it when a proxy in front of the gateway appends that header.
func (Security) GetTrustProxy() bool {
	return GetEnvBool("TRUST_PROXY", false)
}

func (Security) GetCookieDomain() string {
	return GetEnv("COOKIE_DOMAIN", "")
}

// GetCookieSecure can be turned off for plain http local development only.
func (Security) GetCookieSecure() bool {
	return GetEnvBool("COOKIE_SECURE", true)
}

func (Security) GetRoleAdminScope() string {
	return GetEnv("ROLE_ADMIN_SCOPE", "")
}
