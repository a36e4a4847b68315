package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-bff/oauthmodel"
)

// Session cookie names
const (
	CookieToken        = "token"
	CookieIDToken      = "idToken"
	CookieRefreshToken = "refreshToken"
	CookieMfaToken     = "mfaToken"
	CookieChallengeID  = "challengeId"
)

var allSessionCookies = []string{CookieToken, CookieIDToken, CookieRefreshToken, CookieMfaToken, CookieChallengeID}

// SessionBinder maps token bundles to cookies and back. Cookies are
// HttpOnly, SameSite=None and browser-session scoped.
type SessionBinder struct {
	domain string
	secure bool
}

func NewSessionBinder(domain string, secure bool) SessionBinder {
	return SessionBinder{domain: domain, secure: secure}
}

// BindCookies sets a cookie for every non empty field of bundle. Completing
// a sign-in clears the pending mfa cookies.
func (b SessionBinder) BindCookies(w http.ResponseWriter, bundle oauthmodel.AccessTokenBundle) {
	b.setIfPresent(w, CookieToken, bundle.AccessToken)
	b.setIfPresent(w, CookieIDToken, bundle.IDToken)
	b.setIfPresent(w, CookieRefreshToken, bundle.RefreshToken)
	if bundle.Authenticated() {
		b.expire(w, CookieMfaToken)
		b.expire(w, CookieChallengeID)
		return
	}
	b.setIfPresent(w, CookieMfaToken, bundle.MfaToken)
	b.setIfPresent(w, CookieChallengeID, bundle.ChallengeID)
}

// UnbindCookies expires every session cookie.
func (b SessionBinder) UnbindCookies(w http.ResponseWriter) {
	for _, name := range allSessionCookies {
		b.expire(w, name)
	}
}

// Read returns the value of cookie name, empty when absent.
func (b SessionBinder) Read(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// PendingChallenge rebuilds the mfa challenge from the cookies set by sign-in.
func (b SessionBinder) PendingChallenge(r *http.Request, otp string) oauthmodel.MfaChallenge {
	return oauthmodel.MfaChallenge{
		MfaToken:    b.Read(r, CookieMfaToken),
		ChallengeID: b.Read(r, CookieChallengeID),
		Otp:         otp,
	}
}

func (b SessionBinder) setIfPresent(w http.ResponseWriter, name, value string) {
	if value == "" {
		return
	}
	http.SetCookie(w, b.cookie(name, value, 0))
}

func (b SessionBinder) expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, b.cookie(name, "", -1))
}

func (b SessionBinder) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   b.domain,
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   maxAge,
	}
}
