package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-bff/internal/utils"
)

var (
	ErrEmptyToken    = errors.New("empty token")
	ErrMalformed     = errors.New("malformed token")
	ErrMissingExpiry = errors.New("token has no exp claim")
)

// Claims are the fields the gateway reads from access and id tokens.
// The signature is checked elsewhere; these values are only trusted after
// that check or for user facing convenience (the id token name).
type Claims struct {
	Subject  string     // sub
	Issuer   string     // iss
	Expiry   *time.Time // exp, nil when absent
	Name     string     // name
	Nickname string     // nickname
	Email    string     // email
	Scope    []string   // scope (space separated) or scp / permissions arrays
}

// Parse reads the claims of a token without verifying it.
func Parse(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrEmptyToken
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	mc, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, ErrMalformed
	}

	c := &Claims{}
	c.Subject, _ = mc["sub"].(string)
	c.Issuer, _ = mc["iss"].(string)
	c.Name, _ = mc["name"].(string)
	c.Nickname, _ = mc["nickname"].(string)
	c.Email, _ = mc["email"].(string)

	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		c.Expiry = &t
	}

	for _, key := range []string{"scope", "scp", "permissions"} {
		c.Scope = append(c.Scope, utils.StringList(mc[key])...)
	}
	return c, nil
}

// ExpiredAt reports whether the token has expired at now. Tokens without exp
// are reported through ErrMissingExpiry.
func (c *Claims) ExpiredAt(now time.Time) (bool, error) {
	if c.Expiry == nil {
		return false, ErrMissingExpiry
	}
	return !now.Before(*c.Expiry), nil
}

// HasScope reports whether the token was granted scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scope {
		if s == scope {
			return true
		}
	}
	return false
}

// DisplayName is the user name carried by an id token, falling back to the email.
func (c *Claims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Email
}
