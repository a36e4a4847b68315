package token

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	defaultExpirySkew      = 30 * time.Second
	defaultExchangeTimeout = 10 * time.Second
	managementFlightKey    = "management-token"
)

// ManagementToken is the privileged client-credentials token used for
// administrative backend calls.
type ManagementToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ValidAt reports whether the token can still be handed out at now.
func (t ManagementToken) ValidAt(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// Exchanger performs one client-credentials exchange.
type Exchanger interface {
	Exchange(ctx context.Context) (ManagementToken, error)
}

// ExchangerFunc adapts a function to Exchanger.
type ExchangerFunc func(ctx context.Context) (ManagementToken, error)

func (f ExchangerFunc) Exchange(ctx context.Context) (ManagementToken, error) {
	return f(ctx)
}

// Store holds the current management token.
type Store interface {
	Get(ctx context.Context) (ManagementToken, bool, error)
	Set(ctx context.Context, tok ManagementToken, ttl time.Duration) error
}

// ManagementTokenCache hands out a valid management token, exchanging a new
// one only when the cached token has expired. Concurrent callers share one
// in-flight exchange.
type ManagementTokenCache struct {
	exchanger Exchanger
	store     Store
	group     singleflight.Group
	skew      time.Duration
	timeout   time.Duration
	nowFunc   func() time.Time
}

type CacheOption func(*ManagementTokenCache)

func WithStore(store Store) CacheOption {
	return func(c *ManagementTokenCache) {
		if store != nil {
			c.store = store
		}
	}
}

// WithExpirySkew shortens every token's lifetime by skew.
func WithExpirySkew(skew time.Duration) CacheOption {
	return func(c *ManagementTokenCache) {
		c.skew = skew
	}
}

func WithExchangeTimeout(d time.Duration) CacheOption {
	return func(c *ManagementTokenCache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithNowFunc(now func() time.Time) CacheOption {
	return func(c *ManagementTokenCache) {
		c.nowFunc = now
	}
}

func NewManagementTokenCache(exchanger Exchanger, opts ...CacheOption) *ManagementTokenCache {
	c := &ManagementTokenCache{
		exchanger: exchanger,
		store:     NewMemoryStore(),
		skew:      defaultExpirySkew,
		timeout:   defaultExchangeTimeout,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetToken returns the cached token or performs exactly one exchange for all
// concurrent callers. The exchange is detached from ctx so a caller leaving
// early does not fail the others; the caller itself stops waiting on ctx.
func (c *ManagementTokenCache) GetToken(ctx context.Context) (string, error) {
	if tok, ok := c.cached(ctx); ok {
		metrics.ManagementExchange("cached")
		return tok.AccessToken, nil
	}

	ch := c.group.DoChan(managementFlightKey, func() (any, error) {
		exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		// A flight that finished just before this one started may have stored a token.
		if tok, ok := c.cached(exCtx); ok {
			return tok, nil
		}
		return c.exchange(exCtx)
	})

	select {
	case <-ctx.Done():
		return "", apperrors.FromTransport(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(ManagementToken).AccessToken, nil
	}
}

func (c *ManagementTokenCache) cached(ctx context.Context) (ManagementToken, bool) {
	tok, ok, err := c.store.Get(ctx)
	if err != nil {
		logger.From(ctx).Warn().Err(err).Msg("management token store read failed")
		return ManagementToken{}, false
	}
	if !ok || !tok.ValidAt(c.nowFunc()) {
		return ManagementToken{}, false
	}
	return tok, true
}

func (c *ManagementTokenCache) exchange(ctx context.Context) (ManagementToken, error) {
	tok, err := c.exchanger.Exchange(ctx)
	if err != nil {
		metrics.ManagementExchange("error")
		logger.From(ctx).Error().Err(err).Msg("management token exchange failed")
		return ManagementToken{}, err
	}
	metrics.ManagementExchange("exchanged")

	tok.ExpiresAt = tok.ExpiresAt.Add(-c.skew)
	ttl := tok.ExpiresAt.Sub(c.nowFunc())
	if ttl <= 0 {
		logger.From(ctx).Warn().Msg("management token lifetime shorter than expiry skew, not cached")
		return tok, nil
	}
	if err := c.store.Set(ctx, tok, ttl); err != nil {
		logger.From(ctx).Warn().Err(err).Msg("management token store write failed")
	}
	return tok, nil
}
