// Package refresh coalesces concurrent refreshes of the same refresh token.
package refresh

import (
	"context"
	"encoding/hex"
	"time"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/internal/metrics"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

const (
	defaultReuseWindow = 10 * time.Second
	defaultTimeout     = 10 * time.Second
)

// Func performs one upstream refresh.
type Func func(ctx context.Context, refreshToken string) (oauthmodel.AccessTokenBundle, error)

// Coordinator guarantees at most one upstream refresh per refresh token value
// at a time. Successful results are kept for a short reuse window so requests
// still presenting a just rotated token get the same bundle.
type Coordinator struct {
	refresh Func
	group   singleflight.Group
	recent  *gocache.Cache
	timeout time.Duration
}

type Option func(*Coordinator)

// WithReuseWindow sets how long a refreshed bundle is replayed. Zero disables reuse.
func WithReuseWindow(d time.Duration) Option {
	return func(c *Coordinator) {
		if d <= 0 {
			c.recent = nil
			return
		}
		c.recent = gocache.New(d, 2*d)
	}
}

// WithTimeout bounds the detached upstream call.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewCoordinator(refresh Func, opts ...Option) *Coordinator {
	c := &Coordinator{
		refresh: refresh,
		recent:  gocache.New(defaultReuseWindow, 2*defaultReuseWindow),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh returns a fresh bundle for refreshToken. Concurrent calls with the
// same token share one upstream call, which runs detached from ctx; a caller
// whose ctx ends stops waiting without affecting the others. A forced call is
// never answered from the reuse window.
func (c *Coordinator) Refresh(ctx context.Context, refreshToken string, force bool) (oauthmodel.AccessTokenBundle, error) {
	if refreshToken == "" {
		return oauthmodel.AccessTokenBundle{}, apperrors.ErrUnauthorized
	}
	key := digest(refreshToken)

	if c.recent != nil && !force {
		if v, ok := c.recent.Get(key); ok {
			metrics.Refresh(metrics.RefreshReused)
			return v.(oauthmodel.AccessTokenBundle), nil
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		upCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		bundle, err := c.refresh(upCtx, refreshToken)
		if err != nil {
			metrics.Refresh(metrics.RefreshFailed)
			logger.From(ctx).Warn().
				Str("refresh_token", Fingerprint(refreshToken)).
				Err(err).
				Msg("token refresh failed")
			return oauthmodel.AccessTokenBundle{}, err
		}
		bundle = bundle.PreserveRefreshToken(refreshToken)
		if c.recent != nil {
			c.recent.SetDefault(key, bundle)
		}
		metrics.Refresh(metrics.RefreshUpstream)
		logger.From(ctx).Debug().
			Str("refresh_token", Fingerprint(refreshToken)).
			Bool("rotated", bundle.RefreshToken != refreshToken).
			Msg("token refreshed")
		return bundle, nil
	})

	select {
	case <-ctx.Done():
		return oauthmodel.AccessTokenBundle{}, apperrors.FromTransport(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return oauthmodel.AccessTokenBundle{}, res.Err
		}
		if res.Shared {
			metrics.Refresh(metrics.RefreshShared)
		}
		return res.Val.(oauthmodel.AccessTokenBundle), nil
	}
}

// Fingerprint is a short, non reversible identifier for logging a token.
func Fingerprint(tok string) string {
	return digest(tok)[:12]
}

func digest(tok string) string {
	sum := blake2b.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}
