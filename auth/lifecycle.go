package auth

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/oauthmodel"
	"github.com/jrsteele09/go-auth-bff/token/jwt"
)

// Refresher exchanges a refresh token for a new bundle.
// *refresh.Coordinator is the production implementation.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string, force bool) (oauthmodel.AccessTokenBundle, error)
}

// TokenLifecycleManager decides whether a presented access token can be used
// as is or must be refreshed first.
type TokenLifecycleManager struct {
	refresher Refresher
	nowTime   func() time.Time
}

type LifecycleOption func(*TokenLifecycleManager)

// WithLifecycleNowTime sets the now time function (primarily for testing)
func WithLifecycleNowTime(nowFunc func() time.Time) LifecycleOption {
	return func(m *TokenLifecycleManager) {
		m.nowTime = nowFunc
	}
}

func NewTokenLifecycleManager(refresher Refresher, opts ...LifecycleOption) *TokenLifecycleManager {
	m := &TokenLifecycleManager{
		refresher: refresher,
		nowTime:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure returns nil when the token is still valid and no refresh was forced.
// Otherwise it refreshes and returns the bundle to rebind. A token without an
// expiry, or an expired token without a refresh token, is Unauthorized.
func (m *TokenLifecycleManager) Ensure(ctx context.Context, claims *jwt.Claims, refreshToken string, force bool) (*oauthmodel.AccessTokenBundle, error) {
	if claims == nil {
		return nil, apperrors.ErrUnauthorized.WithDetail("no access token claims")
	}
	expired, err := claims.ExpiredAt(m.nowTime())
	if err != nil {
		return nil, apperrors.ErrUnauthorized.WithCause(err)
	}
	if !expired && !force {
		return nil, nil
	}
	if refreshToken == "" {
		return nil, apperrors.ErrUnauthorized.WithDetail("access token expired and no refresh token presented")
	}

	bundle, err := m.refresher.Refresh(ctx, refreshToken, force)
	if err != nil {
		return nil, err
	}
	bundle = bundle.PreserveRefreshToken(refreshToken)
	return &bundle, nil
}
