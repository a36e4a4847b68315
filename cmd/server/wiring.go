package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-auth-bff/auth"
	"github.com/jrsteele09/go-auth-bff/auth/hosted"
	"github.com/jrsteele09/go-auth-bff/auth/selfhosted"
	"github.com/jrsteele09/go-auth-bff/internal/config"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/notify"
	"github.com/jrsteele09/go-auth-bff/server"
	"github.com/jrsteele09/go-auth-bff/token"
	"github.com/jrsteele09/go-auth-bff/token/refresh"
	"github.com/jrsteele09/go-auth-bff/upstream"
	"github.com/redis/go-redis/v9"
)

// wiring is everything built once at startup for the selected backend.
type wiring struct {
	backend    auth.Backend
	lifecycle  *auth.TokenLifecycleManager
	verifier   server.AccessTokenVerifier
	dispatcher *auth.Dispatcher
	closers    []func() error
}

func (w *wiring) close() {
	for _, c := range w.closers {
		_ = c()
	}
}

func wire(ctx context.Context, c config.Config) (*wiring, error) {
	w := &wiring{dispatcher: auth.NewDispatcher(c.GetUpstreamTimeout())}
	notifier := auth.NewNotifier(newSender(ctx, c), w.dispatcher, c.GetAppName())
	timeout := upstream.WithTimeout(c.GetUpstreamTimeout())

	// One discovery per backend verifies access tokens and id tokens.
	var client *upstream.Client
	var discovery *upstream.Discovery
	switch mode := c.GetProviderMode(); mode {
	case config.ModeSelfHosted:
		cfg := selfhosted.ConfigFrom(c)
		client = selfhosted.NewClient(cfg, timeout)
		discovery = client.Discovery(c.GetIssuer(), upstream.WithClientID(cfg.ClientID), upstream.WithAudience(cfg.Audience))
		w.backend = auth.Backend{
			Provider: selfhosted.NewProvider(cfg, client, w.dispatcher),
			Users:    selfhosted.NewUsers(client, discovery, notifier),
			Roles:    selfhosted.NewRoles(client),
		}
	case config.ModeHosted:
		cfg := hosted.ConfigFrom(c)
		client = hosted.NewClient(cfg, timeout)
		discovery = client.Discovery(c.GetIssuer(), upstream.WithClientID(cfg.ClientID), upstream.WithAudience(cfg.Audience))
		store, err := newManagementStore(ctx, c, w)
		if err != nil {
			return nil, err
		}
		management := token.NewManagementTokenCache(
			token.NewClientCredentialsExchanger(client, cfg.ClientID, cfg.ClientSecret, cfg.TokenPath(), cfg.ManagementAudience()),
			token.WithStore(store),
		)
		w.backend = auth.Backend{
			Provider: hosted.NewProvider(cfg, client, management, w.dispatcher),
			Users:    hosted.NewUsers(cfg, client, management, discovery, notifier),
			Roles:    hosted.NewRoles(client, management),
		}
	default:
		return nil, fmt.Errorf("unknown provider mode %q", mode)
	}
	logger.From(ctx).Info().Str("backend", client.Backend()).Str("base_url", client.BaseURL()).Msg("identity backend selected")

	coordinator := refresh.NewCoordinator(w.backend.Provider.RefreshAccessToken,
		refresh.WithReuseWindow(c.GetRefreshReuseWindow()),
		refresh.WithTimeout(c.GetUpstreamTimeout()),
	)
	w.lifecycle = auth.NewTokenLifecycleManager(coordinator)
	w.verifier = discovery
	return w, nil
}

// newManagementStore keeps the management token in process, or in redis so
// that gateway replicas share one token.
func newManagementStore(ctx context.Context, c config.CacheConfig, w *wiring) (token.Store, error) {
	if c.GetManagementCacheBackend() != config.CacheRedis {
		return token.NewMemoryStore(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.GetRedisAddr(),
		Password: c.GetRedisPassword(),
		DB:       c.GetRedisDB(),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", c.GetRedisAddr(), err)
	}
	w.closers = append(w.closers, rdb.Close)
	logger.From(ctx).Info().Str("addr", c.GetRedisAddr()).Msg("management tokens cached in redis")
	return token.NewRedisStore(rdb, c.GetManagementCacheKey()), nil
}

func newSender(ctx context.Context, c config.EnvConfig) notify.Sender {
	if c.GetSmtpHost() == "" {
		logger.From(ctx).Warn().Msg("SMTP_HOST not set, notifications are dropped")
		return notify.NoopSender{}
	}
	return notify.NewSMTPSender(c.GetSmtpHost(), c.GetSmtpPort(), c.GetSmtpAccount(), c.GetSmtpPassword(), c.GetSmtpFrom())
}
