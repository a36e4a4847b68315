// Package server is the HTTP surface of the gateway: routes, middleware,
// cookie binding and the error envelope.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-bff/auth"
	"github.com/jrsteele09/go-auth-bff/internal/config"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
)

// AccessTokenVerifier checks the signature, issuer and audience of an access token.
// *upstream.Discovery is the production implementation.
type AccessTokenVerifier interface {
	VerifyAccessToken(ctx context.Context, rawToken string) error
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	backend   auth.Backend
	lifecycle *auth.TokenLifecycleManager
	verifier  AccessTokenVerifier
	session   SessionBinder
	limiter   *ipRateLimiter

	// trustProxy reads the client address from X-Forwarded-For
	trustProxy bool
}

type Option func(*Server)

// WithSessionBinder replaces the cookie settings read from the configuration.
func WithSessionBinder(b SessionBinder) Option {
	return func(s *Server) {
		s.session = b
	}
}

func New(cfg config.Config, backend auth.Backend, lifecycle *auth.TokenLifecycleManager, verifier AccessTokenVerifier, opts ...Option) (*Server, error) {
	if backend.Provider == nil || backend.Users == nil || backend.Roles == nil {
		return nil, fmt.Errorf("[Server New] incomplete backend")
	}
	if lifecycle == nil || verifier == nil {
		return nil, fmt.Errorf("[Server New] token lifecycle and verifier are required")
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		backend:   backend,
		lifecycle: lifecycle,
		verifier:  verifier,
		session:   NewSessionBinder(cfg.GetCookieDomain(), cfg.GetCookieSecure()),

		trustProxy: cfg.GetTrustProxy(),
	}
	if cfg.GetEnableRateLimiting() {
		s.limiter = newIPRateLimiter(cfg.GetRateLimitRPS(), cfg.GetRateLimitBurst())
	}
	for _, opt := range opts {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler is the server wrapped in the middleware every request goes
// through, including requests no route matches.
func (s *Server) Handler() http.Handler {
	return ChainMiddleware(s.ServeHTTP, s.StandardMiddleware()...)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	logger.From(context.Background()).Info().Msgf("[%s%s%s] %s", color, paddedMethod, ResetColor, path)
}
