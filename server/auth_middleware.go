package server

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
	"github.com/jrsteele09/go-auth-bff/internal/logger"
	"github.com/jrsteele09/go-auth-bff/token/jwt"
)

type contextKey string

const contextKeySession contextKey = "session"

// Session is what RequireAuth established about the caller. AccessToken is
// the token to use downstream, refreshed when needed.
type Session struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	Claims       *jwt.Claims
	Refreshed    bool
}

// SessionFrom returns the session RequireAuth stored in ctx.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKeySession).(*Session)
	return s, ok && s != nil
}

func neverForce(*http.Request) bool { return false }

func forceRefreshRequested(r *http.Request) bool {
	v := r.URL.Query().Get(QueryForceRefresh)
	return strings.EqualFold(v, "true") || v == "1"
}

// RequireAuth checks the access token from the token cookie or a Bearer
// header, refreshing it when expired. Refreshed tokens are rebound to cookies.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(neverForce)
}

func (s *Server) requireAuth(force func(*http.Request) bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			accessToken := bearerToken(r)
			if accessToken == "" {
				accessToken = s.session.Read(r, CookieToken)
			}
			if accessToken == "" {
				writeError(w, r, apperrors.ErrUnauthorized)
				return
			}

			if err := s.verifier.VerifyAccessToken(ctx, accessToken); err != nil {
				env := apperrors.From(err)
				if env.Kind == apperrors.KindUnauthorized {
					env = env.WithMessage(apperrors.MsgBadCredentials)
				}
				writeError(w, r, env)
				return
			}
			claims, err := jwt.Parse(accessToken)
			if err != nil {
				writeError(w, r, apperrors.ErrUnauthorized.WithMessage(apperrors.MsgBadCredentials).WithCause(err))
				return
			}

			sess := &Session{
				AccessToken:  accessToken,
				IDToken:      s.session.Read(r, CookieIDToken),
				RefreshToken: s.session.Read(r, CookieRefreshToken),
				Claims:       claims,
			}
			bundle, err := s.lifecycle.Ensure(ctx, claims, sess.RefreshToken, force(r))
			if err != nil {
				writeError(w, r, err)
				return
			}
			if bundle != nil {
				s.session.BindCookies(w, *bundle)
				sess.AccessToken = bundle.AccessToken
				if bundle.IDToken != "" {
					sess.IDToken = bundle.IDToken
				}
				sess.RefreshToken = bundle.RefreshToken
				if refreshed, err := jwt.Parse(bundle.AccessToken); err == nil {
					sess.Claims = refreshed
				}
				sess.Refreshed = true
				logger.From(ctx).Debug().Msg("access token refreshed")
			}

			next(w, r.WithContext(context.WithValue(ctx, contextKeySession, sess)))
		}
	}
}

// RequireScope rejects sessions whose access token lacks any of the scopes.
// Must run after RequireAuth.
func (s *Server) RequireScope(requiredScopes ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFrom(r.Context())
			if !ok {
				writeError(w, r, apperrors.ErrUnauthorized)
				return
			}
			for _, required := range requiredScopes {
				if required != "" && !sess.Claims.HasScope(required) {
					writeError(w, r, apperrors.ErrInvalidScope.WithDetail("missing scope "+required))
					return
				}
			}
			next(w, r)
		}
	}
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
