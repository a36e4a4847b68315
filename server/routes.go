package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-bff/internal/metrics"
)

type middleware = func(http.HandlerFunc) http.HandlerFunc

func (s *Server) initRoutes() {
	// Sign-in flow
	s.RegisterRouteHandler("POST "+RouteSignUp, ChainMiddleware(s.SignUpHandler(), s.PublicMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSignIn, ChainMiddleware(s.SignInHandler(), s.PublicMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteVerifyMfa, ChainMiddleware(s.VerifyMfaHandler(), s.PublicMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.PublicMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSignOut, ChainMiddleware(s.SignOutHandler(), s.RequireAuth()))
	s.RegisterRouteHandler("GET "+RouteValidateToken, ChainMiddleware(s.ValidateTokenHandler(), s.requireAuth(forceRefreshRequested)))

	// Profile
	s.RegisterRouteHandler("GET "+RouteUser, ChainMiddleware(s.UserHandler(), s.RequireAuth()))
	s.RegisterRouteHandler("POST "+RouteUserUpdate, ChainMiddleware(s.UpdateUserHandler(), s.RequireAuth()))
	s.RegisterRouteHandler("POST "+RouteChangePassword, ChainMiddleware(s.ChangePasswordHandler(), s.RequireAuth()))

	// Roles
	admin := []middleware{s.RequireAuth(), s.RequireScope(s.config.GetRoleAdminScope())}
	s.RegisterRouteHandler("POST "+RouteRoleAdd, ChainMiddleware(s.AddRoleHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteRoleRemove, ChainMiddleware(s.RemoveRoleHandler(), admin...))

	// Operations
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler())
}

// HealthHandler reports liveness only; identity backends are not contacted.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]string{"status": "ok"})
	}
}
