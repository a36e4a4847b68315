package server

// Route path constants
const (
	// Sign-in flow
	RouteSignUp         = "/signup"
	RouteSignIn         = "/signin"
	RouteVerifyMfa      = "/verify-mfa"
	RouteForgotPassword = "/forgot-password"
	RouteSignOut        = "/sign-out"
	RouteValidateToken  = "/validate-token"

	// Profile
	RouteUser           = "/user"
	RouteUserUpdate     = "/user/update"
	RouteChangePassword = "/user/change-password"

	// Roles
	RouteRoleAdd    = "/role/add"
	RouteRoleRemove = "/role/remove"

	// Operations
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

// Correlation headers
const (
	HeaderFERequestID  = "x-request-fe-id"
	HeaderBFFRequestID = "x-request-bff-id"
)

// QueryForceRefresh asks /validate-token to refresh even a valid token.
const QueryForceRefresh = "forceRefresh"
