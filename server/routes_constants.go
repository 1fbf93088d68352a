package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth2 Routes
	RouteOAuth2Authorize = "/oauth2/authorize"
	RouteOAuth2Token     = "/oauth2/token"
	RouteOAuth2Logout    = "/oauth2/logout"

	// Auth Routes - Login
	RouteAuthLogin = "/auth/login"

	// Identity Admin Routes
	RouteRevokeUserSessions = "/identity/v1/sessions/revoke-user"
	RouteKeysRotate         = "/identity/v1/keys/rotate"

	// Discovery Routes
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteWellKnownJWKS         = "/.well-known/jwks.json"

	// Operational Routes
	RouteHealthz = "/healthz"
)
