package server

func (s *Server) initRoutes() {
	// OAuth2 endpoints
	s.RegisterRouteHandler("GET "+RouteOAuth2Authorize, ChainMiddleware(s.Authorize(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.Login(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Token, ChainMiddleware(s.Token(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Logout, ChainMiddleware(s.Logout(), s.APIMiddleware()...))

	// Admin APIs: revocation and key rotation
	s.RegisterRouteHandler("POST "+RouteRevokeUserSessions, ChainMiddleware(s.RevokeUserSessions(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteKeysRotate, ChainMiddleware(s.RotateSigningKey(), s.APIMiddleware()...))

	// Discovery and health
	s.RegisterRouteFunc("GET "+RouteWellKnownOpenIDConfig, s.WellKnownOpenIDConfig())
	s.RegisterRouteFunc("GET "+RouteWellKnownJWKS, s.JWKS())
	s.RegisterRouteFunc("GET "+RouteHealthz, s.Healthz())
}
