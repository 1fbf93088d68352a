// Package server is the HTTP surface of the authorization server: the OAuth2
// endpoints, discovery documents, and the admin revocation API.
package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/auth"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/internal/config"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/ratelimit"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys"
)

type Server struct {
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	auth    *auth.Service
	keys    *keys.Manager
	limiter ratelimit.Limiter
	logger  zerolog.Logger
}

type Option func(*Server)

// WithRateLimiter installs a request throttle on the authentication
// endpoints.
func WithRateLimiter(limiter ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = limiter }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func New(cfg config.Config, authService *auth.Service, keyManager *keys.Manager, options ...Option) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		config:  cfg,
		auth:    authService,
		keys:    keyManager,
		limiter: ratelimit.NewFixedWindowLimiter(60, time.Minute),
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

// requestURL rebuilds the absolute URL of a request for the DPoP htu check.
func requestURL(r *http.Request) string {
	return getScheme(r) + "://" + r.Host + r.URL.Path
}
