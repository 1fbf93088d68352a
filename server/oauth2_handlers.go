package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/auth"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/oauthmodel"
)

// Authorize handles GET /oauth2/authorize: validate the request, issue a
// pending code, and send the user agent back to the client's redirect URI.
// Every validation failure is answered with a problem response rather than an
// error redirect, so nothing ever travels to an unvalidated destination.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := auth.AuthorizationParameters{
			ResponseType:        q.Get("response_type"),
			ClientID:            q.Get("client_id"),
			TenantID:            q.Get("tenant_id"),
			RedirectURI:         q.Get("redirect_uri"),
			Scope:               q.Get("scope"),
			State:               q.Get("state"),
			CodeChallenge:       q.Get("code_challenge"),
			CodeChallengeMethod: q.Get("code_challenge_method"),
		}

		code, err := s.auth.Authorize(r.Context(), params)
		if err != nil {
			writeAuthError(w, r, "Authorization Request Rejected", err)
			return
		}

		redirect, _ := url.Parse(params.RedirectURI)
		values := redirect.Query()
		values.Set("code", code)
		if params.State != "" {
			values.Set("state", params.State)
		}
		redirect.RawQuery = values.Encode()
		http.Redirect(w, r, redirect.String(), http.StatusFound)
	}
}

// Login handles POST /auth/login: verify the resource owner's credentials
// and bind them to the pending authorization code.
func (s *Server) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeProblem(w, r, http.StatusBadRequest, "Malformed Request", "could not parse form")
			return
		}

		err := s.auth.Login(r.Context(), auth.LoginParams{
			Code:     r.PostFormValue("code"),
			TenantID: r.PostFormValue("tenant_id"),
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
			DeviceID: r.PostFormValue("device_id"),
		})
		if err != nil {
			writeAuthError(w, r, "Login Failed", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Token handles POST /oauth2/token for the authorization_code and
// refresh_token grants. The DPoP proof must cover this exact method and URL.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeOAuthProblem(w, r, http.StatusBadRequest, "Malformed Request", "could not parse form", oauthmodel.ErrorCodeInvalidRequest)
			return
		}

		request := oauthmodel.TokenRequest{
			GrantType:    r.PostFormValue("grant_type"),
			ClientID:     r.PostFormValue("client_id"),
			TenantID:     r.PostFormValue("tenant_id"),
			Code:         r.PostFormValue("code"),
			CodeVerifier: r.PostFormValue("code_verifier"),
			RedirectURI:  r.PostFormValue("redirect_uri"),
			RefreshToken: r.PostFormValue("refresh_token"),
			DeviceID:     r.PostFormValue("device_id"),
		}
		proof := auth.ProofParams{
			Raw: r.Header.Get("DPoP"),
			HTM: r.Method,
			HTU: requestURL(r),
		}

		response, err := s.auth.Token(r.Context(), request, proof)
		if err != nil {
			writeAuthError(w, r, "Token Request Rejected", err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, response)
	}
}

// Logout handles POST /oauth2/logout, authenticated by the session's own
// access token.
func (s *Server) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := bearerToken(r)
		if accessToken == "" {
			writeProblem(w, r, http.StatusUnauthorized, "Unauthorized", "missing access token")
			return
		}
		if err := s.auth.Logout(r.Context(), accessToken); err != nil {
			writeAuthError(w, r, "Logout Failed", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeAuthError maps a service error onto the problem response. The error
// message travels as the detail so callers and monitoring see which check
// failed; internal errors stay opaque.
func writeAuthError(w http.ResponseWriter, r *http.Request, title string, err error) {
	errorCode, status := auth.ErrorCode(err)
	detail := err.Error()
	if status >= http.StatusInternalServerError {
		detail = ""
	}
	writeOAuthProblem(w, r, status, title, detail, errorCode)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	for _, scheme := range []string{"DPoP ", "Bearer "} {
		if strings.HasPrefix(header, scheme) {
			return strings.TrimPrefix(header, scheme)
		}
	}
	return ""
}

type revokeUserRequest struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Reason   string `json:"reason"`
}

// RevokeUserSessions handles POST /identity/v1/sessions/revoke-user, the
// administrative kill switch for a subject.
func (s *Server) RevokeUserSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request revokeUserRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeProblem(w, r, http.StatusBadRequest, "Malformed Request", "could not parse body")
			return
		}
		if request.UserID == "" || request.TenantID == "" {
			writeProblem(w, r, http.StatusBadRequest, "Malformed Request", "user_id and tenant_id are required")
			return
		}

		count, err := s.auth.RevokeUserSessions(r.Context(), request.UserID, request.TenantID, request.Reason)
		if err != nil {
			writeAuthError(w, r, "Revocation Failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"revoked_sessions": count})
	}
}

type rotateKeyRequest struct {
	TenantID string `json:"tenant_id"`
}

// RotateSigningKey handles POST /identity/v1/keys/rotate: retire the
// tenant's active signing key and install a fresh one. The retired key keeps
// verifying until its expiry; keys already past expiry are expired in the
// same call.
func (s *Server) RotateSigningKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request rotateKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeProblem(w, r, http.StatusBadRequest, "Malformed Request", "could not parse body")
			return
		}
		if request.TenantID == "" {
			writeProblem(w, r, http.StatusBadRequest, "Malformed Request", "tenant_id is required")
			return
		}

		key, err := s.keys.Rotate(r.Context(), request.TenantID)
		if err != nil {
			writeProblem(w, r, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}
		expired, err := s.keys.ExpireRotatedKeys(r.Context(), request.TenantID)
		if err != nil {
			writeProblem(w, r, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"kid":          key.Kid,
			"expired_keys": expired,
		})
	}
}

// JWKS handles GET /.well-known/jwks.json. The set carries the tenant's
// active and rotated keys; rotated keys stay published until every token
// they signed has expired.
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.URL.Query().Get("tenant_id")
		if tenantID == "" {
			writeProblem(w, r, http.StatusBadRequest, "Malformed Request", "tenant_id is required")
			return
		}

		set, err := s.keys.JWKS(r.Context(), tenantID)
		if err != nil {
			writeProblem(w, r, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
		writeJSON(w, http.StatusOK, set)
	}
}

// WellKnownOpenIDConfig serves the discovery document.
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base := strings.TrimSuffix(s.config.GetBaseURL(), "/")
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer":                                base,
			"authorization_endpoint":                base + RouteOAuth2Authorize,
			"token_endpoint":                        base + RouteOAuth2Token,
			"jwks_uri":                              base + RouteWellKnownJWKS,
			"end_session_endpoint":                  base + RouteOAuth2Logout,
			"response_types_supported":              []string{oauthmodel.ResponseTypeCode},
			"grant_types_supported":                 []string{oauthmodel.GrantTypeAuthorizationCode, oauthmodel.GrantTypeRefreshToken},
			"code_challenge_methods_supported":      []string{"S256"},
			"dpop_signing_alg_values_supported":     []string{"ES256", "RS256"},
			"token_endpoint_auth_methods_supported": []string{"none"},
		})
	}
}

func (s *Server) Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
