// Package oauthmodel defines the wire types of the OAuth2 endpoints.
package oauthmodel

const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"

	ResponseTypeCode = "code"

	// TokenTypeDPoP marks issued access tokens as proof-of-possession
	// bound; bearer use at a resource server must be rejected.
	TokenTypeDPoP = "DPoP"
)

// TokenRequest carries the form fields of a POST /oauth2/token call.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	TenantID     string
	Code         string
	CodeVerifier string
	RedirectURI  string
	RefreshToken string
	DeviceID     string
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// OAuth2 error codes from RFC 6749 §5.2 plus the DPoP additions of RFC 9449.
const (
	ErrorCodeInvalidRequest   = "invalid_request"
	ErrorCodeInvalidClient    = "invalid_client"
	ErrorCodeInvalidGrant     = "invalid_grant"
	ErrorCodeInvalidScope     = "invalid_scope"
	ErrorCodeUnauthorized     = "unauthorized_client"
	ErrorCodeUnsupportedGrant = "unsupported_grant_type"
	ErrorCodeInvalidDPoPProof = "invalid_dpop_proof"
	ErrorCodeServerError      = "server_error"
)
