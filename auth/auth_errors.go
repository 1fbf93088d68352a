package auth

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop"
	apperrors "github.com/latamteks-cmyk/SmartEdify-app-sub003/internal/errors"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/oauthmodel"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/refresh"
)

// ErrorCode maps a service error to its OAuth2 error code and HTTP status.
// Invalid, expired, revoked, and reused tokens all collapse into
// invalid_grant so the endpoint cannot be used as an oracle for token state.
// Grant and proof failures answer 401: the caller failed to prove possession,
// which is an authentication failure, not a malformed request.
func ErrorCode(err error) (string, int) {
	switch {
	case errors.Is(err, dpop.ErrProofRequired),
		errors.Is(err, dpop.ErrProofInvalid),
		errors.Is(err, dpop.ErrProofExpired),
		errors.Is(err, dpop.ErrReplayDetected):
		return oauthmodel.ErrorCodeInvalidDPoPProof, http.StatusUnauthorized

	case errors.Is(err, refresh.ErrTokenInvalid),
		errors.Is(err, refresh.ErrTokenExpired),
		errors.Is(err, refresh.ErrReuseDetected),
		errors.Is(err, refresh.ErrBindingMismatch),
		errors.Is(err, apperrors.ErrInvalidGrant),
		errors.Is(err, apperrors.ErrInvalidCodeVerifier):
		return oauthmodel.ErrorCodeInvalidGrant, http.StatusUnauthorized

	case errors.Is(err, apperrors.ErrInvalidClient):
		return oauthmodel.ErrorCodeInvalidClient, http.StatusUnauthorized

	case errors.Is(err, apperrors.ErrInvalidScope):
		return oauthmodel.ErrorCodeInvalidScope, http.StatusBadRequest

	case errors.Is(err, apperrors.ErrInvalidRequest),
		errors.Is(err, apperrors.ErrInvalidRedirectURI):
		return oauthmodel.ErrorCodeInvalidRequest, http.StatusBadRequest

	case errors.Is(err, apperrors.ErrUnauthorized),
		errors.Is(err, apperrors.ErrInvalidCredentials),
		errors.Is(err, apperrors.ErrUserBlocked):
		return oauthmodel.ErrorCodeUnauthorized, http.StatusUnauthorized

	default:
		return oauthmodel.ErrorCodeServerError, http.StatusInternalServerError
	}
}
