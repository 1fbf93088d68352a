package errors

import (
	"errors"
)

// Shared error taxonomy for the identity core. The HTTP layer maps these to
// RFC 7807 problem responses; unknown codes/tokens are deliberately surfaced
// through ErrUnauthorized so callers cannot distinguish "does not exist"
// from "expired".
var (
	// Request errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidGrant   = errors.New("invalid grant")

	// ErrInvalidCodeVerifier is a PKCE mismatch. The message is the wire-level
	// detail string monitoring alerts match on, so it stays verbatim.
	ErrInvalidCodeVerifier = errors.New("Invalid code verifier")

	// Authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrUserNotFound       = errors.New("user not found")

	// Client errors
	ErrInvalidClient      = errors.New("invalid client")
	ErrInvalidScope       = errors.New("invalid scope")
	ErrInvalidRedirectURI = errors.New("invalid redirect URI")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInternal = errors.New("internal error")
)
