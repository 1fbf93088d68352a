package authcode

import (
	"context"
	"errors"
	"time"
)

// ErrCodeInvalid covers unknown, expired, already-consumed, and unbound
// codes alike, so callers cannot probe which check failed.
var ErrCodeInvalid = errors.New("invalid authorization code")

// Code binds an authorization code to its client, redirect URI, and PKCE
// challenge. UserID stays empty until interactive authentication binds it.
type Code struct {
	Code                string
	ClientID            string
	TenantID            string
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	UserID              string
	DeviceID            string
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// Repo manages server-side storage of pending authorization codes. Consume
// must be a single atomic operation in the backing store: a code is handed
// out exactly once, regardless of concurrent exchanges or instance count.
type Repo interface {
	Insert(ctx context.Context, code *Code) error

	// BindUser attaches the authenticated user to a pending code. Fails with
	// ErrCodeInvalid when the code is unknown or expired.
	BindUser(ctx context.Context, code, userID, deviceID string, now time.Time) error

	// Consume atomically removes and returns the code. Unknown, expired, and
	// already-consumed codes all fail with ErrCodeInvalid.
	Consume(ctx context.Context, code string, now time.Time) (*Code, error)

	// PruneExpired removes codes past their expiry.
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}
