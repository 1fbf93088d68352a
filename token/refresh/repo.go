package refresh

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTokenNotFound is internal to the storage layer; the manager folds
	// it into ErrTokenInvalid so unknown and revoked tokens are
	// indistinguishable to callers.
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrRotationConflict reports that the conditional mark-used update hit
	// zero rows: another request rotated the token first.
	ErrRotationConflict = errors.New("refresh token rotation conflict")
)

// Token is the stored server-side record of a refresh token. The client only
// ever holds the signed JWT; we keep its SHA-256 hash. parent_id and
// replaced_by_id form a strictly forward-pointing chain within a family.
type Token struct {
	ID            string
	TokenHash     string
	JKT           string
	Kid           string
	JTI           string
	FamilyID      string
	ParentID      string
	ReplacedByID  string
	UsedAt        *time.Time
	UserID        string
	ClientID      string
	DeviceID      string
	SessionID     string
	TenantID      string
	Scope         string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Revoked       bool
	RevokedReason string
}

// Repo stores refresh tokens. Rotate is the correctness-critical operation:
// it must atomically (in one store transaction) mark the old token used,
// insert the child, and link the chain — failing with ErrRotationConflict if
// the old token was concurrently used or revoked.
type Repo interface {
	Create(ctx context.Context, token *Token) error

	GetByHash(ctx context.Context, tokenHash string) (*Token, error)

	Rotate(ctx context.Context, oldID string, usedAt time.Time, child *Token) error

	// RevokeFamily marks every non-revoked token in the family revoked with
	// the given reason. Idempotent; returns the number of tokens updated.
	// A bulk update keyed by family_id, never a chain traversal.
	RevokeFamily(ctx context.Context, familyID, reason string) (int64, error)

	// RevokeAllForUser revokes every family belonging to a user in a tenant.
	RevokeAllForUser(ctx context.Context, userID, tenantID, reason string) (int64, error)
}
