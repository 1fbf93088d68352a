package dpop

import (
	"context"
	"errors"
	"time"
)

// ErrReplayDetected signals that a (tenant, jkt, jti) triple was presented
// more than once. Distinct from generic proof failures because it indicates
// an active attack worth alerting on.
var ErrReplayDetected = errors.New("DPoP proof replay detected")

// ReplayEntry is the persisted one-time registration of a proof. Insert is
// the only mutation; entries are never updated, and are deleted only by
// retention pruning.
type ReplayEntry struct {
	TenantID string
	JKT      string
	JTI      string
	IAT      time.Time
}

// ReplayGuard persists proof registrations behind a uniqueness constraint on
// (tenant_id, jkt, jti). Register must be an atomic insert so that of N
// concurrent identical registrations exactly one succeeds, across all
// instances sharing the store. Implementations must not cache "seen" sets in
// process; the store is the sole arbiter.
type ReplayGuard interface {
	// Register records the triple, returning ErrReplayDetected if it exists.
	Register(ctx context.Context, tenantID, jkt, jti string, iat time.Time) error

	// PruneBefore removes entries with iat older than cutoff and returns the
	// number removed. Safe once cutoff is at least the freshness window in
	// the past, since such proofs can no longer pass validation.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
