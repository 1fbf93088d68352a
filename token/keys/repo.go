package keys

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("signing key not found")

// Repo stores signing keys. Keys are never hard-deleted while any issued
// token could still reference their kid.
type Repo interface {
	Insert(ctx context.Context, key *SigningKey) error

	// ActiveKey returns the newest active key for a tenant/algorithm, or
	// ErrKeyNotFound.
	ActiveKey(ctx context.Context, tenantID string) (*SigningKey, error)

	FindByKid(ctx context.Context, kid string) (*SigningKey, error)

	// VerificationKeys returns all active and rotated keys for a tenant.
	VerificationKeys(ctx context.Context, tenantID string) ([]*SigningKey, error)

	UpdateStatus(ctx context.Context, kid string, status Status) error
}
