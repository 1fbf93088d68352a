package keys

import (
	"context"
	"crypto/ecdsa"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Manager owns the signing-key lifecycle for every tenant. At most one key
// per tenant is active at a time during steady state; a missing active key
// is generated lazily so new tenants work without a provisioning step.
type Manager struct {
	repo        Repo
	keyLifetime time.Duration
	nowFunc     func() time.Time
	log         zerolog.Logger
}

type ManagerOption func(*Manager)

func WithKeyLifetime(lifetime time.Duration) ManagerOption {
	return func(m *Manager) { m.keyLifetime = lifetime }
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.nowFunc = now }
}

func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

func NewManager(repo Repo, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:        repo,
		keyLifetime: 90 * 24 * time.Hour,
		nowFunc:     time.Now,
		log:         zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// ActiveKey returns the tenant's current active key, generating one if none
// exists yet.
func (m *Manager) ActiveKey(ctx context.Context, tenantID string) (*SigningKey, error) {
	key, err := m.repo.ActiveKey(ctx, tenantID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, errors.Wrap(err, "[Manager.ActiveKey] repo.ActiveKey")
	}

	m.log.Info().Str("tenant_id", tenantID).Msg("no active signing key, generating one")
	key, err = Generate(tenantID, m.keyLifetime, m.nowFunc())
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.ActiveKey] Generate")
	}
	if err := m.repo.Insert(ctx, key); err != nil {
		return nil, errors.Wrap(err, "[Manager.ActiveKey] repo.Insert")
	}
	return key, nil
}

// Rotate marks the tenant's active key as rotated and installs a fresh
// active key. The rotated key keeps verifying until it expires.
func (m *Manager) Rotate(ctx context.Context, tenantID string) (*SigningKey, error) {
	current, err := m.repo.ActiveKey(ctx, tenantID)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return nil, errors.Wrap(err, "[Manager.Rotate] repo.ActiveKey")
	}
	if current != nil {
		if err := m.repo.UpdateStatus(ctx, current.Kid, StatusRotated); err != nil {
			return nil, errors.Wrap(err, "[Manager.Rotate] repo.UpdateStatus")
		}
	}

	key, err := Generate(tenantID, m.keyLifetime, m.nowFunc())
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Rotate] Generate")
	}
	if err := m.repo.Insert(ctx, key); err != nil {
		return nil, errors.Wrap(err, "[Manager.Rotate] repo.Insert")
	}
	m.log.Info().Str("tenant_id", tenantID).Str("kid", key.Kid).Msg("signing key rotated")
	return key, nil
}

// ExpireRotatedKeys transitions rotated keys past their expiry to expired,
// removing them from verification.
func (m *Manager) ExpireRotatedKeys(ctx context.Context, tenantID string) (int, error) {
	verification, err := m.repo.VerificationKeys(ctx, tenantID)
	if err != nil {
		return 0, errors.Wrap(err, "[Manager.ExpireRotatedKeys] repo.VerificationKeys")
	}

	now := m.nowFunc()
	expired := 0
	for _, key := range verification {
		if key.Status != StatusRotated || now.Before(key.ExpiresAt) {
			continue
		}
		if err := m.repo.UpdateStatus(ctx, key.Kid, StatusExpired); err != nil {
			return expired, errors.Wrap(err, "[Manager.ExpireRotatedKeys] repo.UpdateStatus")
		}
		expired++
	}
	return expired, nil
}

// VerificationKey resolves a kid to its public key. Expired keys do not
// verify.
func (m *Manager) VerificationKey(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	key, err := m.repo.FindByKid(ctx, kid)
	if err != nil {
		return nil, err
	}
	if key.Status == StatusExpired {
		return nil, ErrKeyNotFound
	}
	return key.Public()
}

// JWKS exports the tenant's verification keys (active and rotated).
func (m *Manager) JWKS(ctx context.Context, tenantID string) (*jose.JSONWebKeySet, error) {
	verification, err := m.repo.VerificationKeys(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.JWKS] repo.VerificationKeys")
	}

	set := &jose.JSONWebKeySet{}
	for _, key := range verification {
		jwk, err := key.JWK()
		if err != nil {
			m.log.Error().Err(err).Str("kid", key.Kid).Msg("skipping key in JWKS")
			continue
		}
		set.Keys = append(set.Keys, jwk)
	}
	return set, nil
}
