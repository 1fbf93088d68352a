// Package refresh implements refresh-token rotation with token families.
// Every grant opens a family; each rotation appends a child and retires its
// parent. Presenting an already-rotated token is treated as theft and
// revokes the entire family — a deliberate logout-on-suspected-compromise
// rather than silent tolerance.
package refresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const ReasonReuseDetected = "reuse_detected"

var (
	// ErrTokenInvalid covers unknown and revoked tokens alike.
	ErrTokenInvalid = errors.New("invalid refresh token")

	ErrTokenExpired = errors.New("refresh token expired")

	// ErrReuseDetected is returned after the family cascade has completed.
	ErrReuseDetected = errors.New("refresh token reuse detected")

	// ErrBindingMismatch reports a DPoP proof signed by a key other than the
	// one the token is bound to.
	ErrBindingMismatch = errors.New("DPoP proof does not match refresh token binding")
)

// Signer mints the refresh-token wire form. Implemented by token.Issuer.
type Signer interface {
	SignRefreshToken(ctx context.Context, p SignParams) (*Signed, error)
}

// SignParams mirrors token.RefreshTokenParams without importing it, so the
// issuer depends on this package's interface and not the other way around.
type SignParams struct {
	Subject   string
	TenantID  string
	ClientID  string
	DeviceID  string
	SessionID string
	Scope     string
	JKT       string
	FamilyID  string
}

type Signed struct {
	Raw       string
	JTI       string
	Kid       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// FamilyRevokedEvent notifies listeners that a family was revoked, carrying
// enough context to cascade into session revocation.
type FamilyRevokedEvent struct {
	FamilyID  string
	TenantID  string
	UserID    string
	SessionID string
	Reason    string
}

// FamilyRevokedListener is invoked synchronously, in registration order,
// after the revocation has committed and before any error is returned to the
// caller. Keeps the cascade observable and complete before an attacker can
// race a second request.
type FamilyRevokedListener func(ctx context.Context, event FamilyRevokedEvent)

// Manager drives the per-token state machine ISSUED → USED | REVOKED and the
// per-family state machine ACTIVE → REVOKED.
type Manager struct {
	repo      Repo
	signer    Signer
	listeners []FamilyRevokedListener
	nowFunc   func() time.Time
	log       zerolog.Logger
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.nowFunc = now }
}

func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithFamilyRevokedListener appends a post-commit revocation listener.
func WithFamilyRevokedListener(listener FamilyRevokedListener) ManagerOption {
	return func(m *Manager) { m.listeners = append(m.listeners, listener) }
}

func NewManager(repo Repo, signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:    repo,
		signer:  signer,
		nowFunc: time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// AddFamilyRevokedListener registers a listener after construction; used
// when the listener closes over services built later in the wiring.
func (m *Manager) AddFamilyRevokedListener(listener FamilyRevokedListener) {
	m.listeners = append(m.listeners, listener)
}

// HashToken is the storage form of a refresh token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// OpenParams describes the root token of a new family, created at code
// exchange.
type OpenParams struct {
	UserID    string
	TenantID  string
	ClientID  string
	DeviceID  string
	SessionID string
	Scope     string
	JKT       string
}

// Open mints and stores the root of a new token family.
func (m *Manager) Open(ctx context.Context, p OpenParams) (string, *Token, error) {
	familyID := uuid.New().String()
	signed, err := m.signer.SignRefreshToken(ctx, SignParams{
		Subject:   p.UserID,
		TenantID:  p.TenantID,
		ClientID:  p.ClientID,
		DeviceID:  p.DeviceID,
		SessionID: p.SessionID,
		Scope:     p.Scope,
		JKT:       p.JKT,
		FamilyID:  familyID,
	})
	if err != nil {
		return "", nil, err
	}

	root := &Token{
		ID:        uuid.New().String(),
		TokenHash: HashToken(signed.Raw),
		JKT:       p.JKT,
		Kid:       signed.Kid,
		JTI:       signed.JTI,
		FamilyID:  familyID,
		UserID:    p.UserID,
		ClientID:  p.ClientID,
		DeviceID:  p.DeviceID,
		SessionID: p.SessionID,
		TenantID:  p.TenantID,
		Scope:     p.Scope,
		IssuedAt:  signed.IssuedAt,
		ExpiresAt: signed.ExpiresAt,
	}
	if err := m.repo.Create(ctx, root); err != nil {
		return "", nil, err
	}
	return signed.Raw, root, nil
}

// Lookup resolves a presented token to its stored record without mutating
// state. Unknown tokens fail with ErrTokenInvalid.
func (m *Manager) Lookup(ctx context.Context, raw string) (*Token, error) {
	record, err := m.repo.GetByHash(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return record, nil
}

// Rotate exchanges a live token for its child. presentedJKT is the
// thumbprint of the key the caller just proved possession of; it must match
// the token's binding. Reuse of an already-rotated token revokes the whole
// family before the error is returned.
func (m *Manager) Rotate(ctx context.Context, raw, presentedJKT string) (string, *Token, error) {
	old, err := m.Lookup(ctx, raw)
	if err != nil {
		return "", nil, err
	}

	if old.Revoked {
		return "", nil, ErrTokenInvalid
	}

	if old.UsedAt != nil {
		m.revokeAndNotify(ctx, old, ReasonReuseDetected)
		return "", nil, ErrReuseDetected
	}

	now := m.nowFunc()
	if now.After(old.ExpiresAt) {
		return "", nil, ErrTokenExpired
	}

	if presentedJKT != old.JKT {
		return "", nil, ErrBindingMismatch
	}

	signed, err := m.signer.SignRefreshToken(ctx, SignParams{
		Subject:   old.UserID,
		TenantID:  old.TenantID,
		ClientID:  old.ClientID,
		DeviceID:  old.DeviceID,
		SessionID: old.SessionID,
		Scope:     old.Scope,
		JKT:       old.JKT,
		FamilyID:  old.FamilyID,
	})
	if err != nil {
		return "", nil, err
	}

	child := &Token{
		ID:        uuid.New().String(),
		TokenHash: HashToken(signed.Raw),
		JKT:       old.JKT,
		Kid:       signed.Kid,
		JTI:       signed.JTI,
		FamilyID:  old.FamilyID,
		ParentID:  old.ID,
		UserID:    old.UserID,
		ClientID:  old.ClientID,
		DeviceID:  old.DeviceID,
		SessionID: old.SessionID,
		TenantID:  old.TenantID,
		Scope:     old.Scope,
		IssuedAt:  signed.IssuedAt,
		ExpiresAt: signed.ExpiresAt,
	}

	if err := m.repo.Rotate(ctx, old.ID, now, child); err != nil {
		if errors.Is(err, ErrRotationConflict) {
			// Lost the race against another rotation of the same token:
			// indistinguishable from reuse, handled identically.
			m.revokeAndNotify(ctx, old, ReasonReuseDetected)
			return "", nil, ErrReuseDetected
		}
		return "", nil, err
	}

	return signed.Raw, child, nil
}

// RevokeFamily revokes every token in a family. Idempotent.
func (m *Manager) RevokeFamily(ctx context.Context, familyID, reason string) error {
	updated, err := m.repo.RevokeFamily(ctx, familyID, reason)
	if err != nil {
		return err
	}
	m.log.Info().Str("family_id", familyID).Str("reason", reason).Int64("tokens", updated).
		Msg("refresh token family revoked")
	return nil
}

// RevokeAllForUser revokes every family of a user, the compliance and
// global-logout entry point.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID, tenantID, reason string) error {
	_, err := m.repo.RevokeAllForUser(ctx, userID, tenantID, reason)
	return err
}

func (m *Manager) revokeAndNotify(ctx context.Context, token *Token, reason string) {
	m.log.Warn().
		Str("family_id", token.FamilyID).
		Str("tenant_id", token.TenantID).
		Str("reason", reason).
		Msg("refresh token reuse detected, revoking family")

	if _, err := m.repo.RevokeFamily(ctx, token.FamilyID, reason); err != nil {
		m.log.Error().Err(err).Str("family_id", token.FamilyID).Msg("family revocation failed")
	}
	event := FamilyRevokedEvent{
		FamilyID:  token.FamilyID,
		TenantID:  token.TenantID,
		UserID:    token.UserID,
		SessionID: token.SessionID,
		Reason:    reason,
	}
	for _, listener := range m.listeners {
		listener(ctx, event)
	}
}
