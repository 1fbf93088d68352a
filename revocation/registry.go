// Package revocation records subject-, session-, and token-level revocation
// events. Each event carries a not_before watermark: tokens of matching
// scope issued before the watermark are invalid regardless of their own
// expiry, giving instantaneous global logout without tracking every
// outstanding token.
package revocation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type EventType string

const (
	TypeSession EventType = "SESSION"
	TypeToken   EventType = "TOKEN"
	TypeSubject EventType = "SUBJECT"
)

// Event is append-only; events are never updated or deleted.
type Event struct {
	ID        string
	Type      EventType
	Subject   string
	TenantID  string
	SessionID string
	JTI       string
	NotBefore time.Time
	CreatedAt time.Time
}

// Query names the scopes of a token under validation. Empty fields are not
// checked.
type Query struct {
	TenantID  string
	Subject   string
	SessionID string
	JTI       string
}

// Repo is the append-only event store.
type Repo interface {
	Append(ctx context.Context, event *Event) error

	// MaxNotBefore returns the greatest not_before across events matching
	// any populated scope of the query, or nil when none match.
	MaxNotBefore(ctx context.Context, q Query) (*time.Time, error)
}

type Registry struct {
	repo    Repo
	nowFunc func() time.Time
}

type RegistryOption func(*Registry)

func WithNowFunc(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.nowFunc = now }
}

func NewRegistry(repo Repo, options ...RegistryOption) *Registry {
	r := &Registry{repo: repo, nowFunc: time.Now}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// RecordParams describes a revocation event to append.
type RecordParams struct {
	Type      EventType
	Subject   string
	TenantID  string
	SessionID string
	JTI       string
	NotBefore time.Time
}

func (r *Registry) Record(ctx context.Context, p RecordParams) error {
	if p.NotBefore.IsZero() {
		p.NotBefore = r.nowFunc()
	}
	event := &Event{
		ID:        uuid.New().String(),
		Type:      p.Type,
		Subject:   p.Subject,
		TenantID:  p.TenantID,
		SessionID: p.SessionID,
		JTI:       p.JTI,
		NotBefore: p.NotBefore,
		CreatedAt: r.nowFunc(),
	}
	return errors.Wrap(r.repo.Append(ctx, event), "[Registry.Record] repo.Append")
}

// IsRevoked reports whether a token issued at iat is revoked for any of the
// query's scopes. The comparison is against the watermark, not wall clock: a
// token is revoked when it was issued before the latest matching not_before.
func (r *Registry) IsRevoked(ctx context.Context, q Query, iat time.Time) (bool, error) {
	watermark, err := r.repo.MaxNotBefore(ctx, q)
	if err != nil {
		return false, errors.Wrap(err, "[Registry.IsRevoked] repo.MaxNotBefore")
	}
	if watermark == nil {
		return false, nil
	}
	return iat.Before(*watermark), nil
}
