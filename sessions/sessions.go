// Package sessions tracks authenticated device sessions. A session is the
// anchor every token family and revocation event hangs off: one session per
// user and device, re-login bumps the version and supersedes the old one.
package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/revocation"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	ID        string
	UserID    string
	TenantID  string
	DeviceID  string
	CnfJKT    string
	Version   int
	IssuedAt  time.Time
	NotAfter  time.Time
	RevokedAt *time.Time
}

func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.NotAfter)
}

type Repo interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)

	// FindActive returns the live session for a user/device pair, or
	// ErrSessionNotFound.
	FindActive(ctx context.Context, userID, tenantID, deviceID string) (*Session, error)

	// Revoke stamps revoked_at; revoking an already-revoked session is a
	// no-op.
	Revoke(ctx context.Context, id string, at time.Time) error

	// RevokeAllForUser revokes every live session of a user and returns
	// their IDs.
	RevokeAllForUser(ctx context.Context, userID, tenantID string, at time.Time) ([]string, error)
}

type Service struct {
	repo       Repo
	revocation *revocation.Registry
	sessionTTL time.Duration
	nowFunc    func() time.Time
	logger     zerolog.Logger
}

type ServiceOption func(*Service)

func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.sessionTTL = ttl }
}

func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) { s.nowFunc = now }
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func NewService(repo Repo, registry *revocation.Registry, options ...ServiceOption) *Service {
	s := &Service{
		repo:       repo,
		revocation: registry,
		sessionTTL: 30 * 24 * time.Hour,
		nowFunc:    time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// StartParams identifies the authenticated user and the proof-of-possession
// key the session is bound to.
type StartParams struct {
	UserID   string
	TenantID string
	DeviceID string
	CnfJKT   string
}

// Start opens a session for a user/device pair. An existing live session for
// the same pair is revoked first and its version carried forward, so a stolen
// older session cannot outlive a fresh login.
func (s *Service) Start(ctx context.Context, p StartParams) (*Session, error) {
	now := s.nowFunc()
	version := 1

	previous, err := s.repo.FindActive(ctx, p.UserID, p.TenantID, p.DeviceID)
	switch {
	case err == nil:
		if revokeErr := s.revokeOne(ctx, previous, now); revokeErr != nil {
			return nil, errors.Wrap(revokeErr, "[Service.Start] revoke previous")
		}
		version = previous.Version + 1
	case errors.Is(err, ErrSessionNotFound):
		// First login on this device.
	default:
		return nil, errors.Wrap(err, "[Service.Start] repo.FindActive")
	}

	session := &Session{
		ID:       uuid.New().String(),
		UserID:   p.UserID,
		TenantID: p.TenantID,
		DeviceID: p.DeviceID,
		CnfJKT:   p.CnfJKT,
		Version:  version,
		IssuedAt: now,
		NotAfter: now.Add(s.sessionTTL),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, "[Service.Start] repo.Create")
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("tenant_id", session.TenantID).
		Int("version", session.Version).
		Msg("session started")
	return session, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Get] repo.GetByID")
	}
	return session, nil
}

// Revoke ends a single session and records a SESSION revocation event so
// access tokens minted under it die at the watermark.
func (s *Service) Revoke(ctx context.Context, sessionID string) error {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return errors.Wrap(err, "[Service.Revoke] repo.GetByID")
	}
	return s.revokeOne(ctx, session, s.nowFunc())
}

func (s *Service) revokeOne(ctx context.Context, session *Session, at time.Time) error {
	if err := s.repo.Revoke(ctx, session.ID, at); err != nil {
		return errors.Wrap(err, "[Service.revokeOne] repo.Revoke")
	}
	err := s.revocation.Record(ctx, revocation.RecordParams{
		Type:      revocation.TypeSession,
		Subject:   session.UserID,
		TenantID:  session.TenantID,
		SessionID: session.ID,
		NotBefore: at,
	})
	if err != nil {
		return errors.Wrap(err, "[Service.revokeOne] revocation.Record")
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("tenant_id", session.TenantID).
		Msg("session revoked")
	return nil
}

// RevokeUserSessions ends every live session of a user and records a single
// SUBJECT revocation event covering all of the user's tokens.
func (s *Service) RevokeUserSessions(ctx context.Context, userID, tenantID string) (int, error) {
	now := s.nowFunc()
	revoked, err := s.repo.RevokeAllForUser(ctx, userID, tenantID, now)
	if err != nil {
		return 0, errors.Wrap(err, "[Service.RevokeUserSessions] repo.RevokeAllForUser")
	}

	err = s.revocation.Record(ctx, revocation.RecordParams{
		Type:      revocation.TypeSubject,
		Subject:   userID,
		TenantID:  tenantID,
		NotBefore: now,
	})
	if err != nil {
		return 0, errors.Wrap(err, "[Service.RevokeUserSessions] revocation.Record")
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("tenant_id", tenantID).
		Int("sessions", len(revoked)).
		Msg("all user sessions revoked")
	return len(revoked), nil
}
