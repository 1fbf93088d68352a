// Package authcode implements the single-use, short-lived authorization code
// store of the code+PKCE flow.
package authcode

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"
)

// Store issues and consumes authorization codes. All exclusivity lives in
// the Repo; the store adds code generation, TTL, and the redirect/binding
// checks performed at exchange time.
type Store struct {
	repo       Repo
	ttl        time.Duration
	codeLength int
	nowFunc    func() time.Time
}

type StoreOption func(*Store)

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

func WithCodeLength(n int) StoreOption {
	return func(s *Store) { s.codeLength = n }
}

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) { s.nowFunc = now }
}

func NewStore(repo Repo, options ...StoreOption) *Store {
	s := &Store{
		repo:       repo,
		ttl:        10 * time.Minute,
		codeLength: 32,
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// IssueParams carries everything a code is bound to at issuance.
type IssueParams struct {
	ClientID            string
	TenantID            string
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// Issue stores a new unbound code and returns its value.
func (s *Store) Issue(ctx context.Context, p IssueParams) (string, error) {
	raw := make([]byte, s.codeLength)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(err, "[Store.Issue] rand.Read")
	}
	code := base64.RawURLEncoding.EncodeToString(raw)

	now := s.nowFunc()
	record := &Code{
		Code:                code,
		ClientID:            p.ClientID,
		TenantID:            p.TenantID,
		RedirectURI:         p.RedirectURI,
		Scope:               p.Scope,
		CodeChallenge:       p.CodeChallenge,
		CodeChallengeMethod: p.CodeChallengeMethod,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.ttl),
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return "", errors.Wrap(err, "[Store.Issue] repo.Insert")
	}
	return code, nil
}

// Bind attaches the authenticated user to a pending code.
func (s *Store) Bind(ctx context.Context, code, userID, deviceID string) error {
	return s.repo.BindUser(ctx, code, userID, deviceID, s.nowFunc())
}

// Consume exchanges a code exactly once. The presented redirect URI must
// equal the one the code was issued for, and the code must have been bound
// to a user; both failures surface as ErrCodeInvalid.
func (s *Store) Consume(ctx context.Context, code, redirectURI string) (*Code, error) {
	record, err := s.repo.Consume(ctx, code, s.nowFunc())
	if err != nil {
		return nil, err
	}
	if record.RedirectURI != redirectURI {
		return nil, ErrCodeInvalid
	}
	if record.UserID == "" {
		return nil, ErrCodeInvalid
	}
	return record, nil
}

// PruneExpired removes codes past their expiry.
func (s *Store) PruneExpired(ctx context.Context) (int64, error) {
	return s.repo.PruneExpired(ctx, s.nowFunc())
}
