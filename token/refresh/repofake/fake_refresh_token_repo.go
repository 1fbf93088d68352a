package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	byID   map[string]*refresh.Token
	byHash map[string]string // token hash -> id
	lock   sync.Mutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		byID:   make(map[string]*refresh.Token),
		byHash: make(map[string]string),
	}
}

func (r *FakeRefreshTokenRepo) Create(ctx context.Context, token *refresh.Token) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.create(token)
}

func (r *FakeRefreshTokenRepo) create(token *refresh.Token) error {
	copied := *token
	r.byID[token.ID] = &copied
	r.byHash[token.TokenHash] = token.ID
	return nil
}

func (r *FakeRefreshTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*refresh.Token, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	id, ok := r.byHash[tokenHash]
	if !ok {
		return nil, refresh.ErrTokenNotFound
	}
	copied := *r.byID[id]
	return &copied, nil
}

func (r *FakeRefreshTokenRepo) Rotate(ctx context.Context, oldID string, usedAt time.Time, child *refresh.Token) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	old, ok := r.byID[oldID]
	if !ok {
		return refresh.ErrTokenNotFound
	}
	if old.UsedAt != nil || old.Revoked {
		return refresh.ErrRotationConflict
	}

	used := usedAt
	old.UsedAt = &used
	old.ReplacedByID = child.ID
	return r.create(child)
}

func (r *FakeRefreshTokenRepo) RevokeFamily(ctx context.Context, familyID, reason string) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var updated int64
	for _, token := range r.byID {
		if token.FamilyID == familyID && !token.Revoked {
			token.Revoked = true
			token.RevokedReason = reason
			updated++
		}
	}
	return updated, nil
}

func (r *FakeRefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID, tenantID, reason string) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var updated int64
	for _, token := range r.byID {
		if token.UserID == userID && token.TenantID == tenantID && !token.Revoked {
			token.Revoked = true
			token.RevokedReason = reason
			updated++
		}
	}
	return updated, nil
}
