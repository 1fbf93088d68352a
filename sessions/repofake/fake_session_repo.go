package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/internal/utils"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	byID map[string]*sessions.Session
	lock sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{byID: make(map[string]*sessions.Session)}
}

func (r *FakeSessionRepo) Create(ctx context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *session
	r.byID[session.ID] = &copied
	return nil
}

func (r *FakeSessionRepo) GetByID(ctx context.Context, id string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	session, ok := r.byID[id]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *FakeSessionRepo) FindActive(ctx context.Context, userID, tenantID, deviceID string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, session := range r.byID {
		if session.UserID == userID && session.TenantID == tenantID &&
			session.DeviceID == deviceID && session.RevokedAt == nil {
			copied := *session
			return &copied, nil
		}
	}
	return nil, sessions.ErrSessionNotFound
}

func (r *FakeSessionRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	session, ok := r.byID[id]
	if !ok {
		return sessions.ErrSessionNotFound
	}
	if session.RevokedAt == nil {
		session.RevokedAt = utils.Ptr(at)
	}
	return nil
}

func (r *FakeSessionRepo) RevokeAllForUser(ctx context.Context, userID, tenantID string, at time.Time) ([]string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var revoked []string
	for _, session := range r.byID {
		if session.UserID == userID && session.TenantID == tenantID && session.RevokedAt == nil {
			session.RevokedAt = utils.Ptr(at)
			revoked = append(revoked, session.ID)
		}
	}
	return revoked, nil
}
