package repofake

import (
	"context"
	"sync"

	apperrors "github.com/latamteks-cmyk/SmartEdify-app-sub003/internal/errors"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	byID map[string]*users.User
	lock sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{byID: make(map[string]*users.User)}
}

func (r *FakeUserRepo) Add(user *users.User) {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *user
	r.byID[user.ID] = &copied
}

func (r *FakeUserRepo) GetByEmail(ctx context.Context, tenantID, email string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, user := range r.byID {
		if user.TenantID == tenantID && user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *FakeUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}
