package repofake

import (
	"context"
	"sort"
	"sync"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys"
)

var _ keys.Repo = (*FakeKeyRepo)(nil)

type FakeKeyRepo struct {
	keys map[string]*keys.SigningKey
	lock sync.RWMutex
}

func NewFakeKeyRepo() *FakeKeyRepo {
	return &FakeKeyRepo{keys: make(map[string]*keys.SigningKey)}
}

func (r *FakeKeyRepo) Insert(ctx context.Context, key *keys.SigningKey) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *key
	r.keys[key.Kid] = &copied
	return nil
}

func (r *FakeKeyRepo) ActiveKey(ctx context.Context, tenantID string) (*keys.SigningKey, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var candidates []*keys.SigningKey
	for _, key := range r.keys {
		if key.TenantID == tenantID && key.Status == keys.StatusActive {
			candidates = append(candidates, key)
		}
	}
	if len(candidates) == 0 {
		return nil, keys.ErrKeyNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	copied := *candidates[0]
	return &copied, nil
}

func (r *FakeKeyRepo) FindByKid(ctx context.Context, kid string) (*keys.SigningKey, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	key, ok := r.keys[kid]
	if !ok {
		return nil, keys.ErrKeyNotFound
	}
	copied := *key
	return &copied, nil
}

func (r *FakeKeyRepo) VerificationKeys(ctx context.Context, tenantID string) ([]*keys.SigningKey, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var result []*keys.SigningKey
	for _, key := range r.keys {
		if key.TenantID != tenantID {
			continue
		}
		if key.Status == keys.StatusActive || key.Status == keys.StatusRotated {
			copied := *key
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *FakeKeyRepo) UpdateStatus(ctx context.Context, kid string, status keys.Status) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	key, ok := r.keys[kid]
	if !ok {
		return keys.ErrKeyNotFound
	}
	key.Status = status
	return nil
}
