package repofake

import (
	"context"
	"sync"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/clients"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

type FakeClientRepo struct {
	byID map[string]*clients.Client
	lock sync.RWMutex
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{byID: make(map[string]*clients.Client)}
}

func (r *FakeClientRepo) Add(client *clients.Client) {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *client
	r.byID[client.ID] = &copied
}

func (r *FakeClientRepo) GetByID(ctx context.Context, id string) (*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	client, ok := r.byID[id]
	if !ok {
		return nil, clients.ErrClientNotFound
	}
	copied := *client
	return &copied, nil
}
