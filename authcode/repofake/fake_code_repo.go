package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/authcode"
)

var _ authcode.Repo = (*FakeCodeRepo)(nil)

type FakeCodeRepo struct {
	codes map[string]*authcode.Code
	lock  sync.Mutex
}

func NewFakeCodeRepo() *FakeCodeRepo {
	return &FakeCodeRepo{codes: make(map[string]*authcode.Code)}
}

func (r *FakeCodeRepo) Insert(ctx context.Context, code *authcode.Code) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *code
	r.codes[code.Code] = &copied
	return nil
}

func (r *FakeCodeRepo) BindUser(ctx context.Context, code, userID, deviceID string, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	record, ok := r.codes[code]
	if !ok || now.After(record.ExpiresAt) {
		return authcode.ErrCodeInvalid
	}
	record.UserID = userID
	record.DeviceID = deviceID
	return nil
}

func (r *FakeCodeRepo) Consume(ctx context.Context, code string, now time.Time) (*authcode.Code, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	record, ok := r.codes[code]
	if !ok {
		return nil, authcode.ErrCodeInvalid
	}
	delete(r.codes, code)
	if now.After(record.ExpiresAt) {
		return nil, authcode.ErrCodeInvalid
	}
	copied := *record
	return &copied, nil
}

func (r *FakeCodeRepo) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var removed int64
	for code, record := range r.codes {
		if now.After(record.ExpiresAt) {
			delete(r.codes, code)
			removed++
		}
	}
	return removed, nil
}
