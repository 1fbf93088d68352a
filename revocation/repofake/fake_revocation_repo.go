package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/internal/utils"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/revocation"
)

var _ revocation.Repo = (*FakeRevocationRepo)(nil)

type FakeRevocationRepo struct {
	events []revocation.Event
	lock   sync.RWMutex
}

func NewFakeRevocationRepo() *FakeRevocationRepo {
	return &FakeRevocationRepo{}
}

func (r *FakeRevocationRepo) Append(ctx context.Context, event *revocation.Event) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.events = append(r.events, *event)
	return nil
}

func (r *FakeRevocationRepo) MaxNotBefore(ctx context.Context, q revocation.Query) (*time.Time, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var max *time.Time
	for i := range r.events {
		event := &r.events[i]
		if event.TenantID != q.TenantID {
			continue
		}
		if !matches(event, q) {
			continue
		}
		if max == nil || event.NotBefore.After(*max) {
			max = utils.Ptr(event.NotBefore)
		}
	}
	return max, nil
}

func matches(event *revocation.Event, q revocation.Query) bool {
	switch event.Type {
	case revocation.TypeSubject:
		return q.Subject != "" && event.Subject == q.Subject
	case revocation.TypeSession:
		return q.SessionID != "" && event.SessionID == q.SessionID
	case revocation.TypeToken:
		return q.JTI != "" && event.JTI == q.JTI
	}
	return false
}

// Events returns a copy of everything appended so far.
func (r *FakeRevocationRepo) Events() []revocation.Event {
	r.lock.RLock()
	defer r.lock.RUnlock()

	copied := make([]revocation.Event, len(r.events))
	copy(copied, r.events)
	return copied
}
