package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop"
)

var _ dpop.ReplayGuard = (*FakeReplayGuard)(nil)

// FakeReplayGuard is an in-memory ReplayGuard for tests and single-instance
// development. The mutex stands in for the store's uniqueness constraint.
type FakeReplayGuard struct {
	entries map[string]dpop.ReplayEntry
	lock    sync.Mutex
}

func NewFakeReplayGuard() *FakeReplayGuard {
	return &FakeReplayGuard{entries: make(map[string]dpop.ReplayEntry)}
}

func (g *FakeReplayGuard) Register(ctx context.Context, tenantID, jkt, jti string, iat time.Time) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	key := tenantID + "\x00" + jkt + "\x00" + jti
	if _, exists := g.entries[key]; exists {
		return dpop.ErrReplayDetected
	}
	g.entries[key] = dpop.ReplayEntry{TenantID: tenantID, JKT: jkt, JTI: jti, IAT: iat}
	return nil
}

func (g *FakeReplayGuard) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	var removed int64
	for key, entry := range g.entries {
		if entry.IAT.Before(cutoff) {
			delete(g.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of registered entries.
func (g *FakeReplayGuard) Len() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return len(g.entries)
}
