// internal/connections/view.go
package connections

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"orgportal/internal/idp"
)

// Lister is the upstream source of an org's connections.
type Lister interface {
	ListConnections(ctx context.Context, orgID string) ([]idp.Connection, error)
}

// View serves the per-organization connections list through a cache so the
// dashboard does not hit the management API on every render. Invalidate drops
// the cached entry; the next List refetches, which is how newly enrolled or
// deleted connections become visible without a full reload.
type View struct {
	log    *zap.SugaredLogger
	lister Lister
	rdb    *redis.Client // nil -> in-process cache
	ttl    time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
}

type memEntry struct {
	conns   []idp.Connection
	expires time.Time
}

func NewView(log *zap.SugaredLogger, lister Lister, rdb *redis.Client, ttl time.Duration) *View {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &View{log: log, lister: lister, rdb: rdb, ttl: ttl, mem: map[string]memEntry{}}
}

func cacheKey(orgID string) string { return "connections:" + orgID }

func (v *View) List(ctx context.Context, orgID string) ([]idp.Connection, error) {
	if conns, ok := v.cached(ctx, orgID); ok {
		return conns, nil
	}
	conns, err := v.lister.ListConnections(ctx, orgID)
	if err != nil {
		return nil, err
	}
	v.fill(ctx, orgID, conns)
	return conns, nil
}

// Invalidate drops the cached list for the org. Cache errors are logged and
// swallowed: a stale entry expires by TTL anyway.
func (v *View) Invalidate(ctx context.Context, orgID string) {
	if v.rdb != nil {
		if err := v.rdb.Del(ctx, cacheKey(orgID)).Err(); err != nil {
			v.log.Warnw("connections cache invalidate", "org", orgID, "err", err)
		}
		return
	}
	v.mu.Lock()
	delete(v.mem, orgID)
	v.mu.Unlock()
}

func (v *View) cached(ctx context.Context, orgID string) ([]idp.Connection, bool) {
	if v.rdb != nil {
		b, err := v.rdb.Get(ctx, cacheKey(orgID)).Bytes()
		if err != nil {
			return nil, false
		}
		var conns []idp.Connection
		if err := json.Unmarshal(b, &conns); err != nil {
			return nil, false
		}
		return conns, true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.mem[orgID]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.conns, true
}

func (v *View) fill(ctx context.Context, orgID string, conns []idp.Connection) {
	if v.rdb != nil {
		b, err := json.Marshal(conns)
		if err != nil {
			return
		}
		if err := v.rdb.Set(ctx, cacheKey(orgID), b, v.ttl).Err(); err != nil {
			v.log.Warnw("connections cache fill", "org", orgID, "err", err)
		}
		return
	}
	v.mu.Lock()
	v.mem[orgID] = memEntry{conns: conns, expires: time.Now().Add(v.ttl)}
	v.mu.Unlock()
}
