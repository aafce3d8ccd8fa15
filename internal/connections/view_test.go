// internal/connections/view_test.go
package connections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orgportal/internal/idp"
)

type fakeLister struct {
	calls int
	conns []idp.Connection
	err   error
}

func (f *fakeLister) ListConnections(ctx context.Context, orgID string) ([]idp.Connection, error) {
	f.calls++
	return f.conns, f.err
}

func TestViewCachesUntilInvalidated(t *testing.T) {
	lister := &fakeLister{conns: []idp.Connection{{ID: "con_1", Name: "okta", Strategy: "oidc"}}}
	v := NewView(zap.NewNop().Sugar(), lister, nil, time.Minute)
	ctx := context.Background()

	got, err := v.List(ctx, "org_1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, lister.calls)

	_, err = v.List(ctx, "org_1")
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls, "second read must hit the cache")

	v.Invalidate(ctx, "org_1")
	_, err = v.List(ctx, "org_1")
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls, "invalidation must force a refetch")
}

func TestViewCacheIsPerOrg(t *testing.T) {
	lister := &fakeLister{}
	v := NewView(zap.NewNop().Sugar(), lister, nil, time.Minute)
	ctx := context.Background()

	_, _ = v.List(ctx, "org_a")
	_, _ = v.List(ctx, "org_b")
	assert.Equal(t, 2, lister.calls)

	v.Invalidate(ctx, "org_a")
	_, _ = v.List(ctx, "org_b")
	assert.Equal(t, 2, lister.calls, "invalidating org_a must not evict org_b")
}

func TestViewUpstreamErrorNotCached(t *testing.T) {
	lister := &fakeLister{err: errors.New("upstream down")}
	v := NewView(zap.NewNop().Sugar(), lister, nil, time.Minute)
	ctx := context.Background()

	_, err := v.List(ctx, "org_1")
	require.Error(t, err)

	lister.err = nil
	_, err = v.List(ctx, "org_1")
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}
