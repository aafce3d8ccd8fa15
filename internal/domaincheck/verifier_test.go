// internal/domaincheck/verifier_test.go
package domaincheck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	doc map[string]any
	err error
}

func (f *fakeFetcher) GetCustomDomain(ctx context.Context, orgID, domain string) (map[string]any, error) {
	return f.doc, f.err
}

func TestVerifyReady(t *testing.T) {
	v, err := NewManagementVerifier(&fakeFetcher{doc: map[string]any{"status": "ready"}}, "")
	require.NoError(t, err)

	ok, err := v.Verify(context.Background(), "login.acme.io", "org_1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPending(t *testing.T) {
	v, err := NewManagementVerifier(&fakeFetcher{doc: map[string]any{"status": "pending_verification"}}, "")
	require.NoError(t, err)

	ok, err := v.Verify(context.Background(), "login.acme.io", "org_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyCustomExpression(t *testing.T) {
	doc := map[string]any{"verification": map[string]any{"methods": []any{map[string]any{"name": "txt", "verified": true}}}}
	v, err := NewManagementVerifier(&fakeFetcher{doc: doc}, "verification.methods[0].verified == `true`")
	require.NoError(t, err)

	ok, err := v.Verify(context.Background(), "login.acme.io", "org_1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyUpstreamError(t *testing.T) {
	v, err := NewManagementVerifier(&fakeFetcher{err: errors.New("not found")}, "")
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "login.acme.io", "org_1")
	require.Error(t, err)
}

func TestBadExpressionRejected(t *testing.T) {
	_, err := NewManagementVerifier(&fakeFetcher{}, "status ==")
	require.Error(t, err)
}
