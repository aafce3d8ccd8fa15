// pkg/tenancy/resolver_test.go
package tenancy

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	const base = "https://app.example.com"

	tests := []struct {
		name    string
		req     RequestContext
		wantOrg string
		wantDom string
	}{
		{
			name:    "bare base domain, no org param",
			req:     RequestContext{Host: "app.example.com", ForwardedProto: "https"},
			wantOrg: "",
			wantDom: "https://app.example.com",
		},
		{
			name:    "bare base domain, org param present",
			req:     RequestContext{Host: "app.example.com", ForwardedProto: "https", Organization: "acme"},
			wantOrg: "acme",
			wantDom: "https://app.example.com",
		},
		{
			name:    "subdomain present, no org param",
			req:     RequestContext{Host: "acme.app.example.com", ForwardedProto: "https"},
			wantOrg: "acme",
			wantDom: "https://acme.app.example.com",
		},
		{
			name:    "subdomain present, matching org param stays on host",
			req:     RequestContext{Host: "acme.app.example.com", ForwardedProto: "https", Organization: "acme"},
			wantOrg: "acme",
			wantDom: "https://acme.app.example.com",
		},
		{
			name:    "subdomain present, differing org param forces domain switch",
			req:     RequestContext{Host: "acme.app.example.com", ForwardedProto: "https", Organization: "globex"},
			wantOrg: "globex",
			wantDom: "https://globex.app.example.com",
		},
		{
			name:    "host outside base domain is standalone",
			req:     RequestContext{Host: "custom-tenant.io", ForwardedProto: "https", Organization: "acme"},
			wantOrg: "acme",
			wantDom: "https://custom-tenant.io",
		},
		{
			name:    "host outside base domain without org param",
			req:     RequestContext{Host: "custom-tenant.io", ForwardedProto: "http"},
			wantOrg: "",
			wantDom: "http://custom-tenant.io",
		},
		{
			// base domain must match on a dot boundary, not as a bare suffix
			name:    "suffix without dot boundary does not match base",
			req:     RequestContext{Host: "evilapp.example.com", ForwardedProto: "https"},
			wantOrg: "",
			wantDom: "https://evilapp.example.com",
		},
		{
			name:    "base domain embedded mid-host does not match",
			req:     RequestContext{Host: "notapp.example.com.attacker.io", ForwardedProto: "https"},
			wantOrg: "",
			wantDom: "https://notapp.example.com.attacker.io",
		},
		{
			name:    "nested subdomain keeps full prefix as org and stays on host",
			req:     RequestContext{Host: "eu.acme.app.example.com", ForwardedProto: "https"},
			wantOrg: "eu.acme",
			wantDom: "https://eu.acme.app.example.com",
		},
		{
			name:    "malformed org param is ignored",
			req:     RequestContext{Host: "acme.app.example.com", ForwardedProto: "https", Organization: "glo bex!"},
			wantOrg: "acme",
			wantDom: "https://acme.app.example.com",
		},
		{
			name:    "empty host degrades to scheme-only domain",
			req:     RequestContext{ForwardedProto: "https"},
			wantOrg: "",
			wantDom: "https://",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.req, base)
			assert.Equal(t, tt.wantOrg, got.OrgName)
			assert.Equal(t, tt.wantDom, got.Domain)
			assert.NotEmpty(t, got.Domain)
		})
	}
}

func TestResolveIsCaseSensitiveOnBase(t *testing.T) {
	got := Resolve(RequestContext{Host: "acme.App.Example.com", ForwardedProto: "https"}, "https://app.example.com")
	assert.Empty(t, got.OrgName)
	assert.Equal(t, "https://acme.App.Example.com", got.Domain)
}

func TestFromHTTPRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "http://acme.app.example.com/api/auth/login?organization=globex&invitation=inv_123", nil)
	r.Header.Set("X-Forwarded-Proto", "https")

	rc := FromHTTPRequest(r)
	require.Equal(t, "acme.app.example.com", rc.Host)
	assert.Equal(t, "https", rc.ForwardedProto)
	assert.Equal(t, "globex", rc.Organization)
	assert.Equal(t, "inv_123", rc.Invitation)
}

func TestFromHTTPRequestDefaultsProto(t *testing.T) {
	r := httptest.NewRequest("GET", "http://app.example.com/", nil)
	rc := FromHTTPRequest(r)
	assert.Equal(t, "http", rc.ForwardedProto)
}

func TestValidLabel(t *testing.T) {
	for _, ok := range []string{"acme", "acme-corp", "a", "0rg42"} {
		assert.True(t, ValidLabel(ok), ok)
	}
	for _, bad := range []string{"", "-acme", "acme-", "ac me", "ACME", "a.b", "acme!"} {
		assert.False(t, ValidLabel(bad), bad)
	}
}
