// pkg/store/store.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// AuditEvent records the outcome of a guarded dashboard action.
type AuditEvent struct {
	OrgID   string    `json:"org_id"`
	Actor   string    `json:"actor"`
	Action  string    `json:"action"`
	Target  string    `json:"target,omitempty"`
	Allowed bool      `json:"allowed"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// VerifiedDomain is a custom domain that passed DNS verification for an org.
type VerifiedDomain struct {
	OrgID      string    `json:"org_id"`
	Domain     string    `json:"domain"`
	VerifiedAt time.Time `json:"verified_at"`
}

type Store interface {
	RecordAudit(ctx context.Context, ev AuditEvent) error
	ListAudit(ctx context.Context, orgID string, limit int) ([]AuditEvent, error)
	MarkDomainVerified(ctx context.Context, orgID, domain string) error
	ListVerifiedDomains(ctx context.Context, orgID string) ([]VerifiedDomain, error)
}

// memStore keeps everything in process; dev fallback when no database is
// configured.
type memStore struct {
	mu      sync.Mutex
	audit   []AuditEvent
	domains map[string]map[string]time.Time // orgID -> domain -> verified at
}

func NewMemoryStore() Store {
	return &memStore{domains: map[string]map[string]time.Time{}}
}

func (m *memStore) RecordAudit(ctx context.Context, ev AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	m.audit = append(m.audit, ev)
	return nil
}

func (m *memStore) ListAudit(ctx context.Context, orgID string, limit int) ([]AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AuditEvent
	for i := len(m.audit) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.audit[i].OrgID == orgID {
			out = append(out, m.audit[i])
		}
	}
	return out, nil
}

func (m *memStore) MarkDomainVerified(ctx context.Context, orgID, domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.domains[orgID] == nil {
		m.domains[orgID] = map[string]time.Time{}
	}
	if _, ok := m.domains[orgID][domain]; !ok {
		m.domains[orgID][domain] = time.Now()
	}
	return nil
}

func (m *memStore) ListVerifiedDomains(ctx context.Context, orgID string) ([]VerifiedDomain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []VerifiedDomain
	for d, at := range m.domains[orgID] {
		out = append(out, VerifiedDomain{OrgID: orgID, Domain: d, VerifiedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}
