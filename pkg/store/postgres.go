// pkg/store/postgres.go
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgStore implements Store backed by PostgreSQL.
type pgStore struct {
	dbPool *pgxpool.Pool
	log    *zap.SugaredLogger
}

func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Store {
	return &pgStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates required tables if they do not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS audit_events (
  id BIGSERIAL PRIMARY KEY,
  org_id text NOT NULL,
  actor text,
  action text NOT NULL,
  target text,
  allowed boolean NOT NULL DEFAULT false,
  detail text,
  at timestamptz NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS audit_events_org_at ON audit_events (org_id, at DESC);
CREATE TABLE IF NOT EXISTS verified_domains (
  org_id text NOT NULL,
  domain text NOT NULL,
  verified_at timestamptz NOT NULL DEFAULT NOW(),
  PRIMARY KEY (org_id, domain)
);
`)
	return err
}

func (s *pgStore) RecordAudit(ctx context.Context, ev AuditEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.dbPool.Exec(ctx, `
INSERT INTO audit_events (org_id, actor, action, target, allowed, detail, at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ev.OrgID, ev.Actor, ev.Action, ev.Target, ev.Allowed, ev.Detail, at)
	return err
}

func (s *pgStore) ListAudit(ctx context.Context, orgID string, limit int) ([]AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.dbPool.Query(ctx, `
SELECT org_id, COALESCE(actor,''), action, COALESCE(target,''), allowed, COALESCE(detail,''), at
FROM audit_events WHERE org_id=$1 ORDER BY at DESC LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		if err := rows.Scan(&ev.OrgID, &ev.Actor, &ev.Action, &ev.Target, &ev.Allowed, &ev.Detail, &ev.At); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *pgStore) MarkDomainVerified(ctx context.Context, orgID, domain string) error {
	_, err := s.dbPool.Exec(ctx, `
INSERT INTO verified_domains (org_id, domain) VALUES ($1,$2)
ON CONFLICT (org_id, domain) DO NOTHING`, orgID, domain)
	return err
}

func (s *pgStore) ListVerifiedDomains(ctx context.Context, orgID string) ([]VerifiedDomain, error) {
	rows, err := s.dbPool.Query(ctx, `
SELECT org_id, domain, verified_at FROM verified_domains WHERE org_id=$1 ORDER BY domain`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VerifiedDomain
	for rows.Next() {
		var d VerifiedDomain
		if err := rows.Scan(&d.OrgID, &d.Domain, &d.VerifiedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
