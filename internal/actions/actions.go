// internal/actions/actions.go
package actions

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"orgportal/internal/connections"
	"orgportal/internal/domaincheck"
	"orgportal/internal/idp"
	"orgportal/pkg/metrics"
	"orgportal/pkg/sessions"
	"orgportal/pkg/store"
)

// None is the input of guarded actions that take no argument.
type None struct{}

type VerifyResult struct {
	Verified bool `json:"verified"`
}

type DeleteResult struct {
	Success bool `json:"success"`
}

// Generic outward messages for upstream failures; full detail stays in the
// server log (the management API error may name internal resources).
var (
	errVerifyFailed = errors.New("failed to validate the domain")
	errCreateFailed = errors.New("there was a problem creating the connection")
	errDeleteFailed = errors.New("there was a problem deleting the connection")
)

// Config seeds the connection a self-service enrollment will create.
type Config struct {
	ProfileID             string
	ConnectionDisplayName string
	ConnectionName        string
}

// Service exposes the guarded dashboard actions. Each exported field is an
// already-wrapped operation: the role guard (admin) runs before anything
// else, so an unauthorized call performs no side effect at all.
type Service struct {
	log      *zap.SugaredLogger
	mgmt     idp.ManagementAPI
	verifier domaincheck.Verifier
	view     *connections.View
	store    store.Store
	policy   *ActionPolicy
	cfg      Config

	VerifyDomain           Guarded[string, VerifyResult]
	CreateEnrollmentTicket Guarded[None, idp.EnrollmentTicket]
	DeleteConnection       Guarded[string, DeleteResult]
}

func NewService(log *zap.SugaredLogger, prov sessions.Provider, mgmt idp.ManagementAPI, verifier domaincheck.Verifier, view *connections.View, st store.Store, policy *ActionPolicy, cfg Config) *Service {
	s := &Service{log: log, mgmt: mgmt, verifier: verifier, view: view, store: st, policy: policy, cfg: cfg}
	admin := RoleRequirement{Role: "admin"}
	s.VerifyDomain = RequireRole(prov, admin, s.verifyDomain)
	s.CreateEnrollmentTicket = RequireRole(prov, admin, s.createEnrollmentTicket)
	s.DeleteConnection = RequireRole(prov, admin, s.deleteConnection)
	return s
}

func (s *Service) verifyDomain(ctx context.Context, sess sessions.Session, domain string) (VerifyResult, error) {
	if strings.TrimSpace(domain) == "" {
		return VerifyResult{}, errors.New("domain is required")
	}
	if !s.allow(ctx, "verify_domain", sess) {
		return VerifyResult{}, ErrNotAuthorized
	}
	orgID := sess.User.OrgID
	verified, err := s.verifier.Verify(ctx, domain, orgID)
	if err != nil {
		s.log.Errorw("failed to validate the domain", "org", orgID, "domain", domain, "err", err)
		metrics.DomainVerifications.WithLabelValues("error").Inc()
		s.audit(ctx, sess, "verify_domain", domain, false, err.Error())
		return VerifyResult{}, errVerifyFailed
	}
	if verified {
		if err := s.store.MarkDomainVerified(ctx, orgID, domain); err != nil {
			s.log.Warnw("mark domain verified", "org", orgID, "domain", domain, "err", err)
		}
		metrics.DomainVerifications.WithLabelValues("verified").Inc()
	} else {
		metrics.DomainVerifications.WithLabelValues("unverified").Inc()
	}
	s.audit(ctx, sess, "verify_domain", domain, true, "")
	return VerifyResult{Verified: verified}, nil
}

func (s *Service) createEnrollmentTicket(ctx context.Context, sess sessions.Session, _ None) (idp.EnrollmentTicket, error) {
	if !s.allow(ctx, "create_enrollment_ticket", sess) {
		return idp.EnrollmentTicket{}, ErrNotAuthorized
	}
	orgID := sess.User.OrgID
	ticket, err := s.mgmt.CreateSelfServiceTicket(ctx, s.cfg.ProfileID, orgID, idp.ConnectionConfig{
		DisplayName: s.cfg.ConnectionDisplayName,
		Name:        s.cfg.ConnectionName,
	})
	if err != nil {
		s.log.Errorw("create sso enrollment ticket", "org", orgID, "profile", s.cfg.ProfileID, "err", err)
		metrics.EnrollmentTickets.WithLabelValues("error").Inc()
		s.audit(ctx, sess, "create_enrollment_ticket", "", false, err.Error())
		return idp.EnrollmentTicket{}, errCreateFailed
	}
	// the enrollment may add a connection; make the next list refetch
	s.view.Invalidate(ctx, orgID)
	metrics.EnrollmentTickets.WithLabelValues("created").Inc()
	s.audit(ctx, sess, "create_enrollment_ticket", "", true, "")
	return ticket, nil
}

func (s *Service) deleteConnection(ctx context.Context, sess sessions.Session, connectionID string) (DeleteResult, error) {
	if strings.TrimSpace(connectionID) == "" {
		return DeleteResult{}, errors.New("connection id is required")
	}
	if !s.allow(ctx, "delete_connection", sess) {
		return DeleteResult{}, ErrNotAuthorized
	}
	orgID := sess.User.OrgID
	if err := s.mgmt.DeleteConnection(ctx, connectionID); err != nil {
		s.log.Errorw("delete connection", "org", orgID, "connection", connectionID, "err", err)
		metrics.ConnectionDeletions.WithLabelValues("error").Inc()
		s.audit(ctx, sess, "delete_connection", connectionID, false, err.Error())
		return DeleteResult{}, errDeleteFailed
	}
	s.view.Invalidate(ctx, orgID)
	metrics.ConnectionDeletions.WithLabelValues("deleted").Inc()
	s.audit(ctx, sess, "delete_connection", connectionID, true, "")
	return DeleteResult{Success: true}, nil
}

func (s *Service) allow(ctx context.Context, action string, sess sessions.Session) bool {
	if s.policy.Allow(ctx, action, sess.User.Role, sess.User.OrgID) {
		return true
	}
	s.log.Warnw("action denied by policy", "action", action, "org", sess.User.OrgID, "actor", sess.User.Sub)
	s.audit(ctx, sess, action, "", false, "denied by policy")
	return false
}

func (s *Service) audit(ctx context.Context, sess sessions.Session, action, target string, allowed bool, detail string) {
	ev := store.AuditEvent{
		OrgID:   sess.User.OrgID,
		Actor:   sess.User.Sub,
		Action:  action,
		Target:  target,
		Allowed: allowed,
		Detail:  detail,
	}
	if err := s.store.RecordAudit(ctx, ev); err != nil {
		s.log.Warnw("record audit event", "action", action, "err", err)
	}
}
