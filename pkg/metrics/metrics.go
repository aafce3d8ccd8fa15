// pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_logins_started_total",
		Help: "Login flows started.",
	})
	Callbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_callbacks_total",
		Help: "Authorization-code callbacks by outcome.",
	}, []string{"outcome"})
	EnrollmentTickets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_enrollment_tickets_total",
		Help: "Self-service SSO enrollment tickets by outcome.",
	}, []string{"outcome"})
	ConnectionDeletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_connection_deletions_total",
		Help: "SSO connection deletions by outcome.",
	}, []string{"outcome"})
	DomainVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_domain_verifications_total",
		Help: "Custom-domain verification attempts by outcome.",
	}, []string{"outcome"})
)
