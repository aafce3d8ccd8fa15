package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "orgportal/pkg/middleware"
)

// Handler builds the HTTP handler with routes and middleware.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.Logger)
	r.Use(mw.RequestID())
	r.Use(mw.Recover(a.log))
	r.Use(mw.Tracing(a.cfg.Service))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	a.flows.Mount(r)

	r.Group(func(ar chi.Router) {
		ar.Use(mw.Session(a.verifier))
		ar.Get("/api/me/tokens", a.getTokens)
		ar.Get("/api/organization/sso/connections", a.listConnections)
		ar.Post("/api/organization/sso/enrollment", a.createEnrollment)
		ar.Delete("/api/organization/sso/connections/{id}", a.deleteConnection)
		ar.Post("/api/organization/domains/verify", a.verifyDomain)
		ar.Get("/api/organization/domains", a.listVerifiedDomains)
		ar.Get("/api/organization/audit", a.listAudit)
	})

	return r
}
