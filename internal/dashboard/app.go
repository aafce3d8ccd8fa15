package dashboard

import (
	"go.uber.org/zap"

	"orgportal/internal/actions"
	"orgportal/internal/authflow"
	"orgportal/internal/connections"
	"orgportal/pkg/sessions"
	"orgportal/pkg/store"
)

// Config holds dashboard-specific configuration.
type Config struct {
	HTTPAddr   string
	Service    string
	BaseDomain string
}

// App is the dashboard application container.
// Handlers and middleware have methods on this type.
//
// Keep it lean: shared deps and config only.
// Request-scoped work should use context.
type App struct {
	log      *zap.SugaredLogger
	cfg      Config
	verifier *sessions.Verifier
	flows    *authflow.Handler
	view     *connections.View
	actions  *actions.Service
	store    store.Store
}

func New(log *zap.SugaredLogger, cfg Config, verifier *sessions.Verifier, flows *authflow.Handler, view *connections.View, svc *actions.Service, st store.Store) *App {
	return &App{
		log:      log,
		cfg:      cfg,
		verifier: verifier,
		flows:    flows,
		view:     view,
		actions:  svc,
		store:    st,
	}
}
