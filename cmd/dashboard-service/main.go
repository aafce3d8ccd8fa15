package main

import (
	"context"
	"net/http"
	"time"

	"orgportal/internal/actions"
	"orgportal/internal/authflow"
	"orgportal/internal/connections"
	"orgportal/internal/dashboard"
	"orgportal/internal/domaincheck"
	"orgportal/internal/enrollment"
	"orgportal/internal/idp"
	"orgportal/pkg/config"
	pdb "orgportal/pkg/db"
	"orgportal/pkg/logger"
	"orgportal/pkg/sessions"
	"orgportal/pkg/store"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, "dashboard")
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbPool := pdb.MustConnect(cfg, log)
	rdb := pdb.MustRedis(cfg, log)

	st := store.NewMemoryStore()
	if dbPool != nil {
		if err := store.EnsureSchema(ctx, dbPool); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		st = store.NewPostgresStore(dbPool, log)
	}

	verifier := sessions.NewVerifier(sessions.VerifierConfig{
		Issuer:     cfg.IssuerURL,
		Audience:   cfg.ClientID,
		JWKSURL:    cfg.JWKSURL,
		CookieName: cfg.SessionCookie,
		RoleClaim:  cfg.RoleClaim,
		OrgClaim:   cfg.OrgClaim,
	})

	mgmt := idp.NewClient(idp.ClientConfig{
		BaseURL:      cfg.MgmtBaseURL,
		ClientID:     cfg.MgmtClientID,
		ClientSecret: cfg.MgmtClientSecret,
		Audience:     cfg.MgmtAudience,
	}, log)

	view := connections.NewView(log, mgmt, rdb, cfg.ConnectionsCacheTTL)

	domainVerifier, err := domaincheck.NewManagementVerifier(mgmt, cfg.DomainCheckExpr)
	if err != nil {
		log.Fatalf("domain check expression: %v", err)
	}

	policy, err := actions.LoadPolicy(ctx, cfg.ActionPolicyPath)
	if err != nil {
		log.Fatalf("load action policy: %v", err)
	}

	profile := enrollment.Profile{
		ID:                    cfg.SelfServiceProfileID,
		ConnectionName:        "sso",
		ConnectionDisplayName: "Corporate SSO",
	}
	if cfg.ProfileRegistryPath != "" {
		profiles, err := enrollment.LoadProfiles(cfg.ProfileRegistryPath)
		if err != nil {
			log.Fatalf("load enrollment profiles: %v", err)
		}
		profile = enrollment.DefaultProfile(profiles, cfg.SelfServiceProfileID)
	}

	svc := actions.NewService(log, sessions.ContextProvider{}, mgmt, domainVerifier, view, st, policy, actions.Config{
		ProfileID:             profile.ID,
		ConnectionDisplayName: profile.ConnectionDisplayName,
		ConnectionName:        profile.ConnectionName,
	})

	flows := authflow.NewHandler(authflow.Config{
		BaseDomain:   cfg.BaseDomain,
		IssuerURL:    cfg.IssuerURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		CookieName:   cfg.SessionCookie,
		CookieTTL:    cfg.SessionTTL,
		SecureCookie: cfg.Env != "dev",
	}, log, verifier)

	app := dashboard.New(log, dashboard.Config{
		HTTPAddr:   cfg.HTTPAddr,
		Service:    "dashboard",
		BaseDomain: cfg.BaseDomain,
	}, verifier, flows, view, svc, st)

	log.Infof("dashboard listening at %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, app.Handler()); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
