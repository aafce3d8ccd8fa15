// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Single known base domain including protocol (e.g. https://app.example.com).
	// Tenants live on subdomains of it, or bring fully custom domains.
	BaseDomain string

	// Identity provider (authorization-code flow + session validation)
	IssuerURL    string
	ClientID     string
	ClientSecret string
	Audience     string
	JWKSURL      string // derived from issuer when empty
	RoleClaim    string
	OrgClaim     string

	SessionCookie string
	SessionTTL    time.Duration

	// Management API (connections, self-service tickets, custom domains)
	MgmtBaseURL      string
	MgmtClientID     string
	MgmtClientSecret string
	MgmtAudience     string

	// Self-service SSO enrollment
	SelfServiceProfileID string
	ProfileRegistryPath  string
	PopupWidth           int
	PopupHeight          int
	PopupFocus           bool

	// Domain verification readiness expression (JMESPath over the
	// management API custom-domain document)
	DomainCheckExpr string

	// Optional rego policy further restricting guarded actions
	ActionPolicyPath string

	ConnectionsCacheTTL time.Duration

	RedisURL    string
	DatabaseURL string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                  env("PORTAL_ENV", "dev"),
		HTTPAddr:             env("PORTAL_HTTP_ADDR", ":8080"),
		BaseDomain:           env("BASE_DOMAIN", "http://localhost:8080"),
		IssuerURL:            strings.TrimRight(env("OIDC_ISSUER", ""), "/"),
		ClientID:             env("OIDC_CLIENT_ID", ""),
		ClientSecret:         env("OIDC_CLIENT_SECRET", ""),
		Audience:             env("OIDC_AUDIENCE", "orgportal"),
		JWKSURL:              env("JWKS_URL", ""),
		RoleClaim:            env("SESSION_ROLE_CLAIM", "role"),
		OrgClaim:             env("SESSION_ORG_CLAIM", "org_id"),
		SessionCookie:        env("SESSION_COOKIE", "portal_session"),
		SessionTTL:           envDur("SESSION_TTL_SEC", 86400) * time.Second,
		MgmtBaseURL:          strings.TrimRight(env("MGMT_API_URL", ""), "/"),
		MgmtClientID:         env("MGMT_CLIENT_ID", ""),
		MgmtClientSecret:     env("MGMT_CLIENT_SECRET", ""),
		MgmtAudience:         env("MGMT_AUDIENCE", ""),
		SelfServiceProfileID: env("SELF_SERVICE_PROFILE_ID", "ssp_default"),
		ProfileRegistryPath:  env("PROFILE_REGISTRY_PATH", ""),
		PopupWidth:           envInt("ENROLLMENT_POPUP_WIDTH", 485),
		PopupHeight:          envInt("ENROLLMENT_POPUP_HEIGHT", 720),
		PopupFocus:           envBool("ENROLLMENT_POPUP_FOCUS", true),
		DomainCheckExpr:      env("DOMAIN_CHECK_EXPR", "status == 'ready'"),
		ActionPolicyPath:     env("ACTION_POLICY_PATH", ""),
		ConnectionsCacheTTL:  envDur("CONNECTIONS_CACHE_TTL_SEC", 300) * time.Second,
		RedisURL:             env("REDIS_URL", ""),
		DatabaseURL:          env("DATABASE_URL", ""),
	}
	if cfg.JWKSURL == "" && cfg.IssuerURL != "" {
		cfg.JWKSURL = cfg.IssuerURL + "/.well-known/jwks.json"
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set, using in-memory audit/domain store for dev")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return i
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
