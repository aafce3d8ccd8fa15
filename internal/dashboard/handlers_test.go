package dashboard

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orgportal/internal/actions"
	"orgportal/internal/connections"
	"orgportal/internal/idp"
	"orgportal/pkg/sessions"
	"orgportal/pkg/store"
)

type fakeMgmt struct {
	conns     []idp.Connection
	ticketErr error
	deleted   []string
}

func (f *fakeMgmt) ListConnections(ctx context.Context, orgID string) ([]idp.Connection, error) {
	return f.conns, nil
}

func (f *fakeMgmt) CreateSelfServiceTicket(ctx context.Context, profileID, orgID string, cfg idp.ConnectionConfig) (idp.EnrollmentTicket, error) {
	if f.ticketErr != nil {
		return idp.EnrollmentTicket{}, f.ticketErr
	}
	return idp.EnrollmentTicket{TicketURL: "https://idp.example.com/self-service/t1"}, nil
}

func (f *fakeMgmt) DeleteConnection(ctx context.Context, connectionID string) error {
	f.deleted = append(f.deleted, connectionID)
	return nil
}

func (f *fakeMgmt) GetCustomDomain(ctx context.Context, orgID, domain string) (map[string]any, error) {
	return map[string]any{"status": "ready"}, nil
}

type alwaysVerified struct{}

func (alwaysVerified) Verify(ctx context.Context, domain, orgID string) (bool, error) {
	return true, nil
}

func newTestApp(t *testing.T, mgmt *fakeMgmt) *App {
	t.Helper()
	log := zap.NewNop().Sugar()
	view := connections.NewView(log, mgmt, nil, time.Minute)
	svc := actions.NewService(log, sessions.ContextProvider{}, mgmt, alwaysVerified{}, view, store.NewMemoryStore(), nil, actions.Config{
		ProfileID:             "ssp_default",
		ConnectionDisplayName: "Corporate SSO",
		ConnectionName:        "corp-sso",
	})
	return &App{
		log:     log,
		cfg:     Config{Service: "dashboard"},
		view:    view,
		actions: svc,
		store:   store.NewMemoryStore(),
	}
}

// testRouter mirrors the authenticated API routes, injecting sess (if any)
// the way the session middleware would.
func testRouter(a *App, sess *sessions.Session) http.Handler {
	r := chi.NewRouter()
	if sess != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(sessions.WithSession(req.Context(), *sess)))
			})
		})
	}
	r.Get("/api/me/tokens", a.getTokens)
	r.Get("/api/organization/sso/connections", a.listConnections)
	r.Post("/api/organization/sso/enrollment", a.createEnrollment)
	r.Delete("/api/organization/sso/connections/{id}", a.deleteConnection)
	r.Post("/api/organization/domains/verify", a.verifyDomain)
	r.Get("/api/organization/audit", a.listAudit)
	return r
}

func adminSession() *sessions.Session {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"auth0|u1","org_id":"org_1","role":"admin"}`))
	return &sessions.Session{
		User:        sessions.User{Sub: "auth0|u1", OrgID: "org_1", Role: "admin"},
		IDToken:     "h." + payload + ".s",
		AccessToken: "at_1",
	}
}

func TestGetTokens(t *testing.T) {
	a := newTestApp(t, &fakeMgmt{})
	router := testRouter(a, adminSession())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me/tokens", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "at_1", body["access_token"])
	payload, ok := body["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "org_1", payload["org_id"])
}

func TestGetTokensJMESPathProjection(t *testing.T) {
	a := newTestApp(t, &fakeMgmt{})
	router := testRouter(a, adminSession())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me/tokens?q=role", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "admin", body["payload"])
}

func TestGetTokensUnauthenticated(t *testing.T) {
	a := newTestApp(t, &fakeMgmt{})
	router := testRouter(a, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me/tokens", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListConnections(t *testing.T) {
	mgmt := &fakeMgmt{conns: []idp.Connection{{ID: "con_1", Name: "okta", Strategy: "samlp"}}}
	a := newTestApp(t, mgmt)
	router := testRouter(a, adminSession())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/organization/sso/connections", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Connections []idp.Connection `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Connections, 1)
	assert.Equal(t, "con_1", body.Connections[0].ID)
}

func TestCreateEnrollmentReturnsTicketURL(t *testing.T) {
	a := newTestApp(t, &fakeMgmt{})
	router := testRouter(a, adminSession())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/organization/sso/enrollment", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "https://idp.example.com/self-service/t1", body["ticketUrl"])
}

func TestCreateEnrollmentForbiddenForViewer(t *testing.T) {
	mgmt := &fakeMgmt{}
	a := newTestApp(t, mgmt)
	viewer := adminSession()
	viewer.User.Role = "viewer"
	router := testRouter(a, viewer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/organization/sso/enrollment", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateEnrollmentUpstreamErrorIsGeneric(t *testing.T) {
	mgmt := &fakeMgmt{ticketErr: errors.New("profile ssp_default not found in tenant acme-prod")}
	a := newTestApp(t, mgmt)
	router := testRouter(a, adminSession())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/organization/sso/enrollment", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "acme-prod")
	assert.Contains(t, rec.Body.String(), "there was a problem creating the connection")
}

func TestDeleteConnection(t *testing.T) {
	mgmt := &fakeMgmt{}
	a := newTestApp(t, mgmt)
	router := testRouter(a, adminSession())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/organization/sso/connections/con_9", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"con_9"}, mgmt.deleted)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["success"])
}

func TestVerifyDomain(t *testing.T) {
	a := newTestApp(t, &fakeMgmt{})
	router := testRouter(a, adminSession())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/organization/domains/verify", bytes.NewBufferString(`{"domain":"acme.com"}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["verified"])
}

func TestVerifyDomainMissingBody(t *testing.T) {
	a := newTestApp(t, &fakeMgmt{})
	router := testRouter(a, adminSession())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/organization/domains/verify", bytes.NewBufferString(`{}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAuditRequiresAdmin(t *testing.T) {
	a := newTestApp(t, &fakeMgmt{})
	viewer := adminSession()
	viewer.User.Role = "viewer"
	router := testRouter(a, viewer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/organization/audit", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
