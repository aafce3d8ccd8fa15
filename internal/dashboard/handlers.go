package dashboard

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jmespath/go-jmespath"

	"orgportal/internal/actions"
	"orgportal/pkg/sessions"
)

// getTokens exposes the current session's tokens plus the decoded ID token
// payload. A jmespath expression in ?q= projects the payload.
func (a *App) getTokens(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessions.FromContext(r.Context())
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	payload := decodeJWTPayload(sess.IDToken)
	resp := map[string]any{
		"id_token":     sess.IDToken,
		"access_token": sess.AccessToken,
		"payload":      payload,
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		out, err := jmespath.Search(q, payload)
		if err != nil {
			writeError(w, "invalid query expression", http.StatusBadRequest)
			return
		}
		resp["payload"] = out
	}
	writeJSON(w, resp, http.StatusOK)
}

func (a *App) listConnections(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessions.FromContext(r.Context())
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	conns, err := a.view.List(r.Context(), sess.User.OrgID)
	if err != nil {
		a.log.Errorw("list connections", "org", sess.User.OrgID, "err", err)
		writeError(w, "there was a problem listing the connections", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"connections": conns}, http.StatusOK)
}

func (a *App) createEnrollment(w http.ResponseWriter, r *http.Request) {
	ticket, err := a.actions.CreateEnrollmentTicket(r.Context(), actions.None{})
	if err != nil {
		a.writeActionError(w, err)
		return
	}
	writeJSON(w, ticket, http.StatusCreated)
}

func (a *App) deleteConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeError(w, "connection id is required", http.StatusBadRequest)
		return
	}
	res, err := a.actions.DeleteConnection(r.Context(), id)
	if err != nil {
		a.writeActionError(w, err)
		return
	}
	writeJSON(w, res, http.StatusOK)
}

func (a *App) verifyDomain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Domain) == "" {
		writeError(w, "domain is required", http.StatusBadRequest)
		return
	}
	res, err := a.actions.VerifyDomain(r.Context(), body.Domain)
	if err != nil {
		a.writeActionError(w, err)
		return
	}
	writeJSON(w, res, http.StatusOK)
}

func (a *App) listVerifiedDomains(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessions.FromContext(r.Context())
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	domains, err := a.store.ListVerifiedDomains(r.Context(), sess.User.OrgID)
	if err != nil {
		a.log.Errorw("list verified domains", "org", sess.User.OrgID, "err", err)
		writeError(w, "there was a problem listing the domains", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"domains": domains}, http.StatusOK)
}

func (a *App) listAudit(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessions.FromContext(r.Context())
	if !ok {
		writeError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if sess.User.Role != "admin" {
		writeError(w, "not authorized", http.StatusForbidden)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	events, err := a.store.ListAudit(r.Context(), sess.User.OrgID, limit)
	if err != nil {
		a.log.Errorw("list audit events", "org", sess.User.OrgID, "err", err)
		writeError(w, "there was a problem listing the audit log", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"events": events}, http.StatusOK)
}

// writeActionError maps the structured guard failure to 403 and everything
// else to a 502 carrying the action's generic message.
func (a *App) writeActionError(w http.ResponseWriter, err error) {
	if errors.Is(err, actions.ErrNotAuthorized) {
		writeError(w, err.Error(), http.StatusForbidden)
		return
	}
	writeError(w, err.Error(), http.StatusBadGateway)
}

// decodeJWTPayload decodes the middle JWT segment without validating it.
// Validation already happened when the session middleware accepted the token.
func decodeJWTPayload(raw string) map[string]any {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return map[string]any{}
	}
	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{}
	}
	return m
}
