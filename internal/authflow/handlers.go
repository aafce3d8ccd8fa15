// internal/authflow/handlers.go
package authflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"orgportal/pkg/metrics"
	"orgportal/pkg/sessions"
	"orgportal/pkg/tenancy"
)

// Config wires the handler to the identity provider and the platform's base
// domain.
type Config struct {
	BaseDomain   string // with protocol
	IssuerURL    string
	ClientID     string
	ClientSecret string
	CookieName   string
	CookieTTL    time.Duration
	SecureCookie bool
}

// Handler implements the login/callback/logout flow endpoints. Each endpoint
// resolves the tenant first and uses the resolution to parametrize the
// provider's authorization-code flow.
type Handler struct {
	cfg      Config
	log      *zap.SugaredLogger
	verifier *sessions.Verifier
	http     *http.Client
}

func NewHandler(cfg Config, log *zap.SugaredLogger, verifier *sessions.Verifier) *Handler {
	if cfg.CookieTTL == 0 {
		cfg.CookieTTL = 24 * time.Hour
	}
	return &Handler{cfg: cfg, log: log, verifier: verifier, http: &http.Client{Timeout: 15 * time.Second}}
}

// Mount registers the flow routes on the router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/api/auth/login", h.login)
	r.Get("/api/auth/signup", h.signup)
	r.Get("/api/auth/callback", h.callback)
	r.Get("/api/auth/logout", h.logout)
	r.Get("/api/auth/error", h.flowError)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	rc := tenancy.FromHTTPRequest(r)
	res := tenancy.Resolve(rc, h.cfg.BaseDomain)
	opts := LoginParams(res, rc.Invitation)
	metrics.LoginsStarted.Inc()
	h.authorize(w, r, opts)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	rc := tenancy.FromHTTPRequest(r)
	res := tenancy.Resolve(rc, h.cfg.BaseDomain)
	metrics.LoginsStarted.Inc()
	h.authorize(w, r, SignupParams(res))
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, opts LoginOptions) {
	state := uuid.NewString()
	h.setCookie(w, "portal_state", state, 10*time.Minute)
	h.setCookie(w, "portal_return_to", opts.ReturnTo, 10*time.Minute)

	q := url.Values{
		"response_type": {"code"},
		"client_id":     {h.cfg.ClientID},
		"redirect_uri":  {opts.AuthorizationParams.RedirectURI},
		"scope":         {"openid profile email"},
		"state":         {state},
	}
	if v := opts.AuthorizationParams.Organization; v != "" {
		q.Set("organization", v)
	}
	if v := opts.AuthorizationParams.Invitation; v != "" {
		q.Set("invitation", v)
	}
	if v := opts.AuthorizationParams.ScreenHint; v != "" {
		q.Set("screen_hint", v)
	}
	http.Redirect(w, r, h.cfg.IssuerURL+"/authorize?"+q.Encode(), http.StatusFound)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		msg := q.Get("error_description")
		if msg == "" {
			msg = errCode
		}
		h.fail(w, r, msg, nil)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, r, "missing authorization code", nil)
		return
	}
	stateCookie, err := r.Cookie("portal_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != q.Get("state") {
		h.fail(w, r, "state mismatch", err)
		return
	}

	rc := tenancy.FromHTTPRequest(r)
	res := tenancy.Resolve(rc, h.cfg.BaseDomain)
	redirectURI := CallbackParams(res).RedirectURI + "/api/auth/callback"

	idToken, accessToken, err := h.exchange(r.Context(), code, redirectURI)
	if err != nil {
		h.fail(w, r, "An error occured while authenticating the user.", err)
		return
	}
	if _, ok := h.verifier.Parse(r.Context(), idToken); !ok {
		h.fail(w, r, "An error occured while authenticating the user.", nil)
		return
	}

	h.setCookie(w, h.cfg.CookieName, idToken, h.cfg.CookieTTL)
	h.setCookie(w, h.cfg.CookieName+"_at", accessToken, h.cfg.CookieTTL)
	h.clearCookie(w, "portal_state")

	returnTo := "/dashboard/account/tokens"
	if c, err := r.Cookie("portal_return_to"); err == nil && c.Value != "" {
		returnTo = c.Value
	}
	h.clearCookie(w, "portal_return_to")
	metrics.Callbacks.WithLabelValues("ok").Inc()
	http.Redirect(w, r, returnTo, http.StatusFound)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	rc := tenancy.FromHTTPRequest(r)
	res := tenancy.Resolve(rc, h.cfg.BaseDomain)
	opts := LogoutParams(res)

	h.clearCookie(w, h.cfg.CookieName)
	h.clearCookie(w, h.cfg.CookieName+"_at")

	q := url.Values{
		"client_id": {h.cfg.ClientID},
		"returnTo":  {opts.ReturnTo},
	}
	http.Redirect(w, r, h.cfg.IssuerURL+"/v2/logout?"+q.Encode(), http.StatusFound)
}

// flowError renders the sanitized message carried by the error redirect.
func (h *Handler) flowError(w http.ResponseWriter, r *http.Request) {
	msg := sanitize(r.URL.Query().Get("error"))
	if msg == "" {
		msg = "An error occured while authenticating the user."
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// exchange trades the authorization code for tokens.
func (h *Handler) exchange(ctx context.Context, code, redirectURI string) (idToken, accessToken string, err error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {h.cfg.ClientID},
		"client_secret": {h.cfg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.IssuerURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := h.http.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	var tok struct {
		IDToken     string `json:"id_token"`
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", "", err
	}
	if resp.StatusCode != http.StatusOK || tok.IDToken == "" {
		msg := tok.Description
		if msg == "" {
			msg = tok.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		return "", "", &exchangeError{msg: msg}
	}
	return tok.IDToken, tok.AccessToken, nil
}

type exchangeError struct{ msg string }

func (e *exchangeError) Error() string { return "code exchange failed: " + e.msg }

// fail logs the full error server-side and redirects to the error route with
// a sanitized message only.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log.Errorw("auth flow error", "path", r.URL.Path, "msg", msg, "err", err)
	metrics.Callbacks.WithLabelValues("error").Inc()
	http.Redirect(w, r, "/api/auth/error?error="+url.QueryEscape(sanitize(msg)), http.StatusFound)
}

// sanitize bounds the outward message and strips control characters.
func sanitize(msg string) string {
	msg = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, msg)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return strings.TrimSpace(msg)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}
