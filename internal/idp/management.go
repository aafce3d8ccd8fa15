// internal/idp/management.go
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Connection is a federated identity configuration enrolled for an
// organization. Its lifecycle is owned entirely by the management API; this
// system only lists, creates (via ticket), and deletes.
type Connection struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	Strategy                string `json:"strategy"`
	AssignMembershipOnLogin bool   `json:"assignMembershipOnLogin"`
}

// EnrollmentTicket is a short-lived, provider-issued URL granting
// self-service configuration of a new connection. Never persisted locally.
type EnrollmentTicket struct {
	TicketURL string `json:"ticketUrl"`
}

// ConnectionConfig seeds the connection a self-service ticket will create.
type ConnectionConfig struct {
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
}

// APIError is a structured management API failure. Full detail is logged
// server-side; callers surface only generic messages.
type APIError struct {
	StatusCode int    `json:"status_code,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return "management api error"
	}
	parts := make([]string, 0, 3)
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status_code=%d", e.StatusCode))
	}
	if e.Code != "" {
		parts = append(parts, "code="+e.Code)
	}
	if e.Message != "" {
		parts = append(parts, "message="+e.Message)
	}
	if len(parts) == 0 {
		return "management api error"
	}
	return "management api error: " + strings.Join(parts, ", ")
}

// ManagementAPI is the slice of the external identity provider's management
// surface this system consumes.
type ManagementAPI interface {
	ListConnections(ctx context.Context, orgID string) ([]Connection, error)
	CreateSelfServiceTicket(ctx context.Context, profileID, orgID string, cfg ConnectionConfig) (EnrollmentTicket, error)
	DeleteConnection(ctx context.Context, connectionID string) error
	GetCustomDomain(ctx context.Context, orgID, domain string) (map[string]any, error)
}

type ClientConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Audience     string
	Timeout      time.Duration
}

// Client talks to the management API with a client-credentials token cached
// until shortly before expiry.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  *zap.SugaredLogger

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewClient(cfg ClientConfig, log *zap.SugaredLogger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Audience == "" {
		cfg.Audience = strings.TrimRight(cfg.BaseURL, "/") + "/api/v2/"
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: log}
}

func (c *Client) ListConnections(ctx context.Context, orgID string) ([]Connection, error) {
	var raw []struct {
		ConnectionID            string `json:"connection_id"`
		AssignMembershipOnLogin bool   `json:"assign_membership_on_login"`
		Connection              struct {
			Name     string `json:"name"`
			Strategy string `json:"strategy"`
		} `json:"connection"`
	}
	path := fmt.Sprintf("/api/v2/organizations/%s/enabled_connections", url.PathEscape(orgID))
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Connection, 0, len(raw))
	for _, e := range raw {
		out = append(out, Connection{
			ID:                      e.ConnectionID,
			Name:                    e.Connection.Name,
			Strategy:                e.Connection.Strategy,
			AssignMembershipOnLogin: e.AssignMembershipOnLogin,
		})
	}
	return out, nil
}

func (c *Client) CreateSelfServiceTicket(ctx context.Context, profileID, orgID string, cfg ConnectionConfig) (EnrollmentTicket, error) {
	body := map[string]any{
		"enabled_organizations": []map[string]string{{"organization_id": orgID}},
		"connection_config":     cfg,
	}
	var resp struct {
		Ticket string `json:"ticket"`
	}
	path := fmt.Sprintf("/api/v2/self-service-profiles/%s/sso-ticket", url.PathEscape(profileID))
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return EnrollmentTicket{}, err
	}
	return EnrollmentTicket{TicketURL: resp.Ticket}, nil
}

func (c *Client) DeleteConnection(ctx context.Context, connectionID string) error {
	path := fmt.Sprintf("/api/v2/connections/%s", url.PathEscape(connectionID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) GetCustomDomain(ctx context.Context, orgID, domain string) (map[string]any, error) {
	var doc map[string]any
	path := fmt.Sprintf("/api/v2/organizations/%s/custom-domains/%s", url.PathEscape(orgID), url.PathEscape(domain))
	if err := c.do(ctx, http.MethodGet, path, nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// do performs an authenticated request and decodes the response into out
// (when out is non-nil). Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFrom(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiErrorFrom(resp *http.Response) *APIError {
	ae := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Code    string `json:"errorCode"`
		Message string `json:"message"`
	}
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); err == nil {
		if json.Unmarshal(b, &body) == nil {
			ae.Code = body.Code
			ae.Message = body.Message
		}
	}
	return ae
}

// accessToken returns a cached client-credentials token, refreshing it when
// within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Add(time.Minute).Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"audience":      {c.cfg.Audience},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apiErrorFrom(resp)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "empty access token"}
	}
	c.token = tok.AccessToken
	c.expires = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}
