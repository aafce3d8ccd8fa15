// enroll is a desktop bring-up tool: it drives a full SSO enrollment against
// a running dashboard using the same orchestration the dashboard client runs.
// It requests a ticket, opens the self-service popup in a local browser, and
// refreshes the connections view once the popup is closed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"

	"orgportal/internal/enrollment"
	"orgportal/pkg/config"
	"orgportal/pkg/logger"
)

// toastLog renders notifications on the terminal instead of dashboard toasts.
type toastLog struct {
	log *zap.SugaredLogger
}

func (t toastLog) Success(msg string) { t.log.Infof("%s", msg) }
func (t toastLog) Error(msg string)   { t.log.Errorf("%s", msg) }

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, "enroll")
	defer log.Sync()

	base := strings.TrimRight(env("DASHBOARD_URL", cfg.BaseDomain), "/")
	session := os.Getenv("PORTAL_SESSION")
	if session == "" {
		log.Fatalf("PORTAL_SESSION (session cookie value) is required")
	}
	browser := env("ENROLL_BROWSER", "chromium")

	client := &http.Client{Timeout: 15 * time.Second}
	createTicket := func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/organization/sso/enrollment", nil)
		if err != nil {
			return "", err
		}
		req.AddCookie(&http.Cookie{Name: cfg.SessionCookie, Value: session})
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		var body struct {
			TicketURL string `json:"ticketUrl"`
			Error     string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", err
		}
		if resp.StatusCode != http.StatusCreated || body.TicketURL == "" {
			if body.Error != "" {
				return "", fmt.Errorf("%s", body.Error)
			}
			return "", fmt.Errorf("enrollment request failed: %s", resp.Status)
		}
		return body.TicketURL, nil
	}

	refresh := func(ctx context.Context) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/organization/sso/connections", nil)
		if err != nil {
			return
		}
		req.AddCookie(&http.Cookie{Name: cfg.SessionCookie, Value: session})
		resp, err := client.Do(req)
		if err != nil {
			log.Warnf("refresh connections: %v", err)
			return
		}
		defer resp.Body.Close()
		var body struct {
			Connections []struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				Strategy string `json:"strategy"`
			} `json:"connections"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			log.Warnf("refresh connections: %v", err)
			return
		}
		log.Infof("organization now has %d connection(s)", len(body.Connections))
		for _, c := range body.Connections {
			log.Infof("  %s  %s (%s)", c.ID, c.Name, c.Strategy)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	orch := enrollment.NewOrchestrator(
		log,
		createTicket,
		&enrollment.CommandLauncher{Browser: browser},
		refresh,
		toastLog{log: log},
		enrollment.PopupOptions{
			Width:      cfg.PopupWidth,
			Height:     cfg.PopupHeight,
			Title:      "Create an SSO connection",
			Focus:      cfg.PopupFocus,
			Scrollbars: true,
		},
		enrollment.Screen{AvailWidth: envInt("SCREEN_WIDTH", 1920), AvailHeight: envInt("SCREEN_HEIGHT", 1080)},
		enrollment.Viewport{Width: envInt("SCREEN_WIDTH", 1920), Height: envInt("SCREEN_HEIGHT", 1080)},
	)

	if err := orch.Enroll(ctx); err != nil {
		os.Exit(1)
	}
	log.Infof("popup open; finish the enrollment and close the window")

	select {
	case <-ctx.Done():
	case <-orch.Done():
		log.Infof("enrollment flow finished: %s", orch.State())
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	var n int
	if v := os.Getenv(k); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}
