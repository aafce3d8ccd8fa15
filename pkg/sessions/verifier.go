// pkg/sessions/verifier.go
package sessions

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// jwksCache caches JWKS sets per URL.
type jwksCache struct {
	mu   sync.RWMutex
	sets map[string]cachedJWKS
}

type cachedJWKS struct {
	set     jwk.Set
	expires time.Time
}

func (c *jwksCache) get(ctx context.Context, url string, ttl time.Duration) (jwk.Set, error) {
	c.mu.RLock()
	if e, ok := c.sets[url]; ok && time.Now().Before(e.expires) {
		c.mu.RUnlock()
		return e.set, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets == nil {
		c.sets = map[string]cachedJWKS{}
	}
	if e, ok := c.sets[url]; ok && time.Now().Before(e.expires) {
		return e.set, nil
	}
	set, err := jwk.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	c.sets[url] = cachedJWKS{set: set, expires: time.Now().Add(ttl)}
	return set, nil
}

// VerifierConfig names the claims and endpoints used to turn a raw token
// into a Session. Cryptographic validation is delegated to jwx.
type VerifierConfig struct {
	Issuer     string
	Audience   string
	JWKSURL    string
	CookieName string
	RoleClaim  string
	OrgClaim   string
}

type Verifier struct {
	cfg     VerifierConfig
	cache   *jwksCache
	jwksTTL time.Duration
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.RoleClaim == "" {
		cfg.RoleClaim = "role"
	}
	if cfg.OrgClaim == "" {
		cfg.OrgClaim = "org_id"
	}
	return &Verifier{cfg: cfg, cache: &jwksCache{}, jwksTTL: 6 * time.Hour}
}

// FromRequest extracts and validates the session carried by the request
// (session cookie, falling back to a bearer token). Absence or an invalid
// token yields no session; the caller decides whether that is an error.
func (v *Verifier) FromRequest(r *http.Request) (Session, bool) {
	raw := ""
	if c, err := r.Cookie(v.cfg.CookieName); err == nil {
		raw = c.Value
	}
	if raw == "" {
		authz := r.Header.Get("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			raw = strings.TrimSpace(authz[len("Bearer "):])
		}
	}
	if raw == "" {
		return Session{}, false
	}
	s, ok := v.Parse(r.Context(), raw)
	if !ok {
		return Session{}, false
	}
	if c, err := r.Cookie(v.cfg.CookieName + "_at"); err == nil {
		s.AccessToken = c.Value
	}
	return s, true
}

// Parse validates raw against the configured issuer/audience/JWKS and maps
// its claims onto a Session.
func (v *Verifier) Parse(ctx context.Context, raw string) (Session, bool) {
	set, err := v.cache.get(ctx, v.cfg.JWKSURL, v.jwksTTL)
	if err != nil {
		return Session{}, false
	}
	opts := []jwt.ParseOption{jwt.WithKeySet(set), jwt.WithValidate(true), jwt.WithVerify(true)}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}
	jt, err := jwt.Parse([]byte(raw), opts...)
	if err != nil {
		return Session{}, false
	}

	s := Session{IDToken: raw}
	s.User.Sub = jt.Subject()
	s.User.Role = stringClaim(jt, v.cfg.RoleClaim)
	s.User.OrgID = stringClaim(jt, v.cfg.OrgClaim)
	s.User.Name = stringClaim(jt, "name")
	s.User.Email = stringClaim(jt, "email")
	return s, true
}

func stringClaim(jt jwt.Token, name string) string {
	if v, ok := jt.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
