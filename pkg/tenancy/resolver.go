// pkg/tenancy/resolver.go
package tenancy

import (
	"net/http"
	"strings"
)

// RequestContext carries the inbound signals the resolver consumes. One per
// request; the request pipeline owns it.
type RequestContext struct {
	Host           string // Host header, required
	ForwardedProto string // X-Forwarded-Proto, used verbatim as the scheme
	Organization   string // ?organization= query param, optional
	Invitation     string // ?invitation= query param, forwarded opaquely
}

// Resolution maps a request to an organization identity and the canonical
// redirect domain. OrgName is empty when no organization could be determined.
// Domain always carries a scheme and the host.
type Resolution struct {
	OrgName string
	Domain  string
}

// Resolve maps request signals plus the configured base domain (with
// protocol) to a tenant resolution. Pure and total: a malformed host degrades
// to a best-effort domain string, never an error.
//
// Priority order:
//  1. Host outside the base domain: standalone custom domain, org taken from
//     the query param if present.
//  2. Host is the bare base domain: no subdomain, org from the query param.
//  3. Subdomain present and the query param names a different org: the param
//     wins and forces a switch to that org's canonical subdomain (covers
//     accepting an invitation for another organization).
//  4. Subdomain present otherwise: org is the subdomain, stay on the host.
func Resolve(req RequestContext, baseDomain string) Resolution {
	base := stripProtocol(baseDomain)
	host := req.Host
	org := req.Organization
	if !ValidLabel(org) {
		org = ""
	}

	var orgName, domain string
	sub, onBase := subdomainOf(host, base)
	switch {
	case !onBase:
		domain = host
		orgName = org
	case sub == "":
		domain = host
		orgName = org
	case org != "" && org != sub:
		orgName = org
		domain = org + "." + base
	default:
		orgName = sub
		domain = host
	}

	return Resolution{OrgName: orgName, Domain: req.ForwardedProto + "://" + domain}
}

// FromHTTPRequest builds a RequestContext from an inbound request. The
// resolver itself uses the scheme verbatim, so the missing-header fallback
// lives here: https unless X-Forwarded-Proto says otherwise.
func FromHTTPRequest(r *http.Request) RequestContext {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		if r.TLS != nil {
			proto = "https"
		} else {
			proto = "http"
		}
	}
	q := r.URL.Query()
	return RequestContext{
		Host:           r.Host,
		ForwardedProto: proto,
		Organization:   q.Get("organization"),
		Invitation:     q.Get("invitation"),
	}
}

// subdomainOf reports whether host belongs to the base domain, and the
// subdomain prefix if one exists. Matching is case-sensitive on a trailing
// dot boundary: evilexample.com does not belong to example.com.
func subdomainOf(host, base string) (sub string, onBase bool) {
	if base == "" || host == "" {
		return "", false
	}
	if host == base {
		return "", true
	}
	if strings.HasSuffix(host, "."+base) {
		return strings.TrimSuffix(host, "."+base), true
	}
	return "", false
}

func stripProtocol(s string) string {
	if i := strings.Index(s, "://"); i >= 0 {
		return s[i+3:]
	}
	return s
}

// ValidLabel reports whether s is a syntactically valid DNS label (the only
// thing we will ever splice into a redirect host). Empty is not valid.
func ValidLabel(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-' && i > 0 && i < len(s)-1:
		default:
			return false
		}
	}
	return true
}
