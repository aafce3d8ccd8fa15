// internal/domaincheck/verifier.go
package domaincheck

import (
	"context"
	"fmt"

	jmes "github.com/jmespath/go-jmespath"
)

// Verifier reports whether a custom domain's DNS records check out for the
// given organization. The verification algorithm itself lives behind this
// boundary; callers only consume the verdict.
type Verifier interface {
	Verify(ctx context.Context, domain, orgID string) (bool, error)
}

// CustomDomainFetcher returns the management API's custom-domain document.
type CustomDomainFetcher interface {
	GetCustomDomain(ctx context.Context, orgID, domain string) (map[string]any, error)
}

// ManagementVerifier asks the management API for the org's custom domain and
// evaluates readiness with a JMESPath expression over the returned document
// (default: `status == 'ready'`). The expression is configurable because
// providers disagree on the shape of their verification payloads.
type ManagementVerifier struct {
	fetcher CustomDomainFetcher
	expr    *jmes.JMESPath
}

func NewManagementVerifier(fetcher CustomDomainFetcher, expr string) (*ManagementVerifier, error) {
	if expr == "" {
		expr = "status == 'ready'"
	}
	compiled, err := jmes.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("domain check expression: %w", err)
	}
	return &ManagementVerifier{fetcher: fetcher, expr: compiled}, nil
}

func (v *ManagementVerifier) Verify(ctx context.Context, domain, orgID string) (bool, error) {
	doc, err := v.fetcher.GetCustomDomain(ctx, orgID, domain)
	if err != nil {
		return false, err
	}
	out, err := v.expr.Search(map[string]any(doc))
	if err != nil {
		return false, err
	}
	verified, _ := out.(bool)
	return verified, nil
}
