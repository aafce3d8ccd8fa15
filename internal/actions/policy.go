// internal/actions/policy.go
package actions

import (
	"context"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// ActionPolicy is an optional rego gate evaluated on top of the role guard.
// With no policy configured every role-authorized action is allowed; with one,
// `data.dashboard.allow` must evaluate to true for the action input.
type ActionPolicy struct {
	query rego.PreparedEvalQuery
	on    bool
}

// LoadPolicy compiles the rego module at path. An empty path yields a
// disabled policy.
func LoadPolicy(ctx context.Context, path string) (*ActionPolicy, error) {
	if path == "" {
		return &ActionPolicy{}, nil
	}
	mod, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	q, err := rego.New(
		rego.Query("data.dashboard.allow"),
		rego.Module("dashboard.rego", string(mod)),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &ActionPolicy{query: q, on: true}, nil
}

// Allow evaluates the policy for an action attempted by role/org. Evaluation
// errors deny: a broken policy must fail closed.
func (p *ActionPolicy) Allow(ctx context.Context, action, role, orgID string) bool {
	if p == nil || !p.on {
		return true
	}
	rs, err := p.query.Eval(ctx, rego.EvalInput(map[string]any{
		"action": action,
		"role":   role,
		"org_id": orgID,
	}))
	if err != nil || len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false
	}
	allowed, _ := rs[0].Expressions[0].Value.(bool)
	return allowed
}
