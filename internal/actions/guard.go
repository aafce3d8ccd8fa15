// internal/actions/guard.go
package actions

import (
	"context"
	"errors"

	"orgportal/pkg/sessions"
)

// ErrNotAuthorized is the structured failure every guarded action returns
// when the session or role precondition fails. It is reported, never thrown,
// so callers can render it without a generic error boundary.
var ErrNotAuthorized = errors.New("not authorized")

// RoleRequirement is the static per-operation requirement compared against
// the session's role claim.
type RoleRequirement struct {
	Role string
}

// Operation is a privileged operation that runs with the authenticated
// session injected.
type Operation[In, Out any] func(ctx context.Context, s sessions.Session, in In) (Out, error)

// Guarded is the resulting callable: same signature minus the session.
type Guarded[In, Out any] func(ctx context.Context, in In) (Out, error)

// RequireRole wraps op with a session + role precondition. The guard is the
// sole gate: on a missing session or a role mismatch it returns
// ErrNotAuthorized without ever invoking op, so no side effect can escape an
// unauthorized call. It performs exactly one session read per invocation and
// mutates nothing; op's result, success or failure, propagates unchanged.
func RequireRole[In, Out any](prov sessions.Provider, req RoleRequirement, op Operation[In, Out]) Guarded[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		var zero Out
		s, ok := prov.Session(ctx)
		if !ok || s.User.Role != req.Role {
			return zero, ErrNotAuthorized
		}
		return op(ctx, s, in)
	}
}
