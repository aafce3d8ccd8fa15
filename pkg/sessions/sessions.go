// pkg/sessions/sessions.go
package sessions

import (
	"context"
)

// User is the identity slice of a session this system reads. The identity
// provider owns the session; everything here is read-only.
type User struct {
	Sub   string
	OrgID string
	Role  string
	Name  string
	Email string
}

type Session struct {
	User        User
	IDToken     string
	AccessToken string
}

// Provider yields the current session, if any. Implementations must perform
// at most one session read per call and never mutate state.
type Provider interface {
	Session(ctx context.Context) (Session, bool)
}

type ctxSessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	if v := ctx.Value(ctxSessionKey{}); v != nil {
		if s, ok := v.(Session); ok {
			return s, true
		}
	}
	return Session{}, false
}

// ContextProvider reads the session the HTTP middleware placed in context.
type ContextProvider struct{}

func (ContextProvider) Session(ctx context.Context) (Session, bool) {
	return FromContext(ctx)
}
