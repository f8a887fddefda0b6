package auth

import "context"

type ctxKey struct{}

// WithSession stores the authenticated session on the context.
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, session)
}

// SessionFromContext returns the session attached by the session middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	session, ok := ctx.Value(ctxKey{}).(Session)
	if !ok || session.UserID == "" {
		return Session{}, false
	}
	return session, true
}
