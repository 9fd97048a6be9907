package domain

import "context"

type sessionKey struct{}

// ContextWithSession threads the caller's session ID through the workflow so
// every external call can attach it for downstream observability and caching
// keys. It carries no access-control semantics.
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionFromContext returns the session ID, or "" when none was set.
func SessionFromContext(ctx context.Context) string {
	s, _ := ctx.Value(sessionKey{}).(string)
	return s
}
