package praetor

import "context"

type contextKey int

const (
	ctxKeyAuth contextKey = iota
	ctxKeyMeta
)

// WithAuthContext returns a context carrying the authenticated identity.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, ctxKeyAuth, ac)
}

// AuthContextFrom extracts the authenticated identity, if present.
func AuthContextFrom(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(ctxKeyAuth).(*AuthContext)
	return ac, ok
}

// WithRequestMeta returns a context carrying request metadata.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, ctxKeyMeta, meta)
}

// RequestMetaFrom extracts request metadata. Returns the zero value when
// none is set.
func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(ctxKeyMeta).(RequestMeta)
	return meta
}
