package goAuthen

import "context"

type controllerContextKey struct{}
type clientIPContextKey struct{}

// WithController attaches c to ctx. Hosts do this before dispatching to the
// selected run-mode so handlers can query the authentication state.
func WithController(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, controllerContextKey{}, c)
}

// ControllerFromContext returns the controller attached by [WithController].
func ControllerFromContext(ctx context.Context) (*Controller, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(controllerContextKey{}).(*Controller)
	return c, ok && c != nil
}

// WithClientIP attaches the caller's IP address to ctx. The Engine records
// it on audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
