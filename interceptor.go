package fedwire

import (
	"context"
)

// CallInfo describes the call an interceptor is observing.
type CallInfo struct {
	// Endpoint is the endpoint's diagnostic name.
	Endpoint string
	// Method is the endpoint's HTTP method.
	Method string
}

// HandlerFunc represents the next handler in an interceptor chain. It is
// passed to [UnaryInterceptor] functions to invoke the next interceptor or
// the final handler.
type HandlerFunc func(ctx context.Context, req any) (res any, err error)

// UnaryInterceptor is a hook that wraps handler execution on the server
// side. Interceptors can inspect or replace the request before calling next,
// inspect the response after, short-circuit by returning an error, or add
// values to the context. req and res are pointers to the endpoint's typed
// request and response structs.
type UnaryInterceptor func(ctx context.Context, info *CallInfo, req any, next HandlerFunc) (res any, err error)

// buildChain wires the interceptors around the final handler. The first
// interceptor in the slice is the outermost one.
func buildChain(interceptors []UnaryInterceptor, info *CallInfo, final HandlerFunc) HandlerFunc {
	chain := final
	for i := len(interceptors) - 1; i >= 0; i-- {
		current := interceptors[i]
		next := chain
		chain = func(ctx context.Context, req any) (any, error) {
			return current(ctx, info, req, next)
		}
	}
	return chain
}
