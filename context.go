package fedwire

import (
	"context"
	"net/http"
)

type contextKey struct {
	name string
}

var (
	requestKey = &contextKey{"request"}
	writerKey  = &contextKey{"writer"}
	tokenKey   = &contextKey{"access_token"}
	callKey    = &contextKey{"call_info"}
)

// RequestFromContext returns the raw HTTP request from a handler context.
func RequestFromContext(ctx context.Context) *http.Request {
	if r, ok := ctx.Value(requestKey).(*http.Request); ok {
		return r
	}
	return nil
}

// AccessTokenFromContext returns the bearer credential the mux extracted
// from the inbound request, if the endpoint's scheme carries one.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	if t, ok := ctx.Value(tokenKey).(string); ok && t != "" {
		return t, true
	}
	return "", false
}

// CallFromContext returns the metadata of the in-flight call.
func CallFromContext(ctx context.Context) (*CallInfo, bool) {
	info, ok := ctx.Value(callKey).(*CallInfo)
	return info, ok
}

// SetResponseHeader sets a header on the HTTP response being built.
// It requires that the handler was invoked via a Mux.
func SetResponseHeader(ctx context.Context, key, value string) {
	if w, ok := ctx.Value(writerKey).(http.ResponseWriter); ok {
		w.Header().Set(key, value)
	}
}

func newServerContext(ctx context.Context, w http.ResponseWriter, r *http.Request, info *CallInfo, token string) context.Context {
	ctx = context.WithValue(ctx, writerKey, w)
	ctx = context.WithValue(ctx, requestKey, r)
	ctx = context.WithValue(ctx, callKey, info)
	if token != "" {
		ctx = context.WithValue(ctx, tokenKey, token)
	}
	return ctx
}
