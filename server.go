package fedwire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Route is a registered endpoint handler. Routes are created with [Handle]
// and registered on a [Mux]; the interface is sealed.
type Route interface {
	Endpoint() *Endpoint
	serve(ctx context.Context, mux *Mux, msg *Message, w http.ResponseWriter, r *http.Request)
}

// Handle binds a typed handler function to an endpoint. The request is
// decoded with [UnmarshalRequest] and validated before the handler runs; the
// returned response is encoded with [MarshalResponse].
func Handle[Req any, Res any](ep *Endpoint, fn func(ctx context.Context, req *Req) (*Res, error)) Route {
	return &route[Req, Res]{ep: ep, fn: fn}
}

type route[Req any, Res any] struct {
	ep *Endpoint
	fn func(ctx context.Context, req *Req) (*Res, error)
}

func (rt *route[Req, Res]) Endpoint() *Endpoint { return rt.ep }

func (rt *route[Req, Res]) serve(ctx context.Context, mux *Mux, msg *Message, w http.ResponseWriter, r *http.Request) {
	md := rt.ep.Metadata

	req := new(Req)
	if err := UnmarshalRequest(rt.ep, msg, req); err != nil {
		mux.writeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			mux.writeError(w, wrapError(KindDeserialization, md.name, "request failed validation", err))
			return
		}
	}

	token, _ := AccessTokenFromMessage(msg)
	info := &CallInfo{Endpoint: md.name, Method: md.method}
	ctx = newServerContext(ctx, w, r, info, token)

	final := func(ctx context.Context, reqAny any) (any, error) {
		typed, ok := reqAny.(*Req)
		if !ok {
			return nil, newError(KindInternal, md.name, "interceptor replaced the request with the wrong type")
		}
		return rt.fn(ctx, typed)
	}
	res, err := buildChain(mux.interceptors, info, final)(ctx, req)
	if err != nil {
		mux.writeError(w, err)
		return
	}

	typedRes, ok := res.(*Res)
	if !ok && res != nil {
		mux.writeError(w, newError(KindInternal, md.name, "interceptor replaced the response with the wrong type"))
		return
	}
	if typedRes == nil {
		typedRes = new(Res)
	}
	out, err := MarshalResponse(rt.ep, typedRes, 0)
	if err != nil {
		mux.writeError(w, err)
		return
	}
	if err := out.Write(w); err != nil {
		mux.log().ErrorContext(ctx, "failed to write response",
			slog.String("endpoint", md.name),
			slog.Any("error", err))
	}
}

// Mux routes inbound HTTP requests to registered endpoints: the server
// mirror of [Client]. Matching is by method plus any of the endpoint's path
// templates; decode failures and handler errors are written as the
// protocol's error envelope.
type Mux struct {
	mu           sync.RWMutex
	routes       []Route
	logger       *slog.Logger
	interceptors []UnaryInterceptor
	middlewares  []func(http.Handler) http.Handler
	maxBody      int64
	maskInternal bool
}

// defaultMaxBody caps inbound request bodies at 1MB unless overridden.
const defaultMaxBody = 1 << 20

func NewMux() *Mux {
	return &Mux{maxBody: defaultMaxBody}
}

// WithLogger sets a custom logger. If not set, slog.Default() is used.
func (m *Mux) WithLogger(logger *slog.Logger) *Mux {
	m.logger = logger
	return m
}

// WithUnaryInterceptor adds a server interceptor. Interceptors run in the
// order added, outermost first.
func (m *Mux) WithUnaryInterceptor(i UnaryInterceptor) *Mux {
	m.interceptors = append(m.interceptors, i)
	return m
}

// WithMiddleware adds an HTTP middleware wrapping the whole mux.
// Middleware is applied in the order added (first added is outermost).
func (m *Mux) WithMiddleware(mw func(http.Handler) http.Handler) *Mux {
	m.middlewares = append(m.middlewares, mw)
	return m
}

// WithMaxRequestBodySize sets the maximum inbound body size in bytes.
// Zero means no limit. Default is 1MB.
func (m *Mux) WithMaxRequestBodySize(size int64) *Mux {
	m.maxBody = size
	return m
}

// WithMaskInternalErrors replaces internal error messages with a generic one
// so server-side details cannot leak to clients.
func (m *Mux) WithMaskInternalErrors() *Mux {
	m.maskInternal = true
	return m
}

// Register adds a route. Registering two routes under the same endpoint name
// logs a warning; when several routes match one inbound path, the first
// registered wins.
func (m *Mux) Register(rt Route) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.routes {
		if existing.Endpoint().Metadata.name == rt.Endpoint().Metadata.name {
			m.log().Warn("duplicate endpoint registration",
				slog.String("endpoint", rt.Endpoint().Metadata.name))
		}
	}
	m.routes = append(m.routes, rt)
}

// Handler returns an http.Handler with all configured middleware applied.
func (m *Mux) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(m.serveHTTP)
	for i := len(m.middlewares) - 1; i >= 0; i-- {
		h = m.middlewares[i](h)
	}
	return h
}

func (m *Mux) log() *slog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return slog.Default()
}

func (m *Mux) serveHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log().Error("panic recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			m.writeError(w, newErrorf(KindInternal, "", "internal server error: %v", rec))
		}
	}()

	msg, err := MessageFromRequest(r, m.maxBody)
	if err != nil {
		m.writeError(w, wrapError(KindDeserialization, "", "reading request", err))
		return
	}

	// Find the route whose path history matches. A path match with the
	// wrong method answers 405 rather than 404.
	var pathMatched bool
	m.mu.RLock()
	routes := m.routes
	m.mu.RUnlock()
	for _, rt := range routes {
		md := rt.Endpoint().Metadata
		matched := false
		for _, pv := range md.variants {
			if _, ok := pv.tmpl.match(msg.Path); ok {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if md.method != msg.Method {
			pathMatched = true
			continue
		}
		rt.serve(r.Context(), m, msg, w, r)
		return
	}
	if pathMatched {
		m.writeError(w, newErrorf(KindMethodMismatch, "", "method %s not allowed for %s", msg.Method, msg.Path))
		return
	}
	m.writeError(w, newErrorf(KindPath, "", "unrecognized request %s %s", msg.Method, msg.Path))
}

// writeError renders any handler or decode failure as the protocol's error
// envelope. Handlers may return *Error or *ProtocolError for full control;
// anything else becomes an internal error.
func (m *Mux) writeError(w http.ResponseWriter, err error) {
	status, pe := errorEnvelope(err)
	if m.maskInternal && pe.Code == ErrCodeUnknown {
		pe.Message = "internal server error"
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(pe); encodeErr != nil {
		m.log().Error("failed to encode error response",
			slog.String("errcode", pe.Code),
			slog.Any("error", encodeErr))
	}
}

// errorEnvelope maps an error to the wire status and structured body.
func errorEnvelope(err error) (int, *ProtocolError) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return protocolErrorStatus(pe.Code), pe
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind.HTTPStatus(), &ProtocolError{
			Code:    fe.Kind.errCode(),
			Message: fe.Message,
		}
	}
	return http.StatusInternalServerError, &ProtocolError{
		Code:    ErrCodeUnknown,
		Message: fmt.Sprintf("%v", err),
	}
}

// protocolErrorStatus maps well-known protocol error codes to HTTP statuses
// for handler-returned protocol errors.
func protocolErrorStatus(code string) int {
	switch code {
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeUnknownToken, ErrCodeMissingToken:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeUnrecognized:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
