// Package testutil provides helpers for exercising fedwire endpoints in
// tests: fluent request building, wire response construction, and response
// assertions.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loomchat/fedwire"
)

// RequestBuilder constructs test HTTP requests with a fluent API.
type RequestBuilder struct {
	method      string
	path        string
	body        []byte
	headers     map[string]string
	queryParams map[string]string
}

// NewRequest creates a new request builder.
func NewRequest() *RequestBuilder {
	return &RequestBuilder{
		method:      "GET",
		path:        "/",
		headers:     make(map[string]string),
		queryParams: make(map[string]string),
	}
}

// GET sets the HTTP method to GET.
func (b *RequestBuilder) GET(path string) *RequestBuilder {
	b.method = "GET"
	b.path = path
	return b
}

// POST sets the HTTP method to POST.
func (b *RequestBuilder) POST(path string) *RequestBuilder {
	b.method = "POST"
	b.path = path
	return b
}

// PUT sets the HTTP method to PUT.
func (b *RequestBuilder) PUT(path string) *RequestBuilder {
	b.method = "PUT"
	b.path = path
	return b
}

// WithJSON sets the request body as JSON.
func (b *RequestBuilder) WithJSON(v any) *RequestBuilder {
	data, _ := json.Marshal(v)
	b.body = data
	b.headers["Content-Type"] = "application/json"
	return b
}

// WithBody sets the raw request body.
func (b *RequestBuilder) WithBody(body string) *RequestBuilder {
	b.body = []byte(body)
	return b
}

// WithHeader adds a header to the request.
func (b *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	b.headers[key] = value
	return b
}

// WithBearer sets the Authorization header with a bearer token.
func (b *RequestBuilder) WithBearer(token string) *RequestBuilder {
	b.headers["Authorization"] = "Bearer " + token
	return b
}

// WithQuery adds a query parameter.
func (b *RequestBuilder) WithQuery(key, value string) *RequestBuilder {
	b.queryParams[key] = value
	return b
}

// Build creates the HTTP request and a ResponseRecorder.
func (b *RequestBuilder) Build() (*http.Request, *httptest.ResponseRecorder) {
	path := b.path
	if len(b.queryParams) > 0 {
		params := []string{}
		for k, v := range b.queryParams {
			params = append(params, k+"="+v)
		}
		path += "?" + strings.Join(params, "&")
	}

	var req *http.Request
	if len(b.body) > 0 {
		req = httptest.NewRequest(b.method, path, bytes.NewReader(b.body))
	} else {
		req = httptest.NewRequest(b.method, path, nil)
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	return req, httptest.NewRecorder()
}

// Message converts the built request into a wire message, as the
// unmarshaller would receive it.
func (b *RequestBuilder) Message(t *testing.T) *fedwire.Message {
	t.Helper()
	req, _ := b.Build()
	msg, err := fedwire.MessageFromRequest(req, 0)
	if err != nil {
		t.Fatalf("failed to build wire message: %v", err)
	}
	return msg
}

// JSONResponse builds a wire response message with a JSON body.
func JSONResponse(t *testing.T, status int, v any) *fedwire.ResponseMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal response body: %v", err)
	}
	return &fedwire.ResponseMessage{
		Status: status,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   data,
	}
}

// RawResponse builds a wire response message with a verbatim body.
func RawResponse(status int, contentType, body string) *fedwire.ResponseMessage {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &fedwire.ResponseMessage{Status: status, Header: h, Body: []byte(body)}
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if w.Code != expectedStatus {
		t.Errorf("expected status %d, got %d\nBody: %s", expectedStatus, w.Code, w.Body.String())
	}
}

// AssertHeader checks that a response header has the expected value.
func AssertHeader(t *testing.T, w *httptest.ResponseRecorder, key, expectedValue string) {
	t.Helper()
	actual := w.Header().Get(key)
	if actual != expectedValue {
		t.Errorf("expected header %s=%s, got %s", key, expectedValue, actual)
	}
}

// ErrorEnvelope is the wire error body written by the mux.
type ErrorEnvelope struct {
	ErrCode      string `json:"errcode"`
	Error        string `json:"error,omitempty"`
	RetryAfterMS int64  `json:"retry_after_ms,omitempty"`
}

// AssertErrCode checks that the response body is an error envelope with the
// expected protocol error code.
func AssertErrCode(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) *ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode error envelope: %v\nBody: %s", err, w.Body.String())
	}
	if env.ErrCode != expectedCode {
		t.Errorf("expected errcode %s, got %s (message: %s)", expectedCode, env.ErrCode, env.Error)
	}
	return &env
}

// DecodeJSON decodes the response body into the provided value.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nBody: %s", err, w.Body.String())
	}
}
