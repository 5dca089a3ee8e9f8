package fedwire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Doer is the transport contract the client depends on. *http.Client
// satisfies it; so does any RoundTripper-backed wrapper that handles
// connection pooling, TLS, and retries.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client drives typed endpoint calls through an external transport. It holds
// the negotiated version set and credential; each call composes
// [Metadata.ResolvePath], [MarshalRequest], one transport exchange, and
// [UnmarshalResponse]. The client itself never retries and never caches.
//
// Configure with the With... methods before sharing the client across
// goroutines; afterwards it is read-only and safe for concurrent use.
type Client struct {
	base          *url.URL
	doer          Doer
	versions      []SpecVersion
	allowUnstable bool
	token         string
	sendToken     SendAccessToken
	logger        *slog.Logger
}

// NewClient creates a client for the server at baseURL. A nil doer falls
// back to http.DefaultClient.
func NewClient(baseURL string, doer Doer) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("fedwire: invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("fedwire: base URL %q needs a scheme and host", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{doer: doer, base: u}, nil
}

// WithVersions sets the negotiated spec-version set, normally the output of
// a server capability probe.
func (c *Client) WithVersions(versions ...SpecVersion) *Client {
	c.versions = versions
	return c
}

// WithAllowUnstable opts in to unstable path variants.
func (c *Client) WithAllowUnstable() *Client {
	c.allowUnstable = true
	return c
}

// WithAccessToken sets the bearer credential attached per each endpoint's
// authentication scheme.
func (c *Client) WithAccessToken(token string) *Client {
	c.token = token
	return c
}

// WithSendAccessToken overrides the per-call credential policy. The default
// attaches the token when the endpoint requires or accepts one.
func (c *Client) WithSendAccessToken(policy SendAccessToken) *Client {
	c.sendToken = policy
	return c
}

// WithLogger sets a custom logger. If not set, slog.Default() is used.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// Versions returns the client's negotiated version set.
func (c *Client) Versions() []SpecVersion { return c.versions }

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// Call performs one typed endpoint call. req must be a pointer to the
// endpoint's request struct (nil for empty requests); the decoded response
// is returned on success, and any failure comes back as a *Error value.
func Call[Res any](ctx context.Context, c *Client, ep *Endpoint, req any) (*Res, error) {
	name := ep.Metadata.Name()

	if req != nil {
		if err := validate.Struct(req); err != nil {
			var invalid *validator.InvalidValidationError
			if !errors.As(err, &invalid) {
				return nil, wrapError(KindSerialization, name, "request failed validation", err)
			}
		}
	}

	msg, err := MarshalRequest(ep, req, RequestOptions{
		Versions:      c.versions,
		AllowUnstable: c.allowUnstable,
		AccessToken:   c.token,
		SendToken:     c.sendToken,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := msg.HTTPRequest(ctx, c.base)
	if err != nil {
		return nil, wrapError(KindSerialization, name, "building HTTP request", err)
	}
	httpRes, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fedwire: %s: transport: %w", name, err)
	}
	defer httpRes.Body.Close()

	rm, err := ResponseFromHTTP(httpRes)
	if err != nil {
		return nil, fmt.Errorf("fedwire: %s: %w", name, err)
	}
	c.log().DebugContext(ctx, "endpoint call completed",
		slog.String("endpoint", name),
		slog.String("method", msg.Method),
		slog.String("path", msg.Path),
		slog.Int("status", rm.Status))

	out := new(Res)
	if err := UnmarshalResponse(ep, rm, out); err != nil {
		return nil, err
	}
	return out, nil
}
