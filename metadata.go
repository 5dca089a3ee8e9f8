package fedwire

import (
	"fmt"
	"net/http"
	"sort"
)

// AuthScheme is the fixed policy governing whether and how a credential must
// be attached to calls of an endpoint.
type AuthScheme uint8

const (
	// AuthNone endpoints never carry a credential. A token supplied by the
	// caller is silently ignored so it cannot leak to endpoints that do not
	// expect one.
	AuthNone AuthScheme = iota

	// AuthAccessToken endpoints require a bearer credential.
	AuthAccessToken

	// AuthAccessTokenOptional endpoints accept a credential if present and
	// work without one.
	AuthAccessTokenOptional

	// AuthServerSignature endpoints are authenticated by a server-to-server
	// request signature applied by the transport; no bearer credential is
	// attached here.
	AuthServerSignature
)

func (a AuthScheme) String() string {
	switch a {
	case AuthNone:
		return "none"
	case AuthAccessToken:
		return "access_token"
	case AuthAccessTokenOptional:
		return "access_token_optional"
	case AuthServerSignature:
		return "server_signature"
	default:
		return fmt.Sprintf("auth_scheme(%d)", uint8(a))
	}
}

// ParseAuthScheme parses the string form produced by AuthScheme.String.
func ParseAuthScheme(s string) (AuthScheme, error) {
	switch s {
	case "none", "":
		return AuthNone, nil
	case "access_token":
		return AuthAccessToken, nil
	case "access_token_optional":
		return AuthAccessTokenOptional, nil
	case "server_signature":
		return AuthServerSignature, nil
	default:
		return 0, fmt.Errorf("fedwire: unknown auth scheme %q", s)
	}
}

// PathVariant is one entry in an endpoint's path-template history: a template
// paired with the range of protocol generations over which it is the correct
// wire path, and a stability flag.
//
// A zero Added means "valid from the beginning"; a zero Removed means "not
// yet removed". Deprecated is advisory only and never affects resolution.
type PathVariant struct {
	Template   string
	Added      SpecVersion
	Deprecated SpecVersion
	Removed    SpecVersion

	// Unstable marks an opt-in variant from an unreleased proposal. Unstable
	// variants are only resolved when the caller explicitly allows them, and
	// stable variants always win ties against them.
	Unstable bool

	tmpl *pathTemplate
}

// ValidAt reports whether the variant is the correct wire path at version v.
func (pv PathVariant) ValidAt(v SpecVersion) bool {
	if !pv.Added.IsZero() && v.Less(pv.Added) {
		return false
	}
	if !pv.Removed.IsZero() && !v.Less(pv.Removed) {
		return false
	}
	return true
}

// overlaps reports whether two validity ranges share at least one version.
// Zero bounds are open.
func (pv PathVariant) overlaps(o PathVariant) bool {
	// pv starts before o ends, and o starts before pv ends.
	startsBeforeEnd := o.Removed.IsZero() || pv.Added.Less(o.Removed)
	otherStartsBeforeEnd := pv.Removed.IsZero() || o.Added.Less(pv.Removed)
	return startsBeforeEnd && otherStartsBeforeEnd
}

// Metadata is the immutable descriptor of one endpoint: HTTP method,
// authentication scheme, rate-limit hint, and the ordered set of path
// variants across protocol generations. It is created once per endpoint
// (normally by a declarative generator) and shared read-only across all
// calls; it must not be mutated after construction.
type Metadata struct {
	name        string
	method      string
	auth        AuthScheme
	rateLimited bool
	variants    []PathVariant
}

// NewMetadata compiles and validates an endpoint descriptor. Variants are
// stored most-recently-introduced first, stable before unstable; the order
// is fixed for the lifetime of the value.
func NewMetadata(name, method string, auth AuthScheme, variants ...PathVariant) (*Metadata, error) {
	if name == "" {
		return nil, fmt.Errorf("fedwire: endpoint metadata needs a diagnostic name")
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodHead, http.MethodOptions:
	default:
		return nil, fmt.Errorf("fedwire: endpoint %s: unsupported method %q", name, method)
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("fedwire: endpoint %s: at least one path variant is required", name)
	}

	compiled := make([]PathVariant, len(variants))
	copy(compiled, variants)
	for i := range compiled {
		t, err := parseTemplate(compiled[i].Template)
		if err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", name, err)
		}
		compiled[i].tmpl = t
	}

	// Two stable variants with different templates must not claim the same
	// versions; otherwise resolution would be ambiguous. Unstable variants
	// are opt-in and may shadow any range.
	for i := range compiled {
		for j := i + 1; j < len(compiled); j++ {
			a, b := compiled[i], compiled[j]
			if a.Unstable || b.Unstable {
				continue
			}
			if a.Template != b.Template && a.overlaps(b) {
				return nil, fmt.Errorf("fedwire: endpoint %s: stable variants %q and %q have overlapping validity ranges",
					name, a.Template, b.Template)
			}
		}
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].Unstable != compiled[j].Unstable {
			return !compiled[i].Unstable
		}
		return compiled[j].Added.Less(compiled[i].Added)
	})

	return &Metadata{
		name:     name,
		method:   method,
		auth:     auth,
		variants: compiled,
	}, nil
}

// MustMetadata is like NewMetadata but panics on error. Intended for
// package-level endpoint definitions.
func MustMetadata(name, method string, auth AuthScheme, variants ...PathVariant) *Metadata {
	m, err := NewMetadata(name, method, auth, variants...)
	if err != nil {
		panic(err)
	}
	return m
}

// RateLimited marks the endpoint as subject to server-side rate limiting.
// The flag is an advisory hint for transports; it must be set before the
// Metadata is shared.
func (m *Metadata) RateLimited() *Metadata {
	m.rateLimited = true
	return m
}

// Name returns the endpoint's diagnostic name.
func (m *Metadata) Name() string { return m.name }

// Method returns the endpoint's HTTP method.
func (m *Metadata) Method() string { return m.method }

// Auth returns the endpoint's authentication scheme.
func (m *Metadata) Auth() AuthScheme { return m.auth }

// IsRateLimited reports the advisory rate-limit hint.
func (m *Metadata) IsRateLimited() bool { return m.rateLimited }

// PathVariants returns the endpoint's variants in their fixed resolution
// order: most-recently-introduced first, stable before unstable. The caller
// must not modify the returned slice.
func (m *Metadata) PathVariants() []PathVariant { return m.variants }

// Endpoint bundles everything needed to marshal calls of one endpoint: the
// descriptor plus the field-to-wire mapping tables for its request and
// response types. This is the unit a declarative endpoint generator emits.
// Either mapping may be nil when the corresponding side carries no fields.
type Endpoint struct {
	Metadata *Metadata
	Request  *WireMapping
	Response *WireMapping
}

// NewEndpoint validates the mappings against the descriptor: structural
// mapping invariants, every template placeholder covered by exactly one
// request path field and vice versa, and no path or query entries on the
// response side. This runs once at construction; per-call code assumes the
// contract holds.
func NewEndpoint(md *Metadata, req, res *WireMapping) (*Endpoint, error) {
	if md == nil {
		return nil, fmt.Errorf("fedwire: endpoint needs metadata")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("endpoint %s request mapping: %w", md.name, err)
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("endpoint %s response mapping: %w", md.name, err)
	}
	if res != nil {
		for _, f := range res.fieldsAt(LocPath) {
			return nil, fmt.Errorf("fedwire: endpoint %s: response field %s cannot be a path field", md.name, f.Name)
		}
		if len(res.QueryParams) > 0 {
			return nil, fmt.Errorf("fedwire: endpoint %s: response mappings cannot carry query parameters", md.name)
		}
	}

	pathWires := make(map[string]bool)
	for _, f := range req.fieldsAt(LocPath) {
		pathWires[f.Wire] = true
	}
	for _, pv := range md.variants {
		names := pv.tmpl.placeholders()
		if len(names) != len(pathWires) {
			return nil, fmt.Errorf("fedwire: endpoint %s: template %q has %d placeholders but the request maps %d path fields",
				md.name, pv.Template, len(names), len(pathWires))
		}
		for _, n := range names {
			if !pathWires[n] {
				return nil, fmt.Errorf("fedwire: endpoint %s: template %q placeholder %q has no request path field",
					md.name, pv.Template, n)
			}
		}
	}
	return &Endpoint{Metadata: md, Request: req, Response: res}, nil
}

// MustEndpoint is like NewEndpoint but panics on error. Intended for
// package-level endpoint definitions.
func MustEndpoint(md *Metadata, req, res *WireMapping) *Endpoint {
	ep, err := NewEndpoint(md, req, res)
	if err != nil {
		panic(err)
	}
	return ep
}
