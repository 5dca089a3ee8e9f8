package fedwire

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// WireLocation says where on the wire a field lives.
type WireLocation uint8

const (
	// LocPath fields substitute a named placeholder in the path template.
	LocPath WireLocation = iota + 1
	// LocQuery fields are form-encoded query parameters.
	LocQuery
	// LocHeader fields are HTTP headers.
	LocHeader
	// LocBody fields are members of the JSON body object.
	LocBody
	// LocRawBody marks the single field whose bytes pass through as the
	// whole body, unchanged.
	LocRawBody
)

func (l WireLocation) String() string {
	switch l {
	case LocPath:
		return "path"
	case LocQuery:
		return "query"
	case LocHeader:
		return "header"
	case LocBody:
		return "body"
	case LocRawBody:
		return "raw"
	default:
		return fmt.Sprintf("wire_location(%d)", uint8(l))
	}
}

// FieldSpec is one row of the field-to-wire mapping table: which struct
// field, where it goes, and how to read and write it. The accessor closures
// operate on a pointer to the endpoint's request or response struct.
//
// Path and header fields use GetString/SetString; body fields use
// GetJSON/SetJSON; the raw-body field uses GetRaw/SetRaw. Query fields are
// handled struct-at-a-time by the mapping's query codec and appear here only
// in QueryParams.
type FieldSpec struct {
	// Name is the Go-side field name, for diagnostics.
	Name string
	// Wire is the placeholder name, header name, or JSON key.
	Wire string
	Location WireLocation
	// Required fields must be present on decode; optional fields are
	// omitted on encode when absent.
	Required bool

	GetString func(v any) (val string, ok bool, err error)
	SetString func(v any, s string) error

	GetJSON func(v any) (raw json.RawMessage, ok bool, err error)
	SetJSON func(v any, raw json.RawMessage) error

	GetRaw func(v any) (body []byte, contentType string, err error)
	SetRaw func(v any, body []byte, contentType string) error
}

// QueryParam describes one query parameter for diagnostics and
// required-presence checks; the actual encoding is done by the mapping's
// query codec.
type QueryParam struct {
	Wire     string
	Required bool
}

// WireMapping is the explicit, inspectable mapping from the fields of one
// request or response struct to their wire locations. It is built once per
// endpoint (by a generator or by [DeriveMapping]) and never mutated
// afterwards, so it is safe to share across calls without synchronization.
type WireMapping struct {
	// Fields holds the path, header, body, and raw-body rows.
	Fields []FieldSpec

	// QueryParams lists the query parameters covered by the query codec.
	QueryParams []QueryParam

	// EncodeQuery serializes the struct's query fields into url.Values with
	// a stable, declaration-ordered form encoding. Nil when the struct has
	// no query fields.
	EncodeQuery func(v any) (url.Values, error)

	// DecodeQuery populates the struct's query fields from url.Values,
	// ignoring unknown parameters. Nil when the struct has no query fields.
	DecodeQuery func(v any, q url.Values) error
}

// Validate checks the mapping's structural invariants: at most one raw-body
// field, raw body excluding JSON body fields, no duplicate wire names per
// location, and accessors present for each row's location.
func (m *WireMapping) Validate() error {
	if m == nil {
		return nil
	}
	var rawBody, jsonBody int
	seen := make(map[string]bool)
	for i := range m.Fields {
		f := &m.Fields[i]
		key := f.Location.String() + ":" + f.Wire
		if f.Location != LocRawBody && f.Wire == "" {
			return fmt.Errorf("fedwire: mapping field %s has no wire name", f.Name)
		}
		if seen[key] {
			return fmt.Errorf("fedwire: mapping has duplicate %s field %q", f.Location, f.Wire)
		}
		seen[key] = true
		switch f.Location {
		case LocPath, LocHeader:
			if f.GetString == nil || f.SetString == nil {
				return fmt.Errorf("fedwire: mapping field %s (%s) needs string accessors", f.Name, f.Location)
			}
		case LocBody:
			jsonBody++
			if f.GetJSON == nil || f.SetJSON == nil {
				return fmt.Errorf("fedwire: mapping field %s (body) needs JSON accessors", f.Name)
			}
		case LocRawBody:
			rawBody++
			if f.GetRaw == nil || f.SetRaw == nil {
				return fmt.Errorf("fedwire: mapping field %s (raw) needs raw accessors", f.Name)
			}
		case LocQuery:
			return fmt.Errorf("fedwire: mapping field %s: query fields belong in QueryParams, not Fields", f.Name)
		default:
			return fmt.Errorf("fedwire: mapping field %s has unknown location", f.Name)
		}
	}
	if rawBody > 1 {
		return fmt.Errorf("fedwire: mapping has %d raw-body fields, at most one is allowed", rawBody)
	}
	if rawBody == 1 && jsonBody > 0 {
		return fmt.Errorf("fedwire: mapping mixes a raw-body field with body fields")
	}
	if len(m.QueryParams) > 0 && (m.EncodeQuery == nil || m.DecodeQuery == nil) {
		return fmt.Errorf("fedwire: mapping declares query parameters but has no query codec")
	}
	return nil
}

// queryParams returns the mapping's query parameters, nil-safe.
func (m *WireMapping) queryParams() []QueryParam {
	if m == nil {
		return nil
	}
	return m.QueryParams
}

// fieldsAt returns the rows at the given location, in declaration order.
func (m *WireMapping) fieldsAt(loc WireLocation) []*FieldSpec {
	if m == nil {
		return nil
	}
	var out []*FieldSpec
	for i := range m.Fields {
		if m.Fields[i].Location == loc {
			out = append(out, &m.Fields[i])
		}
	}
	return out
}

// rawBodyField returns the raw-body row, or nil.
func (m *WireMapping) rawBodyField() *FieldSpec {
	if m == nil {
		return nil
	}
	for i := range m.Fields {
		if m.Fields[i].Location == LocRawBody {
			return &m.Fields[i]
		}
	}
	return nil
}

// hasBody reports whether the mapping produces a request/response body.
func (m *WireMapping) hasBody() bool {
	if m == nil {
		return false
	}
	for i := range m.Fields {
		if m.Fields[i].Location == LocBody || m.Fields[i].Location == LocRawBody {
			return true
		}
	}
	return false
}
