package fedwire

import (
	"encoding/json"
	"net/http"
	"net/url"
)

const contentTypeJSON = "application/json"

// RequestOptions carries the per-call inputs of the outgoing marshaller:
// the negotiated version set, the caller's credential, and the send policy.
type RequestOptions struct {
	// Versions is the negotiated spec-version set supported by the
	// counterpart; the maximum element is the preferred version.
	Versions []SpecVersion

	// AllowUnstable permits resolution of unstable (opt-in) path variants.
	AllowUnstable bool

	// AccessToken is the caller's bearer credential, if any.
	AccessToken string

	// SendToken is the credential policy; the zero value attaches the token
	// when the endpoint requires or accepts one.
	SendToken SendAccessToken
}

// MarshalRequest converts a typed request value into a wire message for the
// endpoint, selecting the path variant for the negotiated version set and
// applying the credential placement policy. req must be a pointer to the
// endpoint's request struct (nil for endpoints with an empty request).
//
// The call is synchronous and performs no I/O; failures are returned as
// *Error values. A token-required endpoint with no credential fails with
// NeedsAuthentication before any message is built.
func MarshalRequest(ep *Endpoint, req any, opts RequestOptions) (*Message, error) {
	md := ep.Metadata
	if err := checkAuth(md, opts.AccessToken, opts.SendToken); err != nil {
		return nil, err
	}
	rp, err := md.ResolvePath(opts.Versions, opts.AllowUnstable)
	if err != nil {
		return nil, err
	}

	mapping := ep.Request
	msg := &Message{
		Method: md.method,
		Header: make(http.Header),
	}

	// Path.
	vals := make(map[string]string)
	for _, f := range mapping.fieldsAt(LocPath) {
		v, ok, err := f.GetString(req)
		if err != nil {
			return nil, wrapError(KindPathEncode, md.name, "encoding path field "+f.Name, err)
		}
		if !ok || v == "" {
			return nil, newErrorf(KindPathEncode, md.name, "path field %s has no value", f.Name)
		}
		vals[f.Wire] = v
	}
	path, err := rp.Variant.tmpl.expand(vals)
	if err != nil {
		return nil, wrapError(KindPathEncode, md.name, "expanding path template", err)
	}
	msg.Path = path

	// Query.
	if mapping != nil && mapping.EncodeQuery != nil {
		q, err := mapping.EncodeQuery(req)
		if err != nil {
			return nil, wrapError(KindQuery, md.name, "encoding query parameters", err)
		}
		if len(q) > 0 {
			msg.Query = q
		}
	}
	if msg.Query == nil {
		msg.Query = make(url.Values)
	}

	// Headers.
	for _, f := range mapping.fieldsAt(LocHeader) {
		v, ok, err := f.GetString(req)
		if err != nil {
			return nil, wrapError(KindHeader, md.name, "encoding header "+f.Wire, err)
		}
		if !ok {
			if f.Required {
				return nil, newErrorf(KindHeader, md.name, "header field %s has no value", f.Name)
			}
			continue
		}
		msg.Header.Set(f.Wire, v)
	}

	// Body.
	if raw := mapping.rawBodyField(); raw != nil {
		body, contentType, err := raw.GetRaw(req)
		if err != nil {
			return nil, wrapError(KindSerialization, md.name, "reading raw body", err)
		}
		msg.Body = body
		if contentType != "" && msg.Header.Get("Content-Type") == "" {
			msg.Header.Set("Content-Type", contentType)
		}
	} else if body, err := encodeBodyFields(mapping, req, md.name); err != nil {
		return nil, err
	} else if body != nil {
		msg.Body = body
		msg.Header.Set("Content-Type", contentTypeJSON)
	}

	attachAuth(md, rp, opts.AccessToken, opts.SendToken, msg)
	return msg, nil
}

// MarshalResponse converts a typed response value into a wire response
// message: the server mirror of MarshalRequest. A zero status means 200.
func MarshalResponse(ep *Endpoint, res any, status int) (*ResponseMessage, error) {
	md := ep.Metadata
	mapping := ep.Response
	out := &ResponseMessage{
		Status: status,
		Header: make(http.Header),
	}
	if out.Status == 0 {
		out.Status = http.StatusOK
	}

	for _, f := range mapping.fieldsAt(LocHeader) {
		v, ok, err := f.GetString(res)
		if err != nil {
			return nil, wrapError(KindHeader, md.name, "encoding header "+f.Wire, err)
		}
		if !ok {
			if f.Required {
				return nil, newErrorf(KindHeader, md.name, "header field %s has no value", f.Name)
			}
			continue
		}
		out.Header.Set(f.Wire, v)
	}

	if raw := mapping.rawBodyField(); raw != nil {
		body, contentType, err := raw.GetRaw(res)
		if err != nil {
			return nil, wrapError(KindSerialization, md.name, "reading raw body", err)
		}
		out.Body = body
		if contentType != "" && out.Header.Get("Content-Type") == "" {
			out.Header.Set("Content-Type", contentType)
		}
		return out, nil
	}

	body, err := encodeBodyFields(mapping, res, md.name)
	if err != nil {
		return nil, err
	}
	if body == nil {
		// Success responses always carry a JSON document, even an empty one,
		// so clients can decode uniformly.
		body = []byte("{}")
	}
	out.Body = body
	out.Header.Set("Content-Type", contentTypeJSON)
	return out, nil
}

// encodeBodyFields serializes the mapping's body fields into a single JSON
// object. Returns nil when the mapping has no body fields.
func encodeBodyFields(mapping *WireMapping, v any, endpoint string) ([]byte, error) {
	fields := mapping.fieldsAt(LocBody)
	if len(fields) == 0 {
		return nil, nil
	}
	doc := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		raw, ok, err := f.GetJSON(v)
		if err != nil {
			return nil, wrapError(KindSerialization, endpoint, "encoding body field "+f.Wire, err)
		}
		if !ok {
			if f.Required {
				return nil, newErrorf(KindSerialization, endpoint, "body field %s has no value", f.Name)
			}
			continue
		}
		doc[f.Wire] = raw
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, wrapError(KindSerialization, endpoint, "encoding body", err)
	}
	return body, nil
}
