package fedwire

import (
	"encoding/json"
)

// UnmarshalRequest decodes an inbound wire message into the endpoint's typed
// request struct: the server role. req must be a pointer to the endpoint's
// request struct (nil for endpoints with an empty request and no path
// placeholders).
//
// Unknown query parameters and unknown body keys are ignored for forward
// compatibility; a required field that is absent fails with a Query, Header,
// or Deserialization error. The path is matched against every variant of the
// endpoint; more than one distinct template matching at once is a defect in
// the endpoint definition and surfaces as an Internal error.
func UnmarshalRequest(ep *Endpoint, msg *Message, req any) error {
	md := ep.Metadata
	if msg.Method != md.method {
		return newErrorf(KindMethodMismatch, md.name,
			"expected method %s, got %s", md.method, msg.Method)
	}

	// Path.
	var (
		vals     map[string]string
		matched  string
		nmatched int
	)
	for _, pv := range md.variants {
		v, ok := pv.tmpl.match(msg.Path)
		if !ok {
			continue
		}
		if nmatched == 0 || matched == pv.Template {
			vals, matched = v, pv.Template
			nmatched++
		} else {
			return newErrorf(KindInternal, md.name,
				"templates %q and %q both match path %q", matched, pv.Template, msg.Path)
		}
	}
	if nmatched == 0 {
		return newErrorf(KindPath, md.name, "no path variant matches %q", msg.Path)
	}

	mapping := ep.Request
	for _, f := range mapping.fieldsAt(LocPath) {
		v, ok := vals[f.Wire]
		if !ok {
			return newErrorf(KindPath, md.name,
				"matched template %q has no placeholder %q", matched, f.Wire)
		}
		if err := f.SetString(req, v); err != nil {
			return wrapError(KindPath, md.name, "decoding path field "+f.Wire, err)
		}
	}

	// Authentication.
	if _, err := requireAuth(md, msg); err != nil {
		return err
	}

	// Query.
	for _, p := range mapping.queryParams() {
		if p.Required && !msg.Query.Has(p.Wire) {
			return newErrorf(KindQuery, md.name, "missing required query parameter %q", p.Wire)
		}
	}
	if mapping != nil && mapping.DecodeQuery != nil {
		if err := mapping.DecodeQuery(req, msg.Query); err != nil {
			return wrapError(KindQuery, md.name, "decoding query parameters", err)
		}
	}

	// Headers.
	for _, f := range mapping.fieldsAt(LocHeader) {
		v := msg.Header.Get(f.Wire)
		if v == "" {
			if f.Required {
				return newErrorf(KindHeader, md.name, "missing required header %q", f.Wire)
			}
			continue
		}
		if err := f.SetString(req, v); err != nil {
			return wrapError(KindHeader, md.name, "decoding header "+f.Wire, err)
		}
	}

	// Body.
	if raw := mapping.rawBodyField(); raw != nil {
		if err := raw.SetRaw(req, msg.Body, msg.Header.Get("Content-Type")); err != nil {
			return wrapError(KindDeserialization, md.name, "storing raw body", err)
		}
		return nil
	}
	return decodeBodyFields(mapping, msg.Body, req, md.name)
}

// UnmarshalResponse decodes a wire response into the endpoint's typed
// response struct: the client role. Decoding is total: every status/body
// pair yields either a populated response value, a Protocol error carrying
// the decoded structured error body, or a generic HTTP error carrying the
// raw status and bytes. It never panics and never returns an undecorated
// failure for malformed server output.
func UnmarshalResponse(ep *Endpoint, res *ResponseMessage, out any) error {
	md := ep.Metadata
	if res.Status < 200 || res.Status > 299 {
		return decodeErrorBody(md.name, res)
	}

	mapping := ep.Response
	for _, f := range mapping.fieldsAt(LocHeader) {
		v := res.Header.Get(f.Wire)
		if v == "" {
			if f.Required {
				return newErrorf(KindHeader, md.name, "missing required header %q", f.Wire)
			}
			continue
		}
		if err := f.SetString(out, v); err != nil {
			return wrapError(KindHeader, md.name, "decoding header "+f.Wire, err)
		}
	}

	if raw := mapping.rawBodyField(); raw != nil {
		if err := raw.SetRaw(out, res.Body, res.Header.Get("Content-Type")); err != nil {
			return wrapError(KindDeserialization, md.name, "storing raw body", err)
		}
		return nil
	}
	return decodeBodyFields(mapping, res.Body, out, md.name)
}

// decodeErrorBody turns a non-success response into a structured error
// value. It prefers the protocol's error-body convention and falls back to a
// generic HTTP error when the body has any other shape; the fallback itself
// cannot fail.
func decodeErrorBody(endpoint string, res *ResponseMessage) *Error {
	var pe ProtocolError
	if err := json.Unmarshal(res.Body, &pe); err == nil {
		e := newError(KindProtocol, endpoint, pe.Error())
		e.Status = res.Status
		e.Body = res.Body
		e.Protocol = &pe
		return e
	}
	e := newErrorf(KindHTTP, endpoint, "server returned status %d with an unrecognized error body", res.Status)
	e.Status = res.Status
	e.Body = res.Body
	return e
}

// decodeBodyFields populates the mapping's body fields from a JSON object,
// ignoring unknown keys. An empty body is treated as an empty object.
func decodeBodyFields(mapping *WireMapping, body []byte, v any, endpoint string) error {
	fields := mapping.fieldsAt(LocBody)
	if len(fields) == 0 {
		return nil
	}
	doc := make(map[string]json.RawMessage)
	if len(body) > 0 {
		if err := json.Unmarshal(body, &doc); err != nil {
			return wrapError(KindDeserialization, endpoint, "body is not a JSON object", err)
		}
	}
	for _, f := range fields {
		raw, ok := doc[f.Wire]
		if !ok {
			if f.Required {
				return newErrorf(KindDeserialization, endpoint, "missing required body field %q", f.Wire)
			}
			continue
		}
		if err := f.SetJSON(v, raw); err != nil {
			return wrapError(KindDeserialization, endpoint, "decoding body field "+f.Wire, err)
		}
	}
	return nil
}
