package fedwire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Message is the wire-level intermediate for a request: everything the
// transport needs to send it, with no typed information left. Path is the
// percent-encoded wire form on both sides of the exchange. A Message is
// produced fresh per call and owned by its creator until handed off.
type Message struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// RequestURI returns the path plus encoded query string.
func (m *Message) RequestURI() string {
	if len(m.Query) == 0 {
		return m.Path
	}
	return m.Path + "?" + m.Query.Encode()
}

// HTTPRequest builds an *http.Request for the message against the given base
// URL. The base's path prefix, if any, is prepended. The message path is
// already percent-encoded, so it becomes the URL's escaped form verbatim;
// assigning it to url.URL.Path would re-escape the percent signs.
func (m *Message) HTTPRequest(ctx context.Context, base *url.URL) (*http.Request, error) {
	ref, err := url.Parse(base.EscapedPath() + m.Path)
	if err != nil {
		return nil, fmt.Errorf("fedwire: invalid request path %q: %w", m.Path, err)
	}
	u := *base
	u.Path = ref.Path
	u.RawPath = ref.RawPath
	u.RawQuery = m.Query.Encode()

	var body io.Reader
	if len(m.Body) > 0 {
		body = bytes.NewReader(m.Body)
	}
	req, err := http.NewRequestWithContext(ctx, m.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range m.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// MessageFromRequest captures an inbound *http.Request as a Message, reading
// at most maxBody bytes of body (0 means no limit).
func MessageFromRequest(r *http.Request, maxBody int64) (*Message, error) {
	var body []byte
	if r.Body != nil {
		rd := io.Reader(r.Body)
		if maxBody > 0 {
			rd = io.LimitReader(r.Body, maxBody+1)
		}
		b, err := io.ReadAll(rd)
		if err != nil {
			return nil, fmt.Errorf("fedwire: reading request body: %w", err)
		}
		if maxBody > 0 && int64(len(b)) > maxBody {
			return nil, fmt.Errorf("fedwire: request body exceeds %d bytes", maxBody)
		}
		body = b
	}
	return &Message{
		Method: r.Method,
		// EscapedPath keeps the wire form; r.URL.Path is already decoded
		// and would be decoded a second time during template matching.
		Path:   r.URL.EscapedPath(),
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	}, nil
}

// ResponseMessage is the wire-level intermediate for a response.
type ResponseMessage struct {
	Status int
	Header http.Header
	Body   []byte
}

// ResponseFromHTTP captures an *http.Response as a ResponseMessage, reading
// the full body. The response body is consumed but not closed.
func ResponseFromHTTP(res *http.Response) (*ResponseMessage, error) {
	var body []byte
	if res.Body != nil {
		b, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("fedwire: reading response body: %w", err)
		}
		body = b
	}
	return &ResponseMessage{
		Status: res.StatusCode,
		Header: res.Header.Clone(),
		Body:   body,
	}, nil
}

// Write sends the response message over an http.ResponseWriter.
func (r *ResponseMessage) Write(w http.ResponseWriter) error {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := w.Write(r.Body)
	return err
}
