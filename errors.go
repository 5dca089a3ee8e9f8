package fedwire

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the machine-readable discriminant of a marshalling failure.
type ErrorKind string

const (
	// Outgoing-side kinds.
	KindNeedsAuthentication ErrorKind = "needs_authentication"
	KindPathEncode          ErrorKind = "path_encode"
	KindSerialization       ErrorKind = "serialization"

	// Incoming-side kinds.
	KindMethodMismatch        ErrorKind = "method_mismatch"
	KindPath                  ErrorKind = "path"
	KindMissingAuthentication ErrorKind = "missing_authentication"
	KindDeserialization       ErrorKind = "deserialization"

	// Either side.
	KindQuery  ErrorKind = "query"
	KindHeader ErrorKind = "header"

	// Resolver.
	KindUnsupportedVersion ErrorKind = "unsupported_version"

	// Response-decode outcomes.
	KindHTTP     ErrorKind = "http"     // non-success status, body not a structured error
	KindProtocol ErrorKind = "protocol" // decoded structured error body

	// Contract violations in endpoint definitions, not per-request failures.
	KindInternal ErrorKind = "internal"
)

// Well-known protocol error codes carried in structured error bodies.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeMissingToken  = "M_MISSING_TOKEN"
	ErrCodeBadJSON       = "M_BAD_JSON"
	ErrCodeNotJSON       = "M_NOT_JSON"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeUnrecognized  = "M_UNRECOGNIZED"
	ErrCodeInvalidParam  = "M_INVALID_PARAM"
	ErrCodeUnknown       = "M_UNKNOWN"
)

// ProtocolError is the structured error body convention of the protocol:
// a machine-readable code, a human-readable message, and optional
// machine-readable hints. Unrecognized document keys are preserved in Extra
// so hints added by newer protocol revisions survive a round trip.
type ProtocolError struct {
	Code         string
	Message      string
	RetryAfterMS int64
	Extra        map[string]json.RawMessage
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// MarshalJSON implements json.Marshaler.
func (e *ProtocolError) MarshalJSON() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(e.Extra)+3)
	for k, v := range e.Extra {
		doc[k] = v
	}
	code, err := json.Marshal(e.Code)
	if err != nil {
		return nil, err
	}
	doc["errcode"] = code
	if e.Message != "" {
		msg, err := json.Marshal(e.Message)
		if err != nil {
			return nil, err
		}
		doc["error"] = msg
	}
	if e.RetryAfterMS > 0 {
		doc["retry_after_ms"] = json.RawMessage(fmt.Sprintf("%d", e.RetryAfterMS))
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler. The body must be a JSON object
// with a string "errcode" member; anything else is rejected so the caller can
// fall back to a generic HTTP error.
func (e *ProtocolError) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	raw, ok := doc["errcode"]
	if !ok {
		return fmt.Errorf("fedwire: error body has no errcode")
	}
	if err := json.Unmarshal(raw, &e.Code); err != nil {
		return fmt.Errorf("fedwire: errcode is not a string: %w", err)
	}
	if e.Code == "" {
		return fmt.Errorf("fedwire: error body has empty errcode")
	}
	delete(doc, "errcode")
	if raw, ok := doc["error"]; ok {
		if err := json.Unmarshal(raw, &e.Message); err == nil {
			delete(doc, "error")
		}
	}
	if raw, ok := doc["retry_after_ms"]; ok {
		if err := json.Unmarshal(raw, &e.RetryAfterMS); err == nil {
			delete(doc, "retry_after_ms")
		}
	}
	if len(doc) > 0 {
		e.Extra = doc
	}
	return nil
}

// Error is the structured failure value returned by every fedwire operation.
// The Kind discriminant says what went wrong; the remaining fields carry
// diagnostic context for logging and are populated per kind.
type Error struct {
	Kind    ErrorKind
	Message string

	// Endpoint is the diagnostic name of the endpoint involved, when known.
	Endpoint string

	// Requested is the negotiated version set, set on UnsupportedVersion.
	Requested []SpecVersion

	// Status and Body are the raw response status and bytes, set on HTTP and
	// Protocol errors.
	Status int
	Body   []byte

	// Protocol is the decoded structured error body, set on Protocol errors.
	Protocol *ProtocolError

	cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Endpoint != "" {
		msg = e.Endpoint + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying cause, if any. Protocol errors unwrap to
// their *ProtocolError so callers can errors.As on either type.
func (e *Error) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	if e.Protocol != nil {
		return e.Protocol
	}
	return nil
}

func newError(kind ErrorKind, endpoint, message string) *Error {
	return &Error{Kind: kind, Endpoint: endpoint, Message: message}
}

func newErrorf(kind ErrorKind, endpoint, format string, args ...any) *Error {
	return &Error{Kind: kind, Endpoint: endpoint, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, endpoint, message string, cause error) *Error {
	return &Error{Kind: kind, Endpoint: endpoint, Message: message, cause: cause}
}

// KindOf returns the ErrorKind of err if it is (or wraps) a fedwire *Error,
// and "" otherwise.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an ErrorKind to the status code a server should answer
// with when a request fails with that kind.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindNeedsAuthentication, KindMissingAuthentication:
		return http.StatusUnauthorized
	case KindMethodMismatch:
		return http.StatusMethodNotAllowed
	case KindPath:
		return http.StatusNotFound
	case KindQuery, KindHeader, KindDeserialization, KindUnsupportedVersion:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errCode maps an ErrorKind to the protocol error code used in the wire
// error envelope.
func (k ErrorKind) errCode() string {
	switch k {
	case KindNeedsAuthentication, KindMissingAuthentication:
		return ErrCodeMissingToken
	case KindMethodMismatch, KindPath:
		return ErrCodeUnrecognized
	case KindQuery, KindHeader:
		return ErrCodeInvalidParam
	case KindDeserialization:
		return ErrCodeBadJSON
	default:
		return ErrCodeUnknown
	}
}
