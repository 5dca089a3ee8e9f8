package fedwire

import (
	"encoding"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
)

var (
	schemaEncoder = schema.NewEncoder()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

// DeriveMapping builds the field-to-wire mapping table for a request or
// response struct from its `fed` struct tags. All reflection happens here,
// once per endpoint; the returned mapping's accessors are plain closures
// over precomputed field indices.
//
// Tag grammar: `fed:"<location>[,<wire name>][,required|optional]"` where
// location is one of path, query, header, body, raw. Untagged fields are not
// mapped. The wire name defaults to the snake_cased field name (for headers,
// the canonical dashed form). Fields of pointer, slice, or map kind are
// optional by default; everything else is required.
//
//	type JoinRoomRequest struct {
//	    RoomID  string  `fed:"path,room_id"`
//	    Reason  *string `fed:"body"`
//	    Version string  `fed:"query,ver,optional"`
//	}
func DeriveMapping[T any]() (*WireMapping, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("fedwire: DeriveMapping needs a struct type, got %s", t)
	}

	m := &WireMapping{}
	type queryField struct {
		index int
		wire  string
	}
	var qfields []queryField
	var qstruct []reflect.StructField

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, ok := field.Tag.Lookup("fed")
		if !ok || tag == "-" {
			continue
		}
		loc, wire, required, extra, err := parseFedTag(field, tag)
		if err != nil {
			return nil, err
		}

		switch loc {
		case LocPath:
			m.Fields = append(m.Fields, FieldSpec{
				Name:      field.Name,
				Wire:      wire,
				Location:  LocPath,
				Required:  true,
				GetString: stringGetter(t, i, true),
				SetString: stringSetter(t, i),
			})
		case LocHeader:
			m.Fields = append(m.Fields, FieldSpec{
				Name:      field.Name,
				Wire:      wire,
				Location:  LocHeader,
				Required:  required,
				GetString: stringGetter(t, i, required),
				SetString: stringSetter(t, i),
			})
		case LocBody:
			m.Fields = append(m.Fields, FieldSpec{
				Name:     field.Name,
				Wire:     wire,
				Location: LocBody,
				Required: required,
				GetJSON:  jsonGetter(t, i, required),
				SetJSON:  jsonSetter(t, i),
			})
		case LocRawBody:
			if field.Type != reflect.TypeOf([]byte(nil)) {
				return nil, fmt.Errorf("fedwire: %s.%s: raw body fields must be []byte", t, field.Name)
			}
			contentType := extra
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			m.Fields = append(m.Fields, FieldSpec{
				Name:     field.Name,
				Wire:     contentType,
				Location: LocRawBody,
				Required: required,
				GetRaw:   rawGetter(t, i, contentType),
				SetRaw:   rawSetter(t, i),
			})
		case LocQuery:
			schemaTag := wire
			if !required {
				schemaTag += ",omitempty"
			}
			qfields = append(qfields, queryField{index: i, wire: wire})
			qstruct = append(qstruct, reflect.StructField{
				Name: field.Name,
				Type: field.Type,
				Tag:  reflect.StructTag(`schema:"` + schemaTag + `"`),
			})
			m.QueryParams = append(m.QueryParams, QueryParam{Wire: wire, Required: required})
		}
	}

	if len(qfields) > 0 {
		// Query fields are copied into a synthesized query-only struct so
		// the form codec never sees fields that live elsewhere on the wire.
		qt := reflect.StructOf(qstruct)
		m.EncodeQuery = func(v any) (url.Values, error) {
			rv, err := derefStruct(v, t)
			if err != nil {
				return nil, err
			}
			qv := reflect.New(qt).Elem()
			for k, qf := range qfields {
				qv.Field(k).Set(rv.Field(qf.index))
			}
			vals := make(url.Values)
			if err := schemaEncoder.Encode(qv.Addr().Interface(), vals); err != nil {
				return nil, err
			}
			return vals, nil
		}
		m.DecodeQuery = func(v any, q url.Values) error {
			rv, err := derefStruct(v, t)
			if err != nil {
				return err
			}
			qp := reflect.New(qt)
			if err := schemaDecoder.Decode(qp.Interface(), q); err != nil {
				return err
			}
			for k, qf := range qfields {
				rv.Field(qf.index).Set(qp.Elem().Field(k))
			}
			return nil
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// MustDeriveMapping is like DeriveMapping but panics on error. Intended for
// package-level endpoint definitions.
func MustDeriveMapping[T any]() *WireMapping {
	m, err := DeriveMapping[T]()
	if err != nil {
		panic(err)
	}
	return m
}

// parseFedTag splits a `fed` tag into location, wire name, required flag,
// and the location-specific extra token (content type for raw bodies).
func parseFedTag(field reflect.StructField, tag string) (loc WireLocation, wire string, required bool, extra string, err error) {
	tokens := strings.Split(tag, ",")
	switch tokens[0] {
	case "path":
		loc = LocPath
	case "query":
		loc = LocQuery
	case "header":
		loc = LocHeader
	case "body":
		loc = LocBody
	case "raw":
		loc = LocRawBody
	default:
		return 0, "", false, "", fmt.Errorf("fedwire: %s: unknown wire location %q in fed tag", field.Name, tokens[0])
	}

	required = defaultRequired(field.Type)
	for _, tok := range tokens[1:] {
		switch tok {
		case "required":
			required = true
		case "optional":
			required = false
		case "":
		default:
			if loc == LocRawBody {
				extra = tok
			} else if wire == "" {
				wire = tok
			} else {
				return 0, "", false, "", fmt.Errorf("fedwire: %s: unexpected fed tag token %q", field.Name, tok)
			}
		}
	}
	if wire == "" && loc != LocRawBody {
		if loc == LocHeader {
			wire = http.CanonicalHeaderKey(strings.ReplaceAll(snakeCase(field.Name), "_", "-"))
		} else {
			wire = snakeCase(field.Name)
		}
	}
	return loc, wire, required, extra, nil
}

// defaultRequired mirrors the convention of the protocol's schemas: values
// that can be absent (pointers, slices, maps) are optional, everything else
// is required.
func defaultRequired(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return false
	default:
		return true
	}
}

// derefStruct checks that v is a non-nil pointer to the expected struct type
// and returns the pointed-to value.
func derefStruct(v any, t reflect.Type) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("fedwire: expected non-nil *%s, got %T", t, v)
	}
	rv = rv.Elem()
	if rv.Type() != t {
		return reflect.Value{}, fmt.Errorf("fedwire: expected *%s, got %T", t, v)
	}
	return rv, nil
}

var (
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	stringerType        = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

func stringGetter(t reflect.Type, index int, required bool) func(any) (string, bool, error) {
	return func(v any) (string, bool, error) {
		rv, err := derefStruct(v, t)
		if err != nil {
			return "", false, err
		}
		fv := rv.Field(index)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				return "", false, nil
			}
			fv = fv.Elem()
		}
		s, err := stringifyValue(fv)
		if err != nil {
			return "", false, err
		}
		if s == "" && !required {
			return "", false, nil
		}
		return s, true, nil
	}
}

// stringifyValue renders a field for path, query, or header placement.
// Identifier types satisfy encoding.TextMarshaler and are treated as opaque
// canonical strings.
func stringifyValue(fv reflect.Value) (string, error) {
	if fv.Type().Implements(textMarshalerType) {
		b, err := fv.Interface().(encoding.TextMarshaler).MarshalText()
		return string(b), err
	}
	if fv.Type().Implements(stringerType) {
		return fv.Interface().(fmt.Stringer).String(), nil
	}
	switch fv.Kind() {
	case reflect.String:
		return fv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(fv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(fv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(fv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(fv.Float(), 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("cannot render %s as a wire string", fv.Type())
	}
}

func stringSetter(t reflect.Type, index int) func(any, string) error {
	return func(v any, s string) error {
		rv, err := derefStruct(v, t)
		if err != nil {
			return err
		}
		fv := rv.Field(index)
		if fv.Kind() == reflect.Pointer {
			elem := reflect.New(fv.Type().Elem())
			if err := parseInto(elem.Elem(), s); err != nil {
				return err
			}
			fv.Set(elem)
			return nil
		}
		return parseInto(fv, s)
	}
}

// parseInto parses a wire string into an addressable field value.
func parseInto(fv reflect.Value, s string) error {
	if fv.Addr().Type().Implements(textUnmarshalerType) {
		return fv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s))
	}
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	default:
		return fmt.Errorf("cannot parse a wire string into %s", fv.Type())
	}
	return nil
}

func jsonGetter(t reflect.Type, index int, required bool) func(any) (json.RawMessage, bool, error) {
	return func(v any) (json.RawMessage, bool, error) {
		rv, err := derefStruct(v, t)
		if err != nil {
			return nil, false, err
		}
		fv := rv.Field(index)
		if !required && fv.IsZero() {
			return nil, false, nil
		}
		raw, err := json.Marshal(fv.Interface())
		if err != nil {
			return nil, false, err
		}
		return raw, true, nil
	}
}

func jsonSetter(t reflect.Type, index int) func(any, json.RawMessage) error {
	return func(v any, raw json.RawMessage) error {
		rv, err := derefStruct(v, t)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, rv.Field(index).Addr().Interface())
	}
}

func rawGetter(t reflect.Type, index int, contentType string) func(any) ([]byte, string, error) {
	return func(v any) ([]byte, string, error) {
		rv, err := derefStruct(v, t)
		if err != nil {
			return nil, "", err
		}
		return rv.Field(index).Bytes(), contentType, nil
	}
}

func rawSetter(t reflect.Type, index int) func(any, []byte, string) error {
	return func(v any, body []byte, _ string) error {
		rv, err := derefStruct(v, t)
		if err != nil {
			return err
		}
		rv.Field(index).SetBytes(body)
		return nil
	}
}

// snakeCase converts a Go field name to its wire form: FooBarID -> foo_bar_id.
func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			prevLower := i > 0 && runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
