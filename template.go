package fedwire

import (
	"fmt"
	"net/url"
	"strings"
)

// pathTemplate is a compiled path template: literal segments interleaved
// with named placeholders, e.g. "/v3/rooms/{room_id}/join". A placeholder
// always spans a whole segment.
type pathTemplate struct {
	raw      string
	segments []pathSegment
}

// pathSegment is either a literal (name == "") or a placeholder.
type pathSegment struct {
	literal string
	name    string
}

func parseTemplate(raw string) (*pathTemplate, error) {
	if raw == "" || raw[0] != '/' {
		return nil, fmt.Errorf("fedwire: path template %q must start with '/'", raw)
	}
	parts := strings.Split(raw[1:], "/")
	t := &pathTemplate{raw: raw, segments: make([]pathSegment, 0, len(parts))}
	seen := make(map[string]bool)
	for _, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			name := p[1 : len(p)-1]
			if name == "" {
				return nil, fmt.Errorf("fedwire: path template %q has an empty placeholder", raw)
			}
			if seen[name] {
				return nil, fmt.Errorf("fedwire: path template %q repeats placeholder %q", raw, name)
			}
			seen[name] = true
			t.segments = append(t.segments, pathSegment{name: name})
			continue
		}
		if strings.ContainsAny(p, "{}") {
			return nil, fmt.Errorf("fedwire: path template %q: placeholders must span a whole segment", raw)
		}
		t.segments = append(t.segments, pathSegment{literal: p})
	}
	return t, nil
}

// placeholders returns the placeholder names in template order.
func (t *pathTemplate) placeholders() []string {
	var names []string
	for _, seg := range t.segments {
		if seg.name != "" {
			names = append(names, seg.name)
		}
	}
	return names
}

// expand substitutes placeholder values and percent-encodes each substituted
// segment. Every placeholder must have a non-empty value.
func (t *pathTemplate) expand(vals map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(t.raw) + 16)
	for _, seg := range t.segments {
		b.WriteByte('/')
		if seg.name == "" {
			b.WriteString(seg.literal)
			continue
		}
		v, ok := vals[seg.name]
		if !ok || v == "" {
			return "", fmt.Errorf("no value for path placeholder %q", seg.name)
		}
		b.WriteString(url.PathEscape(v))
	}
	return b.String(), nil
}

// match tests a wire path against the template and extracts percent-decoded
// placeholder values. Returns nil, false when the path does not match.
func (t *pathTemplate) match(path string) (map[string]string, bool) {
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) != len(t.segments) {
		return nil, false
	}
	var vals map[string]string
	for i, seg := range t.segments {
		if seg.name == "" {
			if parts[i] != seg.literal {
				return nil, false
			}
			continue
		}
		decoded, err := url.PathUnescape(parts[i])
		if err != nil || decoded == "" {
			return nil, false
		}
		if vals == nil {
			vals = make(map[string]string, 2)
		}
		vals[seg.name] = decoded
	}
	if vals == nil {
		vals = map[string]string{}
	}
	return vals, true
}

func (t *pathTemplate) String() string {
	return t.raw
}
