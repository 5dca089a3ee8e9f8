package fedwire

import (
	"fmt"
	"strconv"
	"strings"
)

// SpecVersion identifies one released generation of the protocol's API
// surface: either a legacy tag such as "r0" or a major.minor pair such as
// "v1.1". SpecVersions are totally ordered; every legacy tag sorts before
// every numbered version.
//
// The zero value means "unspecified" and is used for open-ended variant
// ranges (no lower or upper bound).
type SpecVersion struct {
	legacy string
	major  int
	minor  int
}

// Well-known protocol generations.
var (
	VersionR0 = SpecVersion{legacy: "r0"}
	V1_0      = SpecVersion{major: 1, minor: 0}
	V1_1      = SpecVersion{major: 1, minor: 1}
	V1_2      = SpecVersion{major: 1, minor: 2}
	V1_3      = SpecVersion{major: 1, minor: 3}
	V1_4      = SpecVersion{major: 1, minor: 4}
	V1_5      = SpecVersion{major: 1, minor: 5}
)

// NewSpecVersion returns the numbered SpecVersion major.minor.
func NewSpecVersion(major, minor int) SpecVersion {
	return SpecVersion{major: major, minor: minor}
}

// ParseSpecVersion parses "r0"-style legacy tags and "v1.1" or "1.1" numbered
// versions.
func ParseSpecVersion(s string) (SpecVersion, error) {
	if s == "" {
		return SpecVersion{}, fmt.Errorf("fedwire: empty spec version")
	}
	if s[0] == 'r' {
		if _, err := strconv.Atoi(s[1:]); err != nil {
			return SpecVersion{}, fmt.Errorf("fedwire: invalid legacy spec version %q", s)
		}
		return SpecVersion{legacy: s}, nil
	}
	num := strings.TrimPrefix(s, "v")
	majorStr, minorStr, ok := strings.Cut(num, ".")
	if !ok {
		return SpecVersion{}, fmt.Errorf("fedwire: invalid spec version %q: expected major.minor", s)
	}
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return SpecVersion{}, fmt.Errorf("fedwire: invalid spec version %q: %v", s, err)
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return SpecVersion{}, fmt.Errorf("fedwire: invalid spec version %q: %v", s, err)
	}
	if major < 1 {
		return SpecVersion{}, fmt.Errorf("fedwire: invalid spec version %q: major must be >= 1", s)
	}
	return SpecVersion{major: major, minor: minor}, nil
}

// MustParseSpecVersion is like ParseSpecVersion but panics on error.
// Intended for package-level endpoint definitions.
func MustParseSpecVersion(s string) SpecVersion {
	v, err := ParseSpecVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v is the unspecified version.
func (v SpecVersion) IsZero() bool {
	return v.legacy == "" && v.major == 0
}

// IsLegacy reports whether v is a legacy (pre-1.0) generation.
func (v SpecVersion) IsLegacy() bool {
	return v.legacy != ""
}

// Compare returns -1, 0, or 1 depending on whether v sorts before, equal to,
// or after o. The zero (unspecified) version sorts before everything, and
// legacy tags sort before all numbered versions.
func (v SpecVersion) Compare(o SpecVersion) int {
	switch {
	case v.IsZero() && o.IsZero():
		return 0
	case v.IsZero():
		return -1
	case o.IsZero():
		return 1
	case v.IsLegacy() && o.IsLegacy():
		return strings.Compare(v.legacy, o.legacy)
	case v.IsLegacy():
		return -1
	case o.IsLegacy():
		return 1
	case v.major != o.major:
		if v.major < o.major {
			return -1
		}
		return 1
	case v.minor != o.minor:
		if v.minor < o.minor {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Less reports whether v sorts strictly before o.
func (v SpecVersion) Less(o SpecVersion) bool {
	return v.Compare(o) < 0
}

func (v SpecVersion) String() string {
	if v.IsZero() {
		return "unspecified"
	}
	if v.IsLegacy() {
		return v.legacy
	}
	return fmt.Sprintf("v%d.%d", v.major, v.minor)
}

// MarshalText implements encoding.TextMarshaler.
func (v SpecVersion) MarshalText() ([]byte, error) {
	if v.IsZero() {
		return nil, fmt.Errorf("fedwire: cannot marshal the unspecified spec version")
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *SpecVersion) UnmarshalText(text []byte) error {
	parsed, err := ParseSpecVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// maxSpecVersion returns the greatest version in vs, or the zero version for
// an empty set.
func maxSpecVersion(vs []SpecVersion) SpecVersion {
	var max SpecVersion
	for _, v := range vs {
		if max.Less(v) {
			max = v
		}
	}
	return max
}

// formatVersions renders a negotiated version set for diagnostics.
func formatVersions(vs []SpecVersion) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
