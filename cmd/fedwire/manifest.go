package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/loomchat/fedwire"
)

// manifest is the JSON description of an endpoint set, as emitted by an
// endpoint generator or written by hand for inspection.
type manifest struct {
	Endpoints []manifestEndpoint `json:"endpoints"`
}

type manifestEndpoint struct {
	Name        string         `json:"name"`
	Method      string         `json:"method"`
	Auth        string         `json:"auth"`
	RateLimited bool           `json:"rate_limited"`
	Paths       []manifestPath `json:"paths"`
}

type manifestPath struct {
	Template   string              `json:"template"`
	Added      fedwire.SpecVersion `json:"added,omitzero"`
	Deprecated fedwire.SpecVersion `json:"deprecated,omitzero"`
	Removed    fedwire.SpecVersion `json:"removed,omitzero"`
	Unstable   bool                `json:"unstable,omitempty"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(m.Endpoints) == 0 {
		return nil, fmt.Errorf("%s: manifest lists no endpoints", path)
	}
	return &m, nil
}

// metadata compiles one manifest entry into an endpoint descriptor,
// running the same validation the library applies at construction.
func (e *manifestEndpoint) metadata() (*fedwire.Metadata, error) {
	auth, err := fedwire.ParseAuthScheme(e.Auth)
	if err != nil {
		return nil, fmt.Errorf("endpoint %s: %w", e.Name, err)
	}
	variants := make([]fedwire.PathVariant, len(e.Paths))
	for i, p := range e.Paths {
		variants[i] = fedwire.PathVariant{
			Template:   p.Template,
			Added:      p.Added,
			Deprecated: p.Deprecated,
			Removed:    p.Removed,
			Unstable:   p.Unstable,
		}
	}
	md, err := fedwire.NewMetadata(e.Name, e.Method, auth, variants...)
	if err != nil {
		return nil, err
	}
	if e.RateLimited {
		md.RateLimited()
	}
	return md, nil
}
