package fedwire

import (
	"strings"
	"testing"
)

func TestNewMetadataValidation(t *testing.T) {
	tests := []struct {
		name     string
		epName   string
		method   string
		variants []PathVariant
		wantErr  string
	}{
		{
			name:   "valid single variant",
			epName: "whoami", method: "GET",
			variants: []PathVariant{{Template: "/v3/account/whoami", Added: V1_1}},
		},
		{
			name:   "missing name",
			epName: "", method: "GET",
			variants: []PathVariant{{Template: "/v3/x"}},
			wantErr:  "diagnostic name",
		},
		{
			name:   "bad method",
			epName: "whoami", method: "FETCH",
			variants: []PathVariant{{Template: "/v3/x"}},
			wantErr:  "unsupported method",
		},
		{
			name:   "no variants",
			epName: "whoami", method: "GET",
			wantErr: "at least one path variant",
		},
		{
			name:   "bad template",
			epName: "whoami", method: "GET",
			variants: []PathVariant{{Template: "no-leading-slash"}},
			wantErr:  "no-leading-slash",
		},
		{
			name:   "overlapping stable variants",
			epName: "join", method: "POST",
			variants: []PathVariant{
				{Template: "/r0/rooms/{room_id}/join", Added: VersionR0},
				{Template: "/v3/rooms/{room_id}/join", Added: V1_1},
			},
			wantErr: "overlapping validity ranges",
		},
		{
			name:   "disjoint stable variants",
			epName: "join", method: "POST",
			variants: []PathVariant{
				{Template: "/r0/rooms/{room_id}/join", Added: VersionR0, Removed: V1_1},
				{Template: "/v3/rooms/{room_id}/join", Added: V1_1},
			},
		},
		{
			name:   "unstable may shadow stable",
			epName: "join", method: "POST",
			variants: []PathVariant{
				{Template: "/v3/rooms/{room_id}/join", Added: V1_1},
				{Template: "/unstable/org.example/rooms/{room_id}/join", Unstable: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMetadata(tt.epName, tt.method, AuthNone, tt.variants...)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestMetadataVariantOrder(t *testing.T) {
	md := MustMetadata("sync", "GET", AuthAccessToken,
		PathVariant{Template: "/unstable/org.example/sync", Unstable: true},
		PathVariant{Template: "/r0/sync", Added: VersionR0, Removed: V1_1},
		PathVariant{Template: "/v3/sync", Added: V1_1},
	)
	got := md.PathVariants()
	want := []string{"/v3/sync", "/r0/sync", "/unstable/org.example/sync"}
	if len(got) != len(want) {
		t.Fatalf("expected %d variants, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Template != want[i] {
			t.Errorf("variant %d: expected %q, got %q", i, want[i], got[i].Template)
		}
	}
}

func TestMetadataAccessors(t *testing.T) {
	md := joinRoomEndpoint.Metadata
	if md.Name() != "join_room" {
		t.Errorf("Name() = %q", md.Name())
	}
	if md.Method() != "POST" {
		t.Errorf("Method() = %q", md.Method())
	}
	if md.Auth() != AuthAccessToken {
		t.Errorf("Auth() = %v", md.Auth())
	}
	if !md.IsRateLimited() {
		t.Error("expected join_room to be rate limited")
	}
	if loginEndpoint.Metadata.IsRateLimited() {
		t.Error("login must not be rate limited")
	}
}

func TestPathVariantValidAt(t *testing.T) {
	tests := []struct {
		name string
		pv   PathVariant
		v    SpecVersion
		want bool
	}{
		{"before added", PathVariant{Added: V1_1}, V1_0, false},
		{"at added", PathVariant{Added: V1_1}, V1_1, true},
		{"after added", PathVariant{Added: V1_1}, V1_5, true},
		{"at removed", PathVariant{Added: VersionR0, Removed: V1_1}, V1_1, false},
		{"before removed", PathVariant{Added: VersionR0, Removed: V1_1}, V1_0, true},
		{"open both ends", PathVariant{}, V1_5, true},
		{"deprecated is advisory", PathVariant{Added: V1_0, Deprecated: V1_1}, V1_5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pv.ValidAt(tt.v); got != tt.want {
				t.Errorf("ValidAt(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestNewEndpointValidation(t *testing.T) {
	t.Run("placeholder without path field", func(t *testing.T) {
		md := MustMetadata("join", "POST", AuthAccessToken,
			PathVariant{Template: "/v3/rooms/{room_id}/join", Added: V1_1},
		)
		_, err := NewEndpoint(md, MustDeriveMapping[loginRequest](), nil)
		if err == nil {
			t.Fatal("expected error for uncovered placeholder")
		}
	})

	t.Run("path field without placeholder", func(t *testing.T) {
		md := MustMetadata("login", "GET", AuthNone,
			PathVariant{Template: "/v1/login", Added: V1_0},
		)
		_, err := NewEndpoint(md, MustDeriveMapping[joinRoomRequest](), nil)
		if err == nil {
			t.Fatal("expected error for unused path field")
		}
	})

	t.Run("response must not map path fields", func(t *testing.T) {
		md := MustMetadata("login", "GET", AuthNone,
			PathVariant{Template: "/v1/login", Added: V1_0},
		)
		_, err := NewEndpoint(md, nil, MustDeriveMapping[loginRequest]())
		if err == nil {
			t.Fatal("expected error for query params on a response mapping")
		}
	})

	t.Run("nil mappings are fine when no fields are needed", func(t *testing.T) {
		md := MustMetadata("ping", "GET", AuthNone,
			PathVariant{Template: "/v1/ping", Added: V1_0},
		)
		ep, err := NewEndpoint(md, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if ep.Metadata != md {
			t.Error("endpoint does not carry its metadata")
		}
	})

	t.Run("nil metadata", func(t *testing.T) {
		if _, err := NewEndpoint(nil, nil, nil); err == nil {
			t.Fatal("expected error for nil metadata")
		}
	})
}
