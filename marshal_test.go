package fedwire

import (
	"encoding/json"
	"testing"
)

func TestMarshalRequestJoinRoom(t *testing.T) {
	req := &joinRoomRequest{RoomID: "!room:example.org", Reason: strPtr("invited")}
	msg, err := MarshalRequest(joinRoomEndpoint, req, RequestOptions{
		Versions:    []SpecVersion{V1_1, V1_2},
		AccessToken: "syt_abc",
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Method != "POST" {
		t.Errorf("method = %q", msg.Method)
	}
	if msg.Path != "/v3/rooms/!room:example.org/join" {
		t.Errorf("path = %q", msg.Path)
	}
	if got := msg.Header.Get("Authorization"); got != "Bearer syt_abc" {
		t.Errorf("Authorization = %q", got)
	}
	if got := msg.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	var body map[string]string
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		t.Fatal(err)
	}
	if body["reason"] != "invited" {
		t.Errorf("body = %v", body)
	}
}

func TestMarshalRequestLegacyTokenPlacement(t *testing.T) {
	req := &joinRoomRequest{RoomID: "!room:example.org"}
	msg, err := MarshalRequest(joinRoomEndpoint, req, RequestOptions{
		Versions:    []SpecVersion{VersionR0},
		AccessToken: "syt_abc",
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Path != "/r0/rooms/!room:example.org/join" {
		t.Errorf("path = %q", msg.Path)
	}
	if got := msg.Query.Get("access_token"); got != "syt_abc" {
		t.Errorf("query token = %q", got)
	}
	if msg.Header.Get("Authorization") != "" {
		t.Error("legacy calls must not set the Authorization header")
	}
}

func TestMarshalRequestOptionalBodyOmitted(t *testing.T) {
	req := &joinRoomRequest{RoomID: "!room:example.org"}
	msg, err := MarshalRequest(joinRoomEndpoint, req, RequestOptions{
		Versions:    []SpecVersion{V1_1},
		AccessToken: "syt_abc",
	})
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["reason"]; ok {
		t.Errorf("absent optional field leaked into the body: %s", msg.Body)
	}
}

func TestMarshalRequestPathEscaping(t *testing.T) {
	req := &joinRoomRequest{RoomID: "#room alias/x:example.org"}
	msg, err := MarshalRequest(joinRoomEndpoint, req, RequestOptions{
		Versions:    []SpecVersion{V1_1},
		AccessToken: "syt_abc",
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Path != "/v3/rooms/%23room%20alias%2Fx:example.org/join" {
		t.Errorf("path = %q", msg.Path)
	}
}

func TestMarshalRequestQuery(t *testing.T) {
	msg, err := MarshalRequest(loginEndpoint, &loginRequest{Type: "password"}, RequestOptions{
		Versions: []SpecVersion{V1_0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Path != "/v1/login" {
		t.Errorf("path = %q", msg.Path)
	}
	if got := msg.Query.Get("type"); got != "password" {
		t.Errorf("query type = %q", got)
	}
	if len(msg.Body) != 0 {
		t.Errorf("query-only request must not carry a body, got %s", msg.Body)
	}
	if msg.Header.Get("Content-Type") != "" {
		t.Error("bodyless request must not set Content-Type")
	}
}

func TestMarshalRequestRawBody(t *testing.T) {
	req := &uploadRequest{
		MediaID:     "m123",
		ContentType: "image/png",
		Content:     []byte{0x89, 'P', 'N', 'G'},
	}
	msg, err := MarshalRequest(uploadEndpoint, req, RequestOptions{
		Versions:    []SpecVersion{V1_1},
		AccessToken: "syt_abc",
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Body) != string(req.Content) {
		t.Errorf("raw body altered: %v", msg.Body)
	}
	if got := msg.Header.Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestMarshalRequestNilRequest(t *testing.T) {
	// Endpoints with no request fields take a nil request value.
	msg, err := MarshalRequest(whoamiEndpoint, nil, RequestOptions{
		Versions:    []SpecVersion{V1_1},
		AccessToken: "syt_abc",
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Method != "GET" || msg.Path != "/v3/account/whoami" {
		t.Errorf("message = %s %s", msg.Method, msg.Path)
	}
	if len(msg.Body) != 0 {
		t.Errorf("body = %q", msg.Body)
	}

	var srvReq struct{}
	if err := UnmarshalRequest(whoamiEndpoint, msg, &srvReq); err != nil {
		t.Fatal(err)
	}

	out, err := MarshalResponse(whoamiEndpoint, &whoamiResponse{UserID: "@alice:example.org"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	var res whoamiResponse
	if err := UnmarshalResponse(whoamiEndpoint, out, &res); err != nil {
		t.Fatal(err)
	}
	if res.UserID != "@alice:example.org" {
		t.Errorf("UserID = %q", res.UserID)
	}
}

func TestMarshalRequestFailsFastWithoutToken(t *testing.T) {
	// Authentication is checked before any wire work, so even a request that
	// could never marshal (empty path field) reports the credential problem.
	req := &joinRoomRequest{}
	_, err := MarshalRequest(joinRoomEndpoint, req, RequestOptions{
		Versions: []SpecVersion{V1_1},
	})
	if KindOf(err) != KindNeedsAuthentication {
		t.Fatalf("expected NeedsAuthentication, got %v", err)
	}
}

func TestMarshalRequestEmptyPathField(t *testing.T) {
	req := &joinRoomRequest{RoomID: ""}
	_, err := MarshalRequest(joinRoomEndpoint, req, RequestOptions{
		Versions:    []SpecVersion{V1_1},
		AccessToken: "syt_abc",
	})
	if KindOf(err) != KindPathEncode {
		t.Fatalf("expected PathEncode, got %v", err)
	}
}

func TestMarshalRequestUnsupportedVersion(t *testing.T) {
	req := &joinRoomRequest{RoomID: "!room:example.org"}
	_, err := MarshalRequest(joinRoomEndpoint, req, RequestOptions{
		Versions:    nil,
		AccessToken: "syt_abc",
	})
	if KindOf(err) != KindUnsupportedVersion {
		t.Fatalf("expected UnsupportedVersion, got %v", err)
	}
}

func TestMarshalResponse(t *testing.T) {
	res := &loginResponse{UserID: "@alice:example.org", AccessToken: "syt_new"}
	out, err := MarshalResponse(loginEndpoint, res, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != 200 {
		t.Errorf("status = %d", out.Status)
	}
	if got := out.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	var body map[string]string
	if err := json.Unmarshal(out.Body, &body); err != nil {
		t.Fatal(err)
	}
	if body["user_id"] != "@alice:example.org" || body["access_token"] != "syt_new" {
		t.Errorf("body = %v", body)
	}
}

func TestMarshalResponseEmptyBodyIsJSONObject(t *testing.T) {
	md := MustMetadata("logout", "POST", AuthAccessToken,
		PathVariant{Template: "/v3/logout", Added: V1_1})
	ep := MustEndpoint(md, nil, nil)
	out, err := MarshalResponse(ep, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(out.Body) != "{}" {
		t.Errorf("body = %q, want an empty JSON object", out.Body)
	}
	if got := out.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestMarshalResponseRequiredFieldMissing(t *testing.T) {
	md := MustMetadata("whoami", "GET", AuthNone,
		PathVariant{Template: "/v3/account/whoami", Added: V1_1})
	res := &WireMapping{Fields: []FieldSpec{{
		Name:     "UserID",
		Wire:     "user_id",
		Location: LocBody,
		Required: true,
		GetJSON:  func(any) (json.RawMessage, bool, error) { return nil, false, nil },
		SetJSON:  func(any, json.RawMessage) error { return nil },
	}}}
	ep := MustEndpoint(md, nil, res)
	_, err := MarshalResponse(ep, nil, 0)
	if KindOf(err) != KindSerialization {
		t.Fatalf("expected Serialization, got %v", err)
	}
}
