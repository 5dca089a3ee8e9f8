package fedwire

// Shared endpoint fixtures modeled on real chat-API endpoints: a no-auth
// login flow, a room join with a path history spanning three generations,
// a media upload with a raw body, and a token-introspection endpoint.

type loginRequest struct {
	Type string `fed:"query,type"`
}

type loginResponse struct {
	UserID      string `fed:"body,user_id"`
	AccessToken string `fed:"body,access_token"`
}

var loginEndpoint = MustEndpoint(
	MustMetadata("login", "GET", AuthNone,
		PathVariant{Template: "/v1/login", Added: V1_0},
	),
	MustDeriveMapping[loginRequest](),
	MustDeriveMapping[loginResponse](),
)

type joinRoomRequest struct {
	RoomID string  `fed:"path,room_id"`
	Reason *string `fed:"body,reason"`
}

type joinRoomResponse struct {
	RoomID string `fed:"body,room_id"`
}

var joinRoomEndpoint = MustEndpoint(
	MustMetadata("join_room", "POST", AuthAccessToken,
		PathVariant{Template: "/r0/rooms/{room_id}/join", Added: VersionR0, Removed: V1_1},
		PathVariant{Template: "/v3/rooms/{room_id}/join", Added: V1_1},
	).RateLimited(),
	MustDeriveMapping[joinRoomRequest](),
	MustDeriveMapping[joinRoomResponse](),
)

type uploadRequest struct {
	MediaID     string `fed:"path,media_id"`
	ContentType string `fed:"header,Content-Type,optional"`
	Content     []byte `fed:"raw"`
}

type uploadResponse struct {
	ContentURI string `fed:"body,content_uri"`
}

var uploadEndpoint = MustEndpoint(
	MustMetadata("upload_media", "POST", AuthAccessToken,
		PathVariant{Template: "/v3/media/upload/{media_id}", Added: V1_1},
	),
	MustDeriveMapping[uploadRequest](),
	MustDeriveMapping[uploadResponse](),
)

type whoamiResponse struct {
	UserID string `fed:"body,user_id"`
}

var whoamiEndpoint = MustEndpoint(
	MustMetadata("whoami", "GET", AuthAccessToken,
		PathVariant{Template: "/v3/account/whoami", Added: V1_1},
	),
	nil,
	MustDeriveMapping[whoamiResponse](),
)

type registerRequest struct {
	Username string `fed:"body,username" validate:"required,min=3"`
}

type registerResponse struct {
	UserID string `fed:"body,user_id"`
}

var registerEndpoint = MustEndpoint(
	MustMetadata("register", "POST", AuthNone,
		PathVariant{Template: "/v3/register", Added: V1_1},
	),
	MustDeriveMapping[registerRequest](),
	MustDeriveMapping[registerResponse](),
)

func strPtr(s string) *string { return &s }
