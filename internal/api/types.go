package api

import "time"

// Empty is the request type for RPCs that take no arguments.
type Empty struct{}

// GetServiceVersionResponse reports the backend's release version.
type GetServiceVersionResponse struct {
	Version string `json:"version,omitempty"`
}

// ServerInfo is the operator-provided description of a server.
type ServerInfo struct {
	Name          string            `json:"name,omitempty"`
	Description   string            `json:"description,omitempty"`
	PrivacyPolicy string            `json:"privacyPolicy,omitempty"`
	Colors        map[string]uint32 `json:"colors,omitempty"`
}

// ExternalCDNConfig describes a CDN-fronted deployment: the host users browse
// to and the host actually serving RPCs may differ.
type ExternalCDNConfig struct {
	FrontendHost string `json:"frontendHost,omitempty"`
	BackendHost  string `json:"backendHost,omitempty"`
}

// ServerConfiguration is the negotiated configuration fetched during the
// client handshake.
type ServerConfiguration struct {
	ServerInfo               *ServerInfo        `json:"serverInfo,omitempty"`
	ExternalCDNConfig        *ExternalCDNConfig `json:"externalCdnConfig,omitempty"`
	AnonymousUserPermissions []string           `json:"anonymousUserPermissions,omitempty"`
	DefaultUserPermissions   []string           `json:"defaultUserPermissions,omitempty"`
}

// User is a user account as reported by its origin server.
type User struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	RealName       string     `json:"realName,omitempty"`
	Bio            string     `json:"bio,omitempty"`
	AvatarMediaID  string     `json:"avatarMediaId,omitempty"`
	Permissions    []string   `json:"permissions,omitempty"`
	FollowerCount  int32      `json:"followerCount,omitempty"`
	FollowingCount int32      `json:"followingCount,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
}

// Author is the compact user reference embedded in posts and events.
type Author struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

// Post is a message posted to a server. Replies, and the post halves of
// events, share this shape.
type Post struct {
	ID            string     `json:"id"`
	Author        *Author    `json:"author,omitempty"`
	ReplyToPostID string     `json:"replyToPostId,omitempty"`
	Title         string     `json:"title,omitempty"`
	Link          string     `json:"link,omitempty"`
	Content       string     `json:"content,omitempty"`
	ResponseCount int32      `json:"responseCount,omitempty"`
	GroupCount    int32      `json:"groupCount,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// Group is a group hosted on a single server.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MemberCount int32  `json:"memberCount,omitempty"`
	PostCount   int32  `json:"postCount,omitempty"`
}

// EventInstance is one occurrence of an event.
type EventInstance struct {
	ID       string     `json:"id"`
	EventID  string     `json:"eventId"`
	StartsAt *time.Time `json:"startsAt,omitempty"`
	EndsAt   *time.Time `json:"endsAt,omitempty"`
}

// Event is a schedulable post with one or more instances.
type Event struct {
	ID        string          `json:"id"`
	Post      *Post           `json:"post,omitempty"`
	Instances []EventInstance `json:"instances,omitempty"`
}

// ExpirableToken is a credential token with an optional expiry.
type ExpirableToken struct {
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
