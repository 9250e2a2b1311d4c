package api

// Listing types mirror the protocol enums. Values matter: group-scoped
// listings sit at an offset above the account-scoped ones.

type PostListingType int32

const (
	PostListingAllAccessible PostListingType = 0
	PostListingFollowing     PostListingType = 1
	PostListingMyGroups      PostListingType = 2
	PostListingDirect        PostListingType = 3
	PostListingGroupPosts    PostListingType = 10
)

type EventListingType int32

const (
	EventListingAllAccessible EventListingType = 0
	EventListingFollowing     EventListingType = 1
	EventListingMyGroups      EventListingType = 2
	EventListingGroupEvents   EventListingType = 10
)

type UserListingType int32

const (
	UserListingEveryone  UserListingType = 0
	UserListingFollowing UserListingType = 1
	UserListingFriends   UserListingType = 2
)

type GroupListingType int32

const (
	GroupListingAllAccessible GroupListingType = 0
	GroupListingMyGroups      GroupListingType = 1
	GroupListingRequested     GroupListingType = 2
)

// CreateAccountRequest registers a new account on a single server.
type CreateAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// LoginRequest authenticates against a single server.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshTokenResponse is returned by both CreateAccount and Login.
type RefreshTokenResponse struct {
	RefreshToken *ExpirableToken `json:"refreshToken,omitempty"`
	AccessToken  *ExpirableToken `json:"accessToken,omitempty"`
	User         *User           `json:"user,omitempty"`
}

// GetUsersRequest pages through users. Pages are 0-indexed.
type GetUsersRequest struct {
	Username    string          `json:"username,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	ListingType UserListingType `json:"listingType"`
	Page        int32           `json:"page,omitempty"`
}

type GetUsersResponse struct {
	Users       []*User `json:"users"`
	HasNextPage bool    `json:"hasNextPage,omitempty"`
}

// GetGroupsRequest pages through groups.
type GetGroupsRequest struct {
	GroupID     string           `json:"groupId,omitempty"`
	GroupName   string           `json:"groupName,omitempty"`
	ListingType GroupListingType `json:"listingType"`
	Page        int32            `json:"page,omitempty"`
}

type GetGroupsResponse struct {
	Groups      []*Group `json:"groups"`
	HasNextPage bool     `json:"hasNextPage,omitempty"`
}

// GetPostsRequest pages through posts. GroupPosts listings require GroupID.
type GetPostsRequest struct {
	PostID       string          `json:"postId,omitempty"`
	AuthorUserID string          `json:"authorUserId,omitempty"`
	GroupID      string          `json:"groupId,omitempty"`
	ReplyDepth   int32           `json:"replyDepth,omitempty"`
	ListingType  PostListingType `json:"listingType"`
	Page         int32           `json:"page,omitempty"`
}

type GetPostsResponse struct {
	Posts []*Post `json:"posts"`
}

// GetEventsRequest pages through events. GroupEvents listings require GroupID.
type GetEventsRequest struct {
	EventID      string           `json:"eventId,omitempty"`
	AuthorUserID string           `json:"authorUserId,omitempty"`
	GroupID      string           `json:"groupId,omitempty"`
	ListingType  EventListingType `json:"listingType"`
	Page         int32            `json:"page,omitempty"`
}

type GetEventsResponse struct {
	Events []*Event `json:"events"`
}
