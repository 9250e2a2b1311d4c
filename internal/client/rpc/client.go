// Package rpc provides the typed Jonline RPC client used by the pool. One
// client wraps one connection to one backend endpoint; credentials are
// supplied per call, because a pooled client is shared by every account known
// for its server.
package rpc

import (
	"context"

	"github.com/jonline-io/jonline-go/internal/api"
)

// Client is the protocol surface the rest of the client relies on.
//
// Contract:
//   - Calls taking a credential attach it as authorization metadata when
//     non-empty; an empty credential makes an anonymous call.
//   - Business errors (not found, permission denied) pass through as the
//     common sentinel errors without reinterpretation.
//   - All methods honor context cancellation and deadlines.
type Client interface {
	GetServiceVersion(ctx context.Context) (*api.GetServiceVersionResponse, error)
	GetServerConfiguration(ctx context.Context) (*api.ServerConfiguration, error)

	CreateAccount(ctx context.Context, req *api.CreateAccountRequest) (*api.RefreshTokenResponse, error)
	Login(ctx context.Context, req *api.LoginRequest) (*api.RefreshTokenResponse, error)
	GetCurrentUser(ctx context.Context, credential string) (*api.User, error)

	GetUsers(ctx context.Context, req *api.GetUsersRequest, credential string) (*api.GetUsersResponse, error)
	GetGroups(ctx context.Context, req *api.GetGroupsRequest, credential string) (*api.GetGroupsResponse, error)
	GetPosts(ctx context.Context, req *api.GetPostsRequest, credential string) (*api.GetPostsResponse, error)
	GetEvents(ctx context.Context, req *api.GetEventsRequest, credential string) (*api.GetEventsResponse, error)

	CreatePost(ctx context.Context, post *api.Post, credential string) (*api.Post, error)
	UpdatePost(ctx context.Context, post *api.Post, credential string) (*api.Post, error)
	DeletePost(ctx context.Context, post *api.Post, credential string) (*api.Post, error)

	Close() error
}
