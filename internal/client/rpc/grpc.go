package rpc

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/jonline-io/jonline-go/internal/api"
	"github.com/jonline-io/jonline-go/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const serviceName = "/jonline.Jonline/"

// GRPCClient implements Client over a single grpc.ClientConn.
type GRPCClient struct {
	target string
	conn   *grpc.ClientConn
}

var _ Client = (*GRPCClient)(nil)

// Dial constructs a client for host:port. The connection is lazy; the first
// RPC triggers the actual connect.
func Dial(target string, secure bool) (*GRPCClient, error) {
	creds := insecure.NewCredentials()
	if secure {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", target, err)
	}
	return &GRPCClient{target: target, conn: conn}, nil
}

// Target returns the host:port this client was dialed with.
func (c *GRPCClient) Target() string { return c.target }

func (c *GRPCClient) Close() error { return c.conn.Close() }

// withCredential replaces any previous authorization metadata with the given
// token. The token is attached bare, without a scheme prefix.
func withCredential(ctx context.Context, credential string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AuthorizationHeaderName)
	md.Set(common.AuthorizationHeaderName, credential)

	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) invoke(ctx context.Context, method string, in, out any, credential string) error {
	if credential != "" {
		ctx = withCredential(ctx, credential)
	}
	if err := c.conn.Invoke(ctx, serviceName+method, in, out); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *GRPCClient) GetServiceVersion(ctx context.Context) (*api.GetServiceVersionResponse, error) {
	out := &api.GetServiceVersionResponse{}
	if err := c.invoke(ctx, "GetServiceVersion", &api.Empty{}, out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) GetServerConfiguration(ctx context.Context) (*api.ServerConfiguration, error) {
	out := &api.ServerConfiguration{}
	if err := c.invoke(ctx, "GetServerConfiguration", &api.Empty{}, out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) CreateAccount(ctx context.Context, req *api.CreateAccountRequest) (*api.RefreshTokenResponse, error) {
	out := &api.RefreshTokenResponse{}
	if err := c.invoke(ctx, "CreateAccount", req, out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) Login(ctx context.Context, req *api.LoginRequest) (*api.RefreshTokenResponse, error) {
	out := &api.RefreshTokenResponse{}
	if err := c.invoke(ctx, "Login", req, out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) GetCurrentUser(ctx context.Context, credential string) (*api.User, error) {
	out := &api.User{}
	if err := c.invoke(ctx, "GetCurrentUser", &api.Empty{}, out, credential); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) GetUsers(ctx context.Context, req *api.GetUsersRequest, credential string) (*api.GetUsersResponse, error) {
	out := &api.GetUsersResponse{}
	if err := c.invoke(ctx, "GetUsers", req, out, credential); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) GetGroups(ctx context.Context, req *api.GetGroupsRequest, credential string) (*api.GetGroupsResponse, error) {
	out := &api.GetGroupsResponse{}
	if err := c.invoke(ctx, "GetGroups", req, out, credential); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) GetPosts(ctx context.Context, req *api.GetPostsRequest, credential string) (*api.GetPostsResponse, error) {
	out := &api.GetPostsResponse{}
	if err := c.invoke(ctx, "GetPosts", req, out, credential); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) GetEvents(ctx context.Context, req *api.GetEventsRequest, credential string) (*api.GetEventsResponse, error) {
	out := &api.GetEventsResponse{}
	if err := c.invoke(ctx, "GetEvents", req, out, credential); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) CreatePost(ctx context.Context, post *api.Post, credential string) (*api.Post, error) {
	out := &api.Post{}
	if err := c.invoke(ctx, "CreatePost", post, out, credential); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) UpdatePost(ctx context.Context, post *api.Post, credential string) (*api.Post, error) {
	out := &api.Post{}
	if err := c.invoke(ctx, "UpdatePost", post, out, credential); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) DeletePost(ctx context.Context, post *api.Post, credential string) (*api.Post, error) {
	out := &api.Post{}
	if err := c.invoke(ctx, "DeletePost", post, out, credential); err != nil {
		return nil, err
	}
	return out, nil
}

// mapError translates gRPC status codes into the shared sentinel errors.
// Unknown codes are wrapped rather than swallowed.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return common.ErrUnauthorized
	case codes.PermissionDenied:
		return common.ErrPermissionDenied
	case codes.NotFound:
		return common.ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return common.ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
