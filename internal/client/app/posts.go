package app

import (
	"context"
	"fmt"

	"github.com/jonline-io/jonline-go/internal/api"
	"github.com/jonline-io/jonline-go/internal/client/federation"
	"github.com/jonline-io/jonline-go/internal/common"
)

// CreatePost creates a post on the current server, optimistically: the draft
// is visible in the cache under a temporary key while the RPC is in flight,
// then promoted to its server-assigned id on acknowledgment or discarded on
// failure.
func (a *App) CreatePost(ctx context.Context, post *api.Post) (*api.Post, error) {
	pair := a.Resolver.Current()
	if pair.Server == nil {
		return nil, fmt.Errorf("%w: no server selected", common.ErrNotFound)
	}

	tempKey := a.Pages.StartPendingPost(post)

	client, err := a.client(ctx, pair)
	if err != nil {
		a.Pages.DiscardPending(tempKey)
		return nil, err
	}
	confirmed, err := client.CreatePost(ctx, post, pair.Credential())
	if err != nil {
		a.Pages.DiscardPending(tempKey)
		return nil, err
	}

	id := a.Pages.PromotePost(tempKey, confirmed, pair.Server.Host)
	a.Log.Info(ctx, "post created", "id", id)
	return confirmed, nil
}

// UpdatePost updates a post on its origin server, resolved from the
// federated id, and refreshes the cached entity.
func (a *App) UpdatePost(ctx context.Context, post *api.Post) (*api.Post, error) {
	pair := a.Resolver.ResolveFor(post.ID)
	if pair.Server == nil {
		return nil, fmt.Errorf("%w: no server for %s", common.ErrNotFound, post.ID)
	}
	client, err := a.client(ctx, pair)
	if err != nil {
		return nil, err
	}

	// The origin server knows the post by its local id.
	outgoing := *post
	outgoing.ID, _ = federation.ParseFederatedID(post.ID)

	updated, err := client.UpdatePost(ctx, &outgoing, pair.Credential())
	if err != nil {
		return nil, err
	}
	a.Pages.StorePost(updated, pair.Server.Host)
	return updated, nil
}

// DeletePost deletes a post on its origin server and evicts it from the
// cache, including every page list referencing it.
func (a *App) DeletePost(ctx context.Context, postID string) error {
	pair := a.Resolver.ResolveFor(postID)
	if pair.Server == nil {
		return fmt.Errorf("%w: no server for %s", common.ErrNotFound, postID)
	}
	client, err := a.client(ctx, pair)
	if err != nil {
		return err
	}

	local, _ := federation.ParseFederatedID(postID)
	if _, err := client.DeletePost(ctx, &api.Post{ID: local}, pair.Credential()); err != nil {
		return err
	}
	a.Pages.RemovePost(postID)
	return nil
}
