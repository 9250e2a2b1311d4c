package app

import (
	"context"
	"errors"

	"github.com/jonline-io/jonline-go/internal/api"
	"github.com/jonline-io/jonline-go/internal/client/federation"
	"github.com/jonline-io/jonline-go/internal/client/pagecache"
)

// Listing reads span the current server plus every pinned one: page is
// fetched per origin server, concatenated in server-list order, and the
// merged view through that page is returned. A server that fails to answer
// contributes nothing; its error joins the returned error alongside the
// partial result.

func (a *App) LoadPosts(ctx context.Context, listing api.PostListingType, groupID string, page int32) ([]*api.Post, error) {
	key := pagecache.PostListing(listing, groupID)
	pairs, err := a.loadAcross(ctx, key, page)
	return a.Pages.MergedPosts(key, page, pairs), err
}

func (a *App) LoadEvents(ctx context.Context, listing api.EventListingType, groupID string, page int32) ([]*api.Event, error) {
	key := pagecache.EventListing(listing, groupID)
	pairs, err := a.loadAcross(ctx, key, page)
	return a.Pages.MergedEvents(key, page, pairs), err
}

func (a *App) LoadUsers(ctx context.Context, listing api.UserListingType, page int32) ([]*api.User, error) {
	key := pagecache.UserListing(listing)
	pairs, err := a.loadAcross(ctx, key, page)
	return a.Pages.MergedUsers(key, page, pairs), err
}

func (a *App) LoadGroups(ctx context.Context, listing api.GroupListingType, page int32) ([]*api.Group, error) {
	key := pagecache.GroupListing(listing)
	pairs, err := a.loadAcross(ctx, key, page)
	return a.Pages.MergedGroups(key, page, pairs), err
}

// loadAcross fetches one page of the listing from every resolvable pair and
// returns the pairs in merge order plus the joined fetch errors. Pages
// already cached for a server are served as-is; RefreshListing drops them
// when the caller wants fresh data.
func (a *App) loadAcross(ctx context.Context, key pagecache.ListingKey, page int32) ([]federation.AccountOrServer, error) {
	pairs := a.Resolver.CurrentAndPinned()
	var errs []error
	for _, pair := range pairs {
		if pair.Server == nil {
			continue
		}
		if a.Pages.HasPage(key, pair.Server.ID(), page) {
			continue
		}
		if _, err := a.Pages.LoadPage(ctx, pair, key, page); err != nil {
			a.Log.Warn(ctx, "page load failed", "server", pair.Server.ID(), "page", page, "error", err)
			errs = append(errs, err)
		}
	}
	return pairs, errors.Join(errs...)
}

// RefreshListing drops every cached page of the listing so the next load
// refetches from each origin server.
func (a *App) RefreshListing(key pagecache.ListingKey) {
	a.Pages.Reset(key)
}

// HasMorePosts reports whether any spanned server may have a page after the
// given one.
func (a *App) HasMorePosts(listing api.PostListingType, groupID string, page int32) bool {
	return a.Pages.HasNextPage(pagecache.PostListing(listing, groupID), page, a.Resolver.CurrentAndPinned())
}

func (a *App) HasMoreEvents(listing api.EventListingType, groupID string, page int32) bool {
	return a.Pages.HasNextPage(pagecache.EventListing(listing, groupID), page, a.Resolver.CurrentAndPinned())
}

func (a *App) HasMoreUsers(listing api.UserListingType, page int32) bool {
	return a.Pages.HasNextPage(pagecache.UserListing(listing), page, a.Resolver.CurrentAndPinned())
}

func (a *App) HasMoreGroups(listing api.GroupListingType, page int32) bool {
	return a.Pages.HasNextPage(pagecache.GroupListing(listing), page, a.Resolver.CurrentAndPinned())
}
