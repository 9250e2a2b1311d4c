// Package pagecache caches pages of entity ids per listing key and origin
// server, plus the entities those ids resolve to. Everything in here is
// credential-scoped and rebuildable: it is dropped wholesale whenever the
// active account or server changes and is never persisted.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonline-io/jonline-go/internal/api"
	"github.com/jonline-io/jonline-go/internal/client/federation"
	"github.com/jonline-io/jonline-go/internal/client/pool"
	"github.com/jonline-io/jonline-go/internal/client/registry"
	"github.com/jonline-io/jonline-go/internal/logging"
)

// DefaultPageSize is the expected full-page length; a shorter page marks the
// listing as exhausted for its origin server.
const DefaultPageSize = 10

// pendingPrefix marks temporary keys; they never hit the federation
// normalizer.
const pendingPrefix = "pending:"

// ErrNoOriginServer is returned by LoadPage when the resolved pair carries no
// server to fetch from.
var ErrNoOriginServer = errors.New("pagecache: no origin server resolved")

// EntityKind selects which listing family a key belongs to.
type EntityKind int

const (
	KindPost EntityKind = iota
	KindEvent
	KindUser
	KindGroup
)

// ListingKey identifies one logical listing. Group-scoped listings carry the
// group id so the same listing type caches independently per group.
type ListingKey struct {
	Kind    EntityKind
	Type    int32
	GroupID string
}

func PostListing(t api.PostListingType, groupID string) ListingKey {
	return ListingKey{Kind: KindPost, Type: int32(t), GroupID: groupID}
}

func EventListing(t api.EventListingType, groupID string) ListingKey {
	return ListingKey{Kind: KindEvent, Type: int32(t), GroupID: groupID}
}

func UserListing(t api.UserListingType) ListingKey {
	return ListingKey{Kind: KindUser, Type: int32(t)}
}

func GroupListing(t api.GroupListingType) ListingKey {
	return ListingKey{Kind: KindGroup, Type: int32(t)}
}

// Status marks whether an entity has been acknowledged by its origin server.
type Status int

const (
	// Confirmed entities carry their server-assigned id.
	Confirmed Status = iota
	// Pending entities exist only locally under a temporary key, awaiting
	// the server acknowledgment that promotes them.
	Pending
)

// PostEntry is a cached post with its acknowledgment status.
type PostEntry struct {
	Post   *api.Post
	Status Status
}

// Cache holds pages of federated ids keyed by (listing, origin server, page)
// and the entities behind them. Page lists are replaced wholesale on reload,
// never partially mutated.
type Cache struct {
	mu sync.RWMutex

	// listing -> origin server id -> page -> ordered federated ids.
	pages map[ListingKey]map[string]map[int32][]string
	// first page known to be terminal, per listing and origin server.
	final map[ListingKey]map[string]int32

	posts  map[string]PostEntry
	events map[string]*api.Event
	users  map[string]*api.User
	groups map[string]*api.Group

	pool    *pool.Pool
	servers *registry.ServerRegistry
	log     logging.Logger

	// PageSize is the expected full-page length. Tests shrink it.
	PageSize int
}

func New(p *pool.Pool, servers *registry.ServerRegistry, log logging.Logger) *Cache {
	if log == nil {
		log = logging.Nop()
	}
	c := &Cache{
		pool:     p,
		servers:  servers,
		log:      log.With("component", "pagecache"),
		PageSize: DefaultPageSize,
	}
	c.resetLocked()
	return c
}

// LoadPage fetches one page of the listing from the pair's origin server and
// caches both the id list and the entities. The returned ids are federated
// against the origin host. A fetch error leaves the previously cached page,
// if any, untouched.
func (c *Cache) LoadPage(ctx context.Context, pair federation.AccountOrServer, key ListingKey, page int32) ([]string, error) {
	if pair.Server == nil {
		return nil, ErrNoOriginServer
	}

	client, err := c.pool.GetClient(ctx, *pair.Server)
	if err != nil {
		return nil, err
	}

	var ids []string
	host := pair.Server.Host
	credential := pair.Credential()

	switch key.Kind {
	case KindPost:
		resp, err := client.GetPosts(ctx, &api.GetPostsRequest{
			ListingType: api.PostListingType(key.Type),
			GroupID:     key.GroupID,
			Page:        page,
		}, credential)
		if err != nil {
			return nil, fmt.Errorf("load posts page: %w", err)
		}
		c.mu.Lock()
		for _, post := range resp.Posts {
			id := federation.FederateID(post.ID, host)
			c.posts[id] = PostEntry{Post: post, Status: Confirmed}
			ids = append(ids, id)
		}
	case KindEvent:
		resp, err := client.GetEvents(ctx, &api.GetEventsRequest{
			ListingType: api.EventListingType(key.Type),
			GroupID:     key.GroupID,
			Page:        page,
		}, credential)
		if err != nil {
			return nil, fmt.Errorf("load events page: %w", err)
		}
		c.mu.Lock()
		for _, event := range resp.Events {
			id := federation.FederateID(event.ID, host)
			c.events[id] = event
			ids = append(ids, id)
		}
	case KindUser:
		resp, err := client.GetUsers(ctx, &api.GetUsersRequest{
			ListingType: api.UserListingType(key.Type),
			Page:        page,
		}, credential)
		if err != nil {
			return nil, fmt.Errorf("load users page: %w", err)
		}
		c.mu.Lock()
		for _, user := range resp.Users {
			id := federation.FederateID(user.ID, host)
			c.users[id] = user
			ids = append(ids, id)
		}
	case KindGroup:
		resp, err := client.GetGroups(ctx, &api.GetGroupsRequest{
			ListingType: api.GroupListingType(key.Type),
			Page:        page,
		}, credential)
		if err != nil {
			return nil, fmt.Errorf("load groups page: %w", err)
		}
		c.mu.Lock()
		for _, group := range resp.Groups {
			id := federation.FederateID(group.ID, host)
			c.groups[id] = group
			ids = append(ids, id)
		}
	default:
		return nil, fmt.Errorf("unknown entity kind %d", key.Kind)
	}

	serverID := pair.Server.ID()
	c.storePageLocked(key, serverID, page, ids)
	c.mu.Unlock()

	c.log.Debug(ctx, "page loaded", "server", serverID, "page", page, "count", len(ids))
	return ids, nil
}

// HasPage reports whether the page is already cached for the origin server.
// Callers consult this before dispatching a fetch; a cached page is served
// from memory until Reset drops it.
func (c *Cache) HasPage(key ListingKey, serverID string, page int32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.pages[key][serverID][page]
	return ok
}

// storePageLocked replaces the page and updates termination knowledge.
func (c *Cache) storePageLocked(key ListingKey, serverID string, page int32, ids []string) {
	byServer, ok := c.pages[key]
	if !ok {
		byServer = map[string]map[int32][]string{}
		c.pages[key] = byServer
	}
	byPage, ok := byServer[serverID]
	if !ok {
		byPage = map[int32][]string{}
		byServer[serverID] = byPage
	}
	byPage[page] = ids

	if len(ids) < c.PageSize {
		finals, ok := c.final[key]
		if !ok {
			finals = map[string]int32{}
			c.final[key] = finals
		}
		if prev, ok := finals[serverID]; !ok || page < prev {
			finals[serverID] = page
		}
	} else if finals, ok := c.final[key]; ok && finals[serverID] == page {
		// A full reload of a previously short page clears its terminal mark.
		delete(finals, serverID)
	}
}

// MergedIDs concatenates cached pages 0..throughPage per pair, in pair order.
// Ordering across servers is the caller's concern; uncached pages contribute
// nothing.
func (c *Cache) MergedIDs(key ListingKey, throughPage int32, pairs []federation.AccountOrServer) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for _, pair := range pairs {
		if pair.Server == nil {
			continue
		}
		byPage, ok := c.pages[key][pair.Server.ID()]
		if !ok {
			continue
		}
		for page := int32(0); page <= throughPage; page++ {
			out = append(out, byPage[page]...)
		}
	}
	return out
}

// MergedPosts resolves MergedIDs through the post cache, dropping ids whose
// entity is no longer cached.
func (c *Cache) MergedPosts(key ListingKey, throughPage int32, pairs []federation.AccountOrServer) []*api.Post {
	ids := c.MergedIDs(key, throughPage, pairs)
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*api.Post, 0, len(ids))
	for _, id := range ids {
		if entry, ok := c.posts[id]; ok {
			out = append(out, entry.Post)
		}
	}
	return out
}

func (c *Cache) MergedEvents(key ListingKey, throughPage int32, pairs []federation.AccountOrServer) []*api.Event {
	ids := c.MergedIDs(key, throughPage, pairs)
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*api.Event, 0, len(ids))
	for _, id := range ids {
		if event, ok := c.events[id]; ok {
			out = append(out, event)
		}
	}
	return out
}

func (c *Cache) MergedUsers(key ListingKey, throughPage int32, pairs []federation.AccountOrServer) []*api.User {
	ids := c.MergedIDs(key, throughPage, pairs)
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*api.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := c.users[id]; ok {
			out = append(out, user)
		}
	}
	return out
}

func (c *Cache) MergedGroups(key ListingKey, throughPage int32, pairs []federation.AccountOrServer) []*api.Group {
	ids := c.MergedIDs(key, throughPage, pairs)
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*api.Group, 0, len(ids))
	for _, id := range ids {
		if group, ok := c.groups[id]; ok {
			out = append(out, group)
		}
	}
	return out
}

// HasNextPage reports whether any of the pairs may have a page after
// currentPage: the page at currentPage is cached with a full PageSize entries
// and no earlier page was terminal. A short page is terminal for its origin
// server. Exhaustion is inferred purely from page length, so a page trimmed
// server-side to exactly PageSize reads as having more.
func (c *Cache) HasNextPage(key ListingKey, currentPage int32, pairs []federation.AccountOrServer) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, pair := range pairs {
		if pair.Server == nil {
			continue
		}
		serverID := pair.Server.ID()
		ids, ok := c.pages[key][serverID][currentPage]
		if !ok || len(ids) < c.PageSize {
			continue
		}
		if finals, ok := c.final[key]; ok {
			if terminal, ok := finals[serverID]; ok && terminal <= currentPage {
				continue
			}
		}
		return true
	}
	return false
}

// Post looks up a cached post by either form of its id.
func (c *Cache) Post(id string) (*api.Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.posts[c.normalizeLocked(id)]
	if !ok {
		return nil, false
	}
	return entry.Post, true
}

// PostStatus reports the acknowledgment status of a cached post.
func (c *Cache) PostStatus(id string) (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.posts[c.normalizeLocked(id)]
	if !ok {
		return 0, false
	}
	return entry.Status, true
}

func (c *Cache) Event(id string) (*api.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	event, ok := c.events[c.normalizeLocked(id)]
	return event, ok
}

func (c *Cache) User(id string) (*api.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	user, ok := c.users[c.normalizeLocked(id)]
	return user, ok
}

func (c *Cache) Group(id string) (*api.Group, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	group, ok := c.groups[c.normalizeLocked(id)]
	return group, ok
}

// StorePost caches (or refreshes) a confirmed post under its origin-federated
// id and returns that id.
func (c *Cache) StorePost(post *api.Post, originHost string) string {
	id := federation.FederateID(post.ID, originHost)
	c.mu.Lock()
	c.posts[id] = PostEntry{Post: post, Status: Confirmed}
	c.mu.Unlock()
	return id
}

// StartPendingPost caches a post that has no server-assigned id yet and
// returns its temporary key. PromotePost or DiscardPending must follow.
func (c *Cache) StartPendingPost(post *api.Post) string {
	tempKey := pendingPrefix + uuid.NewString()
	c.mu.Lock()
	c.posts[tempKey] = PostEntry{Post: post, Status: Pending}
	c.mu.Unlock()
	return tempKey
}

// PromotePost replaces a pending post with its acknowledged form under the
// origin-federated id, and returns that id.
func (c *Cache) PromotePost(tempKey string, confirmed *api.Post, originHost string) string {
	id := federation.FederateID(confirmed.ID, originHost)
	c.mu.Lock()
	delete(c.posts, tempKey)
	c.posts[id] = PostEntry{Post: confirmed, Status: Confirmed}
	c.mu.Unlock()
	return id
}

// DiscardPending drops a pending post whose creation failed.
func (c *Cache) DiscardPending(tempKey string) {
	c.mu.Lock()
	delete(c.posts, tempKey)
	c.mu.Unlock()
}

// RemovePost evicts a post by either form of its id, and removes it from
// every cached page list.
func (c *Cache) RemovePost(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.normalizeLocked(id)
	delete(c.posts, key)
	for _, byServer := range c.pages {
		for _, byPage := range byServer {
			for page, ids := range byPage {
				byPage[page] = removeID(ids, key)
			}
		}
	}
}

// Reset drops all cached pages for one listing. Entities stay cached; only
// the page lists referencing them go.
func (c *Cache) Reset(key ListingKey) {
	c.mu.Lock()
	delete(c.pages, key)
	delete(c.final, key)
	c.mu.Unlock()
}

// ResetAll drops every cached page and entity. Runs synchronously whenever
// the active account or server changes, so a read immediately after a switch
// never sees data fetched under the previous credentials.
func (c *Cache) ResetAll() {
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
}

func (c *Cache) resetLocked() {
	c.pages = map[ListingKey]map[string]map[int32][]string{}
	c.final = map[ListingKey]map[string]int32{}
	c.posts = map[string]PostEntry{}
	c.events = map[string]*api.Event{}
	c.users = map[string]*api.User{}
	c.groups = map[string]*api.Group{}
}

// normalizeLocked maps both id forms onto the federated slot against the
// currently selected server.
func (c *Cache) normalizeLocked(id string) string {
	if strings.HasPrefix(id, pendingPrefix) {
		return id
	}
	host := ""
	if srv, ok := c.servers.Selected(); ok {
		host = srv.Host
	}
	return federation.NormalizeKey(id, host)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
