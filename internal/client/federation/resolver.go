package federation

import (
	"github.com/jonline-io/jonline-go/internal/client/registry"
)

// AccountOrServer is a resolved (server, account) pair. A nil Account means
// anonymous access on that server; a zero value means no server matched.
type AccountOrServer struct {
	Server  *registry.Server
	Account *registry.Account
}

// Credential returns the access token to attach, or "" for anonymous calls.
func (aos AccountOrServer) Credential() string {
	if aos.Account == nil {
		return ""
	}
	return aos.Account.AccessToken.Token
}

// Resolver answers "which credentials act on which server" questions against
// the live registries.
type Resolver struct {
	servers  *registry.ServerRegistry
	accounts *registry.AccountRegistry
}

func NewResolver(servers *registry.ServerRegistry, accounts *registry.AccountRegistry) *Resolver {
	return &Resolver{servers: servers, accounts: accounts}
}

// Current returns the selected server with the active account.
func (r *Resolver) Current() AccountOrServer {
	var out AccountOrServer
	if srv, ok := r.servers.Selected(); ok {
		out.Server = &srv
	}
	if acc, ok := r.accounts.Active(); ok {
		out.Account = &acc
	}
	return out
}

// CurrentAndPinned returns the current pair followed by one pair per pinned
// server, each with its chosen account if that account still exists. The
// current server is never duplicated even when it is also pinned. This list
// order is the merge order for cross-server page reads.
func (r *Resolver) CurrentAndPinned() []AccountOrServer {
	current := r.Current()
	out := []AccountOrServer{current}

	currentID := ""
	if current.Server != nil {
		currentID = current.Server.ID()
	}

	for _, link := range r.accounts.Pinned() {
		if !link.Pinned || link.ServerID == currentID {
			continue
		}
		srv, ok := r.servers.Get(link.ServerID)
		if !ok {
			continue
		}
		pair := AccountOrServer{Server: &srv}
		if link.AccountID != "" {
			if acc, ok := r.accounts.Get(link.AccountID); ok {
				pair.Account = &acc
			}
		}
		out = append(out, pair)
	}
	return out
}

// ResolveFor picks the pair whose credentials must sign a call about the
// given federated entity reference (an entity id or a bare host name). An
// unknown host resolves to the zero pair: the caller has no standing there.
func (r *Resolver) ResolveFor(entityRef string) AccountOrServer {
	if entityRef == "" {
		return r.Current()
	}

	_, host := ParseFederatedID(entityRef)
	if host == "" {
		// A bare reference is either a host name or a local id on the
		// current server; a host that matches a known pair wins.
		host = entityRef
	}

	for _, pair := range r.CurrentAndPinned() {
		if pair.Server != nil && pair.Server.Host == host {
			return pair
		}
	}

	// Bare local id on the current server.
	if _, parsedHost := ParseFederatedID(entityRef); parsedHost == "" {
		current := r.Current()
		if current.Server != nil {
			return current
		}
	}
	return AccountOrServer{}
}
