package registry

import (
	"sync"

	"github.com/jonline-io/jonline-go/internal/logging"
)

// ServerRegistry is the ordered set of known server descriptors plus the
// single currently selected one.
type ServerRegistry struct {
	mu       sync.RWMutex
	order    []string
	servers  map[string]Server
	selected string

	accounts *AccountRegistry
	onReset  func()
	onRemove func(Server)
	log      logging.Logger
}

// NewServerRegistry wires the registry to the account registry it cascades
// removals into.
func NewServerRegistry(accounts *AccountRegistry, log logging.Logger) *ServerRegistry {
	if log == nil {
		log = logging.Nop()
	}
	return &ServerRegistry{
		servers:  map[string]Server{},
		accounts: accounts,
		log:      log.With("component", "servers"),
	}
}

// OnCredentialedReset registers the hook invoked synchronously whenever the
// selected server identity changes, before Select returns.
func (r *ServerRegistry) OnCredentialedReset(fn func()) { r.onReset = fn }

// OnRemove registers the hook invoked with every removed descriptor, used by
// the app to evict the live pool entry.
func (r *ServerRegistry) OnRemove(fn func(Server)) { r.onRemove = fn }

// Upsert adds the descriptor or refreshes an existing one in place,
// preserving its position in the order. The first server ever added becomes
// selected.
func (r *ServerRegistry) Upsert(srv Server) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := srv.ID()
	if _, known := r.servers[id]; !known {
		r.order = append(r.order, id)
	}
	r.servers[id] = srv
	if r.selected == "" {
		r.selected = id
	}
}

// Remove deletes the descriptor, every account bound to it, and its live
// client. If the removed descriptor was selected, an arbitrary remaining one
// (or none) becomes selected.
func (r *ServerRegistry) Remove(srv Server) {
	id := srv.ID()

	r.mu.Lock()
	if _, known := r.servers[id]; !known {
		r.mu.Unlock()
		return
	}
	delete(r.servers, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	reselected := false
	if r.selected == id {
		r.selected = ""
		if len(r.order) > 0 {
			r.selected = r.order[0]
		}
		reselected = true
	}
	r.mu.Unlock()

	r.accounts.RemoveByServer(id)
	r.accounts.DropPin(id)
	if r.onRemove != nil {
		r.onRemove(srv)
	}
	if reselected && r.onReset != nil {
		r.onReset()
	}
}

// Select switches the currently selected server. Switching to a different
// identity (including to none) clears every credential-scoped cache before
// this method returns; reselecting the same identity is a no-op for caches.
func (r *ServerRegistry) Select(srv *Server) {
	r.mu.Lock()
	prev := r.selected
	next := ""
	if srv != nil {
		next = srv.ID()
		if _, known := r.servers[next]; !known {
			r.order = append(r.order, next)
			r.servers[next] = *srv
		}
	}
	r.selected = next
	r.mu.Unlock()

	if prev != next && r.onReset != nil {
		r.onReset()
	}
}

// Selected returns the currently selected descriptor, if any.
func (r *ServerRegistry) Selected() (Server, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	srv, ok := r.servers[r.selected]
	return srv, ok
}

// Get returns the descriptor with the given id.
func (r *ServerRegistry) Get(id string) (Server, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	srv, ok := r.servers[id]
	return srv, ok
}

// ByHost returns the descriptor whose host matches, if any.
func (r *ServerRegistry) ByHost(host string) (Server, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if srv := r.servers[id]; srv.Host == host {
			return srv, true
		}
	}
	return Server{}, false
}

// All returns the descriptors in display order.
func (r *ServerRegistry) All() []Server {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Server, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.servers[id])
	}
	return out
}

// MoveUp moves the descriptor one position earlier in display order.
func (r *ServerRegistry) MoveUp(id string) { r.move(id, -1) }

// MoveDown moves the descriptor one position later in display order.
func (r *ServerRegistry) MoveDown(id string) { r.move(id, +1) }

func (r *ServerRegistry) move(id string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, other := range r.order {
		if other != id {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(r.order) {
			return
		}
		r.order[i], r.order[j] = r.order[j], r.order[i]
		return
	}
}

// ServerSnapshot is the persisted form of the registry.
type ServerSnapshot struct {
	Servers  []Server `json:"servers"`
	Selected string   `json:"selected,omitempty"`
}

// Snapshot captures the registry for persistence.
func (r *ServerRegistry) Snapshot() ServerSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := ServerSnapshot{Selected: r.selected}
	for _, id := range r.order {
		snap.Servers = append(snap.Servers, r.servers[id])
	}
	return snap
}

// Restore replaces the registry contents from a snapshot. No reset hooks
// fire; restore happens before the app serves reads.
func (r *ServerRegistry) Restore(snap ServerSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = r.order[:0]
	r.servers = map[string]Server{}
	for _, srv := range snap.Servers {
		id := srv.ID()
		r.order = append(r.order, id)
		r.servers[id] = srv
	}
	r.selected = ""
	if _, ok := r.servers[snap.Selected]; ok {
		r.selected = snap.Selected
	}
}
