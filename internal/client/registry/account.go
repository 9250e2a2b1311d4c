package registry

import (
	"sync"

	"github.com/jonline-io/jonline-go/internal/api"
	"github.com/jonline-io/jonline-go/internal/logging"
)

// AccountRegistry is the ordered set of known accounts, the single active
// one, and the user's pinned-server links.
type AccountRegistry struct {
	mu       sync.RWMutex
	order    []string
	accounts map[string]Account
	active   string
	pinned   []PinnedServer

	onReset func()
	log     logging.Logger
}

func NewAccountRegistry(log logging.Logger) *AccountRegistry {
	if log == nil {
		log = logging.Nop()
	}
	return &AccountRegistry{
		accounts: map[string]Account{},
		log:      log.With("component", "accounts"),
	}
}

// OnCredentialedReset registers the hook invoked synchronously whenever the
// active account identity changes, before SelectActive returns.
func (r *AccountRegistry) OnCredentialedReset(fn func()) { r.onReset = fn }

// Upsert adds or refreshes an account in place.
func (r *AccountRegistry) Upsert(acc Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := acc.ID()
	if _, known := r.accounts[id]; !known {
		r.order = append(r.order, id)
	}
	r.accounts[id] = acc
}

// Remove deletes the account; if it was active, the selection clears (which
// counts as an identity change and resets credential-scoped caches).
func (r *AccountRegistry) Remove(id string) {
	r.mu.Lock()
	if _, known := r.accounts[id]; !known {
		r.mu.Unlock()
		return
	}
	delete(r.accounts, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	wasActive := r.active == id
	if wasActive {
		r.active = ""
	}
	r.mu.Unlock()

	if wasActive && r.onReset != nil {
		r.onReset()
	}
}

// RemoveByServer deletes every account bound to the given server key. Called
// from the server registry's removal cascade.
func (r *AccountRegistry) RemoveByServer(serverID string) {
	r.mu.Lock()
	kept := r.order[:0]
	resetNeeded := false
	for _, id := range r.order {
		if r.accounts[id].ServerID == serverID {
			delete(r.accounts, id)
			if r.active == id {
				r.active = ""
				resetNeeded = true
			}
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	r.mu.Unlock()

	if resetNeeded && r.onReset != nil {
		r.onReset()
	}
}

// SelectActive switches the active account (nil deselects). Switching to a
// different identity clears credential-scoped caches before returning; the
// asynchronous re-validation of the new selection is the app's job.
func (r *AccountRegistry) SelectActive(acc *Account) {
	r.mu.Lock()
	prev := r.active
	next := ""
	if acc != nil {
		next = acc.ID()
		if _, known := r.accounts[next]; !known {
			r.order = append(r.order, next)
		}
		r.accounts[next] = *acc
	}
	r.active = next
	r.mu.Unlock()

	if prev != next && r.onReset != nil {
		r.onReset()
	}
}

// Active returns the active account, if any.
func (r *AccountRegistry) Active() (Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[r.active]
	return acc, ok
}

// Get returns the account with the given id.
func (r *AccountRegistry) Get(id string) (Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[id]
	return acc, ok
}

// All returns the accounts in display order.
func (r *AccountRegistry) All() []Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Account, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.accounts[id])
	}
	return out
}

// MoveUp moves the account one position earlier in display order.
func (r *AccountRegistry) MoveUp(id string) { r.move(id, -1) }

// MoveDown moves the account one position later in display order.
func (r *AccountRegistry) MoveDown(id string) { r.move(id, +1) }

func (r *AccountRegistry) move(id string, delta int) {
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

// NotifyUserDeleted handles a server-originated "user was deleted" signal:
// every account matching (server, user) is flagged as needing
// re-authentication, and if the active account was affected the selection
// clears (with the usual credentialed reset).
func (r *AccountRegistry) NotifyUserDeleted(serverID string, user api.User) {
	r.mu.Lock()
	resetNeeded := false
	for id, acc := range r.accounts {
		if acc.ServerID != serverID || acc.User.ID != user.ID {
			continue
		}
		acc.LastSyncFailed = true
		acc.NeedsReauthentication = true
		r.accounts[id] = acc
		if r.active == id {
			r.active = ""
			resetNeeded = true
		}
	}
	r.mu.Unlock()

	if resetNeeded && r.onReset != nil {
		r.onReset()
	}
}

// MarkSyncFailed flags the account after a failed re-validation and clears
// the active selection if it was the affected account, degrading to an
// anonymous view.
func (r *AccountRegistry) MarkSyncFailed(id string) {
	r.mu.Lock()
	acc, ok := r.accounts[id]
	resetNeeded := false
	if ok {
		acc.LastSyncFailed = true
		acc.NeedsReauthentication = true
		r.accounts[id] = acc
		if r.active == id {
			r.active = ""
			resetNeeded = true
		}
	}
	r.mu.Unlock()

	if resetNeeded && r.onReset != nil {
		r.onReset()
	}
}

// Pin upserts the link for its server key: an existing link is updated in
// place, never duplicated. A zero AccountID on the incoming link keeps the
// one already stored.
func (r *AccountRegistry) Pin(link PinnedServer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.pinned {
		if existing.ServerID == link.ServerID {
			if link.AccountID != "" {
				existing.AccountID = link.AccountID
			}
			existing.Pinned = link.Pinned
			r.pinned[i] = existing
			return
		}
	}
	r.pinned = append(r.pinned, link)
}

// Unpin clears the pinned flag for the server key, keeping the link (and its
// account choice) around for a later re-pin.
func (r *AccountRegistry) Unpin(serverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.pinned {
		if existing.ServerID == serverID {
			existing.Pinned = false
			r.pinned[i] = existing
			return
		}
	}
}

// DropPin deletes the link for the server key entirely. Part of the server
// removal cascade.
func (r *AccountRegistry) DropPin(serverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.pinned {
		if existing.ServerID == serverID {
			r.pinned = append(r.pinned[:i], r.pinned[i+1:]...)
			return
		}
	}
}

// Pinned returns a copy of all pinned-server links, including unpinned ones.
func (r *AccountRegistry) Pinned() []PinnedServer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PinnedServer, len(r.pinned))
	copy(out, r.pinned)
	return out
}

// AccountSnapshot is the persisted form of the registry.
type AccountSnapshot struct {
	Accounts []Account      `json:"accounts"`
	Active   string         `json:"active,omitempty"`
	Pinned   []PinnedServer `json:"pinned,omitempty"`
}

// Snapshot captures the registry for persistence.
func (r *AccountRegistry) Snapshot() AccountSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := AccountSnapshot{Active: r.active}
	for _, id := range r.order {
		snap.Accounts = append(snap.Accounts, r.accounts[id])
	}
	snap.Pinned = make([]PinnedServer, len(r.pinned))
	copy(snap.Pinned, r.pinned)
	return snap
}

// Restore replaces the registry contents from a snapshot without firing
// reset hooks.
func (r *AccountRegistry) Restore(snap AccountSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = r.order[:0]
	r.accounts = map[string]Account{}
	for _, acc := range snap.Accounts {
		id := acc.ID()
		r.order = append(r.order, id)
		r.accounts[id] = acc
	}
	r.active = ""
	if _, ok := r.accounts[snap.Active]; ok {
		r.active = snap.Active
	}
	r.pinned = append(r.pinned[:0], snap.Pinned...)
}
