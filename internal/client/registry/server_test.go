package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newRegistries(t *testing.T) (*ServerRegistry, *AccountRegistry) {
	t.Helper()
	accounts := NewAccountRegistry(nil)
	servers := NewServerRegistry(accounts, nil)
	return servers, accounts
}

func TestServerID_FormatAndInjectivity(t *testing.T) {
	secure := Server{Host: "jonline.io", Secure: true}
	insecure := Server{Host: "jonline.io", Secure: false}
	other := Server{Host: "oakcity.social", Secure: true}

	require.Equal(t, "https:jonline.io", secure.ID())
	require.Equal(t, "http:jonline.io", insecure.ID())

	seen := map[string]bool{}
	for _, s := range []Server{secure, insecure, other} {
		require.False(t, seen[s.ID()], "identity collision for %+v", s)
		seen[s.ID()] = true
	}
}

func TestServerURLs_PreferNegotiatedCDNHosts(t *testing.T) {
	srv := Server{Host: "jonline.io", Secure: true}
	require.Equal(t, "https://jonline.io", srv.URL())
	require.Equal(t, "https://jonline.io", srv.FrontendURL())
	require.Equal(t, "https://jonline.io", srv.BackendURL())

	srv.Configuration = configurationWithCDN("jonline.io", "jonline.io.itsj.online")
	require.Equal(t, "https://jonline.io", srv.FrontendURL())
	require.Equal(t, "https://jonline.io.itsj.online", srv.BackendURL())
}

func TestUpsert_FirstServerBecomesSelected(t *testing.T) {
	servers, _ := newRegistries(t)

	servers.Upsert(Server{Host: "jonline.io", Secure: true})
	servers.Upsert(Server{Host: "oakcity.social", Secure: true})

	selected, ok := servers.Selected()
	require.True(t, ok)
	require.Equal(t, "jonline.io", selected.Host)
	require.Len(t, servers.All(), 2)
}

func TestUpsert_RefreshesInPlacePreservingOrder(t *testing.T) {
	servers, _ := newRegistries(t)
	servers.Upsert(Server{Host: "jonline.io", Secure: true})
	servers.Upsert(Server{Host: "oakcity.social", Secure: true})

	servers.Upsert(Server{Host: "jonline.io", Secure: true, Version: "0.3.1"})

	all := servers.All()
	require.Len(t, all, 2)
	require.Equal(t, "jonline.io", all[0].Host)
	require.Equal(t, "0.3.1", all[0].Version)
}

func TestSelect_ResetFiresOnlyOnIdentityChange(t *testing.T) {
	servers, _ := newRegistries(t)
	resets := 0
	servers.OnCredentialedReset(func() { resets++ })

	a := Server{Host: "jonline.io", Secure: true}
	b := Server{Host: "oakcity.social", Secure: true}
	servers.Upsert(a)
	servers.Upsert(b)

	servers.Select(&a) // already selected via first upsert
	require.Equal(t, 0, resets)

	servers.Select(&b)
	require.Equal(t, 1, resets)

	servers.Select(&b)
	require.Equal(t, 1, resets)

	servers.Select(nil)
	require.Equal(t, 2, resets)
}

func TestRemove_CascadesToAccountsAndPool(t *testing.T) {
	servers, accounts := newRegistries(t)
	var evicted []Server
	servers.OnRemove(func(s Server) { evicted = append(evicted, s) })

	a := Server{Host: "jonline.io", Secure: true}
	b := Server{Host: "oakcity.social", Secure: true}
	servers.Upsert(a)
	servers.Upsert(b)

	accounts.Upsert(testAccount(a.ID(), "u1"))
	accounts.Upsert(testAccount(a.ID(), "u2"))
	accounts.Upsert(testAccount(b.ID(), "u3"))

	servers.Remove(a)

	require.Len(t, servers.All(), 1)
	require.Len(t, evicted, 1)
	require.Equal(t, "jonline.io", evicted[0].Host)

	remaining := accounts.All()
	require.Len(t, remaining, 1)
	require.Equal(t, b.ID(), remaining[0].ServerID)
}

func TestRemove_DropsPinnedLink(t *testing.T) {
	servers, accounts := newRegistries(t)
	a := Server{Host: "jonline.io", Secure: true}
	b := Server{Host: "oakcity.social", Secure: true}
	servers.Upsert(a)
	servers.Upsert(b)

	accounts.Pin(PinnedServer{ServerID: a.ID(), Pinned: true})
	accounts.Pin(PinnedServer{ServerID: b.ID(), Pinned: true})

	servers.Remove(a)

	links := accounts.Pinned()
	require.Len(t, links, 1)
	require.Equal(t, b.ID(), links[0].ServerID)
}

func TestRemove_SelectedReselectsArbitraryRemaining(t *testing.T) {
	servers, _ := newRegistries(t)
	a := Server{Host: "jonline.io", Secure: true}
	b := Server{Host: "oakcity.social", Secure: true}
	servers.Upsert(a)
	servers.Upsert(b)

	servers.Remove(a)
	selected, ok := servers.Selected()
	require.True(t, ok)
	require.Equal(t, "oakcity.social", selected.Host)

	servers.Remove(b)
	_, ok = servers.Selected()
	require.False(t, ok)
}

func TestRemove_UnknownServerIsNoop(t *testing.T) {
	servers, _ := newRegistries(t)
	servers.Upsert(Server{Host: "jonline.io", Secure: true})
	servers.Remove(Server{Host: "never-added.example", Secure: true})
	require.Len(t, servers.All(), 1)
}

func TestMoveUpDown(t *testing.T) {
	servers, _ := newRegistries(t)
	a := Server{Host: "a.example", Secure: true}
	b := Server{Host: "b.example", Secure: true}
	c := Server{Host: "c.example", Secure: true}
	servers.Upsert(a)
	servers.Upsert(b)
	servers.Upsert(c)

	servers.MoveUp(c.ID())
	require.Equal(t, []string{"a.example", "c.example", "b.example"}, hosts(servers.All()))

	servers.MoveUp(a.ID()) // already first
	require.Equal(t, []string{"a.example", "c.example", "b.example"}, hosts(servers.All()))

	servers.MoveDown(a.ID())
	require.Equal(t, []string{"c.example", "a.example", "b.example"}, hosts(servers.All()))
}

func TestServerSnapshotRoundTrip(t *testing.T) {
	servers, _ := newRegistries(t)
	a := Server{Host: "jonline.io", Secure: true, Version: "0.3.1"}
	b := Server{Host: "oakcity.social", Secure: true}
	servers.Upsert(a)
	servers.Upsert(b)
	servers.Select(&b)

	snap := servers.Snapshot()

	restored := NewServerRegistry(NewAccountRegistry(nil), nil)
	restored.Restore(snap)

	require.Equal(t, hosts(servers.All()), hosts(restored.All()))
	selected, ok := restored.Selected()
	require.True(t, ok)
	require.Equal(t, "oakcity.social", selected.Host)
}

func hosts(servers []Server) []string {
	out := make([]string, len(servers))
	for i, s := range servers {
		out[i] = s.Host
	}
	return out
}
