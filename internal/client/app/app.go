// Package app assembles the client: registries, pool, page cache, resolver
// and store, constructed once per process and passed by reference. There is
// no process-wide state; two Apps in one process do not share anything.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonline-io/jonline-go/internal/api"
	"github.com/jonline-io/jonline-go/internal/client/config"
	"github.com/jonline-io/jonline-go/internal/client/federation"
	"github.com/jonline-io/jonline-go/internal/client/pagecache"
	"github.com/jonline-io/jonline-go/internal/client/pool"
	"github.com/jonline-io/jonline-go/internal/client/registry"
	"github.com/jonline-io/jonline-go/internal/client/rpc"
	"github.com/jonline-io/jonline-go/internal/client/store"
	"github.com/jonline-io/jonline-go/internal/common"
	"github.com/jonline-io/jonline-go/internal/logging"
	"github.com/jonline-io/jonline-go/internal/netx"
)

// Store keys for the persisted registry snapshots.
const (
	serversKey  = "registry/servers"
	accountsKey = "registry/accounts"
)

// App owns every component of the client. Registries are the durable state;
// the pool and page cache are rebuildable and die with the process.
type App struct {
	Config   *config.Config
	Log      logging.Logger
	Store    store.Store
	Servers  *registry.ServerRegistry
	Accounts *registry.AccountRegistry
	Pool     *pool.Pool
	Pages    *pagecache.Cache
	Resolver *federation.Resolver
}

// Options supplies the transport seams. The zero value uses the real gRPC
// dialer and HTTP client; tests substitute fakes.
type Options struct {
	Dial       pool.Dialer
	HTTPClient *http.Client
}

// New wires an App over the given store.
func New(cfg *config.Config, log logging.Logger, st store.Store, opts Options) *App {
	if log == nil {
		log = logging.Nop()
	}
	dial := opts.Dial
	if dial == nil {
		dial = pool.DefaultDialer
	}

	accounts := registry.NewAccountRegistry(log)
	servers := registry.NewServerRegistry(accounts, log)
	p := pool.NewPool(servers, netx.NewResolver(opts.HTTPClient, log), dial, log)
	p.HandshakeTimeout = cfg.HandshakeTimeout
	pages := pagecache.New(p, servers, log)
	pages.PageSize = cfg.PageSize

	a := &App{
		Config:   cfg,
		Log:      log,
		Store:    st,
		Servers:  servers,
		Accounts: accounts,
		Pool:     p,
		Pages:    pages,
		Resolver: federation.NewResolver(servers, accounts),
	}

	// Identity changes empty every credential-scoped cache synchronously,
	// before the mutating call returns.
	servers.OnCredentialedReset(pages.ResetAll)
	accounts.OnCredentialedReset(pages.ResetAll)
	servers.OnRemove(p.DeleteClient)

	return a
}

// Load restores the persisted registries. Missing snapshots are a first run,
// not an error.
func (a *App) Load() error {
	if data, err := a.Store.Get(serversKey); err == nil {
		var snap registry.ServerSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("restore servers: %w", err)
		}
		a.Servers.Restore(snap)
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	if data, err := a.Store.Get(accountsKey); err == nil {
		var snap registry.AccountSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("restore accounts: %w", err)
		}
		a.Accounts.Restore(snap)
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	return nil
}

// persist snapshots both registries to the store. Failures are logged, not
// returned: durable state lags rather than failing the user's action.
func (a *App) persist(ctx context.Context) {
	if data, err := json.Marshal(a.Servers.Snapshot()); err == nil {
		if err := a.Store.Set(serversKey, data); err != nil {
			a.Log.Warn(ctx, "persist servers failed", "error", err)
		}
	}
	if data, err := json.Marshal(a.Accounts.Snapshot()); err == nil {
		if err := a.Store.Set(accountsKey, data); err != nil {
			a.Log.Warn(ctx, "persist accounts failed", "error", err)
		}
	}
}

// AddServer registers a server and attempts the first connection. The
// descriptor stays registered even when the handshake fails; the returned
// error lets the caller warn about an unreachable host. The first server
// added becomes selected.
func (a *App) AddServer(ctx context.Context, host string, secure bool) (registry.Server, error) {
	srv := registry.Server{Host: host, Secure: secure}
	a.Servers.Upsert(srv)

	_, err := a.Pool.GetClient(ctx, srv)
	stored, _ := a.Servers.Get(srv.ID())
	a.persist(ctx)
	return stored, err
}

// RemoveServer removes the descriptor with the full cascade: its accounts,
// its pinned link, its live client, and, if it was selected, the selection
// moves to some remaining server.
func (a *App) RemoveServer(ctx context.Context, serverID string) error {
	srv, ok := a.Servers.Get(serverID)
	if !ok {
		return fmt.Errorf("%w: server %s", common.ErrNotFound, serverID)
	}
	a.Servers.Remove(srv)
	a.persist(ctx)
	return nil
}

// SelectServer switches the selected server by id.
func (a *App) SelectServer(ctx context.Context, serverID string) error {
	srv, ok := a.Servers.Get(serverID)
	if !ok {
		return fmt.Errorf("%w: server %s", common.ErrNotFound, serverID)
	}
	a.Servers.Select(&srv)
	a.persist(ctx)
	return nil
}

// MoveServerUp moves a server earlier in display order and persists the
// order.
func (a *App) MoveServerUp(ctx context.Context, serverID string) {
	a.Servers.MoveUp(serverID)
	a.persist(ctx)
}

// MoveServerDown moves a server later in display order and persists the
// order.
func (a *App) MoveServerDown(ctx context.Context, serverID string) {
	a.Servers.MoveDown(serverID)
	a.persist(ctx)
}

// MoveAccountUp moves an account earlier in display order and persists the
// order.
func (a *App) MoveAccountUp(ctx context.Context, accountID string) {
	a.Accounts.MoveUp(accountID)
	a.persist(ctx)
}

// MoveAccountDown moves an account later in display order and persists the
// order.
func (a *App) MoveAccountDown(ctx context.Context, accountID string) {
	a.Accounts.MoveDown(accountID)
	a.persist(ctx)
}

// client returns the live client for the server a pair resolves to.
func (a *App) client(ctx context.Context, pair federation.AccountOrServer) (rpc.Client, error) {
	if pair.Server == nil {
		return nil, fmt.Errorf("%w: no server selected", common.ErrNotFound)
	}
	return a.Pool.GetClient(ctx, *pair.Server)
}

// Login authenticates against the host and stores the account as active. A
// fresh login clears any stale re-authentication flags.
func (a *App) Login(ctx context.Context, host, username, password string) (registry.Account, error) {
	return a.authenticate(ctx, host, func(client rpc.Client) (*api.RefreshTokenResponse, error) {
		return client.Login(ctx, &api.LoginRequest{Username: username, Password: password})
	})
}

// CreateAccount registers a new user on the host and stores the account as
// active.
func (a *App) CreateAccount(ctx context.Context, host, username, password, email string) (registry.Account, error) {
	return a.authenticate(ctx, host, func(client rpc.Client) (*api.RefreshTokenResponse, error) {
		return client.CreateAccount(ctx, &api.CreateAccountRequest{
			Username: username,
			Password: password,
			Email:    email,
		})
	})
}

func (a *App) authenticate(ctx context.Context, host string, call func(rpc.Client) (*api.RefreshTokenResponse, error)) (registry.Account, error) {
	srv, ok := a.Servers.ByHost(host)
	if !ok {
		return registry.Account{}, fmt.Errorf("%w: server %s", common.ErrNotFound, host)
	}
	client, err := a.Pool.GetClient(ctx, srv)
	if err != nil {
		return registry.Account{}, err
	}

	resp, err := call(client)
	if err != nil {
		return registry.Account{}, err
	}
	if resp.User == nil || resp.AccessToken == nil {
		return registry.Account{}, fmt.Errorf("incomplete authentication response from %s", host)
	}

	acc := registry.Account{
		ServerID:    srv.ID(),
		User:        *resp.User,
		AccessToken: *resp.AccessToken,
	}
	if resp.RefreshToken != nil {
		acc.RefreshToken = *resp.RefreshToken
	}
	a.Accounts.Upsert(acc)
	a.Accounts.SelectActive(&acc)
	a.persist(ctx)
	a.Log.Info(ctx, "authenticated", "host", host, "user", resp.User.Username)
	return acc, nil
}

// SelectAccount switches the active account and kicks off the asynchronous
// "who am I" re-validation. Selecting clears credential-scoped caches first,
// so reads issued right after never see the previous account's data.
func (a *App) SelectAccount(ctx context.Context, accountID string) error {
	acc, ok := a.Accounts.Get(accountID)
	if !ok {
		return fmt.Errorf("%w: account %s", common.ErrNotFound, accountID)
	}
	// Flag a token known to be expired before the network round trip, so the
	// caller can prompt for credentials without waiting on re-validation.
	if acc.CredentialExpired(time.Now()) {
		acc.NeedsReauthentication = true
	}
	a.Accounts.SelectActive(&acc)
	a.persist(ctx)

	go a.revalidate(context.WithoutCancel(ctx), acc)
	return nil
}

// Logout deselects the active account. Credential-scoped caches empty before
// this returns.
func (a *App) Logout(ctx context.Context) {
	a.Accounts.SelectActive(nil)
	a.persist(ctx)
}

// RemoveAccount forgets a stored account.
func (a *App) RemoveAccount(ctx context.Context, accountID string) {
	a.Accounts.Remove(accountID)
	a.persist(ctx)
}

// revalidate confirms a selected account is still valid by asking its server
// who the credential belongs to. Success refreshes the stored user record;
// failure flags the account and degrades the selection to anonymous.
func (a *App) revalidate(ctx context.Context, acc registry.Account) {
	srv, ok := a.Servers.Get(acc.ServerID)
	if !ok {
		return
	}
	client, err := a.Pool.GetClient(ctx, srv)
	if err != nil {
		a.Accounts.MarkSyncFailed(acc.ID())
		a.persist(ctx)
		return
	}

	user, err := client.GetCurrentUser(ctx, acc.AccessToken.Token)
	if err == nil && user == nil {
		err = errors.New("empty current-user response")
	}
	if err != nil {
		a.Log.Warn(ctx, "account re-validation failed", "account", acc.ID(), "error", err)
		a.Accounts.MarkSyncFailed(acc.ID())
		a.persist(ctx)
		return
	}

	acc.User = *user
	acc.LastSyncFailed = false
	acc.NeedsReauthentication = false
	a.Accounts.Upsert(acc)
	a.persist(ctx)
}

// PinServer pins a server for simultaneous browsing, optionally acting
// through a specific account there.
func (a *App) PinServer(ctx context.Context, serverID, accountID string) error {
	if _, ok := a.Servers.Get(serverID); !ok {
		return fmt.Errorf("%w: server %s", common.ErrNotFound, serverID)
	}
	a.Accounts.Pin(registry.PinnedServer{ServerID: serverID, AccountID: accountID, Pinned: true})
	a.persist(ctx)
	return nil
}

// UnpinServer stops browsing the server, keeping its account choice for a
// later re-pin.
func (a *App) UnpinServer(ctx context.Context, serverID string) {
	a.Accounts.Unpin(serverID)
	a.persist(ctx)
}

// NotifyUserDeleted reacts to a server-side account deletion signal.
func (a *App) NotifyUserDeleted(ctx context.Context, serverID string, user api.User) {
	a.Accounts.NotifyUserDeleted(serverID, user)
	a.persist(ctx)
}

// Close releases the live clients and the store.
func (a *App) Close() error {
	poolErr := a.Pool.Close()
	storeErr := a.Store.Close()
	if poolErr != nil {
		return poolErr
	}
	return storeErr
}
