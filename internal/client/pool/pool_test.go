package pool

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonline-io/jonline-go/internal/api"
	"github.com/jonline-io/jonline-go/internal/client/registry"
	"github.com/jonline-io/jonline-go/internal/client/rpc"
	"github.com/jonline-io/jonline-go/internal/common"
	"github.com/jonline-io/jonline-go/internal/netx"
	"github.com/stretchr/testify/require"
)

/*************
 * Fake RPC client
 *************/

type fakeClient struct {
	mu sync.Mutex

	version      string
	versionErr   error
	blockVersion bool // block GetServiceVersion until ctx expires

	configuration *api.ServerConfiguration
	configErr     error

	closed bool
}

func (f *fakeClient) GetServiceVersion(ctx context.Context) (*api.GetServiceVersionResponse, error) {
	if f.blockVersion {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.versionErr != nil {
		return nil, f.versionErr
	}
	return &api.GetServiceVersionResponse{Version: f.version}, nil
}

func (f *fakeClient) GetServerConfiguration(ctx context.Context) (*api.ServerConfiguration, error) {
	if f.configErr != nil {
		return nil, f.configErr
	}
	if f.configuration != nil {
		return f.configuration, nil
	}
	return &api.ServerConfiguration{}, nil
}

func (f *fakeClient) CreateAccount(ctx context.Context, req *api.CreateAccountRequest) (*api.RefreshTokenResponse, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeClient) Login(ctx context.Context, req *api.LoginRequest) (*api.RefreshTokenResponse, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeClient) GetCurrentUser(ctx context.Context, credential string) (*api.User, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeClient) GetUsers(ctx context.Context, req *api.GetUsersRequest, credential string) (*api.GetUsersResponse, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeClient) GetGroups(ctx context.Context, req *api.GetGroupsRequest, credential string) (*api.GetGroupsResponse, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeClient) GetPosts(ctx context.Context, req *api.GetPostsRequest, credential string) (*api.GetPostsResponse, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeClient) GetEvents(ctx context.Context, req *api.GetEventsRequest, credential string) (*api.GetEventsResponse, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeClient) CreatePost(ctx context.Context, post *api.Post, credential string) (*api.Post, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeClient) UpdatePost(ctx context.Context, post *api.Post, credential string) (*api.Post, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeClient) DeletePost(ctx context.Context, post *api.Post, credential string) (*api.Post, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

/*************
 * Helpers
 *************/

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// negotiationResolver serves /backend_host with the given body for any host.
func negotiationResolver(t *testing.T, body string) *netx.Resolver {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	tsURL, err := url.Parse(ts.URL)
	require.NoError(t, err)

	client := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			req = req.Clone(req.Context())
			req.URL.Scheme = "http"
			req.URL.Host = tsURL.Host
			return http.DefaultTransport.RoundTrip(req)
		}),
	}
	return netx.NewResolver(client, nil)
}

type dialRecorder struct {
	mu      sync.Mutex
	count   int32
	targets []string
	next    func() (rpc.Client, error)
}

func (d *dialRecorder) dial(target string, secure bool) (rpc.Client, error) {
	d.mu.Lock()
	d.targets = append(d.targets, target)
	d.mu.Unlock()
	atomic.AddInt32(&d.count, 1)
	return d.next()
}

func newTestPool(t *testing.T, resolver *netx.Resolver, next func() (rpc.Client, error)) (*Pool, *registry.ServerRegistry, *dialRecorder) {
	t.Helper()
	accounts := registry.NewAccountRegistry(nil)
	servers := registry.NewServerRegistry(accounts, nil)
	rec := &dialRecorder{next: next}
	p := NewPool(servers, resolver, rec.dial, nil)
	return p, servers, rec
}

/*************
 * Tests
 *************/

func TestGetClient_NegotiatedEndpointKey(t *testing.T) {
	resolver := negotiationResolver(t, "jonline.io.itsj.online")
	p, _, rec := newTestPool(t, resolver, func() (rpc.Client, error) {
		return &fakeClient{version: "0.3.1"}, nil
	})

	srv := registry.Server{Host: "jonline.io", Secure: true}
	_, err := p.GetClient(context.Background(), srv)
	require.NoError(t, err)

	key, ok := p.Endpoint(srv)
	require.True(t, ok)
	require.Equal(t, "https://jonline.io.itsj.online:27707", key)
	require.Equal(t, []string{"jonline.io.itsj.online:27707"}, rec.targets)
}

func TestGetClient_FallbackEndpointKeyWithoutNegotiation(t *testing.T) {
	resolver := negotiationResolver(t, "")
	p, _, _ := newTestPool(t, resolver, func() (rpc.Client, error) {
		return &fakeClient{version: "0.3.1"}, nil
	})

	srv := registry.Server{Host: "jonline.io", Secure: true}
	_, err := p.GetClient(context.Background(), srv)
	require.NoError(t, err)

	key, _ := p.Endpoint(srv)
	require.Equal(t, "https://jonline.io:27707", key)
}

func TestGetClient_CacheHitSkipsDial(t *testing.T) {
	resolver := negotiationResolver(t, "")
	p, _, rec := newTestPool(t, resolver, func() (rpc.Client, error) {
		return &fakeClient{version: "0.3.1"}, nil
	})

	srv := registry.Server{Host: "jonline.io", Secure: true}
	first, err := p.GetClient(context.Background(), srv)
	require.NoError(t, err)
	second, err := p.GetClient(context.Background(), srv)
	require.NoError(t, err)

	require.Same(t, first, second)
	require.EqualValues(t, 1, atomic.LoadInt32(&rec.count))
}

func TestGetClient_HandshakeUpsertsRegistry(t *testing.T) {
	resolver := negotiationResolver(t, "")
	configuration := &api.ServerConfiguration{
		ServerInfo: &api.ServerInfo{Name: "Jonline"},
	}
	p, servers, _ := newTestPool(t, resolver, func() (rpc.Client, error) {
		return &fakeClient{version: "0.3.1", configuration: configuration}, nil
	})

	srv := registry.Server{Host: "jonline.io", Secure: true}
	_, err := p.GetClient(context.Background(), srv)
	require.NoError(t, err)

	stored, ok := servers.Get(srv.ID())
	require.True(t, ok)
	require.Equal(t, "0.3.1", stored.Version)
	require.Equal(t, "Jonline", stored.Configuration.ServerInfo.Name)
}

func TestGetClient_HandshakeTimeoutLeavesNoPoisonedEntry(t *testing.T) {
	resolver := negotiationResolver(t, "")
	var dialed []*fakeClient
	p, _, rec := newTestPool(t, resolver, func() (rpc.Client, error) {
		c := &fakeClient{blockVersion: true}
		dialed = append(dialed, c)
		return c, nil
	})
	p.HandshakeTimeout = 50 * time.Millisecond

	srv := registry.Server{Host: "jonline.io", Secure: true}

	_, err := p.GetClient(context.Background(), srv)
	require.Error(t, err)
	require.ErrorIs(t, err, common.ErrHandshakeFailed)
	_, cached := p.Endpoint(srv)
	require.False(t, cached)
	require.True(t, dialed[0].isClosed())

	// A later call must attempt a fresh handshake, not reuse the failure.
	_, err = p.GetClient(context.Background(), srv)
	require.Error(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&rec.count))
}

func TestGetClient_ConfigurationFailureDiscardsClient(t *testing.T) {
	resolver := negotiationResolver(t, "")
	var dialed []*fakeClient
	p, _, _ := newTestPool(t, resolver, func() (rpc.Client, error) {
		c := &fakeClient{version: "0.3.1", configErr: errors.New("boom")}
		dialed = append(dialed, c)
		return c, nil
	})

	srv := registry.Server{Host: "jonline.io", Secure: true}
	_, err := p.GetClient(context.Background(), srv)
	require.ErrorIs(t, err, common.ErrHandshakeFailed)
	require.True(t, dialed[0].isClosed())
}

func TestGetClient_ConcurrentColdStartLastWriteWins(t *testing.T) {
	resolver := negotiationResolver(t, "")
	p, _, rec := newTestPool(t, resolver, func() (rpc.Client, error) {
		return &fakeClient{version: "0.3.1"}, nil
	})

	srv := registry.Server{Host: "jonline.io", Secure: true}

	var wg sync.WaitGroup
	results := make([]rpc.Client, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := p.GetClient(context.Background(), srv)
			require.NoError(t, err)
			results[i] = c
		}(i)
	}
	wg.Wait()

	// Duplicate construction is tolerated; afterwards exactly one entry
	// serves subsequent calls.
	require.GreaterOrEqual(t, atomic.LoadInt32(&rec.count), int32(1))
	final, err := p.GetClient(context.Background(), srv)
	require.NoError(t, err)
	for _, c := range results {
		require.NotNil(t, c)
	}
	again, err := p.GetClient(context.Background(), srv)
	require.NoError(t, err)
	require.Same(t, final, again)
}

func TestDeleteClient_EvictsAndCloses(t *testing.T) {
	resolver := negotiationResolver(t, "")
	var dialed []*fakeClient
	p, _, rec := newTestPool(t, resolver, func() (rpc.Client, error) {
		c := &fakeClient{version: "0.3.1"}
		dialed = append(dialed, c)
		return c, nil
	})

	srv := registry.Server{Host: "jonline.io", Secure: true}
	_, err := p.GetClient(context.Background(), srv)
	require.NoError(t, err)

	p.DeleteClient(srv)
	require.True(t, dialed[0].isClosed())
	_, cached := p.Endpoint(srv)
	require.False(t, cached)

	_, err = p.GetClient(context.Background(), srv)
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&rec.count))
}

func TestClose_ClosesEverything(t *testing.T) {
	resolver := negotiationResolver(t, "")
	var dialed []*fakeClient
	p, _, _ := newTestPool(t, resolver, func() (rpc.Client, error) {
		c := &fakeClient{version: "0.3.1"}
		dialed = append(dialed, c)
		return c, nil
	})

	_, err := p.GetClient(context.Background(), registry.Server{Host: "a.example", Secure: true})
	require.NoError(t, err)
	_, err = p.GetClient(context.Background(), registry.Server{Host: "b.example", Secure: false})
	require.NoError(t, err)

	require.NoError(t, p.Close())
	for _, c := range dialed {
		require.True(t, c.isClosed())
	}
}
