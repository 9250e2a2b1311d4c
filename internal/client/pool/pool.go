// Package pool owns one live RPC client per resolved backend endpoint.
// Clients are created lazily: a cache miss negotiates the backend host, dials,
// and runs the mandatory version + configuration handshake before the entry
// is retained.
package pool

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jonline-io/jonline-go/internal/api"
	"github.com/jonline-io/jonline-go/internal/client/registry"
	"github.com/jonline-io/jonline-go/internal/client/rpc"
	"github.com/jonline-io/jonline-go/internal/common"
	"github.com/jonline-io/jonline-go/internal/logging"
	"github.com/jonline-io/jonline-go/internal/netx"
)

// DefaultHandshakeTimeout bounds each of the two handshake calls.
const DefaultHandshakeTimeout = 5 * time.Second

// Dialer constructs a transport-bound client for host:port.
type Dialer func(target string, secure bool) (rpc.Client, error)

// DefaultDialer dials a real gRPC connection.
func DefaultDialer(target string, secure bool) (rpc.Client, error) {
	return rpc.Dial(target, secure)
}

// Pool caches RPC clients keyed by resolved endpoint
// ("https://backend.host:27707").
//
// Concurrent GetClient calls for the same cold key may race and construct
// duplicate clients; the last write to the map wins and callers must not
// assume client instance identity across concurrent first use.
type Pool struct {
	mu      sync.Mutex
	clients map[string]rpc.Client
	// endpoint key by server id, for eviction when a descriptor is removed.
	endpoints map[string]string

	servers  *registry.ServerRegistry
	resolver *netx.Resolver
	dial     Dialer
	log      logging.Logger

	// HandshakeTimeout bounds each handshake call. Defaults to
	// DefaultHandshakeTimeout; tests shorten it.
	HandshakeTimeout time.Duration
}

func NewPool(servers *registry.ServerRegistry, resolver *netx.Resolver, dial Dialer, log logging.Logger) *Pool {
	if log == nil {
		log = logging.Nop()
	}
	return &Pool{
		clients:          map[string]rpc.Client{},
		endpoints:        map[string]string{},
		servers:          servers,
		resolver:         resolver,
		dial:             dial,
		log:              log.With("component", "pool"),
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

// GetClient returns the live client for the server, constructing one on a
// cache miss. Construction negotiates the backend host, dials, and performs
// the version + configuration handshake; on success the descriptor is
// upserted into the registry so registry state and live client state stay
// consistent. On handshake failure nothing is cached and the error
// propagates, so a later call retries from scratch.
func (p *Pool) GetClient(ctx context.Context, srv registry.Server) (rpc.Client, error) {
	backend := p.resolver.ResolveBackendHost(ctx, srv.Host, srv.Secure)
	key := endpointKey(srv.Secure, backend)

	p.mu.Lock()
	client, ok := p.clients[key]
	p.mu.Unlock()
	if ok {
		return client, nil
	}

	target := net.JoinHostPort(backend, strconv.Itoa(common.DefaultRPCPort))
	client, err := p.dial(target, srv.Secure)
	if err != nil {
		return nil, err
	}

	version, configuration, err := p.handshake(ctx, client)
	if err != nil {
		client.Close()
		p.log.Warn(ctx, "handshake failed", "host", srv.Host, "endpoint", key, "error", err)
		return nil, err
	}

	srv.Version = version
	srv.Configuration = configuration
	p.servers.Upsert(srv)

	p.mu.Lock()
	p.clients[key] = client
	p.endpoints[srv.ID()] = key
	p.mu.Unlock()

	p.log.Info(ctx, "server connected", "host", srv.Host, "endpoint", key, "version", version)
	return client, nil
}

// handshake fetches the service version and server configuration, each
// bounded by HandshakeTimeout.
func (p *Pool) handshake(ctx context.Context, client rpc.Client) (string, *api.ServerConfiguration, error) {
	versionCtx, cancel := context.WithTimeout(ctx, p.HandshakeTimeout)
	version, err := client.GetServiceVersion(versionCtx)
	cancel()
	if err != nil {
		return "", nil, fmt.Errorf("%w: service version: %w", common.ErrHandshakeFailed, err)
	}

	configCtx, cancel := context.WithTimeout(ctx, p.HandshakeTimeout)
	configuration, err := client.GetServerConfiguration(configCtx)
	cancel()
	if err != nil {
		return "", nil, fmt.Errorf("%w: server configuration: %w", common.ErrHandshakeFailed, err)
	}

	return version.Version, configuration, nil
}

// DeleteClient closes and evicts the pool entry for the server, if any.
// Called when a descriptor is removed by user action.
func (p *Pool) DeleteClient(srv registry.Server) {
	p.mu.Lock()
	key, ok := p.endpoints[srv.ID()]
	var client rpc.Client
	if ok {
		client = p.clients[key]
		delete(p.clients, key)
		delete(p.endpoints, srv.ID())
	}
	p.mu.Unlock()

	if client != nil {
		client.Close()
	}
}

// Endpoint reports the pool key recorded for the server, if it has a live
// client.
func (p *Pool) Endpoint(srv registry.Server) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key, ok := p.endpoints[srv.ID()]
	return key, ok
}

// Close closes every pooled client.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for key, client := range p.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.clients, key)
	}
	p.endpoints = map[string]string{}
	return firstErr
}

func endpointKey(secure bool, host string) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, common.DefaultRPCPort)
}
