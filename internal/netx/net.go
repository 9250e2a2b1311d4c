// Package netx provides the backend-host negotiation probe used before
// dialing a server: CDN-fronted deployments publish the host actually serving
// RPCs at a well-known HTTP path.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonline-io/jonline-go/internal/common"
	"github.com/jonline-io/jonline-go/internal/logging"
)

// resolveTimeout bounds the negotiation probe. Resolution is advisory, so a
// slow front-end should not stall client construction much longer than this.
const resolveTimeout = 5 * time.Second

// Resolver negotiates backend hosts over plain HTTP(S).
type Resolver struct {
	client *http.Client
	log    logging.Logger
}

// NewResolver returns a Resolver using the given HTTP client, or
// http.DefaultClient if nil.
func NewResolver(client *http.Client, log logging.Logger) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Resolver{client: client, log: log.With("component", "netx")}
}

// ResolveBackendHost issues GET {scheme}://{host}/backend_host and returns the
// advertised backend host if the body is a non-empty valid domain. On an empty
// body, a network failure, or a timeout it falls back to the user-facing host
// itself. Resolution is never fatal; failures are logged and swallowed.
func (r *Resolver) ResolveBackendHost(ctx context.Context, host string, secure bool) string {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	scheme := "http"
	if secure {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s%s", scheme, host, common.BackendHostPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.log.Warn(ctx, "backend host probe failed", "host", host, "error", err)
		return host
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn(ctx, "backend host probe failed", "host", host, "error", err)
		return host
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.Warn(ctx, "backend host probe failed", "host", host, "status", resp.Status)
		return host
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		r.log.Warn(ctx, "backend host probe failed", "host", host, "error", err)
		return host
	}

	domain := strings.TrimSpace(string(body))
	if !validDomain(domain) {
		return host
	}

	r.log.Debug(ctx, "backend host negotiated", "host", host, "backend", domain)
	return domain
}

// validDomain accepts a plain domain name: non-empty, single token, no scheme
// or path separators.
func validDomain(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n/\\:")
}
