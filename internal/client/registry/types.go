// Package registry holds the durable client-side state: the set of known
// servers, the accounts bound to them, and the user's pinned-server choices.
// Registries are the only shared mutable state besides the client pool; every
// mutation happens under the registry lock and is atomic from the caller's
// point of view.
package registry

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonline-io/jonline-go/internal/api"
)

// Server describes one known backend. Identity is the (secure, host) pair;
// Configuration and Version are refreshed on every successful handshake, the
// rest is immutable once created.
type Server struct {
	Host   string `json:"host"`
	Secure bool   `json:"secure"`

	Configuration *api.ServerConfiguration `json:"configuration,omitempty"`
	Version       string                   `json:"version,omitempty"`
}

// ID serializes the server identity as a single string key, e.g.
// "https:jonline.io". Injective over (secure, host).
func (s Server) ID() string {
	return fmt.Sprintf("%s:%s", s.scheme(), s.Host)
}

// URL is the user-facing base URL for the server.
func (s Server) URL() string {
	return fmt.Sprintf("%s://%s", s.scheme(), s.Host)
}

// FrontendURL prefers the negotiated external-CDN frontend host.
func (s Server) FrontendURL() string {
	host := s.Host
	if cdn := s.cdnConfig(); cdn != nil && cdn.FrontendHost != "" {
		host = cdn.FrontendHost
	}
	return fmt.Sprintf("%s://%s", s.scheme(), host)
}

// BackendURL prefers the negotiated external-CDN backend host.
func (s Server) BackendURL() string {
	host := s.Host
	if cdn := s.cdnConfig(); cdn != nil && cdn.BackendHost != "" {
		host = cdn.BackendHost
	}
	return fmt.Sprintf("%s://%s", s.scheme(), host)
}

func (s Server) scheme() string {
	if s.Secure {
		return "https"
	}
	return "http"
}

func (s Server) cdnConfig() *api.ExternalCDNConfig {
	if s.Configuration == nil {
		return nil
	}
	return s.Configuration.ExternalCDNConfig
}

// Account binds a user credential to exactly one server. Identity is
// (ServerID, User.ID).
type Account struct {
	ServerID string   `json:"serverId"`
	User     api.User `json:"user"`

	AccessToken  api.ExpirableToken `json:"accessToken"`
	RefreshToken api.ExpirableToken `json:"refreshToken"`

	LastSyncFailed        bool `json:"lastSyncFailed,omitempty"`
	NeedsReauthentication bool `json:"needsReauthentication,omitempty"`
}

// ID concatenates the server key and user id, e.g. "https:jonline.io-3Taj8C".
func (a Account) ID() string {
	return AccountID(a.ServerID, a.User.ID)
}

// AccountID builds the account identity key from its parts.
func AccountID(serverID, userID string) string {
	return serverID + "-" + userID
}

// CredentialExpired reports whether the stored access token is already past
// its expiry at the given instant. The explicit ExpiresAt wins; otherwise the
// token is parsed as a JWT without signature verification just to read the
// exp claim. Tokens with no readable expiry are assumed live; the "who am I"
// re-validation call is the authority either way.
func (a Account) CredentialExpired(now time.Time) bool {
	if exp := a.AccessToken.ExpiresAt; exp != nil {
		return now.After(*exp)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(a.AccessToken.Token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}

// PinnedServer records the user's choice to browse an additional server
// alongside the selected one, optionally acting through a specific account on
// that server. At most one entry exists per server key.
type PinnedServer struct {
	ServerID  string `json:"serverId"`
	AccountID string `json:"accountId,omitempty"`
	Pinned    bool   `json:"pinned"`
}
