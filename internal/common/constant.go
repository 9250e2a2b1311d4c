// Package common contains shared constants and sentinel errors used across
// Jonline client components.
package common

// AuthorizationHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests. The token is sent bare, without a
// "Bearer" prefix.
const AuthorizationHeaderName = "authorization"

// DefaultRPCPort is the port Jonline backends serve gRPC on.
const DefaultRPCPort = 27707

// BackendHostPath is the well-known HTTP path probed during host negotiation.
const BackendHostPath = "/backend_host"
