// Sentinel errors shared by the client layers. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Transport / availability errors.
	ErrUnavailable = errors.New("server unavailable")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")

	// Business errors passed through from the backend unmodified.
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")

	// Handshake errors during client construction.
	ErrHandshakeFailed = errors.New("server handshake failed")
)
