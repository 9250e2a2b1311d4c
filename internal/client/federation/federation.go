// Package federation implements the identity scheme that lets entity ids
// carry their origin server, and the credential resolution that picks which
// (server, account) pair signs a call about a federated entity.
package federation

import "strings"

// FederateID pairs a local entity id with its origin host: "localID@host".
// An empty host yields the bare local id.
func FederateID(localID, originHost string) string {
	if originHost == "" {
		return localID
	}
	return localID + "@" + originHost
}

// ParseFederatedID splits a federated id back into (localID, originHost).
// A bare id parses with an empty host. Local ids never contain '@'
// themselves, so the first separator wins.
func ParseFederatedID(id string) (localID, originHost string) {
	local, host, found := strings.Cut(id, "@")
	if !found {
		return id, ""
	}
	return local, host
}

// NormalizeKey maps both forms of an id onto one cache slot. Entities created
// locally are referenced by bare id before their origin is known; entities
// arriving from federation calls always carry a host. Both must resolve to
// the federated form against the currently selected server's host.
//
// Apply this at every cache read and write boundary; nothing else should
// compare raw ids.
func NormalizeKey(id, currentHost string) string {
	local, host := ParseFederatedID(id)
	if host == "" {
		host = currentHost
	}
	return FederateID(local, host)
}
