// Package api declares the Jonline protocol types the client exchanges with
// backends: entities (users, posts, groups, events), listing enums, and the
// request/response pairs of the RPC surface.
//
// These are hand-maintained plain structs. Generated wire types are an
// external concern; the transport layer serializes these at the connection
// boundary.
package api
