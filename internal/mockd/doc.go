// Package mockd is an in-process daemon speaking the session RPC protocol.
//
// Ownership boundary:
// - session id issuance and rotation (409 handshake)
// - optional basic auth
// - an in-memory torrent registry behind the RPC method catalog
//
// It backs the client integration tests and cmd/trmockd.
package mockd
