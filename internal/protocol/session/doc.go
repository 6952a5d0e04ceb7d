// Package session owns the client side of the daemon session lifecycle.
//
// Ownership boundary:
// - session token and rpc-version storage
// - discovery handshake (409 + session id header)
// - stale-session retry policy and backoff
// - in-flight call bookkeeping
package session
