// Package transport is the HTTP collaborator used by the session and rpc
// packages.
//
// Ownership boundary:
// - GET/POST with caller-chosen expected statuses
// - basic auth, TLS and SSH tunnel plumbing
//
// It knows nothing about session tokens or the RPC envelope.
package transport
