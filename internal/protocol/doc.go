// Package protocol owns the RPC wire contract.
//
// Ownership boundary:
// - request/response envelope encoding
// - session header and status constants
// - version-dependent torrent status vocabulary
// - error taxonomy shared by the session and rpc packages
package protocol
