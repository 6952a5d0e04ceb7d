// Package transmission shapes torrent and session RPC methods into generic
// calls on an rpc engine.
package transmission
