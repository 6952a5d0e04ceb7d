// Package rpc is the daemon client core.
//
// Construction starts session negotiation in the background; Ready blocks
// until it settles. Every call flows through the request engine, which
// attaches the current session token, refreshes it when the daemon answers
// 409, and re-issues the call a bounded number of times.
package rpc
