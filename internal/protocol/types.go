package protocol

import "net/http"

const (
	// DefaultEndpoint is the daemon RPC URL used when none is configured.
	DefaultEndpoint = "http://localhost:9091/transmission/rpc"

	// DefaultUserAgent identifies the client on the discovery request.
	DefaultUserAgent = "trctl"

	// HeaderSessionID carries the session token on requests and 409 responses.
	HeaderSessionID   = "X-Transmission-Session-Id"
	HeaderUserAgent   = "User-Agent"
	HeaderContentType = "Content-Type"

	// StatusSessionConflict is returned when the attached session token is absent or stale.
	StatusSessionConflict = http.StatusConflict

	ResultSuccess = "success"
)

// Request is the RPC envelope sent to the daemon.
type Request struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments"`
}

// Response is the RPC envelope returned by the daemon.
type Response struct {
	Result    string         `json:"result"`
	Arguments map[string]any `json:"arguments"`
}

// Succeeded reports whether the daemon tagged the response as successful.
func (r Response) Succeeded() bool {
	return r.Result == ResultSuccess
}
