package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNegotiationFailed = errors.New("protocol: unable to negotiate session")
	ErrConnectivity      = errors.New("protocol: unable to connect")
	ErrSessionExhausted  = errors.New("protocol: session negotiation exhausted")
	ErrInvalidOperation  = errors.New("protocol: invalid operation")
	ErrMalformedResponse = errors.New("protocol: malformed response")
	ErrMissingSessionID  = errors.New("protocol: response missing session id")
	ErrVersionUnknown    = errors.New("protocol: rpc version unknown")
)

// ConnectivityError reports a transport failure against one endpoint.
type ConnectivityError struct {
	Endpoint string
	Op       string
	Err      error
}

func (e *ConnectivityError) Error() string {
	var b strings.Builder
	b.WriteString("unable to connect to ")
	b.WriteString(e.Endpoint)
	if e.Op != "" {
		fmt.Fprintf(&b, " (%s)", e.Op)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// Is matches ErrConnectivity so callers can test the class without errors.As.
func (e *ConnectivityError) Is(target error) bool {
	return target == ErrConnectivity
}

// NegotiationError wraps err as a failed handshake against endpoint.
func NegotiationError(endpoint string, err error) error {
	return fmt.Errorf("%w: %w", ErrNegotiationFailed, &ConnectivityError{
		Endpoint: endpoint,
		Op:       "negotiate",
		Err:      err,
	})
}

// InvalidOperation reports a caller error detected before any network call.
func InvalidOperation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}
