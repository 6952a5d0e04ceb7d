package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/danmuck/trctl/internal/protocol"
	"github.com/danmuck/trctl/internal/transport"
	"github.com/rs/zerolog/log"
)

// Discoverer issues the bare discovery request.
type Discoverer interface {
	Get(ctx context.Context, url string, header http.Header, expect transport.ExpectFunc) (*transport.Response, error)
}

// Negotiator obtains the first session token from the daemon.
type Negotiator struct {
	endpoint  string
	cfg       Config
	transport Discoverer
	store     *Store
}

func NewNegotiator(endpoint string, cfg Config, t Discoverer, store *Store) *Negotiator {
	return &Negotiator{
		endpoint:  strings.TrimSpace(endpoint),
		cfg:       cfg.WithDefaults(),
		transport: t,
		store:     store,
	}
}

// expectDiscovery accepts the 409 we are waiting for and any non-error
// status, so that a daemon which does not require a session is reported as a
// negotiation failure rather than a transport error.
func expectDiscovery(status int) bool {
	return status == protocol.StatusSessionConflict || status < http.StatusBadRequest
}

// Negotiate sends the discovery request and stores the session token echoed
// with the 409 response. Every failure is fatal and wraps
// protocol.ErrNegotiationFailed; the store is left untouched on failure.
func (n *Negotiator) Negotiate(ctx context.Context) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.HandshakeTimeout)
	defer cancel()

	header := http.Header{}
	header.Set(protocol.HeaderUserAgent, n.cfg.UserAgent)

	resp, err := n.transport.Get(ctx, n.endpoint, header, expectDiscovery)
	if err != nil {
		log.Warn().Str("endpoint", n.endpoint).Err(err).Msg("session discovery failed")
		return "", protocol.NegotiationError(n.endpoint, err)
	}
	if resp.StatusCode != protocol.StatusSessionConflict {
		log.Warn().Str("endpoint", n.endpoint).Int("status", resp.StatusCode).Msg("daemon did not request a session")
		return "", protocol.NegotiationError(n.endpoint, fmt.Errorf("unexpected discovery status %d", resp.StatusCode))
	}
	raw := strings.TrimSpace(resp.Header.Get(n.cfg.SessionHeader))
	if raw == "" {
		return "", protocol.NegotiationError(n.endpoint, protocol.ErrMissingSessionID)
	}

	token := Token(raw)
	n.store.SetToken(token)
	log.Debug().Str("endpoint", n.endpoint).Msg("session negotiated")
	return token, nil
}
