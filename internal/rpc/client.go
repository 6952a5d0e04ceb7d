package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/trctl/internal/observability"
	"github.com/danmuck/trctl/internal/protocol"
	"github.com/danmuck/trctl/internal/protocol/session"
	"github.com/danmuck/trctl/internal/transport"
	"github.com/rs/zerolog/log"
)

var (
	ErrEndpointRequired  = errors.New("rpc: endpoint required")
	ErrTransportRequired = errors.New("rpc: transport required")
	ErrClosed            = errors.New("rpc: client closed")
)

// Config defines one client instance.
type Config struct {
	Endpoint  string
	Session   session.Config
	Transport transport.Transport
}

func DefaultConfig() Config {
	return Config{
		Endpoint: protocol.DefaultEndpoint,
		Session:  session.DefaultConfig(),
	}
}

// Client talks to one daemon endpoint. Session state is owned by the
// instance and never shared.
type Client struct {
	endpoint  string
	cfg       session.Config
	transport transport.Transport
	store     *session.Store
	inflight  *session.InFlight

	negotiator *session.Negotiator
	startOnce  sync.Once
	tokenDone  chan struct{}
	initDone   chan struct{}
	initErr    error
	cancel     context.CancelFunc
	closed     atomic.Bool

	nextCallID atomic.Uint64
	rngMu      sync.Mutex
	rng        *rand.Rand
}

// New validates cfg and starts session negotiation in the background. The
// constructor does not wait; use Ready to observe the outcome.
func New(cfg Config) (*Client, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	c.start()
	return c, nil
}

func newClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("rpc: invalid endpoint %q: %w", endpoint, err)
	}
	if cfg.Transport == nil {
		return nil, ErrTransportRequired
	}
	sessCfg := cfg.Session.WithDefaults()
	store := session.NewStore()
	return &Client{
		endpoint:   endpoint,
		cfg:        sessCfg,
		transport:  cfg.Transport,
		store:      store,
		inflight:   session.NewInFlight(),
		negotiator: session.NewNegotiator(endpoint, sessCfg, cfg.Transport, store),
		tokenDone:  make(chan struct{}),
		initDone:   make(chan struct{}),
		cancel:     func() {},
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// start launches initialization exactly once per instance.
func (c *Client) start() {
	c.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		go c.initialize(ctx)
	})
}

// initialize negotiates the token, then reads rpc-version through the
// request engine.
func (c *Client) initialize(ctx context.Context) {
	defer close(c.initDone)

	_, err := c.negotiator.Negotiate(ctx)
	close(c.tokenDone)
	observability.RecordNegotiation(c.endpoint, err == nil)
	if err != nil {
		c.initErr = err
		log.Error().Str("endpoint", c.endpoint).Err(err).Msg("session negotiation failed")
		return
	}

	resp, err := c.call(ctx, "session-get", nil)
	if err != nil {
		c.initErr = fmt.Errorf("%w: session-get: %w", protocol.ErrNegotiationFailed, err)
		log.Error().Str("endpoint", c.endpoint).Err(err).Msg("rpc version discovery failed")
		return
	}
	raw, err := protocol.ParseVersion(resp.Arguments["rpc-version"])
	if err != nil {
		c.initErr = fmt.Errorf("%w: %w", protocol.ErrNegotiationFailed, err)
		log.Error().Str("endpoint", c.endpoint).Err(err).Msg("rpc version missing from session-get")
		return
	}
	version := session.Version(raw)
	if err := c.store.SetVersion(version); err != nil {
		c.initErr = err
		return
	}
	log.Info().
		Str("endpoint", c.endpoint).
		Int("rpc_version", raw).
		Str("status_vocabulary", version.Vocabulary().Name()).
		Msg("session ready")
}

// Ready blocks until negotiation and version discovery finish, returning
// their error. A failed client still serves calls, since a 409 carries a
// fresh token, but status decoding stays in the unknown vocabulary.
func (c *Client) Ready(ctx context.Context) error {
	select {
	case <-c.initDone:
		return c.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once initialization has finished.
func (c *Client) Done() <-chan struct{} {
	return c.initDone
}

// Err returns the initialization error without blocking; nil while pending.
func (c *Client) Err() error {
	select {
	case <-c.initDone:
		return c.initErr
	default:
		return nil
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Session exposes the session store of this instance.
func (c *Client) Session() *session.Store {
	return c.store
}

// Version returns the negotiated rpc-version.
func (c *Client) Version() (session.Version, bool) {
	return c.store.Version()
}

// InFlight returns the calls currently in progress.
func (c *Client) InFlight() []session.PendingCall {
	return c.inflight.List()
}

// StatusString decodes a torrent status code for the negotiated protocol
// version. Before the version is known every code decodes to "Unknown".
func (c *Client) StatusString(code int) string {
	return c.store.Vocabulary().Text(code)
}

// Close stops a pending negotiation. In-flight calls keep their own contexts.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.cancel()
	if closer, ok := c.transport.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
