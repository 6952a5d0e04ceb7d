package session

import (
	"strings"
	"time"

	"github.com/danmuck/trctl/internal/protocol"
)

// BackoffConfig defines the delay between repeated stale-session retries.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines session negotiation and retry defaults. SessionHeader names
// the header carrying the session token in both directions.
type Config struct {
	SessionHeader    string
	UserAgent        string
	HandshakeTimeout time.Duration
	RequestTimeout   time.Duration

	// MaxSessionAttempts bounds the POSTs issued for one call when the daemon
	// keeps answering 409. Values <= 0 fall back to the default.
	MaxSessionAttempts int
	Backoff            BackoffConfig
}

const DefaultMaxSessionAttempts = 3

// DefaultConfig returns the reference daemon defaults.
func DefaultConfig() Config {
	return Config{
		SessionHeader:      protocol.HeaderSessionID,
		UserAgent:          protocol.DefaultUserAgent,
		HandshakeTimeout:   10 * time.Second,
		RequestTimeout:     30 * time.Second,
		MaxSessionAttempts: DefaultMaxSessionAttempts,
		Backoff: BackoffConfig{
			InitialDelay: 100 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.SessionHeader) == "" {
		c.SessionHeader = def.SessionHeader
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = def.UserAgent
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.MaxSessionAttempts <= 0 {
		c.MaxSessionAttempts = def.MaxSessionAttempts
	}
	if c.Backoff == (BackoffConfig{}) {
		c.Backoff = def.Backoff
	}
	return c
}
