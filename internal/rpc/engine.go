package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/trctl/internal/observability"
	"github.com/danmuck/trctl/internal/protocol"
	"github.com/danmuck/trctl/internal/protocol/session"
	"github.com/danmuck/trctl/internal/transport"
	"github.com/rs/zerolog/log"
)

// Invoke executes one RPC call and returns the response arguments.
func (c *Client) Invoke(ctx context.Context, method string, args map[string]any) (map[string]any, error) {
	resp, err := c.Call(ctx, method, args)
	if err != nil {
		return nil, err
	}
	return resp.Arguments, nil
}

// Call executes one RPC call and returns the whole response envelope. It
// waits for the initial token handshake so that calls issued right after New
// do not race it. Callers never observe a stale-session rejection: they get a
// response, a *protocol.ConnectivityError, or protocol.ErrSessionExhausted.
func (c *Client) Call(ctx context.Context, method string, args map[string]any) (protocol.Response, error) {
	if c.closed.Load() {
		return protocol.Response{}, ErrClosed
	}
	select {
	case <-c.tokenDone:
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}
	return c.call(ctx, method, args)
}

func (c *Client) call(ctx context.Context, method string, args map[string]any) (protocol.Response, error) {
	body, err := protocol.EncodeRequest(protocol.Request{Method: method, Arguments: args})
	if err != nil {
		return protocol.Response{}, err
	}

	callID := c.nextCallID.Add(1)
	start := time.Now()
	c.inflight.Begin(callID, method, start)
	defer c.inflight.End(callID)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		c.inflight.MarkAttempt(callID, time.Now())
		resp, err := c.transport.Post(ctx, c.endpoint, c.requestHeader(), body, transport.ExpectSuccess)
		if err == nil {
			out, err := protocol.DecodeResponse(resp.Body)
			if err != nil {
				observability.RecordRPC(method, "malformed", time.Since(start))
				return protocol.Response{}, c.connectivityError(method, err)
			}
			observability.RecordRPC(method, "ok", time.Since(start))
			return out, nil
		}

		token, stale := c.staleToken(err)
		if !stale {
			observability.RecordRPC(method, "error", time.Since(start))
			return protocol.Response{}, c.connectivityError(method, err)
		}
		c.store.SetToken(token)
		c.inflight.MarkRefresh(callID, err.Error())
		observability.RecordSessionRefresh(c.endpoint)
		log.Debug().
			Str("endpoint", c.endpoint).
			Str("method", method).
			Int("attempt", attempt).
			Msg("session token refreshed")

		if !c.shouldRetry(attempt) {
			observability.RecordRPC(method, "exhausted", time.Since(start))
			log.Warn().
				Str("endpoint", c.endpoint).
				Str("method", method).
				Int("attempts", attempt).
				Msg("daemon kept rejecting the session token")
			return protocol.Response{}, fmt.Errorf("%w: method=%s attempts=%d", protocol.ErrSessionExhausted, method, attempt)
		}
		if err := c.sleepBackoff(ctx, attempt); err != nil {
			observability.RecordRPC(method, "canceled", time.Since(start))
			return protocol.Response{}, c.connectivityError(method, err)
		}
	}
}

// requestHeader snapshots the token current at send time.
func (c *Client) requestHeader() http.Header {
	header := http.Header{}
	header.Set(protocol.HeaderContentType, "application/json")
	header.Set(protocol.HeaderUserAgent, c.cfg.UserAgent)
	if token, ok := c.store.Token(); ok {
		header.Set(c.cfg.SessionHeader, token.String())
	}
	return header
}

// staleToken reports whether err is the stale-session rejection and returns
// the replacement token it carries. A 409 without a token cannot be
// recovered and is treated like any other status error.
func (c *Client) staleToken(err error) (session.Token, bool) {
	var statusErr *transport.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != protocol.StatusSessionConflict {
		return "", false
	}
	raw := strings.TrimSpace(statusErr.Header.Get(c.cfg.SessionHeader))
	if raw == "" {
		return "", false
	}
	return session.Token(raw), true
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.cfg.MaxSessionAttempts
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	c.rngMu.Lock()
	delay := session.RetryDelay(c.cfg.Backoff, attempt, c.rng)
	c.rngMu.Unlock()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) connectivityError(method string, err error) error {
	return &protocol.ConnectivityError{
		Endpoint: c.endpoint,
		Op:       method,
		Err:      err,
	}
}
