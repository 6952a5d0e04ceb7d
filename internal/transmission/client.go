package transmission

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/trctl/internal/protocol"
)

var ErrRPCResult = errors.New("transmission: rpc failed")

// Caller is the request engine capability the wrappers need.
type Caller interface {
	Call(ctx context.Context, method string, args map[string]any) (protocol.Response, error)
}

// StatusDecoder maps status codes for the negotiated protocol version.
type StatusDecoder interface {
	StatusString(code int) string
}

// Client exposes the daemon method catalog.
type Client struct {
	caller Caller
}

func New(caller Caller) *Client {
	return &Client{caller: caller}
}

// invoke runs method and converts a non-success result tag into ErrRPCResult.
func (c *Client) invoke(ctx context.Context, method string, args map[string]any) (map[string]any, error) {
	resp, err := c.caller.Call(ctx, method, args)
	if err != nil {
		return nil, err
	}
	if !resp.Succeeded() {
		return resp.Arguments, fmt.Errorf("%w: %s: %s", ErrRPCResult, method, resp.Result)
	}
	return resp.Arguments, nil
}

// idsMethod runs one of the methods that only take an ids list.
func (c *Client) idsMethod(ctx context.Context, method string, ids []any) (map[string]any, error) {
	normalized, err := idsArgument(ids)
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, method, map[string]any{"ids": normalized})
}
