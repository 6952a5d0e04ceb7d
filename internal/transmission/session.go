package transmission

import "context"

func (c *Client) SessionGet(ctx context.Context) (map[string]any, error) {
	return c.invoke(ctx, "session-get", nil)
}

// SessionSet updates daemon settings; nil args sends an empty update.
func (c *Client) SessionSet(ctx context.Context, args map[string]any) (map[string]any, error) {
	return c.invoke(ctx, "session-set", args)
}

func (c *Client) SessionStats(ctx context.Context) (map[string]any, error) {
	return c.invoke(ctx, "session-stats", nil)
}
