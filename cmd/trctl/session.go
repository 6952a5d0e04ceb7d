package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newSessionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect daemon session settings",
	}
	cmd.AddCommand(
		sessionQueryCmd(opts, "get", "Show daemon settings", func(c *conn, ctx context.Context) (map[string]any, error) {
			return c.api.SessionGet(ctx)
		}),
		sessionQueryCmd(opts, "stats", "Show transfer statistics", func(c *conn, ctx context.Context) (map[string]any, error) {
			return c.api.SessionStats(ctx)
		}),
	)
	return cmd
}

func sessionQueryCmd(opts *options, use, short string, query func(*conn, context.Context) (map[string]any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			out, err := query(c, cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}
