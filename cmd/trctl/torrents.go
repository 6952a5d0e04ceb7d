package main

import (
	"context"
	"fmt"
	"os"

	"github.com/danmuck/trctl/internal/transmission"
	"github.com/spf13/cobra"
)

type idsFunc func(c *transmission.Client, ctx context.Context, ids ...any) (map[string]any, error)

func newListCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all torrents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			torrents, err := c.api.ListTorrents(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), torrents)
			}
			renderTorrents(cmd.OutOrStdout(), torrents, c.rpc)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw torrent fields as JSON")
	return cmd
}

func newGetCmd(opts *options) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "get <id|hash>...",
		Short: "Show torrent details",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			torrents, err := c.api.GetTorrent(cmd.Context(), transmission.ParseIDs(args), fields)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), withStatusText(torrents, c.rpc))
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "torrent-get fields to request")
	return cmd
}

func newIDsCmd(opts *options, use, short string, run idsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id|hash|recently-active>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if _, err := run(c.api, cmd.Context(), transmission.ParseIDs(args)...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", use)
			return nil
		},
	}
}

func newRemoveCmd(opts *options) *cobra.Command {
	var deleteData bool
	cmd := &cobra.Command{
		Use:   "remove <id|hash>...",
		Short: "Remove torrents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if _, err := c.api.RemoveTorrent(cmd.Context(), transmission.ParseIDs(args), deleteData); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "remove: ok")
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteData, "delete-data", false, "also delete downloaded data")
	return cmd
}

func newMoveCmd(opts *options) *cobra.Command {
	var (
		location string
		move     bool
	)
	cmd := &cobra.Command{
		Use:   "move <id|hash>...",
		Short: "Set the download location of torrents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if _, err := c.api.MoveTorrent(cmd.Context(), transmission.ParseIDs(args), location, move); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "move: %s\n", location)
			return nil
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "new download directory")
	cmd.Flags().BoolVar(&move, "move", false, "move existing data to the new location")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func newRenameCmd(opts *options) *cobra.Command {
	var path, name string
	cmd := &cobra.Command{
		Use:   "rename <id|hash>",
		Short: "Rename a file or folder inside one torrent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			out, err := c.api.RenameTorrent(cmd.Context(), transmission.ParseIDs(args), path, name)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "current path inside the torrent")
	cmd.Flags().StringVar(&name, "name", "", "new name")
	_ = cmd.MarkFlagRequired("path")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAddCmd(opts *options) *cobra.Command {
	var (
		dir    string
		paused bool
	)
	cmd := &cobra.Command{
		Use:   "add <file|url|magnet>",
		Short: "Add a torrent",
		Long: `Add a torrent by URL or magnet link, or upload a local .torrent file.

Local files are sent as metainfo; anything else is passed to the daemon
as a filename for it to fetch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			extra := map[string]any{}
			if paused {
				extra["paused"] = true
			}
			var added transmission.AddedTorrent
			if data, readErr := os.ReadFile(args[0]); readErr == nil {
				added, err = c.api.AddMetaInfo(cmd.Context(), data, dir, extra)
			} else {
				added, err = c.api.AddFile(cmd.Context(), args[0], dir, extra)
			}
			if err != nil {
				return err
			}
			verb := "added"
			if added.Duplicate {
				verb = "duplicate"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: id=%d name=%q hash=%s\n", verb, added.ID, added.Name, added.HashString)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "download directory (daemon default when empty)")
	cmd.Flags().BoolVar(&paused, "paused", false, "add without starting")
	return cmd
}
