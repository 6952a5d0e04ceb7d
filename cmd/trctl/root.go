package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/danmuck/trctl/internal/config"
	"github.com/danmuck/trctl/internal/protocol"
	"github.com/danmuck/trctl/internal/rpc"
	"github.com/danmuck/trctl/internal/transmission"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	envConfig   = "TRCTL_CONFIG"
	envURL      = "TRCTL_URL"
	envUsername = "TRCTL_USERNAME"
	envPassword = "TRCTL_PASSWORD"
)

// options holds the global flags shared by every subcommand.
type options struct {
	configPath string
	url        string
	username   string
	password   string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "trctl",
		Short: "Control a Transmission daemon over its RPC interface",
		Long: `trctl talks to a Transmission-compatible daemon over JSON-over-HTTP RPC.

Session ids are negotiated and refreshed automatically. Connection settings
come from the config file, then TRCTL_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "client config file (TOML)")
	flags.StringVar(&opts.url, "url", "", "daemon RPC endpoint (default "+protocol.DefaultEndpoint+")")
	flags.StringVar(&opts.username, "user", "", "basic auth username")
	flags.StringVar(&opts.password, "password", "", "basic auth password")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-call timeout (default 30s)")

	root.AddCommand(
		newListCmd(opts),
		newGetCmd(opts),
		newIDsCmd(opts, "start", "Start torrents", (*transmission.Client).StartTorrents),
		newIDsCmd(opts, "stop", "Stop torrents", (*transmission.Client).StopTorrents),
		newIDsCmd(opts, "verify", "Verify local data of torrents", (*transmission.Client).VerifyTorrents),
		newIDsCmd(opts, "reannounce", "Ask trackers for more peers", (*transmission.Client).ReannounceTorrents),
		newRemoveCmd(opts),
		newMoveCmd(opts),
		newRenameCmd(opts),
		newAddCmd(opts),
		newSessionCmd(opts),
	)
	return root
}

// clientConfig layers env and flags over the config file.
func (o *options) clientConfig() (config.ClientConfig, error) {
	cfg := config.DefaultClientConfig()
	path := o.configPath
	if path == "" {
		path = os.Getenv(envConfig)
	}
	if path != "" {
		loaded, err := config.LoadClientConfig(path)
		if err != nil {
			return config.ClientConfig{}, err
		}
		cfg = loaded
	}

	overlay(&cfg.URL, os.Getenv(envURL), o.url)
	overlay(&cfg.Username, os.Getenv(envUsername), o.username)
	overlay(&cfg.Password, os.Getenv(envPassword), o.password)
	if o.timeout > 0 {
		cfg.Timeout = o.timeout.String()
	}
	if err := config.ValidateClientConfig(cfg); err != nil {
		return config.ClientConfig{}, err
	}
	return cfg, nil
}

func overlay(dst *string, values ...string) {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
}

// conn is one connected client for the lifetime of a command.
type conn struct {
	rpc *rpc.Client
	api *transmission.Client
}

func (c *conn) Close() error {
	return c.rpc.Close()
}

// connect builds the client and waits for session setup. A failed setup is
// logged, not returned: calls still go out and surface their own errors.
func (o *options) connect(ctx context.Context) (*conn, error) {
	cfg, err := o.clientConfig()
	if err != nil {
		return nil, err
	}
	rpcCfg, err := cfg.RPCConfig()
	if err != nil {
		return nil, err
	}
	client, err := rpc.New(rpcCfg)
	if err != nil {
		return nil, err
	}

	readyCtx, cancel := context.WithTimeout(ctx, rpcCfg.Session.HandshakeTimeout)
	defer cancel()
	if err := client.Ready(readyCtx); err != nil {
		log.Warn().
			Str("endpoint", client.Endpoint()).
			Err(err).
			Msg("session setup incomplete, status names unavailable")
	}
	return &conn{rpc: client, api: transmission.New(client)}, nil
}
