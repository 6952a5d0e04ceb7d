package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/trctl/internal/config"
	"github.com/danmuck/trctl/internal/mockd"
	"github.com/danmuck/trctl/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to trmockd config.toml")
	addr := flag.String("addr", "", "listen address (overrides config)")
	rpcVersion := flag.Int("rpc-version", 0, "rpc-version to report (overrides config)")
	rotate := flag.Int("rotate-every", -1, "rotate the session id after N accepted calls (overrides config)")
	flag.Parse()

	observability.InitLogger("trmockd")
	gin.SetMode(gin.ReleaseMode)

	cfg := mockd.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadDaemonConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "trmockd: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *rpcVersion > 0 {
		cfg.RPCVersion = *rpcVersion
	}
	if *rotate >= 0 {
		cfg.RotateEvery = *rotate
	}

	d := mockd.New(cfg)
	if err := d.Serve(); err != nil {
		log.Error().Err(err).Msg("trmockd stopped")
		os.Exit(1)
	}
}
