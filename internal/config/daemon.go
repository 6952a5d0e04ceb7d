package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/trctl/internal/mockd"
)

// daemonFile maps trmockd config.toml keys onto mockd settings.
type daemonFile struct {
	ID            string   `toml:"id"`
	Addr          string   `toml:"addr"`
	RPCPath       string   `toml:"rpc_path"`
	RPCVersion    int      `toml:"rpc_version"`
	Version       string   `toml:"version"`
	DownloadDir   string   `toml:"download_dir"`
	SessionHeader string   `toml:"session_header"`
	RotateEvery   int      `toml:"rotate_every"`
	NoSession     bool     `toml:"no_session"`
	Username      string   `toml:"username"`
	Password      string   `toml:"password"`
	CORSOrigins   []string `toml:"cors_origins"`
}

// LoadDaemonConfig overlays keys present in path onto mockd defaults.
func LoadDaemonConfig(path string) (mockd.Config, error) {
	cfg := mockd.DefaultConfig()

	var raw daemonFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return mockd.Config{}, fmt.Errorf("load trmockd config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return mockd.Config{}, fmt.Errorf("load trmockd config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("id") {
		cfg.ID = strings.TrimSpace(raw.ID)
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("rpc_path") {
		cfg.RPCPath = strings.TrimSpace(raw.RPCPath)
	}
	if meta.IsDefined("rpc_version") {
		if raw.RPCVersion <= 0 {
			return mockd.Config{}, fmt.Errorf("rpc_version must be positive, got %d", raw.RPCVersion)
		}
		cfg.RPCVersion = raw.RPCVersion
	}
	if meta.IsDefined("version") {
		cfg.Version = strings.TrimSpace(raw.Version)
	}
	if meta.IsDefined("download_dir") {
		cfg.DownloadDir = strings.TrimSpace(raw.DownloadDir)
	}
	if meta.IsDefined("session_header") {
		cfg.SessionHeader = strings.TrimSpace(raw.SessionHeader)
	}
	if meta.IsDefined("rotate_every") {
		cfg.RotateEvery = raw.RotateEvery
	}
	if meta.IsDefined("no_session") {
		cfg.NoSession = raw.NoSession
	}
	if meta.IsDefined("username") {
		cfg.Username = raw.Username
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = trimOrigins(raw.CORSOrigins)
	}

	if !strings.HasPrefix(cfg.RPCPath, "/") {
		return mockd.Config{}, fmt.Errorf("rpc_path must start with /, got %q", cfg.RPCPath)
	}
	return cfg.WithDefaults(), nil
}

func trimOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
