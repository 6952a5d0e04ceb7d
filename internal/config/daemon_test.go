package config

import (
	"testing"

	"github.com/danmuck/trctl/internal/mockd"
	"github.com/danmuck/trctl/internal/testutil/testlog"
)

func TestLoadDaemonConfigOverlay(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "rpc_version = 13\nrotate_every = 4\nno_session = true\n")
	cfg, err := LoadDaemonConfig(path)
	if err != nil {
		t.Fatalf("load daemon config: %v", err)
	}
	def := mockd.DefaultConfig()
	if cfg.RPCVersion != 13 || cfg.RotateEvery != 4 || !cfg.NoSession {
		t.Fatalf("overrides lost: %+v", cfg)
	}
	if cfg.Addr != def.Addr || cfg.RPCPath != def.RPCPath || cfg.Version != def.Version {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadDaemonConfigRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "addr = \":9091\"\nrotate = 2\n")
	if _, err := LoadDaemonConfig(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadDaemonConfigValidates(t *testing.T) {
	testlog.Start(t)
	for name, body := range map[string]string{
		"version": "rpc_version = 0\n",
		"path":    "rpc_path = \"transmission/rpc\"\n",
	} {
		if _, err := LoadDaemonConfig(writeFile(t, body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestDaemonTemplateLoads(t *testing.T) {
	testlog.Start(t)
	body, err := Template("daemon")
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	cfg, err := LoadDaemonConfig(writeFile(t, body))
	if err != nil {
		t.Fatalf("load daemon template: %v", err)
	}
	if cfg.ID != "trmockd" || cfg.RPCVersion != 17 {
		t.Fatalf("unexpected template config: %+v", cfg)
	}
}
