package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		return clientTemplate, nil
	case "daemon":
		return daemonTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const clientTemplate = `url = "http://localhost:9091/transmission/rpc"
username = ""
password = ""
user_agent = "trctl"
timeout = "30s"
handshake_timeout = "10s"
max_session_attempts = 3

[tls]
ca_file = ""
server_name = ""
insecure_skip_verify = false

# Tunnel to a daemon that only listens on the remote loopback.
[ssh]
host = ""
port = 22
user = ""
key_path = "~/.ssh/id_ed25519"
known_hosts_path = "~/.ssh/known_hosts"
insecure_skip_host_key_checking = false
timeout = "10s"
`

const daemonTemplate = `id = "trmockd"
addr = ":9091"
rpc_path = "/transmission/rpc"
rpc_version = 17
version = "4.0.6 (mockd)"
download_dir = "/var/lib/trmockd/downloads"
rotate_every = 0
no_session = false
username = ""
password = ""
cors_origins = ["http://localhost:3000"]
`
