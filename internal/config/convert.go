package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/trctl/internal/auth"
	"github.com/danmuck/trctl/internal/protocol/session"
	"github.com/danmuck/trctl/internal/rpc"
	"github.com/danmuck/trctl/internal/transport"
)

// SessionConfig maps the file settings onto session defaults.
func (c ClientConfig) SessionConfig() (session.Config, error) {
	cfg := session.DefaultConfig()
	timeout, err := parseDuration("timeout", c.Timeout)
	if err != nil {
		return session.Config{}, err
	}
	handshake, err := parseDuration("handshake_timeout", c.HandshakeTimeout)
	if err != nil {
		return session.Config{}, err
	}
	cfg.UserAgent = c.UserAgent
	cfg.RequestTimeout = timeout
	cfg.HandshakeTimeout = handshake
	cfg.MaxSessionAttempts = c.MaxSessionAttempts
	return cfg.WithDefaults(), nil
}

// Transport builds the HTTP transport with credentials, TLS and tunnel.
func (c ClientConfig) Transport() (*transport.HTTPTransport, error) {
	timeout, err := parseDuration("timeout", c.Timeout)
	if err != nil {
		return nil, err
	}
	opts := []transport.Option{
		transport.WithTimeout(timeout),
		transport.WithCredentials(auth.Credentials{
			Username: c.Username,
			Password: c.Password,
		}),
		transport.WithTLS(transport.TLSConfig{
			CAFile:             c.TLS.CAFile,
			ServerName:         c.TLS.ServerName,
			InsecureSkipVerify: c.TLS.InsecureSkipVerify,
			CertFile:           c.TLS.CertFile,
			KeyFile:            c.TLS.KeyFile,
		}),
	}
	if c.SSH.Enabled() {
		tunnel, err := c.SSH.Tunnel()
		if err != nil {
			return nil, err
		}
		opts = append(opts, transport.WithTunnel(tunnel))
	}
	return transport.NewHTTPTransport(opts...)
}

func (c SSHConfig) Tunnel() (*transport.SSHTunnel, error) {
	var timeout time.Duration
	if c.Timeout != "" {
		d, err := parseDuration("ssh.timeout", c.Timeout)
		if err != nil {
			return nil, err
		}
		timeout = d
	}
	port := ""
	if c.Port > 0 {
		port = strconv.Itoa(c.Port)
	}
	var passphrase []byte
	if c.KeyPassphrase != "" {
		passphrase = []byte(c.KeyPassphrase)
	}
	return transport.NewSSHTunnel(transport.SSHTunnelConfig{
		Host:                        c.Host,
		Port:                        port,
		User:                        c.User,
		KeyPath:                     expandHome(c.KeyPath),
		Passphrase:                  passphrase,
		KnownHostsPath:              expandHome(c.KnownHostsPath),
		InsecureSkipHostKeyChecking: c.InsecureSkipHostKeyChecking,
		Timeout:                     timeout,
	})
}

// RPCConfig assembles everything rpc.New needs.
func (c ClientConfig) RPCConfig() (rpc.Config, error) {
	if err := ValidateClientConfig(c); err != nil {
		return rpc.Config{}, err
	}
	sess, err := c.SessionConfig()
	if err != nil {
		return rpc.Config{}, err
	}
	t, err := c.Transport()
	if err != nil {
		return rpc.Config{}, err
	}
	return rpc.Config{
		Endpoint:  c.URL,
		Session:   sess,
		Transport: t,
	}, nil
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
