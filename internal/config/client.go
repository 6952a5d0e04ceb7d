package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/danmuck/trctl/internal/protocol"
	"github.com/danmuck/trctl/internal/protocol/session"
	"github.com/pelletier/go-toml/v2"
)

// ClientConfig is the on-disk configuration for one daemon connection.
type ClientConfig struct {
	URL                string    `toml:"url"`
	Username           string    `toml:"username"`
	Password           string    `toml:"password"`
	UserAgent          string    `toml:"user_agent"`
	Timeout            string    `toml:"timeout"`
	HandshakeTimeout   string    `toml:"handshake_timeout"`
	MaxSessionAttempts int       `toml:"max_session_attempts"`
	TLS                TLSConfig `toml:"tls"`
	SSH                SSHConfig `toml:"ssh"`
}

type TLSConfig struct {
	CAFile             string `toml:"ca_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
}

// SSHConfig enables the tunnel transport when Host is set.
type SSHConfig struct {
	Host                        string `toml:"host"`
	Port                        int    `toml:"port"`
	User                        string `toml:"user"`
	KeyPath                     string `toml:"key_path"`
	KeyPassphrase               string `toml:"key_passphrase"`
	KnownHostsPath              string `toml:"known_hosts_path"`
	InsecureSkipHostKeyChecking bool   `toml:"insecure_skip_host_key_checking"`
	Timeout                     string `toml:"timeout"`
}

func (c SSHConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

var ErrInvalidConfig = errors.New("config: invalid")

func DefaultClientConfig() ClientConfig {
	sess := session.DefaultConfig()
	return ClientConfig{
		URL:                protocol.DefaultEndpoint,
		UserAgent:          sess.UserAgent,
		Timeout:            sess.RequestTimeout.String(),
		HandshakeTimeout:   sess.HandshakeTimeout.String(),
		MaxSessionAttempts: sess.MaxSessionAttempts,
	}
}

// LoadClientConfig reads path over DefaultClientConfig and validates the result.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	cfg = cfg.WithDefaults()
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// WithDefaults fills blank fields from DefaultClientConfig.
func (c ClientConfig) WithDefaults() ClientConfig {
	def := DefaultClientConfig()
	if strings.TrimSpace(c.URL) == "" {
		c.URL = def.URL
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = def.UserAgent
	}
	if strings.TrimSpace(c.Timeout) == "" {
		c.Timeout = def.Timeout
	}
	if strings.TrimSpace(c.HandshakeTimeout) == "" {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.MaxSessionAttempts == 0 {
		c.MaxSessionAttempts = def.MaxSessionAttempts
	}
	return c
}

func ValidateClientConfig(cfg ClientConfig) error {
	u, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url scheme must be http or https, got %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url missing host", ErrInvalidConfig)
	}
	if _, err := parseDuration("timeout", cfg.Timeout); err != nil {
		return err
	}
	if _, err := parseDuration("handshake_timeout", cfg.HandshakeTimeout); err != nil {
		return err
	}
	if cfg.MaxSessionAttempts < 1 {
		return fmt.Errorf("%w: max_session_attempts must be at least 1", ErrInvalidConfig)
	}
	if (cfg.TLS.CertFile == "") != (cfg.TLS.KeyFile == "") {
		return fmt.Errorf("%w: tls cert_file and key_file must be set together", ErrInvalidConfig)
	}
	if cfg.SSH.Enabled() {
		if err := validateSSH(cfg.SSH); err != nil {
			return err
		}
	}
	return nil
}

func validateSSH(cfg SSHConfig) error {
	if strings.TrimSpace(cfg.User) == "" {
		return fmt.Errorf("%w: ssh user is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.KeyPath) == "" {
		return fmt.Errorf("%w: ssh key_path is required", ErrInvalidConfig)
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("%w: ssh port out of range: %d", ErrInvalidConfig, cfg.Port)
	}
	if strings.TrimSpace(cfg.Timeout) != "" {
		if _, err := parseDuration("ssh.timeout", cfg.Timeout); err != nil {
			return err
		}
	}
	return nil
}

func parseDuration(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, field)
	}
	return d, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
