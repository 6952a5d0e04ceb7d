package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrTLSCertFileRequired = errors.New("transport: tls cert file required")
	ErrTLSKeyFileRequired  = errors.New("transport: tls key file required")
)

// TLSConfig describes how to reach a daemon behind TLS.
type TLSConfig struct {
	CAFile             string
	ServerName         string
	InsecureSkipVerify bool
	CertFile           string
	KeyFile            string
}

// Enabled reports whether any TLS setting differs from the system defaults.
func (c TLSConfig) Enabled() bool {
	return c != (TLSConfig{})
}

// ClientConfig builds the crypto/tls client configuration.
func (c TLSConfig) ClientConfig() (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.InsecureSkipVerify,
		ServerName:         strings.TrimSpace(c.ServerName),
	}

	if caPath := strings.TrimSpace(c.CAFile); caPath != "" {
		caPEM, err := os.ReadFile(caPath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(caPEM); !ok {
			return nil, fmt.Errorf("transport: parse tls ca bundle: %s", caPath)
		}
		cfg.RootCAs = pool
	}

	certFile := strings.TrimSpace(c.CertFile)
	keyFile := strings.TrimSpace(c.KeyFile)
	switch {
	case certFile == "" && keyFile == "":
	case certFile == "":
		return nil, ErrTLSCertFileRequired
	case keyFile == "":
		return nil, ErrTLSKeyFileRequired
	default:
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}
