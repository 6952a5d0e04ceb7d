package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danmuck/trctl/internal/auth"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 32 << 20
)

// ExpectFunc decides whether a status is returned as a Response or as a
// *StatusError.
type ExpectFunc func(status int) bool

// ExpectSuccess accepts 2xx statuses.
func ExpectSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// ExpectStatus accepts exactly the listed statuses.
func ExpectStatus(codes ...int) ExpectFunc {
	return func(status int) bool {
		for _, code := range codes {
			if status == code {
				return true
			}
		}
		return false
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError is returned when the ExpectFunc rejects a status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: unexpected status %d (%s %s)", e.StatusCode, e.Method, e.URL)
}

// Transport is the request capability the core calls through.
type Transport interface {
	Get(ctx context.Context, url string, header http.Header, expect ExpectFunc) (*Response, error)
	Post(ctx context.Context, url string, header http.Header, body []byte, expect ExpectFunc) (*Response, error)
}

// HTTPTransport implements Transport over net/http.
type HTTPTransport struct {
	client       *http.Client
	timeout      time.Duration
	credentials  auth.Credentials
	tls          *TLSConfig
	tunnel       *SSHTunnel
	maxBodyBytes int64
}

var _ Transport = (*HTTPTransport)(nil)

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithTimeout sets the per-request timeout enforced by the HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(t *HTTPTransport) {
		t.timeout = timeout
	}
}

// WithCredentials attaches basic auth to every request.
func WithCredentials(creds auth.Credentials) Option {
	return func(t *HTTPTransport) {
		t.credentials = creds
	}
}

func WithTLS(cfg TLSConfig) Option {
	return func(t *HTTPTransport) {
		t.tls = &cfg
	}
}

// WithTunnel routes every connection through an SSH tunnel.
func WithTunnel(tunnel *SSHTunnel) Option {
	return func(t *HTTPTransport) {
		t.tunnel = tunnel
	}
}

// WithHTTPClient uses client as is; TLS and tunnel options are ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(t *HTTPTransport) {
		t.maxBodyBytes = n
	}
}

// NewHTTPTransport builds a transport from opts.
func NewHTTPTransport(opts ...Option) (*HTTPTransport, error) {
	t := &HTTPTransport{
		timeout:      defaultTimeout,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.maxBodyBytes <= 0 {
		t.maxBodyBytes = defaultMaxBodyBytes
	}
	if t.client != nil {
		return t, nil
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if t.tls != nil && t.tls.Enabled() {
		tlsCfg, err := t.tls.ClientConfig()
		if err != nil {
			return nil, err
		}
		base.TLSClientConfig = tlsCfg
	}
	if t.tunnel != nil {
		base.Proxy = nil
		base.DialContext = t.tunnel.DialContext
	}
	t.client = &http.Client{
		Timeout:   t.timeout,
		Transport: base,
	}
	return t, nil
}

func (t *HTTPTransport) Get(ctx context.Context, url string, header http.Header, expect ExpectFunc) (*Response, error) {
	return t.do(ctx, http.MethodGet, url, header, nil, expect)
}

func (t *HTTPTransport) Post(ctx context.Context, url string, header http.Header, body []byte, expect ExpectFunc) (*Response, error) {
	return t.do(ctx, http.MethodPost, url, header, body, expect)
}

// Close releases idle connections and the SSH tunnel, if any.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	if t.tunnel != nil {
		return t.tunnel.Close()
	}
	return nil
}

func (t *HTTPTransport) do(
	ctx context.Context,
	method string,
	url string,
	header http.Header,
	body []byte,
	expect ExpectFunc,
) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("transport: create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	t.credentials.Apply(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("transport: read response: %w", err)
	}

	if expect == nil {
		expect = ExpectSuccess
	}
	if !expect(resp.StatusCode) {
		return nil, &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       data,
		}
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}
