package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/trctl/internal/auth"
	"github.com/danmuck/trctl/internal/testutil/testlog"
	"github.com/danmuck/trctl/internal/testutil/tlstest"
)

func TestPostReturnsBodyAndHeaders(t *testing.T) {
	testlog.Start(t)
	var gotBody, gotType, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("X-Test", "yes")
		_, _ = w.Write([]byte(`{"result":"success"}`))
	}))
	defer srv.Close()

	creds := auth.Credentials{Username: "admin", Password: "secret"}
	tr, err := NewHTTPTransport(WithCredentials(creds), WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	defer tr.Close()

	resp, err := tr.Post(context.Background(), srv.URL, nil, []byte(`{"method":"session-get"}`), ExpectSuccess)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"result":"success"}` {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Body)
	}
	if resp.Header.Get("X-Test") != "yes" {
		t.Fatalf("response headers lost")
	}
	if gotBody != `{"method":"session-get"}` || gotType != "application/json" {
		t.Fatalf("unexpected request body=%q type=%q", gotBody, gotType)
	}
	if gotAuth != creds.Header() {
		t.Fatalf("expected basic auth %q, got %q", creds.Header(), gotAuth)
	}
}

func TestUnexpectedStatusReturnsStatusError(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Transmission-Session-Id", "fresh")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("conflict"))
	}))
	defer srv.Close()

	tr, err := NewHTTPTransport()
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	resp, err := tr.Post(context.Background(), srv.URL, nil, []byte(`{}`), ExpectSuccess)
	if resp != nil {
		t.Fatalf("expected nil response on unexpected status")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusConflict || statusErr.Header.Get("X-Transmission-Session-Id") != "fresh" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if string(statusErr.Body) != "conflict" {
		t.Fatalf("unexpected body %q", statusErr.Body)
	}

	resp, err = tr.Get(context.Background(), srv.URL, nil, ExpectStatus(http.StatusConflict))
	if err != nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected accepted 409, got resp=%v err=%v", resp, err)
	}
}

func TestExpectPredicates(t *testing.T) {
	testlog.Start(t)
	for _, code := range []int{200, 204, 299} {
		if !ExpectSuccess(code) {
			t.Fatalf("ExpectSuccess(%d) should be true", code)
		}
	}
	for _, code := range []int{199, 300, 409, 500} {
		if ExpectSuccess(code) {
			t.Fatalf("ExpectSuccess(%d) should be false", code)
		}
	}
	expect := ExpectStatus(200, 409)
	if !expect(409) || expect(404) {
		t.Fatalf("ExpectStatus mismatch")
	}
}

func TestMaxBodyBytesTruncates(t *testing.T) {
	testlog.Start(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	tr, err := NewHTTPTransport(WithMaxBodyBytes(8))
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	resp, err := tr.Get(context.Background(), srv.URL, nil, ExpectSuccess)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(resp.Body) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(resp.Body))
	}
}

func TestConnectionRefused(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	tr, err := NewHTTPTransport(WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	_, err = tr.Get(context.Background(), "http://"+addr+"/transmission/rpc", nil, ExpectSuccess)
	if err == nil {
		t.Fatalf("expected dial error")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Fatalf("dial failure must not be a status error")
	}
}

func TestTLSWithPrivateAuthority(t *testing.T) {
	testlog.Start(t)
	srv, ca := tlstest.NewServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}), false)

	tr, err := NewHTTPTransport(WithTLS(TLSConfig{CAFile: ca.CAFile()}))
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	resp, err := tr.Get(context.Background(), srv.URL, nil, ExpectSuccess)
	if err != nil {
		t.Fatalf("tls get: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Fatalf("unexpected body %q", resp.Body)
	}

	plain, err := NewHTTPTransport()
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	if _, err := plain.Get(context.Background(), srv.URL, nil, ExpectSuccess); err == nil {
		t.Fatalf("expected verification failure without the private CA")
	}
}

func TestTLSClientCertificate(t *testing.T) {
	testlog.Start(t)
	srv, ca := tlstest.NewServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.TLS.PeerCertificates[0].Subject.CommonName))
	}), true)
	client := ca.IssueClientCert(t, t.TempDir(), "trctl")

	tr, err := NewHTTPTransport(WithTLS(TLSConfig{
		CAFile:   ca.CAFile(),
		CertFile: client.CertFile,
		KeyFile:  client.KeyFile,
	}))
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	resp, err := tr.Get(context.Background(), srv.URL, nil, ExpectSuccess)
	if err != nil {
		t.Fatalf("mtls get: %v", err)
	}
	if string(resp.Body) != "trctl" {
		t.Fatalf("unexpected peer %q", resp.Body)
	}

	anonymous, err := NewHTTPTransport(WithTLS(TLSConfig{CAFile: ca.CAFile()}))
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	if _, err := anonymous.Get(context.Background(), srv.URL, nil, ExpectSuccess); err == nil {
		t.Fatalf("expected handshake failure without a client certificate")
	}
}

func TestTLSConfigValidation(t *testing.T) {
	testlog.Start(t)
	if (TLSConfig{}).Enabled() {
		t.Fatalf("zero config must not enable tls overrides")
	}
	if _, err := (TLSConfig{CertFile: "client.pem"}).ClientConfig(); !errors.Is(err, ErrTLSKeyFileRequired) {
		t.Fatalf("expected ErrTLSKeyFileRequired, got %v", err)
	}
	if _, err := (TLSConfig{KeyFile: "client.key"}).ClientConfig(); !errors.Is(err, ErrTLSCertFileRequired) {
		t.Fatalf("expected ErrTLSCertFileRequired, got %v", err)
	}
	if _, err := NewHTTPTransport(WithTLS(TLSConfig{CAFile: "/does/not/exist.pem"})); err == nil {
		t.Fatalf("expected missing CA file error")
	}
}
