package mockd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/trctl/internal/auth"
	"github.com/danmuck/trctl/internal/protocol"
	"github.com/danmuck/trctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func post(t *testing.T, d *Daemon, sessionID string, req protocol.Request) *httptest.ResponseRecorder {
	t.Helper()
	body, err := protocol.EncodeRequest(req)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, d.Config().RPCPath, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		r.Header.Set(protocol.HeaderSessionID, sessionID)
	}
	rr := httptest.NewRecorder()
	d.Handler().ServeHTTP(rr, r)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) protocol.Response {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	resp, err := protocol.DecodeResponse(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestDiscoveryReturnsConflictWithSessionID(t *testing.T) {
	testlog.Start(t)
	d := New(Config{})

	r := httptest.NewRequest(http.MethodGet, d.Config().RPCPath, nil)
	rr := httptest.NewRecorder()
	d.Handler().ServeHTTP(rr, r)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	got := rr.Header().Get(protocol.HeaderSessionID)
	if got == "" || got != d.SessionID() {
		t.Fatalf("expected session id %q in header, got %q", d.SessionID(), got)
	}
	t.Logf("mockd/discover: status=%d session=%s", rr.Code, got)
}

func TestPostRequiresCurrentSessionID(t *testing.T) {
	testlog.Start(t)
	d := New(Config{})

	rr := post(t, d, "", protocol.Request{Method: "session-get"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 without session id, got %d", rr.Code)
	}
	rr = post(t, d, "stale", protocol.Request{Method: "session-get"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 with stale session id, got %d", rr.Code)
	}
	if rr.Header().Get(protocol.HeaderSessionID) != d.SessionID() {
		t.Fatalf("conflict did not carry the current session id")
	}

	resp := decode(t, post(t, d, d.SessionID(), protocol.Request{Method: "session-get"}))
	if !resp.Succeeded() {
		t.Fatalf("expected success, got %q", resp.Result)
	}
	version, err := protocol.ParseVersion(resp.Arguments["rpc-version"])
	if err != nil || version != 17 {
		t.Fatalf("expected rpc-version 17, got %v err=%v", resp.Arguments["rpc-version"], err)
	}
	accepted, conflicts := d.Stats()
	if accepted != 1 || conflicts != 2 {
		t.Fatalf("unexpected stats accepted=%d conflicts=%d", accepted, conflicts)
	}
}

func TestRotateEveryInvalidatesSession(t *testing.T) {
	testlog.Start(t)
	d := New(Config{RotateEvery: 2})
	first := d.SessionID()

	decode(t, post(t, d, first, protocol.Request{Method: "session-stats"}))
	decode(t, post(t, d, first, protocol.Request{Method: "session-stats"}))

	rr := post(t, d, first, protocol.Request{Method: "session-stats"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 after rotation, got %d", rr.Code)
	}
	second := rr.Header().Get(protocol.HeaderSessionID)
	if second == "" || second == first {
		t.Fatalf("expected a new session id, got %q (old %q)", second, first)
	}
	decode(t, post(t, d, second, protocol.Request{Method: "session-stats"}))
	t.Logf("mockd/rotate: %s -> %s", first, second)
}

func TestNoSessionServesWithoutHandshake(t *testing.T) {
	testlog.Start(t)
	d := New(Config{NoSession: true})

	r := httptest.NewRequest(http.MethodGet, d.Config().RPCPath, nil)
	rr := httptest.NewRecorder()
	d.Handler().ServeHTTP(rr, r)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 discovery, got %d", rr.Code)
	}
	if rr.Header().Get(protocol.HeaderSessionID) != "" {
		t.Fatalf("expected no session header")
	}
	decode(t, post(t, d, "", protocol.Request{Method: "session-get"}))
}

func TestBasicAuthRejectsWrongCredentials(t *testing.T) {
	testlog.Start(t)
	d := New(Config{Username: "admin", Password: "secret"})

	r := httptest.NewRequest(http.MethodGet, d.Config().RPCPath, nil)
	rr := httptest.NewRecorder()
	d.Handler().ServeHTTP(rr, r)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rr.Code)
	}

	r = httptest.NewRequest(http.MethodGet, d.Config().RPCPath, nil)
	r.Header.Set("Authorization", auth.Credentials{Username: "admin", Password: "wrong"}.Header())
	rr = httptest.NewRecorder()
	d.Handler().ServeHTTP(rr, r)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong password, got %d", rr.Code)
	}

	r = httptest.NewRequest(http.MethodGet, d.Config().RPCPath, nil)
	auth.Credentials{Username: "admin", Password: "secret"}.Apply(r)
	rr = httptest.NewRecorder()
	d.Handler().ServeHTTP(rr, r)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 handshake once authorized, got %d", rr.Code)
	}
}

func TestTorrentLifecycle(t *testing.T) {
	testlog.Start(t)
	d := New(Config{})
	sid := d.SessionID()

	resp := decode(t, post(t, d, sid, protocol.Request{
		Method:    "torrent-add",
		Arguments: map[string]any{"filename": "https://example.org/debian.iso.torrent", "paused": true},
	}))
	added, ok := resp.Arguments["torrent-added"].(map[string]any)
	if !ok {
		t.Fatalf("expected torrent-added, got %#v", resp.Arguments)
	}
	if added["name"] != "debian.iso" {
		t.Fatalf("unexpected name %v", added["name"])
	}

	resp = decode(t, post(t, d, sid, protocol.Request{
		Method:    "torrent-add",
		Arguments: map[string]any{"filename": "https://example.org/debian.iso.torrent"},
	}))
	if _, ok := resp.Arguments["torrent-duplicate"]; !ok {
		t.Fatalf("expected torrent-duplicate, got %#v", resp.Arguments)
	}

	decode(t, post(t, d, sid, protocol.Request{Method: "torrent-start", Arguments: map[string]any{"ids": []any{1}}}))
	decode(t, post(t, d, sid, protocol.Request{
		Method:    "torrent-set-location",
		Arguments: map[string]any{"ids": []any{1}, "location": "/srv/iso", "move": true},
	}))

	resp = decode(t, post(t, d, sid, protocol.Request{
		Method:    "torrent-get",
		Arguments: map[string]any{"fields": []string{"id", "status", "downloadDir"}},
	}))
	want := map[string]any{
		"torrents": []any{
			map[string]any{"id": float64(1), "status": float64(protocol.StatusDownload), "downloadDir": "/srv/iso"},
		},
	}
	if diff := cmp.Diff(want, resp.Arguments); diff != "" {
		t.Fatalf("torrent-get mismatch (-want +got):\n%s", diff)
	}

	decode(t, post(t, d, sid, protocol.Request{Method: "torrent-remove", Arguments: map[string]any{"ids": []any{1}}}))
	if d.Torrents().Len() != 0 {
		t.Fatalf("expected empty registry, got %d", d.Torrents().Len())
	}
}

func TestLegacyVersionReportsBitFlagStatus(t *testing.T) {
	testlog.Start(t)
	d := New(Config{RPCVersion: 13})
	d.Torrents().Add(Torrent{Name: "a", HashString: "aa", Status: protocol.StatusStopped})
	d.Torrents().Add(Torrent{Name: "b", HashString: "bb", Status: protocol.StatusSeed})

	resp := decode(t, post(t, d, d.SessionID(), protocol.Request{
		Method:    "torrent-get",
		Arguments: map[string]any{"fields": []string{"id", "status"}},
	}))
	raw, err := json.Marshal(resp.Arguments["torrents"])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got []struct {
		ID     int `json:"id"`
		Status int `json:"status"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 || got[0].Status != protocol.LegacyStatusStopped || got[1].Status != protocol.LegacyStatusSeed {
		t.Fatalf("unexpected legacy statuses: %+v", got)
	}
}

func TestRenamePathRequiresOneTorrent(t *testing.T) {
	testlog.Start(t)
	d := New(Config{})
	d.Torrents().Add(Torrent{Name: "a", HashString: "aa"})
	d.Torrents().Add(Torrent{Name: "b", HashString: "bb"})
	sid := d.SessionID()

	resp := decode(t, post(t, d, sid, protocol.Request{
		Method:    "torrent-rename-path",
		Arguments: map[string]any{"ids": []any{1, 2}, "path": "a", "name": "c"},
	}))
	if resp.Succeeded() {
		t.Fatalf("expected rename of two torrents to fail")
	}

	resp = decode(t, post(t, d, sid, protocol.Request{
		Method:    "torrent-rename-path",
		Arguments: map[string]any{"ids": []any{"aa"}, "path": "a", "name": "renamed"},
	}))
	if !resp.Succeeded() || resp.Arguments["name"] != "renamed" {
		t.Fatalf("unexpected rename response: %+v", resp)
	}
	if tor, _ := d.Torrents().Get(1); tor.Name != "renamed" {
		t.Fatalf("expected registry rename, got %q", tor.Name)
	}
}

func TestUnknownMethodReportsResult(t *testing.T) {
	testlog.Start(t)
	d := New(Config{})
	resp := decode(t, post(t, d, d.SessionID(), protocol.Request{Method: "torrent-explode"}))
	if resp.Result != "method name not recognized" {
		t.Fatalf("unexpected result %q", resp.Result)
	}
}

func TestSessionSetPersistsSettings(t *testing.T) {
	testlog.Start(t)
	d := New(Config{})
	sid := d.SessionID()
	decode(t, post(t, d, sid, protocol.Request{
		Method:    "session-set",
		Arguments: map[string]any{"download-dir": "/data", "rpc-version": 1},
	}))
	resp := decode(t, post(t, d, sid, protocol.Request{Method: "session-get"}))
	if resp.Arguments["download-dir"] != "/data" {
		t.Fatalf("expected download-dir to persist, got %v", resp.Arguments["download-dir"])
	}
	if v, _ := protocol.ParseVersion(resp.Arguments["rpc-version"]); v != 17 {
		t.Fatalf("rpc-version must not be settable, got %d", v)
	}
}
