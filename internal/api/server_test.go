package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vinput/internal/input"
	"vinput/internal/input/inputtest"
	"vinput/internal/journal"
	"vinput/internal/network"
	"vinput/internal/protocol"
)

type fixture struct {
	s   *Server
	rec *inputtest.Recorder
	srv *httptest.Server
	db  *journal.DB
}

func newFixture(t *testing.T, token string, opts ...inputtest.Option) *fixture {
	t.Helper()
	db, err := journal.Open(filepath.Join(t.TempDir(), journal.FileName))
	if err != nil {
		t.Fatal(err)
	}
	rec := inputtest.NewRecorder(opts...)
	sim := input.New(rec, input.WithObserver(db.Observer()))
	s := NewServer(sim, Options{Token: token, Backend: rec.Name(), Version: "test", Journal: db})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		s.hub.closeAll()
		db.Close()
	})
	return &fixture{s: s, rec: rec, srv: srv, db: db}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func decodeResult(t *testing.T, data []byte) protocol.ResultPayload {
	t.Helper()
	var res protocol.ResultPayload
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("Invalid result body %q: %v", data, err)
	}
	return res
}

func TestSimulate(t *testing.T) {
	f := newFixture(t, "")

	resp, body := f.do(t, http.MethodPost, "/api/simulate", "", protocol.NewEventPayload(input.KeyPress(input.KeyA)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	if !decodeResult(t, body).OK {
		t.Error("Expected ok result")
	}
	calls := f.rec.Injected()
	if len(calls) != 1 || calls[0].Op != inputtest.OpKey || calls[0].Code != 38 || !calls[0].Pressed {
		t.Errorf("Unexpected calls %v", calls)
	}
}

func TestSimulateErrors(t *testing.T) {
	f := newFixture(t, "")

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed", "{not json", http.StatusBadRequest},
		{"unknown type", protocol.EventPayload{Type: "teleport"}, http.StatusBadRequest},
		{"unknown key", protocol.EventPayload{Type: "key_press", Key: "NoSuchKey"}, http.StatusBadRequest},
		{"unmapped key", protocol.NewEventPayload(input.KeyPress(input.KeyFunction)), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPost, "/api/simulate", "", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
			if res := decodeResult(t, body); res.OK || res.Error == "" {
				t.Errorf("Expected failed result, got %+v", res)
			}
		})
	}
	if n := len(f.rec.Injected()); n != 0 {
		t.Errorf("Expected no native calls, got %d", n)
	}

	resp, _ := f.do(t, http.MethodGet, "/api/simulate", "", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestSimulateSessionUnavailable(t *testing.T) {
	f := newFixture(t, "")
	f.rec.FailOpen(errors.New("display gone"))

	resp, body := f.do(t, http.MethodPost, "/api/simulate", "", protocol.NewEventPayload(input.PointerMove(1, 2)))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", resp.StatusCode)
	}
	if res := decodeResult(t, body); !strings.Contains(res.Error, "could not simulate") {
		t.Errorf("Unexpected error %q", res.Error)
	}
}

func TestAuth(t *testing.T) {
	f := newFixture(t, "secret")
	ev := protocol.NewEventPayload(input.KeyPress(input.KeyA))

	resp, _ := f.do(t, http.MethodPost, "/api/simulate", "", ev)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodPost, "/api/simulate", "wrong", ev)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong token, got %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodPost, "/api/simulate", "secret", ev)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodGet, "/api/pointer?token=secret", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with query token, got %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected /health to skip auth, got %d", resp.StatusCode)
	}
}

func TestMoveRelative(t *testing.T) {
	f := newFixture(t, "", inputtest.WithPointer(input.PointerState{Point: input.Point{X: 10, Y: 20}}))

	resp, body := f.do(t, http.MethodPost, "/api/move_relative", "", protocol.MoveRelativePayload{DX: 5, DY: -5, WantStart: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	res := decodeResult(t, body)
	if res.Start == nil || res.Start.X != 10 || res.Start.Y != 20 {
		t.Errorf("Expected start (10, 20), got %+v", res.Start)
	}

	resp, body = f.do(t, http.MethodGet, "/api/pointer", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var p protocol.PointerPayload
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatal(err)
	}
	if p.X != 15 || p.Y != 15 {
		t.Errorf("Expected pointer at (15, 15), got (%d, %d)", p.X, p.Y)
	}
}

func TestPointerUnavailable(t *testing.T) {
	f := newFixture(t, "")
	f.rec.FailPointer(errors.New("no display"))

	resp, _ := f.do(t, http.MethodGet, "/api/pointer", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodPost, "/api/move_relative", "", protocol.MoveRelativePayload{DX: 1})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", resp.StatusCode)
	}
}

func TestKeys(t *testing.T) {
	f := newFixture(t, "")

	resp, body := f.do(t, http.MethodGet, "/api/keys", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var keys []KeyInfo
	if err := json.Unmarshal(body, &keys); err != nil {
		t.Fatal(err)
	}
	if len(keys) != len(input.AllKeys()) {
		t.Fatalf("Expected %d keys, got %d", len(input.AllKeys()), len(keys))
	}
	for _, k := range keys {
		want := k.Name != input.KeyFunction.String()
		if k.Supported != want {
			t.Errorf("Key %s: expected supported=%t", k.Name, want)
		}
	}

	modifiers := map[string]bool{}
	for _, k := range keys {
		modifiers[k.Name] = k.Modifier
	}
	for _, k := range []input.Key{input.KeyShiftLeft, input.KeyControlRight, input.KeyAlt, input.KeyMetaLeft} {
		if !modifiers[k.String()] {
			t.Errorf("Expected %s to be listed as a modifier", k)
		}
	}
	for _, k := range []input.Key{input.KeyA, input.KeySpace, input.KeyF1} {
		if modifiers[k.String()] {
			t.Errorf("Expected %s not to be listed as a modifier", k)
		}
	}
}

func TestJournal(t *testing.T) {
	f := newFixture(t, "")
	f.do(t, http.MethodPost, "/api/simulate", "", protocol.NewEventPayload(input.KeyPress(input.KeyA)))
	f.do(t, http.MethodPost, "/api/simulate", "", protocol.NewEventPayload(input.KeyRelease(input.KeyA)))

	resp, body := f.do(t, http.MethodGet, "/api/journal?limit=1", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var entries []journal.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Kind != "key_release" {
		t.Errorf("Unexpected entries %+v", entries)
	}

	resp, _ = f.do(t, http.MethodGet, "/api/journal?limit=abc", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestJournalDisabled(t *testing.T) {
	s := NewServer(input.New(inputtest.NewRecorder()), Options{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/journal")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestWake(t *testing.T) {
	f := newFixture(t, "", inputtest.WithRelativeMotion())

	resp, _ := f.do(t, http.MethodPost, "/api/wake", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if n := f.rec.Count(inputtest.OpRelative); n != 2 {
		t.Errorf("Expected 2 relative moves, got %d", n)
	}
}

func TestHealthDiscoverable(t *testing.T) {
	f := newFixture(t, "secret")

	agent, ok := network.ProbeAgent(context.Background(), strings.TrimPrefix(f.srv.URL, "http://"))
	if !ok {
		t.Fatal("Expected the server to be discoverable")
	}
	if agent.Backend != "recorder" || agent.Version != "test" {
		t.Errorf("Unexpected agent %+v", agent)
	}
}

func TestWebSocketClient(t *testing.T) {
	f := newFixture(t, "secret", inputtest.WithPointer(input.PointerState{Point: input.Point{X: 3, Y: 4}}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := network.DialWS(ctx, strings.TrimPrefix(f.srv.URL, "http://"), "secret")
	if err != nil {
		t.Fatalf("DialWS failed: %v", err)
	}
	defer c.Close()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if err := c.Simulate(ctx, input.ButtonPress(input.ButtonRight)); err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if err := c.Simulate(ctx, input.KeyPress(input.KeyFunction)); !errors.Is(err, network.ErrRemote) {
		t.Errorf("Expected ErrRemote, got %v", err)
	}
	start, err := c.MoveRelative(ctx, 1, 1, true)
	if err != nil {
		t.Fatalf("MoveRelative failed: %v", err)
	}
	if start != (input.Point{X: 3, Y: 4}) {
		t.Errorf("Expected start (3, 4), got %+v", start)
	}

	calls := f.rec.Injected()
	if len(calls) != 2 || calls[0].Op != inputtest.OpButton || calls[0].Code != 3 || calls[1].Op != inputtest.OpMotion {
		t.Errorf("Unexpected calls %v", calls)
	}
}

func TestWebSocketAuthMessage(t *testing.T) {
	f := newFixture(t, "secret")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := network.DialWS(ctx, strings.TrimPrefix(f.srv.URL, "http://"), "secret")
	if err != nil {
		t.Fatalf("DialWS failed: %v", err)
	}
	defer c.Close()

	if err := c.Authenticate(ctx, "secret", "test", "1.0"); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	// The token was rotated after the connection was upgraded
	f.s.SetToken("rotated")
	err = c.Authenticate(ctx, "secret", "test", "1.0")
	if !errors.Is(err, network.ErrRemote) || !strings.Contains(err.Error(), protocol.ErrUnauthorized.Error()) {
		t.Fatalf("Expected invalid token result, got %v", err)
	}
	if err := c.Simulate(ctx, input.KeyPress(input.KeyA)); !errors.Is(err, network.ErrClientClosed) {
		t.Errorf("Expected connection to be closed, got %v", err)
	}
	if n := len(f.rec.Injected()); n != 0 {
		t.Errorf("Expected no native calls, got %d", n)
	}
}

func TestWebSocketRejectsWithoutToken(t *testing.T) {
	f := newFixture(t, "secret")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := network.DialWS(ctx, strings.TrimPrefix(f.srv.URL, "http://"), ""); err == nil {
		t.Error("Expected dial without token to fail")
	}
}

func TestSetToken(t *testing.T) {
	s := NewServer(input.New(inputtest.NewRecorder()), Options{Token: "old"})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	get := func(token string) int {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/pointer", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := get("old"); code != http.StatusOK {
		t.Errorf("Expected 200, got %d", code)
	}
	s.SetToken("new")
	if code := get("old"); code != http.StatusUnauthorized {
		t.Errorf("Expected old token to be rejected, got %d", code)
	}
	if code := get("new"); code != http.StatusOK {
		t.Errorf("Expected 200 with new token, got %d", code)
	}
}
