// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package status

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"sja1105-go/pkg/dynamic"
	"sja1105-go/pkg/tas"
)

// mockSource implements Source for testing.
type mockSource struct {
	calls int
}

func (m *mockSource) Snapshot() map[string]any {
	m.calls++
	return map[string]any{
		"device":       "SJA1105T",
		"config_valid": true,
		"fdb_entries":  3,
	}
}

func newTestServer(src Source) *Server {
	return New(Config{
		Addr:         ":8105",
		Source:       src,
		PushInterval: 50 * time.Millisecond,
	})
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(&mockSource{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var snap map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snap["device"] != "SJA1105T" {
		t.Errorf("expected device SJA1105T, got %v", snap["device"])
	}
	if snap["config_valid"] != true {
		t.Errorf("expected config_valid true, got %v", snap["config_valid"])
	}
	if _, ok := snap["time"]; !ok {
		t.Error("snapshot missing timestamp")
	}
}

func TestStatusEndpointRejectsPost(t *testing.T) {
	s := newTestServer(&mockSource{})

	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
}

func TestStatusEndpointWithoutSource(t *testing.T) {
	s := New(Config{Addr: ":8105"})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var snap map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := snap["time"]; !ok {
		t.Error("snapshot missing timestamp")
	}
}

// mockTables implements TableReader over a fixed set of entries.
type mockTables struct {
	entries map[int]map[string]any
}

func (m *mockTables) ReadTable(name string, index int) (any, error) {
	if name != "l2-lookup" {
		return nil, fmt.Errorf("unknown table %q", name)
	}
	entry, ok := m.entries[index]
	if !ok {
		return nil, dynamic.ErrNotFound
	}
	return entry, nil
}

func TestTableEndpoint(t *testing.T) {
	tables := &mockTables{entries: map[int]map[string]any{
		7: {"macaddr": "01:80:c2:00:00:0e", "destports": 0x10},
	}}
	s := New(Config{Addr: ":8105", Source: &mockSource{}, Tables: tables})

	req := httptest.NewRequest(http.MethodGet, "/table?name=l2-lookup&index=7", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["table"] != "l2-lookup" || resp["index"] != float64(7) {
		t.Errorf("unexpected envelope: %v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/table?name=l2-lookup&index=8", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing entry: got %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/table?name=l2-lookup", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing index: got %d, want 400", rec.Code)
	}
}

func TestTableEndpointWithoutReader(t *testing.T) {
	s := New(Config{Addr: ":8105", Source: &mockSource{}})

	req := httptest.NewRequest(http.MethodGet, "/table?name=l2-lookup&index=0", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("got %d, want 501", rec.Code)
	}
}

// mockSchedules records SetSchedule calls.
type mockSchedules struct {
	port    int
	program *tas.GateProgram
	calls   int
}

func (m *mockSchedules) SetSchedule(port int, program *tas.GateProgram) error {
	m.port = port
	m.program = program
	m.calls++
	return nil
}

func TestScheduleEndpoint(t *testing.T) {
	updater := &mockSchedules{}
	s := New(Config{Addr: ":8105", Source: &mockSource{}, Schedules: updater})

	body := `{"port":2,"baseTimeNs":200000,"entries":[{"intervalNs":100000,"gateMask":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if updater.port != 2 || updater.program == nil {
		t.Fatalf("updater saw port %d, program %v", updater.port, updater.program)
	}
	if updater.program.BaseTime != 200000 || len(updater.program.Entries) != 1 {
		t.Errorf("program: %+v", updater.program)
	}

	// Remove clears the program.
	req = httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(`{"port":2,"remove":true}`))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: got %d", rec.Code)
	}
	if updater.program != nil {
		t.Errorf("remove passed a non-nil program: %+v", updater.program)
	}

	req = httptest.NewRequest(http.MethodGet, "/schedule", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: got %d, want 405", rec.Code)
	}
}

func TestScheduleEndpointWithoutUpdater(t *testing.T) {
	s := New(Config{Addr: ":8105", Source: &mockSource{}})

	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(`{"port":0}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("got %d, want 501", rec.Code)
	}
}

func TestWebSocketInitialSnapshot(t *testing.T) {
	s := newTestServer(&mockSource{})

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	wsURL := "ws" + server.URL[4:] + "/websocket"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect WebSocket: %v", err)
	}
	defer conn.Close()

	// The first snapshot arrives without waiting for the push loop.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var snap map[string]any
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	if snap["device"] != "SJA1105T" {
		t.Errorf("expected device SJA1105T, got %v", snap["device"])
	}
}

func TestWebSocketPeriodicPush(t *testing.T) {
	src := &mockSource{}
	s := newTestServer(src)
	s.running.Store(true)
	go s.pushLoop()
	defer s.running.Store(false)

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	wsURL := "ws" + server.URL[4:] + "/websocket"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect WebSocket: %v", err)
	}
	defer conn.Close()

	// Initial snapshot plus at least one periodic push.
	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var snap map[string]any
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("failed to read snapshot %d: %v", i, err)
		}
		if snap["fdb_entries"] != float64(3) {
			t.Errorf("snapshot %d: fdb_entries %v", i, snap["fdb_entries"])
		}
	}
}

func TestWebSocketClientRemovedOnClose(t *testing.T) {
	s := newTestServer(&mockSource{})

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	wsURL := "ws" + server.URL[4:] + "/websocket"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect WebSocket: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.clientMu.RLock()
		n := len(s.clients)
		s.clientMu.RUnlock()
		if n == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	for time.Now().Before(deadline) {
		s.clientMu.RLock()
		n := len(s.clients)
		s.clientMu.RUnlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("client not removed after close")
}
