// Runtime status API
//
// Copyright (C) 2026  SJA1105-Go Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package status exposes the daemon's view of the switch over HTTP: a
// one-shot JSON snapshot endpoint and a WebSocket stream that pushes
// the snapshot periodically to monitoring frontends.
package status

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"sja1105-go/pkg/dynamic"
	"sja1105-go/pkg/log"
	"sja1105-go/pkg/tas"
)

var logger = log.GetLogger("status")

// Source supplies the state snapshots the server publishes.
type Source interface {
	// Snapshot returns the current driver state as a JSON-encodable
	// map. Implementations must return a fresh map on each call.
	Snapshot() map[string]any
}

// TableReader answers dynamic table read requests against the live
// chip. Table names are the driver's (e.g. "l2-lookup", "vlan-lookup").
type TableReader interface {
	ReadTable(name string, index int) (any, error)
}

// ScheduleUpdater applies a gate program to a port at runtime. A nil
// program removes the port's schedule.
type ScheduleUpdater interface {
	SetSchedule(port int, program *tas.GateProgram) error
}

// Config holds status server configuration.
type Config struct {
	// Addr is the HTTP address to listen on (e.g., ":8105").
	Addr string

	// Source supplies the snapshots.
	Source Source

	// Tables, when set, enables the /table read endpoint.
	Tables TableReader

	// Schedules, when set, enables the /schedule update endpoint.
	Schedules ScheduleUpdater

	// PushInterval is the WebSocket push period. Defaults to one
	// second.
	PushInterval time.Duration
}

// Server publishes driver state snapshots.
type Server struct {
	source    Source
	tables    TableReader
	schedules ScheduleUpdater
	addr      string
	interval  time.Duration

	httpServer *http.Server
	mux        *http.ServeMux
	upgrader   websocket.Upgrader

	clients  map[int64]*wsClient
	clientMu sync.RWMutex
	nextID   int64

	running   atomic.Bool
	startTime time.Time
}

// New creates a status server.
func New(cfg Config) *Server {
	s := &Server{
		source:    cfg.Source,
		tables:    cfg.Tables,
		schedules: cfg.Schedules,
		addr:      cfg.Addr,
		interval:  cfg.PushInterval,
		mux:       http.NewServeMux(),
		clients:   make(map[int64]*wsClient),
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/table", s.handleTable)
	s.mux.HandleFunc("/schedule", s.handleSchedule)
	s.mux.HandleFunc("/websocket", s.handleWebSocket)

	return s
}

// Handler returns the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}

	s.running.Store(true)
	s.startTime = time.Now()
	logger.Info("status server listening on %s", s.addr)

	go s.pushLoop()

	return s.httpServer.ListenAndServe()
}

// Stop stops the server and disconnects all WebSocket clients.
func (s *Server) Stop() error {
	s.running.Store(false)

	s.clientMu.Lock()
	for _, client := range s.clients {
		client.close()
	}
	s.clients = make(map[int64]*wsClient)
	s.clientMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) snapshot() map[string]any {
	var snap map[string]any
	if s.source != nil {
		snap = s.source.Snapshot()
	}
	if snap == nil {
		snap = make(map[string]any)
	}
	snap["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	if !s.startTime.IsZero() {
		snap["uptime"] = time.Since(s.startTime).Seconds()
	}
	return snap
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshot())
}

// handleTable serves GET /table?name=<table>&index=<n> by reading the
// entry from the live chip through the dynamic interface.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.tables == nil {
		http.Error(w, "Table access not available", http.StatusNotImplemented)
		return
	}

	name := r.URL.Query().Get("name")
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if name == "" || err != nil {
		http.Error(w, "name and index query parameters are required", http.StatusBadRequest)
		return
	}

	entry, err := s.tables.ReadTable(name, index)
	switch {
	case errors.Is(err, dynamic.ErrNotFound):
		http.Error(w, "No entry at that index", http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"table": name,
		"index": index,
		"entry": entry,
	})
}

type scheduleRequest struct {
	Port        int    `json:"port"`
	Remove      bool   `json:"remove"`
	BaseTimeNS  uint64 `json:"baseTimeNs"`
	CycleTimeNS uint64 `json:"cycleTimeNs"`
	Entries     []struct {
		IntervalNS uint64 `json:"intervalNs"`
		GateMask   uint64 `json:"gateMask"`
	} `json:"entries"`
}

// handleSchedule serves POST /schedule, replacing or removing one
// port's gate program on the running chip.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.schedules == nil {
		http.Error(w, "Schedule updates not available", http.StatusNotImplemented)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var program *tas.GateProgram
	if !req.Remove {
		program = &tas.GateProgram{
			BaseTime:  req.BaseTimeNS,
			CycleTime: req.CycleTimeNS,
		}
		for _, e := range req.Entries {
			program.Entries = append(program.Entries, tas.GateEntry{
				Interval: e.IntervalNS,
				GateMask: e.GateMask,
			})
		}
	}

	if err := s.schedules.SetSchedule(req.Port, program); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": "ok"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		id:     atomic.AddInt64(&s.nextID, 1),
		conn:   conn,
		server: s,
		sendCh: make(chan map[string]any, 16),
		done:   make(chan struct{}),
	}

	s.clientMu.Lock()
	s.clients[client.id] = client
	s.clientMu.Unlock()
	logger.Debug("websocket client %d connected", client.id)

	go client.writePump()

	// Immediate snapshot so the client does not wait a full push
	// interval for its first state.
	client.send(s.snapshot())

	client.readPump()
}

func (s *Server) removeClient(client *wsClient) {
	s.clientMu.Lock()
	delete(s.clients, client.id)
	s.clientMu.Unlock()
	logger.Debug("websocket client %d disconnected", client.id)
}

// pushLoop periodically pushes the snapshot to all connected clients.
func (s *Server) pushLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for s.running.Load() {
		<-ticker.C

		s.clientMu.RLock()
		if len(s.clients) == 0 {
			s.clientMu.RUnlock()
			continue
		}
		snap := s.snapshot()
		for _, client := range s.clients {
			client.send(snap)
		}
		s.clientMu.RUnlock()
	}
}

type wsClient struct {
	id     int64
	conn   *websocket.Conn
	server *Server
	sendCh chan map[string]any
	done   chan struct{}
	mu     sync.Mutex
}

func (c *wsClient) send(snap map[string]any) {
	select {
	case c.sendCh <- snap:
	case <-c.done:
	default:
		// Slow consumer; drop the update rather than block the push
		// loop.
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}
	c.conn.Close()
}

func (c *wsClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Inbound messages are ignored; the stream is one-way.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read: %v", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case snap := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
