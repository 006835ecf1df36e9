// Package api provides the HTTP and WebSocket surface of the agent.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"vinput/internal/input"
	"vinput/internal/journal"
	"vinput/internal/network"
	"vinput/internal/osutils"
	"vinput/internal/protocol"
)

// Agent is what the server injects through. *input.Simulator implements it.
type Agent interface {
	network.Injector
	Pointer() (input.PointerState, error)
	Supports(k input.Key) bool
}

// Options configures a Server
type Options struct {
	// Token, when set, must be presented as a bearer token or ?token=.
	// SetToken replaces it later.
	Token   string
	Backend string
	Version string

	// Journal is optional; /api/journal answers 404 without it
	Journal *journal.DB
}

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 1000
)

// Server provides HTTP API for remote injection
type Server struct {
	agent   Agent
	opts    Options
	hub     *Hub
	handler http.Handler

	tokenMu sync.RWMutex
	token   string
}

// NewServer creates a new API server
func NewServer(agent Agent, opts Options) *Server {
	s := &Server{agent: agent, opts: opts, token: opts.Token}
	s.hub = newHub(s)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/simulate", s.handleSimulate)
	mux.HandleFunc("/api/move_relative", s.handleMoveRelative)
	mux.HandleFunc("/api/pointer", s.handlePointer)
	mux.HandleFunc("/api/keys", s.handleKeys)
	mux.HandleFunc("/api/journal", s.handleJournal)
	mux.HandleFunc("/api/wake", s.handleWake)
	mux.HandleFunc("/ws", s.hub.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.handler = s.authMiddleware(s.recoverMiddleware(mux))
	return s
}

// Handler returns the routed handler with auth and panic recovery.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully and closes every WebSocket connection.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	log.Printf("--- Diagnostic: Network Interfaces ---")
	if ips, err := network.GetLocalIPs(); err == nil {
		for _, ip := range ips {
			log.Printf("  Found Local IPv4: %s", ip)
		}
	}
	log.Printf("--------------------------------------")

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("ERROR: API server failed to listen on %s: %v", addr, err)
		return err
	}
	log.Printf("Starting API server on %s", ln.Addr())

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		s.hub.closeAll()
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("ERROR: API server stopped: %v", err)
		return err
	}
	return nil
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOV: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("API: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		token := s.Token()

		// Skip auth for health check
		if r.URL.Path == "/health" || token == "" {
			next.ServeHTTP(w, r)
			return
		}

		if subtle.ConstantTimeCompare([]byte(requestToken(r)), []byte(token)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestToken reads the bearer token, falling back to ?token= for
// WebSocket clients that cannot set headers.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// SetToken replaces the API token. An empty token disables auth.
func (s *Server) SetToken(token string) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	s.token = token
}

// Token returns the current API token
func (s *Server) Token() string {
	s.tokenMu.RLock()
	defer s.tokenMu.RUnlock()
	return s.token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func failure(err error) protocol.ResultPayload {
	return protocol.ResultPayload{OK: false, Error: err.Error()}
}

// handleSimulate handles POST /api/simulate with an EventPayload body
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var p protocol.EventPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, failure(protocol.ErrMalformed))
		return
	}
	ev, err := p.Event()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failure(err))
		return
	}

	if err := s.agent.Simulate(ev); err != nil {
		log.Printf("API: %v: %v", err, errors.Unwrap(err))
		writeJSON(w, http.StatusUnprocessableEntity, failure(err))
		return
	}
	writeJSON(w, http.StatusOK, protocol.ResultPayload{OK: true})
}

// handleMoveRelative handles POST /api/move_relative
func (s *Server) handleMoveRelative(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var p protocol.MoveRelativePayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, failure(protocol.ErrMalformed))
		return
	}
	status, res := s.moveRelative(p)
	writeJSON(w, status, res)
}

// moveRelative runs p and builds the result shared by HTTP and WebSocket.
func (s *Server) moveRelative(p protocol.MoveRelativePayload) (int, protocol.ResultPayload) {
	start, err := s.agent.MoveRelative(p.DX, p.DY, p.WantStart)
	if err != nil {
		log.Printf("API: %v", err)
		return http.StatusUnprocessableEntity, failure(err)
	}
	res := protocol.ResultPayload{OK: true}
	if p.WantStart {
		res.Start = &protocol.PointPayload{X: start.X, Y: start.Y}
	}
	return http.StatusOK, res
}

// handlePointer handles GET /api/pointer
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st, err := s.agent.Pointer()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, failure(err))
		return
	}
	writeJSON(w, http.StatusOK, protocol.NewPointerPayload(st))
}

// KeyInfo is one entry of GET /api/keys
type KeyInfo struct {
	Name      string `json:"name"`
	Supported bool   `json:"supported"`
	Modifier  bool   `json:"modifier"`
}

// handleKeys handles GET /api/keys
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	keys := input.AllKeys()
	out := make([]KeyInfo, len(keys))
	for i, k := range keys {
		out[i] = KeyInfo{Name: k.String(), Supported: s.agent.Supports(k), Modifier: k.IsModifier()}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleJournal handles GET /api/journal?limit=N
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.opts.Journal == nil {
		http.Error(w, "Journal disabled", http.StatusNotFound)
		return
	}

	limit := defaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = min(n, maxJournalLimit)
	}

	entries, err := s.opts.Journal.Recent(limit)
	if err != nil {
		log.Printf("API: Journal error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleWake handles POST /api/wake
func (s *Server) handleWake(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := osutils.WakeUp(s.agent); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, failure(err))
		return
	}
	writeJSON(w, http.StatusOK, protocol.ResultPayload{OK: true})
}

// handleHealth handles GET /health (for monitoring and discovery)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, network.Health{
		Status:  "ok",
		Service: network.ServiceName,
		Backend: s.opts.Backend,
		Version: s.opts.Version,
	})
}
