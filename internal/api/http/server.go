// Package httpapi serves the local control API over HTTP.
package httpapi

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portside/portside/internal/api"
	"github.com/portside/portside/internal/metrics"
	"github.com/portside/portside/internal/proctree"
	"github.com/portside/portside/internal/sanitize"
	"github.com/portside/portside/internal/supervise"
)

const (
	defaultAddr            = "127.0.0.1:7663"
	defaultReadHeader      = 5 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Config controls construction of the API server.
type Config struct {
	Addr              string
	Controller        api.Controller
	Listener          net.Listener
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server wraps an http.Server exposing supervision controls. It binds to
// loopback by default; the API carries no authentication and must not be
// exposed beyond the local machine.
type Server struct {
	ctrl            api.Controller
	srv             *http.Server
	listener        net.Listener
	shutdownTimeout time.Duration
}

// NewServer constructs a Server with sane defaults.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	addr := normalizeAddr(cfg.Addr)
	mux := http.NewServeMux()
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	if srv.ReadHeaderTimeout == 0 {
		srv.ReadHeaderTimeout = defaultReadHeader
	}
	server := &Server{
		ctrl:            cfg.Controller,
		srv:             srv,
		listener:        cfg.Listener,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if server.shutdownTimeout == 0 {
		server.shutdownTimeout = defaultShutdownTimeout
	}
	server.registerRoutes(mux)
	return server, nil
}

// Run starts serving until the provided context is cancelled.
func (s *Server) Run(ctx stdcontext.Context) error {
	if ctx == nil {
		ctx = stdcontext.Background()
	}
	errCh := make(chan error, 1)
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), s.shutdownTimeout)
			defer cancel()
			_ = s.srv.Shutdown(shutdownCtx)
		case <-stop:
		}
	}()

	go func() {
		var err error
		if s.listener != nil {
			err = s.srv.Serve(s.listener)
		} else {
			err = s.srv.ListenAndServe()
		}
		errCh <- err
	}()

	err := <-errCh
	close(stop)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/spawn", s.handleSpawn)
	mux.HandleFunc("/api/v1/kill/", s.handleKill)
	mux.HandleFunc("/api/v1/port/", s.handlePort)
	mux.HandleFunc("/api/v1/projects", s.handleProjects)
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
}

func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req api.SpawnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{
			Code:    "bad_request",
			Message: fmt.Sprintf("decode request: %v", err),
		})
		return
	}
	result, err := s.ctrl.Spawn(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	pid, ok := s.pidFromPath(w, r.URL.Path, "/api/v1/kill/")
	if !ok {
		return
	}
	if err := s.ctrl.KillTree(r.Context(), pid); err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"pid": pid})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"pid": pid, "killed": true})
}

func (s *Server) handlePort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	pid, ok := s.pidFromPath(w, r.URL.Path, "/api/v1/port/")
	if !ok {
		return
	}
	result, err := s.ctrl.FindPort(r.Context(), pid)
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{"pid": pid})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	projects, err := s.ctrl.Projects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	result, err := s.ctrl.Status(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleEvents streams the event feed as newline-delimited JSON until the
// client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    "internal_error",
			Message: "streaming unsupported",
		})
		return
	}

	events, cancel := s.ctrl.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := enc.Encode(eventRecord(evt)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// eventRecord flattens a supervise.Event for JSON transport.
func eventRecord(evt supervise.Event) map[string]any {
	record := map[string]any{
		"ts":    evt.Timestamp,
		"token": evt.Token,
		"pid":   evt.PID,
		"type":  string(evt.Type),
	}
	if evt.Message != "" {
		record["message"] = evt.Message
	}
	if evt.Err != nil {
		record["error"] = evt.Err.Error()
	}
	if evt.Type == supervise.EventShellFallback {
		record["preferred"] = evt.Preferred
		record["shell"] = evt.Shell
	}
	return record
}

func (s *Server) pidFromPath(w http.ResponseWriter, path, prefix string) (int, bool) {
	raw := strings.TrimSpace(strings.TrimPrefix(path, prefix))
	pid, err := strconv.Atoi(raw)
	if err != nil || strings.Contains(raw, "/") {
		s.writeJSON(w, http.StatusBadRequest, errorBody{
			Code:    "bad_request",
			Message: fmt.Sprintf("invalid pid %q", raw),
		})
		return 0, false
	}
	if err := sanitize.PID(pid); err != nil {
		s.writeError(w, err)
		return 0, false
	}
	return pid, true
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, method string) {
	w.Header().Set("Allow", method)
	s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{
		Code:    "method_not_allowed",
		Message: fmt.Sprintf("method %s not allowed", method),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorWithDetails(w, err, nil)
}

func (s *Server) writeErrorWithDetails(w http.ResponseWriter, err error, extra map[string]any) {
	status, code := classifyError(err)
	details := map[string]any{
		"timestamp": time.Now().UTC(),
	}
	for k, v := range extra {
		details[k] = v
	}
	body := errorBody{
		Code:    code,
		Message: err.Error(),
		Details: details,
	}
	s.writeJSON(w, status, body)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, stdcontext.Canceled):
		return 499, "context_canceled"
	case errors.Is(err, sanitize.ErrRejected):
		return http.StatusBadRequest, "rejected"
	case errors.Is(err, proctree.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, supervise.ErrSpawnFailed):
		return http.StatusBadGateway, "spawn_failed"
	case errors.Is(err, proctree.ErrKillFailed):
		return http.StatusInternalServerError, "kill_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func normalizeAddr(addr string) string {
	if strings.TrimSpace(addr) == "" {
		return defaultAddr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// If parsing failed, trust caller.
		return addr
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
