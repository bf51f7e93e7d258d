// Package server exposes the Sentinel engine over HTTP: analysis,
// operational-store queries, audit chain verification, health, metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/sentinel/internal/alert"
	"github.com/ppiankov/sentinel/internal/config"
	"github.com/ppiankov/sentinel/internal/ledger"
	"github.com/ppiankov/sentinel/internal/metrics"
	"github.com/ppiankov/sentinel/internal/model"
	"github.com/ppiankov/sentinel/internal/sentinel"
)

// Config holds HTTP server configuration.
type Config struct {
	Addr       string
	ConfigPath string
	StorePath  string
	ChainPath  string
}

// Server wires the engine, ledger backends, and alert sinks behind an
// HTTP API.
type Server struct {
	cfg    Config
	engine *sentinel.Engine
	store  *ledger.Store
	writer *ledger.Writer
	alerts *alert.Dispatcher
	m      *metrics.Metrics

	httpServer *http.Server
}

// New creates a Server with loaded configuration and opened ledger
// backends.
func New(cfg Config) (*Server, error) {
	conf, confHash, err := config.LoadWithHash(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var store *ledger.Store
	if cfg.StorePath != "" {
		store, err = ledger.OpenStore(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open event store: %w", err)
		}
	}

	var chain *ledger.Chain
	if cfg.ChainPath != "" {
		chain, err = ledger.OpenChain(cfg.ChainPath)
		if err != nil {
			if store != nil {
				store.Close()
			}
			return nil, fmt.Errorf("open audit chain: %w", err)
		}
	}

	alerts, err := alert.NewDispatcher(conf.Alerts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: alerts disabled: %v\n", err)
		alerts = nil
	}

	m := metrics.New()
	writer := ledger.NewWriter(store, chain, m)

	engine, err := sentinel.New(conf, confHash, writer, alerts, m)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		engine: engine,
		store:  store,
		writer: writer,
		alerts: alerts,
		m:      m,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, nil
}

// Handler builds the route table.
func (s *Server) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/audit/verify", s.handleVerify)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.m.Registry(), promhttp.HandlerOpts{}))
	return mux
}

// Serve starts the HTTP server. Blocks until shutdown.
func (s *Server) Serve() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server, drains in-flight ledger writes, and
// closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.engine.Wait()
	if s.alerts != nil {
		s.alerts.Wait()
		s.alerts.Close()
	}
	if cerr := s.writer.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// ReloadConfig re-reads the config file and swaps the engine's rule set.
// Called by the hot-reloader on file change.
func (s *Server) ReloadConfig() error {
	conf, confHash, err := config.LoadWithHash(s.cfg.ConfigPath)
	if err != nil {
		return err
	}
	return s.engine.Reload(conf, confHash)
}

type analyzeRequest struct {
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	Input     string         `json:"input"`
	Rationale string         `json:"rationale"`
	Metadata  map[string]any `json:"metadata"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	event, err := s.engine.Analyze(r.Context(), sentinel.Request{
		ActorID:    req.ActorID,
		ActionType: req.Action,
		RawInput:   req.Input,
		Rationale:  req.Rationale,
		Metadata:   model.MetadataFromMap(req.Metadata),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "event store not configured")
		return
	}

	q := ledger.Query{ActorID: r.URL.Query().Get("actor")}

	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		q.Since = t
	}
	if v := r.URL.Query().Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid until timestamp")
			return
		}
		q.Until = t
	}
	if v := r.URL.Query().Get("min_level"); v != "" {
		q.MinLevel = model.ParseLevel(v)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		q.Limit = n
	}

	events, err := s.store.Events(q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []model.SecurityEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ChainPath == "" {
		writeError(w, http.StatusServiceUnavailable, "audit chain not configured")
		return
	}
	writeJSON(w, http.StatusOK, ledger.Verify(s.cfg.ChainPath))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
