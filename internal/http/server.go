// Package http exposes the chat engine over a small JSON API.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/repochat/repochat/internal/db"
	"github.com/repochat/repochat/internal/engine"
	"github.com/repochat/repochat/internal/telemetry"
)

// TurnService is the slice of the engine the transport depends on.
type TurnService interface {
	SubmitTurn(ctx context.Context, req engine.TurnRequest) (*engine.TurnResponse, error)
	ForcedDeleteFile(ctx context.Context, repo, path string) (*engine.TurnResponse, error)
}

// AuditStore serves the read side of the audit trail. May be nil when
// auditing is disabled.
type AuditStore interface {
	ListTurns(ctx context.Context, limit int) ([]*db.Turn, error)
	ListOperationsByTurn(ctx context.Context, turnID string) ([]*db.Operation, error)
}

type Server struct {
	turns  TurnService
	audit  AuditStore
	srv    *http.Server
	logger *slog.Logger
}

const maxRequestBodyBytes = 1 << 20

func NewServer(addr string, turns TurnService, audit AuditStore, logger *slog.Logger) *Server {
	s := &Server{
		turns:  turns,
		audit:  audit,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /api/v1/chat", s.handleChat)
	mux.HandleFunc("POST /api/v1/commands/delete-file", s.handleDeleteFile)
	mux.HandleFunc("GET /api/v1/audit/turns", s.handleListTurns)
	mux.HandleFunc("GET /api/v1/audit/turns/{turnID}/operations", s.handleListOperations)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      withLogging(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("http server starting", "addr", s.srv.Addr)
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the server's handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, telemetry.RenderPrometheus())
}

// handleChat runs one chat turn. Domain failures (bad intents, missing
// repos, model outages) come back as normal 200 envelopes; only a malformed
// request body is a client error.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req engine.TurnRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	resp, err := s.turns.SubmitTurn(r.Context(), req)
	if err != nil {
		s.logger.Error("chat turn failed", "err", err)
		resp = &engine.TurnResponse{Response: "Sorry, something went wrong handling that. Please try again."}
	}
	writeJSON(w, http.StatusOK, resp)
}

type deleteFileBody struct {
	Repo string `json:"repo"`
	Path string `json:"path"`
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	var body deleteFileBody
	if err := decodeJSONBody(w, r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if body.Repo == "" || body.Path == "" {
		writeErr(w, http.StatusBadRequest, "repo and path are required")
		return
	}

	resp, err := s.turns.ForcedDeleteFile(r.Context(), body.Repo, body.Path)
	if err != nil {
		s.logger.Error("forced delete failed", "err", err)
		resp = &engine.TurnResponse{Response: "Sorry, something went wrong handling that. Please try again."}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeErr(w, http.StatusNotFound, "audit trail is not enabled")
		return
	}
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	turns, err := s.audit.ListTurns(r.Context(), limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if turns == nil {
		turns = []*db.Turn{}
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeErr(w, http.StatusNotFound, "audit trail is not enabled")
		return
	}
	ops, err := s.audit.ListOperationsByTurn(r.Context(), r.PathValue("turnID"))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ops == nil {
		ops = []*db.Operation{}
	}
	writeJSON(w, http.StatusOK, ops)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(sw, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
