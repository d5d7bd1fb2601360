// Package server exposes the sync coordinator over HTTP: command submission
// from the CLI, command polling by the editor-side plugin, and script batch
// ingestion.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rbxsync/rbxsyncd/internal/config"
	"github.com/rbxsync/rbxsyncd/internal/ingest"
	"github.com/rbxsync/rbxsyncd/internal/mailbox"
)

// maxUpdateBody caps /sync/update payloads; script batches can be large.
const maxUpdateBody = 32 << 20 // 32 MB

// maxCommandBody caps /command payloads, which hold a single token.
const maxCommandBody = 1 << 10 // 1 KB

// Server is the composition root of the sync bridge. It owns the command
// mailbox; all submission and consumption goes through its endpoints.
type Server struct {
	cfg      *config.Config
	mailbox  *mailbox.Mailbox
	ingestor *ingest.Ingestor
	logger   *slog.Logger
}

// updateRequest is the typed ingest payload.
type updateRequest struct {
	Files []ingest.FileEntry `json:"files"`
}

// New creates a new sync server
func New(cfg *config.Config, ingestor *ingest.Ingestor, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		mailbox:  mailbox.New(),
		ingestor: ingestor,
		logger:   logger,
	}
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Serve.ListenAddr,
		Handler:           s.routes(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("sync server starting", "addr", s.cfg.Serve.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down sync server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/poll", s.handlePoll)
	mux.HandleFunc("/command", s.handleCommand)
	mux.HandleFunc("/sync/update", s.handleSyncUpdate)
	return mux
}

// handleRoot is the liveness banner.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "rbxsyncd running"})
}

// handlePoll hands the pending command to the editor-side plugin, clearing
// the slot in the same operation.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var response struct {
		Command *mailbox.Command `json:"command"`
	}
	if cmd, ok := s.mailbox.Take(); ok {
		s.logger.Info("command consumed", "command", cmd)
		response.Command = &cmd
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleCommand accepts a sync command token from the CLI or editor tooling.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.logger.Warn("rejecting non-POST command request", "method", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cmd mailbox.Command
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBody)).Decode(&cmd); err != nil {
		s.logger.Warn("rejecting malformed command payload", "error", err)
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid command payload: %v", err)})
		return
	}

	s.logger.Info("command submitted", "command", cmd)
	s.mailbox.Submit(cmd)

	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleSyncUpdate receives a file batch from the editor, writes it to disk,
// and regenerates the manifest before responding. Per-entry failures are
// logged by the ingestor, not reported to the caller.
func (s *Server) handleSyncUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.logger.Warn("rejecting non-POST sync update", "method", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBody)).Decode(&req); err != nil {
		s.logger.Warn("rejecting malformed sync update payload", "error", err)
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid sync payload: %v", err)})
		return
	}
	if req.Files == nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required field: files"})
		return
	}

	s.logger.Info("received sync update", "files", len(req.Files))
	s.ingestor.Apply(req.Files)

	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
