// Package server exposes the engine over HTTP and runs the periodic
// maintenance jobs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/kindredloop/kindred/internal/agent/router"
	"github.com/kindredloop/kindred/internal/engine"
	"github.com/kindredloop/kindred/internal/logging"
	"github.com/kindredloop/kindred/internal/types"
)

// cooldownMaxAge is how long a cooldown entry may idle before the sweeper
// drops it.
const cooldownMaxAge = time.Hour

// Server wires the engine behind a chi router.
type Server struct {
	addr   string
	engine *engine.Engine
	router *router.Router
	cron   *cron.Cron
	log    logging.Logger
}

// New creates a server for the given engine.
func New(addr string, eng *engine.Engine, rt *router.Router) *Server {
	return &Server{
		addr:   addr,
		engine: eng,
		router: rt,
		cron:   cron.New(),
		log:    logging.For("server"),
	}
}

// Run starts the maintenance jobs and serves HTTP until the context is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc("@every 10m", func() {
		if swept := s.router.SweepCooldowns(cooldownMaxAge); swept > 0 {
			s.log.Infof("swept %d stale cooldown entries", swept)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule cooldown sweep: %w", err)
	}
	if _, err := s.cron.AddFunc("@every 1h", func() {
		s.log.Infof("rolling summaries cached for %d chats", s.engine.CachedSummaries())
	}); err != nil {
		return fmt.Errorf("failed to schedule cache stats: %w", err)
	}
	s.cron.Start()
	defer s.cron.Stop()

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(2 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/process", s.handleProcess)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// processRequest is the inbound message envelope.
type processRequest struct {
	Content  string   `json:"content"`
	UserID   string   `json:"user_id"`
	ChatID   string   `json:"chat_id"`
	Mentions []string `json:"mentions,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Content == "" || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content and user_id are required"})
		return
	}
	if req.ChatID == "" {
		req.ChatID = req.UserID
	}

	result, err := s.engine.Process(r.Context(), types.Message{
		Content:   req.Content,
		UserID:    req.UserID,
		ChatID:    req.ChatID,
		Role:      "user",
		Mentions:  req.Mentions,
		Timestamp: time.Now(),
	})
	if err != nil {
		s.log.Errorf("process failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
