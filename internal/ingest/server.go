// Package ingest hosts the inbound webhook server. It validates media-server
// payloads at the boundary, acknowledges them immediately, and hands
// normalized events to the dispatcher asynchronously.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"followarr/internal/episode"
	"followarr/internal/logging"
)

// maxPayloadBytes bounds webhook request bodies.
const maxPayloadBytes = 1 << 20

// drainTimeout bounds how long Stop waits for queued events to finish
// dispatching before abandoning them.
const drainTimeout = 30 * time.Second

// Stats counts ingress traffic since process start.
type Stats struct {
	Received int64 `json:"received"`
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
	Ignored  int64 `json:"ignored"`
	Dropped  int64 `json:"dropped"`
}

// StatusFunc supplies the process-wide status document served at GET /status.
type StatusFunc func(ctx context.Context) (any, error)

// Server is the webhook ingress. Accepted events are queued on a buffered
// channel and consumed by a single worker, so the upstream sender is
// acknowledged before any catalog lookup or delivery fan-out begins.
type Server struct {
	bind    string
	handler episode.Handler
	logger  *slog.Logger
	status  StatusFunc

	events     chan episode.Event
	listener   net.Listener
	server     *http.Server
	wg         sync.WaitGroup
	workCancel context.CancelFunc

	mu     sync.Mutex
	closed bool

	received atomic.Int64
	accepted atomic.Int64
	rejected atomic.Int64
	ignored  atomic.Int64
	dropped  atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithStatusFunc installs the handler behind GET /status.
func WithStatusFunc(fn StatusFunc) Option {
	return func(s *Server) { s.status = fn }
}

// NewServer creates an ingress server bound to the given address. handler
// receives each accepted event on the worker goroutine.
func NewServer(bind string, queueSize int, handler episode.Handler, logger *slog.Logger, opts ...Option) (*Server, error) {
	if bind == "" {
		return nil, errors.New("bind address required")
	}
	if handler == nil {
		return nil, errors.New("event handler required")
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &Server{
		bind:    bind,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "ingest"),
		events:  make(chan episode.Event, queueSize),
	}
	for _, opt := range opts {
		opt(srv)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("GET /status", srv.handleStatus)
	mux.HandleFunc("POST /webhook/{source}", srv.handleWebhook)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Start binds the listener and launches the serve and worker goroutines.
// The server shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	s.listener = listener

	// The worker runs detached from the start context so that events still
	// queued at shutdown dispatch with a live context. Stop cancels it once
	// the drain completes or times out.
	workCtx, workCancel := context.WithCancel(context.WithoutCancel(ctx))
	s.workCancel = workCancel
	s.wg.Add(1)
	go s.consume(workCtx)

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webhook server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("webhook server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down and waits for the worker to drain the queue,
// up to drainTimeout. Events still queued after the timeout are abandoned.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		s.logger.Warn("shutdown drain timed out, abandoning queued events")
	}
	if s.workCancel != nil {
		s.workCancel()
		s.workCancel = nil
	}
	<-done
}

// Addr returns the bound listener address, useful when binding port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stats returns a snapshot of the ingress counters.
func (s *Server) Stats() Stats {
	return Stats{
		Received: s.received.Load(),
		Accepted: s.accepted.Load(),
		Rejected: s.rejected.Load(),
		Ignored:  s.ignored.Load(),
		Dropped:  s.dropped.Load(),
	}
}

func (s *Server) consume(ctx context.Context) {
	defer s.wg.Done()
	for event := range s.events {
		s.handler(ctx, event)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.writeJSON(w, http.StatusOK, s.Stats())
		return
	}
	payload, err := s.status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if source := r.PathValue("source"); source != "tautulli" {
		s.writeError(w, http.StatusNotFound, "unknown webhook source: "+source)
		return
	}
	s.received.Add(1)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		s.rejected.Add(1)
		s.writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	payload, err := decodePayload(body)
	if err != nil {
		s.rejected.Add(1)
		s.logger.Warn("malformed webhook payload", logging.Error(err))
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !payload.isNewEpisode() {
		s.ignored.Add(1)
		s.logger.Debug("ignoring webhook event",
			logging.String("event", payload.Event),
			logging.String("media_type", payload.MediaType))
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if err := payload.validate(); err != nil {
		s.rejected.Add(1)
		s.logger.Warn("rejecting webhook payload", logging.Error(err))
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event := payload.toEvent()
	s.logger.Info("accepted new episode event",
		logging.String(logging.FieldEventID, event.ID),
		logging.String(logging.FieldShowName, event.ShowName),
		logging.String("episode", event.Code()))

	// Acknowledge before any downstream work. If the queue is full, or the
	// server is already stopping, the event is dropped rather than making
	// the upstream sender wait.
	s.mu.Lock()
	if s.closed {
		s.dropped.Add(1)
		s.logger.Warn("server stopping, dropping event",
			logging.String(logging.FieldEventID, event.ID),
			logging.String(logging.FieldShowName, event.ShowName))
	} else {
		select {
		case s.events <- event:
			s.accepted.Add(1)
		default:
			s.dropped.Add(1)
			s.logger.Error("event queue full, dropping event",
				logging.String(logging.FieldEventID, event.ID),
				logging.String(logging.FieldShowName, event.ShowName))
		}
	}
	s.mu.Unlock()
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"event_id": event.ID,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
