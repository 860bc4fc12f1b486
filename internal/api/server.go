// Package api exposes the HTTP interface for the monitoring service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sitewatch/internal/metrics"
	"sitewatch/internal/monitor"
	"sitewatch/internal/sched"
)

// Server wires HTTP handlers to the scheduler and target store.
type Server struct {
	router    chi.Router
	targets   monitor.TargetStore
	scheduler *sched.Scheduler
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(targets monitor.TargetStore, scheduler *sched.Scheduler, logger *zap.Logger) *Server {
	s := &Server{
		targets:   targets,
		scheduler: scheduler,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/targets/{target_id}", func(r chi.Router) {
			r.Get("/", s.getTarget)
			r.Post("/check", s.triggerCheck)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.targets.ListActive(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "target store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getTarget(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "target_id")
	target, err := s.targets.Get(r.Context(), targetID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "target not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"target": target})
}

// triggerCheck submits an on-demand check. A busy target answers 409 so the
// caller can retry after the in-flight check finishes.
func (s *Server) triggerCheck(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "target_id")
	item, err := s.scheduler.TriggerNow(r.Context(), targetID)
	if err != nil {
		switch {
		case errors.Is(err, monitor.ErrTargetBusy):
			s.writeError(w, http.StatusConflict, "check already in flight")
		case errors.Is(err, monitor.ErrTargetInactive):
			s.writeError(w, http.StatusUnprocessableEntity, "target is not active")
		default:
			var subErr *monitor.SubmissionError
			if errors.As(err, &subErr) {
				s.writeError(w, http.StatusServiceUnavailable, "check queue full")
				return
			}
			s.writeError(w, http.StatusNotFound, "target not found")
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"target_id": item.TargetID,
		"forced":    item.Forced,
		"submitted": item.Submitted,
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
