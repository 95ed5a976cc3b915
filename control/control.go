// Package control is the thin control plane over the monitor's
// snooze/skip state.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"railwatch.dev/railwatch/monitor"
)

type Server struct {
	Addr string

	// Injectable clock, like the monitor's.
	Now func() time.Time

	state  *monitor.State
	logger *slog.Logger
	server *http.Server
}

func New(addr string, state *monitor.State, logger *slog.Logger) *Server {
	return &Server{
		Addr:   addr,
		Now:    time.Now,
		state:  state,
		logger: logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/snooze", s.handleSnooze)
	mux.HandleFunc("/skip-next-day", s.handleSkipNextDay)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serves until the context is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("control server shutdown", "error", err)
		}
	}()

	s.logger.Info("control server listening", "addr", s.Addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

type snoozeResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Cutoff  string `json:"cutoff"`
}

type skipResponse struct {
	OK          bool   `json:"ok"`
	Message     string `json:"message"`
	SkippedDate string `json:"skipped_date"`
}

func (s *Server) handleSnooze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cutoff := s.state.Snooze(s.Now())
	s.logger.Info("snoozed", "until", cutoff.Format(time.RFC3339))

	writeJSON(w, snoozeResponse{
		OK:      true,
		Message: fmt.Sprintf("snoozing until %s", cutoff.Format(time.RFC3339)),
		Cutoff:  cutoff.Format(time.RFC3339),
	})
}

func (s *Server) handleSkipNextDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	skipped := s.state.SkipNextDay(s.Now())
	date := skipped.Format("2006-01-02")
	s.logger.Info("skipping day", "date", date)

	writeJSON(w, skipResponse{
		OK:          true,
		Message:     fmt.Sprintf("skipping %s", date),
		SkippedDate: date,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
