// Package admin serves the operational HTTP endpoints next to the game
// port: a health probe and a counters snapshot.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// StatsProvider supplies the counters reported by /stats
type StatsProvider interface {
	Stats(ctx context.Context) (players int, lobbies int, err error)
	Connections() int
}

// Server is the admin HTTP front end
type Server struct {
	addr   string
	stats  StatsProvider
	logger *slog.Logger
	http   *http.Server
}

func NewServer(addr string, stats StatsProvider, logger *slog.Logger) *Server {
	s := &Server{
		addr:   addr,
		stats:  stats,
		logger: logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the context is canceled
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin listening", slog.String("addr", s.addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	players, lobbies, err := s.stats.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats lookup failed", slog.String("error", err.Error()))
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{
		"players":     players,
		"lobbies":     lobbies,
		"connections": s.stats.Connections(),
	})
}
