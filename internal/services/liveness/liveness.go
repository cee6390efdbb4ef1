// Package liveness watches connection health. It owns the ping/pong
// heartbeat over tracked connections and the reconnection grace window
// for players whose link dropped mid-contest.
package liveness

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEll3n/ups-server/internal/dependencies/clock"
	"github.com/MrEll3n/ups-server/internal/dependencies/random"
	"github.com/MrEll3n/ups-server/internal/model"
	"github.com/MrEll3n/ups-server/internal/storage"
)

// Config holds the liveness timing knobs
type Config struct {
	// PingInterval is how long after the last pong the next probe goes out
	PingInterval time.Duration
	// PongTimeout is how long an unanswered probe may stand before the
	// connection is declared dead
	PongTimeout time.Duration
	// GraceWindow is how long a dropped player may reconnect under the
	// same name before forfeiting
	GraceWindow time.Duration
}

// DefaultConfig returns the standard liveness timings
func DefaultConfig() Config {
	return Config{
		PingInterval: 2 * time.Second,
		PongTimeout:  5 * time.Second,
		GraceWindow:  15 * time.Second,
	}
}

const nonceLength = 6

type heartbeat struct {
	lastPong time.Time
	lastPing time.Time
	nonce    string
	awaiting bool
}

// Service tracks heartbeats per connection and grace records per player.
// All methods are called from the server's event loop; no locking.
type Service struct {
	cfg     Config
	clock   clock.Clock
	random  random.Random
	storage storage.Storage
	logger  *slog.Logger

	beats map[model.ConnID]*heartbeat
}

func NewService(cfg Config, storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		clock:   clock,
		random:  random,
		storage: storage,
		logger:  logger,
		beats:   make(map[model.ConnID]*heartbeat),
	}
}

// Track starts heartbeat monitoring for a connection. The connection
// counts as fresh: the first probe goes out one interval from now.
func (s *Service) Track(conn model.ConnID) {
	s.beats[conn] = &heartbeat{lastPong: s.clock.Now()}
}

// Untrack stops monitoring a connection
func (s *Service) Untrack(conn model.ConnID) {
	delete(s.beats, conn)
}

// Pong records a heartbeat answer. Any nonce is accepted; the answer
// itself proves the link is alive.
func (s *Service) Pong(conn model.ConnID, nonce string) {
	hb, ok := s.beats[conn]
	if !ok {
		return
	}
	hb.awaiting = false
	hb.lastPong = s.clock.Now()
}

// Probe is one heartbeat ping due to go out
type Probe struct {
	Conn  model.ConnID
	Nonce string
}

// Tick advances the heartbeat state machine: connections quiet for a
// full interval get a probe, probes unanswered past the timeout mark
// their connection expired. Expired connections are untracked.
func (s *Service) Tick() (probes []Probe, expired []model.ConnID) {
	now := s.clock.Now()
	for conn, hb := range s.beats {
		if hb.awaiting {
			if now.Sub(hb.lastPing) >= s.cfg.PongTimeout {
				expired = append(expired, conn)
			}
			continue
		}
		if now.Sub(hb.lastPong) >= s.cfg.PingInterval {
			hb.nonce = s.random.Digits(nonceLength)
			hb.lastPing = now
			hb.awaiting = true
			probes = append(probes, Probe{Conn: conn, Nonce: hb.nonce})
		}
	}
	for _, conn := range expired {
		delete(s.beats, conn)
		s.logger.Warn("heartbeat expired", slog.String("conn_id", string(conn)))
	}
	return probes, expired
}

// RecordDisconnect opens a grace window for the player
func (s *Service) RecordDisconnect(ctx context.Context, id model.PlayerID, name string) error {
	rec := &model.DisconnectRecord{
		Player:         id,
		DisplayName:    name,
		DisconnectedAt: s.clock.Now(),
	}
	if err := s.storage.SaveDisconnect(ctx, rec); err != nil {
		return err
	}
	s.logger.Info("grace window opened",
		slog.Int("player_id", int(id)),
		slog.String("name", name))
	return nil
}

// ResumableByName finds an open grace record matching the display name,
// or ErrNotDisconnected
func (s *Service) ResumableByName(ctx context.Context, name string) (*model.DisconnectRecord, error) {
	recs, err := s.storage.ListDisconnects(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for _, rec := range recs {
		if rec.DisplayName == name && now.Sub(rec.DisconnectedAt) < s.cfg.GraceWindow {
			return rec, nil
		}
	}
	return nil, model.ErrNotDisconnected
}

// Resume closes the player's grace window after a successful reconnect
func (s *Service) Resume(ctx context.Context, id model.PlayerID) error {
	if err := s.storage.DeleteDisconnect(ctx, id); err != nil {
		return err
	}
	s.logger.Info("grace window closed", slog.Int("player_id", int(id)))
	return nil
}

// Sweep expires grace windows that ran out, returning the forfeited
// records
func (s *Service) Sweep(ctx context.Context) ([]*model.DisconnectRecord, error) {
	recs, err := s.storage.ListDisconnects(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var forfeited []*model.DisconnectRecord
	for _, rec := range recs {
		if now.Sub(rec.DisconnectedAt) < s.cfg.GraceWindow {
			continue
		}
		if err := s.storage.DeleteDisconnect(ctx, rec.Player); err != nil {
			return nil, err
		}
		forfeited = append(forfeited, rec)
		s.logger.Info("grace window expired",
			slog.Int("player_id", int(rec.Player)),
			slog.String("name", rec.DisplayName))
	}
	return forfeited, nil
}

// GraceSeconds is the grace window length in whole seconds, as announced
// to the surviving opponent
func (s *Service) GraceSeconds() int {
	return int(s.cfg.GraceWindow / time.Second)
}

// Tracked reports how many connections are under heartbeat monitoring
func (s *Service) Tracked() int {
	return len(s.beats)
}
