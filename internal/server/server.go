// Package server runs the TCP front end: a listener, one goroutine pair
// per connection for framing, and a single event loop that owns every
// piece of game state. Requests from all connections and the periodic
// tick are serialized through that loop, so the services below it need
// no locking.
package server

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MrEll3n/ups-server/internal/model"
	"github.com/MrEll3n/ups-server/internal/services/liveness"
	"github.com/MrEll3n/ups-server/internal/services/registry"
	"github.com/MrEll3n/ups-server/internal/services/session"
)

// Config holds the TCP front end settings
type Config struct {
	// Addr is the listen address, host:port
	Addr string
	// TickInterval drives heartbeats and grace-window sweeps
	TickInterval time.Duration
	// HeartbeatEnabled turns the ping/pong probing on. Disabling it is
	// meant for manual telnet sessions; grace sweeps still run.
	HeartbeatEnabled bool
}

// DefaultConfig returns the standard server settings
func DefaultConfig() Config {
	return Config{
		Addr:             ":10000",
		TickInterval:     500 * time.Millisecond,
		HeartbeatEnabled: true,
	}
}

// Server accepts connections and runs the event loop
type Server struct {
	cfg        Config
	logger     *slog.Logger
	dispatcher *Dispatcher

	listener  net.Listener
	events    chan event
	conns     map[model.ConnID]*connection
	connCount atomic.Int64
}

// New wires a Server over the given services. The server itself is the
// dispatcher's line sender.
func New(cfg Config, reg *registry.Controller, resolver *session.Resolver, live *liveness.Service, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		events: make(chan event, 256),
		conns:  make(map[model.ConnID]*connection),
	}
	s.dispatcher = NewDispatcher(reg, resolver, live, s, logger, cfg.HeartbeatEnabled)
	return s
}

// Listen binds the TCP listener without starting the loop. Useful when
// the caller needs the bound address before serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound listen address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run serves until the context is canceled. It owns the event loop;
// every request handler and tick runs on this goroutine.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	go s.acceptLoop()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case ev := <-s.events:
			s.handle(ctx, ev)
		case <-ticker.C:
			s.dispatcher.Tick(ctx)
		}
	}
}

func (s *Server) acceptLoop() {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			// Listener closed on shutdown
			return
		}
		c := newConnection(model.ConnID(uuid.NewString()), nc, s.events, s.logger)
		c.start()
	}
}

func (s *Server) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case evConnected:
		s.conns[ev.conn.id] = ev.conn
		s.connCount.Store(int64(len(s.conns)))
		s.logger.Info("client connected", slog.String("conn_id", string(ev.conn.id)))
		s.dispatcher.Connected(ev.conn.id)
	case evLine:
		s.dispatcher.HandleLine(ctx, ev.conn.id, ev.line)
	case evClosed:
		if _, ok := s.conns[ev.conn.id]; !ok {
			return
		}
		delete(s.conns, ev.conn.id)
		s.connCount.Store(int64(len(s.conns)))
		s.logger.Info("client disconnected", slog.String("conn_id", string(ev.conn.id)))
		s.dispatcher.Disconnected(ctx, ev.conn.id)
	}
}

// shutdown closes the listener and every live connection, then drains
// the queue so no connection goroutine stays blocked on it
func (s *Server) shutdown() {
	_ = s.listener.Close()
	for _, c := range s.conns {
		c.close()
	}
	for len(s.conns) > 0 {
		ev := <-s.events
		if ev.kind == evClosed {
			delete(s.conns, ev.conn.id)
		}
	}
	s.connCount.Store(0)
	s.logger.Info("server stopped")
}

// Send queues a line to the given connection. Unknown ids are dropped;
// the target may have disconnected in the same tick.
func (s *Server) Send(conn model.ConnID, line string) {
	if c, ok := s.conns[conn]; ok {
		c.send(line)
	}
}

// CloseConn tears a connection down. The close surfaces as a disconnect
// event on the loop.
func (s *Server) CloseConn(conn model.ConnID) {
	if c, ok := s.conns[conn]; ok {
		c.close()
	}
}

// Connections reports the live connection count. Safe from any goroutine.
func (s *Server) Connections() int {
	return int(s.connCount.Load())
}
