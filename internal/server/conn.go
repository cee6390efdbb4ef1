package server

import (
	"bufio"
	"log/slog"
	"net"
	"sync"

	"github.com/MrEll3n/ups-server/internal/model"
)

// maxLineBytes bounds one protocol line; anything longer is a violation
const maxLineBytes = 1024

// outboundBuffer is the per-connection send queue depth. A client that
// cannot drain it is dropped rather than allowed to stall the loop.
const outboundBuffer = 64

type eventKind int

const (
	evConnected eventKind = iota
	evLine
	evClosed
)

// event is one occurrence posted from a connection goroutine to the
// server's single event loop
type event struct {
	kind eventKind
	conn *connection
	line string
}

// connection wraps one accepted TCP client. A reader goroutine feeds
// parsed lines into the server loop; a writer goroutine drains the
// outbound queue. All protocol decisions happen in the loop, never here.
type connection struct {
	id     model.ConnID
	nc     net.Conn
	events chan<- event
	out    chan string
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newConnection(id model.ConnID, nc net.Conn, events chan<- event, logger *slog.Logger) *connection {
	return &connection{
		id:     id,
		nc:     nc,
		events: events,
		out:    make(chan string, outboundBuffer),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("conn_id", string(id)), slog.String("remote", nc.RemoteAddr().String())),
	}
}

// start launches the reader and writer goroutines and announces the
// connection to the loop
func (c *connection) start() {
	c.events <- event{kind: evConnected, conn: c}
	go c.readLoop()
	go c.writeLoop()
}

func (c *connection) readLoop() {
	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, maxLineBytes), maxLineBytes)
	for scanner.Scan() {
		select {
		case c.events <- event{kind: evLine, conn: c, line: scanner.Text()}:
		case <-c.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Debug("read ended", slog.String("error", err.Error()))
	}
	c.close()
	c.events <- event{kind: evClosed, conn: c}
}

func (c *connection) writeLoop() {
	for {
		select {
		case line := <-c.out:
			if _, err := c.nc.Write([]byte(line + "\n")); err != nil {
				c.logger.Debug("write failed", slog.String("error", err.Error()))
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// send queues one line for delivery. A full queue means the client has
// stopped reading; the connection is dropped.
func (c *connection) send(line string) {
	select {
	case c.out <- line:
	default:
		c.logger.Warn("outbound queue full, dropping connection")
		c.close()
	}
}

// close shuts the socket down exactly once. The reader observes the
// closed socket and posts evClosed to the loop.
func (c *connection) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.nc.Close()
	})
}
