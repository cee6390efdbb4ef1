package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/MrEll3n/ups-server/internal/dependencies/mocks"
	"github.com/MrEll3n/ups-server/internal/model"
	"github.com/MrEll3n/ups-server/internal/services/liveness"
	"github.com/MrEll3n/ups-server/internal/services/registry"
	"github.com/MrEll3n/ups-server/internal/services/session"
	"github.com/MrEll3n/ups-server/internal/storage/memory"
	"github.com/MrEll3n/ups-server/internal/testutil"
)

// fakeSender records every line and close instead of touching sockets
type fakeSender struct {
	lines  map[model.ConnID][]string
	closed []model.ConnID
}

func newFakeSender() *fakeSender {
	return &fakeSender{lines: make(map[model.ConnID][]string)}
}

func (f *fakeSender) Send(conn model.ConnID, line string) {
	f.lines[conn] = append(f.lines[conn], line)
}

func (f *fakeSender) CloseConn(conn model.ConnID) {
	f.closed = append(f.closed, conn)
}

func (f *fakeSender) last(conn model.ConnID) string {
	sent := f.lines[conn]
	if len(sent) == 0 {
		return ""
	}
	return sent[len(sent)-1]
}

type DispatcherSuite struct {
	suite.Suite
	dispatcher *Dispatcher
	sender     *fakeSender
	clock      *mocks.MockClock
	ctx        context.Context
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

// newDispatcher builds a dispatcher over fresh in-memory state
func newDispatcher(clock *mocks.MockClock, sender Sender, heartbeat bool) *Dispatcher {
	store := memory.New()
	logger := testutil.NopLogger()
	reg := registry.NewController(store, clock, logger)
	live := liveness.NewService(liveness.DefaultConfig(), store, clock, mocks.NewMockRandom(), logger)
	return NewDispatcher(reg, session.NewResolver(reg), live, sender, logger, heartbeat)
}

func (s *DispatcherSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	s.sender = newFakeSender()
	// Heartbeat probing is off here so clock jumps exercise only the
	// grace window; the probe cycle has its own test below
	s.dispatcher = newDispatcher(s.clock, s.sender, false)
	s.ctx = context.Background()
}

func (s *DispatcherSuite) line(conn model.ConnID, line string) {
	s.dispatcher.HandleLine(s.ctx, conn, line)
}

// startedGame logs two players in on c1/c2 and starts their contest
func (s *DispatcherSuite) startedGame() {
	s.dispatcher.Connected("c1")
	s.dispatcher.Connected("c2")
	s.line("c1", "MRLLN|REQ_LOGIN|Alice")
	s.line("c2", "MRLLN|REQ_LOGIN|Bob")
	s.line("c1", "MRLLN|REQ_CREATE_LOBBY|arena")
	s.line("c2", "MRLLN|REQ_JOIN_LOBBY|arena")

	s.Require().Contains(s.sender.lines["c1"], "MRLLN|RES_GAME_STARTED")
	s.Require().Contains(s.sender.lines["c2"], "MRLLN|RES_GAME_STARTED")
}

// Parsing and phase gating

func (s *DispatcherSuite) TestLoginAssignsID() {
	s.dispatcher.Connected("c1")
	s.line("c1", "MRLLN|REQ_LOGIN|Alice")
	s.Equal("MRLLN|RES_LOGIN_OK|1", s.sender.last("c1"))
}

func (s *DispatcherSuite) TestBadMagicClosesConnection() {
	s.dispatcher.Connected("c1")
	s.line("c1", "NOPE|REQ_LOGIN|Alice")
	s.Equal("MRLLN|RES_ERROR|invalid magic", s.sender.last("c1"))
	s.Contains(s.sender.closed, model.ConnID("c1"))
}

func (s *DispatcherSuite) TestUnknownRequest() {
	s.dispatcher.Connected("c1")
	s.line("c1", "MRLLN|REQ_TELEPORT|away")
	s.Equal("MRLLN|RES_ERROR|unknown request", s.sender.last("c1"))
	s.Empty(s.sender.closed)
}

func (s *DispatcherSuite) TestRequestIllegalForPhase() {
	s.dispatcher.Connected("c1")
	s.line("c1", "MRLLN|REQ_MOVE|R")
	s.Equal("MRLLN|RES_ERROR|unexpected state", s.sender.last("c1"))

	s.line("c1", "MRLLN|REQ_LOGIN|Alice")
	s.line("c1", "MRLLN|REQ_LOGIN|Alice2")
	s.Equal("MRLLN|RES_ERROR|unexpected state", s.sender.last("c1"))
}

func (s *DispatcherSuite) TestLoginRejectsTakenName() {
	s.dispatcher.Connected("c1")
	s.dispatcher.Connected("c2")
	s.line("c1", "MRLLN|REQ_LOGIN|Alice")
	s.line("c2", "MRLLN|REQ_LOGIN|Alice")
	s.Equal("MRLLN|RES_ERROR|name taken", s.sender.last("c2"))
}

func (s *DispatcherSuite) TestMalformedLogin() {
	s.dispatcher.Connected("c1")
	s.line("c1", "MRLLN|REQ_LOGIN")
	s.Equal("MRLLN|RES_ERROR|malformed request", s.sender.last("c1"))
}

func (s *DispatcherSuite) TestStateSnapshot() {
	s.dispatcher.Connected("c1")
	s.line("c1", "MRLLN|REQ_STATE")
	s.Equal("MRLLN|RES_STATE|phase=not_logged_in", s.sender.last("c1"))

	s.line("c1", "MRLLN|REQ_LOGIN|Alice")
	s.line("c1", "MRLLN|REQ_STATE")
	s.Equal("MRLLN|RES_STATE|phase=logged_in_no_lobby player=1", s.sender.last("c1"))
}

// Lobby flow

func (s *DispatcherSuite) TestCreateAndJoinStartsGame() {
	s.dispatcher.Connected("c1")
	s.dispatcher.Connected("c2")
	s.line("c1", "MRLLN|REQ_LOGIN|Alice")
	s.line("c2", "MRLLN|REQ_LOGIN|Bob")

	s.line("c1", "MRLLN|REQ_CREATE_LOBBY|arena")
	s.Equal("MRLLN|RES_LOBBY_CREATED|1", s.sender.last("c1"))

	s.line("c2", "MRLLN|REQ_JOIN_LOBBY|arena")
	s.Contains(s.sender.lines["c2"], "MRLLN|RES_LOBBY_JOINED|arena")
	s.Equal("MRLLN|RES_GAME_STARTED", s.sender.last("c2"))
	s.Equal("MRLLN|RES_GAME_STARTED", s.sender.last("c1"))
}

func (s *DispatcherSuite) TestJoinUnknownLobby() {
	s.dispatcher.Connected("c1")
	s.line("c1", "MRLLN|REQ_LOGIN|Alice")
	s.line("c1", "MRLLN|REQ_JOIN_LOBBY|void")
	s.Equal("MRLLN|RES_ERROR|lobby not found", s.sender.last("c1"))
}

func (s *DispatcherSuite) TestLeaveMidGameNotifiesOpponent() {
	s.startedGame()

	s.line("c1", "MRLLN|REQ_LEAVE_LOBBY")
	s.Equal("MRLLN|RES_LOBBY_LEFT", s.sender.last("c1"))
	s.Equal("MRLLN|RES_GAME_CANNOT_CONTINUE|OPPONENT_LEFT", s.sender.last("c2"))
}

func (s *DispatcherSuite) TestLogoutMidGameNotifiesOpponent() {
	s.startedGame()

	s.line("c1", "MRLLN|REQ_LOGOUT")
	s.Equal("MRLLN|RES_LOGOUT_OK", s.sender.last("c1"))
	s.Equal("MRLLN|RES_GAME_CANNOT_CONTINUE|OPPONENT_LEFT", s.sender.last("c2"))

	// The name is free again immediately
	s.dispatcher.Connected("c3")
	s.line("c3", "MRLLN|REQ_LOGIN|Alice")
	s.Equal("MRLLN|RES_LOGIN_OK|3", s.sender.last("c3"))
}

// Contest flow

func (s *DispatcherSuite) TestFullMatch() {
	s.startedGame()

	s.line("c1", "MRLLN|REQ_MOVE|R")
	s.Equal("MRLLN|RES_MOVE_ACCEPTED|R", s.sender.last("c1"))

	s.line("c2", "MRLLN|REQ_MOVE|S")
	round := "MRLLN|RES_ROUND_RESULT|1|R|S|1|0"
	s.Contains(s.sender.lines["c1"], round)
	s.Contains(s.sender.lines["c2"], round)

	s.line("c1", "MRLLN|REQ_MOVE|P")
	s.line("c2", "MRLLN|REQ_MOVE|R")
	s.Contains(s.sender.lines["c1"], "MRLLN|RES_ROUND_RESULT|1|P|R|2|0")

	match := "MRLLN|RES_MATCH_RESULT|1|2|0"
	s.Equal(match, s.sender.last("c1"))
	s.Equal(match, s.sender.last("c2"))
}

func (s *DispatcherSuite) TestInvalidMove() {
	s.startedGame()
	s.line("c1", "MRLLN|REQ_MOVE|X")
	s.Equal("MRLLN|RES_ERROR|invalid move", s.sender.last("c1"))
}

func (s *DispatcherSuite) TestDuplicateMove() {
	s.startedGame()
	s.line("c1", "MRLLN|REQ_MOVE|R")
	s.line("c1", "MRLLN|REQ_MOVE|P")
	s.Equal("MRLLN|RES_ERROR|move already made", s.sender.last("c1"))
}

func (s *DispatcherSuite) TestRematchHandshake() {
	s.startedGame()
	for i := 0; i < 2; i++ {
		s.line("c1", "MRLLN|REQ_MOVE|R")
		s.line("c2", "MRLLN|REQ_MOVE|S")
	}
	s.Contains(s.sender.lines["c1"], "MRLLN|RES_MATCH_RESULT|1|2|0")

	s.line("c1", "MRLLN|REQ_REMATCH")
	s.Equal("MRLLN|RES_REMATCH_READY", s.sender.last("c1"))

	s.line("c2", "MRLLN|REQ_REMATCH")
	s.Equal("MRLLN|RES_GAME_STARTED", s.sender.last("c1"))
	s.Equal("MRLLN|RES_GAME_STARTED", s.sender.last("c2"))

	// Fresh contest accepts moves again
	s.line("c1", "MRLLN|REQ_MOVE|R")
	s.Equal("MRLLN|RES_MOVE_ACCEPTED|R", s.sender.last("c1"))
}

func (s *DispatcherSuite) TestLogoutWithoutLoginIsAcknowledged() {
	s.dispatcher.Connected("c1")
	s.line("c1", "MRLLN|REQ_LOGOUT")
	s.Equal("MRLLN|RES_LOGOUT_OK", s.sender.last("c1"))
}

// Disconnection and grace window

func (s *DispatcherSuite) TestDisconnectMidGameOpensGrace() {
	s.startedGame()

	s.dispatcher.Disconnected(s.ctx, "c1")
	s.Equal("MRLLN|RES_OPPONENT_DISCONNECTED|15", s.sender.last("c2"))
}

func (s *DispatcherSuite) TestReconnectResumesContest() {
	s.startedGame()
	s.line("c1", "MRLLN|REQ_MOVE|R")
	s.line("c2", "MRLLN|REQ_MOVE|S")

	s.dispatcher.Disconnected(s.ctx, "c1")
	s.clock.Advance(5 * time.Second)

	s.dispatcher.Connected("c3")
	s.line("c3", "MRLLN|REQ_LOGIN|Alice")
	s.Contains(s.sender.lines["c3"], "MRLLN|RES_LOGIN_OK|1")
	s.Equal("MRLLN|RES_GAME_RESUMED|1|0|-|-", s.sender.last("c3"))
	s.Equal("MRLLN|RES_GAME_RESUMED", s.sender.last("c2"))

	// Play continues on the new connection
	s.line("c3", "MRLLN|REQ_MOVE|P")
	s.Equal("MRLLN|RES_MOVE_ACCEPTED|P", s.sender.last("c3"))
}

func (s *DispatcherSuite) TestGraceExpiryForfeitsAndEjectsSurvivor() {
	s.startedGame()

	s.dispatcher.Disconnected(s.ctx, "c1")
	s.clock.Advance(15 * time.Second)
	s.dispatcher.Tick(s.ctx)

	s.Equal("MRLLN|RES_GAME_CANNOT_CONTINUE|TIMEOUT", s.sender.last("c2"))

	// Survivor is lobby-less and the names and lobby are released
	s.line("c2", "MRLLN|REQ_CREATE_LOBBY|arena")
	s.Equal("MRLLN|RES_LOBBY_CREATED|2", s.sender.last("c2"))

	s.dispatcher.Connected("c3")
	s.line("c3", "MRLLN|REQ_LOGIN|Alice")
	s.Equal("MRLLN|RES_LOGIN_OK|3", s.sender.last("c3"))
}

func (s *DispatcherSuite) TestDisconnectAfterMatchPreservesIdentityOnly() {
	s.startedGame()
	for i := 0; i < 2; i++ {
		s.line("c1", "MRLLN|REQ_MOVE|R")
		s.line("c2", "MRLLN|REQ_MOVE|S")
	}
	s.Contains(s.sender.lines["c1"], "MRLLN|RES_MATCH_RESULT|1|2|0")

	s.dispatcher.Disconnected(s.ctx, "c1")

	// Survivor is ejected right away, the lobby is gone
	s.Contains(s.sender.lines["c2"], "MRLLN|RES_OPPONENT_DISCONNECTED|15")
	s.Equal("MRLLN|RES_GAME_CANNOT_CONTINUE|OPPONENT_LEFT", s.sender.last("c2"))
	s.line("c2", "MRLLN|REQ_CREATE_LOBBY|arena")
	s.Equal("MRLLN|RES_LOBBY_CREATED|2", s.sender.last("c2"))

	// The dropped identity stays reserved and resumes lobby-less
	s.dispatcher.Connected("c3")
	s.line("c3", "MRLLN|REQ_LOGIN|Alice")
	s.Equal("MRLLN|RES_LOGIN_OK|1", s.sender.last("c3"))
	s.line("c3", "MRLLN|REQ_STATE")
	s.Equal("MRLLN|RES_STATE|phase=logged_in_no_lobby player=1", s.sender.last("c3"))
}

func (s *DispatcherSuite) TestDisconnectWhileWaitingRemovesOutright() {
	s.dispatcher.Connected("c1")
	s.line("c1", "MRLLN|REQ_LOGIN|Alice")
	s.line("c1", "MRLLN|REQ_CREATE_LOBBY|arena")

	s.dispatcher.Disconnected(s.ctx, "c1")

	// No grace window: the name is free right away
	s.dispatcher.Connected("c2")
	s.line("c2", "MRLLN|REQ_LOGIN|Alice")
	s.Equal("MRLLN|RES_LOGIN_OK|2", s.sender.last("c2"))
}

// Heartbeat probing runs with its own dispatcher so the clock jumps
// above cannot interfere

func TestHeartbeatProbeAndExpiry(t *testing.T) {
	ctx := context.Background()
	clk := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	sender := newFakeSender()
	d := newDispatcher(clk, sender, true)

	d.Connected("c1")

	clk.Advance(2 * time.Second)
	d.Tick(ctx)
	if got := sender.last("c1"); got != "MRLLN|RES_PING|000000" {
		t.Fatalf("expected ping, got %q", got)
	}

	// Unanswered past the timeout: the connection is dropped
	clk.Advance(5 * time.Second)
	d.Tick(ctx)
	if len(sender.closed) != 1 || sender.closed[0] != model.ConnID("c1") {
		t.Fatalf("expected c1 closed, got %v", sender.closed)
	}
}

func TestHeartbeatPongKeepsConnection(t *testing.T) {
	ctx := context.Background()
	clk := mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	sender := newFakeSender()
	d := newDispatcher(clk, sender, true)

	d.Connected("c1")

	clk.Advance(2 * time.Second)
	d.Tick(ctx)

	d.HandleLine(ctx, "c1", "MRLLN|REQ_PONG|000000")

	clk.Advance(time.Second)
	d.Tick(ctx)
	if len(sender.closed) != 0 {
		t.Fatalf("expected no closes, got %v", sender.closed)
	}
}
