package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEll3n/ups-server/internal/model"
	"github.com/MrEll3n/ups-server/internal/protocol"
	"github.com/MrEll3n/ups-server/internal/services/liveness"
	"github.com/MrEll3n/ups-server/internal/services/registry"
	"github.com/MrEll3n/ups-server/internal/services/session"
)

// Sender delivers protocol lines to connections. The Server implements
// it; tests substitute a recorder.
type Sender interface {
	Send(conn model.ConnID, line string)
	CloseConn(conn model.ConnID)
}

// Dispatcher routes parsed requests into the services and fans the
// resulting notifications back out. It owns the binding between
// connections and player identities. Single-goroutine use only.
type Dispatcher struct {
	registry  *registry.Controller
	resolver  *session.Resolver
	liveness  *liveness.Service
	sender    Sender
	logger    *slog.Logger
	heartbeat bool

	players map[model.ConnID]model.PlayerID
	conns   map[model.PlayerID]model.ConnID
}

func NewDispatcher(reg *registry.Controller, resolver *session.Resolver, live *liveness.Service, sender Sender, logger *slog.Logger, heartbeat bool) *Dispatcher {
	return &Dispatcher{
		registry:  reg,
		resolver:  resolver,
		liveness:  live,
		sender:    sender,
		logger:    logger,
		heartbeat: heartbeat,
		players:   make(map[model.ConnID]model.PlayerID),
		conns:     make(map[model.PlayerID]model.ConnID),
	}
}

func (d *Dispatcher) bind(conn model.ConnID, player model.PlayerID) {
	d.players[conn] = player
	d.conns[player] = conn
}

func (d *Dispatcher) unbind(conn model.ConnID) {
	if player, ok := d.players[conn]; ok {
		delete(d.conns, player)
		delete(d.players, conn)
	}
}

// sendToPlayer delivers to the player's bound connection. Players inside
// a grace window have no binding; the line is dropped.
func (d *Dispatcher) sendToPlayer(player model.PlayerID, line string) {
	if conn, ok := d.conns[player]; ok {
		d.sender.Send(conn, line)
	}
}

// Connected begins liveness tracking for a fresh connection
func (d *Dispatcher) Connected(conn model.ConnID) {
	if d.heartbeat {
		d.liveness.Track(conn)
	}
}

// HandleLine processes one client line end to end
func (d *Dispatcher) HandleLine(ctx context.Context, conn model.ConnID, line string) {
	req, err := protocol.ParseRequest(line)
	if errors.Is(err, protocol.ErrBadMagic) {
		// One error line, then the socket goes; the disconnect path
		// decides whether a grace window opens
		d.sender.Send(conn, protocol.ErrorInvalidMagic())
		d.sender.CloseConn(conn)
		return
	}

	player := d.players[conn]
	phase, err := d.resolver.Resolve(ctx, player)
	if err != nil {
		d.logger.Error("phase resolution failed",
			slog.String("conn_id", string(conn)),
			slog.String("error", err.Error()))
		d.sender.Send(conn, protocol.Error("internal error"))
		return
	}

	switch req.Kind {
	case protocol.ReqPong:
		if len(req.Params) > 0 {
			d.liveness.Pong(conn, req.Params[0])
		} else {
			d.liveness.Pong(conn, "")
		}
		return
	case protocol.ReqState:
		d.sender.Send(conn, protocol.State(d.stateDebug(ctx, player, phase)))
		return
	case protocol.ReqUnknown:
		d.sender.Send(conn, protocol.ErrorUnknownRequest())
		return
	}

	if !session.Allowed(phase, req.Kind) {
		d.sender.Send(conn, protocol.ErrorUnexpectedState())
		return
	}

	switch req.Kind {
	case protocol.ReqLogin:
		d.handleLogin(ctx, conn, req.Params)
	case protocol.ReqLogout:
		d.handleLogout(ctx, conn, player)
	case protocol.ReqCreateLobby:
		d.handleCreateLobby(ctx, conn, player, req.Params)
	case protocol.ReqJoinLobby:
		d.handleJoinLobby(ctx, conn, player, req.Params)
	case protocol.ReqLeaveLobby:
		d.handleLeaveLobby(ctx, conn, player)
	case protocol.ReqMove:
		d.handleMove(ctx, conn, player, req.Params)
	case protocol.ReqRematch:
		d.handleRematch(ctx, conn, player)
	}
}

func (d *Dispatcher) handleLogin(ctx context.Context, conn model.ConnID, params []string) {
	if len(params) < 1 || params[0] == "" {
		d.sender.Send(conn, protocol.ErrorMalformed())
		return
	}
	name := params[0]

	// A name inside its grace window means this is a reconnect, not a
	// fresh login
	if rec, err := d.liveness.ResumableByName(ctx, name); err == nil {
		d.resumeSession(ctx, conn, rec)
		return
	}

	player, err := d.registry.AddPlayer(ctx, name)
	if err != nil {
		d.sender.Send(conn, errorResponse(err))
		return
	}
	d.bind(conn, player.ID)
	d.sender.Send(conn, protocol.LoginOK(player.ID))
}

// resumeSession reattaches a reconnecting player to their seat and
// resynchronizes both sides
func (d *Dispatcher) resumeSession(ctx context.Context, conn model.ConnID, rec *model.DisconnectRecord) {
	if err := d.liveness.Resume(ctx, rec.Player); err != nil {
		d.logger.Error("resume failed",
			slog.Int("player_id", int(rec.Player)),
			slog.String("error", err.Error()))
		d.sender.Send(conn, protocol.Error("internal error"))
		return
	}
	d.bind(conn, rec.Player)
	d.sender.Send(conn, protocol.LoginOK(rec.Player))
	d.logger.Info("session resumed",
		slog.Int("player_id", int(rec.Player)),
		slog.String("name", rec.DisplayName))

	lobby, err := d.registry.PlayerLobby(ctx, rec.Player)
	if err != nil || len(lobby.Seats) < model.MaxLobbyMembers {
		return
	}
	seat := lobby.Seat(rec.Player)
	opp, ok := lobby.Opponent(rec.Player)
	if seat == nil || !ok {
		return
	}
	oppSeat := lobby.Seat(opp)
	d.sender.Send(conn, protocol.GameResumedSync(seat.Wins, oppSeat.Wins, seat.Move, oppSeat.Move))
	d.sendToPlayer(opp, protocol.GameResumed())
}

func (d *Dispatcher) handleLogout(ctx context.Context, conn model.ConnID, player model.PlayerID) {
	// Logout without a login is a no-op acknowledgment
	if player == 0 {
		d.sender.Send(conn, protocol.LogoutOK())
		return
	}
	dep, err := d.registry.RemovePlayer(ctx, player)
	if err != nil {
		d.sender.Send(conn, errorResponse(err))
		return
	}
	d.unbind(conn)
	d.notifyDeparture(dep, "OPPONENT_LEFT")
	d.sender.Send(conn, protocol.LogoutOK())
}

func (d *Dispatcher) handleCreateLobby(ctx context.Context, conn model.ConnID, player model.PlayerID, params []string) {
	if len(params) < 1 || params[0] == "" {
		d.sender.Send(conn, protocol.ErrorMalformed())
		return
	}
	lobby, err := d.registry.CreateLobby(ctx, player, params[0])
	if err != nil {
		d.sender.Send(conn, errorResponse(err))
		return
	}
	d.sender.Send(conn, protocol.LobbyCreated(lobby.ID))
}

func (d *Dispatcher) handleJoinLobby(ctx context.Context, conn model.ConnID, player model.PlayerID, params []string) {
	if len(params) < 1 || params[0] == "" {
		d.sender.Send(conn, protocol.ErrorMalformed())
		return
	}
	res, err := d.registry.JoinLobby(ctx, player, params[0])
	if err != nil {
		d.sender.Send(conn, errorResponse(err))
		return
	}
	d.sender.Send(conn, protocol.LobbyJoined(res.Lobby.Name))
	if res.Started {
		d.sender.Send(conn, protocol.GameStarted())
		d.sendToPlayer(res.Opponent, protocol.GameStarted())
	}
}

func (d *Dispatcher) handleLeaveLobby(ctx context.Context, conn model.ConnID, player model.PlayerID) {
	dep, err := d.registry.LeaveLobby(ctx, player)
	if err != nil {
		d.sender.Send(conn, errorResponse(err))
		return
	}
	d.notifyDeparture(dep, "OPPONENT_LEFT")
	d.sender.Send(conn, protocol.LobbyLeft())
}

// notifyDeparture tells the abandoned member their contest ended. Only
// contests actually in progress or pending rematch warrant the push.
func (d *Dispatcher) notifyDeparture(dep *registry.Departure, reason string) {
	if dep == nil || dep.Opponent == 0 {
		return
	}
	if dep.PriorPhase != model.LobbyInGame && dep.PriorPhase != model.LobbyAfterMatch {
		return
	}
	d.sendToPlayer(dep.Opponent, protocol.GameCannotContinue(reason))
}

func (d *Dispatcher) handleMove(ctx context.Context, conn model.ConnID, player model.PlayerID, params []string) {
	if len(params) < 1 {
		d.sender.Send(conn, protocol.ErrorMalformed())
		return
	}
	move, ok := model.ParseMove(params[0])
	if !ok {
		d.sender.Send(conn, protocol.ErrorInvalidMove())
		return
	}

	res, err := d.registry.SubmitMove(ctx, player, move)
	if err != nil {
		d.sender.Send(conn, errorResponse(err))
		return
	}
	d.sender.Send(conn, protocol.MoveAccepted(res.Move))

	if !res.Resolved {
		return
	}
	round := protocol.RoundResult(res.RoundWinner, res.Moves[0], res.Moves[1], res.Wins[0], res.Wins[1])
	for _, member := range res.SeatPlayers {
		d.sendToPlayer(member, round)
	}
	if res.MatchEnded {
		match := protocol.MatchResult(res.MatchWinner, res.Wins[0], res.Wins[1])
		for _, member := range res.SeatPlayers {
			d.sendToPlayer(member, match)
		}
	}
}

func (d *Dispatcher) handleRematch(ctx context.Context, conn model.ConnID, player model.PlayerID) {
	res, err := d.registry.RequestRematch(ctx, player)
	if err != nil {
		d.sender.Send(conn, errorResponse(err))
		return
	}
	d.sender.Send(conn, protocol.RematchReady())
	if res.Started {
		d.sender.Send(conn, protocol.GameStarted())
		d.sendToPlayer(res.Opponent, protocol.GameStarted())
	}
}

// Disconnected handles a dropped socket. Players mid-contest get a
// grace window and keep their seat; everyone else is removed outright.
func (d *Dispatcher) Disconnected(ctx context.Context, conn model.ConnID) {
	d.liveness.Untrack(conn)

	player, ok := d.players[conn]
	if !ok {
		return
	}
	d.unbind(conn)

	rec, err := d.registry.GetPlayer(ctx, player)
	if err != nil {
		return
	}

	lobby, err := d.registry.PlayerLobby(ctx, player)
	if err == nil && len(lobby.Seats) == model.MaxLobbyMembers {
		switch lobby.Phase {
		case model.LobbyInGame:
			// Contest in progress: the seat survives until the grace
			// window closes
			if err := d.liveness.RecordDisconnect(ctx, player, rec.DisplayName); err != nil {
				d.logger.Error("grace window open failed",
					slog.Int("player_id", int(player)),
					slog.String("error", err.Error()))
				return
			}
			if opp, ok := lobby.Opponent(player); ok {
				d.sendToPlayer(opp, protocol.OpponentDisconnected(d.liveness.GraceSeconds()))
			}
			return
		case model.LobbyAfterMatch:
			// The match is over: only the identity is preserved; the
			// lobby itself is unusable and both members leave it now
			if err := d.liveness.RecordDisconnect(ctx, player, rec.DisplayName); err != nil {
				d.logger.Error("grace window open failed",
					slog.Int("player_id", int(player)),
					slog.String("error", err.Error()))
				return
			}
			opp, hasOpp := lobby.Opponent(player)
			if _, err := d.registry.LeaveLobby(ctx, player); err != nil {
				d.logger.Error("disconnect detach failed",
					slog.Int("player_id", int(player)),
					slog.String("error", err.Error()))
			}
			if hasOpp {
				if _, err := d.registry.LeaveLobby(ctx, opp); err != nil {
					d.logger.Error("survivor ejection failed",
						slog.Int("player_id", int(opp)),
						slog.String("error", err.Error()))
				}
				d.sendToPlayer(opp, protocol.OpponentDisconnected(d.liveness.GraceSeconds()))
				d.sendToPlayer(opp, protocol.GameCannotContinue("OPPONENT_LEFT"))
			}
			return
		}
	}

	if _, err := d.registry.RemovePlayer(ctx, player); err != nil {
		d.logger.Error("disconnect removal failed",
			slog.Int("player_id", int(player)),
			slog.String("error", err.Error()))
	}
}

// Tick runs the periodic duties: heartbeat probing and grace-window
// expiry
func (d *Dispatcher) Tick(ctx context.Context) {
	if d.heartbeat {
		probes, expired := d.liveness.Tick()
		for _, p := range probes {
			d.sender.Send(p.Conn, protocol.Ping(p.Nonce))
		}
		for _, conn := range expired {
			d.sender.CloseConn(conn)
		}
	}

	forfeited, err := d.liveness.Sweep(ctx)
	if err != nil {
		d.logger.Error("grace sweep failed", slog.String("error", err.Error()))
		return
	}
	for _, rec := range forfeited {
		dep, err := d.registry.RemovePlayer(ctx, rec.Player)
		if err != nil {
			d.logger.Error("forfeit removal failed",
				slog.Int("player_id", int(rec.Player)),
				slog.String("error", err.Error()))
			continue
		}
		if dep == nil || dep.Opponent == 0 {
			continue
		}
		// The contest is unrecoverable; the survivor is ejected back to
		// the lobby-less state rather than left waiting alone
		if _, err := d.registry.LeaveLobby(ctx, dep.Opponent); err != nil {
			d.logger.Error("survivor ejection failed",
				slog.Int("player_id", int(dep.Opponent)),
				slog.String("error", err.Error()))
		}
		d.sendToPlayer(dep.Opponent, protocol.GameCannotContinue("TIMEOUT"))
	}
}

// stateDebug renders the session snapshot for REQ_STATE
func (d *Dispatcher) stateDebug(ctx context.Context, player model.PlayerID, phase session.Phase) string {
	out := fmt.Sprintf("phase=%s", phase)
	if player == 0 {
		return out
	}
	out += fmt.Sprintf(" player=%d", player)
	lobby, err := d.registry.PlayerLobby(ctx, player)
	if err != nil {
		return out
	}
	out += fmt.Sprintf(" lobby=%s members=%d rounds=%d", lobby.Name, len(lobby.Seats), lobby.RoundsPlayed)
	if seat := lobby.Seat(player); seat != nil {
		out += fmt.Sprintf(" wins=%d", seat.Wins)
	}
	return out
}

// errorResponse maps service errors onto wire error lines
func errorResponse(err error) string {
	switch {
	case errors.Is(err, model.ErrNameTaken):
		return protocol.Error("name taken")
	case errors.Is(err, model.ErrLobbyNameTaken):
		return protocol.Error("lobby name taken")
	case errors.Is(err, model.ErrLobbyNotFound):
		return protocol.Error("lobby not found")
	case errors.Is(err, model.ErrLobbyFull):
		return protocol.Error("lobby full")
	case errors.Is(err, model.ErrAlreadyInLobby):
		return protocol.Error("already in lobby")
	case errors.Is(err, model.ErrNotInLobby):
		return protocol.Error("not in lobby")
	case errors.Is(err, model.ErrNotInGame):
		return protocol.Error("not in game")
	case errors.Is(err, model.ErrMoveAlreadyMade):
		return protocol.Error("move already made")
	case errors.Is(err, model.ErrRematchNotAllowed):
		return protocol.Error("rematch not allowed")
	case errors.Is(err, model.ErrPlayerNotFound):
		return protocol.Error("player not found")
	default:
		return protocol.Error("internal error")
	}
}
