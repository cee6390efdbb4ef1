// Package registry owns the player and lobby entities: matchmaking by
// name, per-round move submission, best-of-three scoring and the rematch
// handshake. Name uniqueness is enforced here at creation time; there is
// no process-wide name set.
package registry

import (
	"context"
	"log/slog"

	"github.com/MrEll3n/ups-server/internal/dependencies/clock"
	"github.com/MrEll3n/ups-server/internal/model"
	"github.com/MrEll3n/ups-server/internal/services/rules"
	"github.com/MrEll3n/ups-server/internal/storage"
)

// Controller manages player and lobby state
type Controller struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger

	// Process-lifetime id counters; only ever touched from the server's
	// event loop.
	nextPlayerID model.PlayerID
	nextLobbyID  model.LobbyID
}

// NewController creates a new registry Controller
func NewController(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Controller {
	return &Controller{
		storage:      storage,
		clock:        clock,
		logger:       logger,
		nextPlayerID: 1,
		nextLobbyID:  1,
	}
}

// AddPlayer creates a player under the given display name. The name must
// not be held by any existing player, online or within its reconnection
// grace window.
func (c *Controller) AddPlayer(ctx context.Context, name string) (*model.Player, error) {
	if _, err := c.storage.GetPlayerByName(ctx, name); err == nil {
		return nil, model.ErrNameTaken
	}

	player := &model.Player{
		ID:          c.nextPlayerID,
		DisplayName: name,
		CreatedAt:   c.clock.Now(),
	}
	c.nextPlayerID++

	if err := c.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	c.logger.Info("player added",
		slog.Int("player_id", int(player.ID)),
		slog.String("name", name))
	return player, nil
}

// GetPlayer retrieves a player by id
func (c *Controller) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return c.storage.GetPlayer(ctx, id)
}

// GetPlayerByName retrieves a player by display name
func (c *Controller) GetPlayerByName(ctx context.Context, name string) (*model.Player, error) {
	return c.storage.GetPlayerByName(ctx, name)
}

// PlayerLobby returns the lobby the player currently occupies, or
// ErrNotInLobby
func (c *Controller) PlayerLobby(ctx context.Context, id model.PlayerID) (*model.Lobby, error) {
	player, err := c.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !player.InLobby() {
		return nil, model.ErrNotInLobby
	}
	return c.storage.GetLobby(ctx, *player.Lobby)
}

// Departure describes what a removal or leave did to the lobby the
// player occupied, so callers can fan out the right notifications.
type Departure struct {
	LobbyID        model.LobbyID
	PriorPhase     model.LobbyPhase
	Opponent       model.PlayerID // 0 when the player was alone
	LobbyDestroyed bool
}

// RemovePlayer detaches the player from any lobby, then deletes the
// identity and releases its display name. The returned Departure is nil
// when the player held no lobby seat.
func (c *Controller) RemovePlayer(ctx context.Context, id model.PlayerID) (*Departure, error) {
	player, err := c.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}

	var dep *Departure
	if player.InLobby() {
		dep, err = c.LeaveLobby(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	if err := c.storage.DeletePlayer(ctx, id); err != nil {
		return nil, err
	}

	c.logger.Info("player removed",
		slog.Int("player_id", int(id)),
		slog.String("name", player.DisplayName))
	return dep, nil
}

// CreateLobby creates a lobby owned by the given player. The lobby name
// must be free and the owner must not already occupy a lobby.
func (c *Controller) CreateLobby(ctx context.Context, owner model.PlayerID, name string) (*model.Lobby, error) {
	player, err := c.storage.GetPlayer(ctx, owner)
	if err != nil {
		return nil, err
	}
	if player.InLobby() {
		return nil, model.ErrAlreadyInLobby
	}
	if _, err := c.storage.GetLobbyByName(ctx, name); err == nil {
		return nil, model.ErrLobbyNameTaken
	}

	now := c.clock.Now()
	lobby := &model.Lobby{
		ID:        c.nextLobbyID,
		Name:      name,
		Phase:     model.LobbyWaitingForOpponent,
		Seats:     []model.Seat{{Player: owner}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.nextLobbyID++

	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}

	lobbyID := lobby.ID
	player.Lobby = &lobbyID
	if err := c.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	c.logger.Info("lobby created",
		slog.Int("lobby_id", int(lobby.ID)),
		slog.String("name", name),
		slog.Int("owner", int(owner)))
	return lobby, nil
}

// JoinResult describes a successful join
type JoinResult struct {
	Lobby *model.Lobby
	// Started is true when this join filled the lobby and the contest
	// began
	Started  bool
	Opponent model.PlayerID
}

// JoinLobby seats the player in the named lobby. Filling the second seat
// transitions the lobby to InGame with fresh slots and counters.
func (c *Controller) JoinLobby(ctx context.Context, id model.PlayerID, name string) (*JoinResult, error) {
	player, err := c.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	if player.InLobby() {
		return nil, model.ErrAlreadyInLobby
	}

	lobby, err := c.storage.GetLobbyByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if lobby.IsFull() {
		return nil, model.ErrLobbyFull
	}

	lobby.Seats = append(lobby.Seats, model.Seat{Player: id})

	res := &JoinResult{Lobby: lobby}
	if opp, ok := lobby.Opponent(id); ok {
		res.Opponent = opp
	}
	if len(lobby.Seats) == model.MaxLobbyMembers {
		lobby.Phase = model.LobbyInGame
		lobby.ResetContest()
		res.Started = true
	}
	lobby.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}

	lobbyID := lobby.ID
	player.Lobby = &lobbyID
	if err := c.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	c.logger.Info("lobby joined",
		slog.Int("lobby_id", int(lobby.ID)),
		slog.Int("player_id", int(id)),
		slog.Bool("started", res.Started))
	return res, nil
}

// LeaveLobby removes the player from its lobby. An emptied lobby is torn
// down and its name released; a half-emptied lobby falls back to waiting
// for a new opponent with its contest state cleared.
func (c *Controller) LeaveLobby(ctx context.Context, id model.PlayerID) (*Departure, error) {
	player, err := c.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !player.InLobby() {
		return nil, model.ErrNotInLobby
	}

	lobby, err := c.storage.GetLobby(ctx, *player.Lobby)
	if err != nil {
		return nil, err
	}

	dep := &Departure{
		LobbyID:    lobby.ID,
		PriorPhase: lobby.Phase,
	}
	if opp, ok := lobby.Opponent(id); ok {
		dep.Opponent = opp
	}

	if i := lobby.SeatIndex(id); i >= 0 {
		lobby.Seats = append(lobby.Seats[:i], lobby.Seats[i+1:]...)
	}

	player.Lobby = nil
	if err := c.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	if len(lobby.Seats) == 0 {
		if err := c.storage.DeleteLobby(ctx, lobby.ID); err != nil {
			return nil, err
		}
		dep.LobbyDestroyed = true
		c.logger.Info("lobby destroyed", slog.Int("lobby_id", int(lobby.ID)))
		return dep, nil
	}

	// The departing side of the contest cannot continue; the survivor
	// waits for a fresh opponent with a clean slate.
	lobby.Phase = model.LobbyWaitingForOpponent
	lobby.ResetContest()
	lobby.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}

	c.logger.Info("lobby left",
		slog.Int("lobby_id", int(lobby.ID)),
		slog.Int("player_id", int(id)))
	return dep, nil
}

// MoveResult reports what a submission did. When Resolved is false only
// Move is meaningful: the round still waits for the other seat.
type MoveResult struct {
	Move     model.Move
	Resolved bool

	// Seat-ordered round data, valid when Resolved
	SeatPlayers [2]model.PlayerID
	Moves       [2]model.Move
	Wins        [2]int
	RoundWinner model.PlayerID // 0 on a drawn round

	MatchEnded  bool
	MatchWinner model.PlayerID // 0 on a drawn match
}

// SubmitMove records the player's choice for the in-progress round and,
// once both seats have chosen, resolves the round and evaluates match
// end.
func (c *Controller) SubmitMove(ctx context.Context, id model.PlayerID, move model.Move) (*MoveResult, error) {
	player, err := c.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !player.InLobby() {
		return nil, model.ErrNotInGame
	}

	lobby, err := c.storage.GetLobby(ctx, *player.Lobby)
	if err != nil {
		return nil, err
	}
	if lobby.Phase != model.LobbyInGame || len(lobby.Seats) != model.MaxLobbyMembers {
		return nil, model.ErrNotInGame
	}

	seat := lobby.Seat(id)
	if seat == nil {
		return nil, model.ErrNotInGame
	}
	if seat.Move != model.MoveNone {
		return nil, model.ErrMoveAlreadyMade
	}
	seat.Move = move

	res := &MoveResult{Move: move}

	first, second := &lobby.Seats[0], &lobby.Seats[1]
	if first.Move != model.MoveNone && second.Move != model.MoveNone {
		outcome := rules.ResolveRound(first.Move, second.Move)
		switch outcome {
		case rules.RoundFirstWins:
			first.Wins++
			res.RoundWinner = first.Player
		case rules.RoundSecondWins:
			second.Wins++
			res.RoundWinner = second.Player
		}
		lobby.RoundsPlayed++

		res.Resolved = true
		res.SeatPlayers = [2]model.PlayerID{first.Player, second.Player}
		res.Moves = [2]model.Move{first.Move, second.Move}
		res.Wins = [2]int{first.Wins, second.Wins}

		// Slots clear the instant the round resolves
		first.Move = model.MoveNone
		second.Move = model.MoveNone

		verdict := rules.EvaluateMatch(first.Wins, second.Wins, lobby.RoundsPlayed)
		if verdict.Ended {
			lobby.Phase = model.LobbyAfterMatch
			res.MatchEnded = true
			if verdict.WinnerSeat >= 0 {
				res.MatchWinner = lobby.Seats[verdict.WinnerSeat].Player
			}
		}
	}

	lobby.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}

	if res.Resolved {
		c.logger.Info("round resolved",
			slog.Int("lobby_id", int(lobby.ID)),
			slog.Int("round", lobby.RoundsPlayed),
			slog.Int("winner", int(res.RoundWinner)),
			slog.Bool("match_ended", res.MatchEnded))
	}
	return res, nil
}

// RematchResult describes the state of the rematch handshake
type RematchResult struct {
	// Started is true once both members have signaled intent and a
	// fresh contest began
	Started  bool
	Opponent model.PlayerID
}

// RequestRematch records the player's intent to play again. When both
// members of an AfterMatch lobby agree, counters and slots reset and the
// lobby returns to InGame.
func (c *Controller) RequestRematch(ctx context.Context, id model.PlayerID) (*RematchResult, error) {
	player, err := c.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !player.InLobby() {
		return nil, model.ErrRematchNotAllowed
	}

	lobby, err := c.storage.GetLobby(ctx, *player.Lobby)
	if err != nil {
		return nil, err
	}
	if lobby.Phase != model.LobbyAfterMatch || len(lobby.Seats) != model.MaxLobbyMembers {
		return nil, model.ErrRematchNotAllowed
	}

	seat := lobby.Seat(id)
	if seat == nil {
		return nil, model.ErrRematchNotAllowed
	}
	seat.WantsRematch = true

	res := &RematchResult{}
	if opp, ok := lobby.Opponent(id); ok {
		res.Opponent = opp
	}

	if lobby.Seats[0].WantsRematch && lobby.Seats[1].WantsRematch {
		lobby.ResetContest()
		lobby.Phase = model.LobbyInGame
		res.Started = true
	}

	lobby.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}

	c.logger.Info("rematch requested",
		slog.Int("lobby_id", int(lobby.ID)),
		slog.Int("player_id", int(id)),
		slog.Bool("started", res.Started))
	return res, nil
}

// Stats returns current registry counts for the admin endpoint
func (c *Controller) Stats(ctx context.Context) (players int, lobbies int, err error) {
	players, err = c.storage.CountPlayers(ctx)
	if err != nil {
		return 0, 0, err
	}
	lobbies, err = c.storage.CountLobbies(ctx)
	if err != nil {
		return 0, 0, err
	}
	return players, lobbies, nil
}
