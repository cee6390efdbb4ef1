// Package session derives a connection's lifecycle phase from registry
// state and decides which requests are legal in each phase. The phase is
// never stored; it is a pure function of the player and lobby records.
package session

import (
	"context"
	"errors"

	"github.com/MrEll3n/ups-server/internal/model"
	"github.com/MrEll3n/ups-server/internal/protocol"
	"github.com/MrEll3n/ups-server/internal/services/registry"
)

// Phase is the session lifecycle position of one connection
type Phase string

const (
	PhaseNotLoggedIn     Phase = "not_logged_in"
	PhaseLoggedInNoLobby Phase = "logged_in_no_lobby"
	PhaseInLobby         Phase = "in_lobby"
	PhaseInGame          Phase = "in_game"
	PhaseAfterGame       Phase = "after_game"
)

// Resolver maps player ids onto phases
type Resolver struct {
	registry *registry.Controller
}

func NewResolver(registry *registry.Controller) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve computes the phase for a bound player. Pass 0 for an
// unauthenticated connection.
func (r *Resolver) Resolve(ctx context.Context, id model.PlayerID) (Phase, error) {
	if id == 0 {
		return PhaseNotLoggedIn, nil
	}

	lobby, err := r.registry.PlayerLobby(ctx, id)
	if errors.Is(err, model.ErrNotInLobby) {
		return PhaseLoggedInNoLobby, nil
	}
	if err != nil {
		return PhaseNotLoggedIn, err
	}

	switch lobby.Phase {
	case model.LobbyInGame:
		return PhaseInGame, nil
	case model.LobbyAfterMatch:
		return PhaseAfterGame, nil
	default:
		return PhaseInLobby, nil
	}
}

// legal lists the request kinds each phase accepts. REQ_STATE and
// REQ_PONG are accepted everywhere and handled separately.
var legal = map[Phase]map[protocol.RequestKind]bool{
	PhaseNotLoggedIn: {
		protocol.ReqLogin:  true,
		protocol.ReqLogout: true,
	},
	PhaseLoggedInNoLobby: {
		protocol.ReqLogout:      true,
		protocol.ReqCreateLobby: true,
		protocol.ReqJoinLobby:   true,
	},
	PhaseInLobby: {
		protocol.ReqLogout:     true,
		protocol.ReqLeaveLobby: true,
	},
	PhaseInGame: {
		protocol.ReqLogout:     true,
		protocol.ReqLeaveLobby: true,
		protocol.ReqMove:       true,
	},
	PhaseAfterGame: {
		protocol.ReqLogout:     true,
		protocol.ReqLeaveLobby: true,
		protocol.ReqRematch:    true,
	},
}

// Allowed reports whether the request kind is legal in the given phase
func Allowed(phase Phase, kind protocol.RequestKind) bool {
	if kind == protocol.ReqState || kind == protocol.ReqPong {
		return true
	}
	return legal[phase][kind]
}
