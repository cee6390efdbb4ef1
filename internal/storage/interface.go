package storage

import (
	"context"

	"github.com/MrEll3n/ups-server/internal/model"
)

// Storage defines the interface for registry and liveness state.
// Display-name and lobby-name lookups back the uniqueness invariants the
// registry enforces at creation time.
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	GetPlayerByName(ctx context.Context, name string) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error
	CountPlayers(ctx context.Context) (int, error)

	// Lobby operations
	SaveLobby(ctx context.Context, lobby *model.Lobby) error
	GetLobby(ctx context.Context, id model.LobbyID) (*model.Lobby, error)
	GetLobbyByName(ctx context.Context, name string) (*model.Lobby, error)
	DeleteLobby(ctx context.Context, id model.LobbyID) error
	CountLobbies(ctx context.Context) (int, error)

	// Disconnect record operations (reconnection grace window)
	SaveDisconnect(ctx context.Context, rec *model.DisconnectRecord) error
	GetDisconnect(ctx context.Context, id model.PlayerID) (*model.DisconnectRecord, error)
	DeleteDisconnect(ctx context.Context, id model.PlayerID) error
	ListDisconnects(ctx context.Context) ([]*model.DisconnectRecord, error)
}
