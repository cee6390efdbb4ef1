package redis

import (
	"fmt"

	"github.com/MrEll3n/ups-server/internal/model"
)

// Key prefix for all server state
const keyPrefix = "ups"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%d", keyPrefix, id)
}

// playerNameIndexKey returns the Redis key for the display_name -> id index
func playerNameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:player_name:%s", keyPrefix, name)
}

// playersIndexKey returns the Redis key for the SET of all player ids
func playersIndexKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// lobbyKey returns the Redis key for a Lobby
func lobbyKey(id model.LobbyID) string {
	return fmt.Sprintf("%s:lobby:%d", keyPrefix, id)
}

// lobbyNameIndexKey returns the Redis key for the lobby_name -> id index
func lobbyNameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:lobby_name:%s", keyPrefix, name)
}

// lobbiesIndexKey returns the Redis key for the SET of all lobby ids
func lobbiesIndexKey() string {
	return fmt.Sprintf("%s:idx:lobbies", keyPrefix)
}

// disconnectKey returns the Redis key for a DisconnectRecord
func disconnectKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:disconnect:%d", keyPrefix, id)
}

// disconnectsIndexKey returns the Redis key for the SET of disconnected ids
func disconnectsIndexKey() string {
	return fmt.Sprintf("%s:idx:disconnects", keyPrefix)
}
