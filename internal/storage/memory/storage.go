package memory

import (
	"context"
	"sync"

	"github.com/MrEll3n/ups-server/internal/model"
	"github.com/MrEll3n/ups-server/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players     map[model.PlayerID]*model.Player
	playerNames map[string]model.PlayerID
	lobbies     map[model.LobbyID]*model.Lobby
	lobbyNames  map[string]model.LobbyID
	disconnects map[model.PlayerID]*model.DisconnectRecord
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:     make(map[model.PlayerID]*model.Player),
		playerNames: make(map[string]model.PlayerID),
		lobbies:     make(map[model.LobbyID]*model.Lobby),
		lobbyNames:  make(map[string]model.LobbyID),
		disconnects: make(map[model.PlayerID]*model.DisconnectRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = player
	s.playerNames[player.DisplayName] = player.ID
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player, nil
}

func (s *Storage) GetPlayerByName(ctx context.Context, name string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.playerNames[name]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if player, ok := s.players[id]; ok {
		delete(s.playerNames, player.DisplayName)
		delete(s.players, id)
	}
	return nil
}

func (s *Storage) CountPlayers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players), nil
}

// Lobby operations

func (s *Storage) SaveLobby(ctx context.Context, lobby *model.Lobby) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobbies[lobby.ID] = lobby
	s.lobbyNames[lobby.Name] = lobby.ID
	return nil
}

func (s *Storage) GetLobby(ctx context.Context, id model.LobbyID) (*model.Lobby, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lobby, ok := s.lobbies[id]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	return lobby, nil
}

func (s *Storage) GetLobbyByName(ctx context.Context, name string) (*model.Lobby, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.lobbyNames[name]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	lobby, ok := s.lobbies[id]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	return lobby, nil
}

func (s *Storage) DeleteLobby(ctx context.Context, id model.LobbyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lobby, ok := s.lobbies[id]; ok {
		delete(s.lobbyNames, lobby.Name)
		delete(s.lobbies, id)
	}
	return nil
}

func (s *Storage) CountLobbies(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lobbies), nil
}

// Disconnect record operations

func (s *Storage) SaveDisconnect(ctx context.Context, rec *model.DisconnectRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects[rec.Player] = rec
	return nil
}

func (s *Storage) GetDisconnect(ctx context.Context, id model.PlayerID) (*model.DisconnectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.disconnects[id]
	if !ok {
		return nil, model.ErrNotDisconnected
	}
	return rec, nil
}

func (s *Storage) DeleteDisconnect(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.disconnects, id)
	return nil
}

func (s *Storage) ListDisconnects(ctx context.Context) ([]*model.DisconnectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]*model.DisconnectRecord, 0, len(s.disconnects))
	for _, rec := range s.disconnects {
		recs = append(recs, rec)
	}
	return recs, nil
}
