package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEll3n/ups-server/internal/model"
	"github.com/MrEll3n/ups-server/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Pipeline for atomic save + index updates
	pipe := s.client.Pipeline()
	pipe.Set(ctx, playerKey(player.ID), data, s.cfg.EntityTTL)
	pipe.Set(ctx, playerNameIndexKey(player.DisplayName), strconv.Itoa(int(player.ID)), s.cfg.EntityTTL)
	pipe.SAdd(ctx, playersIndexKey(), int(player.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) GetPlayerByName(ctx context.Context, name string) (*model.Player, error) {
	raw, err := s.client.Get(ctx, playerNameIndexKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, model.ErrPlayerNotFound
	}
	return s.GetPlayer(ctx, model.PlayerID(id))
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	player, err := s.GetPlayer(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, playerKey(id))
	pipe.Del(ctx, playerNameIndexKey(player.DisplayName))
	pipe.SRem(ctx, playersIndexKey(), int(id))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) CountPlayers(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, playersIndexKey()).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Lobby operations

func (s *Storage) SaveLobby(ctx context.Context, lobby *model.Lobby) error {
	data, err := json.Marshal(lobby)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, lobbyKey(lobby.ID), data, s.cfg.EntityTTL)
	pipe.Set(ctx, lobbyNameIndexKey(lobby.Name), strconv.Itoa(int(lobby.ID)), s.cfg.EntityTTL)
	pipe.SAdd(ctx, lobbiesIndexKey(), int(lobby.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetLobby(ctx context.Context, id model.LobbyID) (*model.Lobby, error) {
	data, err := s.client.Get(ctx, lobbyKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrLobbyNotFound
		}
		return nil, err
	}

	var lobby model.Lobby
	if err := json.Unmarshal(data, &lobby); err != nil {
		return nil, err
	}
	return &lobby, nil
}

func (s *Storage) GetLobbyByName(ctx context.Context, name string) (*model.Lobby, error) {
	raw, err := s.client.Get(ctx, lobbyNameIndexKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrLobbyNotFound
		}
		return nil, err
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, model.ErrLobbyNotFound
	}
	return s.GetLobby(ctx, model.LobbyID(id))
}

func (s *Storage) DeleteLobby(ctx context.Context, id model.LobbyID) error {
	lobby, err := s.GetLobby(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrLobbyNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, lobbyKey(id))
	pipe.Del(ctx, lobbyNameIndexKey(lobby.Name))
	pipe.SRem(ctx, lobbiesIndexKey(), int(id))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) CountLobbies(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, lobbiesIndexKey()).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Disconnect record operations

func (s *Storage) SaveDisconnect(ctx context.Context, rec *model.DisconnectRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, disconnectKey(rec.Player), data, s.cfg.EntityTTL)
	pipe.SAdd(ctx, disconnectsIndexKey(), int(rec.Player))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetDisconnect(ctx context.Context, id model.PlayerID) (*model.DisconnectRecord, error) {
	data, err := s.client.Get(ctx, disconnectKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotDisconnected
		}
		return nil, err
	}

	var rec model.DisconnectRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Storage) DeleteDisconnect(ctx context.Context, id model.PlayerID) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, disconnectKey(id))
	pipe.SRem(ctx, disconnectsIndexKey(), int(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListDisconnects(ctx context.Context) ([]*model.DisconnectRecord, error) {
	ids, err := s.client.SMembers(ctx, disconnectsIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	recs := make([]*model.DisconnectRecord, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		rec, err := s.GetDisconnect(ctx, model.PlayerID(id))
		if err != nil {
			if errors.Is(err, model.ErrNotDisconnected) {
				// Record expired between SMembers and Get; drop the
				// stale index entry.
				_ = s.client.SRem(ctx, disconnectsIndexKey(), raw).Err()
				continue
			}
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
