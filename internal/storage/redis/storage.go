package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/storage"
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
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
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

// versioned decodes just the Version field of a stored entity
type versioned struct {
	Version int64
}

// extraWrites reads what it needs under WATCH and returns writes to queue in the same transaction
type extraWrites func(tx *redis.Tx) (func(pipe redis.Pipeliner), error)

// compareAndSet replaces the JSON value at key with next if the stored Version
// equals expected.
func (s *Storage) compareAndSet(
	ctx context.Context,
	key string,
	notFound error,
	expected int64,
	next any,
	ttl time.Duration,
	also extraWrites,
	watch ...string,
) error {
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return notFound
			}
			return err
		}

		var stored versioned
		if err := json.Unmarshal(current, &stored); err != nil {
			return err
		}
		if stored.Version != expected {
			return storage.ErrConflict
		}

		var queue func(pipe redis.Pipeliner)
		if also != nil {
			if queue, err = also(tx); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			if queue != nil {
				queue(pipe)
			}
			return nil
		})
		return err
	}, append([]string{key}, watch...)...)

	if errors.Is(err, redis.TxFailedErr) {
		return storage.ErrConflict
	}
	return err
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.userKey(user.ID), data, 0).Err()
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	pipe := s.client.Pipeline()
	get := pipe.Get(ctx, s.userKey(id))
	online := pipe.SIsMember(ctx, s.onlineKey(), string(id))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	data, err := get.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	user.IsOnline = online.Val()
	return &user, nil
}

// Online-status operations

func (s *Storage) SetOnline(ctx context.Context, id model.UserID, online bool) error {
	if online {
		return s.client.SAdd(ctx, s.onlineKey(), string(id)).Err()
	}
	return s.client.SRem(ctx, s.onlineKey(), string(id)).Err()
}

func (s *Storage) IsOnline(ctx context.Context, id model.UserID) (bool, error) {
	return s.client.SIsMember(ctx, s.onlineKey(), string(id)).Result()
}

// Invitation operations

func (s *Storage) CreateInvitation(ctx context.Context, inv *model.Invitation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}

	key := s.invitationKey(inv.ID)
	idxKey := s.pendingIndexKey(inv.FromUserID, inv.ToUserID)
	pending := inv.Status == model.InvitationStatusPending

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		keys := []string{key}
		if pending {
			keys = append(keys, idxKey)
		}
		n, err := tx.Exists(ctx, keys...).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return storage.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.cfg.InvitationRetention)
			if pending {
				pipe.Set(ctx, idxKey, string(inv.ID), s.cfg.InvitationRetention)
			}
			return nil
		})
		return err
	}, key, idxKey)

	if errors.Is(err, redis.TxFailedErr) {
		return storage.ErrConflict
	}
	return err
}

func (s *Storage) GetInvitation(ctx context.Context, id model.InvitationID) (*model.Invitation, error) {
	data, err := s.client.Get(ctx, s.invitationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrInvitationNotFound
		}
		return nil, err
	}

	var inv model.Invitation
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Storage) UpdateInvitation(ctx context.Context, inv *model.Invitation) error {
	next := inv.Clone()
	next.Version++

	idxKey := s.pendingIndexKey(inv.FromUserID, inv.ToUserID)
	syncIndex := func(tx *redis.Tx) (func(pipe redis.Pipeliner), error) {
		current, err := tx.Get(ctx, idxKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		if inv.Status == model.InvitationStatusPending {
			if current != "" && current != string(inv.ID) {
				return nil, storage.ErrConflict
			}
			return func(pipe redis.Pipeliner) {
				pipe.Set(ctx, idxKey, string(inv.ID), s.cfg.InvitationRetention)
			}, nil
		}
		if current != string(inv.ID) {
			return nil, nil
		}
		return func(pipe redis.Pipeliner) {
			pipe.Del(ctx, idxKey)
		}, nil
	}

	err := s.compareAndSet(ctx, s.invitationKey(inv.ID), model.ErrInvitationNotFound,
		inv.Version, next, s.cfg.InvitationRetention, syncIndex, idxKey)
	if err != nil {
		return err
	}
	inv.Version = next.Version
	return nil
}

func (s *Storage) FindPendingInvitation(ctx context.Context, from, to model.UserID) (*model.Invitation, error) {
	id, err := s.client.Get(ctx, s.pendingIndexKey(from, to)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrInvitationNotFound
		}
		return nil, err
	}
	return s.GetInvitation(ctx, model.InvitationID(id))
}

// Match operations

func (s *Storage) CreateMatch(ctx context.Context, match *model.Match) error {
	data, err := json.Marshal(match)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, s.matchKey(match.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return storage.ErrConflict
	}
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	data, err := s.client.Get(ctx, s.matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) error {
	next := match.Clone()
	next.Version++

	err := s.compareAndSet(ctx, s.matchKey(match.ID), model.ErrMatchNotFound,
		match.Version, next, 0, nil)
	if err != nil {
		return err
	}
	match.Version = next.Version
	return nil
}

// Move operations

func (s *Storage) AppendMove(ctx context.Context, move *model.Move) error {
	data, err := json.Marshal(move)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.movesKey(move.MatchID), data).Err()
}

func (s *Storage) ListMoves(ctx context.Context, matchID model.MatchID) ([]*model.Move, error) {
	items, err := s.client.LRange(ctx, s.movesKey(matchID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	moves := make([]*model.Move, 0, len(items))
	for _, item := range items {
		var mv model.Move
		if err := json.Unmarshal([]byte(item), &mv); err != nil {
			return nil, err
		}
		moves = append(moves, &mv)
	}
	sort.SliceStable(moves, func(i, j int) bool {
		return moves[i].Seq < moves[j].Seq
	})
	return moves, nil
}

// Event log operations

func (s *Storage) AppendLog(ctx context.Context, entry *model.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.logsKey(), data)
	if s.cfg.LogCapacity > 0 {
		pipe.LTrim(ctx, s.logsKey(), 0, s.cfg.LogCapacity-1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// RecentLogs returns up to limit entries, newest first
func (s *Storage) RecentLogs(ctx context.Context, limit int) ([]*model.LogEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := s.client.LRange(ctx, s.logsKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	logs := make([]*model.LogEntry, 0, len(items))
	for _, item := range items {
		var entry model.LogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, err
		}
		logs = append(logs, &entry)
	}
	return logs, nil
}
