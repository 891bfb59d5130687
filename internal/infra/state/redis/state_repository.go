package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/repository"

	"github.com/sirupsen/logrus"
)

// RedisStateRepository stores device keys and cached room boards in Redis.
// It implements repository.DeviceStore and repository.BoardCache.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
	deviceID  string
}

// NewRedisStateRepository creates the repository. deviceID namespaces the
// device keys so several bridges can share one Redis.
func NewRedisStateRepository(client *redis.Client, keyPrefix, deviceID string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "tl:"
	}
	if deviceID == "" {
		deviceID = "default"
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
		deviceID:  deviceID,
	}
}

// --- Key Generation Helpers ---
func (r *RedisStateRepository) deviceKey(key string) string {
	return fmt.Sprintf("%sdevice:%s:%s", r.keyPrefix, r.deviceID, key)
}

func (r *RedisStateRepository) roomBoardKey(roomUUID string) string {
	return fmt.Sprintf("%sroom:%s:board", r.keyPrefix, roomUUID)
}

// --- DeviceStore ---

func (r *RedisStateRepository) Get(ctx context.Context, key string) (string, error) {
	k := r.deviceKey(key)
	v, err := r.client.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrKeyNotFound
		}
		return "", fmt.Errorf("redis: failed to get %s: %w", k, err)
	}
	return v, nil
}

func (r *RedisStateRepository) Set(ctx context.Context, key, value string) error {
	k := r.deviceKey(key)
	if err := r.client.Set(ctx, k, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: failed to set %s: %w", k, err)
	}
	return nil
}

func (r *RedisStateRepository) Delete(ctx context.Context, key string) error {
	k := r.deviceKey(key)
	if err := r.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("redis: failed to delete %s: %w", k, err)
	}
	return nil
}

// --- BoardCache ---

// GetBoard returns the last board stored for the room, or ErrNotFound.
func (r *RedisStateRepository) GetBoard(ctx context.Context, roomUUID string) (*domain.Board, error) {
	key := r.roomBoardKey(roomUUID)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis: failed to get board cache for room %s: %w", roomUUID, err)
	}
	var board domain.Board
	if err := json.Unmarshal(raw, &board); err != nil {
		logrus.WithField("room_uuid", roomUUID).WithError(err).Warn("redis: dropping unreadable board cache")
		_ = r.client.Del(ctx, key).Err()
		return nil, repository.ErrNotFound
	}
	return &board, nil
}

// SetBoard caches the board. A zero ttl keeps it until overwritten.
func (r *RedisStateRepository) SetBoard(ctx context.Context, roomUUID string, board domain.Board, ttl time.Duration) error {
	key := r.roomBoardKey(roomUUID)
	raw, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal board for room %s: %w", roomUUID, err)
	}
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: failed to set board cache for room %s: %w", roomUUID, err)
	}
	return nil
}

// DropBoard removes the cached board, used when a room is left or deleted.
func (r *RedisStateRepository) DropBoard(ctx context.Context, roomUUID string) error {
	key := r.roomBoardKey(roomUUID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: failed to drop board cache for room %s: %w", roomUUID, err)
	}
	return nil
}
