package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
)

// RedisConfig holds Redis alert-state settings.
type RedisConfig struct {
	// KeyPrefix is prepended to all Redis keys (default: "ctxg:alert:")
	KeyPrefix string

	// TTL expires idle session records (0 = no expiration)
	TTL time.Duration
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		KeyPrefix: "ctxg:alert:",
		TTL:       24 * time.Hour,
	}
}

// Redis implements AlertStateStore with one hash per session.
type Redis struct {
	client redis.UniversalClient
	config RedisConfig
}

// NewRedis creates a Redis alert-state store.
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring.
func NewRedis(client redis.UniversalClient, config RedisConfig) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultRedisConfig().KeyPrefix
	}
	return &Redis{client: client, config: config}, nil
}

func (r *Redis) key(sessionID string) string {
	return r.config.KeyPrefix + sessionID
}

const (
	fieldCalls     = "calls_since_warn"
	fieldLastLevel = "last_level"
	fieldUpdatedAt = "updated_at"
)

func (r *Redis) GetAlertState(ctx context.Context, sessionID string) (*model.AlertState, error) {
	fields, err := r.client.HGetAll(ctx, r.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get alert state: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	st, err := decodeRedisState(sessionID, fields)
	if err != nil {
		return nil, err
	}
	return &st.State, nil
}

func (r *Redis) SaveAlertState(ctx context.Context, sessionID string, state *model.AlertState) error {
	key := r.key(sessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldCalls, state.CallsSinceWarn,
			fieldLastLevel, string(state.LastLevel),
			fieldUpdatedAt, time.Now().UTC().Unix(),
		)
		if r.config.TTL > 0 {
			pipe.Expire(ctx, key, r.config.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}
	return nil
}

// ListAlertStates scans the key prefix; records that fail to decode are skipped.
func (r *Redis) ListAlertStates(ctx context.Context) ([]model.SessionAlertState, error) {
	var states []model.SessionAlertState

	iter := r.client.Scan(ctx, 0, r.config.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("get alert state %s: %w", key, err)
		}
		if len(fields) == 0 {
			continue
		}
		st, err := decodeRedisState(strings.TrimPrefix(key, r.config.KeyPrefix), fields)
		if err != nil {
			continue
		}
		states = append(states, st)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan alert states: %w", err)
	}

	sort.Slice(states, func(i, j int) bool { return states[i].SessionID < states[j].SessionID })
	return states, nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func decodeRedisState(sessionID string, fields map[string]string) (model.SessionAlertState, error) {
	st := model.SessionAlertState{SessionID: sessionID}

	if v, ok := fields[fieldCalls]; ok {
		calls, err := strconv.Atoi(v)
		if err != nil {
			return st, fmt.Errorf("%w: %s: %v", ErrCorrupt, fieldCalls, err)
		}
		st.State.CallsSinceWarn = max(calls, 0)
	}
	st.State.LastLevel = model.Level(fields[fieldLastLevel])
	if v, ok := fields[fieldUpdatedAt]; ok {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			st.UpdatedAt = time.Unix(ts, 0).UTC()
		}
	}
	return st, nil
}
