package jump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/chatmark/internal/message"
)

// KeyPrefix namespaces the per-tab history lists.
const KeyPrefix = "chatmark:jumps:"

// NewRedisClient parses url, connects and pings.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisHistory keeps the history in a Redis list, newest at the head.
type RedisHistory struct {
	client *redis.Client
	key    string
	limit  int64
}

// NewRedisHistory stores the history of one tab under KeyPrefix+tabID.
func NewRedisHistory(client *redis.Client, tabID string, limit int) *RedisHistory {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &RedisHistory{client: client, key: KeyPrefix + tabID, limit: int64(limit)}
}

func (h *RedisHistory) Push(ctx context.Context, info message.JumpInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal jump: %w", err)
	}
	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, h.key, payload)
	pipe.LTrim(ctx, h.key, 0, h.limit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push jump: %w", err)
	}
	return nil
}

func (h *RedisHistory) List(ctx context.Context) ([]message.JumpInfo, error) {
	raw, err := h.client.LRange(ctx, h.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list jumps: %w", err)
	}
	out := make([]message.JumpInfo, 0, len(raw))
	for _, r := range raw {
		var info message.JumpInfo
		if err := json.Unmarshal([]byte(r), &info); err != nil {
			return nil, fmt.Errorf("decode jump: %w", err)
		}
		out = append(out, info)
	}
	return out, nil
}

func (h *RedisHistory) Pop(ctx context.Context) (message.JumpInfo, bool, error) {
	raw, err := h.client.LPop(ctx, h.key).Result()
	if errors.Is(err, redis.Nil) {
		return message.JumpInfo{}, false, nil
	}
	if err != nil {
		return message.JumpInfo{}, false, fmt.Errorf("pop jump: %w", err)
	}
	var info message.JumpInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return message.JumpInfo{}, false, fmt.Errorf("decode jump: %w", err)
	}
	return info, true, nil
}

func (h *RedisHistory) Clear(ctx context.Context) error {
	if err := h.client.Del(ctx, h.key).Err(); err != nil {
		return fmt.Errorf("clear jumps: %w", err)
	}
	return nil
}
