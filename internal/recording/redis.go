package recording

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLog appends each recording to a Redis list with RPUSH.
type RedisLog struct {
	client *redis.Client
	key    string
}

func NewRedisLog(client *redis.Client, prefix string) *RedisLog {
	if client == nil {
		panic("redis client cannot be nil for RedisLog")
	}
	return &RedisLog{client: client, key: prefix + RecordingsKey + ":log"}
}

func (l *RedisLog) Append(ctx context.Context, rec Recording) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode recording %s: %w", rec.ID, err)
	}
	if err := l.client.RPush(ctx, l.key, b).Err(); err != nil {
		return fmt.Errorf("redis: rpush %s: %w", l.key, err)
	}
	return nil
}

func (l *RedisLog) List(ctx context.Context) ([]Recording, error) {
	raw, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: lrange %s: %w", l.key, err)
	}
	recs := make([]Recording, 0, len(raw))
	for i, s := range raw {
		var rec Recording
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode recording #%d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
