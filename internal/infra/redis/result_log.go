package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"trivia-service/internal/domain"
)

// ResultLog appends leaderboard entries to a Redis list. RPUSH is atomic per
// entry, so concurrent writers from several instances never lose an append.
type ResultLog struct {
	client *redis.Client
	key    string
}

func NewResultLog(client *redis.Client) *ResultLog {
	return &ResultLog{client: client, key: "trivia:shared_leaderboard:entries"}
}

func (l *ResultLog) AppendEntry(ctx context.Context, entry domain.LeaderboardEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := l.client.RPush(ctx, l.key, raw).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return nil
}

func (l *ResultLog) Entries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	items, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(items))
	for _, item := range items {
		var e domain.LeaderboardEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			// skip corrupt items rather than hiding the whole board
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
