package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-service/internal/app"
	"trivia-service/internal/infra/memory"
)

// SessionStore keeps rounds in process and mirrors who is mid-round into
// Redis as trivia:session:{player}, holding the session's start time.
type SessionStore struct {
	*memory.SessionStore
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	s := &SessionStore{client: client, ttl: ttl}
	s.SessionStore = memory.NewSessionStoreWithHooks(memory.SessionHooks{
		Opened: s.markLive,
		Closed: s.clearLive,
	})
	return s
}

// LiveSince reads the marker left by another instance or this one.
func (s *SessionStore) LiveSince(ctx context.Context, player string) (time.Time, bool, error) {
	unix, err := s.client.Get(ctx, sessionKey(player)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(unix, 0), true, nil
}

// markers are best effort; gameplay never waits on them.
func (s *SessionStore) markLive(session *app.Session) {
	_ = s.client.Set(context.Background(), sessionKey(session.Player()), session.CreatedAt().Unix(), s.ttl).Err()
}

func (s *SessionStore) clearLive(player string) {
	_ = s.client.Del(context.Background(), sessionKey(player)).Err()
}

func sessionKey(player string) string {
	return "trivia:session:" + player
}
