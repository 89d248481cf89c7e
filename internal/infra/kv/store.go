// Package kv keeps profiles and the result log as JSON documents behind any
// get/set key-value gateway. User-scoped keys carry the "user_" prefix and
// keys every player reads carry "shared_".
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"trivia-service/internal/domain"
)

// Gateway is the minimal read/replace contract of a storage backend.
// Get reports found=false for a missing key.
type Gateway interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

const (
	UserPrefix   = "user_"
	SharedPrefix = "shared_"

	leaderboardKey = SharedPrefix + "leaderboard"
)

// UserKey namespaces key under player.
func UserKey(player, key string) string {
	return UserPrefix + player + ":" + key
}

// ProfileStore implements app.ProfileStore over a Gateway.
type ProfileStore struct {
	gw Gateway
}

func NewProfileStore(gw Gateway) *ProfileStore {
	return &ProfileStore{gw: gw}
}

func (s *ProfileStore) LoadProfile(ctx context.Context, name string) (domain.Profile, bool, error) {
	raw, found, err := s.gw.Get(ctx, UserKey(name, "profile"))
	if err != nil || !found {
		return domain.Profile{}, false, err
	}
	var p domain.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Profile{}, false, fmt.Errorf("decode profile %s: %w", name, err)
	}
	return p, true, nil
}

func (s *ProfileStore) SaveProfile(ctx context.Context, p domain.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.Name, err)
	}
	return s.gw.Set(ctx, UserKey(p.Name, "profile"), raw)
}

func (s *ProfileStore) DeleteProfile(ctx context.Context, name string) error {
	return s.gw.Delete(ctx, UserKey(name, "profile"))
}

// ResultLog implements app.ResultLog as a single shared JSON array.
// Appends are read-modify-write and serialized within the process.
type ResultLog struct {
	gw Gateway
	mu sync.Mutex
}

func NewResultLog(gw Gateway) *ResultLog {
	return &ResultLog{gw: gw}
}

func (l *ResultLog) AppendEntry(ctx context.Context, entry domain.LeaderboardEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	return l.gw.Set(ctx, leaderboardKey, raw)
}

func (l *ResultLog) Entries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read(ctx)
}

func (l *ResultLog) read(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	raw, found, err := l.gw.Get(ctx, leaderboardKey)
	if err != nil || !found {
		return nil, err
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	return entries, nil
}
