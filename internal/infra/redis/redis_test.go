package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/kv"
	"trivia-service/internal/infra/memory"
)

func TestCatalogRepositoryCachesInRedis(t *testing.T) {
	mr := startRedis(t)
	client := newClient(mr)

	loader := &countingLoader{SubjectLoader: memory.NewStaticSubjectLoader([]domain.Subject{sampleSubject()})}
	repo := NewCatalogRepository(client, loader, time.Minute)

	subject, err := repo.GetSubject(context.Background(), "Math")
	if err != nil {
		t.Fatalf("get subject: %v", err)
	}
	if loader.calls != 1 || subject.TierCount() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("trivia:subject:Math") {
		t.Fatalf("expected subject cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetSubject(context.Background(), "Math")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Tiers[0].Questions) != 1 || cached.Tiers[0].Questions[0].Correct != 1 {
		t.Fatalf("cached subject lost content: %+v", cached)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := repo.GetSubject(context.Background(), "Math"); err != nil || loader.calls != 2 {
		t.Fatalf("expected reload after ttl: calls=%d err=%v", loader.calls, err)
	}

	list, err := repo.ListSubjects(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}
}

func TestKVStoreBacksProfiles(t *testing.T) {
	mr := startRedis(t)
	ctx := context.Background()
	profiles := kv.NewProfileStore(NewKVStore(newClient(mr)))

	if _, found, err := profiles.LoadProfile(ctx, "ana"); err != nil || found {
		t.Fatalf("missing profile: found=%v err=%v", found, err)
	}
	p := domain.NewProfile("ana", domain.ProfileDefaults{Coins: 12})
	if err := profiles.SaveProfile(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("trivia:user_ana:profile") {
		t.Fatalf("expected namespaced profile key, keys=%v", mr.Keys())
	}
	got, found, err := profiles.LoadProfile(ctx, "ana")
	if err != nil || !found || got.Coins != 12 {
		t.Fatalf("load: %+v %v %v", got, found, err)
	}
	if err := profiles.DeleteProfile(ctx, "ana"); err != nil || mr.Exists("trivia:user_ana:profile") {
		t.Fatalf("delete: %v", err)
	}
}

func TestKVStoreReportsOutage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	store := NewKVStore(newClient(mr))
	mr.Close()

	if _, _, err := store.Get(context.Background(), "user_ana:profile"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}

func TestResultLogAppendsInOrder(t *testing.T) {
	mr := startRedis(t)
	ctx := context.Background()
	log := NewResultLog(newClient(mr))

	for _, id := range []string{"a", "b"} {
		if err := log.AppendEntry(ctx, domain.LeaderboardEntry{ID: id, Player: "ana", Subject: "Math", Score: 1, Total: 5}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	_, _ = mr.Lpush("trivia:shared_leaderboard:entries", "not json")

	entries, err := log.Entries(ctx)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "a" || entries[1].ID != "b" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr := startRedis(t)
	store := NewSessionStore(newClient(mr), time.Minute)

	session := store.GetOrCreate("ana")
	if !mr.Exists("trivia:session:ana") {
		t.Fatalf("expected redis key to be set")
	}
	since, live, err := store.LiveSince(context.Background(), "ana")
	if err != nil || !live || since.Unix() != session.CreatedAt().Unix() {
		t.Fatalf("live marker %v %v %v", since, live, err)
	}

	store.DeleteIfIdle("ana")
	if mr.Exists("trivia:session:ana") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, live, err := store.LiveSince(context.Background(), "ana"); err != nil || live {
		t.Fatalf("expected no marker after close: %v %v", live, err)
	}
}

type countingLoader struct {
	memory.SubjectLoader
	calls int
}

func (l *countingLoader) LoadSubject(ctx context.Context, name string) (domain.Subject, error) {
	l.calls++
	return l.SubjectLoader.LoadSubject(ctx, name)
}

func sampleSubject() domain.Subject {
	return domain.Subject{
		Name: "Math",
		Tiers: []domain.Tier{{
			Number: 1,
			Questions: []domain.Question{
				{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4"}, Correct: 1},
			},
		}},
	}
}

func startRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
