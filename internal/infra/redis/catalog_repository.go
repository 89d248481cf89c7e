package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
)

// CatalogRepository caches subjects in Redis as JSON and falls back to a loader on cache miss.
// Subjects are stored as: SET trivia:subject:{name} {json}
// The subject list is:    SET trivia:subjects       {json array}
type CatalogRepository struct {
	client *redis.Client
	loader memory.SubjectLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewCatalogRepository(client *redis.Client, loader memory.SubjectLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetSubject(ctx context.Context, name string) (domain.Subject, error) {
	var subject domain.Subject
	if r.cached(ctx, subjectKey(name), &subject) {
		return subject, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		var subject domain.Subject
		if r.cached(ctx, subjectKey(name), &subject) {
			return subject, nil
		}
		subject, err := r.loader.LoadSubject(ctx, name)
		if err != nil {
			return domain.Subject{}, err
		}
		r.store(ctx, subjectKey(name), subject)
		return subject, nil
	})
	if err != nil {
		return domain.Subject{}, err
	}
	return result.(domain.Subject), nil
}

func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	var subjects []domain.Subject
	if r.cached(ctx, listKey, &subjects) {
		return subjects, nil
	}

	result, err, _ := r.sf.Do(listKey, func() (interface{}, error) {
		subjects, err := r.loader.ListSubjects(ctx)
		if err != nil {
			return nil, err
		}
		r.store(ctx, listKey, subjects)
		return subjects, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Subject), nil
}

// cached decodes key into dst. Redis being unreachable counts as a miss.
func (r *CatalogRepository) cached(ctx context.Context, key string, dst any) bool {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (r *CatalogRepository) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	// best-effort: a failed cache write only costs a reload
	_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
}

const listKey = "trivia:subjects"

func subjectKey(name string) string {
	return "trivia:subject:" + name
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
