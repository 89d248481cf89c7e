package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"trivia-service/internal/domain"
)

// SubjectLoader fetches subject content from a backing store (embedded YAML, Postgres).
type SubjectLoader interface {
	LoadSubject(ctx context.Context, name string) (domain.Subject, error)
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
}

// CatalogRepository caches subjects with TTL to avoid repeated loader hits.
type CatalogRepository struct {
	loader SubjectLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedSubject
	list  cachedList
}

type cachedSubject struct {
	subject   domain.Subject
	expiresAt time.Time
}

type cachedList struct {
	subjects  []domain.Subject
	expiresAt time.Time
}

const listKey = "\x00list"

func NewCatalogRepository(loader SubjectLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSubject),
	}
}

func (r *CatalogRepository) GetSubject(ctx context.Context, name string) (domain.Subject, error) {
	if subject, ok := r.cached(name); ok {
		return subject, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		if subject, ok := r.cached(name); ok {
			return subject, nil
		}
		subject, err := r.loader.LoadSubject(ctx, name)
		if err != nil {
			return domain.Subject{}, err
		}

		r.mu.Lock()
		r.cache[name] = cachedSubject{subject: subject, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return subject, nil
	})
	if err != nil {
		return domain.Subject{}, err
	}
	return result.(domain.Subject), nil
}

func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	r.mu.RLock()
	if r.list.expiresAt.After(r.clock()) {
		out := r.list.subjects
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(listKey, func() (interface{}, error) {
		subjects, err := r.loader.ListSubjects(ctx)
		if err != nil {
			return nil, err
		}
		expires := r.clock().Add(r.ttlWithJitter())
		r.mu.Lock()
		r.list = cachedList{subjects: subjects, expiresAt: expires}
		for _, subject := range subjects {
			r.cache[subject.Name] = cachedSubject{subject: subject, expiresAt: expires}
		}
		r.mu.Unlock()
		return subjects, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Subject), nil
}

func (r *CatalogRepository) cached(name string) (domain.Subject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[name]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Subject{}, false
	}
	return entry.subject, true
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticSubjectLoader serves a fixed subject list (the embedded catalog, tests).
type StaticSubjectLoader struct {
	subjects []domain.Subject
	byName   map[string]domain.Subject
}

func NewStaticSubjectLoader(subjects []domain.Subject) *StaticSubjectLoader {
	byName := make(map[string]domain.Subject, len(subjects))
	for _, s := range subjects {
		byName[s.Name] = s
	}
	return &StaticSubjectLoader{subjects: subjects, byName: byName}
}

func (l *StaticSubjectLoader) LoadSubject(_ context.Context, name string) (domain.Subject, error) {
	if subject, ok := l.byName[name]; ok {
		return subject, nil
	}
	return domain.Subject{}, domain.ErrSubjectNotFound
}

func (l *StaticSubjectLoader) ListSubjects(context.Context) ([]domain.Subject, error) {
	return l.subjects, nil
}
