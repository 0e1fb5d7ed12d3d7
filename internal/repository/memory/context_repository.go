package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"rolplay-assistant-be/pkg/conversation"
)

type ContextRepository struct {
	cache *cache.Cache
	locks sync.Map // session id -> *sync.Mutex, kept for the repository's lifetime
}

// NewContextRepository keeps each session's context for ttl after its last
// update. A zero ttl never expires.
func NewContextRepository(ttl time.Duration) *ContextRepository {
	expiration := ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
	}
	return &ContextRepository{cache: cache.New(expiration, 10*time.Minute)}
}

func (r *ContextRepository) lock(sessionID string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (r *ContextRepository) Get(_ context.Context, sessionID string) (conversation.Context, error) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(conversation.Context), nil
	}
	return conversation.Context{}, nil
}

func (r *ContextRepository) Update(_ context.Context, sessionID, queryType string, values conversation.Values) (conversation.Context, error) {
	mu := r.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	current := conversation.Context{}
	if x, found := r.cache.Get(sessionID); found {
		current = x.(conversation.Context)
	}
	next := current.Merge(queryType, values)
	r.cache.Set(sessionID, next, cache.DefaultExpiration)
	return next, nil
}

func (r *ContextRepository) Delete(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}
