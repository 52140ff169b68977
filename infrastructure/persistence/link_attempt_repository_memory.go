package persistence

import (
	"context"
	"sync"
	"time"

	"postbridge/domain/model"
)

type memoryAttempt struct {
	attempt model.LinkAttempt
	expires time.Time
}

// MemoryLinkAttemptRepository is the fallback attempt store when redis is not
// configured. Attempts expire lazily on read.
type MemoryLinkAttemptRepository struct {
	mu       sync.Mutex
	attempts map[string]memoryAttempt
	now      func() time.Time
}

func NewMemoryLinkAttemptRepository() *MemoryLinkAttemptRepository {
	return &MemoryLinkAttemptRepository{
		attempts: make(map[string]memoryAttempt),
		now:      time.Now,
	}
}

func (r *MemoryLinkAttemptRepository) Get(ctx context.Context, provider string) (*model.LinkAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.attempts[provider]
	if !ok {
		return nil, nil
	}
	if r.now().After(entry.expires) {
		delete(r.attempts, provider)
		return nil, nil
	}
	attempt := entry.attempt
	return &attempt, nil
}

func (r *MemoryLinkAttemptRepository) Save(ctx context.Context, attempt *model.LinkAttempt, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[attempt.Provider] = memoryAttempt{attempt: *attempt, expires: r.now().Add(ttl)}
	return nil
}

func (r *MemoryLinkAttemptRepository) Delete(ctx context.Context, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, provider)
	return nil
}
