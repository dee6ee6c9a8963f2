package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/userdir/internal/common"
)

// MemoryRepository keeps refresh tokens in a map guarded by a mutex.
type MemoryRepository struct {
	mu     sync.RWMutex
	tokens map[string]RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]RefreshToken)}
}

func (r *MemoryRepository) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token] = RefreshToken{
		UserID:  userID,
		Token:   token,
		Expires: time.Now().Add(validity),
	}
	return nil
}

func (r *MemoryRepository) Find(ctx context.Context, token string) (*RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rt, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, token)
	return nil
}
