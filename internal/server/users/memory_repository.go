package users

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/userdir/internal/common"
)

// MemoryRepository keeps records in a slice guarded by a single RWMutex.
// The slice preserves insertion order. All methods work on clones, so a
// caller can never mutate the store through a returned pointer.
type MemoryRepository struct {
	mu    sync.RWMutex
	users []*User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) GetByLogin(ctx context.Context, login string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Login == login {
			return u.Clone(), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ID == id {
			return u.Clone(), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) GetAll(ctx context.Context) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Clone())
	}
	return out, nil
}

func (r *MemoryRepository) Add(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = append(r.users, user.Clone())
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, u := range r.users {
		if u.ID == user.ID {
			r.users[i] = user.Clone()
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *MemoryRepository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, u := range r.users {
		if u.ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}
