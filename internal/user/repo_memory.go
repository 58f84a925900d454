package user

import (
	"context"
	"sync"
)

// MemoryRepo is the default in-process user store.
type MemoryRepo struct {
	mu         sync.RWMutex
	byID       map[string]User
	byUsername map[string]string // username -> id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:       make(map[string]User),
		byUsername: make(map[string]string),
	}
}

func (r *MemoryRepo) Save(ctx context.Context, u User) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	r.byUsername[u.Username] = u.ID
	return nil
}

func (r *MemoryRepo) FindByID(ctx context.Context, id string) (User, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	return u, ok, nil
}

func (r *MemoryRepo) FindByUsername(ctx context.Context, username string) (User, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return User{}, false, nil
	}
	u, ok := r.byID[id]
	return u, ok, nil
}

func (r *MemoryRepo) FindAll(ctx context.Context) ([]User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, fn func(User) User) (User, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return User{}, false, nil
	}
	updated := fn(u)
	updated.ID = u.ID // id is immutable
	r.byID[id] = updated
	if updated.Username != u.Username {
		delete(r.byUsername, u.Username)
	}
	r.byUsername[updated.Username] = id
	return updated, true, nil
}
