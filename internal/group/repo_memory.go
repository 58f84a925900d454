package group

import (
	"context"
	"sync"
)

// Store is the keyed group store. Update must be an atomic
// read-modify-write per group id.
type Store interface {
	Save(ctx context.Context, g Group) error
	FindByID(ctx context.Context, id string) (Group, bool, error)
	FindByUser(ctx context.Context, userID string) ([]Group, error)
	Update(ctx context.Context, id string, fn func(Group) Group) (Group, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// MemoryRepo is the default in-process group store.
type MemoryRepo struct {
	mu     sync.RWMutex
	groups map[string]Group
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{groups: make(map[string]Group)}
}

func (r *MemoryRepo) Save(ctx context.Context, g Group) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.ID] = cloneGroup(g)
	return nil
}

func (r *MemoryRepo) FindByID(ctx context.Context, id string) (Group, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return Group{}, false, nil
	}
	return cloneGroup(g), true, nil
}

func (r *MemoryRepo) FindByUser(ctx context.Context, userID string) ([]Group, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Group
	for _, g := range r.groups {
		if g.HasMember(userID) {
			out = append(out, cloneGroup(g))
		}
	}
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, fn func(Group) Group) (Group, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return Group{}, false, nil
	}
	updated := fn(cloneGroup(g))
	updated.ID = g.ID
	r.groups[id] = updated
	return cloneGroup(updated), true, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[id]; !ok {
		return false, nil
	}
	delete(r.groups, id)
	return true, nil
}

func cloneGroup(g Group) Group {
	out := g
	out.MemberIDs = append([]string(nil), g.MemberIDs...)
	return out
}
