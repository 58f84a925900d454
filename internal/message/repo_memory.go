package message

import (
	"context"
	"sort"
	"sync"
)

// Store is the keyed message store. List queries return newest first.
type Store interface {
	Save(ctx context.Context, m Message) error
	FindByID(ctx context.Context, id string) (Message, bool, error)
	FindByGroup(ctx context.Context, groupID string, limit, offset int) ([]Message, error)
	FindByDM(ctx context.Context, dmID string, limit, offset int) ([]Message, error)
	Update(ctx context.Context, id string, fn func(Message) Message) (Message, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// MemoryRepo is the default in-process message store.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Message
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Message)}
}

func (r *MemoryRepo) Save(ctx context.Context, m Message) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.ID] = m
	return nil
}

func (r *MemoryRepo) FindByID(ctx context.Context, id string) (Message, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	return m, ok, nil
}

func (r *MemoryRepo) FindByGroup(ctx context.Context, groupID string, limit, offset int) ([]Message, error) {
	_ = ctx
	return r.page(func(m Message) bool {
		return m.GroupID != nil && *m.GroupID == groupID
	}, limit, offset), nil
}

func (r *MemoryRepo) FindByDM(ctx context.Context, dmID string, limit, offset int) ([]Message, error) {
	_ = ctx
	return r.page(func(m Message) bool {
		return m.DMID != nil && *m.DMID == dmID
	}, limit, offset), nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, fn func(Message) Message) (Message, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return Message{}, false, nil
	}
	updated := fn(m)
	updated.ID = m.ID
	r.byID[id] = updated
	return updated, true, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

func (r *MemoryRepo) page(match func(Message) bool, limit, offset int) []Message {
	r.mu.RLock()
	var all []Message
	for _, m := range r.byID {
		if match(m) {
			all = append(all, m)
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
