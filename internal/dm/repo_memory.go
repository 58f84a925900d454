package dm

import (
	"context"
	"sync"
)

// Store is the keyed conversation store.
type Store interface {
	Save(ctx context.Context, c Conversation) error
	FindByID(ctx context.Context, id string) (Conversation, bool, error)
	FindByParticipants(ctx context.Context, a, b string) (Conversation, bool, error)
	FindByUser(ctx context.Context, userID string) ([]Conversation, error)
	Update(ctx context.Context, id string, fn func(Conversation) Conversation) (Conversation, bool, error)
}

// MemoryRepo is the default in-process conversation store.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Conversation
	byPair map[pairKey]string // unordered pair -> id
}

type pairKey struct{ lo, hi string }

func newPairKey(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Conversation),
		byPair: make(map[pairKey]string),
	}
}

func (r *MemoryRepo) Save(ctx context.Context, c Conversation) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = c
	r.byPair[newPairKey(c.Participant1ID, c.Participant2ID)] = c.ID
	return nil
}

func (r *MemoryRepo) FindByID(ctx context.Context, id string) (Conversation, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok, nil
}

func (r *MemoryRepo) FindByParticipants(ctx context.Context, a, b string) (Conversation, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPair[newPairKey(a, b)]
	if !ok {
		return Conversation{}, false, nil
	}
	c, ok := r.byID[id]
	return c, ok, nil
}

func (r *MemoryRepo) FindByUser(ctx context.Context, userID string) ([]Conversation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Conversation
	for _, c := range r.byID {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, fn func(Conversation) Conversation) (Conversation, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return Conversation{}, false, nil
	}
	updated := fn(c)
	updated.ID = c.ID
	r.byID[id] = updated
	return updated, true, nil
}
