package dm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("conversation not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Service struct {
	store Store
	clock func() time.Time

	// createMu makes CreateOrGet race-free: two concurrent calls for the
	// same pair must yield one conversation, not two.
	createMu sync.Mutex
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

// CreateOrGet returns the conversation between a and b, creating it if none
// exists. The pair is unordered.
func (s *Service) CreateOrGet(ctx context.Context, a, b string) (Conversation, error) {
	if a == "" || b == "" || a == b {
		return Conversation{}, ErrInvalidArgument
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if c, ok, err := s.store.FindByParticipants(ctx, a, b); err != nil {
		return Conversation{}, err
	} else if ok {
		return c, nil
	}

	c := Conversation{
		ID:             uuid.NewString(),
		Participant1ID: a,
		Participant2ID: b,
		CreatedAt:      s.clock().UTC(),
	}
	if err := s.store.Save(ctx, c); err != nil {
		return Conversation{}, err
	}
	return c, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (Conversation, error) {
	c, ok, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Conversation{}, err
	}
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return c, nil
}

func (s *Service) FindByUser(ctx context.Context, userID string) ([]Conversation, error) {
	return s.store.FindByUser(ctx, userID)
}

// SetActiveCall records callID as the conversation's active-call pointer.
// An empty callID clears the pointer.
func (s *Service) SetActiveCall(ctx context.Context, dmID, callID string) error {
	_, ok, err := s.store.Update(ctx, dmID, func(c Conversation) Conversation {
		c.ActiveCallID = callID
		return c
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// ParticipantIDs resolves the recipient set for conversation-scoped fan-out.
func (s *Service) ParticipantIDs(ctx context.Context, dmID string) ([]string, error) {
	c, err := s.FindByID(ctx, dmID)
	if err != nil {
		return nil, err
	}
	return []string{c.Participant1ID, c.Participant2ID}, nil
}
