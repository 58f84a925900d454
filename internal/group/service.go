package group

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("group not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Service struct {
	store Store
	clock func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

// Create makes a group with adminID as admin; the admin is always a member.
func (s *Service) Create(ctx context.Context, name, description, adminID string, memberIDs []string) (Group, error) {
	if name == "" || adminID == "" {
		return Group{}, ErrInvalidArgument
	}

	members := make([]string, 0, len(memberIDs)+1)
	seen := make(map[string]struct{}, len(memberIDs)+1)
	for _, id := range append([]string{adminID}, memberIDs...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}

	g := Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		AdminID:     adminID,
		MemberIDs:   members,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.store.Save(ctx, g); err != nil {
		return Group{}, err
	}
	return g, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (Group, error) {
	g, ok, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if !ok {
		return Group{}, ErrNotFound
	}
	return g, nil
}

func (s *Service) FindByUser(ctx context.Context, userID string) ([]Group, error) {
	return s.store.FindByUser(ctx, userID)
}

func (s *Service) AddMember(ctx context.Context, groupID, userID string) (Group, error) {
	if userID == "" {
		return Group{}, ErrInvalidArgument
	}
	g, ok, err := s.store.Update(ctx, groupID, func(g Group) Group {
		if !g.HasMember(userID) {
			g.MemberIDs = append(g.MemberIDs, userID)
		}
		return g
	})
	if err != nil {
		return Group{}, err
	}
	if !ok {
		return Group{}, ErrNotFound
	}
	return g, nil
}

func (s *Service) RemoveMember(ctx context.Context, groupID, userID string) (Group, error) {
	g, ok, err := s.store.Update(ctx, groupID, func(g Group) Group {
		kept := g.MemberIDs[:0]
		for _, id := range g.MemberIDs {
			if id != userID {
				kept = append(kept, id)
			}
		}
		g.MemberIDs = kept
		return g
	})
	if err != nil {
		return Group{}, err
	}
	if !ok {
		return Group{}, ErrNotFound
	}
	return g, nil
}

func (s *Service) Delete(ctx context.Context, groupID string) error {
	ok, err := s.store.Delete(ctx, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// SetActiveCall records callID as the group's active-call pointer.
// An empty callID clears the pointer.
func (s *Service) SetActiveCall(ctx context.Context, groupID, callID string) error {
	_, ok, err := s.store.Update(ctx, groupID, func(g Group) Group {
		g.ActiveCallID = callID
		return g
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// MemberIDs resolves the recipient set for group-scoped fan-out.
func (s *Service) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	g, err := s.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return g.MemberIDs, nil
}
