package dm

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCreateOrGetReturnsSameConversationForBothOrders(t *testing.T) {
	ctx := context.Background()
	s := NewService(NewMemoryRepo())

	c1, err := s.CreateOrGet(ctx, "a", "b")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	c2, err := s.CreateOrGet(ctx, "b", "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c1.ID != c2.ID {
		t.Fatalf("expected one conversation, got %q and %q", c1.ID, c2.ID)
	}
}

func TestCreateOrGetRejectsSelfConversation(t *testing.T) {
	s := NewService(NewMemoryRepo())
	if _, err := s.CreateOrGet(context.Background(), "a", "a"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCreateOrGetConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewService(NewMemoryRepo())

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			c, err := s.CreateOrGet(ctx, "a", "b")
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("conversation duplicated under races: %q vs %q", ids[0], ids[i])
		}
	}
}

func TestSetActiveCallAndParticipants(t *testing.T) {
	ctx := context.Background()
	s := NewService(NewMemoryRepo())
	c, _ := s.CreateOrGet(ctx, "a", "b")

	if err := s.SetActiveCall(ctx, c.ID, "call-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _ := s.FindByID(ctx, c.ID)
	if got.ActiveCallID != "call-1" {
		t.Fatalf("pointer not set: %+v", got)
	}

	ids, err := s.ParticipantIDs(ctx, c.ID)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected two participants, got %v", ids)
	}

	if err := s.SetActiveCall(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
