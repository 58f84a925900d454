package user

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService() *Service {
	s := NewService(NewMemoryRepo())
	s.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return s
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	u, err := s.Register(ctx, "alice", "password", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID == "" || u.PasswordHash == "password" {
		t.Fatalf("unexpected user: %+v", u)
	}

	got, err := s.Authenticate(ctx, "alice", "password")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected %q, got %q", u.ID, got.ID)
	}

	if _, err := s.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody", "password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	if _, err := s.Register(ctx, "alice", "password", "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.Register(ctx, "alice", "other", "Alice2"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestUpdateProfileAppliesOnlyProvidedFields(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	u, err := s.Register(ctx, "bob", "password", "Bob")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	name := "Bobby"
	got, err := s.UpdateProfile(ctx, u.ID, &name, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.DisplayName != "Bobby" || got.AvatarURL != "" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	if _, err := s.UpdateProfile(ctx, "missing", &name, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDisplayNameFallsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	if got := s.DisplayName(ctx, "missing"); got != "Unknown" {
		t.Fatalf("expected Unknown, got %q", got)
	}

	u, _ := s.Register(ctx, "carol", "password", "Carol")
	if got := s.DisplayName(ctx, u.ID); got != "Carol" {
		t.Fatalf("expected Carol, got %q", got)
	}
}
