package message

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"chat-platform/internal/protocol"
)

type fakeNotifier struct {
	recipients [][]string
	envs       []protocol.Envelope
}

func (f *fakeNotifier) SendToMany(userIDs []string, env protocol.Envelope) {
	f.recipients = append(f.recipients, userIDs)
	f.envs = append(f.envs, env)
}

type fakeDirectory struct{}

func (fakeDirectory) DisplayName(_ context.Context, userID string) string { return "name-" + userID }

type fakeGroups struct{ members map[string][]string }

func (f fakeGroups) MemberIDs(_ context.Context, groupID string) ([]string, error) {
	m, ok := f.members[groupID]
	if !ok {
		return nil, errors.New("group not found")
	}
	return m, nil
}

type fakeDMs struct{ participants map[string][]string }

func (f fakeDMs) ParticipantIDs(_ context.Context, dmID string) ([]string, error) {
	p, ok := f.participants[dmID]
	if !ok {
		return nil, errors.New("conversation not found")
	}
	return p, nil
}

func newTestService(notifier *fakeNotifier) *Service {
	s := NewService(
		NewMemoryRepo(),
		notifier,
		fakeDirectory{},
		fakeGroups{members: map[string][]string{"g1": {"a", "b", "c"}}},
		fakeDMs{participants: map[string][]string{"d1": {"a", "b"}}},
		slog.New(slog.NewJSONHandler(io.Discard, nil)),
	)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	s.clock = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return s
}

func TestSendToGroupNotifiesMembers(t *testing.T) {
	ctx := context.Background()
	notifier := &fakeNotifier{}
	s := newTestService(notifier)

	m, err := s.SendToGroup(ctx, "a", "g1", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if m.GroupID == nil || *m.GroupID != "g1" {
		t.Fatalf("group not set: %+v", m)
	}
	if len(notifier.recipients) != 1 || len(notifier.recipients[0]) != 3 {
		t.Fatalf("expected fan-out to 3 members, got %v", notifier.recipients)
	}
	if notifier.envs[0].Type != protocol.TypeNewMessage {
		t.Fatalf("unexpected envelope type %q", notifier.envs[0].Type)
	}
}

func TestSendToGroupRejectsNonMember(t *testing.T) {
	notifier := &fakeNotifier{}
	s := newTestService(notifier)

	if _, err := s.SendToGroup(context.Background(), "outsider", "g1", "hi"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(notifier.envs) != 0 {
		t.Fatalf("unexpected fan-out: %v", notifier.envs)
	}
}

func TestSendToDMNotifiesBothParticipants(t *testing.T) {
	notifier := &fakeNotifier{}
	s := newTestService(notifier)

	if _, err := s.SendToDM(context.Background(), "a", "d1", "hey"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(notifier.recipients) != 1 || len(notifier.recipients[0]) != 2 {
		t.Fatalf("expected fan-out to 2 participants, got %v", notifier.recipients)
	}
}

func TestListByGroupPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestService(&fakeNotifier{})

	for i := 0; i < 5; i++ {
		if _, err := s.SendToGroup(ctx, "a", "g1", "msg"); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	page, hasMore, err := s.ListByGroup(ctx, "b", "g1", 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || !hasMore {
		t.Fatalf("expected 2 messages with more remaining, got %d hasMore=%v", len(page), hasMore)
	}
	if page[0].CreatedAt.Before(page[1].CreatedAt) {
		t.Fatalf("not newest first: %v then %v", page[0].CreatedAt, page[1].CreatedAt)
	}

	page, hasMore, err = s.ListByGroup(ctx, "b", "g1", 2, 4)
	if err != nil {
		t.Fatalf("list tail: %v", err)
	}
	if len(page) != 1 || hasMore {
		t.Fatalf("expected final page of 1, got %d hasMore=%v", len(page), hasMore)
	}
}

func TestListByGroupRejectsNonMember(t *testing.T) {
	s := newTestService(&fakeNotifier{})
	if _, _, err := s.ListByGroup(context.Background(), "outsider", "g1", 10, 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestEditIsSenderOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestService(&fakeNotifier{})
	m, _ := s.SendToGroup(ctx, "a", "g1", "original")

	if _, err := s.Edit(ctx, "b", m.ID, "hacked"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	updated, err := s.Edit(ctx, "a", m.ID, "fixed")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if updated.Content != "fixed" || updated.EditedAt == nil {
		t.Fatalf("edit not applied: %+v", updated)
	}
}

func TestDeleteIsSenderOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestService(&fakeNotifier{})
	m, _ := s.SendToGroup(ctx, "a", "g1", "bye")

	if err := s.Delete(ctx, "b", m.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := s.Delete(ctx, "a", m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "a", m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
