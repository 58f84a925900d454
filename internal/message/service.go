package message

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chat-platform/internal/protocol"
)

var (
	ErrNotFound        = errors.New("message not found")
	ErrForbidden       = errors.New("not allowed")
	ErrInvalidArgument = errors.New("invalid argument")
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Notifier delivers realtime envelopes to connected users. Users without an
// active session are skipped.
type Notifier interface {
	SendToMany(userIDs []string, env protocol.Envelope)
}

// Directory resolves user display names for outbound payloads.
type Directory interface {
	DisplayName(ctx context.Context, userID string) string
}

// Groups resolves group membership for scoping sends and fan-out.
type Groups interface {
	MemberIDs(ctx context.Context, groupID string) ([]string, error)
}

// Conversations resolves direct-conversation participants.
type Conversations interface {
	ParticipantIDs(ctx context.Context, dmID string) ([]string, error)
}

type Service struct {
	store    Store
	notifier Notifier
	users    Directory
	groups   Groups
	dms      Conversations
	log      *slog.Logger
	clock    func() time.Time
}

func NewService(store Store, notifier Notifier, users Directory, groups Groups, dms Conversations, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		users:    users,
		groups:   groups,
		dms:      dms,
		log:      log,
		clock:    time.Now,
	}
}

// SendToGroup persists a group message and notifies the group's members.
// The sender must be a member.
func (s *Service) SendToGroup(ctx context.Context, senderID, groupID, content string) (Message, error) {
	if content == "" {
		return Message{}, ErrInvalidArgument
	}
	members, err := s.groups.MemberIDs(ctx, groupID)
	if err != nil {
		return Message{}, err
	}
	if !contains(members, senderID) {
		return Message{}, ErrForbidden
	}

	m := Message{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		GroupID:   &groupID,
		Content:   content,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.store.Save(ctx, m); err != nil {
		return Message{}, err
	}
	s.fanOut(ctx, m, members)
	return m, nil
}

// SendToDM persists a direct message and notifies both participants.
// The sender must be one of them.
func (s *Service) SendToDM(ctx context.Context, senderID, dmID, content string) (Message, error) {
	if content == "" {
		return Message{}, ErrInvalidArgument
	}
	participants, err := s.dms.ParticipantIDs(ctx, dmID)
	if err != nil {
		return Message{}, err
	}
	if !contains(participants, senderID) {
		return Message{}, ErrForbidden
	}

	m := Message{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		DMID:      &dmID,
		Content:   content,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.store.Save(ctx, m); err != nil {
		return Message{}, err
	}
	s.fanOut(ctx, m, participants)
	return m, nil
}

// ListByGroup returns a page of the group's history, newest first, and
// whether more messages remain beyond it. The caller must be a member.
func (s *Service) ListByGroup(ctx context.Context, userID, groupID string, limit, offset int) ([]Message, bool, error) {
	members, err := s.groups.MemberIDs(ctx, groupID)
	if err != nil {
		return nil, false, err
	}
	if !contains(members, userID) {
		return nil, false, ErrForbidden
	}
	limit, offset = clampPage(limit, offset)
	// Fetch one past the page to learn whether another page exists.
	page, err := s.store.FindByGroup(ctx, groupID, limit+1, offset)
	if err != nil {
		return nil, false, err
	}
	return trimProbe(page, limit)
}

// ListByDM is ListByGroup for direct conversations.
func (s *Service) ListByDM(ctx context.Context, userID, dmID string, limit, offset int) ([]Message, bool, error) {
	participants, err := s.dms.ParticipantIDs(ctx, dmID)
	if err != nil {
		return nil, false, err
	}
	if !contains(participants, userID) {
		return nil, false, ErrForbidden
	}
	limit, offset = clampPage(limit, offset)
	page, err := s.store.FindByDM(ctx, dmID, limit+1, offset)
	if err != nil {
		return nil, false, err
	}
	return trimProbe(page, limit)
}

// Edit replaces the content of the caller's own message and stamps EditedAt.
func (s *Service) Edit(ctx context.Context, userID, messageID, content string) (Message, error) {
	if content == "" {
		return Message{}, ErrInvalidArgument
	}
	m, ok, err := s.store.FindByID(ctx, messageID)
	if err != nil {
		return Message{}, err
	}
	if !ok {
		return Message{}, ErrNotFound
	}
	if m.SenderID != userID {
		return Message{}, ErrForbidden
	}

	now := s.clock().UTC()
	updated, ok, err := s.store.Update(ctx, messageID, func(m Message) Message {
		m.Content = content
		m.EditedAt = &now
		return m
	})
	if err != nil {
		return Message{}, err
	}
	if !ok {
		return Message{}, ErrNotFound
	}
	return updated, nil
}

// Delete removes the caller's own message.
func (s *Service) Delete(ctx context.Context, userID, messageID string) error {
	m, ok, err := s.store.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if m.SenderID != userID {
		return ErrForbidden
	}
	if _, err := s.store.Delete(ctx, messageID); err != nil {
		return err
	}
	return nil
}

func (s *Service) fanOut(ctx context.Context, m Message, recipients []string) {
	env, err := protocol.EncodeNewMessage(protocol.MessagePayload{
		ID:         m.ID,
		SenderID:   m.SenderID,
		SenderName: s.users.DisplayName(ctx, m.SenderID),
		GroupID:    m.GroupID,
		DMID:       m.DMID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		EditedAt:   m.EditedAt,
	})
	if err != nil {
		s.log.Error("encode new_message", "messageId", m.ID, "error", err)
		return
	}
	s.notifier.SendToMany(recipients, env)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func trimProbe(page []Message, limit int) ([]Message, bool, error) {
	if len(page) > limit {
		return page[:limit], true, nil
	}
	return page, false, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
