// Package call owns the call lifecycle and participant membership for direct
// and group calls. All mutating operations on the call table run under one
// lock, so operations against the same call never interleave and presence
// and active-call pointer side effects land atomically with the state change.
package call

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-platform/internal/dm"
	"chat-platform/internal/group"
	"chat-platform/internal/presence"
	"chat-platform/internal/protocol"
)

var (
	ErrNotFound       = errors.New("call not found")
	ErrUserBusy       = errors.New("user already in a call")
	ErrInvalidState   = errors.New("call is not in a valid state for this operation")
	ErrCallInProgress = errors.New("group already has an active call")
	ErrNotMember      = errors.New("not a group member")
	ErrNotParticipant = errors.New("not a call participant")
)

// Notifier delivers envelopes to connected sessions. Delivery is best effort;
// a missing or failing recipient never aborts the operation.
type Notifier interface {
	SendTo(userID string, env protocol.Envelope)
	SendToMany(userIDs []string, env protocol.Envelope)
}

// Presence reflects call membership into the presence table.
type Presence interface {
	UpdateStatus(ctx context.Context, userID string, status presence.Status)
	SetCurrentCall(userID, callID string)
}

// Directory resolves display names for outbound notifications.
type Directory interface {
	DisplayName(ctx context.Context, userID string) string
}

// Conversations is the direct-conversation store holding the active-call
// pointer for two-party calls.
type Conversations interface {
	CreateOrGet(ctx context.Context, a, b string) (dm.Conversation, error)
	SetActiveCall(ctx context.Context, dmID, callID string) error
}

// Groups is the group store holding the active-call pointer for group calls.
type Groups interface {
	FindByID(ctx context.Context, id string) (group.Group, error)
	SetActiveCall(ctx context.Context, groupID, callID string) error
}

type Service struct {
	mu    sync.Mutex
	calls map[string]*Call

	notifier Notifier
	presence Presence
	users    Directory
	dms      Conversations
	groups   Groups
	log      *slog.Logger
	clock    func() time.Time
}

func NewService(notifier Notifier, pres Presence, users Directory, dms Conversations, groups Groups, log *slog.Logger) *Service {
	return &Service{
		calls:    make(map[string]*Call),
		notifier: notifier,
		presence: pres,
		users:    users,
		dms:      dms,
		groups:   groups,
		log:      log,
		clock:    time.Now,
	}
}

// InitiateDirect starts a two-party call from caller to recipient. It fails
// with ErrUserBusy if either party is already in a call that has not ended.
// The recipient is notified; the caller gets the call back as the result.
func (s *Service) InitiateDirect(ctx context.Context, callerID, recipientID string) (Call, error) {
	if callerID == "" || recipientID == "" || callerID == recipientID {
		return Call{}, ErrInvalidState
	}

	s.mu.Lock()
	for _, c := range s.calls {
		if c.involves(callerID) || c.involves(recipientID) {
			s.mu.Unlock()
			return Call{}, ErrUserBusy
		}
	}

	now := s.clock().UTC()
	conv, err := s.dms.CreateOrGet(ctx, callerID, recipientID)
	if err != nil {
		s.mu.Unlock()
		return Call{}, err
	}

	c := &Call{
		ID:          uuid.NewString(),
		Type:        TypeDirect,
		InitiatorID: callerID,
		RecipientID: &recipientID,
		Status:      StatusRinging,
		StartedAt:   now,
		Participants: []Participant{
			{UserID: callerID, JoinedAt: now},
		},
		dmID: conv.ID,
	}
	if err := s.dms.SetActiveCall(ctx, conv.ID, c.ID); err != nil {
		s.mu.Unlock()
		return Call{}, err
	}
	s.calls[c.ID] = c
	s.presence.SetCurrentCall(callerID, c.ID)
	s.presence.UpdateStatus(ctx, callerID, presence.StatusInCall)
	out := c.snapshot()
	s.mu.Unlock()

	env, err := protocol.EncodeCallInitiated(s.Payload(ctx, out), s.users.DisplayName(ctx, callerID))
	if err != nil {
		s.log.Error("encode call_initiated", "callId", out.ID, "error", err)
		return out, nil
	}
	s.notifier.SendTo(recipientID, env)
	return out, nil
}

// Accept answers a ringing call. The call transitions to ACTIVE and every
// participant, the acceptor included, is told the new status.
func (s *Service) Accept(ctx context.Context, callID, userID string) (Call, error) {
	s.mu.Lock()
	c, ok := s.calls[callID]
	if !ok {
		s.mu.Unlock()
		return Call{}, ErrNotFound
	}
	if c.Status != StatusRinging {
		s.mu.Unlock()
		return Call{}, ErrInvalidState
	}
	if !c.hasParticipant(userID) {
		c.Participants = append(c.Participants, Participant{UserID: userID, JoinedAt: s.clock().UTC()})
	}
	c.Status = StatusActive
	s.presence.SetCurrentCall(userID, c.ID)
	s.presence.UpdateStatus(ctx, userID, presence.StatusInCall)
	out := c.snapshot()
	s.mu.Unlock()

	s.notifyStatus(out, participantIDs(out))
	return out, nil
}

// Reject declines a ringing call. The call ends, the initiator's presence
// returns to ONLINE, the conversation's active-call pointer is cleared, and
// only the initiator is notified.
func (s *Service) Reject(ctx context.Context, callID, userID string) (Call, error) {
	s.mu.Lock()
	c, ok := s.calls[callID]
	if !ok {
		s.mu.Unlock()
		return Call{}, ErrNotFound
	}
	if c.Status != StatusRinging {
		s.mu.Unlock()
		return Call{}, ErrInvalidState
	}
	now := s.clock().UTC()
	c.Status = StatusEnded
	c.EndedAt = &now
	if err := s.clearPointer(ctx, c); err != nil {
		s.log.Error("clear active-call pointer", "callId", c.ID, "error", err)
	}
	s.presence.SetCurrentCall(c.InitiatorID, "")
	s.presence.UpdateStatus(ctx, c.InitiatorID, presence.StatusOnline)
	out := c.snapshot()
	s.mu.Unlock()

	s.notifyStatus(out, []string{out.InitiatorID})
	return out, nil
}

// End terminates a call from any state that is not already ENDED. Every
// participant's presence returns to ONLINE, the owning group's or
// conversation's active-call pointer is cleared, and every participant is
// notified.
func (s *Service) End(ctx context.Context, callID, userID string) (Call, error) {
	s.mu.Lock()
	c, ok := s.calls[callID]
	if !ok {
		s.mu.Unlock()
		return Call{}, ErrNotFound
	}
	if c.Status == StatusEnded {
		s.mu.Unlock()
		return Call{}, ErrInvalidState
	}
	now := s.clock().UTC()
	c.Status = StatusEnded
	c.EndedAt = &now
	if err := s.clearPointer(ctx, c); err != nil {
		s.log.Error("clear active-call pointer", "callId", c.ID, "error", err)
	}
	for _, p := range c.Participants {
		s.presence.SetCurrentCall(p.UserID, "")
		s.presence.UpdateStatus(ctx, p.UserID, presence.StatusOnline)
	}
	out := c.snapshot()
	s.mu.Unlock()

	s.notifyStatus(out, participantIDs(out))
	return out, nil
}

// StartGroup begins a group call. Group calls skip RINGING and start ACTIVE
// with the starter as sole participant. It fails with ErrCallInProgress if
// the group already has an active call.
func (s *Service) StartGroup(ctx context.Context, groupID, userID string) (Call, error) {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return Call{}, err
	}
	if !g.HasMember(userID) {
		return Call{}, ErrNotMember
	}

	s.mu.Lock()
	if g.ActiveCallID != "" || s.groupHasLiveCall(groupID) {
		s.mu.Unlock()
		return Call{}, ErrCallInProgress
	}

	now := s.clock().UTC()
	c := &Call{
		ID:          uuid.NewString(),
		Type:        TypeGroup,
		InitiatorID: userID,
		GroupID:     &groupID,
		Status:      StatusActive,
		StartedAt:   now,
		Participants: []Participant{
			{UserID: userID, JoinedAt: now},
		},
	}
	if err := s.groups.SetActiveCall(ctx, groupID, c.ID); err != nil {
		s.mu.Unlock()
		return Call{}, err
	}
	s.calls[c.ID] = c
	s.presence.SetCurrentCall(userID, c.ID)
	s.presence.UpdateStatus(ctx, userID, presence.StatusInCall)
	out := c.snapshot()
	s.mu.Unlock()

	s.notifyParticipantUpdate(ctx, out.ID, userID, "started_call", nil, otherIDs(g.MemberIDs, userID))
	return out, nil
}

// JoinGroup adds the user to an active group call. Joining a call the user is
// already in returns the unchanged call with no side effects.
func (s *Service) JoinGroup(ctx context.Context, callID, userID string) (Call, error) {
	s.mu.Lock()
	c, ok := s.calls[callID]
	if !ok {
		s.mu.Unlock()
		return Call{}, ErrNotFound
	}
	if c.Type != TypeGroup || c.Status != StatusActive {
		s.mu.Unlock()
		return Call{}, ErrInvalidState
	}
	if c.hasParticipant(userID) {
		out := c.snapshot()
		s.mu.Unlock()
		return out, nil
	}
	c.Participants = append(c.Participants, Participant{UserID: userID, JoinedAt: s.clock().UTC()})
	s.presence.SetCurrentCall(userID, c.ID)
	s.presence.UpdateStatus(ctx, userID, presence.StatusInCall)
	out := c.snapshot()
	s.mu.Unlock()

	s.notifyParticipantUpdate(ctx, out.ID, userID, "joined", nil, otherIDs(participantIDs(out), userID))
	return out, nil
}

// LeaveGroup removes the user from a group call. The last participant leaving
// ends the call and clears the group's active-call pointer, exactly once even
// when leaves race.
func (s *Service) LeaveGroup(ctx context.Context, callID, userID string) (Call, error) {
	s.mu.Lock()
	c, ok := s.calls[callID]
	if !ok {
		s.mu.Unlock()
		return Call{}, ErrNotFound
	}
	if c.Type != TypeGroup {
		s.mu.Unlock()
		return Call{}, ErrInvalidState
	}
	idx := c.participantIndex(userID)
	if idx < 0 {
		s.mu.Unlock()
		return Call{}, ErrNotParticipant
	}
	c.Participants = append(c.Participants[:idx], c.Participants[idx+1:]...)
	s.presence.SetCurrentCall(userID, "")
	s.presence.UpdateStatus(ctx, userID, presence.StatusOnline)
	if len(c.Participants) == 0 && c.Status != StatusEnded {
		now := s.clock().UTC()
		c.Status = StatusEnded
		c.EndedAt = &now
		if err := s.clearPointer(ctx, c); err != nil {
			s.log.Error("clear active-call pointer", "callId", c.ID, "error", err)
		}
	}
	out := c.snapshot()
	s.mu.Unlock()

	s.notifyParticipantUpdate(ctx, out.ID, userID, "left", nil, participantIDs(out))
	return out, nil
}

// ToggleMute flips the user's muted flag within a call and tells the other
// participants. Status and membership are untouched.
func (s *Service) ToggleMute(ctx context.Context, callID, userID string, isMuted bool) (Call, error) {
	s.mu.Lock()
	c, ok := s.calls[callID]
	if !ok {
		s.mu.Unlock()
		return Call{}, ErrNotFound
	}
	idx := c.participantIndex(userID)
	if idx < 0 {
		s.mu.Unlock()
		return Call{}, ErrNotParticipant
	}
	c.Participants[idx].IsMuted = isMuted
	out := c.snapshot()
	s.mu.Unlock()

	action := "unmuted"
	if isMuted {
		action = "muted"
	}
	s.notifyParticipantUpdate(ctx, out.ID, userID, action, &isMuted, otherIDs(participantIDs(out), userID))
	return out, nil
}

// FindByID returns a copy of the call, or ErrNotFound.
func (s *Service) FindByID(ctx context.Context, callID string) (Call, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c.snapshot(), nil
}

// Payload builds the wire form of a call with display names resolved.
func (s *Service) Payload(ctx context.Context, c Call) protocol.CallPayload {
	p := Payload(c)
	for i := range p.Participants {
		p.Participants[i].DisplayName = s.users.DisplayName(ctx, p.Participants[i].UserID)
	}
	return p
}

// clearPointer must be called with the lock held, after the ENDED transition.
func (s *Service) clearPointer(ctx context.Context, c *Call) error {
	switch c.Type {
	case TypeDirect:
		return s.dms.SetActiveCall(ctx, c.dmID, "")
	case TypeGroup:
		return s.groups.SetActiveCall(ctx, *c.GroupID, "")
	}
	return nil
}

// groupHasLiveCall must be called with the lock held. It guards against the
// window where a prior group call exists but its pointer write has not been
// observed yet.
func (s *Service) groupHasLiveCall(groupID string) bool {
	for _, c := range s.calls {
		if c.Type == TypeGroup && c.Status != StatusEnded && c.GroupID != nil && *c.GroupID == groupID {
			return true
		}
	}
	return false
}

func (s *Service) notifyStatus(c Call, recipients []string) {
	env, err := protocol.EncodeCallStatus(c.ID, string(c.Status))
	if err != nil {
		s.log.Error("encode call_status", "callId", c.ID, "error", err)
		return
	}
	s.notifier.SendToMany(recipients, env)
}

func (s *Service) notifyParticipantUpdate(ctx context.Context, callID, userID, action string, isMuted *bool, recipients []string) {
	if len(recipients) == 0 {
		return
	}
	env, err := protocol.EncodeParticipantUpdate(protocol.ParticipantUpdate{
		CallID:   callID,
		UserID:   userID,
		UserName: s.users.DisplayName(ctx, userID),
		Action:   action,
		IsMuted:  isMuted,
	})
	if err != nil {
		s.log.Error("encode participant_update", "callId", callID, "error", err)
		return
	}
	s.notifier.SendToMany(recipients, env)
}

func participantIDs(c Call) []string {
	out := make([]string, len(c.Participants))
	for i, p := range c.Participants {
		out[i] = p.UserID
	}
	return out
}

func otherIDs(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
