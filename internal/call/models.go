package call

import (
	"time"

	"chat-platform/internal/protocol"
)

// Type distinguishes two-party calls from group calls.
type Type string

const (
	TypeDirect Type = "DIRECT"
	TypeGroup  Type = "GROUP"
)

// Status is the call lifecycle state. Transitions are monotonic:
// RINGING -> ACTIVE or ENDED, ACTIVE -> ENDED, ENDED is terminal.
type Status string

const (
	StatusRinging Status = "RINGING"
	StatusActive  Status = "ACTIVE"
	StatusEnded   Status = "ENDED"
)

// Participant is a user's membership record within a call. A user id appears
// at most once among a call's participants.
type Participant struct {
	UserID   string    `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
	IsMuted  bool      `json:"isMuted"`
}

// Call is a tracked voice/video interaction. For DIRECT calls RecipientID is
// set; for GROUP calls GroupID is set. dmID names the conversation whose
// active-call pointer this call holds, so teardown can clear it without a
// second lookup.
type Call struct {
	ID           string        `json:"id"`
	Type         Type          `json:"type"`
	InitiatorID  string        `json:"initiatorId"`
	RecipientID  *string       `json:"recipientId,omitempty"`
	GroupID      *string       `json:"groupId,omitempty"`
	Participants []Participant `json:"participants"`
	Status       Status        `json:"status"`
	StartedAt    time.Time     `json:"startedAt"`
	EndedAt      *time.Time    `json:"endedAt,omitempty"`

	dmID string
}

func (c *Call) hasParticipant(userID string) bool {
	return c.participantIndex(userID) >= 0
}

func (c *Call) participantIndex(userID string) int {
	for i, p := range c.Participants {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// involves reports whether the user is a party to a call that is not over:
// a current participant, or either end of a DIRECT call that is still
// ringing or active.
func (c *Call) involves(userID string) bool {
	if c.Status == StatusEnded {
		return false
	}
	if c.hasParticipant(userID) {
		return true
	}
	if c.Type == TypeDirect {
		if c.InitiatorID == userID {
			return true
		}
		if c.RecipientID != nil && *c.RecipientID == userID {
			return true
		}
	}
	return false
}

// snapshot returns a deep copy safe to hand out after the lock is released.
func (c *Call) snapshot() Call {
	out := *c
	out.Participants = make([]Participant, len(c.Participants))
	copy(out.Participants, c.Participants)
	if c.EndedAt != nil {
		t := *c.EndedAt
		out.EndedAt = &t
	}
	return out
}

// Payload converts a call into its wire representation.
func Payload(c Call) protocol.CallPayload {
	participants := make([]protocol.ParticipantPayload, len(c.Participants))
	for i, p := range c.Participants {
		participants[i] = protocol.ParticipantPayload{
			UserID:   p.UserID,
			JoinedAt: p.JoinedAt,
			IsMuted:  p.IsMuted,
		}
	}
	return protocol.CallPayload{
		ID:           c.ID,
		Type:         string(c.Type),
		InitiatorID:  c.InitiatorID,
		GroupID:      c.GroupID,
		RecipientID:  c.RecipientID,
		Participants: participants,
		Status:       string(c.Status),
		StartedAt:    c.StartedAt,
		EndedAt:      c.EndedAt,
	}
}
