package dm

import "time"

// Conversation is a direct-message channel between exactly two users.
// ActiveCallID is the active-call pointer for direct calls between the two
// participants; the call orchestrator is the only writer.
type Conversation struct {
	ID             string    `json:"id"`
	Participant1ID string    `json:"participant1Id"`
	Participant2ID string    `json:"participant2Id"`
	ActiveCallID   string    `json:"activeCallId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c Conversation) HasParticipant(userID string) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

// OtherParticipant returns the participant that is not userID.
func (c Conversation) OtherParticipant(userID string) string {
	if c.Participant1ID == userID {
		return c.Participant2ID
	}
	return c.Participant1ID
}
