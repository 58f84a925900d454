package message

import "time"

// Message is a chat message sent to either a group or a direct conversation.
// Exactly one of GroupID and DMID is set.
type Message struct {
	ID        string     `json:"id"`
	SenderID  string     `json:"senderId"`
	GroupID   *string    `json:"groupId,omitempty"`
	DMID      *string    `json:"dmId,omitempty"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
}
