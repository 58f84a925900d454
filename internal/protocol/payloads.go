package protocol

import "time"

// TypingIndicator is both inbound and outbound; the server re-broadcasts it
// to the members of the named group or conversation.
type TypingIndicator struct {
	UserID   string  `json:"userId"`
	UserName string  `json:"userName"`
	GroupID  *string `json:"groupId"`
	DMID     *string `json:"dmId"`
	IsTyping bool    `json:"isTyping"`
}

// SignalEnvelope is the decoded view of a WebRTC relay payload. Only the
// routing fields are read; the payload itself is forwarded verbatim.
type SignalEnvelope struct {
	CallID     *string `json:"callId"`
	FromUserID *string `json:"fromUserId"`
	ToUserID   string  `json:"toUserId"`
	Signal     string  `json:"signal"`
	Ended      *bool   `json:"ended,omitempty"`
}

// MuteToggle is the inbound request to flip the sender's mute flag in a call.
type MuteToggle struct {
	CallID  string `json:"callId"`
	IsMuted bool   `json:"isMuted"`
}

// ParticipantPayload is the wire form of a call participant.
type ParticipantPayload struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
	IsMuted     bool      `json:"isMuted"`
}

// CallPayload is the wire form of a call.
type CallPayload struct {
	ID           string               `json:"id"`
	Type         string               `json:"type"`
	InitiatorID  string               `json:"initiatorId"`
	GroupID      *string              `json:"groupId"`
	RecipientID  *string              `json:"recipientId"`
	Participants []ParticipantPayload `json:"participants"`
	Status       string               `json:"status"`
	StartedAt    time.Time            `json:"startedAt"`
	EndedAt      *time.Time           `json:"endedAt"`
}

// MessagePayload is the wire form of a chat message.
type MessagePayload struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"senderId"`
	SenderName string     `json:"senderName"`
	GroupID    *string    `json:"groupId"`
	DMID       *string    `json:"dmId"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
	EditedAt   *time.Time `json:"editedAt"`
}

type userStatusUpdate struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type newMessageNotification struct {
	Message MessagePayload `json:"message"`
}

type callInitiatedNotification struct {
	Call       CallPayload `json:"call"`
	CallerName string      `json:"callerName"`
}

type callStatusUpdate struct {
	CallID string `json:"callId"`
	Status string `json:"status"`
}

// ParticipantUpdate announces membership and mute changes within a call.
// Action is one of "started_call", "joined", "left", "muted", "unmuted".
type ParticipantUpdate struct {
	CallID   string `json:"callId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Action   string `json:"action"`
	IsMuted  *bool  `json:"isMuted"`
}

// One encode function per outbound kind; dispatch is always on the tag,
// never on the runtime type of an untyped value.

func EncodeTypingIndicator(p TypingIndicator) (Envelope, error) {
	return encode(TypeTyping, p)
}

func EncodeNewMessage(m MessagePayload) (Envelope, error) {
	return encode(TypeNewMessage, newMessageNotification{Message: m})
}

func EncodeUserStatus(userID, status string) (Envelope, error) {
	return encode(TypeUserStatus, userStatusUpdate{UserID: userID, Status: status})
}

func EncodeCallInitiated(call CallPayload, callerName string) (Envelope, error) {
	return encode(TypeCallInitiated, callInitiatedNotification{Call: call, CallerName: callerName})
}

func EncodeCallStatus(callID, status string) (Envelope, error) {
	return encode(TypeCallStatus, callStatusUpdate{CallID: callID, Status: status})
}

func EncodeParticipantUpdate(p ParticipantUpdate) (Envelope, error) {
	return encode(TypeParticipantUpdate, p)
}
