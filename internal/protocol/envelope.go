// Package protocol defines the realtime wire contract: every frame is an
// envelope {"type": tag, "data": payload} where data is the JSON payload for
// that type, encoded exactly once. It is never re-stringified into a quoted
// string and never nested twice.
package protocol

import (
	"encoding/json"
	"errors"
)

// Inbound type tags.
const (
	TypePing       = "ping"
	TypeTyping     = "typing_indicator"
	TypeMuteToggle = "mute_toggle"
)

// Signal relay tags: inbound and forwarded verbatim to the target session.
const (
	TypeWebRTCOffer  = "webrtc_offer"
	TypeWebRTCAnswer = "webrtc_answer"
	TypeICECandidate = "ice_candidate"
	TypeCallEnded    = "call_ended"
)

// Outbound type tags.
const (
	TypePong              = "pong"
	TypeNewMessage        = "new_message"
	TypeUserStatus        = "user_status"
	TypeCallInitiated     = "call_initiated"
	TypeCallStatus        = "call_status"
	TypeParticipantUpdate = "participant_update"
)

// Envelope is the outer wrapper for every realtime frame, in both
// directions. Data holds the payload bytes as-is.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

var errMissingType = errors.New("envelope has no type")

// Decode parses a raw frame into an Envelope. The payload is not decoded;
// callers dispatch on Type and decode Data themselves.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, errMissingType
	}
	return env, nil
}

// IsSignalRelay reports whether t is one of the WebRTC relay tags.
func IsSignalRelay(t string) bool {
	switch t {
	case TypeWebRTCOffer, TypeWebRTCAnswer, TypeICECandidate, TypeCallEnded:
		return true
	}
	return false
}

// Relay wraps already-encoded payload bytes under the given tag without
// touching them. Used for the WebRTC signal types, whose payloads must reach
// the target byte-identical.
func Relay(typeTag string, data json.RawMessage) Envelope {
	return Envelope{Type: typeTag, Data: data}
}

var emptyData = json.RawMessage(`""`)

// Pong is the reply to a ping frame. Like ping, it carries no payload.
func Pong() Envelope {
	return Envelope{Type: TypePong, Data: emptyData}
}

func encode(typeTag string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: typeTag, Data: data}, nil
}
