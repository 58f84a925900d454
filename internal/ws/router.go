package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"chat-platform/internal/call"
	"chat-platform/internal/protocol"
)

// Calls is the slice of the call orchestrator the router invokes directly.
type Calls interface {
	ToggleMute(ctx context.Context, callID, userID string, isMuted bool) (call.Call, error)
}

// Members resolves group membership for typing-indicator scoping.
type Members interface {
	MemberIDs(ctx context.Context, groupID string) ([]string, error)
}

// Conversations resolves direct-conversation participants for the same.
type Conversations interface {
	ParticipantIDs(ctx context.Context, dmID string) ([]string, error)
}

// Router demultiplexes inbound frames by type tag. A malformed frame is
// dropped with a diagnostic; the connection stays open.
type Router struct {
	registry *Registry
	calls    Calls
	groups   Members
	dms      Conversations
	log      *slog.Logger
}

func NewRouter(registry *Registry, calls Calls, groups Members, dms Conversations, log *slog.Logger) *Router {
	return &Router{
		registry: registry,
		calls:    calls,
		groups:   groups,
		dms:      dms,
		log:      log,
	}
}

// HandleFrame processes one inbound frame from senderID's session.
func (rt *Router) HandleFrame(ctx context.Context, senderID string, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		rt.log.Debug("dropping malformed frame", "userId", senderID, "error", err)
		return
	}

	switch {
	case env.Type == protocol.TypePing:
		rt.registry.SendTo(senderID, protocol.Pong())

	case env.Type == protocol.TypeTyping:
		rt.handleTyping(ctx, senderID, env.Data)

	case protocol.IsSignalRelay(env.Type):
		rt.relaySignal(senderID, env)

	case env.Type == protocol.TypeMuteToggle:
		rt.handleMuteToggle(ctx, senderID, env.Data)

	default:
		rt.log.Debug("ignoring unknown frame type", "userId", senderID, "type", env.Type)
	}
}

// handleTyping re-broadcasts the indicator to the members of the named group
// or conversation, sender excluded. The sender id in the payload is forced
// to the session's identity.
func (rt *Router) handleTyping(ctx context.Context, senderID string, data json.RawMessage) {
	var p protocol.TypingIndicator
	if err := json.Unmarshal(data, &p); err != nil {
		rt.log.Debug("dropping malformed typing_indicator", "userId", senderID, "error", err)
		return
	}
	p.UserID = senderID

	var (
		recipients []string
		err        error
	)
	switch {
	case p.GroupID != nil:
		recipients, err = rt.groups.MemberIDs(ctx, *p.GroupID)
	case p.DMID != nil:
		recipients, err = rt.dms.ParticipantIDs(ctx, *p.DMID)
	default:
		rt.log.Debug("dropping typing_indicator without scope", "userId", senderID)
		return
	}
	if err != nil {
		rt.log.Debug("typing_indicator scope lookup failed", "userId", senderID, "error", err)
		return
	}
	if !containsID(recipients, senderID) {
		rt.log.Debug("typing_indicator from non-member", "userId", senderID)
		return
	}

	env, err := protocol.EncodeTypingIndicator(p)
	if err != nil {
		rt.log.Error("encode typing_indicator", "userId", senderID, "error", err)
		return
	}
	rt.registry.SendToMany(withoutID(recipients, senderID), env)
}

// relaySignal forwards a WebRTC payload byte-identical to the target session.
func (rt *Router) relaySignal(senderID string, env protocol.Envelope) {
	var p protocol.SignalEnvelope
	if err := json.Unmarshal(env.Data, &p); err != nil {
		rt.log.Debug("dropping malformed signal frame", "userId", senderID, "type", env.Type, "error", err)
		return
	}
	if p.ToUserID == "" {
		rt.log.Debug("dropping signal frame without target", "userId", senderID, "type", env.Type)
		return
	}
	rt.registry.SendTo(p.ToUserID, protocol.Relay(env.Type, env.Data))
}

func (rt *Router) handleMuteToggle(ctx context.Context, senderID string, data json.RawMessage) {
	var p protocol.MuteToggle
	if err := json.Unmarshal(data, &p); err != nil {
		rt.log.Debug("dropping malformed mute_toggle", "userId", senderID, "error", err)
		return
	}
	if _, err := rt.calls.ToggleMute(ctx, p.CallID, senderID, p.IsMuted); err != nil {
		rt.log.Debug("mute_toggle rejected", "userId", senderID, "callId", p.CallID, "error", err)
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func withoutID(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
