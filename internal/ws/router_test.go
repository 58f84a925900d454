package ws

import (
	"context"
	"encoding/json"
	"testing"

	"chat-platform/internal/call"
	"chat-platform/internal/protocol"
)

type muteCall struct {
	callID  string
	userID  string
	isMuted bool
}

type fakeCalls struct {
	toggles []muteCall
}

func (f *fakeCalls) ToggleMute(_ context.Context, callID, userID string, isMuted bool) (call.Call, error) {
	f.toggles = append(f.toggles, muteCall{callID: callID, userID: userID, isMuted: isMuted})
	return call.Call{}, nil
}

type fakeMembers struct{ members map[string][]string }

func (f fakeMembers) MemberIDs(_ context.Context, groupID string) ([]string, error) {
	return f.members[groupID], nil
}

type fakeParticipants struct{ participants map[string][]string }

func (f fakeParticipants) ParticipantIDs(_ context.Context, dmID string) ([]string, error) {
	return f.participants[dmID], nil
}

type routerFixture struct {
	router   *Router
	registry *Registry
	calls    *fakeCalls
	sessions map[string]*Session
}

func newRouterFixture(userIDs ...string) *routerFixture {
	registry := NewRegistry(testLogger())
	sessions := make(map[string]*Session)
	for _, id := range userIDs {
		s := testSession(id)
		sessions[id] = s
		registry.Register(id, s)
	}
	calls := &fakeCalls{}
	router := NewRouter(
		registry,
		calls,
		fakeMembers{members: map[string][]string{"g1": {"a", "b", "c"}}},
		fakeParticipants{participants: map[string][]string{"d1": {"a", "b"}}},
		testLogger(),
	)
	return &routerFixture{router: router, registry: registry, calls: calls, sessions: sessions}
}

func (f *routerFixture) assertIdle(t *testing.T, userIDs ...string) {
	t.Helper()
	for _, id := range userIDs {
		select {
		case frame := <-f.sessions[id].send:
			t.Fatalf("unexpected frame for %s: %s", id, frame)
		default:
		}
	}
}

func TestPingGetsPong(t *testing.T) {
	f := newRouterFixture("a", "b")

	f.router.HandleFrame(context.Background(), "a", []byte(`{"type":"ping","data":""}`))

	if got := string(recvFrame(t, f.sessions["a"])); got != `{"type":"pong","data":""}` {
		t.Fatalf("unexpected pong frame: %s", got)
	}
	f.assertIdle(t, "b")
}

func TestSignalRelayedVerbatimToTargetOnly(t *testing.T) {
	f := newRouterFixture("a", "b", "c")
	inbound := []byte(`{"type":"webrtc_offer","data":{"callId":"c1","fromUserId":"a","toUserId":"b","signal":"SDP-XYZ"}}`)

	f.router.HandleFrame(context.Background(), "a", inbound)

	var env protocol.Envelope
	if err := json.Unmarshal(recvFrame(t, f.sessions["b"]), &env); err != nil {
		t.Fatalf("decode relayed frame: %v", err)
	}
	if env.Type != protocol.TypeWebRTCOffer {
		t.Fatalf("relayed type = %q", env.Type)
	}
	var payload struct {
		Signal string `json:"signal"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Signal != "SDP-XYZ" {
		t.Fatalf("signal altered in transit: %q", payload.Signal)
	}
	f.assertIdle(t, "a", "c")
}

func TestSignalWithoutTargetIsDropped(t *testing.T) {
	f := newRouterFixture("a", "b")

	f.router.HandleFrame(context.Background(), "a", []byte(`{"type":"ice_candidate","data":{"signal":"x"}}`))

	f.assertIdle(t, "a", "b")
}

func TestTypingIndicatorScopedToGroupMembers(t *testing.T) {
	f := newRouterFixture("a", "b", "c", "d")
	inbound := []byte(`{"type":"typing_indicator","data":{"userId":"spoofed","userName":"Alice","groupId":"g1","dmId":null,"isTyping":true}}`)

	f.router.HandleFrame(context.Background(), "a", inbound)

	for _, id := range []string{"b", "c"} {
		var env protocol.Envelope
		if err := json.Unmarshal(recvFrame(t, f.sessions[id]), &env); err != nil {
			t.Fatalf("decode frame for %s: %v", id, err)
		}
		var p protocol.TypingIndicator
		if err := json.Unmarshal(env.Data, &p); err != nil {
			t.Fatalf("decode payload for %s: %v", id, err)
		}
		if p.UserID != "a" {
			t.Fatalf("sender identity not enforced: %q", p.UserID)
		}
	}
	// Not the sender, and never anyone outside the group.
	f.assertIdle(t, "a", "d")
}

func TestTypingIndicatorFromNonMemberIsDropped(t *testing.T) {
	f := newRouterFixture("a", "b", "d")
	inbound := []byte(`{"type":"typing_indicator","data":{"userId":"d","userName":"Dave","groupId":"g1","dmId":null,"isTyping":true}}`)

	f.router.HandleFrame(context.Background(), "d", inbound)

	f.assertIdle(t, "a", "b", "d")
}

func TestTypingIndicatorScopedToConversation(t *testing.T) {
	f := newRouterFixture("a", "b", "c")
	inbound := []byte(`{"type":"typing_indicator","data":{"userId":"a","userName":"Alice","groupId":null,"dmId":"d1","isTyping":false}}`)

	f.router.HandleFrame(context.Background(), "a", inbound)

	recvFrame(t, f.sessions["b"])
	f.assertIdle(t, "a", "c")
}

func TestMuteToggleInvokesOrchestratorAsSender(t *testing.T) {
	f := newRouterFixture("a")

	f.router.HandleFrame(context.Background(), "a", []byte(`{"type":"mute_toggle","data":{"callId":"c1","isMuted":true}}`))

	if len(f.calls.toggles) != 1 {
		t.Fatalf("toggles = %v", f.calls.toggles)
	}
	got := f.calls.toggles[0]
	if got.callID != "c1" || got.userID != "a" || !got.isMuted {
		t.Fatalf("unexpected toggle: %+v", got)
	}
}

func TestMalformedAndUnknownFramesAreDropped(t *testing.T) {
	f := newRouterFixture("a", "b")

	for _, raw := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"data":{}}`),
		[]byte(`{"type":"time_travel","data":{}}`),
		[]byte(`{"type":"typing_indicator","data":"not an object"}`),
	} {
		f.router.HandleFrame(context.Background(), "a", raw)
	}

	f.assertIdle(t, "a", "b")
}
