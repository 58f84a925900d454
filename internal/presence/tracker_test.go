package presence

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"chat-platform/internal/protocol"
)

type captureBroadcaster struct {
	envs []protocol.Envelope
}

func (c *captureBroadcaster) BroadcastAll(env protocol.Envelope) {
	c.envs = append(c.envs, env)
}

func newTestTracker() (*Tracker, *captureBroadcaster) {
	b := &captureBroadcaster{}
	return NewTracker(b, nil, slog.New(slog.NewJSONHandler(io.Discard, nil))), b
}

func TestUpdateStatusBroadcastsGlobally(t *testing.T) {
	tr, b := newTestTracker()

	tr.UpdateStatus(context.Background(), "u1", StatusOnline)

	if got := tr.Status("u1"); got != StatusOnline {
		t.Fatalf("status = %q, want ONLINE", got)
	}
	if len(b.envs) != 1 || b.envs[0].Type != protocol.TypeUserStatus {
		t.Fatalf("unexpected broadcast: %+v", b.envs)
	}

	var payload struct {
		UserID string `json:"userId"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(b.envs[0].Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.UserID != "u1" || payload.Status != "ONLINE" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestUnknownUserIsOffline(t *testing.T) {
	tr, _ := newTestTracker()
	if got := tr.Status("ghost"); got != StatusOffline {
		t.Fatalf("status = %q, want OFFLINE", got)
	}
}

func TestOfflineClearsTrackedState(t *testing.T) {
	tr, _ := newTestTracker()
	ctx := context.Background()

	tr.UpdateStatus(ctx, "u1", StatusInCall)
	tr.SetCurrentCall("u1", "call-1")

	tr.UpdateStatus(ctx, "u1", StatusOffline)

	if got := tr.Status("u1"); got != StatusOffline {
		t.Fatalf("status = %q, want OFFLINE", got)
	}
	if _, ok := tr.CurrentCall("u1"); ok {
		t.Fatal("current call should be cleared on OFFLINE")
	}
	if len(tr.Snapshot()) != 0 {
		t.Fatalf("snapshot not empty: %v", tr.Snapshot())
	}
}

func TestCurrentCallSetAndClear(t *testing.T) {
	tr, _ := newTestTracker()

	tr.SetCurrentCall("u1", "call-1")
	if id, ok := tr.CurrentCall("u1"); !ok || id != "call-1" {
		t.Fatalf("current call = %q/%v", id, ok)
	}

	tr.SetCurrentCall("u1", "")
	if _, ok := tr.CurrentCall("u1"); ok {
		t.Fatal("current call should be cleared")
	}
}
