// Package presence tracks each user's realtime status and announces changes
// to every connected client.
package presence

import (
	"context"
	"log/slog"
	"sync"

	"chat-platform/internal/protocol"
)

// Status is a user's presence state. Users with no recorded state are OFFLINE.
type Status string

const (
	StatusOnline  Status = "ONLINE"
	StatusAway    Status = "AWAY"
	StatusOffline Status = "OFFLINE"
	StatusInCall  Status = "IN_CALL"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusOffline, StatusInCall:
		return true
	}
	return false
}

// Broadcaster fans an envelope out to every connected session.
type Broadcaster interface {
	BroadcastAll(env protocol.Envelope)
}

// Mirror replicates presence writes to an external store. Mirror failures
// never block or fail the in-process update.
type Mirror interface {
	Set(ctx context.Context, userID string, status Status) error
}

// Tracker is the in-process presence table. Status changes are broadcast
// globally: any connected user may render any other user's presence.
type Tracker struct {
	mu          sync.RWMutex
	statuses    map[string]Status
	currentCall map[string]string

	broadcaster Broadcaster
	mirror      Mirror // nil when no external store is configured
	log         *slog.Logger
}

func NewTracker(broadcaster Broadcaster, mirror Mirror, log *slog.Logger) *Tracker {
	return &Tracker{
		statuses:    make(map[string]Status),
		currentCall: make(map[string]string),
		broadcaster: broadcaster,
		mirror:      mirror,
		log:         log,
	}
}

// UpdateStatus records the user's status and broadcasts a user_status
// envelope. OFFLINE removes the table entry rather than storing it.
func (t *Tracker) UpdateStatus(ctx context.Context, userID string, status Status) {
	t.mu.Lock()
	if status == StatusOffline {
		delete(t.statuses, userID)
		delete(t.currentCall, userID)
	} else {
		t.statuses[userID] = status
	}
	t.mu.Unlock()

	if t.mirror != nil {
		if err := t.mirror.Set(ctx, userID, status); err != nil {
			t.log.Warn("presence mirror write failed", "userId", userID, "error", err)
		}
	}

	env, err := protocol.EncodeUserStatus(userID, string(status))
	if err != nil {
		t.log.Error("encode user_status", "userId", userID, "error", err)
		return
	}
	t.broadcaster.BroadcastAll(env)
}

// Status returns the user's current status, OFFLINE when unknown.
func (t *Tracker) Status(userID string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.statuses[userID]; ok {
		return s
	}
	return StatusOffline
}

// SetCurrentCall records which call the user is in. An empty callID clears it.
func (t *Tracker) SetCurrentCall(userID, callID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if callID == "" {
		delete(t.currentCall, userID)
		return
	}
	t.currentCall[userID] = callID
}

// CurrentCall returns the id of the call the user is in, if any.
func (t *Tracker) CurrentCall(userID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.currentCall[userID]
	return id, ok
}

// Snapshot returns every tracked non-offline user and their status.
func (t *Tracker) Snapshot() map[string]Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]Status, len(t.statuses))
	for id, s := range t.statuses {
		out[id] = s
	}
	return out
}
