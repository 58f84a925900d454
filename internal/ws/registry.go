package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"chat-platform/internal/protocol"
)

// Registry maps each user id to at most one live session. Registering over
// an existing entry supersedes it without closing the old handle; teardown of
// the old connection remains its own goroutine's job.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		log:      log,
	}
}

func (r *Registry) Register(userID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = s
}

// Deregister removes the user's entry only if s is still the registered
// session. A reconnect that superseded s leaves the new session untouched,
// and the caller learns from the return value whether the user went offline.
func (r *Registry) Deregister(userID string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[userID]; ok && cur == s {
		delete(r.sessions, userID)
		return true
	}
	return false
}

func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

func (r *Registry) IsConnected(userID string) bool {
	_, ok := r.Get(userID)
	return ok
}

func (r *Registry) ConnectedIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

// SendTo delivers an envelope to one user. A disconnected user or a full
// send queue is not an error; the frame is dropped and the caller continues.
func (r *Registry) SendTo(userID string, env protocol.Envelope) {
	frame, err := json.Marshal(env)
	if err != nil {
		r.log.Error("marshal envelope", "type", env.Type, "error", err)
		return
	}
	r.deliver(userID, env.Type, frame)
}

// SendToMany delivers the envelope to each listed user independently; one
// failed recipient never blocks the rest. The envelope is marshaled once.
func (r *Registry) SendToMany(userIDs []string, env protocol.Envelope) {
	frame, err := json.Marshal(env)
	if err != nil {
		r.log.Error("marshal envelope", "type", env.Type, "error", err)
		return
	}
	for _, id := range userIDs {
		r.deliver(id, env.Type, frame)
	}
}

// BroadcastAll delivers the envelope to every connected session.
func (r *Registry) BroadcastAll(env protocol.Envelope) {
	r.SendToMany(r.ConnectedIDs(), env)
}

func (r *Registry) deliver(userID, typeTag string, frame []byte) {
	s, ok := r.Get(userID)
	if !ok {
		return
	}
	if !s.enqueue(frame) {
		r.log.Warn("dropping frame, session queue full or closed", "userId", userID, "type", typeTag)
	}
}
