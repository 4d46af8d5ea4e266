package sessions

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Event is one outbound frame destined for a client connection.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// Session is the ephemeral binding of one identity to one live outbound
// channel. An identity may own several sessions at once (multi-device);
// none of them is privileged over the others.
type Session struct {
	ID     uuid.UUID
	User   string
	events chan Event
}

// Events is the outbound channel the transport drains.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Registry maps an identity to the set of its live sessions. Fan-out to an
// identity iterates that set directly; there is no room indirection.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[uuid.UUID]*Session
	buffer int
	log    *slog.Logger
}

func NewRegistry(buffer int, log *slog.Logger) *Registry {
	return &Registry{
		byUser: make(map[string]map[uuid.UUID]*Session),
		buffer: buffer,
		log:    log,
	}
}

// Attach registers a new session for user and returns it.
func (r *Registry) Attach(user string) *Session {
	s := &Session{
		ID:     uuid.New(),
		User:   user,
		events: make(chan Event, r.buffer),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUser[user] == nil {
		r.byUser[user] = make(map[uuid.UUID]*Session)
	}
	r.byUser[user][s.ID] = s
	return s
}

// Detach removes the session and reports how many sessions the identity
// still owns, so the caller can drop presence only on the last close.
func (r *Registry) Detach(s *Session) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.byUser[s.User]
	if set == nil {
		return 0
	}
	delete(set, s.ID)
	if len(set) == 0 {
		delete(r.byUser, s.User)
		return 0
	}
	return len(set)
}

// Count reports the number of live sessions for user.
func (r *Registry) Count(user string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[user])
}

// SendTo fans one event out to every session of user. A session whose
// buffer is full loses the event; there is no retry. A user with no open
// session is a silent no-op.
func (r *Registry) SendTo(user string, evt Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.byUser[user] {
		r.push(s, evt)
	}
}

// Broadcast fans one event out to every open session of every identity.
func (r *Registry) Broadcast(evt Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, set := range r.byUser {
		for _, s := range set {
			r.push(s, evt)
		}
	}
}

func (r *Registry) push(s *Session, evt Event) {
	select {
	case s.events <- evt:
	default:
		r.log.Warn("session buffer full, dropping event", "user", s.User, "session", s.ID, "event", evt.Name)
	}
}
