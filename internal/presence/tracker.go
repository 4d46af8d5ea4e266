package presence

import (
	"sort"
	"sync"
)

// Tracker is the process-wide set of identities with at least one open
// session. It is owned by the delivery engine and shared by every connection
// handler, so all mutations go through the mutex.
type Tracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{online: make(map[string]struct{})}
}

func (t *Tracker) Add(user string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.online[user] = struct{}{}
}

func (t *Tracker) Remove(user string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.online, user)
}

func (t *Tracker) Contains(user string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[user]
	return ok
}

// Snapshot returns the full set of online identities, sorted so that
// presence broadcasts are stable. O(online users) per call, which the
// full-snapshot presence protocol accepts.
func (t *Tracker) Snapshot() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.online))
	for user := range t.online {
		out = append(out, user)
	}
	sort.Strings(out)
	return out
}
