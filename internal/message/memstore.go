package message

import (
	"context"
	"sort"
	"sync"
	"time"

	"parley/infrastructure"
)

// MemStore is an in-memory Store with the same semantics as GormStore:
// monotonically increasing ids, rank-guarded status transitions, independent
// deletion flags. It backs tests and local development; nothing survives a
// restart.
type MemStore struct {
	mu     sync.Mutex
	nextID uint64
	direct map[uint64]*DirectMessage
	group  []GroupMessage
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{direct: make(map[uint64]*DirectMessage)}
}

func (s *MemStore) CreateDirect(_ context.Context, m *DirectMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	if m.Status == "" {
		m.Status = StatusSent
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	clone := *m
	s.direct[m.ID] = &clone
	return nil
}

func (s *MemStore) GetDirect(_ context.Context, id uint64) (*DirectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.direct[id]
	if !ok {
		return nil, infrastructure.ErrNotFound
	}
	clone := *m
	return &clone, nil
}

func (s *MemStore) AdvanceStatus(_ context.Context, id uint64, status Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.direct[id]
	if !ok {
		return false, nil
	}
	if m.Status.Rank() >= status.Rank() {
		return false, nil
	}
	m.Status = status
	return true, nil
}

func (s *MemStore) PendingFor(_ context.Context, receiver string) ([]DirectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DirectMessage
	for _, m := range s.direct {
		if m.Receiver == receiver && m.Status == StatusSent && !m.DeletedForReceiver {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) MarkSeen(_ context.Context, sender, receiver string) ([]DirectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected []DirectMessage
	for _, m := range s.direct {
		if m.Sender == sender && m.Receiver == receiver && m.Status != StatusSeen && !m.DeletedForReceiver {
			m.Status = StatusSeen
			affected = append(affected, *m)
		}
	}
	sort.Slice(affected, func(i, j int) bool { return affected[i].ID < affected[j].ID })
	return affected, nil
}

func (s *MemStore) MarkDeleted(_ context.Context, id uint64, forSender bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.direct[id]
	if !ok {
		return infrastructure.ErrNotFound
	}
	if forSender {
		m.DeletedForSender = true
	} else {
		m.DeletedForReceiver = true
	}
	return nil
}

func (s *MemStore) History(_ context.Context, requester, other string) ([]DirectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DirectMessage
	for _, m := range s.direct {
		sent := m.Sender == requester && m.Receiver == other && !m.DeletedForSender
		received := m.Sender == other && m.Receiver == requester && !m.DeletedForReceiver
		if sent || received {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemStore) CreateGroup(_ context.Context, m *GroupMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = uint64(len(s.group) + 1)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.group = append(s.group, *m)
	return nil
}

func (s *MemStore) GroupHistory(_ context.Context) ([]GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GroupMessage, len(s.group))
	copy(out, s.group)
	return out, nil
}
