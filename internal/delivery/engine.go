package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"parley/infrastructure"
	"parley/internal/message"
	"parley/internal/presence"
	"parley/internal/sessions"
)

// Engine orchestrates message delivery: it persists state changes through
// the store, consults the presence tracker, and fans events out through the
// session registry. Events are emitted only after the corresponding state
// change has committed; a failed commit emits nothing.
type Engine struct {
	store    message.Store
	presence *presence.Tracker
	registry *sessions.Registry
	log      *slog.Logger

	// Striped per-id locks serialize status transitions on the same row.
	// Concurrent transitions resolve to the maximal status under
	// sent < delivered < seen; the store's rank guard enforces that, the
	// lock keeps the emitted events in commit order.
	locks [64]sync.Mutex
}

func NewEngine(store message.Store, tracker *presence.Tracker, registry *sessions.Registry, log *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		presence: tracker,
		registry: registry,
		log:      log,
	}
}

func (e *Engine) lockFor(id uint64) *sync.Mutex {
	return &e.locks[id%uint64(len(e.locks))]
}

// Send persists a message from sender to receiver and delivers it. If the
// receiver is online the message is committed as delivered before any event
// goes out, and both sides receive a direct_message event carrying the final
// status. If the receiver is offline only the sender's sessions get the echo
// and the row stays at sent until a later connect flushes it.
func (e *Engine) Send(ctx context.Context, sender, receiver, body string) (*message.DirectMessage, error) {
	if sender == "" {
		return nil, infrastructure.ErrUnauthenticated
	}

	m := &message.DirectMessage{Sender: sender, Receiver: receiver, Body: body}
	if err := e.store.CreateDirect(ctx, m); err != nil {
		return nil, err
	}

	if e.presence.Contains(receiver) {
		mu := e.lockFor(m.ID)
		mu.Lock()
		advanced, err := e.store.AdvanceStatus(ctx, m.ID, message.StatusDelivered)
		mu.Unlock()
		if err != nil {
			return nil, err
		}
		if advanced {
			m.Status = message.StatusDelivered
		}
		e.registry.SendTo(receiver, sessions.Event{Name: EventDirectMessage, Data: m})
	}

	e.registry.SendTo(sender, sessions.Event{Name: EventDirectMessage, Data: m})
	e.log.Debug("message sent", "id", m.ID, "sender", sender, "receiver", receiver, "status", m.Status)
	return m, nil
}

// Connect marks user online, broadcasts the new presence snapshot, and
// flushes every pending message addressed to them: each one transitions to
// delivered, the user's sessions get the message and the original sender's
// sessions get a status update. Flush order is the store's natural order; no
// cross-message ordering is promised.
func (e *Engine) Connect(ctx context.Context, user string) error {
	if user == "" {
		return infrastructure.ErrUnauthenticated
	}

	e.presence.Add(user)
	e.broadcastPresence()
	e.log.Info("user connected", "user", user)

	pending, err := e.store.PendingFor(ctx, user)
	if err != nil {
		return fmt.Errorf("flush pending for %s: %w", user, err)
	}
	for i := range pending {
		m := &pending[i]
		mu := e.lockFor(m.ID)
		mu.Lock()
		advanced, err := e.store.AdvanceStatus(ctx, m.ID, message.StatusDelivered)
		mu.Unlock()
		if err != nil {
			return fmt.Errorf("flush pending for %s: %w", user, err)
		}
		if !advanced {
			// Lost a race to a concurrent transition; the winner already
			// moved the row at least as far as delivered.
			continue
		}
		m.Status = message.StatusDelivered
		e.registry.SendTo(user, sessions.Event{Name: EventDirectMessage, Data: m})
		e.registry.SendTo(m.Sender, sessions.Event{Name: EventStatusUpdate, Data: m})
	}
	return nil
}

// Disconnect is called after a session has been detached from the registry.
// remaining is the number of sessions the identity still owns; presence is
// dropped only when the last one closes.
func (e *Engine) Disconnect(user string, remaining int) {
	if remaining > 0 {
		return
	}
	e.presence.Remove(user)
	e.broadcastPresence()
	e.log.Info("user disconnected", "user", user)
}

// Join re-broadcasts the current presence snapshot on an explicit client
// request.
func (e *Engine) Join() {
	e.broadcastPresence()
}

// Logout force-drops the identity from the presence set. The transport is
// responsible for closing the actual connections.
func (e *Engine) Logout(user string) {
	e.presence.Remove(user)
	e.broadcastPresence()
	e.log.Info("user logged out", "user", user)
}

// MarkSeen batch-transitions every unseen message from sender to receiver to
// seen, then emits one status_update per affected row to the sender's
// sessions. Calling it with nothing to do emits nothing and succeeds.
func (e *Engine) MarkSeen(ctx context.Context, receiver, sender string) (int, error) {
	if receiver == "" {
		return 0, infrastructure.ErrUnauthenticated
	}

	affected, err := e.store.MarkSeen(ctx, sender, receiver)
	if err != nil {
		return 0, err
	}
	for i := range affected {
		e.registry.SendTo(sender, sessions.Event{Name: EventStatusUpdate, Data: &affected[i]})
	}
	if len(affected) > 0 {
		e.log.Debug("messages marked seen", "sender", sender, "receiver", receiver, "count", len(affected))
	}
	return len(affected), nil
}

// Delete sets the requester's own deletion flag on the message and confirms
// it only to the requester's sessions. The other participant is never told;
// deletion is private per side.
func (e *Engine) Delete(ctx context.Context, requester string, id uint64) error {
	if requester == "" {
		return infrastructure.ErrUnauthenticated
	}

	m, err := e.store.GetDirect(ctx, id)
	if err != nil {
		return err
	}

	var forSender bool
	switch requester {
	case m.Sender:
		forSender = true
	case m.Receiver:
		forSender = false
	default:
		return infrastructure.ErrUnauthorized
	}

	if err := e.store.MarkDeleted(ctx, id, forSender); err != nil {
		return err
	}
	e.registry.SendTo(requester, sessions.Event{Name: EventMessageDeleted, Data: deletedPayload{ID: id}})
	e.log.Debug("message deleted", "id", id, "requester", requester, "for_sender", forSender)
	return nil
}

// Typing relays a show_typing hint to every session of the target. Nothing
// is persisted; a target with no open session silently drops it.
func (e *Engine) Typing(from, to string) {
	e.registry.SendTo(to, sessions.Event{Name: EventShowTyping, Data: typingPayload{From: from}})
}

// StopTyping relays the matching hide_typing hint. It carries no payload.
func (e *Engine) StopTyping(from, to string) {
	e.registry.SendTo(to, sessions.Event{Name: EventHideTyping})
}

// GroupSend persists a group message and broadcasts it to every open
// session, the sender's own included, so the broadcast doubles as the echo.
func (e *Engine) GroupSend(ctx context.Context, sender, body string) (*message.GroupMessage, error) {
	if sender == "" {
		return nil, infrastructure.ErrUnauthenticated
	}

	m := &message.GroupMessage{Sender: sender, Body: body}
	if err := e.store.CreateGroup(ctx, m); err != nil {
		return nil, err
	}
	e.registry.Broadcast(sessions.Event{Name: EventGroupMessage, Data: m})
	e.log.Debug("group message sent", "id", m.ID, "sender", sender)
	return m, nil
}

func (e *Engine) broadcastPresence() {
	e.registry.Broadcast(presenceEvent(e.presence.Snapshot()))
}
