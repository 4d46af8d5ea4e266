package delivery

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"parley/infrastructure"
	"parley/internal/message"
	"parley/internal/presence"
	"parley/internal/sessions"
)

type fixture struct {
	engine   *Engine
	store    message.Store
	tracker  *presence.Tracker
	registry *sessions.Registry
}

func newFixture(store message.Store) *fixture {
	tracker := presence.NewTracker()
	registry := sessions.NewRegistry(32, slog.Default())
	return &fixture{
		engine:   NewEngine(store, tracker, registry, slog.Default()),
		store:    store,
		tracker:  tracker,
		registry: registry,
	}
}

// connect attaches a session and runs the engine's connect path, the same
// sequence the websocket transport performs.
func (f *fixture) connect(t *testing.T, user string) *sessions.Session {
	t.Helper()
	s := f.registry.Attach(user)
	require.NoError(t, f.engine.Connect(context.Background(), user))
	return s
}

func drain(s *sessions.Session) []sessions.Event {
	var out []sessions.Event
	for {
		select {
		case evt := <-s.Events():
			out = append(out, evt)
		default:
			return out
		}
	}
}

func named(events []sessions.Event, name string) []sessions.Event {
	var out []sessions.Event
	for _, evt := range events {
		if evt.Name == name {
			out = append(out, evt)
		}
	}
	return out
}

func Test_Send_To_Offline_Receiver_Stays_Sent(t *testing.T) {
	req := require.New(t)
	f := newFixture(message.NewMemStore())
	alice := f.connect(t, "alice")
	drain(alice)

	m, err := f.engine.Send(context.Background(), "alice", "bob", "hi")
	req.NoError(err)
	req.Equal(message.StatusSent, m.Status)

	stored, err := f.store.GetDirect(context.Background(), m.ID)
	req.NoError(err)
	req.Equal(message.StatusSent, stored.Status)

	echoes := named(drain(alice), EventDirectMessage)
	req.Len(echoes, 1)
	req.Equal(m, echoes[0].Data)
}

func Test_Send_To_Online_Receiver_Delivers_To_Both(t *testing.T) {
	req := require.New(t)
	f := newFixture(message.NewMemStore())
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	drain(alice)
	drain(bob)

	m, err := f.engine.Send(context.Background(), "alice", "bob", "hi")
	req.NoError(err)
	req.Equal(message.StatusDelivered, m.Status)

	stored, err := f.store.GetDirect(context.Background(), m.ID)
	req.NoError(err)
	req.Equal(message.StatusDelivered, stored.Status)

	bobGot := named(drain(bob), EventDirectMessage)
	aliceGot := named(drain(alice), EventDirectMessage)
	req.Len(bobGot, 1)
	req.Len(aliceGot, 1)
	req.Equal(bobGot[0].Data, aliceGot[0].Data)
}

func Test_Connect_Flushes_Pending_Messages(t *testing.T) {
	req := require.New(t)
	f := newFixture(message.NewMemStore())
	alice := f.connect(t, "alice")
	drain(alice)

	m, err := f.engine.Send(context.Background(), "alice", "bob", "hi")
	req.NoError(err)
	req.Equal(message.StatusSent, m.Status)
	drain(alice)

	bob := f.connect(t, "bob")

	bobGot := named(drain(bob), EventDirectMessage)
	req.Len(bobGot, 1)
	delivered, ok := bobGot[0].Data.(*message.DirectMessage)
	req.True(ok)
	req.Equal(message.StatusDelivered, delivered.Status)

	updates := named(drain(alice), EventStatusUpdate)
	req.Len(updates, 1)

	stored, err := f.store.GetDirect(context.Background(), m.ID)
	req.NoError(err)
	req.Equal(message.StatusDelivered, stored.Status)
}

func Test_MarkSeen_Emits_One_Update_Per_Row_Then_Nothing(t *testing.T) {
	req := require.New(t)
	f := newFixture(message.NewMemStore())
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	_, err := f.engine.Send(context.Background(), "alice", "bob", "one")
	req.NoError(err)
	_, err = f.engine.Send(context.Background(), "alice", "bob", "two")
	req.NoError(err)
	drain(alice)
	drain(bob)

	count, err := f.engine.MarkSeen(context.Background(), "bob", "alice")
	req.NoError(err)
	req.Equal(2, count)

	updates := named(drain(alice), EventStatusUpdate)
	req.Len(updates, 2)
	for _, evt := range updates {
		m, ok := evt.Data.(*message.DirectMessage)
		req.True(ok)
		req.Equal(message.StatusSeen, m.Status)
	}

	// Idempotent: nothing left to transition, nothing emitted.
	count, err = f.engine.MarkSeen(context.Background(), "bob", "alice")
	req.NoError(err)
	req.Zero(count)
	req.Empty(drain(alice))
}

func Test_Delete_Is_Private_Per_Side(t *testing.T) {
	req := require.New(t)
	f := newFixture(message.NewMemStore())
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")

	m, err := f.engine.Send(context.Background(), "alice", "bob", "hi")
	req.NoError(err)
	drain(alice)
	drain(bob)

	req.NoError(f.engine.Delete(context.Background(), "alice", m.ID))

	req.Len(named(drain(alice), EventMessageDeleted), 1)
	req.Empty(drain(bob))

	fromAlice, err := f.store.History(context.Background(), "alice", "bob")
	req.NoError(err)
	req.Empty(fromAlice)
	fromBob, err := f.store.History(context.Background(), "bob", "alice")
	req.NoError(err)
	req.Len(fromBob, 1)
}

func Test_Delete_Rejects_Non_Participants(t *testing.T) {
	req := require.New(t)
	f := newFixture(message.NewMemStore())

	m, err := f.engine.Send(context.Background(), "alice", "bob", "hi")
	req.NoError(err)

	err = f.engine.Delete(context.Background(), "mallory", m.ID)
	req.ErrorIs(err, infrastructure.ErrUnauthorized)

	err = f.engine.Delete(context.Background(), "alice", 9999)
	req.ErrorIs(err, infrastructure.ErrNotFound)
}

func Test_Unauthenticated_Operations_Do_Nothing(t *testing.T) {
	req := require.New(t)
	store := message.NewMemStore()
	f := newFixture(store)
	alice := f.connect(t, "alice")
	drain(alice)

	_, err := f.engine.Send(context.Background(), "", "alice", "hi")
	req.ErrorIs(err, infrastructure.ErrUnauthenticated)
	req.Empty(drain(alice))

	pending, err := store.PendingFor(context.Background(), "alice")
	req.NoError(err)
	req.Empty(pending)

	_, err = f.engine.MarkSeen(context.Background(), "", "alice")
	req.ErrorIs(err, infrastructure.ErrUnauthenticated)
	req.ErrorIs(f.engine.Delete(context.Background(), "", 1), infrastructure.ErrUnauthenticated)
	_, err = f.engine.GroupSend(context.Background(), "", "hi")
	req.ErrorIs(err, infrastructure.ErrUnauthenticated)
}

type failingStore struct {
	message.Store
	failCreate  bool
	failAdvance bool
}

func (f *failingStore) CreateDirect(ctx context.Context, m *message.DirectMessage) error {
	if f.failCreate {
		return infrastructure.ErrPersistence
	}
	return f.Store.CreateDirect(ctx, m)
}

func (f *failingStore) AdvanceStatus(ctx context.Context, id uint64, s message.Status) (bool, error) {
	if f.failAdvance {
		return false, infrastructure.ErrPersistence
	}
	return f.Store.AdvanceStatus(ctx, id, s)
}

func Test_Failed_Commit_Emits_Nothing(t *testing.T) {
	req := require.New(t)
	store := &failingStore{Store: message.NewMemStore(), failCreate: true}
	f := newFixture(store)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	drain(alice)
	drain(bob)

	_, err := f.engine.Send(context.Background(), "alice", "bob", "hi")
	req.ErrorIs(err, infrastructure.ErrPersistence)
	req.Empty(drain(alice))
	req.Empty(drain(bob))
}

func Test_Failed_Status_Transition_Fails_The_Send(t *testing.T) {
	req := require.New(t)
	store := &failingStore{Store: message.NewMemStore(), failAdvance: true}
	f := newFixture(store)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	drain(alice)
	drain(bob)

	_, err := f.engine.Send(context.Background(), "alice", "bob", "hi")
	req.ErrorIs(err, infrastructure.ErrPersistence)
	req.Empty(named(drain(bob), EventDirectMessage))
}

// raceStore lets a concurrent mark-seen land between the pending query and
// the delivered transition, the ambiguous sent->seen race of a connect
// flush.
type raceStore struct {
	message.Store
	afterPending func()
}

func (r *raceStore) PendingFor(ctx context.Context, receiver string) ([]message.DirectMessage, error) {
	out, err := r.Store.PendingFor(ctx, receiver)
	if r.afterPending != nil {
		r.afterPending()
	}
	return out, err
}

func Test_Connect_Flush_Loses_Race_To_Seen(t *testing.T) {
	req := require.New(t)
	mem := message.NewMemStore()
	store := &raceStore{Store: mem}
	f := newFixture(store)
	alice := f.connect(t, "alice")

	m, err := f.engine.Send(context.Background(), "alice", "bob", "hi")
	req.NoError(err)
	drain(alice)

	store.afterPending = func() {
		_, err := mem.MarkSeen(context.Background(), "alice", "bob")
		require.NoError(t, err)
	}

	bob := f.connect(t, "bob")

	// The seen transition won; the flush must neither regress the status
	// nor emit a stale delivered update.
	req.Empty(named(drain(bob), EventDirectMessage))
	req.Empty(named(drain(alice), EventStatusUpdate))

	stored, err := mem.GetDirect(context.Background(), m.ID)
	req.NoError(err)
	req.Equal(message.StatusSeen, stored.Status)
}

func Test_Presence_Follows_Last_Session(t *testing.T) {
	req := require.New(t)
	f := newFixture(message.NewMemStore())

	phone := f.connect(t, "alice")
	laptop := f.connect(t, "alice")
	req.True(f.tracker.Contains("alice"))

	remaining := f.registry.Detach(phone)
	f.engine.Disconnect("alice", remaining)
	req.True(f.tracker.Contains("alice"))

	remaining = f.registry.Detach(laptop)
	f.engine.Disconnect("alice", remaining)
	req.False(f.tracker.Contains("alice"))
}

func Test_Connect_Broadcasts_Presence_Snapshot(t *testing.T) {
	req := require.New(t)
	f := newFixture(message.NewMemStore())

	alice := f.connect(t, "alice")
	drain(alice)
	f.connect(t, "bob")

	updates := named(drain(alice), EventPresenceUpdate)
	req.Len(updates, 1)
	payload, ok := updates[0].Data.(presencePayload)
	req.True(ok)
	req.Equal([]string{"alice", "bob"}, payload.Online)
}

func Test_Typing_Relay_Reaches_Target_Only(t *testing.T) {
	req := require.New(t)
	f := newFixture(message.NewMemStore())
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	drain(alice)
	drain(bob)

	f.engine.Typing("alice", "bob")
	f.engine.StopTyping("alice", "bob")

	bobGot := drain(bob)
	req.Len(named(bobGot, EventShowTyping), 1)
	req.Len(named(bobGot, EventHideTyping), 1)
	req.Empty(drain(alice))

	// No session for the target: silently dropped.
	f.engine.Typing("alice", "nobody")
}

func Test_GroupSend_Broadcast_Doubles_As_Echo(t *testing.T) {
	req := require.New(t)
	store := message.NewMemStore()
	f := newFixture(store)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	drain(alice)
	drain(bob)

	m, err := f.engine.GroupSend(context.Background(), "alice", "hello all")
	req.NoError(err)

	req.Len(named(drain(alice), EventGroupMessage), 1)
	req.Len(named(drain(bob), EventGroupMessage), 1)

	history, err := store.GroupHistory(context.Background())
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(m.Body, history[0].Body)
}

func Test_Logout_Drops_Presence_And_Broadcasts(t *testing.T) {
	req := require.New(t)
	f := newFixture(message.NewMemStore())
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	drain(alice)
	drain(bob)

	f.engine.Logout("alice")
	req.False(f.tracker.Contains("alice"))

	updates := named(drain(bob), EventPresenceUpdate)
	req.Len(updates, 1)
	payload, ok := updates[0].Data.(presencePayload)
	req.True(ok)
	req.Equal([]string{"bob"}, payload.Online)
}
