package history

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"parley/infrastructure"
	"parley/internal/message"
)

func Test_DirectBetween_Respects_Per_Side_Deletion(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := message.NewMemStore()
	svc := NewService(store, slog.Default())

	visible := &message.DirectMessage{Sender: "alice", Receiver: "bob", Body: "kept"}
	hidden := &message.DirectMessage{Sender: "alice", Receiver: "bob", Body: "gone for alice"}
	req.NoError(store.CreateDirect(ctx, visible))
	req.NoError(store.CreateDirect(ctx, hidden))
	req.NoError(store.MarkDeleted(ctx, hidden.ID, true))

	asAlice, err := svc.DirectBetween(ctx, "alice", "bob")
	req.NoError(err)
	req.Len(asAlice, 1)
	req.Equal("kept", asAlice[0].Body)

	asBob, err := svc.DirectBetween(ctx, "bob", "alice")
	req.NoError(err)
	req.Len(asBob, 2)
}

func Test_DirectBetween_Excludes_Third_Parties(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := message.NewMemStore()
	svc := NewService(store, slog.Default())

	req.NoError(store.CreateDirect(ctx, &message.DirectMessage{Sender: "alice", Receiver: "bob", Body: "ours"}))
	req.NoError(store.CreateDirect(ctx, &message.DirectMessage{Sender: "alice", Receiver: "clara", Body: "theirs"}))

	got, err := svc.DirectBetween(ctx, "alice", "bob")
	req.NoError(err)
	req.Len(got, 1)
	req.Equal("ours", got[0].Body)
}

func Test_DirectBetween_Requires_An_Identity(t *testing.T) {
	svc := NewService(message.NewMemStore(), slog.Default())
	_, err := svc.DirectBetween(context.Background(), "", "bob")
	require.ErrorIs(t, err, infrastructure.ErrUnauthenticated)
}

func Test_Group_Returns_Everything_Oldest_First(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := message.NewMemStore()
	svc := NewService(store, slog.Default())

	for _, body := range []string{"one", "two", "three"} {
		req.NoError(store.CreateGroup(ctx, &message.GroupMessage{Sender: "alice", Body: body}))
	}

	got, err := svc.Group(ctx)
	req.NoError(err)
	req.Len(got, 3)
	req.Equal("one", got[0].Body)
	req.Equal("three", got[2].Body)
}
