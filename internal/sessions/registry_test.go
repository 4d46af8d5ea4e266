package sessions

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func drain(s *Session) []Event {
	var out []Event
	for {
		select {
		case evt := <-s.Events():
			out = append(out, evt)
		default:
			return out
		}
	}
}

func Test_Attach_Detach_Counts(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(8, slog.Default())

	first := registry.Attach("alice")
	second := registry.Attach("alice")
	req.Equal(2, registry.Count("alice"))

	req.Equal(1, registry.Detach(first))
	req.Equal(1, registry.Count("alice"))
	req.Equal(0, registry.Detach(second))
	req.Equal(0, registry.Count("alice"))
}

func Test_SendTo_Fans_Out_To_Every_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(8, slog.Default())

	phone := registry.Attach("alice")
	laptop := registry.Attach("alice")
	evt := Event{Name: "direct_message", Data: "hi"}
	registry.SendTo("alice", evt)

	req.Equal([]Event{evt}, drain(phone))
	req.Equal([]Event{evt}, drain(laptop))
}

func Test_SendTo_Unknown_User_Is_A_NoOp(t *testing.T) {
	registry := NewRegistry(8, slog.Default())
	registry.SendTo("nobody", Event{Name: "show_typing"})
}

func Test_Broadcast_Reaches_All_Identities(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(8, slog.Default())

	alice := registry.Attach("alice")
	bob := registry.Attach("bob")
	evt := Event{Name: "presence_update"}
	registry.Broadcast(evt)

	req.Len(drain(alice), 1)
	req.Len(drain(bob), 1)
}

func Test_Full_Buffer_Drops_Events(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(1, slog.Default())

	s := registry.Attach("alice")
	registry.SendTo("alice", Event{Name: "first"})
	registry.SendTo("alice", Event{Name: "second"})

	got := drain(s)
	req.Len(got, 1)
	req.Equal("first", got[0].Name)
}
