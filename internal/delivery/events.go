package delivery

import "parley/internal/sessions"

// Outbound event names. direct_message and status_update carry the full
// message row; the client tells a fresh message from a status change by the
// event name alone.
const (
	EventPresenceUpdate = "presence_update"
	EventDirectMessage  = "direct_message"
	EventStatusUpdate   = "status_update"
	EventMessageDeleted = "message_deleted"
	EventShowTyping     = "show_typing"
	EventHideTyping     = "hide_typing"
	EventGroupMessage   = "group_message"
)

type presencePayload struct {
	Online []string `json:"online"`
}

type deletedPayload struct {
	ID uint64 `json:"id"`
}

type typingPayload struct {
	From string `json:"from"`
}

func presenceEvent(online []string) sessions.Event {
	return sessions.Event{Name: EventPresenceUpdate, Data: presencePayload{Online: online}}
}
