package api

import (
	"context"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// inboundEvent is one client-originated frame on the websocket.
type inboundEvent struct {
	Event string `json:"event"`
	To    string `json:"to,omitempty"`
	Body  string `json:"body,omitempty"`
}

const (
	inboundJoin       = "join"
	inboundSendDirect = "send_direct"
	inboundTyping     = "typing"
	inboundStopTyping = "stop_typing"
	inboundSendGroup  = "send_group"
)

// handleWebSocket upgrades the connection, attaches a session for the
// authenticated identity, and pumps events in both directions until either
// side closes. Detaching the session and dropping presence happen on every
// exit path.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	username := Identity(r.Context())

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "user", username, "err", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := s.registry.Attach(username)
	defer func() {
		remaining := s.registry.Detach(sess)
		s.engine.Disconnect(username, remaining)
	}()

	// Writer: drains the session's outbound channel onto the wire. A write
	// failure tears the whole connection down.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-sess.Events():
				if err := wsjson.Write(ctx, conn, evt); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	if err := s.engine.Connect(ctx, username); err != nil {
		s.log.Error("connect flush failed", "user", username, "err", err)
	}

	for {
		var evt inboundEvent
		if err := wsjson.Read(ctx, conn, &evt); err != nil {
			return
		}
		s.dispatch(ctx, username, evt)
	}
}

func (s *Server) dispatch(ctx context.Context, username string, evt inboundEvent) {
	switch evt.Event {
	case inboundJoin:
		s.engine.Join()
	case inboundSendDirect:
		exists, err := s.users.Exists(ctx, evt.To)
		if err != nil {
			s.log.Error("receiver lookup failed", "user", username, "to", evt.To, "err", err)
			return
		}
		if !exists {
			s.log.Warn("message to unknown receiver dropped", "user", username, "to", evt.To)
			return
		}
		if _, err := s.engine.Send(ctx, username, evt.To, evt.Body); err != nil {
			s.log.Error("send failed", "user", username, "to", evt.To, "err", err)
		}
	case inboundTyping:
		s.engine.Typing(username, evt.To)
	case inboundStopTyping:
		s.engine.StopTyping(username, evt.To)
	case inboundSendGroup:
		if _, err := s.engine.GroupSend(ctx, username, evt.Body); err != nil {
			s.log.Error("group send failed", "user", username, "err", err)
		}
	default:
		s.log.Warn("unknown inbound event", "user", username, "event", evt.Event)
	}
}
