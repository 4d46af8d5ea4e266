package history

import (
	"context"
	"fmt"
	"log/slog"

	"parley/infrastructure"
	"parley/internal/message"
)

// Service is the read path over the message store. Visibility of each row is
// decided strictly by the requester's role in it: rows they sent are hidden
// by their sender flag, rows they received by their receiver flag.
type Service struct {
	store message.Store
	log   *slog.Logger
}

func NewService(store message.Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// DirectBetween returns the conversation between requester and other as the
// requester may see it, ordered by created_at ascending with id as the
// tie-break.
func (s *Service) DirectBetween(ctx context.Context, requester, other string) ([]message.DirectMessage, error) {
	if requester == "" {
		return nil, infrastructure.ErrUnauthenticated
	}
	msgs, err := s.store.History(ctx, requester, other)
	if err != nil {
		s.log.Error("failed to load direct history", "requester", requester, "other", other, "err", err)
		return nil, fmt.Errorf("direct history: %w", err)
	}
	return msgs, nil
}

// Group returns the full group history, oldest first. Group messages are
// never filtered or deleted.
func (s *Service) Group(ctx context.Context) ([]message.GroupMessage, error) {
	msgs, err := s.store.GroupHistory(ctx)
	if err != nil {
		s.log.Error("failed to load group history", "err", err)
		return nil, fmt.Errorf("group history: %w", err)
	}
	return msgs, nil
}
