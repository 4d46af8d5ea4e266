package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"parley/infrastructure"
)

// Store is the durable record of direct and group messages.
type Store interface {
	CreateDirect(ctx context.Context, m *DirectMessage) error
	GetDirect(ctx context.Context, id uint64) (*DirectMessage, error)

	// AdvanceStatus moves a message to the given status if and only if the
	// current status ranks below it. It reports whether the row changed, so
	// callers can tell a real transition from a lost race.
	AdvanceStatus(ctx context.Context, id uint64, s Status) (bool, error)

	// PendingFor returns every message addressed to receiver that is still
	// in status sent and not deleted on the receiver's side, in primary key
	// order.
	PendingFor(ctx context.Context, receiver string) ([]DirectMessage, error)

	// MarkSeen transitions every not-yet-seen message from sender to
	// receiver (skipping rows deleted on the receiver's side) to seen in a
	// single transaction and returns the affected rows. No matching rows is
	// not an error.
	MarkSeen(ctx context.Context, sender, receiver string) ([]DirectMessage, error)

	// MarkDeleted sets exactly one of the two deletion flags.
	MarkDeleted(ctx context.Context, id uint64, forSender bool) error

	// History returns the conversation between requester and other as the
	// requester is allowed to see it: rows the requester sent that they have
	// not deleted, plus rows they received that they have not deleted.
	// Ordered by created_at ascending, ties broken by id ascending.
	History(ctx context.Context, requester, other string) ([]DirectMessage, error)

	CreateGroup(ctx context.Context, m *GroupMessage) error
	GroupHistory(ctx context.Context) ([]GroupMessage, error)
}

type GormStore struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewGormStore(db *gorm.DB, log *slog.Logger) *GormStore {
	return &GormStore{db: db, log: log}
}

func (s *GormStore) CreateDirect(ctx context.Context, m *DirectMessage) error {
	if m.Status == "" {
		m.Status = StatusSent
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		s.log.Error("failed to persist direct message", "sender", m.Sender, "receiver", m.Receiver, "err", err)
		return fmt.Errorf("%w: %v", infrastructure.ErrPersistence, err)
	}
	return nil
}

func (s *GormStore) GetDirect(ctx context.Context, id uint64) (*DirectMessage, error) {
	var m DirectMessage
	err := s.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, infrastructure.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", infrastructure.ErrPersistence, err)
	}
	return &m, nil
}

func (s *GormStore) AdvanceStatus(ctx context.Context, id uint64, status Status) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&DirectMessage{}).
		Where("id = ? AND status IN ?", id, below(status)).
		Update("status", status)
	if res.Error != nil {
		s.log.Error("failed to advance message status", "id", id, "status", status, "err", res.Error)
		return false, fmt.Errorf("%w: %v", infrastructure.ErrPersistence, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) PendingFor(ctx context.Context, receiver string) ([]DirectMessage, error) {
	var out []DirectMessage
	err := s.db.WithContext(ctx).
		Where("receiver = ? AND status = ? AND deleted_for_receiver = ?", receiver, StatusSent, false).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", infrastructure.ErrPersistence, err)
	}
	return out, nil
}

func (s *GormStore) MarkSeen(ctx context.Context, sender, receiver string) ([]DirectMessage, error) {
	var affected []DirectMessage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("sender = ? AND receiver = ? AND status <> ? AND deleted_for_receiver = ?",
				sender, receiver, StatusSeen, false).
			Order("id ASC").
			Find(&affected).Error; err != nil {
			return err
		}
		if len(affected) == 0 {
			return nil
		}
		ids := make([]uint64, 0, len(affected))
		for i := range affected {
			ids = append(ids, affected[i].ID)
		}
		if err := tx.Model(&DirectMessage{}).
			Where("id IN ?", ids).
			Update("status", StatusSeen).Error; err != nil {
			return err
		}
		for i := range affected {
			affected[i].Status = StatusSeen
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to mark messages seen", "sender", sender, "receiver", receiver, "err", err)
		return nil, fmt.Errorf("%w: %v", infrastructure.ErrPersistence, err)
	}
	return affected, nil
}

func (s *GormStore) MarkDeleted(ctx context.Context, id uint64, forSender bool) error {
	column := "deleted_for_receiver"
	if forSender {
		column = "deleted_for_sender"
	}
	res := s.db.WithContext(ctx).
		Model(&DirectMessage{}).
		Where("id = ?", id).
		Update(column, true)
	if res.Error != nil {
		s.log.Error("failed to mark message deleted", "id", id, "column", column, "err", res.Error)
		return fmt.Errorf("%w: %v", infrastructure.ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		return infrastructure.ErrNotFound
	}
	return nil
}

func (s *GormStore) History(ctx context.Context, requester, other string) ([]DirectMessage, error) {
	var out []DirectMessage
	err := s.db.WithContext(ctx).
		Where("(sender = ? AND receiver = ? AND deleted_for_sender = ?) OR (sender = ? AND receiver = ? AND deleted_for_receiver = ?)",
			requester, other, false, other, requester, false).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", infrastructure.ErrPersistence, err)
	}
	return out, nil
}

func (s *GormStore) CreateGroup(ctx context.Context, m *GroupMessage) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		s.log.Error("failed to persist group message", "sender", m.Sender, "err", err)
		return fmt.Errorf("%w: %v", infrastructure.ErrPersistence, err)
	}
	return nil
}

func (s *GormStore) GroupHistory(ctx context.Context) ([]GroupMessage, error) {
	var out []GroupMessage
	err := s.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", infrastructure.ErrPersistence, err)
	}
	return out, nil
}
