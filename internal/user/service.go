package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"

	"parley/infrastructure"
	"parley/internal/presence"
)

type Service struct {
	repo       Repository
	presence   *presence.Tracker
	minEntropy float64
	log        *slog.Logger
}

func NewService(repo Repository, tracker *presence.Tracker, minEntropy float64, log *slog.Logger) *Service {
	return &Service{repo: repo, presence: tracker, minEntropy: minEntropy, log: log}
}

func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, infrastructure.ErrInvalidCredentials
	}
	if err := passwordvalidator.Validate(password, s.minEntropy); err != nil {
		return nil, fmt.Errorf("%w: %v", infrastructure.ErrWeakPassword, err)
	}

	exists, err := s.repo.Exists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, infrastructure.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Username: username, PasswordHash: string(hash)}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user", username)
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, infrastructure.ErrUserNotFound) {
			return nil, infrastructure.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed login attempt", "user", username)
		return nil, infrastructure.ErrInvalidCredentials
	}
	return u, nil
}

// Exists reports whether the identity is known. The delivery core uses this
// as its only contact with the credential store.
func (s *Service) Exists(ctx context.Context, username string) (bool, error) {
	return s.repo.Exists(ctx, username)
}

// SplitByPresence lists every identity other than the requester, split into
// online and offline relative to the current presence snapshot.
func (s *Service) SplitByPresence(ctx context.Context, requester string) (online, offline []string, err error) {
	all, err := s.repo.ListOthers(ctx, requester)
	if err != nil {
		return nil, nil, err
	}
	online = make([]string, 0, len(all))
	offline = make([]string, 0, len(all))
	for _, name := range all {
		if s.presence.Contains(name) {
			online = append(online, name)
		} else {
			offline = append(offline, name)
		}
	}
	return online, offline, nil
}
