package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"parley/infrastructure"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	Exists(ctx context.Context, username string) (bool, error)
	// ListOthers returns every known username except the requester's.
	ListOthers(ctx context.Context, requester string) ([]string, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, u *User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return infrastructure.ErrUserAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("%w: %v", infrastructure.ErrPersistence, err)
	}
	return nil
}

func (r *GormRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, infrastructure.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", infrastructure.ErrPersistence, err)
	}
	return &u, nil
}

func (r *GormRepository) Exists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", infrastructure.ErrPersistence, err)
	}
	return count > 0, nil
}

func (r *GormRepository) ListOthers(ctx context.Context, requester string) ([]string, error) {
	var usernames []string
	err := r.db.WithContext(ctx).
		Model(&User{}).
		Where("username <> ?", requester).
		Order("username ASC").
		Pluck("username", &usernames).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", infrastructure.ErrPersistence, err)
	}
	return usernames, nil
}
