package app

import (
	"context"

	"camcalib/internal/domain/entity"
	"camcalib/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	return s.Update(ctx, userID, chatID, func(u *entity.User) {
		u.SetState(state)
	})
}

// Update читает пользователя, применяет fn и сохраняет.
func (s *UserService) Update(ctx context.Context, userID, chatID int64, fn func(*entity.User)) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	fn(user)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) BeginCalibration(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateCollectingPhotos)
}

func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.Update(ctx, userID, chatID, func(u *entity.User) {
		u.SetState(entity.StateMainMenu)
		u.Strategy = ""
	})
}

// Forget удаляет пользователя целиком.
func (s *UserService) Forget(ctx context.Context, userID int64) error {
	return s.repo.Delete(ctx, userID)
}
