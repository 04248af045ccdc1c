// Package services содержит операции над учетными записями пользователей.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// UserRepository операции хранилища, нужные сервису пользователей.
type UserRepository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	DeleteUser(ctx context.Context, userUID string) error
	DeleteSubscriptionsByUser(ctx context.Context, userUID string) (int64, error)
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserService управляет профилями пользователей.
type UserService struct {
	repo UserRepository
	log  *slog.Logger
}

// NewUserService создает UserService.
func NewUserService(repo UserRepository, log *slog.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

// List возвращает страницу пользователей. Доступно только администратору.
func (s *UserService) List(ctx context.Context, requester models.Identity, limit, offset int) ([]*models.User, error) {
	const op = "services.user.List"
	if requester.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("Admin access required")
	}
	if limit <= 0 || limit > models.MaxLimit {
		limit = models.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.repo.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// Get возвращает профиль пользователя самому пользователю или администратору.
func (s *UserService) Get(ctx context.Context, requester models.Identity, userUID string) (*models.User, error) {
	const op = "services.user.Get"
	if err := authorizeSelf(requester, userUID, "Unauthorized: You can only access your own profile"); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(userUID); err != nil {
		return nil, apperr.NotFound("User not found")
	}
	user, err := s.repo.GetUser(ctx, userUID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Delete удаляет пользователя вместе с его подписками в одной транзакции.
// Семейные группы удаляемых подписок удаляются каскадом.
func (s *UserService) Delete(ctx context.Context, requester models.Identity, userUID string) error {
	const op = "services.user.Delete"
	if err := authorizeSelf(requester, userUID, "Unauthorized: You can only delete your own account"); err != nil {
		return err
	}
	if _, err := uuid.Parse(userUID); err != nil {
		return apperr.NotFound("User not found")
	}

	var removed int64
	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.repo.DeleteSubscriptionsByUser(ctx, userUID)
		if err != nil {
			return err
		}
		removed = n
		return s.repo.DeleteUser(ctx, userUID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user deleted",
		slog.String("op", op),
		slog.String("uid", userUID),
		slog.Int64("subscriptions", removed),
	)
	return nil
}

func authorizeSelf(requester models.Identity, userUID, msg string) error {
	if requester.Role == models.RoleAdmin || requester.UserUID == userUID {
		return nil
	}
	return apperr.Forbidden(msg)
}
