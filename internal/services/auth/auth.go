// Package services содержит логику бизнес-уровня для регистрации, входа и проверки токенов.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/password"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя.
	CreateUser(ctx context.Context, user models.User) (*models.User, error)

	// GetUserByEmail возвращает пользователя по email или repository.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUser возвращает пользователя по UID или repository.ErrNotFound.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// TxManager выполняет функцию в транзакции хранилища.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	users    UserRepository
	tx       TxManager
	jwtMaker jwt.Maker
	adminKey string
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService. Пустой adminKey запрещает создание администраторов.
func NewAuthService(users UserRepository, tx TxManager, jwtMaker jwt.Maker, adminKey string, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		tx:       tx,
		jwtMaker: jwtMaker,
		adminKey: adminKey,
		log:      log,
	}
}

// Register создает пользователя с ролью user и выдает ему токен.
// Создание пользователя и выпуск токена выполняются в одной транзакции.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	return s.createUser(ctx, req, models.RoleUser)
}

// CreateAdmin создает администратора, если adminKey совпадает с настроенным ключом.
func (s *AuthService) CreateAdmin(ctx context.Context, req models.CreateAdminRequest) (*models.AuthResult, error) {
	if s.adminKey == "" || subtle.ConstantTimeCompare([]byte(req.AdminKey), []byte(s.adminKey)) != 1 {
		return nil, apperr.Forbidden("Invalid admin creation key")
	}
	return s.createUser(ctx, req.RegisterRequest, models.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, req models.RegisterRequest, role models.Role) (*models.AuthResult, error) {
	const op = "services.auth.createUser"

	var result *models.AuthResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		email := models.NormalizeEmail(req.Email)
		_, err := s.users.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			return apperr.Conflict("User already exists")
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s: %w", op, err)
		}

		hashed, err := password.GetHash(req.Password)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		user, err := s.users.CreateUser(ctx, models.User{
			UUID:         uuid.NewString(),
			Name:         req.Name,
			Email:        email,
			PasswordHash: hashed,
			Role:         role,
		})
		if errors.Is(err, repository.ErrConflict) {
			return apperr.Conflict("User already exists")
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		token, err := s.jwtMaker.GenerateToken(user.UUID, string(user.Role))
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		result = &models.AuthResult{Token: token, User: user}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", slog.String("uid", result.User.UUID), slog.String("role", string(role)))
	return result, nil
}

// Login проверяет пароль пользователя и выдает JWT.
// Неизвестный email и неверный пароль неразличимы для клиента.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	const op = "services.auth.Login"

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := password.CompareHash(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.jwtMaker.GenerateToken(user.UUID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.AuthResult{Token: token, User: user}, nil
}

// ValidateToken проверяет JWT и убеждается, что пользователь всё ещё существует.
// Роль берется из базы, а не из токена.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*models.Identity, error) {
	const op = "services.auth.ValidateToken"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "Unauthorized", err)
	}
	if _, err := uuid.Parse(claims.UserUID()); err != nil {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	user, err := s.users.GetUser(ctx, claims.UserUID())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.Identity{UserUID: user.UUID, Role: user.Role}, nil
}
