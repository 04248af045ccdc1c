package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	services "github.com/magabrotheeeer/subscription-tracker/internal/services/user"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepoMock) DeleteUser(ctx context.Context, userUID string) error {
	return m.Called(ctx, userUID).Error(0)
}

func (m *RepoMock) DeleteSubscriptionsByUser(ctx context.Context, userUID string) (int64, error) {
	args := m.Called(ctx, userUID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

const (
	aliceUID = "11111111-1111-1111-1111-111111111111"
	bobUID   = "22222222-2222-2222-2222-222222222222"
)

var (
	alice = models.Identity{UserUID: aliceUID, Role: models.RoleUser}
	admin = models.Identity{UserUID: "99999999-9999-9999-9999-999999999999", Role: models.RoleAdmin}
	nop   = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func TestUserService_List(t *testing.T) {
	t.Run("admin gets users with default limit", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ListUsers", mock.Anything, models.DefaultLimit, 0).Return([]*models.User{{UUID: aliceUID}}, nil).Once()
		svc := services.NewUserService(repo, nop)

		users, err := svc.List(context.Background(), admin, 0, -3)
		require.NoError(t, err)
		assert.Len(t, users, 1)
		repo.AssertExpectations(t)
	})

	t.Run("regular user is forbidden", func(t *testing.T) {
		repo := new(RepoMock)
		svc := services.NewUserService(repo, nop)

		_, err := svc.List(context.Background(), alice, 10, 0)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
		repo.AssertNotCalled(t, "ListUsers", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUserService_Get(t *testing.T) {
	tests := []struct {
		name      string
		requester models.Identity
		target    string
		setup     func(r *RepoMock)
		wantKind  apperr.Kind
		wantErr   bool
	}{
		{
			name:      "own profile",
			requester: alice,
			target:    aliceUID,
			setup: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, aliceUID).Return(&models.User{UUID: aliceUID}, nil).Once()
			},
		},
		{
			name:      "admin reads anyone",
			requester: admin,
			target:    bobUID,
			setup: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, bobUID).Return(&models.User{UUID: bobUID}, nil).Once()
			},
		},
		{
			name:      "someone else's profile",
			requester: alice,
			target:    bobUID,
			setup:     func(*RepoMock) {},
			wantErr:   true,
			wantKind:  apperr.KindForbidden,
		},
		{
			name:      "missing user",
			requester: admin,
			target:    bobUID,
			setup: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, bobUID).Return(nil, repository.ErrNotFound).Once()
			},
			wantErr:  true,
			wantKind: apperr.KindNotFound,
		},
		{
			name:      "malformed id",
			requester: admin,
			target:    "not-a-uuid",
			setup:     func(*RepoMock) {},
			wantErr:   true,
			wantKind:  apperr.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setup(repo)
			svc := services.NewUserService(repo, nop)

			user, err := svc.Get(context.Background(), tt.requester, tt.target)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, user.UUID)
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_Delete(t *testing.T) {
	t.Run("cascades subscriptions", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("DeleteSubscriptionsByUser", mock.Anything, aliceUID).Return(int64(3), nil).Once()
		repo.On("DeleteUser", mock.Anything, aliceUID).Return(nil).Once()
		svc := services.NewUserService(repo, nop)

		require.NoError(t, svc.Delete(context.Background(), alice, aliceUID))
		repo.AssertExpectations(t)
	})

	t.Run("subscription cleanup failure aborts", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("DeleteSubscriptionsByUser", mock.Anything, aliceUID).Return(int64(0), errors.New("db down")).Once()
		svc := services.NewUserService(repo, nop)

		err := svc.Delete(context.Background(), alice, aliceUID)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
		repo.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
	})

	t.Run("user already gone", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("DeleteSubscriptionsByUser", mock.Anything, bobUID).Return(int64(0), nil).Once()
		repo.On("DeleteUser", mock.Anything, bobUID).Return(repository.ErrNotFound).Once()
		svc := services.NewUserService(repo, nop)

		err := svc.Delete(context.Background(), admin, bobUID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("cannot delete another account", func(t *testing.T) {
		svc := services.NewUserService(new(RepoMock), nop)
		err := svc.Delete(context.Background(), alice, bobUID)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
	})
}
