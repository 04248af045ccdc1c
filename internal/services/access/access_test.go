package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	services "github.com/magabrotheeeer/subscription-tracker/internal/services/access"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) GetActiveFamilyBySubscription(ctx context.Context, subscriptionID string) (*models.FamilySubscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FamilySubscription), args.Error(1)
}

const (
	subID    = "33333333-3333-3333-3333-333333333333"
	ownerUID = "owner"
	bobUID   = "bob"
	carolUID = "carol"
)

func family() *models.FamilySubscription {
	return &models.FamilySubscription{
		SubscriptionID: subID,
		OwnerUID:       ownerUID,
		MaxMembers:     5,
		IsActive:       true,
		Members: []models.Member{
			{UserUID: bobUID, Status: models.MemberActive},
			{UserUID: carolUID, Status: models.MemberPending},
		},
	}
}

func TestEvaluator_Check(t *testing.T) {
	sub := &models.Subscription{ID: subID, UserUID: ownerUID}

	tests := []struct {
		name    string
		user    string
		setup   func(r *RepoMock)
		want    models.AccessType
		hasFam  bool
		wantErr bool
	}{
		{
			name: "owner short-circuits without family lookup",
			user: ownerUID,
			setup: func(r *RepoMock) {
				r.On("GetSubscription", mock.Anything, subID).Return(sub, nil).Once()
			},
			want: models.AccessOwner,
		},
		{
			name: "active member",
			user: bobUID,
			setup: func(r *RepoMock) {
				r.On("GetSubscription", mock.Anything, subID).Return(sub, nil).Once()
				r.On("GetActiveFamilyBySubscription", mock.Anything, subID).Return(family(), nil).Once()
			},
			want:   models.AccessMember,
			hasFam: true,
		},
		{
			name: "pending member has no access",
			user: carolUID,
			setup: func(r *RepoMock) {
				r.On("GetSubscription", mock.Anything, subID).Return(sub, nil).Once()
				r.On("GetActiveFamilyBySubscription", mock.Anything, subID).Return(family(), nil).Once()
			},
			want: models.AccessNone,
		},
		{
			name: "stranger without family",
			user: "stranger",
			setup: func(r *RepoMock) {
				r.On("GetSubscription", mock.Anything, subID).Return(sub, nil).Once()
				r.On("GetActiveFamilyBySubscription", mock.Anything, subID).Return(nil, repository.ErrNotFound).Once()
			},
			want: models.AccessNone,
		},
		{
			name: "subscription lookup failure is an error",
			user: bobUID,
			setup: func(r *RepoMock) {
				r.On("GetSubscription", mock.Anything, subID).Return(nil, errors.New("connection reset")).Once()
			},
			wantErr: true,
		},
		{
			name: "family lookup failure is an error",
			user: bobUID,
			setup: func(r *RepoMock) {
				r.On("GetSubscription", mock.Anything, subID).Return(sub, nil).Once()
				r.On("GetActiveFamilyBySubscription", mock.Anything, subID).Return(nil, errors.New("timeout")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setup(repo)
			ev := services.NewEvaluator(repo)

			res, err := ev.Check(context.Background(), tt.user, subID)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, res.HasAccess)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.AccessType)
			assert.Equal(t, tt.want != models.AccessNone, res.HasAccess)
			assert.Equal(t, tt.hasFam, res.Family != nil)
			repo.AssertExpectations(t)
		})
	}
}

func TestEvaluator_Check_MalformedID(t *testing.T) {
	repo := new(RepoMock)
	ev := services.NewEvaluator(repo)

	res, err := ev.Check(context.Background(), ownerUID, "42")
	require.NoError(t, err)
	assert.False(t, res.HasAccess)
	repo.AssertNotCalled(t, "GetSubscription", mock.Anything, mock.Anything)
}
