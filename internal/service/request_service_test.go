package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
)

func newTestRequestService() (*RequestService, *fakeUserRepo) {
	users := newFakeUserRepo(&domain.User{ID: 3, Name: "Reporter", Email: "r@example.com", Role: domain.RoleUser})
	return NewRequestService(newFakeRequestRepo(), users), users
}

func TestRequestService_ReviewRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("approving a parking report pays the reporter", func(t *testing.T) {
		svc, users := newTestRequestService()

		created, err := svc.CreateRequest(ctx, 3, domain.RequestDTO{
			RequestType: "parking", Title: "New lot on MG Road", Description: "Open ground behind the market",
		})
		require.NoError(t, err)
		require.Equal(t, domain.RequestPending, created.Status)

		reviewed, err := svc.ReviewRequest(ctx, created.ID, 1, domain.ReviewRequestDTO{Approve: true, ReviewNote: "confirmed"})
		require.NoError(t, err)
		assert.Equal(t, domain.RequestApproved, reviewed.Status)
		assert.Equal(t, domain.CoinsParkingRequestApproved, reviewed.CoinsEarned)

		user, err := users.FindByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.CoinsParkingRequestApproved, user.Coins)
	})

	t.Run("no-parking reports pay the smaller reward", func(t *testing.T) {
		svc, users := newTestRequestService()

		created, err := svc.CreateRequest(ctx, 3, domain.RequestDTO{
			RequestType: "no_parking", Title: "Lot closed", Description: "Construction site now",
		})
		require.NoError(t, err)

		reviewed, err := svc.ReviewRequest(ctx, created.ID, 1, domain.ReviewRequestDTO{Approve: true})
		require.NoError(t, err)
		assert.Equal(t, domain.CoinsNoParkingRequestApproved, reviewed.CoinsEarned)

		user, err := users.FindByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.CoinsNoParkingRequestApproved, user.Coins)
	})

	t.Run("denial pays nothing", func(t *testing.T) {
		svc, users := newTestRequestService()

		created, err := svc.CreateRequest(ctx, 3, domain.RequestDTO{
			RequestType: "parking", Title: "Dubious report", Description: "x",
		})
		require.NoError(t, err)

		reviewed, err := svc.ReviewRequest(ctx, created.ID, 1, domain.ReviewRequestDTO{Approve: false, ReviewNote: "could not verify"})
		require.NoError(t, err)
		assert.Equal(t, domain.RequestDenied, reviewed.Status)
		assert.Zero(t, reviewed.CoinsEarned)

		user, err := users.FindByID(ctx, 3)
		require.NoError(t, err)
		assert.Zero(t, user.Coins)
	})

	t.Run("a request cannot be reviewed twice", func(t *testing.T) {
		svc, users := newTestRequestService()

		created, err := svc.CreateRequest(ctx, 3, domain.RequestDTO{
			RequestType: "parking", Title: "New lot", Description: "x",
		})
		require.NoError(t, err)

		_, err = svc.ReviewRequest(ctx, created.ID, 1, domain.ReviewRequestDTO{Approve: true})
		require.NoError(t, err)
		_, err = svc.ReviewRequest(ctx, created.ID, 2, domain.ReviewRequestDTO{Approve: true})
		assert.ErrorIs(t, err, repository.ErrNotFound)

		user, err := users.FindByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.CoinsParkingRequestApproved, user.Coins, "double review must not pay twice")
	})
}
