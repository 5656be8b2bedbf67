package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
)

func newTestVisitService() (*VisitService, *fakeVisitRepo, *fakeUserRepo) {
	p := testParking()
	p.Latitude = 18.5204
	p.Longitude = 73.8567
	parkings := newFakeParkingRepo(p)
	visits := &fakeVisitRepo{}
	users := newFakeUserRepo(&domain.User{ID: 3, Name: "Visitor", Email: "v@example.com", Role: domain.RoleUser})
	return NewVisitService(visits, parkings, users, 100), visits, users
}

func TestVisitService_RecordVisit(t *testing.T) {
	ctx := context.Background()

	t.Run("visit at the parking is verified and rewarded", func(t *testing.T) {
		svc, _, users := newTestVisitService()

		visit, err := svc.RecordVisit(ctx, 3, domain.VisitDTO{
			ParkingRef: "1a2b3c4d",
			Latitude:   18.5204,
			Longitude:  73.8567,
		})
		require.NoError(t, err)
		assert.True(t, visit.IsVerified)
		assert.Equal(t, domain.VerifyGPS, visit.VerificationMethod)
		assert.Equal(t, domain.CoinsParkingVisit, visit.CoinsEarned)

		user, err := users.FindByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.CoinsParkingVisit, user.Coins)
	})

	t.Run("second verified visit on the same day earns nothing", func(t *testing.T) {
		svc, _, users := newTestVisitService()

		dto := domain.VisitDTO{ParkingRef: "1a2b3c4d", Latitude: 18.5204, Longitude: 73.8567}
		first, err := svc.RecordVisit(ctx, 3, dto)
		require.NoError(t, err)
		require.Equal(t, domain.CoinsParkingVisit, first.CoinsEarned)

		second, err := svc.RecordVisit(ctx, 3, dto)
		require.NoError(t, err)
		assert.True(t, second.IsVerified)
		assert.Zero(t, second.CoinsEarned)

		user, err := users.FindByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.CoinsParkingVisit, user.Coins)
	})

	t.Run("far away visit is recorded but unverified", func(t *testing.T) {
		svc, visits, _ := newTestVisitService()

		// Roughly 1.5 km north of the parking.
		visit, err := svc.RecordVisit(ctx, 3, domain.VisitDTO{
			ParkingRef: "1a2b3c4d",
			Latitude:   18.534,
			Longitude:  73.8567,
		})
		require.NoError(t, err)
		assert.False(t, visit.IsVerified)
		assert.Zero(t, visit.CoinsEarned)
		assert.Greater(t, visit.DistanceMeters, 1000.0)
		assert.Len(t, visits.visits, 1)
	})

	t.Run("unknown parking", func(t *testing.T) {
		svc, _, _ := newTestVisitService()

		_, err := svc.RecordVisit(ctx, 3, domain.VisitDTO{ParkingRef: "nope"})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestVisitService_DeleteVisit(t *testing.T) {
	ctx := context.Background()
	dto := domain.VisitDTO{ParkingRef: "1a2b3c4d", Latitude: 18.5204, Longitude: 73.8567}

	t.Run("deleting a rewarded visit reclaims the coins", func(t *testing.T) {
		svc, visits, users := newTestVisitService()

		visit, err := svc.RecordVisit(ctx, 3, dto)
		require.NoError(t, err)
		require.Equal(t, domain.CoinsParkingVisit, visit.CoinsEarned)

		require.NoError(t, svc.DeleteVisit(ctx, visit.ID))

		user, err := users.FindByID(ctx, 3)
		require.NoError(t, err)
		assert.Zero(t, user.Coins)
		assert.Empty(t, visits.visits)
	})

	t.Run("spent balance blocks the deletion", func(t *testing.T) {
		svc, visits, users := newTestVisitService()

		visit, err := svc.RecordVisit(ctx, 3, dto)
		require.NoError(t, err)
		require.Equal(t, domain.CoinsParkingVisit, visit.CoinsEarned)

		// The visitor spends the reward before the visit is deleted.
		_, err = users.AddCoins(ctx, 3, -domain.CoinsParkingVisit)
		require.NoError(t, err)

		err = svc.DeleteVisit(ctx, visit.ID)
		assert.ErrorIs(t, err, repository.ErrInsufficientCoins)
		assert.Len(t, visits.visits, 1)
	})

	t.Run("unrewarded visit leaves the wallet alone", func(t *testing.T) {
		svc, visits, users := newTestVisitService()

		first, err := svc.RecordVisit(ctx, 3, dto)
		require.NoError(t, err)
		second, err := svc.RecordVisit(ctx, 3, dto)
		require.NoError(t, err)
		require.Zero(t, second.CoinsEarned)

		require.NoError(t, svc.DeleteVisit(ctx, second.ID))

		user, err := users.FindByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.CoinsParkingVisit, user.Coins)
		require.Len(t, visits.visits, 1)
		assert.Equal(t, first.ID, visits.visits[0].ID)
	})

	t.Run("unknown visit", func(t *testing.T) {
		svc, _, _ := newTestVisitService()
		assert.ErrorIs(t, svc.DeleteVisit(ctx, "nope"), repository.ErrNotFound)
	})
}

func TestHaversineMeters(t *testing.T) {
	// Pune railway station to Shaniwar Wada is about 3 km.
	d := haversineMeters(18.5289, 73.8744, 18.5195, 73.8553)
	assert.InDelta(t, 2300, d, 500)

	assert.Zero(t, haversineMeters(18.52, 73.85, 18.52, 73.85))
}
