package service

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
)

type VisitService struct {
	visitRepo    repository.VisitRepository
	parkingRepo  repository.ParkingRepository
	userRepo     repository.UserRepository
	verifyRadius float64
}

func NewVisitService(visitRepo repository.VisitRepository, parkingRepo repository.ParkingRepository, userRepo repository.UserRepository, verifyRadiusMeters float64) *VisitService {
	return &VisitService{
		visitRepo:    visitRepo,
		parkingRepo:  parkingRepo,
		userRepo:     userRepo,
		verifyRadius: verifyRadiusMeters,
	}
}

// RecordVisit stores a visit and, when the reported position is within the
// verification radius of the parking, pays the visit reward. The reward is
// capped at one per user per parking per UTC day.
func (s *VisitService) RecordVisit(ctx context.Context, userID int, dto domain.VisitDTO) (*domain.Visit, error) {
	parking, err := s.parkingRepo.FindByRef(ctx, dto.ParkingRef, repository.ParkingFilter{ApprovedOnly: true})
	if err != nil {
		return nil, err
	}

	distance := haversineMeters(dto.Latitude, dto.Longitude, parking.Latitude, parking.Longitude)
	now := time.Now().UTC()
	visit := &domain.Visit{
		UserID:             userID,
		ParkingID:          parking.ID,
		VisitDate:          now,
		Latitude:           dto.Latitude,
		Longitude:          dto.Longitude,
		DistanceMeters:     distance,
		IsVerified:         distance <= s.verifyRadius,
		VerificationMethod: domain.VerifyGPS,
		Notes:              dto.Notes,
	}

	if visit.IsVerified {
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		rewarded, err := s.visitRepo.CountVerifiedSince(ctx, userID, parking.ID, startOfDay)
		if err != nil {
			return nil, err
		}
		if rewarded == 0 {
			visit.CoinsEarned = domain.CoinsParkingVisit
		}
	}

	created, err := s.visitRepo.Create(ctx, visit)
	if err != nil {
		return nil, err
	}

	if created.CoinsEarned > 0 {
		if _, err := s.userRepo.AddCoins(ctx, userID, created.CoinsEarned); err != nil {
			log.Printf("failed to credit %d coins to user %d for visit %s: %v", created.CoinsEarned, userID, created.ID, err)
		}
	}
	return created, nil
}

func (s *VisitService) GetVisit(ctx context.Context, id string) (*domain.Visit, error) {
	return s.visitRepo.FindByID(ctx, id)
}

func (s *VisitService) ListUserVisits(ctx context.Context, userID int) ([]domain.Visit, error) {
	return s.visitRepo.FindByUser(ctx, userID)
}

// DeleteVisit removes a visit and reclaims the coins it earned. When the user
// has already spent the balance the deduction fails with
// repository.ErrInsufficientCoins and the visit is kept.
func (s *VisitService) DeleteVisit(ctx context.Context, id string) error {
	visit, err := s.visitRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if visit.CoinsEarned > 0 {
		if _, err := s.userRepo.AddCoins(ctx, visit.UserID, -visit.CoinsEarned); err != nil {
			return err
		}
	}
	return s.visitRepo.Delete(ctx, visit.ID)
}

// haversineMeters returns the great-circle distance between two coordinates.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusMeters = 6371000
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
