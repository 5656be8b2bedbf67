package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
)

type RequestService struct {
	requestRepo repository.RequestRepository
	userRepo    repository.UserRepository
}

func NewRequestService(requestRepo repository.RequestRepository, userRepo repository.UserRepository) *RequestService {
	return &RequestService{requestRepo: requestRepo, userRepo: userRepo}
}

func (s *RequestService) CreateRequest(ctx context.Context, userID int, dto domain.RequestDTO) (*domain.Request, error) {
	request := &domain.Request{
		UserID:      userID,
		RequestType: domain.RequestType(dto.RequestType),
		Title:       dto.Title,
		Description: dto.Description,
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
		Address:     dto.Address,
		Capacity:    dto.Capacity,
	}
	return s.requestRepo.Create(ctx, request)
}

func (s *RequestService) GetRequest(ctx context.Context, id string) (*domain.Request, error) {
	return s.requestRepo.FindByID(ctx, id)
}

func (s *RequestService) ListUserRequests(ctx context.Context, userID int) ([]domain.Request, error) {
	return s.requestRepo.FindByUser(ctx, userID)
}

func (s *RequestService) ListPendingRequests(ctx context.Context) ([]domain.Request, error) {
	return s.requestRepo.FindByStatus(ctx, domain.RequestPending)
}

// ReviewRequest approves or denies a pending request. Approval pays the
// reporter a coin reward sized by the request type; the status transition is
// conditional on the request still being pending, so a second review cannot
// pay out again.
func (s *RequestService) ReviewRequest(ctx context.Context, id string, reviewerID int, dto domain.ReviewRequestDTO) (*domain.Request, error) {
	request, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	status := domain.RequestDenied
	coins := 0
	if dto.Approve {
		status = domain.RequestApproved
		switch request.RequestType {
		case domain.RequestParking:
			coins = domain.CoinsParkingRequestApproved
		case domain.RequestNoParking:
			coins = domain.CoinsNoParkingRequestApproved
		}
	}

	updated, err := s.requestRepo.UpdateStatus(ctx, id, status, reviewerID, dto.ReviewNote, coins, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("updating request status: %w", err)
	}

	if coins > 0 {
		if _, err := s.userRepo.AddCoins(ctx, updated.UserID, coins); err != nil {
			// The review already landed; the payout is logged for manual
			// reconciliation rather than rolling the status back.
			log.Printf("failed to credit %d coins to user %d for request %s: %v", coins, updated.UserID, id, err)
		}
	}
	return updated, nil
}
