package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
)

// Publisher pushes post-mutation snapshots to live subscribers. Delivery is
// fire-and-forget: the occupancy write is already durable when these are
// called, and a failed delivery is never surfaced to the mutation caller.
type Publisher interface {
	PublishSnapshot(snapshot domain.OccupancySnapshot)
	NotifyDetection(parkingID string, notice domain.StaffOverrideNotice)
}

type ParkingService struct {
	parkingRepo repository.ParkingRepository
	userRepo    repository.UserRepository
	publisher   Publisher
}

func NewParkingService(parkingRepo repository.ParkingRepository, userRepo repository.UserRepository, publisher Publisher) *ParkingService {
	return &ParkingService{
		parkingRepo: parkingRepo,
		userRepo:    userRepo,
		publisher:   publisher,
	}
}

// --- Parking CRUD ---

func (s *ParkingService) CreateParking(ctx context.Context, ownerID int, dto domain.ParkingDTO) (*domain.Parking, error) {
	for _, v := range domain.VehicleTypes {
		if dto.Capacity.Get(v) < 0 {
			return nil, fmt.Errorf("%w: capacity for %s", domain.ErrInvalidCount, v)
		}
	}
	parking := &domain.Parking{
		ParkingCode:   dto.ParkingCode,
		Name:          dto.Name,
		Description:   dto.Description,
		Latitude:      dto.Latitude,
		Longitude:     dto.Longitude,
		Address:       dto.Address,
		ParkingType:   domain.ParkingType(dto.ParkingType),
		PaymentType:   domain.PaymentType(dto.PaymentType),
		OwnershipType: domain.OwnershipType(dto.OwnershipType),
		Capacity:      dto.Capacity,
		HourlyRate:    dto.HourlyRate,
		OwnerID:       ownerID,
	}
	return s.parkingRepo.Create(ctx, parking)
}

// ResolveParking looks up one active parking by internal id or short code.
func (s *ParkingService) ResolveParking(ctx context.Context, ref string) (*domain.Parking, error) {
	return s.parkingRepo.FindByRef(ctx, ref, repository.ParkingFilter{})
}

// ResolveApprovedParking is the public-read variant; it additionally requires
// the parking to be approved.
func (s *ParkingService) ResolveApprovedParking(ctx context.Context, ref string) (*domain.Parking, error) {
	return s.parkingRepo.FindByRef(ctx, ref, repository.ParkingFilter{ApprovedOnly: true})
}

func (s *ParkingService) ListParkings(ctx context.Context, approvedOnly bool) ([]domain.Parking, error) {
	return s.parkingRepo.FindAll(ctx, repository.ParkingFilter{ApprovedOnly: approvedOnly})
}

func (s *ParkingService) ListOwnedParkings(ctx context.Context, ownerID int) ([]domain.Parking, error) {
	return s.parkingRepo.FindAll(ctx, repository.ParkingFilter{OwnerID: ownerID})
}

func (s *ParkingService) ListNearbyParkings(ctx context.Context, lat, lng, radiusMeters float64) ([]domain.Parking, error) {
	return s.parkingRepo.FindNearby(ctx, lat, lng, radiusMeters, repository.ParkingFilter{ApprovedOnly: true})
}

func (s *ParkingService) UpdateParking(ctx context.Context, ref string, actorID int, actorRole domain.UserRole, dto domain.ParkingDTO) (*domain.Parking, error) {
	parking, err := s.ResolveParking(ctx, ref)
	if err != nil {
		return nil, err
	}
	if actorRole != domain.RoleAdmin && parking.OwnerID != actorID {
		return nil, ErrNotParkingManager
	}
	parking.Name = dto.Name
	parking.Description = dto.Description
	parking.Latitude = dto.Latitude
	parking.Longitude = dto.Longitude
	parking.Address = dto.Address
	parking.ParkingType = domain.ParkingType(dto.ParkingType)
	parking.PaymentType = domain.PaymentType(dto.PaymentType)
	parking.OwnershipType = domain.OwnershipType(dto.OwnershipType)
	parking.HourlyRate = dto.HourlyRate
	return s.parkingRepo.Update(ctx, parking)
}

func (s *ParkingService) DeactivateParking(ctx context.Context, ref string, actorID int, actorRole domain.UserRole) error {
	parking, err := s.ResolveParking(ctx, ref)
	if err != nil {
		return err
	}
	if actorRole != domain.RoleAdmin && parking.OwnerID != actorID {
		return ErrNotParkingManager
	}
	return s.parkingRepo.Deactivate(ctx, parking.ID)
}

func (s *ParkingService) ApproveParking(ctx context.Context, ref string, adminID int) (*domain.Parking, error) {
	parking, err := s.ResolveParking(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.parkingRepo.Approve(ctx, parking.ID, adminID, time.Now().UTC())
}

// --- Staff management ---

var ErrNotParkingManager = errors.New("user does not manage this parking")

func (s *ParkingService) AssignStaff(ctx context.Context, ref string, actorID int, actorRole domain.UserRole, userID int) error {
	parking, err := s.ResolveParking(ctx, ref)
	if err != nil {
		return err
	}
	if actorRole != domain.RoleAdmin && parking.OwnerID != actorID {
		return ErrNotParkingManager
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return err
	}
	return s.parkingRepo.AssignStaff(ctx, parking.ID, userID)
}

func (s *ParkingService) RemoveStaff(ctx context.Context, ref string, actorID int, actorRole domain.UserRole, userID int) error {
	parking, err := s.ResolveParking(ctx, ref)
	if err != nil {
		return err
	}
	if actorRole != domain.RoleAdmin && parking.OwnerID != actorID {
		return ErrNotParkingManager
	}
	return s.parkingRepo.RemoveStaff(ctx, parking.ID, userID)
}

func (s *ParkingService) ListStaff(ctx context.Context, ref string) ([]domain.User, error) {
	parking, err := s.ResolveParking(ctx, ref)
	if err != nil {
		return nil, err
	}
	ids, err := s.parkingRepo.ListStaff(ctx, parking.ID)
	if err != nil {
		return nil, err
	}
	staff := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.userRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		user.Password = ""
		staff = append(staff, *user)
	}
	return staff, nil
}

// CanManageCounts reports whether the user may mutate this parking's counts:
// its owner, its staff, or any admin.
func (s *ParkingService) CanManageCounts(ctx context.Context, parking *domain.Parking, userID int, role domain.UserRole) (bool, error) {
	if role == domain.RoleAdmin || parking.OwnerID == userID {
		return true, nil
	}
	return s.parkingRepo.IsStaff(ctx, parking.ID, userID)
}

// --- Occupancy mutator ---

// SetVehicleCount replaces one class's live count. The bounds check and the
// write happen in a single atomic update at the storage layer; on any
// rejection the stored counts are untouched.
func (s *ParkingService) SetVehicleCount(ctx context.Context, ref string, vehicle domain.VehicleType, count int, actor domain.UpdateActor) (*domain.Parking, error) {
	if !vehicle.Valid() {
		return nil, domain.ErrInvalidVehicleType
	}
	if count < 0 {
		return nil, domain.ErrInvalidCount
	}
	parking, err := s.ResolveParking(ctx, ref)
	if err != nil {
		return nil, err
	}
	updated, err := s.parkingRepo.SetCount(ctx, parking.ID, vehicle, count)
	if err != nil {
		return nil, err
	}
	s.publish(updated, actor)
	return updated, nil
}

func (s *ParkingService) IncrementVehicleCount(ctx context.Context, ref string, vehicle domain.VehicleType, delta int, actor domain.UpdateActor) (*domain.Parking, error) {
	if !vehicle.Valid() {
		return nil, domain.ErrInvalidVehicleType
	}
	if delta <= 0 {
		return nil, domain.ErrInvalidCount
	}
	parking, err := s.ResolveParking(ctx, ref)
	if err != nil {
		return nil, err
	}
	updated, err := s.parkingRepo.AddCount(ctx, parking.ID, vehicle, delta)
	if err != nil {
		return nil, err
	}
	s.publish(updated, actor)
	return updated, nil
}

func (s *ParkingService) DecrementVehicleCount(ctx context.Context, ref string, vehicle domain.VehicleType, delta int, actor domain.UpdateActor) (*domain.Parking, error) {
	if !vehicle.Valid() {
		return nil, domain.ErrInvalidVehicleType
	}
	if delta <= 0 {
		return nil, domain.ErrInvalidCount
	}
	parking, err := s.ResolveParking(ctx, ref)
	if err != nil {
		return nil, err
	}
	updated, err := s.parkingRepo.AddCount(ctx, parking.ID, vehicle, -delta)
	if err != nil {
		return nil, err
	}
	s.publish(updated, actor)
	return updated, nil
}

// ApplyDetectionUpdate installs a full recount from the automated detection
// feed, optionally recalibrating capacity in the same atomic update. The new
// capacity takes effect before the counts are validated, so a simultaneous
// capacity raise and count raise are judged together.
func (s *ParkingService) ApplyDetectionUpdate(ctx context.Context, ref string, counts domain.VehicleCounts, capacity *domain.VehicleCounts) (*domain.Parking, error) {
	for _, v := range domain.VehicleTypes {
		if counts.Get(v) < 0 {
			return nil, domain.ErrInvalidCount
		}
		if capacity != nil && capacity.Get(v) < 0 {
			return nil, domain.ErrInvalidCount
		}
	}
	parking, err := s.ResolveParking(ctx, ref)
	if err != nil {
		return nil, err
	}
	updated, err := s.parkingRepo.SetAllCounts(ctx, parking.ID, counts, capacity)
	if err != nil {
		return nil, err
	}
	s.publish(updated, domain.UpdatedByDetection)
	return updated, nil
}

func (s *ParkingService) publish(parking *domain.Parking, actor domain.UpdateActor) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishSnapshot(domain.SnapshotOf(parking, actor))
	// A staff override additionally pings the parking's detection session so
	// the feed can reconcile; detection-initiated updates are the originator
	// and get nothing back.
	if actor == domain.UpdatedByStaff {
		s.publisher.NotifyDetection(parking.ID, domain.StaffOverrideNotice{
			ParkingID:    parking.ID,
			CurrentCount: parking.CurrentCount,
			UpdatedBy:    domain.UpdatedByStaff,
		})
	}
}
