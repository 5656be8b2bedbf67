package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")
var ErrInsufficientCoins = errors.New("insufficient coins")
var ErrStaffLimitExceeded = errors.New("staff limit exceeded")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	// AddCoins applies the delta atomically; a negative delta that would take
	// the balance below zero fails with ErrInsufficientCoins and leaves the
	// balance unchanged.
	AddCoins(ctx context.Context, id int, delta int) (int, error)
}

// ParkingFilter narrows parking lookups. Zero-value fields are not applied.
type ParkingFilter struct {
	ApprovedOnly bool
	OwnerID      int
}

type ParkingRepository interface {
	Create(ctx context.Context, parking *domain.Parking) (*domain.Parking, error)
	// FindByRef resolves a parking by internal id or, failing that, by its
	// short parking code. Only active rows are eligible.
	FindByRef(ctx context.Context, ref string, filter ParkingFilter) (*domain.Parking, error)
	FindAll(ctx context.Context, filter ParkingFilter) ([]domain.Parking, error)
	FindNearby(ctx context.Context, lat, lng float64, radiusMeters float64, filter ParkingFilter) ([]domain.Parking, error)
	Update(ctx context.Context, parking *domain.Parking) (*domain.Parking, error)
	Deactivate(ctx context.Context, id string) error
	Approve(ctx context.Context, id string, adminID int, at time.Time) (*domain.Parking, error)

	// SetCount replaces one class's count. The bounds check and the write are
	// a single conditional UPDATE; on a bounds violation the row is untouched
	// and domain.ErrCapacityExceeded is returned.
	SetCount(ctx context.Context, id string, vehicle domain.VehicleType, count int) (*domain.Parking, error)
	// AddCount applies a delta to one class's count atomically. A result
	// below zero fails with domain.ErrInvalidCount, above capacity with
	// domain.ErrCapacityExceeded.
	AddCount(ctx context.Context, id string, vehicle domain.VehicleType, delta int) (*domain.Parking, error)
	// SetAllCounts replaces every class's count, optionally replacing the
	// capacity ceilings in the same statement. The capacity change and the
	// count writes are atomic as a pair: counts are validated against the new
	// capacity, and a violation on any class rejects the whole update.
	SetAllCounts(ctx context.Context, id string, counts domain.VehicleCounts, capacity *domain.VehicleCounts) (*domain.Parking, error)

	AssignStaff(ctx context.Context, parkingID string, userID int) error
	RemoveStaff(ctx context.Context, parkingID string, userID int) error
	ListStaff(ctx context.Context, parkingID string) ([]int, error)
	IsStaff(ctx context.Context, parkingID string, userID int) (bool, error)
}

type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) (*domain.Request, error)
	FindByID(ctx context.Context, id string) (*domain.Request, error)
	FindByUser(ctx context.Context, userID int) ([]domain.Request, error)
	FindByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Request, error)
	// UpdateStatus transitions a pending request; a request that is no longer
	// pending fails with ErrNotFound so reviews cannot be applied twice.
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus, reviewerID int, note string, coins int, at time.Time) (*domain.Request, error)
}

type VisitRepository interface {
	Create(ctx context.Context, visit *domain.Visit) (*domain.Visit, error)
	FindByID(ctx context.Context, id string) (*domain.Visit, error)
	FindByUser(ctx context.Context, userID int) ([]domain.Visit, error)
	// CountVerifiedSince counts a user's verified visits to one parking on or
	// after the given instant, used to cap the daily visit reward.
	CountVerifiedSince(ctx context.Context, userID int, parkingID string, since time.Time) (int, error)
	Delete(ctx context.Context, id string) error
}
