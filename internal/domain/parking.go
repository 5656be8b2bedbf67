package domain

import (
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

type ParkingType string
type PaymentType string
type OwnershipType string

const (
	ParkingOpenSky   ParkingType = "opensky"
	ParkingClosedSky ParkingType = "closedsky"

	PaymentPaid PaymentType = "paid"
	PaymentFree PaymentType = "free"

	OwnershipPrivate OwnershipType = "private"
	OwnershipPublic  OwnershipType = "public"
)

const MaxStaffPerParking = 5

// Parking is a parking location. Capacity and CurrentCount hold one ceiling
// and one live count per vehicle class; the stored row always satisfies
// 0 <= CurrentCount <= Capacity for every class.
type Parking struct {
	ID            string        `json:"id"`
	ParkingCode   string        `json:"parking_code"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Latitude      float64       `json:"latitude"`
	Longitude     float64       `json:"longitude"`
	Address       string        `json:"address,omitempty"`
	ParkingType   ParkingType   `json:"parking_type"`
	PaymentType   PaymentType   `json:"payment_type"`
	OwnershipType OwnershipType `json:"ownership_type"`
	Capacity      VehicleCounts `json:"capacity"`
	CurrentCount  VehicleCounts `json:"current_count"`
	HourlyRate    VehicleCounts `json:"hourly_rate"`
	OwnerID       int           `json:"owner_id"`
	IsActive      bool          `json:"is_active"`
	IsApproved    bool          `json:"is_approved"`
	ApprovedBy    null.Int      `json:"approved_by,omitempty"`
	ApprovedAt    null.Time     `json:"approved_at,omitempty"`
	LastUpdated   time.Time     `json:"last_updated"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (p *Parking) TotalCapacity() int {
	return p.Capacity.Total()
}

func (p *Parking) TotalCount() int {
	return p.CurrentCount.Total()
}

func (p *Parking) AvailableSpaces() VehicleCounts {
	spaces := VehicleCounts{}
	for _, v := range VehicleTypes {
		free := p.Capacity.Get(v) - p.CurrentCount.Get(v)
		if free < 0 {
			free = 0
		}
		spaces.Set(v, free)
	}
	return spaces
}

func (p *Parking) IsFull() bool {
	return p.TotalCount() >= p.TotalCapacity()
}

func (p *Parking) OccupancyPercentage() int {
	total := p.TotalCapacity()
	if total <= 0 {
		return 0
	}
	return int(float64(p.TotalCount())/float64(total)*100 + 0.5)
}

// ShortCodeFromID derives the human-facing parking code from an internal
// identifier: the trailing 8 hex characters of the UUID with dashes removed.
func ShortCodeFromID(id string) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) <= 8 {
		return compact
	}
	return compact[len(compact)-8:]
}

type ParkingDTO struct {
	ParkingCode   string        `json:"parking_code"`
	Name          string        `json:"name" binding:"required,max=100"`
	Description   string        `json:"description" binding:"max=500"`
	Latitude      float64       `json:"latitude" binding:"min=-90,max=90"`
	Longitude     float64       `json:"longitude" binding:"min=-180,max=180"`
	Address       string        `json:"address"`
	ParkingType   string        `json:"parking_type" binding:"required,oneof=opensky closedsky"`
	PaymentType   string        `json:"payment_type" binding:"required,oneof=paid free"`
	OwnershipType string        `json:"ownership_type" binding:"required,oneof=private public"`
	Capacity      VehicleCounts `json:"capacity"`
	HourlyRate    VehicleCounts `json:"hourly_rate"`
}

type VehicleCountDTO struct {
	VehicleType string `json:"vehicle_type" binding:"required"`
	Count       *int   `json:"count,omitempty"`
	Increment   *int   `json:"increment,omitempty"`
	Decrement   *int   `json:"decrement,omitempty"`
}

// UpdateActor tags which actor class triggered an occupancy mutation. It is
// carried on the outbound snapshot and selects the secondary notification
// target; it never gates the mutation itself.
type UpdateActor string

const (
	UpdatedByDetection UpdateActor = "detection"
	UpdatedByStaff     UpdateActor = "staff"
)

// OccupancySnapshot is the payload broadcast to a parking room after every
// successful occupancy mutation.
type OccupancySnapshot struct {
	ParkingID       string        `json:"parking_id"`
	ParkingCode     string        `json:"parking_code"`
	CurrentCount    VehicleCounts `json:"current_count"`
	Capacity        VehicleCounts `json:"capacity"`
	LastUpdated     time.Time     `json:"last_updated"`
	IsFull          bool          `json:"is_full"`
	AvailableSpaces VehicleCounts `json:"available_spaces"`
	UpdatedBy       UpdateActor   `json:"updated_by"`
}

// StaffOverrideNotice is the narrower notification delivered only to a
// parking's registered detection session when a staff mutation lands, so the
// detection feed can reconcile its internal state with the human override.
type StaffOverrideNotice struct {
	ParkingID    string        `json:"parking_id"`
	CurrentCount VehicleCounts `json:"current_count"`
	UpdatedBy    UpdateActor   `json:"updated_by"`
}

func SnapshotOf(p *Parking, actor UpdateActor) OccupancySnapshot {
	return OccupancySnapshot{
		ParkingID:       p.ID,
		ParkingCode:     p.ParkingCode,
		CurrentCount:    p.CurrentCount,
		Capacity:        p.Capacity,
		LastUpdated:     p.LastUpdated,
		IsFull:          p.IsFull(),
		AvailableSpaces: p.AvailableSpaces(),
		UpdatedBy:       actor,
	}
}
