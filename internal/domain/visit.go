package domain

import "time"

type VerificationMethod string

const (
	VerifyGPS    VerificationMethod = "gps"
	VerifyQRCode VerificationMethod = "qr_code"
	VerifyManual VerificationMethod = "manual"
)

// Visit records a user's presence at a parking location. A GPS-verified
// visit within the distance threshold earns coins, at most once per parking
// per day.
type Visit struct {
	ID                 string             `json:"id"`
	UserID             int                `json:"user_id"`
	ParkingID          string             `json:"parking_id"`
	VisitDate          time.Time          `json:"visit_date"`
	CoinsEarned        int                `json:"coins_earned"`
	Latitude           float64            `json:"latitude"`
	Longitude          float64            `json:"longitude"`
	DistanceMeters     float64            `json:"distance_meters"`
	IsVerified         bool               `json:"is_verified"`
	VerificationMethod VerificationMethod `json:"verification_method"`
	Notes              string             `json:"notes,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

type VisitDTO struct {
	ParkingRef string  `json:"parking_ref" binding:"required"`
	Latitude   float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude  float64 `json:"longitude" binding:"min=-180,max=180"`
	Notes      string  `json:"notes" binding:"max=500"`
}
