package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type RequestType string
type RequestStatus string

const (
	RequestParking   RequestType = "parking"
	RequestNoParking RequestType = "no_parking"

	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDenied   RequestStatus = "denied"
)

// Request is a crowd-sourced report of a new parking spot or a no-parking
// zone. Approval pays the reporter a coin reward.
type Request struct {
	ID          string        `json:"id"`
	UserID      int           `json:"user_id"`
	RequestType RequestType   `json:"request_type"`
	Status      RequestStatus `json:"status"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Latitude    float64       `json:"latitude"`
	Longitude   float64       `json:"longitude"`
	Address     string        `json:"address,omitempty"`
	Capacity    VehicleCounts `json:"capacity,omitempty"`
	CoinsEarned int           `json:"coins_earned"`
	ReviewedBy  null.Int      `json:"reviewed_by,omitempty"`
	ReviewedAt  null.Time     `json:"reviewed_at,omitempty"`
	ReviewNote  string        `json:"review_note,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type RequestDTO struct {
	RequestType string        `json:"request_type" binding:"required,oneof=parking no_parking"`
	Title       string        `json:"title" binding:"required,max=100"`
	Description string        `json:"description" binding:"required,max=1000"`
	Latitude    float64       `json:"latitude" binding:"min=-90,max=90"`
	Longitude   float64       `json:"longitude" binding:"min=-180,max=180"`
	Address     string        `json:"address"`
	Capacity    VehicleCounts `json:"capacity"`
}

type ReviewRequestDTO struct {
	Approve    bool   `json:"approve"`
	ReviewNote string `json:"review_note" binding:"max=500"`
}
