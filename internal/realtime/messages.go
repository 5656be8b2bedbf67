package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
)

// Inbound message types.
const (
	MsgAuthenticate     = "authenticate"
	MsgJoinParkingRoom  = "join_parking_room"
	MsgLeaveParkingRoom = "leave_parking_room"
	MsgCVModelConnect   = "cv_model_connect"
	MsgDetectionUpdate  = "parking_count_update"
	MsgStaffUpdate      = "staff_count_update"
)

// Outbound event types.
const (
	EventCountUpdated     = "parking_count_updated"
	EventStaffCountUpdate = "staff_count_update"
	EventAuthenticated    = "authenticated"
	EventJoinedRoom       = "joined_parking_room"
	EventLeftRoom         = "left_parking_room"
	EventCVModelConnected = "cv_model_connected"
	EventError            = "error"
)

// Envelope is the wire framing for every socket message: a type tag plus a
// type-specific payload. Payloads are validated before being acted on.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func Encode(msgType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Data: raw})
}

type AuthenticateMsg struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
}

func (m *AuthenticateMsg) Validate() error {
	if m.UserID == 0 {
		return errors.New("user_id is required")
	}
	return nil
}

type RoomMsg struct {
	ParkingID string `json:"parking_id"`
}

func (m *RoomMsg) Validate() error {
	if m.ParkingID == "" {
		return errors.New("parking_id is required")
	}
	return nil
}

type CVModelConnectMsg struct {
	ParkingID string `json:"parking_id"`
	ModelID   string `json:"model_id"`
}

func (m *CVModelConnectMsg) Validate() error {
	if m.ParkingID == "" || m.ModelID == "" {
		return errors.New("parking_id and model_id are required")
	}
	return nil
}

// DetectionUpdateMsg carries a full recount from the detection feed, with an
// optional capacity recalibration applied atomically with the counts.
type DetectionUpdateMsg struct {
	ParkingID string                `json:"parking_id"`
	Counts    *domain.VehicleCounts `json:"counts"`
	Capacity  *domain.VehicleCounts `json:"capacity,omitempty"`
}

func (m *DetectionUpdateMsg) Validate() error {
	if m.ParkingID == "" {
		return errors.New("parking_id is required")
	}
	if m.Counts == nil {
		return errors.New("counts are required")
	}
	return nil
}

type StaffUpdateAction string

const (
	ActionIncrement StaffUpdateAction = "increment"
	ActionDecrement StaffUpdateAction = "decrement"
	ActionSet       StaffUpdateAction = "set"
)

type StaffUpdateMsg struct {
	ParkingID   string            `json:"parking_id"`
	VehicleType string            `json:"vehicle_type"`
	Count       *int              `json:"count"`
	Action      StaffUpdateAction `json:"action"`
}

func (m *StaffUpdateMsg) Validate() error {
	if m.ParkingID == "" {
		return errors.New("parking_id is required")
	}
	if m.VehicleType == "" {
		return errors.New("vehicle_type is required")
	}
	if m.Count == nil {
		return errors.New("count is required")
	}
	switch m.Action {
	case ActionIncrement, ActionDecrement, ActionSet:
		return nil
	}
	return fmt.Errorf("unknown action '%s'", m.Action)
}

type ErrorMsg struct {
	Message string `json:"message"`
}

type RoomAck struct {
	ParkingID   string `json:"parking_id"`
	ParkingCode string `json:"parking_code,omitempty"`
}

type CVModelAck struct {
	ParkingID string `json:"parking_id"`
	ModelID   string `json:"model_id"`
}

type AuthenticatedAck struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
}
