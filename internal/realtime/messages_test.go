package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
)

func TestEncode(t *testing.T) {
	payload, err := Encode(EventCountUpdated, domain.OccupancySnapshot{
		ParkingID:    "parking-1",
		CurrentCount: domain.VehicleCounts{Car: 3, Bike: 7},
	})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(payload, &env))
	assert.Equal(t, EventCountUpdated, env.Type)

	var snap domain.OccupancySnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 3, snap.CurrentCount.Car)
	assert.Equal(t, 7, snap.CurrentCount.Bike)
}

func TestDetectionUpdateMsg_Validate(t *testing.T) {
	counts := domain.VehicleCounts{Car: 1}

	t.Run("valid", func(t *testing.T) {
		msg := DetectionUpdateMsg{ParkingID: "parking-1", Counts: &counts}
		assert.NoError(t, msg.Validate())
	})

	t.Run("missing parking id", func(t *testing.T) {
		msg := DetectionUpdateMsg{Counts: &counts}
		assert.Error(t, msg.Validate())
	})

	t.Run("missing counts", func(t *testing.T) {
		msg := DetectionUpdateMsg{ParkingID: "parking-1"}
		assert.Error(t, msg.Validate())
	})
}

func TestStaffUpdateMsg_Validate(t *testing.T) {
	one := 1

	t.Run("every action requires a count", func(t *testing.T) {
		msg := StaffUpdateMsg{ParkingID: "parking-1", VehicleType: "car", Action: ActionSet}
		assert.Error(t, msg.Validate())

		msg.Count = &one
		assert.NoError(t, msg.Validate())
	})

	t.Run("all three actions are recognized", func(t *testing.T) {
		for _, action := range []StaffUpdateAction{ActionIncrement, ActionDecrement, ActionSet} {
			msg := StaffUpdateMsg{ParkingID: "parking-1", VehicleType: "car", Count: &one, Action: action}
			assert.NoError(t, msg.Validate())
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		msg := StaffUpdateMsg{ParkingID: "parking-1", VehicleType: "car", Count: &one, Action: "reset"}
		assert.Error(t, msg.Validate())
	})

	t.Run("missing vehicle type", func(t *testing.T) {
		msg := StaffUpdateMsg{ParkingID: "parking-1", Count: &one, Action: ActionIncrement}
		assert.Error(t, msg.Validate())
	})
}

func TestRoomMsg_Validate(t *testing.T) {
	assert.Error(t, (&RoomMsg{}).Validate())
	assert.NoError(t, (&RoomMsg{ParkingID: "parking-1"}).Validate())
}

func TestCVModelConnectMsg_Validate(t *testing.T) {
	assert.Error(t, (&CVModelConnectMsg{ModelID: "m"}).Validate())
	assert.NoError(t, (&CVModelConnectMsg{ParkingID: "parking-1", ModelID: "m"}).Validate())
}
