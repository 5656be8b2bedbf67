package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortCodeFromID(t *testing.T) {
	assert.Equal(t, "1017c592", ShortCodeFromID("5d41402a-bc4b-4a76-b971-9d911017c592"))
	assert.Equal(t, "abc", ShortCodeFromID("abc"))
	assert.Equal(t, "", ShortCodeFromID(""))
}

func TestVehicleType_Valid(t *testing.T) {
	for _, v := range VehicleTypes {
		assert.True(t, v.Valid(), "%s should be valid", v)
	}
	assert.False(t, VehicleType("scooter").Valid())
	assert.False(t, VehicleType("").Valid())
	assert.False(t, VehicleType("CAR").Valid())
}

func TestVehicleCounts(t *testing.T) {
	c := VehicleCounts{Car: 3, BusTruck: 1, Bike: 7}

	assert.Equal(t, 3, c.Get(VehicleCar))
	assert.Equal(t, 1, c.Get(VehicleBusTruck))
	assert.Equal(t, 7, c.Get(VehicleBike))
	assert.Equal(t, 0, c.Get(VehicleType("scooter")))
	assert.Equal(t, 11, c.Total())

	c.Set(VehicleCar, 5)
	assert.Equal(t, 5, c.Car)
	c.Set(VehicleType("scooter"), 99)
	assert.Equal(t, 13, c.Total(), "unknown class must be ignored")
}

func TestParking_AvailableSpaces(t *testing.T) {
	p := &Parking{
		Capacity:     VehicleCounts{Car: 10, BusTruck: 2, Bike: 20},
		CurrentCount: VehicleCounts{Car: 4, BusTruck: 2, Bike: 25},
	}

	spaces := p.AvailableSpaces()
	assert.Equal(t, 6, spaces.Car)
	assert.Equal(t, 0, spaces.BusTruck)
	assert.Equal(t, 0, spaces.Bike, "over-capacity rows clamp to zero free spaces")
}

func TestParking_IsFull(t *testing.T) {
	p := &Parking{
		Capacity:     VehicleCounts{Car: 2, Bike: 2},
		CurrentCount: VehicleCounts{Car: 2, Bike: 1},
	}
	assert.False(t, p.IsFull())

	p.CurrentCount.Bike = 2
	assert.True(t, p.IsFull())
}

func TestParking_OccupancyPercentage(t *testing.T) {
	p := &Parking{
		Capacity:     VehicleCounts{Car: 10},
		CurrentCount: VehicleCounts{Car: 5},
	}
	assert.Equal(t, 50, p.OccupancyPercentage())

	p.CurrentCount.Car = 0
	assert.Equal(t, 0, p.OccupancyPercentage())

	empty := &Parking{}
	assert.Equal(t, 0, empty.OccupancyPercentage(), "zero capacity must not divide by zero")
}

func TestSnapshotOf(t *testing.T) {
	p := &Parking{
		ID:           "parking-1",
		ParkingCode:  "abcd1234",
		Capacity:     VehicleCounts{Car: 10},
		CurrentCount: VehicleCounts{Car: 10},
	}

	snap := SnapshotOf(p, UpdatedByDetection)
	assert.Equal(t, "parking-1", snap.ParkingID)
	assert.Equal(t, "abcd1234", snap.ParkingCode)
	assert.True(t, snap.IsFull)
	assert.Equal(t, 0, snap.AvailableSpaces.Car)
	assert.Equal(t, UpdatedByDetection, snap.UpdatedBy)
}
