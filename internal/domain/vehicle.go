package domain

import "errors"

type VehicleType string

const (
	VehicleCar      VehicleType = "car"
	VehicleBusTruck VehicleType = "bus_truck"
	VehicleBike     VehicleType = "bike"
)

// VehicleTypes is the closed set of recognized vehicle classes.
var VehicleTypes = []VehicleType{VehicleCar, VehicleBusTruck, VehicleBike}

var ErrInvalidVehicleType = errors.New("invalid vehicle type")
var ErrInvalidCount = errors.New("count cannot be negative")
var ErrCapacityExceeded = errors.New("count cannot exceed capacity")

func (v VehicleType) Valid() bool {
	switch v {
	case VehicleCar, VehicleBusTruck, VehicleBike:
		return true
	}
	return false
}

// VehicleCounts holds one integer per vehicle class. It is used both for
// capacity ceilings and for live occupancy counts.
type VehicleCounts struct {
	Car      int `json:"car"`
	BusTruck int `json:"bus_truck"`
	Bike     int `json:"bike"`
}

func (c VehicleCounts) Get(v VehicleType) int {
	switch v {
	case VehicleCar:
		return c.Car
	case VehicleBusTruck:
		return c.BusTruck
	case VehicleBike:
		return c.Bike
	}
	return 0
}

func (c *VehicleCounts) Set(v VehicleType, n int) {
	switch v {
	case VehicleCar:
		c.Car = n
	case VehicleBusTruck:
		c.BusTruck = n
	case VehicleBike:
		c.Bike = n
	}
}

func (c VehicleCounts) Total() int {
	return c.Car + c.BusTruck + c.Bike
}
