package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tejaswanole/automated-smart-parking-system/internal/api/middleware"
	"github.com/tejaswanole/automated-smart-parking-system/internal/config"
	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
	"github.com/tejaswanole/automated-smart-parking-system/internal/service"
)

type ParkingHandler struct {
	parkingService *service.ParkingService
	cfg            *config.Config
}

func NewParkingHandler(parkingService *service.ParkingService, cfg *config.Config) *ParkingHandler {
	return &ParkingHandler{parkingService: parkingService, cfg: cfg}
}

// CreateParking handles POST /parkings. The new parking stays unapproved
// until an admin signs off on it.
func (h *ParkingHandler) CreateParking(c *gin.Context) {
	var dto domain.ParkingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.CallerIdentity(c)
	parking, err := h.parkingService.CreateParking(c.Request.Context(), userID, dto)
	if err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, parking)
}

// GetParking handles GET /parkings/:ref where ref is either the internal id
// or the short parking code.
func (h *ParkingHandler) GetParking(c *gin.Context) {
	parking, err := h.parkingService.ResolveApprovedParking(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, parking)
}

func (h *ParkingHandler) ListParkings(c *gin.Context) {
	_, role := middleware.CallerIdentity(c)
	// Admins see pending parkings too.
	approvedOnly := domain.UserRole(role) != domain.RoleAdmin
	parkings, err := h.parkingService.ListParkings(c.Request.Context(), approvedOnly)
	if err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parkings": parkings, "count": len(parkings)})
}

func (h *ParkingHandler) ListOwnedParkings(c *gin.Context) {
	userID, _ := middleware.CallerIdentity(c)
	parkings, err := h.parkingService.ListOwnedParkings(c.Request.Context(), userID)
	if err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parkings": parkings, "count": len(parkings)})
}

// ListNearbyParkings handles GET /parkings/nearby?lat=&lng=&radius=.
func (h *ParkingHandler) ListNearbyParkings(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lng"})
		return
	}
	radius := h.cfg.NearbyDefaultRadiusMeters
	if raw := c.Query("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius"})
			return
		}
	}

	parkings, err := h.parkingService.ListNearbyParkings(c.Request.Context(), lat, lng, radius)
	if err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parkings": parkings, "count": len(parkings)})
}

func (h *ParkingHandler) UpdateParking(c *gin.Context) {
	var dto domain.ParkingDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, role := middleware.CallerIdentity(c)
	parking, err := h.parkingService.UpdateParking(c.Request.Context(), c.Param("ref"), userID, domain.UserRole(role), dto)
	if err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, parking)
}

// DeactivateParking handles DELETE /parkings/:ref as a soft delete.
func (h *ParkingHandler) DeactivateParking(c *gin.Context) {
	userID, role := middleware.CallerIdentity(c)
	if err := h.parkingService.DeactivateParking(c.Request.Context(), c.Param("ref"), userID, domain.UserRole(role)); err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "parking deactivated"})
}

func (h *ParkingHandler) ApproveParking(c *gin.Context) {
	adminID, _ := middleware.CallerIdentity(c)
	parking, err := h.parkingService.ApproveParking(c.Request.Context(), c.Param("ref"), adminID)
	if err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, parking)
}

// --- Staff management ---

type assignStaffRequest struct {
	UserID int `json:"user_id" binding:"required"`
}

func (h *ParkingHandler) AssignStaff(c *gin.Context) {
	var req assignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, role := middleware.CallerIdentity(c)
	if err := h.parkingService.AssignStaff(c.Request.Context(), c.Param("ref"), userID, domain.UserRole(role), req.UserID); err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "staff assigned"})
}

func (h *ParkingHandler) RemoveStaff(c *gin.Context) {
	staffID, err := strconv.Atoi(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID, role := middleware.CallerIdentity(c)
	if err := h.parkingService.RemoveStaff(c.Request.Context(), c.Param("ref"), userID, domain.UserRole(role), staffID); err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "staff removed"})
}

func (h *ParkingHandler) ListStaff(c *gin.Context) {
	staff, err := h.parkingService.ListStaff(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff, "count": len(staff)})
}

// --- Occupancy ---

// SetVehicleCount handles PUT /parkings/:ref/vehicle-count. The body names
// one vehicle class and the new absolute count.
func (h *ParkingHandler) SetVehicleCount(c *gin.Context) {
	var dto domain.VehicleCountDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if dto.Count == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count is required"})
		return
	}

	parking, ok := h.authorizeCountMutation(c)
	if !ok {
		return
	}

	updated, err := h.parkingService.SetVehicleCount(c.Request.Context(), parking.ID, domain.VehicleType(dto.VehicleType), *dto.Count, domain.UpdatedByStaff)
	if err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, countResponse(updated))
}

// IncrementVehicleCount handles POST /parkings/:ref/vehicle-count/increment.
// A missing increment defaults to 1.
func (h *ParkingHandler) IncrementVehicleCount(c *gin.Context) {
	var dto domain.VehicleCountDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	delta := 1
	if dto.Increment != nil {
		delta = *dto.Increment
	}

	parking, ok := h.authorizeCountMutation(c)
	if !ok {
		return
	}

	updated, err := h.parkingService.IncrementVehicleCount(c.Request.Context(), parking.ID, domain.VehicleType(dto.VehicleType), delta, domain.UpdatedByStaff)
	if err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, countResponse(updated))
}

// DecrementVehicleCount handles POST /parkings/:ref/vehicle-count/decrement.
// A missing decrement defaults to 1.
func (h *ParkingHandler) DecrementVehicleCount(c *gin.Context) {
	var dto domain.VehicleCountDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	delta := 1
	if dto.Decrement != nil {
		delta = *dto.Decrement
	}

	parking, ok := h.authorizeCountMutation(c)
	if !ok {
		return
	}

	updated, err := h.parkingService.DecrementVehicleCount(c.Request.Context(), parking.ID, domain.VehicleType(dto.VehicleType), delta, domain.UpdatedByStaff)
	if err != nil {
		writeParkingError(c, err)
		return
	}
	c.JSON(http.StatusOK, countResponse(updated))
}

// authorizeCountMutation resolves the target parking and checks the caller is
// its owner, its staff, or an admin. On failure it writes the response itself.
func (h *ParkingHandler) authorizeCountMutation(c *gin.Context) (*domain.Parking, bool) {
	parking, err := h.parkingService.ResolveParking(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeParkingError(c, err)
		return nil, false
	}

	userID, role := middleware.CallerIdentity(c)
	allowed, err := h.parkingService.CanManageCounts(c.Request.Context(), parking, userID, domain.UserRole(role))
	if err != nil {
		writeParkingError(c, err)
		return nil, false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized to manage counts for this parking"})
		return nil, false
	}
	return parking, true
}

func countResponse(p *domain.Parking) gin.H {
	return gin.H{
		"parking_id":       p.ID,
		"parking_code":     p.ParkingCode,
		"current_count":    p.CurrentCount,
		"capacity":         p.Capacity,
		"available_spaces": p.AvailableSpaces(),
		"is_full":          p.IsFull(),
		"last_updated":     p.LastUpdated,
	}
}

func writeParkingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "parking not found"})
	case errors.Is(err, domain.ErrInvalidVehicleType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle type"})
	case errors.Is(err, domain.ErrInvalidCount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid count"})
	case errors.Is(err, domain.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": "capacity exceeded"})
	case errors.Is(err, service.ErrNotParkingManager):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized to manage this parking"})
	case errors.Is(err, repository.ErrDuplicateEntry):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate entry"})
	case errors.Is(err, repository.ErrStaffLimitExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": "staff limit reached for this parking"})
	default:
		log.Printf("parking handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
