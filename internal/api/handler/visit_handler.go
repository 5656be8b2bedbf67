package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tejaswanole/automated-smart-parking-system/internal/api/middleware"
	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
	"github.com/tejaswanole/automated-smart-parking-system/internal/service"
)

type VisitHandler struct {
	visitService *service.VisitService
}

func NewVisitHandler(visitService *service.VisitService) *VisitHandler {
	return &VisitHandler{visitService: visitService}
}

// RecordVisit handles POST /visits. The visit is verified against the
// parking's coordinates and pays a coin reward when the user is actually
// there, at most once per parking per day.
func (h *VisitHandler) RecordVisit(c *gin.Context) {
	var dto domain.VisitDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.CallerIdentity(c)
	visit, err := h.visitService.RecordVisit(c.Request.Context(), userID, dto)
	if err != nil {
		writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusCreated, visit)
}

func (h *VisitHandler) GetVisit(c *gin.Context) {
	visit, err := h.visitService.GetVisit(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}

func (h *VisitHandler) ListMyVisits(c *gin.Context) {
	userID, _ := middleware.CallerIdentity(c)
	visits, err := h.visitService.ListUserVisits(c.Request.Context(), userID)
	if err != nil {
		writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visits": visits, "count": len(visits)})
}

// DeleteVisit handles DELETE /visits/:id (admin only). Coins the visit earned
// are taken back from the visitor's wallet before the row is removed.
func (h *VisitHandler) DeleteVisit(c *gin.Context) {
	if err := h.visitService.DeleteVisit(c.Request.Context(), c.Param("id")); err != nil {
		writeVisitError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "visit deleted"})
}

func writeVisitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, repository.ErrInsufficientCoins):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient coins to reclaim"})
	default:
		log.Printf("visit handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
