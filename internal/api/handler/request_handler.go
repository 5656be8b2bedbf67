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

type RequestHandler struct {
	requestService *service.RequestService
}

func NewRequestHandler(requestService *service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// CreateRequest handles POST /requests, a crowd-sourced report of a parking
// spot (or of a listed spot that no longer exists).
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var dto domain.RequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.CallerIdentity(c)
	request, err := h.requestService.CreateRequest(c.Request.Context(), userID, dto)
	if err != nil {
		writeRequestError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (h *RequestHandler) GetRequest(c *gin.Context) {
	request, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *RequestHandler) ListMyRequests(c *gin.Context) {
	userID, _ := middleware.CallerIdentity(c)
	requests, err := h.requestService.ListUserRequests(c.Request.Context(), userID)
	if err != nil {
		writeRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
}

// ListPendingRequests handles GET /requests/pending, admin review queue.
func (h *RequestHandler) ListPendingRequests(c *gin.Context) {
	requests, err := h.requestService.ListPendingRequests(c.Request.Context())
	if err != nil {
		writeRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
}

// ReviewRequest handles PUT /requests/:id/review. Approval pays the reporter
// their coin reward.
func (h *RequestHandler) ReviewRequest(c *gin.Context) {
	var dto domain.ReviewRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reviewerID, _ := middleware.CallerIdentity(c)
	request, err := h.requestService.ReviewRequest(c.Request.Context(), c.Param("id"), reviewerID, dto)
	if err != nil {
		writeRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func writeRequestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
	case errors.Is(err, domain.ErrInvalidCount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("request handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
