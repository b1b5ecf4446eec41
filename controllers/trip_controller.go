package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/rto-dispatch-api/middleware"
	"github.com/kendall-kelly/rto-dispatch-api/models"
	"github.com/kendall-kelly/rto-dispatch-api/services"
	"github.com/kendall-kelly/rto-dispatch-api/utils"
)

// UpdateTripStatusRequest represents the request body for a status change
type UpdateTripStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TripController serves trip creation, reads and lifecycle changes
type TripController struct {
	dispatcher *services.Dispatcher
	lifecycle  *services.LifecycleController
	query      *services.TripQuery
}

// NewTripController creates a trip controller
func NewTripController(dispatcher *services.Dispatcher, lifecycle *services.LifecycleController, query *services.TripQuery) *TripController {
	return &TripController{
		dispatcher: dispatcher,
		lifecycle:  lifecycle,
		query:      query,
	}
}

// CreateTrip handles POST /api/v1/trips - drivers request an emergency trip
func (tc *TripController) CreateTrip(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		utils.Fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
		return
	}

	trip, err := tc.dispatcher.Dispatch(c.Request.Context(), caller, body)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Succeed(c, http.StatusCreated, trip)
}

// ListTrips handles GET /api/v1/trips - a driver's own trips or an RTO station's queue
func (tc *TripController) ListTrips(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var status *models.TripStatus
	if raw := c.Query("status"); raw != "" {
		parsed, ok := models.ParseTripStatus(raw)
		if !ok {
			utils.Fail(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown trip status")
			return
		}
		status = &parsed
	}

	trips, err := tc.query.List(c.Request.Context(), caller, status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Succeed(c, http.StatusOK, trips)
}

// GetTrip handles GET /api/v1/trips/:id
func (tc *TripController) GetTrip(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	view, err := tc.query.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Succeed(c, http.StatusOK, view)
}

// UpdateTripStatus handles PATCH /api/v1/trips/:id/status
func (tc *TripController) UpdateTripStatus(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var req UpdateTripStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}
	target, valid := models.ParseTripStatus(req.Status)
	if !valid {
		utils.Fail(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown trip status")
		return
	}

	trip, err := tc.lifecycle.Transition(c.Request.Context(), caller, c.Param("id"), target)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Succeed(c, http.StatusOK, trip)
}

func callerOrAbort(c *gin.Context) (services.Caller, bool) {
	caller, err := middleware.GetCaller(c)
	if err != nil {
		utils.Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return services.Caller{}, false
	}
	return caller, true
}
