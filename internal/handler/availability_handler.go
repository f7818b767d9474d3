package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sma-enrollment-api/pkg/errors"
	"github.com/noah-isme/sma-enrollment-api/pkg/response"
)

type availabilityService interface {
	FindAvailable(ctx context.Context, q models.AvailabilityQuery) ([]models.Resource, error)
	ClassroomSchedule(ctx context.Context, classroomID string) ([]models.TimeWindow, error)
	Invalidate(ctx context.Context) error
}

// AvailabilityHandler exposes free-slot lookups for classrooms and courses.
type AvailabilityHandler struct {
	availability availabilityService
}

// NewAvailabilityHandler constructs AvailabilityHandler.
func NewAvailabilityHandler(availability availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// Find godoc
// @Summary Resources free during a weekly window
// @Tags Availability
// @Produce json
// @Param kind query string false "classroom (default) or course"
// @Param weekday query int true "0=Monday .. 6=Sunday"
// @Param start query string true "HH:MM"
// @Param end query string true "HH:MM"
// @Param min_capacity query int false "Minimum capacity"
// @Param projector query bool false "Require projector"
// @Param computer query bool false "Require computer"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope "INVALID_WINDOW"
// @Router /availability [get]
func (h *AvailabilityHandler) Find(c *gin.Context) {
	query, err := parseAvailabilityQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	resources, err := h.availability.FindAvailable(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resources, nil, map[string]interface{}{"count": len(resources)})
}

// ClassroomSchedule godoc
// @Summary Booked weekly windows of a classroom
// @Tags Availability
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/schedule [get]
func (h *AvailabilityHandler) ClassroomSchedule(c *gin.Context) {
	windows, err := h.availability.ClassroomSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil, map[string]interface{}{"count": len(windows)})
}

// Invalidate godoc
// @Summary Drop cached availability answers
// @Tags Availability
// @Success 204
// @Router /availability/cache [delete]
func (h *AvailabilityHandler) Invalidate(c *gin.Context) {
	if err := h.availability.Invalidate(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseAvailabilityQuery(c *gin.Context) (models.AvailabilityQuery, error) {
	q := models.AvailabilityQuery{Kind: models.ResourceKind(strings.ToLower(c.DefaultQuery("kind", string(models.ResourceClassroom))))}

	weekday, err := strconv.Atoi(c.Query("weekday"))
	if err != nil {
		return q, appErrors.Clone(appErrors.ErrInvalidWindow, "weekday must be an integer 0-6")
	}
	q.Weekday = weekday
	if q.Start, err = models.ParseClock(c.Query("start")); err != nil {
		return q, appErrors.Clone(appErrors.ErrInvalidWindow, fmt.Sprintf("start: %v", err))
	}
	if q.End, err = models.ParseClock(c.Query("end")); err != nil {
		return q, appErrors.Clone(appErrors.ErrInvalidWindow, fmt.Sprintf("end: %v", err))
	}

	if raw := c.Query("min_capacity"); raw != "" {
		if q.MinCapacity, err = strconv.Atoi(raw); err != nil {
			return q, appErrors.Clone(appErrors.ErrValidation, "min_capacity must be an integer")
		}
	}
	if q.RequireProjector, err = parseBoolQuery(c, "projector"); err != nil {
		return q, err
	}
	if q.RequireComputer, err = parseBoolQuery(c, "computer"); err != nil {
		return q, err
	}
	return q, nil
}

func parseBoolQuery(c *gin.Context, key string) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a boolean", key))
	}
	return v, nil
}
