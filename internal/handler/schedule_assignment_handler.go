package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
	"github.com/noah-isme/sma-attendance-api/pkg/response"
)

type scheduleAssignmentService interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ScheduleAssignmentDetail, error)
	Bulk(ctx context.Context, items []dto.BulkAssignmentItem, actorID string) (*dto.BulkAssignmentResult, error)
	Remove(ctx context.Context, id, actorID string) error
}

// ScheduleAssignmentHandler manages student schedule assignments.
type ScheduleAssignmentHandler struct {
	assignments scheduleAssignmentService
}

// NewScheduleAssignmentHandler constructs ScheduleAssignmentHandler.
func NewScheduleAssignmentHandler(assignments scheduleAssignmentService) *ScheduleAssignmentHandler {
	return &ScheduleAssignmentHandler{assignments: assignments}
}

// ListByStudent godoc
// @Summary List a student's schedule assignments
// @Tags ScheduleAssignments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/schedule-assignments [get]
func (h *ScheduleAssignmentHandler) ListByStudent(c *gin.Context) {
	items, err := h.assignments.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Bulk godoc
// @Summary Assign schedules in bulk
// @Tags ScheduleAssignments
// @Accept json
// @Produce json
// @Param payload body []dto.BulkAssignmentItem true "Student and schedule pairs"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedule-assignments/bulk [post]
func (h *ScheduleAssignmentHandler) Bulk(c *gin.Context) {
	var items []dto.BulkAssignmentItem
	if err := c.ShouldBindJSON(&items); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.assignments.Bulk(c.Request.Context(), items, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Remove godoc
// @Summary Remove a schedule assignment
// @Description Succeeds whether or not the assignment exists.
// @Tags ScheduleAssignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-assignments/{id} [delete]
func (h *ScheduleAssignmentHandler) Remove(c *gin.Context) {
	id := c.Param("id")
	if err := h.assignments.Remove(c.Request.Context(), id, actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id, "removed": true}, nil)
}
