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

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentApplication, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.EnrollmentApplication, error)
	Approve(ctx context.Context, id string, req dto.ApproveEnrollmentRequest, reviewerID string) (*models.EnrollmentApplication, error)
	Decline(ctx context.Context, id string, req dto.DeclineEnrollmentRequest, reviewerID string) (*models.EnrollmentApplication, error)
}

// EnrollmentHandler exposes the enrollment review endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollment applications
// @Tags Enrollments
// @Produce json
// @Param status query string false "pending, approved or declined"
// @Param gradeLevel query string false "Filter by grade level"
// @Param search query string false "Applicant or parent name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		Status:     models.EnrollmentStatus(c.Query("status")),
		GradeLevel: c.Query("gradeLevel"),
		Search:     c.Query("search"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	applications, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, pagination)
}

// Get godoc
// @Summary Get enrollment application
// @Tags Enrollments
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	application, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Approve godoc
// @Summary Approve enrollment application
// @Description Creates the student, assigns the schedules and marks the application approved in one transaction.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.ApproveEnrollmentRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	var req dto.ApproveEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	application, err := h.enrollments.Approve(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Decline godoc
// @Summary Decline enrollment application
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.DeclineEnrollmentRequest true "Decline payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/{id}/decline [post]
func (h *EnrollmentHandler) Decline(c *gin.Context) {
	var req dto.DeclineEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	application, err := h.enrollments.Decline(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}
