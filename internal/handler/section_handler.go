package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/response"
)

type sectionService interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, error)
	Get(ctx context.Context, id string) (*models.Section, error)
}

type timetableExporter interface {
	SectionTimetable(ctx context.Context, sectionID string, format dto.ExportFormat) (*dto.ExportFile, error)
}

// SectionHandler serves section lookups and timetable exports.
type SectionHandler struct {
	sections sectionService
	exports  timetableExporter
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(sections sectionService, exports timetableExporter) *SectionHandler {
	return &SectionHandler{sections: sections, exports: exports}
}

// List godoc
// @Summary List sections
// @Tags Sections
// @Produce json
// @Param gradeLevel query string false "Filter by grade level"
// @Param includeInactive query bool false "Include inactive sections"
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	filter := models.SectionFilter{
		GradeLevel: c.Query("gradeLevel"),
		ActiveOnly: c.Query("includeInactive") != "true",
	}
	sections, err := h.sections.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// Get godoc
// @Summary Get section
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.sections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// ExportTimetable godoc
// @Summary Export a section's weekly timetable
// @Tags Sections
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Section ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sections/{id}/timetable/export [get]
func (h *SectionHandler) ExportTimetable(c *gin.Context) {
	format := dto.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(dto.ExportFormatCSV))))
	file, err := h.exports.SectionTimetable(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Content)
}
