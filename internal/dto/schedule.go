package dto

import "github.com/noah-isme/sma-attendance-api/internal/models"

// ScheduleRequest is the body of POST /schedules and PUT /schedules/:id.
type ScheduleRequest struct {
	Subject    FlexibleID `json:"subject" validate:"required"`
	Teacher    FlexibleID `json:"teacher" validate:"required"`
	SectionID  FlexibleID `json:"sectionId"`
	GradeLevel string     `json:"gradeLevel" validate:"max=32"`
	StartTime  string     `json:"startTime" validate:"required"`
	EndTime    string     `json:"endTime" validate:"required"`
	Days       []string   `json:"days" validate:"required,min=1"`
}

// ConflictCheckRequest asks for a dry-run conflict report.
type ConflictCheckRequest struct {
	ScheduleRequest
	ExcludeScheduleID FlexibleID `json:"excludeScheduleId"`
}

// ConflictCheckResponse is returned by the dry-run endpoint.
type ConflictCheckResponse struct {
	HasConflicts bool                    `json:"hasConflicts"`
	Errors       []string                `json:"errors"`
	Conflicts    []models.ConflictReport `json:"conflicts"`
}

// DeleteResult confirms a removal.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
