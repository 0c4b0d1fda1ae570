package dto

import "github.com/noah-isme/sma-attendance-api/internal/models"

// BulkAssignmentItem is one element of the POST /schedule-assignments/bulk array.
type BulkAssignmentItem struct {
	StudentID  FlexibleID `json:"studentId" validate:"required"`
	ScheduleID FlexibleID `json:"scheduleId" validate:"required"`
}

// BulkAssignmentResult reports what a bulk assignment did.
type BulkAssignmentResult struct {
	Created []models.StudentScheduleAssignment `json:"created"`
	Skipped int                                `json:"skipped"`
}
