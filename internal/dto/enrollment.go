package dto

// ScheduleAssignmentRef references a schedule to assign on approval.
type ScheduleAssignmentRef struct {
	ScheduleID FlexibleID `json:"scheduleId" validate:"required"`
}

// ApproveEnrollmentRequest is the body of POST /enrollments/:id/approve.
type ApproveEnrollmentRequest struct {
	SectionID           FlexibleID              `json:"sectionId"`
	ScheduleAssignments []ScheduleAssignmentRef `json:"scheduleAssignments" validate:"dive"`
	Notes               string                  `json:"notes" validate:"max=2000"`
}

// DeclineEnrollmentRequest is the body of POST /enrollments/:id/decline.
type DeclineEnrollmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
	Notes  string `json:"notes" validate:"max=2000"`
}
