package models

import (
	"time"

	"github.com/lib/pq"
)

// EnrollmentStatus represents the admission decision lifecycle of an application.
type EnrollmentStatus string

// Possible enrollment statuses. Approved and declined are terminal.
const (
	EnrollmentStatusPending  EnrollmentStatus = "pending"
	EnrollmentStatusApproved EnrollmentStatus = "approved"
	EnrollmentStatusDeclined EnrollmentStatus = "declined"
)

// Valid reports whether the status is one of the known states.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusApproved, EnrollmentStatusDeclined:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusApproved || s == EnrollmentStatusDeclined
}

// EnrollmentApplication is a prospective student's admission request.
type EnrollmentApplication struct {
	ID            string           `db:"id" json:"id"`
	FirstName     string           `db:"first_name" json:"firstName"`
	MiddleName    *string          `db:"middle_name" json:"middleName,omitempty"`
	LastName      string           `db:"last_name" json:"lastName"`
	BirthDate     time.Time        `db:"birth_date" json:"birthDate"`
	Gender        string           `db:"gender" json:"gender"`
	PlaceOfBirth  string           `db:"place_of_birth" json:"placeOfBirth"`
	Nationality   string           `db:"nationality" json:"nationality"`
	Address       string           `db:"address" json:"address"`
	GradeLevel    string           `db:"grade_level" json:"gradeLevel"`
	ParentName    string           `db:"parent_name" json:"parentName"`
	ParentContact string           `db:"parent_contact" json:"parentContact"`
	ParentEmail   *string          `db:"parent_email" json:"parentEmail,omitempty"`
	Documents     pq.StringArray   `db:"documents" json:"documents"`
	Status        EnrollmentStatus `db:"status" json:"status"`
	StudentID     *string          `db:"student_id" json:"studentId,omitempty"`
	ReviewedBy    *string          `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time       `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewNotes   *string          `db:"review_notes" json:"reviewNotes,omitempty"`
	DeclineReason *string          `db:"decline_reason" json:"declineReason,omitempty"`
	SubmittedAt   time.Time        `db:"submitted_at" json:"submittedAt"`
}

// EnrollmentFilter provides filters for listing applications.
type EnrollmentFilter struct {
	Status     EnrollmentStatus
	GradeLevel string
	Search     string
	Page       int
	PageSize   int
}

// EnrollmentReview captures the decision written when an application leaves pending.
type EnrollmentReview struct {
	ID            string
	Status        EnrollmentStatus
	StudentID     *string
	ReviewedBy    string
	ReviewedAt    time.Time
	Notes         *string
	DeclineReason *string
}
