package models

import (
	"strings"
	"time"
)

// Section groups students of one grade level.
type Section struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	GradeLevel string    `db:"grade_level" json:"gradeLevel"`
	Capacity   *int      `db:"capacity" json:"capacity,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// AcceptsGrade reports whether a student of gradeLevel may be placed here.
func (s Section) AcceptsGrade(gradeLevel string) bool {
	return NormalizeGrade(s.GradeLevel) == NormalizeGrade(gradeLevel)
}

// SectionFilter narrows section lookups.
type SectionFilter struct {
	GradeLevel string
	ActiveOnly bool
}

// NormalizeGrade makes "Grade 7", "grade7" and "7" compare equal.
func NormalizeGrade(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.TrimPrefix(value, "grade")
	return strings.TrimSpace(value)
}
