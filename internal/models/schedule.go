package models

import (
	"fmt"
	"strings"
	"time"
)

// Schedule is a weekly-recurring teaching slot.
type Schedule struct {
	ID         string    `db:"id" json:"id"`
	SubjectID  string    `db:"subject_id" json:"subjectId"`
	TeacherID  string    `db:"teacher_id" json:"teacherId"`
	SectionID  *string   `db:"section_id" json:"sectionId"`
	GradeLevel string    `db:"grade_level" json:"gradeLevel"`
	Days       Weekdays  `db:"days" json:"days"`
	StartTime  ClockTime `db:"start_time" json:"startTime"`
	EndTime    ClockTime `db:"end_time" json:"endTime"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Range returns the schedule's daily time range.
func (s Schedule) Range() TimeRange {
	return TimeRange{Start: s.StartTime, End: s.EndTime}
}

// ScheduleDetail enriches a schedule with display names.
type ScheduleDetail struct {
	Schedule
	SubjectName string  `db:"subject_name" json:"subjectName"`
	TeacherName string  `db:"teacher_name" json:"teacherName"`
	SectionName *string `db:"section_name" json:"sectionName,omitempty"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	TeacherID  string
	SectionID  string
	GradeLevel string
	Day        Weekday
	Page       int
	PageSize   int
}

// ScheduleDraft is a candidate schedule checked for double-booking.
type ScheduleDraft struct {
	TeacherID         string
	SectionID         *string
	Days              Weekdays
	Range             TimeRange
	ExcludeScheduleID string
}

// ConflictingSchedule is an existing schedule that collides with a draft.
type ConflictingSchedule struct {
	ScheduleID  string    `json:"scheduleId"`
	SubjectID   string    `json:"subjectId"`
	SubjectName string    `json:"subjectName"`
	StartTime   ClockTime `json:"startTime"`
	EndTime     ClockTime `json:"endTime"`
	// Counterpart names the other party: the section for teacher clashes, the teacher for section clashes.
	Counterpart string `json:"counterpart"`
}

// OverlapGroup holds the clashes of one kind on one day.
type OverlapGroup struct {
	HasOverlap bool                  `json:"hasOverlap"`
	Schedules  []ConflictingSchedule `json:"schedules"`
}

// DayConflicts splits a day's clashes by teacher and section.
type DayConflicts struct {
	Teacher OverlapGroup `json:"teacher"`
	Section OverlapGroup `json:"section"`
}

// ConflictReport describes the double-bookings found on a single weekday.
type ConflictReport struct {
	Day       Weekday      `json:"day"`
	Conflicts DayConflicts `json:"conflicts"`
}

// Messages flattens the report into one line per conflicting kind.
func (r ConflictReport) Messages() []string {
	var lines []string
	if r.Conflicts.Teacher.HasOverlap {
		lines = append(lines, fmt.Sprintf("%s: teacher is already scheduled %s", r.Day, describe(r.Conflicts.Teacher.Schedules)))
	}
	if r.Conflicts.Section.HasOverlap {
		lines = append(lines, fmt.Sprintf("%s: section is already scheduled %s", r.Day, describe(r.Conflicts.Section.Schedules)))
	}
	return lines
}

func describe(items []ConflictingSchedule) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		label := item.SubjectName
		if label == "" {
			label = item.SubjectID
		}
		part := fmt.Sprintf("%s %s-%s", label, item.StartTime, item.EndTime)
		if item.Counterpart != "" {
			part += " (" + item.Counterpart + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

// ScheduleConflictError is returned when a schedule write would double-book.
type ScheduleConflictError struct {
	Conflicts []ConflictReport
}

// Messages returns the human readable conflict list.
func (e *ScheduleConflictError) Messages() []string {
	if e == nil {
		return nil
	}
	var lines []string
	for _, report := range e.Conflicts {
		lines = append(lines, report.Messages()...)
	}
	return lines
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return strings.Join(e.Messages(), "; ")
}
