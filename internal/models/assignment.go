package models

import "time"

// StudentScheduleAssignment binds a student to a schedule. The pair is unique.
type StudentScheduleAssignment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"studentId"`
	ScheduleID string    `db:"schedule_id" json:"scheduleId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// ScheduleAssignmentDetail adds the schedule slot to an assignment for listings.
type ScheduleAssignmentDetail struct {
	StudentScheduleAssignment
	SubjectName string    `db:"subject_name" json:"subjectName"`
	TeacherName string    `db:"teacher_name" json:"teacherName"`
	Days        Weekdays  `db:"days" json:"days"`
	StartTime   ClockTime `db:"start_time" json:"startTime"`
	EndTime     ClockTime `db:"end_time" json:"endTime"`
}

// AssignmentPair is a (student, schedule) tuple requested for assignment.
type AssignmentPair struct {
	StudentID  string
	ScheduleID string
}
