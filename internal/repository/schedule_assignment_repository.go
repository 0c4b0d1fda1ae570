package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

// ScheduleAssignmentRepository persists student to schedule bindings.
type ScheduleAssignmentRepository struct {
	db *sqlx.DB
}

// NewScheduleAssignmentRepository constructs the repository.
func NewScheduleAssignmentRepository(db *sqlx.DB) *ScheduleAssignmentRepository {
	return &ScheduleAssignmentRepository{db: db}
}

func (r *ScheduleAssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateIfAbsent inserts the assignment unless the (student, schedule) pair already
// exists. It reports whether a row was written.
func (r *ScheduleAssignmentRepository) CreateIfAbsent(ctx context.Context, exec sqlx.ExtContext, assignment *models.StudentScheduleAssignment) (bool, error) {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_schedule_assignments (id, student_id, schedule_id, created_at)
VALUES (:id, :student_id, :schedule_id, :created_at)
ON CONFLICT (student_id, schedule_id) DO NOTHING`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, assignment)
	if err != nil {
		return false, fmt.Errorf("create schedule assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("schedule assignment rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete removes an assignment by id and reports whether it existed.
func (r *ScheduleAssignmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM student_schedule_assignments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete schedule assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("schedule assignment rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListByStudent returns a student's assigned schedules ordered by start time.
func (r *ScheduleAssignmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ScheduleAssignmentDetail, error) {
	const query = `SELECT a.id, a.student_id, a.schedule_id, a.created_at,
        COALESCE(sub.name, '') AS subject_name, COALESCE(t.full_name, '') AS teacher_name, s.days, s.start_time, s.end_time
        FROM student_schedule_assignments a
        JOIN schedules s ON s.id = a.schedule_id
        LEFT JOIN subjects sub ON sub.id = s.subject_id
        LEFT JOIN teachers t ON t.id = s.teacher_id
        WHERE a.student_id = $1
        ORDER BY s.start_time ASC`
	var assignments []models.ScheduleAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, studentID); err != nil {
		return nil, fmt.Errorf("list schedule assignments: %w", err)
	}
	return assignments, nil
}
