package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

const scheduleDetailColumns = `s.id, s.subject_id, s.teacher_id, s.section_id, s.grade_level, s.days, s.start_time, s.end_time, s.created_at, s.updated_at,
	COALESCE(sub.name, '') AS subject_name, COALESCE(t.full_name, '') AS teacher_name, sec.name AS section_name`

const scheduleDetailFrom = `FROM schedules s
LEFT JOIN subjects sub ON sub.id = s.subject_id
LEFT JOIN teachers t ON t.id = s.teacher_id
LEFT JOIN sections sec ON sec.id = s.section_id`

// ScheduleRepository provides persistence for schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)))
	}
	if filter.SectionID != "" {
		args = append(args, filter.SectionID)
		conditions = append(conditions, fmt.Sprintf("s.section_id = $%d", len(args)))
	}
	if filter.GradeLevel != "" {
		args = append(args, filter.GradeLevel)
		conditions = append(conditions, fmt.Sprintf("s.grade_level = $%d", len(args)))
	}
	if filter.Day != "" {
		args = append(args, string(filter.Day))
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(s.days)", len(args)))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s%s ORDER BY s.start_time ASC, s.id ASC LIMIT %d OFFSET %d", scheduleDetailColumns, scheduleDetailFrom, clause, size, offset)
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM schedules s%s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID loads a schedule with display names.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", scheduleDetailColumns, scheduleDetailFrom)
	var sched models.ScheduleDetail
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// FindByIDs loads the schedules that exist among ids.
func (r *ScheduleRepository) FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.Schedule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, subject_id, teacher_id, section_id, grade_level, days, start_time, end_time, created_at, updated_at FROM schedules WHERE id = ANY($1)`
	var schedules []models.Schedule
	if err := sqlx.SelectContext(ctx, r.exec(exec), &schedules, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find schedules by ids: %w", err)
	}
	return schedules, nil
}

// FindOverlapCandidates returns schedules sharing the teacher or section on at least one of days.
func (r *ScheduleRepository) FindOverlapCandidates(ctx context.Context, exec sqlx.ExtContext, teacherID string, sectionID *string, days models.Weekdays, excludeID string) ([]models.ScheduleDetail, error) {
	args := []interface{}{teacherID, sectionID, days}
	query := fmt.Sprintf("SELECT %s %s WHERE (s.teacher_id = $1 OR s.section_id = $2) AND s.days && $3::text[]", scheduleDetailColumns, scheduleDetailFrom)
	if excludeID != "" {
		args = append(args, excludeID)
		query += fmt.Sprintf(" AND s.id <> $%d", len(args))
	}
	query += " ORDER BY s.start_time ASC"

	var schedules []models.ScheduleDetail
	if err := sqlx.SelectContext(ctx, r.exec(exec), &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("find overlapping schedules: %w", err)
	}
	return schedules, nil
}

// ListBySection returns a section's timetable ordered by start time.
func (r *ScheduleRepository) ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.section_id = $1 ORDER BY s.start_time ASC", scheduleDetailColumns, scheduleDetailFrom)
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, sectionID); err != nil {
		return nil, fmt.Errorf("list schedules by section: %w", err)
	}
	return schedules, nil
}

// LockScope serialises schedule writes touching the same teacher or section until the
// surrounding transaction ends. Keys are locked in sorted order so concurrent writers
// cannot deadlock.
func (r *ScheduleRepository) LockScope(ctx context.Context, tx sqlx.ExtContext, teacherID string, sectionID *string) error {
	keys := []string{"schedule:teacher:" + teacherID}
	if sectionID != nil && *sectionID != "" {
		keys = append(keys, "schedule:section:"+*sectionID)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("lock schedule scope %s: %w", key, err)
		}
	}
	return nil
}

// Create stores a new schedule record.
func (r *ScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `INSERT INTO schedules (id, subject_id, teacher_id, section_id, grade_level, days, start_time, end_time, created_at, updated_at) VALUES (:id, :subject_id, :teacher_id, :section_id, :grade_level, :days, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update overwrites a schedule record. It returns sql.ErrNoRows when the id is unknown.
func (r *ScheduleRepository) Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedules SET subject_id = :subject_id, teacher_id = :teacher_id, section_id = :section_id, grade_level = :grade_level, days = :days, start_time = :start_time, end_time = :end_time, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check schedule update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a schedule by id. It returns sql.ErrNoRows when nothing was deleted.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check schedule delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
