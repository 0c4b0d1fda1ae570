package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

const enrollmentColumns = `id, first_name, middle_name, last_name, birth_date, gender, place_of_birth, nationality, address, grade_level,
	parent_name, parent_contact, parent_email, documents, status, student_id, reviewed_by, reviewed_at, review_notes, decline_reason, submitted_at`

// EnrollmentRepository handles persistence of enrollment applications.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns applications filtered by the provided criteria, newest first.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentApplication, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d OR parent_name ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+search+"%")
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

	query := fmt.Sprintf("SELECT %s FROM enrollment_applications%s ORDER BY submitted_at DESC LIMIT %d OFFSET %d", enrollmentColumns, clause, size, offset)
	var applications []models.EnrollmentApplication
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollment applications: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM enrollment_applications" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollment applications: %w", err)
	}
	return applications, total, nil
}

// FindByID returns an application by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentApplication, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollment_applications WHERE id = $1", enrollmentColumns)
	var application models.EnrollmentApplication
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

// FindForUpdate loads an application and row-locks it for the rest of the transaction.
func (r *EnrollmentRepository) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentApplication, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollment_applications WHERE id = $1 FOR UPDATE", enrollmentColumns)
	var application models.EnrollmentApplication
	if err := sqlx.GetContext(ctx, r.exec(exec), &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

// UpdateReview moves a pending application to its decided status. It returns
// sql.ErrNoRows when the application is no longer pending.
func (r *EnrollmentRepository) UpdateReview(ctx context.Context, exec sqlx.ExtContext, review models.EnrollmentReview) error {
	const query = `UPDATE enrollment_applications
SET status = $2, student_id = $3, reviewed_by = $4, reviewed_at = $5, review_notes = $6, decline_reason = $7
WHERE id = $1 AND status = 'pending'`
	result, err := r.exec(exec).ExecContext(ctx, query,
		review.ID,
		review.Status,
		review.StudentID,
		review.ReviewedBy,
		review.ReviewedAt,
		review.Notes,
		review.DeclineReason,
	)
	if err != nil {
		return fmt.Errorf("update enrollment review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("enrollment review rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
