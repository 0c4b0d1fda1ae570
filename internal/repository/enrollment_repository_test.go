package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

var enrollmentRowColumns = []string{"id", "first_name", "middle_name", "last_name", "birth_date", "gender", "place_of_birth", "nationality", "address", "grade_level",
	"parent_name", "parent_contact", "parent_email", "documents", "status", "student_id", "reviewed_by", "reviewed_at", "review_notes", "decline_reason", "submitted_at"}

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func pendingApplicationRow(rows *sqlmock.Rows, id string) *sqlmock.Rows {
	return rows.AddRow(id, "Ana", nil, "Reyes", time.Date(2012, 3, 4, 0, 0, 0, 0, time.UTC), "F", "Cebu", "Filipino", "Street 1", "Grade 7",
		"Maria Reyes", "0917", nil, "{birth-cert.pdf}", "pending", nil, nil, nil, nil, nil, time.Now())
}

func TestEnrollmentRepositoryFindForUpdate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollment_applications WHERE id = $1 FOR UPDATE")).
		WithArgs("app-1").
		WillReturnRows(pendingApplicationRow(sqlmock.NewRows(enrollmentRowColumns), "app-1"))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	app, err := repo.FindForUpdate(context.Background(), tx, "app-1")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.Equal(t, models.EnrollmentStatusPending, app.Status)
	assert.Equal(t, []string{"birth-cert.pdf"}, []string(app.Documents))
	assert.Nil(t, app.StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateReviewOnlyFromPending(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	studentID := "stu-1"
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'pending'")).
		WithArgs("app-1", models.EnrollmentStatusApproved, studentID, "admin-1", now, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'pending'")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	review := models.EnrollmentReview{ID: "app-1", Status: models.EnrollmentStatusApproved, StudentID: &studentID, ReviewedBy: "admin-1", ReviewedAt: now}
	require.NoError(t, repo.UpdateReview(context.Background(), nil, review))
	assert.ErrorIs(t, repo.UpdateReview(context.Background(), nil, review), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollment_applications WHERE status = $1 AND (first_name ILIKE $2 OR last_name ILIKE $2 OR parent_name ILIKE $2) ORDER BY submitted_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(models.EnrollmentStatusPending, "%ana%").
		WillReturnRows(pendingApplicationRow(sqlmock.NewRows(enrollmentRowColumns), "app-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollment_applications WHERE status = $1")).
		WithArgs(models.EnrollmentStatusPending, "%ana%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.EnrollmentFilter{Status: models.EnrollmentStatusPending, Search: " ana "})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
