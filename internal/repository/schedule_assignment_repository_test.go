package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleAssignmentRepositoryCreateIfAbsent(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewScheduleAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, schedule_id) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "sch-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, schedule_id) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "sch-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.CreateIfAbsent(context.Background(), nil, &models.StudentScheduleAssignment{StudentID: "stu-1", ScheduleID: "sch-1"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(context.Background(), nil, &models.StudentScheduleAssignment{StudentID: "stu-1", ScheduleID: "sch-1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleAssignmentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewScheduleAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_schedule_assignments WHERE id = $1")).
		WithArgs("asg-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(context.Background(), "asg-404")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleAssignmentRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()
	repo := NewScheduleAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "schedule_id", "created_at", "subject_name", "teacher_name", "days", "start_time", "end_time"}).
		AddRow("asg-1", "stu-1", "sch-1", time.Now(), "Math", "Mr. Smith", "{Tue,Thu}", "10:00:00", "11:30:00")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	list, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sch-1", list[0].ScheduleID)
	assert.Equal(t, "11:30", list[0].EndTime.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
