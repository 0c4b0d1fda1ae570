package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type scheduleRepoStub struct {
	schedules map[string]models.ScheduleDetail
	locks     []string
	listCalls int
	seq       int
	createErr error
}

func newScheduleRepoStub() *scheduleRepoStub {
	return &scheduleRepoStub{schedules: make(map[string]models.ScheduleDetail)}
}

func (r *scheduleRepoStub) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error) {
	r.listCalls++
	var out []models.ScheduleDetail
	for _, s := range r.schedules {
		if filter.TeacherID != "" && s.TeacherID != filter.TeacherID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *scheduleRepoStub) FindByID(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	s, ok := r.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (r *scheduleRepoStub) FindOverlapCandidates(ctx context.Context, exec sqlx.ExtContext, teacherID string, sectionID *string, days models.Weekdays, excludeID string) ([]models.ScheduleDetail, error) {
	var out []models.ScheduleDetail
	for _, s := range r.schedules {
		if s.ID == excludeID {
			continue
		}
		if s.TeacherID != teacherID && !sameSection(s.SectionID, sectionID) {
			continue
		}
		for _, day := range days {
			if s.Days.Contains(day) {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (r *scheduleRepoStub) LockScope(ctx context.Context, tx sqlx.ExtContext, teacherID string, sectionID *string) error {
	r.locks = append(r.locks, teacherID)
	return nil
}

func (r *scheduleRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if r.createErr != nil {
		return r.createErr
	}
	for {
		r.seq++
		schedule.ID = fmt.Sprintf("sch-%d", r.seq)
		if _, taken := r.schedules[schedule.ID]; !taken {
			break
		}
	}
	r.schedules[schedule.ID] = models.ScheduleDetail{Schedule: *schedule, SubjectName: "Subject", TeacherName: "Teacher " + schedule.TeacherID, SectionName: schedule.SectionID}
	return nil
}

func (r *scheduleRepoStub) Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if _, ok := r.schedules[schedule.ID]; !ok {
		return sql.ErrNoRows
	}
	r.schedules[schedule.ID] = models.ScheduleDetail{Schedule: *schedule}
	return nil
}

func (r *scheduleRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.schedules[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.schedules, id)
	return nil
}

func scheduleReq(teacher, section, start, end string, days ...string) dto.ScheduleRequest {
	return dto.ScheduleRequest{
		Subject:   "math",
		Teacher:   dto.FlexibleID(teacher),
		SectionID: dto.FlexibleID(section),
		StartTime: start,
		EndTime:   end,
		Days:      days,
	}
}

func newScheduleServiceFixture(t *testing.T, opts ...ScheduleServiceOption) (*ScheduleService, *scheduleRepoStub, sqlmock.Sqlmock) {
	provider, mock := newTxProviderMock(t)
	repo := newScheduleRepoStub()
	return NewScheduleService(repo, provider, nil, nil, opts...), repo, mock
}

func TestScheduleServiceTeacherDoubleBookingScenario(t *testing.T) {
	audit := &auditStub{}
	svc, repo, mock := newScheduleServiceFixture(t, WithScheduleAudit(audit), WithScheduleMetrics(NewMetricsService()))

	mock.ExpectBegin()
	mock.ExpectCommit()
	created, err := svc.Create(context.Background(), scheduleReq("7", "3", "09:00", "10:00", "Mon", "Wed"), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.Weekdays{models.Monday, models.Wednesday}, created.Days)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.Create(context.Background(), scheduleReq("7", "9", "09:30", "10:30", "Mon"), "admin-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrScheduleConflict)

	var conflict *models.ScheduleConflictError
	require.True(t, errors.As(err, &conflict))
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, models.Monday, conflict.Conflicts[0].Day)
	assert.True(t, conflict.Conflicts[0].Conflicts.Teacher.HasOverlap)
	assert.False(t, conflict.Conflicts[0].Conflicts.Section.HasOverlap)
	assert.NotEmpty(t, conflict.Messages())

	assert.Len(t, repo.schedules, 1)
	assert.Len(t, audit.logs, 1)
	assert.Equal(t, []string{"7", "7"}, repo.locks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceUpdateDoesNotConflictWithItself(t *testing.T) {
	svc, repo, mock := newScheduleServiceFixture(t)
	repo.schedules["sch-1"] = scheduleDetail("sch-1", "7", strPtr("3"), "09:00", "10:00", models.Monday)

	mock.ExpectBegin()
	mock.ExpectCommit()
	updated, err := svc.Update(context.Background(), "sch-1", scheduleReq("7", "3", "09:30", "10:30", "Mon"), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "sch-1", updated.ID)
	assert.Equal(t, "09:30", updated.StartTime.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceUpdateMissingIsNotFound(t *testing.T) {
	svc, _, mock := newScheduleServiceFixture(t)

	_, err := svc.Update(context.Background(), "missing", scheduleReq("7", "3", "09:00", "10:00", "Mon"), "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceValidation(t *testing.T) {
	svc, repo, _ := newScheduleServiceFixture(t)
	cases := []dto.ScheduleRequest{
		scheduleReq("7", "", "10:00", "09:00", "Mon"),
		scheduleReq("7", "", "09:00", "09:00", "Mon"),
		scheduleReq("7", "", "09:00", "10:00"),
		scheduleReq("7", "", "09:00", "10:00", "Sun"),
		scheduleReq("7", "", "9am", "10:00", "Mon"),
		scheduleReq("", "", "09:00", "10:00", "Mon"),
	}
	for i, req := range cases {
		_, err := svc.Create(context.Background(), req, "admin-1")
		assert.ErrorIs(t, err, appErrors.ErrValidation, "case %d", i)
	}
	assert.Empty(t, repo.schedules)
}

func TestScheduleServiceCreateCollapsesRepeatedDays(t *testing.T) {
	svc, _, mock := newScheduleServiceFixture(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	created, err := svc.Create(context.Background(), scheduleReq("7", "", "09:00", "10:00", "Fri", "Mon", "Mon", "Tue", "Wed", "Thu"), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.Weekdays{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday}, created.Days)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceCreateRollsBackOnStorageFailure(t *testing.T) {
	svc, repo, mock := newScheduleServiceFixture(t)
	repo.createErr = errors.New("insert failed")

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Create(context.Background(), scheduleReq("7", "", "09:00", "10:00", "Mon"), "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceDelete(t *testing.T) {
	svc, repo, _ := newScheduleServiceFixture(t)
	repo.schedules["sch-1"] = scheduleDetail("sch-1", "7", nil, "09:00", "10:00", models.Monday)

	result, err := svc.Delete(context.Background(), "sch-1", "admin-1")
	require.NoError(t, err)
	assert.True(t, result.Deleted)

	_, err = svc.Delete(context.Background(), "sch-1", "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestScheduleServiceCheckConflictsDryRun(t *testing.T) {
	svc, repo, mock := newScheduleServiceFixture(t)
	repo.schedules["sch-1"] = scheduleDetail("sch-1", "8", strPtr("3"), "09:00", "10:00", models.Tuesday)

	resp, err := svc.CheckConflicts(context.Background(), dto.ConflictCheckRequest{ScheduleRequest: scheduleReq("7", "3", "09:45", "10:15", "Tue", "Thu")})
	require.NoError(t, err)
	assert.True(t, resp.HasConflicts)
	require.Len(t, resp.Conflicts, 1)
	assert.True(t, resp.Conflicts[0].Conflicts.Section.HasOverlap)
	assert.Len(t, resp.Errors, 1)

	resp, err = svc.CheckConflicts(context.Background(), dto.ConflictCheckRequest{ScheduleRequest: scheduleReq("7", "3", "10:00", "11:00", "Tue")})
	require.NoError(t, err)
	assert.False(t, resp.HasConflicts)
	assert.Empty(t, resp.Conflicts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceListUsesCacheAndInvalidatesOnWrite(t *testing.T) {
	cacheRepo := newMemoryCache()
	cache := NewCacheService(cacheRepo, nil, 0, nil, true)
	svc, repo, mock := newScheduleServiceFixture(t, WithScheduleCache(cache))
	repo.schedules["existing-1"] = scheduleDetail("existing-1", "7", nil, "08:00", "09:00", models.Monday)

	filter := models.ScheduleFilter{Page: 1, PageSize: 20}
	items, pagination, err := svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)

	_, _, err = svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err = svc.Create(context.Background(), scheduleReq("9", "", "10:00", "11:00", "Fri"), "admin-1")
	require.NoError(t, err)

	items, _, err = svc.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, repo.listCalls)
}
