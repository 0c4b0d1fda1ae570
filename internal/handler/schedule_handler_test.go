package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type scheduleServiceStub struct {
	lastFilter  models.ScheduleFilter
	lastRequest dto.ScheduleRequest
	lastActor   string
	lastID      string
	createErr   error
	deleteErr   error
}

func (s *scheduleServiceStub) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error) {
	s.lastFilter = filter
	return []models.ScheduleDetail{{Schedule: models.Schedule{ID: "1"}}}, models.NewPagination(filter.Page, filter.PageSize, 1), nil
}

func (s *scheduleServiceStub) Get(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	if id == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	return &models.ScheduleDetail{Schedule: models.Schedule{ID: id}}, nil
}

func (s *scheduleServiceStub) CheckConflicts(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	s.lastRequest = req.ScheduleRequest
	return &dto.ConflictCheckResponse{Errors: []string{}, Conflicts: []models.ConflictReport{}}, nil
}

func (s *scheduleServiceStub) Create(ctx context.Context, req dto.ScheduleRequest, actorID string) (*models.Schedule, error) {
	s.lastRequest = req
	s.lastActor = actorID
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Schedule{ID: "new", TeacherID: req.Teacher.String()}, nil
}

func (s *scheduleServiceStub) Update(ctx context.Context, id string, req dto.ScheduleRequest, actorID string) (*models.Schedule, error) {
	s.lastID = id
	s.lastRequest = req
	return &models.Schedule{ID: id}, nil
}

func (s *scheduleServiceStub) Delete(ctx context.Context, id string, actorID string) (*dto.DeleteResult, error) {
	if s.deleteErr != nil {
		return nil, s.deleteErr
	}
	return &dto.DeleteResult{ID: id, Deleted: true}, nil
}

const teacherSevenPayload = `{"subject":3,"teacher":7,"sectionId":"2","startTime":"09:00","endTime":"10:00","days":["Mon","Wed"]}`

func TestScheduleHandlerCreate(t *testing.T) {
	svc := &scheduleServiceStub{}
	c, w := newTestContext(http.MethodPost, "/schedules", teacherSevenPayload)

	NewScheduleHandler(svc).Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "7", svc.lastRequest.Teacher.String())
	assert.Equal(t, "admin-1", svc.lastActor)
}

func TestScheduleHandlerCreateConflictBody(t *testing.T) {
	conflict := &models.ScheduleConflictError{Conflicts: []models.ConflictReport{{
		Day: models.Monday,
		Conflicts: models.DayConflicts{
			Teacher: models.OverlapGroup{HasOverlap: true, Schedules: []models.ConflictingSchedule{{
				ScheduleID: "9", SubjectName: "Math", StartTime: models.MustClockTime("09:00"), EndTime: models.MustClockTime("10:00"), Counterpart: "7-A",
			}}},
			Section: models.OverlapGroup{Schedules: []models.ConflictingSchedule{}},
		},
	}}}
	svc := &scheduleServiceStub{createErr: appErrors.Wrap(conflict, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, "schedule conflict detected")}
	c, w := newTestContext(http.MethodPost, "/schedules", teacherSevenPayload)

	NewScheduleHandler(svc).Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	require.NotNil(t, body.Error)
	assert.Equal(t, "SCHEDULE_CONFLICT", body.Error.Code)
	require.Len(t, body.Conflicts, 1)
	assert.Equal(t, models.Monday, body.Conflicts[0].Day)
	assert.True(t, body.Conflicts[0].Conflicts.Teacher.HasOverlap)
	assert.False(t, body.Conflicts[0].Conflicts.Section.HasOverlap)
	assert.Equal(t, []string{"Mon: teacher is already scheduled Math 09:00-10:00 (7-A)"}, body.Errors)
}

func TestScheduleHandlerCreateInvalidBody(t *testing.T) {
	svc := &scheduleServiceStub{}
	c, w := newTestContext(http.MethodPost, "/schedules", `{"teacher":`)

	NewScheduleHandler(svc).Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "", svc.lastActor)
}

func TestScheduleHandlerList(t *testing.T) {
	svc := &scheduleServiceStub{}
	c, w := newTestContext(http.MethodGet, "/schedules?teacherId=7&day=monday&page=2&limit=5", "")

	NewScheduleHandler(svc).List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", svc.lastFilter.TeacherID)
	assert.Equal(t, models.Monday, svc.lastFilter.Day)
	assert.Equal(t, 2, svc.lastFilter.Page)
	body := decode(t, w)
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 5, body.Pagination.PageSize)
}

func TestScheduleHandlerListRejectsUnknownDay(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/schedules?day=Sun", "")

	NewScheduleHandler(&scheduleServiceStub{}).List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerGetMissing(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/schedules/missing", "", gin.Param{Key: "id", Value: "missing"})

	NewScheduleHandler(&scheduleServiceStub{}).Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleHandlerUpdateUsesPathID(t *testing.T) {
	svc := &scheduleServiceStub{}
	c, w := newTestContext(http.MethodPut, "/schedules/42", teacherSevenPayload, gin.Param{Key: "id", Value: "42"})

	NewScheduleHandler(svc).Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", svc.lastID)
}

func TestScheduleHandlerDelete(t *testing.T) {
	c, w := newTestContext(http.MethodDelete, "/schedules/5", "", gin.Param{Key: "id", Value: "5"})
	NewScheduleHandler(&scheduleServiceStub{}).Delete(c)
	assert.Equal(t, http.StatusOK, w.Code)

	svc := &scheduleServiceStub{deleteErr: appErrors.Clone(appErrors.ErrNotFound, "schedule not found")}
	c, w = newTestContext(http.MethodDelete, "/schedules/6", "", gin.Param{Key: "id", Value: "6"})
	NewScheduleHandler(svc).Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleHandlerCheckConflicts(t *testing.T) {
	svc := &scheduleServiceStub{}
	c, w := newTestContext(http.MethodPost, "/schedules/conflicts", teacherSevenPayload)

	NewScheduleHandler(svc).CheckConflicts(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Mon", "Wed"}, svc.lastRequest.Days)
}
