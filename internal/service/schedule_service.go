package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type scheduleRepository interface {
	overlapCandidateFinder
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleDetail, error)
	LockScope(ctx context.Context, tx sqlx.ExtContext, teacherID string, sectionID *string) error
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	Delete(ctx context.Context, id string) error
}

type cachedSchedulePage struct {
	Items []models.ScheduleDetail `json:"items"`
	Total int                     `json:"total"`
}

// ScheduleServiceOption customises ScheduleService behaviour.
type ScheduleServiceOption func(*ScheduleService)

// WithScheduleCache enables caching of schedule listings.
func WithScheduleCache(cache *CacheService) ScheduleServiceOption {
	return func(s *ScheduleService) {
		s.cache = cache
	}
}

// WithScheduleMetrics records conflict and write counters.
func WithScheduleMetrics(metrics *MetricsService) ScheduleServiceOption {
	return func(s *ScheduleService) {
		s.metrics = metrics
	}
}

// WithScheduleAudit records schedule writes in the audit trail.
func WithScheduleAudit(audit auditWriter) ScheduleServiceOption {
	return func(s *ScheduleService) {
		s.audit = audit
	}
}

// ScheduleService validates and persists schedules without double-booking
// teachers or sections.
type ScheduleService struct {
	repo      scheduleRepository
	detector  *ConflictDetector
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, tx txProvider, validate *validator.Validate, logger *zap.Logger, opts ...ScheduleServiceOption) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ScheduleService{
		repo:      repo,
		detector:  NewConflictDetector(repo),
		tx:        tx,
		validator: validate,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// List returns schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error) {
	key := ScheduleListKey(filter)
	var cached cachedSchedulePage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Items, models.NewPagination(filter.Page, filter.PageSize, cached.Total), nil
	}

	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	if schedules == nil {
		schedules = []models.ScheduleDetail{}
	}
	_ = s.cache.Set(ctx, key, cachedSchedulePage{Items: schedules, Total: total}, 0)
	return schedules, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// CheckConflicts reports double-bookings for a draft without writing anything.
func (s *ScheduleService) CheckConflicts(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	schedule, err := s.buildSchedule(req.ScheduleRequest)
	if err != nil {
		return nil, err
	}
	draft := draftFromSchedule(schedule, req.ExcludeScheduleID.String())
	reports, err := s.detector.Detect(ctx, nil, draft)
	if err != nil {
		return nil, err
	}
	conflictErr := &models.ScheduleConflictError{Conflicts: reports}
	messages := conflictErr.Messages()
	if messages == nil {
		messages = []string{}
	}
	return &dto.ConflictCheckResponse{
		HasConflicts: len(reports) > 0,
		Errors:       messages,
		Conflicts:    reports,
	}, nil
}

// Create inserts a new schedule when it does not double-book its teacher or section.
func (s *ScheduleService) Create(ctx context.Context, req dto.ScheduleRequest, actorID string) (*models.Schedule, error) {
	schedule, err := s.buildSchedule(req)
	if err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.tx, s.metrics, "schedule_create", func(tx *sqlx.Tx) error {
		if err := s.guardWrite(ctx, tx, schedule, ""); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, tx, schedule); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "create", models.AuditActionScheduleCreate, actorID, schedule.ID, nil, schedule)
	return schedule, nil
}

// Update overwrites an existing schedule, ignoring its own stored slot when checking conflicts.
func (s *ScheduleService) Update(ctx context.Context, id string, req dto.ScheduleRequest, actorID string) (*models.Schedule, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	schedule, err := s.buildSchedule(req)
	if err != nil {
		return nil, err
	}
	schedule.ID = id
	schedule.CreatedAt = existing.CreatedAt

	err = runInTx(ctx, s.tx, s.metrics, "schedule_update", func(tx *sqlx.Tx) error {
		if err := s.guardWrite(ctx, tx, schedule, id); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, schedule); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "update", models.AuditActionScheduleUpdate, actorID, id, &existing.Schedule, schedule)
	return schedule, nil
}

// Delete removes a schedule.
func (s *ScheduleService) Delete(ctx context.Context, id string, actorID string) (*dto.DeleteResult, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.afterWrite(ctx, "delete", models.AuditActionScheduleDelete, actorID, id, &existing.Schedule, nil)
	return &dto.DeleteResult{ID: id, Deleted: true}, nil
}

// guardWrite serialises writers on the same teacher and section, then rejects the
// write when the draft overlaps an existing schedule.
func (s *ScheduleService) guardWrite(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule, excludeID string) error {
	if err := s.repo.LockScope(ctx, tx, schedule.TeacherID, schedule.SectionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock schedule scope")
	}
	reports, err := s.detector.Detect(ctx, tx, draftFromSchedule(schedule, excludeID))
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		return nil
	}
	s.metrics.RecordScheduleConflicts(reports)
	conflictErr := &models.ScheduleConflictError{Conflicts: reports}
	s.logger.Info("schedule write rejected for double-booking",
		zap.String("teacher_id", schedule.TeacherID),
		zap.Stringp("section_id", schedule.SectionID),
		zap.Int("conflicting_days", len(reports)),
	)
	return appErrors.Wrap(conflictErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, "schedule conflicts with existing schedules")
}

func (s *ScheduleService) afterWrite(ctx context.Context, operation, action, actorID, scheduleID string, before, after *models.Schedule) {
	s.metrics.RecordScheduleWrite(operation)
	_ = s.cache.Invalidate(ctx, ScheduleListPattern())

	log := &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     action,
		Resource:   "schedule",
		ResourceID: optionalString(scheduleID),
	}
	if before != nil {
		log.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		log.NewValues, _ = json.Marshal(after)
	}
	recordAudit(ctx, s.audit, s.logger, "schedule-service", log)
	s.logger.Info("schedule "+operation+"d", zap.String("schedule_id", scheduleID), zap.String("actor_id", actorID))
}

func (s *ScheduleService) buildSchedule(req dto.ScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	days, err := models.ParseWeekdays(req.Days)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "days must be drawn from Mon..Fri")
	}
	if len(days) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one weekday is required")
	}
	start, err := models.ParseClockTime(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "startTime must be formatted as HH:MM")
	}
	end, err := models.ParseClockTime(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "endTime must be formatted as HH:MM")
	}
	if err := (models.TimeRange{Start: start, End: end}).Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "startTime must be before endTime")
	}

	return &models.Schedule{
		SubjectID:  req.Subject.String(),
		TeacherID:  req.Teacher.String(),
		SectionID:  req.SectionID.Ptr(),
		GradeLevel: strings.TrimSpace(req.GradeLevel),
		Days:       days,
		StartTime:  start,
		EndTime:    end,
	}, nil
}

func draftFromSchedule(schedule *models.Schedule, excludeID string) models.ScheduleDraft {
	return models.ScheduleDraft{
		TeacherID:         schedule.TeacherID,
		SectionID:         schedule.SectionID,
		Days:              schedule.Days,
		Range:             schedule.Range(),
		ExcludeScheduleID: excludeID,
	}
}
