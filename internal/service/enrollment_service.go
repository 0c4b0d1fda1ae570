package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentApplication, int, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentApplication, error)
	FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentApplication, error)
	UpdateReview(ctx context.Context, exec sqlx.ExtContext, review models.EnrollmentReview) error
}

type sectionLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Section, error)
}

type scheduleBatchReader interface {
	FindByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.Schedule, error)
}

type studentWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
}

type assignmentWriter interface {
	CreateIfAbsent(ctx context.Context, exec sqlx.ExtContext, assignment *models.StudentScheduleAssignment) (bool, error)
}

// EnrollmentServiceOption customises EnrollmentService behaviour.
type EnrollmentServiceOption func(*EnrollmentService)

// WithEnrollmentAudit records review decisions in the audit trail.
func WithEnrollmentAudit(audit auditWriter) EnrollmentServiceOption {
	return func(s *EnrollmentService) {
		s.audit = audit
	}
}

// WithEnrollmentMetrics counts review decisions.
func WithEnrollmentMetrics(metrics *MetricsService) EnrollmentServiceOption {
	return func(s *EnrollmentService) {
		s.metrics = metrics
	}
}

// EnrollmentService drives applications from pending to approved or declined.
type EnrollmentService struct {
	repo        enrollmentRepository
	sections    sectionLookup
	schedules   scheduleBatchReader
	students    studentWriter
	assignments assignmentWriter
	tx          txProvider
	audit       auditWriter
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	repo enrollmentRepository,
	sections sectionLookup,
	schedules scheduleBatchReader,
	students studentWriter,
	assignments assignmentWriter,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
	opts ...EnrollmentServiceOption,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EnrollmentService{
		repo:        repo,
		sections:    sections,
		schedules:   schedules,
		students:    students,
		assignments: assignments,
		tx:          tx,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// List returns applications with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentApplication, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of pending, approved, declined")
	}
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollment applications")
	}
	if applications == nil {
		applications = []models.EnrollmentApplication{}
	}
	return applications, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an application by id.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentApplication, error) {
	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment application")
	}
	return application, nil
}

// Approve admits the applicant into a section. The student record, the schedule
// assignments and the status change commit together or not at all.
func (s *EnrollmentService) Approve(ctx context.Context, id string, req dto.ApproveEnrollmentRequest, reviewerID string) (*models.EnrollmentApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	sectionID := req.SectionID.String()

	var application *models.EnrollmentApplication
	var student *models.Student
	var scheduleIDs []string
	err := runInTx(ctx, s.tx, s.metrics, "enrollment_approve", func(tx *sqlx.Tx) error {
		var err error
		application, err = s.lockPending(ctx, tx, id)
		if err != nil {
			return err
		}
		if sectionID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "sectionId is required")
		}
		if err := s.ensureSection(ctx, tx, sectionID, application.GradeLevel); err != nil {
			return err
		}
		if scheduleIDs, err = uniqueScheduleIDs(req.ScheduleAssignments); err != nil {
			return err
		}
		if err := s.ensureSchedules(ctx, tx, sectionID, scheduleIDs); err != nil {
			return err
		}

		student = models.StudentFromApplication(application, sectionID)
		if err := s.students.Create(ctx, tx, student); err != nil {
			if isUniqueViolation(err) {
				return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "a student already exists for this application")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
		}
		for _, scheduleID := range scheduleIDs {
			assignment := &models.StudentScheduleAssignment{StudentID: student.ID, ScheduleID: scheduleID}
			if _, err := s.assignments.CreateIfAbsent(ctx, tx, assignment); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign schedule")
			}
		}

		review := models.EnrollmentReview{
			ID:         application.ID,
			Status:     models.EnrollmentStatusApproved,
			StudentID:  &student.ID,
			ReviewedBy: reviewerID,
			ReviewedAt: s.now(),
			Notes:      optionalString(strings.TrimSpace(req.Notes)),
		}
		if err := s.writeReview(ctx, tx, review); err != nil {
			return err
		}
		applyReview(application, review)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterDecision(ctx, application, reviewerID, models.AuditActionEnrollmentApprove, map[string]interface{}{
		"status":      application.Status,
		"studentId":   student.ID,
		"sectionId":   sectionID,
		"scheduleIds": scheduleIDs,
	})
	return application, nil
}

// Decline rejects a pending application with a mandatory reason.
func (s *EnrollmentService) Decline(ctx context.Context, id string, req dto.DeclineEnrollmentRequest, reviewerID string) (*models.EnrollmentApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decline payload")
	}

	var application *models.EnrollmentApplication
	err := runInTx(ctx, s.tx, s.metrics, "enrollment_decline", func(tx *sqlx.Tx) error {
		var err error
		application, err = s.lockPending(ctx, tx, id)
		if err != nil {
			return err
		}
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			return appErrors.Clone(appErrors.ErrValidation, "reason is required to decline an application")
		}
		review := models.EnrollmentReview{
			ID:            application.ID,
			Status:        models.EnrollmentStatusDeclined,
			ReviewedBy:    reviewerID,
			ReviewedAt:    s.now(),
			Notes:         optionalString(strings.TrimSpace(req.Notes)),
			DeclineReason: &reason,
		}
		if err := s.writeReview(ctx, tx, review); err != nil {
			return err
		}
		applyReview(application, review)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterDecision(ctx, application, reviewerID, models.AuditActionEnrollmentDecline, map[string]interface{}{
		"status": application.Status,
		"reason": derefString(application.DeclineReason),
	})
	return application, nil
}

func (s *EnrollmentService) lockPending(ctx context.Context, tx sqlx.ExtContext, id string) (*models.EnrollmentApplication, error) {
	application, err := s.repo.FindForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment application")
	}
	if !application.Status.Valid() || application.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, fmt.Sprintf("application is already %s", application.Status))
	}
	return application, nil
}

func (s *EnrollmentService) ensureSection(ctx context.Context, tx sqlx.ExtContext, sectionID, gradeLevel string) error {
	section, err := s.sections.FindByID(ctx, tx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if !section.Active {
		return appErrors.Clone(appErrors.ErrValidation, "section is not active")
	}
	if !section.AcceptsGrade(gradeLevel) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section %s is for grade %s but the application is for grade %s", section.Name, section.GradeLevel, gradeLevel))
	}
	return nil
}

// ensureSchedules requires every requested schedule to exist, to belong to the
// section (or to none) and not to overlap another requested schedule.
func (s *EnrollmentService) ensureSchedules(ctx context.Context, tx sqlx.ExtContext, sectionID string, scheduleIDs []string) error {
	if len(scheduleIDs) == 0 {
		return nil
	}
	schedules, err := s.schedules.FindByIDs(ctx, tx, scheduleIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	found := make(map[string]struct{}, len(schedules))
	for _, schedule := range schedules {
		found[schedule.ID] = struct{}{}
		if schedule.SectionID != nil && *schedule.SectionID != sectionID {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("schedule %s belongs to another section", schedule.ID))
		}
	}
	var missing []string
	for _, id := range scheduleIDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "schedules not found: "+strings.Join(missing, ", "))
	}
	if pairs := overlappingPairs(schedules); len(pairs) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("schedules %s and %s overlap", pairs[0][0].ID, pairs[0][1].ID))
	}
	return nil
}

func (s *EnrollmentService) writeReview(ctx context.Context, tx sqlx.ExtContext, review models.EnrollmentReview) error {
	if err := s.repo.UpdateReview(ctx, tx, review); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidStateTransition, "application is no longer pending")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record enrollment decision")
	}
	return nil
}

func (s *EnrollmentService) afterDecision(ctx context.Context, application *models.EnrollmentApplication, reviewerID, action string, details map[string]interface{}) {
	s.metrics.RecordEnrollmentDecision(application.Status)
	payload, _ := json.Marshal(details)
	recordAudit(ctx, s.audit, s.logger, "enrollment-service", &models.AuditLog{
		UserID:     optionalString(reviewerID),
		Action:     action,
		Resource:   "enrollment_application",
		ResourceID: &application.ID,
		OldValues:  []byte(`{"status":"pending"}`),
		NewValues:  payload,
	})
	s.logger.Info("enrollment application reviewed",
		zap.String("application_id", application.ID),
		zap.String("status", string(application.Status)),
		zap.String("reviewer_id", reviewerID),
	)
}

func applyReview(application *models.EnrollmentApplication, review models.EnrollmentReview) {
	reviewedAt := review.ReviewedAt
	reviewer := review.ReviewedBy
	application.Status = review.Status
	application.StudentID = review.StudentID
	application.ReviewedBy = &reviewer
	application.ReviewedAt = &reviewedAt
	application.ReviewNotes = review.Notes
	application.DeclineReason = review.DeclineReason
}

// uniqueScheduleIDs rejects requests naming the same schedule twice.
func uniqueScheduleIDs(refs []dto.ScheduleAssignmentRef) ([]string, error) {
	seen := make(map[string]int, len(refs))
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id := ref.ScheduleID.String()
		if id == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "scheduleId is required")
		}
		seen[id]++
		if seen[id] == 1 {
			ids = append(ids, id)
		}
	}
	if len(ids) != len(refs) {
		var dupes []string
		for id, count := range seen {
			if count > 1 {
				dupes = append(dupes, id)
			}
		}
		sort.Strings(dupes)
		return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate scheduleId: "+strings.Join(dupes, ", "))
	}
	return ids, nil
}
