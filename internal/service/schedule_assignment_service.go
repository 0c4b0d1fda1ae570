package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type scheduleAssignmentRepository interface {
	assignmentWriter
	Delete(ctx context.Context, id string) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ScheduleAssignmentDetail, error)
}

type studentDirectory interface {
	ExistingIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (map[string]struct{}, error)
}

// ScheduleAssignmentService manages student to schedule bindings.
type ScheduleAssignmentService struct {
	repo      scheduleAssignmentRepository
	students  studentDirectory
	schedules scheduleBatchReader
	tx        txProvider
	audit     auditWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleAssignmentService constructs the service. audit and metrics may be nil.
func NewScheduleAssignmentService(
	repo scheduleAssignmentRepository,
	students studentDirectory,
	schedules scheduleBatchReader,
	tx txProvider,
	audit auditWriter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleAssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleAssignmentService{
		repo:      repo,
		students:  students,
		schedules: schedules,
		tx:        tx,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// ListByStudent returns a student's assignments with their schedule slots.
func (s *ScheduleAssignmentService) ListByStudent(ctx context.Context, studentID string) ([]models.ScheduleAssignmentDetail, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	items, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule assignments")
	}
	if items == nil {
		items = []models.ScheduleAssignmentDetail{}
	}
	return items, nil
}

// Bulk assigns every (student, schedule) pair in one transaction. Repeated pairs in
// the request and pairs that already exist are counted as skipped.
func (s *ScheduleAssignmentService) Bulk(ctx context.Context, items []dto.BulkAssignmentItem, actorID string) (*dto.BulkAssignmentResult, error) {
	if len(items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one assignment is required")
	}
	for _, item := range items {
		if err := s.validator.Struct(item); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "studentId and scheduleId are required")
		}
	}

	pairs, duplicates := dedupePairs(items)
	result := &dto.BulkAssignmentResult{Created: []models.StudentScheduleAssignment{}, Skipped: duplicates}

	err := runInTx(ctx, s.tx, s.metrics, "schedule_assignment_bulk", func(tx *sqlx.Tx) error {
		if err := s.ensureReferences(ctx, tx, pairs); err != nil {
			return err
		}
		for _, pair := range pairs {
			assignment := &models.StudentScheduleAssignment{StudentID: pair.StudentID, ScheduleID: pair.ScheduleID}
			created, err := s.repo.CreateIfAbsent(ctx, tx, assignment)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign schedule")
			}
			if !created {
				result.Skipped++
				continue
			}
			result.Created = append(result.Created, *assignment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(result)
	recordAudit(ctx, s.audit, s.logger, "schedule-assignment-service", &models.AuditLog{
		UserID:    optionalString(actorID),
		Action:    models.AuditActionAssignmentBulk,
		Resource:  "student_schedule_assignment",
		NewValues: payload,
	})
	s.logger.Info("schedule assignments created",
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", result.Skipped),
		zap.String("actor_id", actorID),
	)
	return result, nil
}

// Remove deletes an assignment. Removing an absent assignment is not an error.
func (s *ScheduleAssignmentService) Remove(ctx context.Context, id, actorID string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove schedule assignment")
	}
	if !deleted {
		return nil
	}
	recordAudit(ctx, s.audit, s.logger, "schedule-assignment-service", &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     models.AuditActionAssignmentRemove,
		Resource:   "student_schedule_assignment",
		ResourceID: &id,
	})
	s.logger.Info("schedule assignment removed", zap.String("assignment_id", id), zap.String("actor_id", actorID))
	return nil
}

func (s *ScheduleAssignmentService) ensureReferences(ctx context.Context, tx sqlx.ExtContext, pairs []models.AssignmentPair) error {
	studentIDs, scheduleIDs := pairIDs(pairs)

	students, err := s.students.ExistingIDs(ctx, tx, studentIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if missing := missingIDs(studentIDs, students); len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "students not found: "+strings.Join(missing, ", "))
	}

	schedules, err := s.schedules.FindByIDs(ctx, tx, scheduleIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	found := make(map[string]struct{}, len(schedules))
	for _, schedule := range schedules {
		found[schedule.ID] = struct{}{}
	}
	if missing := missingIDs(scheduleIDs, found); len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "schedules not found: "+strings.Join(missing, ", "))
	}
	return nil
}

func dedupePairs(items []dto.BulkAssignmentItem) ([]models.AssignmentPair, int) {
	seen := make(map[models.AssignmentPair]struct{}, len(items))
	pairs := make([]models.AssignmentPair, 0, len(items))
	for _, item := range items {
		pair := models.AssignmentPair{StudentID: item.StudentID.String(), ScheduleID: item.ScheduleID.String()}
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}
	return pairs, len(items) - len(pairs)
}

func pairIDs(pairs []models.AssignmentPair) (students, schedules []string) {
	studentSet := map[string]struct{}{}
	scheduleSet := map[string]struct{}{}
	for _, pair := range pairs {
		if _, ok := studentSet[pair.StudentID]; !ok {
			studentSet[pair.StudentID] = struct{}{}
			students = append(students, pair.StudentID)
		}
		if _, ok := scheduleSet[pair.ScheduleID]; !ok {
			scheduleSet[pair.ScheduleID] = struct{}{}
			schedules = append(schedules, pair.ScheduleID)
		}
	}
	return students, schedules
}

func missingIDs(ids []string, found map[string]struct{}) []string {
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}
