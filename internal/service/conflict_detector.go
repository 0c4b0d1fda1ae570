package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type overlapCandidateFinder interface {
	FindOverlapCandidates(ctx context.Context, exec sqlx.ExtContext, teacherID string, sectionID *string, days models.Weekdays, excludeID string) ([]models.ScheduleDetail, error)
}

// ConflictDetector finds teacher and section double-bookings for a schedule draft.
type ConflictDetector struct {
	repo overlapCandidateFinder
}

// NewConflictDetector constructs a ConflictDetector.
func NewConflictDetector(repo overlapCandidateFinder) *ConflictDetector {
	return &ConflictDetector{repo: repo}
}

// Detect loads the schedules that share the draft's teacher or section on any of its
// weekdays and reports the overlapping ones. exec may be a transaction so the read
// happens under the caller's locks; nil reads from the pool.
func (d *ConflictDetector) Detect(ctx context.Context, exec sqlx.ExtContext, draft models.ScheduleDraft) ([]models.ConflictReport, error) {
	if len(draft.Days) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one weekday is required")
	}
	if err := draft.Range.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "startTime must be before endTime")
	}
	candidates, err := d.repo.FindOverlapCandidates(ctx, exec, draft.TeacherID, draft.SectionID, draft.Days, draft.ExcludeScheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
	}
	return DetectConflicts(draft, candidates), nil
}

// DetectConflicts compares draft with existing schedules and groups overlaps by weekday.
// Only days with at least one clash are reported; an empty result means no conflict.
func DetectConflicts(draft models.ScheduleDraft, existing []models.ScheduleDetail) []models.ConflictReport {
	reports := make([]models.ConflictReport, 0)
	for _, day := range draft.Days {
		teacher := make([]models.ConflictingSchedule, 0)
		section := make([]models.ConflictingSchedule, 0)
		for _, other := range existing {
			if draft.ExcludeScheduleID != "" && other.ID == draft.ExcludeScheduleID {
				continue
			}
			if !other.Days.Contains(day) || !draft.Range.Overlaps(other.Range()) {
				continue
			}
			if other.TeacherID == draft.TeacherID {
				teacher = append(teacher, conflictingSchedule(other, derefString(other.SectionName)))
			}
			if sameSection(draft.SectionID, other.SectionID) {
				section = append(section, conflictingSchedule(other, other.TeacherName))
			}
		}
		if len(teacher) == 0 && len(section) == 0 {
			continue
		}
		reports = append(reports, models.ConflictReport{
			Day: day,
			Conflicts: models.DayConflicts{
				Teacher: models.OverlapGroup{HasOverlap: len(teacher) > 0, Schedules: teacher},
				Section: models.OverlapGroup{HasOverlap: len(section) > 0, Schedules: section},
			},
		})
	}
	return reports
}

// overlappingPairs reports every pair of schedules sharing a weekday with overlapping times.
func overlappingPairs(schedules []models.Schedule) [][2]models.Schedule {
	var pairs [][2]models.Schedule
	for i := 0; i < len(schedules); i++ {
		for j := i + 1; j < len(schedules); j++ {
			a, b := schedules[i], schedules[j]
			if !a.Range().Overlaps(b.Range()) {
				continue
			}
			for _, day := range a.Days {
				if b.Days.Contains(day) {
					pairs = append(pairs, [2]models.Schedule{a, b})
					break
				}
			}
		}
	}
	return pairs
}

func conflictingSchedule(s models.ScheduleDetail, counterpart string) models.ConflictingSchedule {
	return models.ConflictingSchedule{
		ScheduleID:  s.ID,
		SubjectID:   s.SubjectID,
		SubjectName: s.SubjectName,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Counterpart: counterpart,
	}
}

func sameSection(a, b *string) bool {
	return a != nil && b != nil && *a != "" && *a == *b
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
