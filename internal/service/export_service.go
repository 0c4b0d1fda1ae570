package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
	"github.com/noah-isme/sma-attendance-api/pkg/export"
)

type sectionTimetableReader interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.ScheduleDetail, error)
}

var timetableHeaders = []string{"Day", "Start", "End", "Subject", "Teacher"}

// ExportService renders section timetables for download.
type ExportService struct {
	sections  *SectionService
	schedules sectionTimetableReader
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs ExportService.
func NewExportService(sections *SectionService, schedules sectionTimetableReader, csvExporter *export.CSVExporter, pdfExporter *export.PDFExporter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csvExporter == nil {
		csvExporter = export.NewCSVExporter()
	}
	if pdfExporter == nil {
		pdfExporter = export.NewPDFExporter()
	}
	return &ExportService{
		sections:  sections,
		schedules: schedules,
		csv:       csvExporter,
		pdf:       pdfExporter,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SectionTimetable renders one row per (day, schedule) ordered by day then start time.
func (s *ExportService) SectionTimetable(ctx context.Context, sectionID string, format dto.ExportFormat) (*dto.ExportFile, error) {
	if format == "" {
		format = dto.ExportFormatCSV
	}
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	section, err := s.sections.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	schedules, err := s.schedules.ListBySection(ctx, section.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	data := timetableDataset(schedules)
	base := fmt.Sprintf("timetable-%s", slug(section.Name))

	var file *dto.ExportFile
	switch format {
	case dto.ExportFormatPDF:
		content, err := s.pdf.Render(data, export.DocumentMeta{
			Title:       fmt.Sprintf("Timetable %s", section.Name),
			Subtitle:    fmt.Sprintf("Grade %s", models.NormalizeGrade(section.GradeLevel)),
			GeneratedAt: s.now(),
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
		}
		file = &dto.ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Content: content}
	default:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
		}
		file = &dto.ExportFile{Filename: base + ".csv", ContentType: "text/csv", Content: content}
	}

	s.logger.Info("timetable exported",
		zap.String("section_id", section.ID),
		zap.String("format", string(format)),
		zap.Int("rows", len(data.Rows)),
	)
	return file, nil
}

type timetableSlot struct {
	day      models.Weekday
	schedule models.ScheduleDetail
}

func timetableDataset(schedules []models.ScheduleDetail) export.Dataset {
	var slots []timetableSlot
	for _, schedule := range schedules {
		for _, day := range schedule.Days {
			slots = append(slots, timetableSlot{day: day, schedule: schedule})
		}
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].day != slots[j].day {
			return slots[i].day.Before(slots[j].day)
		}
		return slots[i].schedule.StartTime < slots[j].schedule.StartTime
	})

	data := export.Dataset{Headers: timetableHeaders}
	for _, slot := range slots {
		subject := slot.schedule.SubjectName
		if subject == "" {
			subject = slot.schedule.SubjectID
		}
		teacher := slot.schedule.TeacherName
		if teacher == "" {
			teacher = slot.schedule.TeacherID
		}
		data.Rows = append(data.Rows, []string{
			string(slot.day),
			slot.schedule.StartTime.String(),
			slot.schedule.EndTime.String(),
			subject,
			teacher,
		})
	}
	return data
}

func slug(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	if len(fields) == 0 {
		return "section"
	}
	return strings.Join(fields, "-")
}
