package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

const sectionColumns = `id, name, grade_level, capacity, active, created_at, updated_at`

// normalizedGradeExpr mirrors models.NormalizeGrade.
const normalizedGradeExpr = `btrim(regexp_replace(lower(btrim(grade_level)), '^grade', ''))`

// SectionRepository reads class sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

func (r *SectionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns sections ordered by grade and name.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, error) {
	var conditions []string
	var args []interface{}
	if grade := models.NormalizeGrade(filter.GradeLevel); grade != "" {
		args = append(args, grade)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", normalizedGradeExpr, len(args)))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s FROM sections%s ORDER BY grade_level ASC, name ASC", sectionColumns, clause)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindByID returns a section by id.
func (r *SectionRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Section, error) {
	query := fmt.Sprintf("SELECT %s FROM sections WHERE id = $1", sectionColumns)
	var section models.Section
	if err := sqlx.GetContext(ctx, r.exec(exec), &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}
