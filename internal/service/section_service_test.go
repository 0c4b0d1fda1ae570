package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

type sectionRepoStub struct {
	sectionStub
	lastFilter models.SectionFilter
}

func (s *sectionRepoStub) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, error) {
	s.lastFilter = filter
	var out []models.Section
	for _, section := range s.sections {
		if filter.GradeLevel != "" && !section.AcceptsGrade(filter.GradeLevel) {
			continue
		}
		if filter.ActiveOnly && !section.Active {
			continue
		}
		out = append(out, *section)
	}
	return out, nil
}

func TestSectionServiceList(t *testing.T) {
	repo := &sectionRepoStub{sectionStub: sectionStub{sections: map[string]*models.Section{
		"5": {ID: "5", Name: "7-A", GradeLevel: "7", Active: true},
		"7": {ID: "7", Name: "7-Z", GradeLevel: "7", Active: false},
	}}}
	svc := NewSectionService(repo, nil)

	sections, err := svc.List(context.Background(), models.SectionFilter{GradeLevel: "Grade 7", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "7-A", sections[0].Name)

	sections, err = svc.List(context.Background(), models.SectionFilter{GradeLevel: "12"})
	require.NoError(t, err)
	assert.NotNil(t, sections)
	assert.Empty(t, sections)
}

func TestSectionServiceGet(t *testing.T) {
	repo := &sectionRepoStub{sectionStub: sectionStub{sections: map[string]*models.Section{
		"5": {ID: "5", Name: "7-A", GradeLevel: "7", Active: true},
	}}}
	svc := NewSectionService(repo, nil)

	section, err := svc.Get(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "7-A", section.Name)

	_, err = svc.Get(context.Background(), "404")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
