package models

import "time"

// Student represents a learner admitted to the school.
type Student struct {
	ID            string    `db:"id" json:"id"`
	ApplicationID *string   `db:"application_id" json:"applicationId,omitempty"`
	FirstName     string    `db:"first_name" json:"firstName"`
	MiddleName    *string   `db:"middle_name" json:"middleName,omitempty"`
	LastName      string    `db:"last_name" json:"lastName"`
	BirthDate     time.Time `db:"birth_date" json:"birthDate"`
	Gender        string    `db:"gender" json:"gender"`
	PlaceOfBirth  string    `db:"place_of_birth" json:"placeOfBirth"`
	Nationality   string    `db:"nationality" json:"nationality"`
	Address       string    `db:"address" json:"address"`
	GradeLevel    string    `db:"grade_level" json:"gradeLevel"`
	SectionID     *string   `db:"section_id" json:"sectionId,omitempty"`
	ParentName    string    `db:"parent_name" json:"parentName"`
	ParentContact string    `db:"parent_contact" json:"parentContact"`
	ParentEmail   *string   `db:"parent_email" json:"parentEmail,omitempty"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// StudentFromApplication copies the personal fields of an approved application.
func StudentFromApplication(app *EnrollmentApplication, sectionID string) *Student {
	appID := app.ID
	section := sectionID
	return &Student{
		ApplicationID: &appID,
		FirstName:     app.FirstName,
		MiddleName:    app.MiddleName,
		LastName:      app.LastName,
		BirthDate:     app.BirthDate,
		Gender:        app.Gender,
		PlaceOfBirth:  app.PlaceOfBirth,
		Nationality:   app.Nationality,
		Address:       app.Address,
		GradeLevel:    app.GradeLevel,
		SectionID:     &section,
		ParentName:    app.ParentName,
		ParentContact: app.ParentContact,
		ParentEmail:   app.ParentEmail,
		Active:        true,
	}
}
