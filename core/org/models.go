package org

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Course struct {
	ID        string      `json:"id"`
	OrgID     string      `json:"org_id"`
	Code      string      `json:"code"`
	Title     string      `json:"title"`
	Semester  null.String `json:"semester"`
	Year      null.Int    `json:"year"`
	CreatedAt time.Time   `json:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at"` // UTC
}

// Assignment carries the grading scale its submissions are validated against.
type Assignment struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	MaxPoints float64   `json:"max_points"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// UpdateOrganization defines what may be modified on an Organization; only the name is mutable.
type UpdateOrganization struct {
	Name string `json:"name" validate:"required"`
}

func (uo *UpdateOrganization) Validate(validate *validator.Validate) error {
	uo.Name = core.CleanString(uo.Name)
	return validate.Struct(uo)
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Code     string `json:"code" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Semester string `json:"semester"`
	Year     int    `json:"year" validate:"omitempty,min=2000,max=2100"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = core.CleanString(nc.Code)
	nc.Title = core.CleanString(nc.Title)
	nc.Semester = core.CleanString(nc.Semester)
	return validate.Struct(nc)
}
