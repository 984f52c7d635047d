package submission

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Status is the closed set of submission lifecycle states.
type Status string

const (
	StatusPending Status = "pending"
	StatusGrading Status = "grading"
	StatusGraded  Status = "graded"
	StatusError   Status = "error"
)

var AllStatuses = []Status{StatusPending, StatusGrading, StatusGraded, StatusError}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusGrading, StatusGraded, StatusError:
		return true
	}
	return false
}

// Terminal reports whether the status ends the automated judging lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusGraded, StatusError:
		return true
	case StatusPending, StatusGrading:
		return false
	}
	return false
}

type Submission struct {
	ID           string       `json:"id"`
	CourseID     string       `json:"course_id"`
	AssignmentID string       `json:"assignment_id"`
	StudentID    string       `json:"student_id"`
	Status       Status       `json:"status"`
	Score        null.Float64 `json:"score"`
	Feedback     null.String  `json:"feedback"`
	FileName     string       `json:"file_name"`
	FileSize     int64        `json:"file_size"`
	SubmittedAt  time.Time    `json:"submitted_at"` // UTC
	UpdatedAt    time.Time    `json:"updated_at"`   // UTC
}

// NewSubmission contains information needed to create a new Submission.
type NewSubmission struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
	FileName     string `json:"file_name" validate:"required"`
	FileSize     int64  `json:"file_size" validate:"omitempty,min=0"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.FileName = core.CleanString(ns.FileName)
	return validate.Struct(ns)
}

// Override is a manual grading save. It may originate from any prior
// status and always lands in the grader-chosen terminal status. Score is
// accepted as a string so a non-numeric input fails locally and never
// reaches the server.
type Override struct {
	Status   Status `json:"status" validate:"required,submstatus"`
	Score    string `json:"score"`
	Feedback string `json:"feedback"`

	score null.Float64
}

// Validate checks the target status is terminal, parses the score and
// normalizes the feedback. The score range is checked against the
// assignment scale by the service before commit.
func (o *Override) Validate(validate *validator.Validate) error {
	o.Score = core.CleanString(o.Score)
	o.Feedback = core.CleanString(o.Feedback)

	if err := validate.Struct(o); err != nil {
		return err
	}

	// an override never re-opens automated judging
	if !o.Status.Terminal() {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "status must be graded or error"})
	}

	if o.Score != "" {
		f, err := strconv.ParseFloat(o.Score, 64)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "score", Error: "score must be a number"})
		}
		o.score = null.Float64From(f)
	} else {
		o.score = null.Float64{}
	}
	return nil
}

// ParsedScore returns the numeric score; null when no score was supplied.
func (o Override) ParsedScore() null.Float64 {
	return o.score
}

// NormalizedFeedback returns the feedback; empty input normalizes to null,
// never to an empty string.
func (o Override) NormalizedFeedback() null.String {
	return null.NewString(o.Feedback, o.Feedback != "")
}

// QueryFilter selects submissions; results are always in queue order
// (SubmittedAt, then ID).
type QueryFilter struct {
	CourseID string `query:"course_id"`
	Status   Status `query:"status_filter"`
	Limit    int    `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
}
